package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/treeplug/internal/catalog"
	"github.com/specialistvlad/treeplug/internal/compiler"
	"github.com/specialistvlad/treeplug/internal/ctxlog"
	"github.com/specialistvlad/treeplug/internal/library"
	"github.com/specialistvlad/treeplug/internal/loader"
	"github.com/specialistvlad/treeplug/internal/model"
	"github.com/specialistvlad/treeplug/internal/pipeline"
	"github.com/specialistvlad/treeplug/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	logger     *slog.Logger
	config     *Config
	catalog    *library.Catalog
	compiler   *compiler.Compiler
	registry   *registry.Registry
	installer  *catalog.Installer
	loader     *loader.Loader
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry,
// with the core modules installed.
func NewApp(logW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	libs := library.NewCatalog(libraryPatterns(cfg.LibraryPaths)...)
	resolver := library.NewResolver(libs, cfg.BaseReferences...)
	comp := compiler.New(resolver, compiler.WithWarningsAsErrors(cfg.WarningsAsErrors))
	reg := registry.New()
	inst := catalog.NewInstaller(comp, reg, catalog.WithLenient(cfg.Lenient))
	ld := loader.New(inst, cfg.ModulesPath, loader.WithPattern(cfg.ModulePattern), loader.WithWorkers(cfg.WorkerCount))
	logger.Debug("Compiler configured.", "base_references", resolver.Base(), "library_paths", cfg.LibraryPaths)

	a := &App{
		ctx:       ctx,
		logger:    logger,
		config:    cfg,
		catalog:   libs,
		compiler:  comp,
		registry:  reg,
		installer: inst,
		loader:    ld,
	}
	a.installCoreModules()
	return a
}

// Context returns the app's base context, which carries its logger.
func (a *App) Context() context.Context { return a.ctx }

// Registry returns the application's registry.
func (a *App) Registry() *registry.Registry { return a.registry }

// Installer returns the application's installer.
func (a *App) Installer() *catalog.Installer { return a.installer }

// Loader returns the loader for the modules path.
func (a *App) Loader() *loader.Loader { return a.loader }

// Libraries lists every library name #r directives can resolve.
func (a *App) Libraries() []string { return a.catalog.Names() }

// Check compiles one file without installing it.
func (a *App) Check(ctx context.Context, path string) (*compiler.Unit, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return a.compiler.Compile(ctx, string(src), model.KindUnknown, compiler.WithFilename(path))
}

// Invoke calls the entry point of the module registered as id.
func (a *App) Invoke(ctx context.Context, id string, arg cty.Value) (cty.Value, error) {
	d, err := a.lookup(id)
	if err != nil {
		return cty.NilVal, err
	}
	ctxlog.FromContext(ctx).Debug("Invoking module.", "id", id, "kind", d.Kind.String())
	return d.Unit.Invoke(ctx, arg)
}

// RunPipeline chains the modules named by ids, in order, and runs arg through
// them. The first module decides the pipeline's kind.
func (a *App) RunPipeline(ctx context.Context, ids []string, arg cty.Value) (cty.Value, error) {
	if len(ids) == 0 {
		return arg, nil
	}
	var p *pipeline.Pipeline
	for _, id := range ids {
		d, err := a.lookup(id)
		if err != nil {
			return cty.NilVal, err
		}
		if p == nil {
			if p, err = pipeline.New(d.Kind); err != nil {
				return cty.NilVal, fmt.Errorf("module %q: %w", id, err)
			}
		}
		if err := p.Add(d); err != nil {
			return cty.NilVal, err
		}
	}
	ctxlog.FromContext(ctx).Debug("Running pipeline.", "kind", p.Kind().String(), "steps", p.Len())
	return p.Run(ctx, arg)
}

func (a *App) lookup(id string) (*model.Descriptor, error) {
	d, ok := a.registry.Lookup(id)
	if ok {
		return d, nil
	}
	err := fmt.Errorf("%w: %q", registry.ErrNotFound, id)
	if near := a.registry.Suggest(id, 3); len(near) > 0 {
		err = fmt.Errorf("%w; did you mean %s?", err, strings.Join(near, ", "))
	}
	return nil, err
}

func (a *App) installCoreModules() {
	for _, m := range coreModules {
		repeatable := m.repeatable
		_, err := a.installer.Install(a.ctx, m.source, m.kind, model.Meta{ID: m.id, Repeatable: &repeatable})
		if err != nil {
			// Core sources ship with the binary, so this is a programmer error.
			panic(fmt.Errorf("core module %q: %w", m.id, err))
		}
	}
	a.logger.Debug("Core modules installed.", "count", len(coreModules))
}

// libraryPatterns turns plain directories into recursive library patterns
// and passes glob patterns through.
func libraryPatterns(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.ContainsAny(p, "*?[{") {
			out = append(out, p)
			continue
		}
		out = append(out, filepath.Join(p, "**", "*"+library.FileExtension))
	}
	return out
}
