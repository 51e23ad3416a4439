package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/treeplug/internal/ctxlog"
	"github.com/specialistvlad/treeplug/internal/watch"
)

// Serve loads the modules path, then keeps the registry in step with it
// until ctx is cancelled: file changes are applied by the watcher, the
// catalog is published when a URL is configured, and /health and /modules
// are served when a port is set.
func (a *App) Serve(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Serve method started.")

	report, err := a.LoadModules()
	if err != nil {
		return fmt.Errorf("failed to load modules: %w", err)
	}
	for _, f := range report.Failed() {
		a.logger.Warn("Module file skipped.", "file", f.Path, "error", f.Err)
	}
	a.logger.Info("🚀 Modules loaded.", "installed", a.registry.Len(), "failed", len(report.Failed()))

	a.startStatusServer()
	defer func() {
		if err := a.stopStatusServer(); err != nil {
			a.logger.Warn("Status server did not close cleanly.", "error", err)
		}
	}()

	stopPublishing, err := a.Publish(ctx)
	if err != nil {
		return err
	}
	defer stopPublishing()

	w := watch.New(a.loader)
	if err := w.Run(ctx); err != nil {
		return fmt.Errorf("watching modules path: %w", err)
	}

	a.logger.Info("🏁 Serve finished.")
	return nil
}
