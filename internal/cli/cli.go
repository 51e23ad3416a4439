package cli

import (
	"fmt"
	"io"

	"github.com/specialistvlad/treeplug/internal/app"
	"github.com/spf13/cobra"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// options holds the flag values shared by every command.
type options struct {
	configFile       string
	modulesPath      string
	modulePattern    string
	libraryPaths     []string
	references       []string
	warningsAsErrors bool
	lenient          bool
	workers          int
	logLevel         string
	logFormat        string

	healthcheckPort  int
	publishURL       string
	publishNamespace string
}

// NewRootCommand builds the treeplug command tree. Command output goes to
// outW; logs and diagnostics go to errW.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "treeplug",
		Short: "Compile, check and serve tree-processing plugin modules",
		Long: `treeplug compiles HCL plugin modules, classifies them by kind and keeps
them in a searchable catalog.

A module is an HCL file of function blocks. "#r" lines at the top of the file
link function libraries, either built in (core, strings, collections, numeric,
encoding, regex, sets, datetime) or library files found on --library-path.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Message: err.Error()}
	})

	defaults := app.DefaultConfig()
	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "", "Path to a YAML config file.")
	pf.StringVarP(&opts.modulesPath, "modules-path", "m", defaults.ModulesPath, "Directory containing module files.")
	pf.StringVar(&opts.modulePattern, "pattern", defaults.ModulePattern, "Doublestar pattern selecting module files under the modules path.")
	pf.StringSliceVarP(&opts.libraryPaths, "library-path", "L", nil, "Directory or pattern searched for library files. Repeatable.")
	pf.StringSliceVar(&opts.references, "reference", defaults.BaseReferences, "Library linked into every module. Repeatable.")
	pf.BoolVar(&opts.warningsAsErrors, "warnings-as-errors", false, "Fail compilation on warnings.")
	pf.BoolVar(&opts.lenient, "lenient", false, "Install placeholder modules for files that do not compile.")
	pf.IntVar(&opts.workers, "workers", defaults.WorkerCount, "Number of files compiled concurrently.")
	pf.StringVar(&opts.logLevel, "log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&opts.logFormat, "log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")

	root.AddCommand(
		newCheckCommand(opts),
		newListCommand(opts),
		newInvokeCommand(opts),
		newPipeCommand(opts),
		newLibrariesCommand(opts),
		newServeCommand(opts),
	)
	return root
}

// newApp resolves the configuration for cmd and builds the app, logging
// to the command's error stream.
func newApp(cmd *cobra.Command, opts *options) (*app.App, error) {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return nil, err
	}
	return app.NewApp(cmd.ErrOrStderr(), cfg), nil
}

// resolveConfig layers defaults, the config file and explicitly set flags,
// in that order.
func resolveConfig(cmd *cobra.Command, opts *options) (*app.Config, error) {
	cfg := app.DefaultConfig()
	if opts.configFile != "" {
		var err error
		cfg, err = app.LoadConfigFile(opts.configFile, cfg)
		if err != nil {
			return nil, &ExitError{Code: 2, Message: err.Error()}
		}
	}

	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("modules-path", func() { cfg.ModulesPath = opts.modulesPath })
	set("pattern", func() { cfg.ModulePattern = opts.modulePattern })
	set("library-path", func() { cfg.LibraryPaths = opts.libraryPaths })
	set("reference", func() { cfg.BaseReferences = opts.references })
	set("warnings-as-errors", func() { cfg.WarningsAsErrors = opts.warningsAsErrors })
	set("lenient", func() { cfg.Lenient = opts.lenient })
	set("workers", func() { cfg.WorkerCount = opts.workers })
	set("log-level", func() { cfg.LogLevel = opts.logLevel })
	set("log-format", func() { cfg.LogFormat = opts.logFormat })
	set("healthcheck-port", func() { cfg.HealthcheckPort = opts.healthcheckPort })
	set("publish-url", func() { cfg.PublishURL = opts.publishURL })
	set("publish-namespace", func() { cfg.PublishNamespace = opts.publishNamespace })

	out, err := app.NewConfig(cfg)
	if err != nil {
		return nil, &ExitError{Code: 2, Message: fmt.Sprintf("invalid configuration: %v", err)}
	}
	return out, nil
}
