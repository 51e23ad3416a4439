package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/specialistvlad/treeplug/internal/catalogsync"
	"github.com/specialistvlad/treeplug/internal/compiler"
	"github.com/specialistvlad/treeplug/internal/model"
	"github.com/specialistvlad/treeplug/internal/pipeline"
	"github.com/specialistvlad/treeplug/internal/registry"
	"github.com/spf13/cobra"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

func newCheckCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE...",
		Short: "Compile module files and print their diagnostics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			failed := 0
			for _, path := range args {
				unit, err := a.Check(a.Context(), path)
				if err != nil {
					failed++
					var ce *compiler.CompileError
					if errors.As(err, &ce) {
						fmt.Fprintf(out, "FAIL %s\n", path)
						for _, d := range ce.Diagnostics {
							fmt.Fprintf(out, "  %s\n", d.String())
						}
					} else {
						fmt.Fprintf(out, "FAIL %s\n  %v\n", path, err)
					}
					continue
				}
				fmt.Fprintf(out, "OK   %s (%s)\n", path, unit.Kind())
				for _, d := range unit.Warnings() {
					fmt.Fprintf(out, "  %s\n", d.String())
				}
			}

			if failed > 0 {
				return &ExitError{Code: 1, Message: fmt.Sprintf("%d of %d file(s) failed to compile", failed, len(args))}
			}
			return nil
		},
	}
}

func newListCommand(opts *options) *cobra.Command {
	var (
		kindName string
		query    string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Load the modules path and print the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kinds := model.Kinds
			if kindName != "" {
				k, err := model.ParseKind(kindName)
				if err != nil || k == model.KindUnknown {
					return &ExitError{Code: 2, Message: fmt.Sprintf("unknown kind %q", kindName)}
				}
				kinds = []model.Kind{k}
			}

			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			report, err := a.LoadModules()
			if err != nil {
				return err
			}
			for _, f := range report.Failed() {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", f.Path, f.Err)
			}

			var listed []*model.Descriptor
			for _, k := range kinds {
				listed = append(listed, a.Registry().Filter(k, query)...)
			}
			return printCatalog(cmd, listed, asJSON)
		},
	}
	cmd.Flags().StringVarP(&kindName, "kind", "k", "", "Only list modules of this kind.")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Case-insensitive substring matched against name and help.")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON summary per line.")
	return cmd
}

func printCatalog(cmd *cobra.Command, ds []*model.Descriptor, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		for _, d := range ds {
			if err := enc.Encode(catalogsync.Summarize(d)); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tID\tNAME\tREPEATABLE\tHELP")
	for _, d := range ds {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", d.Kind, d.ID, d.Name, d.Repeatable, d.HelpText)
	}
	return tw.Flush()
}

func newInvokeCommand(opts *options) *cobra.Command {
	var arg string
	cmd := &cobra.Command{
		Use:   "invoke ID",
		Short: "Call a module's entry point with a JSON argument",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			val, err := decodeArg(arg)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			if _, err := a.LoadModules(); err != nil {
				return err
			}

			result, err := a.Invoke(a.Context(), args[0], val)
			if err != nil {
				if errors.Is(err, registry.ErrNotFound) {
					return &ExitError{Code: 1, Message: err.Error()}
				}
				return fmt.Errorf("invoking %s: %w", args[0], err)
			}
			return printValue(cmd, result)
		},
	}
	cmd.Flags().StringVarP(&arg, "arg", "a", "", "JSON value passed to the entry point.")
	_ = cmd.MarkFlagRequired("arg")
	return cmd
}

func newPipeCommand(opts *options) *cobra.Command {
	var arg string
	cmd := &cobra.Command{
		Use:   "pipe ID...",
		Short: "Chain further transformation or plotting modules over a JSON argument",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			val, err := decodeArg(arg)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			if _, err := a.LoadModules(); err != nil {
				return err
			}

			result, err := a.RunPipeline(a.Context(), args, val)
			switch {
			case errors.Is(err, registry.ErrNotFound),
				errors.Is(err, pipeline.ErrUnsupportedKind),
				errors.Is(err, pipeline.ErrKindMismatch),
				errors.Is(err, pipeline.ErrNotSelectable):
				return &ExitError{Code: 1, Message: err.Error()}
			case err != nil:
				return fmt.Errorf("running pipeline: %w", err)
			}
			return printValue(cmd, result)
		},
	}
	cmd.Flags().StringVarP(&arg, "arg", "a", "", "JSON value fed to the first module.")
	_ = cmd.MarkFlagRequired("arg")
	return cmd
}

// decodeArg parses a JSON flag value into a cty value of its implied type.
func decodeArg(arg string) (cty.Value, error) {
	raw := []byte(arg)
	ty, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return cty.NilVal, &ExitError{Code: 2, Message: fmt.Sprintf("--arg is not valid JSON: %v", err)}
	}
	val, err := ctyjson.Unmarshal(raw, ty)
	if err != nil {
		return cty.NilVal, &ExitError{Code: 2, Message: fmt.Sprintf("--arg is not valid JSON: %v", err)}
	}
	return val, nil
}

func printValue(cmd *cobra.Command, v cty.Value) error {
	encoded, err := ctyjson.SimpleJSONValue{Value: v}.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}

func newLibrariesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "libraries",
		Short: "List the libraries #r directives can reference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			for _, name := range a.Libraries() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newServeCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load modules, watch the modules path and publish the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Serve(ctx)
		},
	}
	cmd.Flags().IntVar(&opts.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	cmd.Flags().StringVar(&opts.publishURL, "publish-url", "", "socket.io endpoint the catalog is published to.")
	cmd.Flags().StringVar(&opts.publishNamespace, "publish-namespace", "/", "socket.io namespace for catalog events.")
	return cmd
}

// Execute runs the command tree with args under ctx.
func Execute(ctx context.Context, root *cobra.Command, args []string) error {
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
