package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"puerto-real/internal/app"
	"puerto-real/internal/config"
	"puerto-real/internal/logger"
)

// Options wires the command tree to its environment.
type Options struct {
	Config *config.Config
	Logger *logger.Logger

	// Registry receives the store metrics. Nil skips registration outside
	// of serve, which always builds its own.
	Registry prometheus.Registerer

	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// runner opens the runtime on first use and closes it after the command.
type runner struct {
	opts   Options
	rt     *app.Runtime
	asJSON bool
}

func (r *runner) service(ctx context.Context) (app.ApplicationService, error) {
	if r.rt == nil {
		rt, err := app.Open(ctx, r.opts.Config, r.opts.Logger, r.opts.Registry)
		if err != nil {
			return nil, err
		}
		r.rt = rt
	}
	return r.rt.Service, nil
}

func (r *runner) close() error {
	if r.rt == nil {
		return nil
	}
	err := r.rt.Close()
	r.rt = nil
	return err
}

// emit prints v as indented JSON when --json is set, otherwise calls table.
func (r *runner) emit(w io.Writer, v any, table func()) error {
	if !r.asJSON {
		table()
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// NewRootCommand builds the puerto command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	r := &runner{opts: opts}

	root := &cobra.Command{
		Use:   "puerto",
		Short: "Puerto Real purchase ledger and back office",
		Long: `puerto manages the Puerto Real purchase ledger, supplier directory and
stock list from the command line.

Running it without a subcommand starts the interactive back office.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.repl(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return r.close()
		},
	}
	root.SetIn(opts.In)
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)
	root.PersistentFlags().BoolVar(&r.asJSON, "json", false, "print results as JSON")

	root.AddCommand(
		r.purchasesCommand(),
		r.suppliersCommand(),
		r.stockCommand(),
		r.reportCommand(),
		r.seedCommand(),
		r.migrateCommand(),
		r.replCommand(),
		r.serveCommand(),
	)
	return root
}

// Execute runs the command tree with args and closes anything it opened,
// including after a failed command.
func Execute(ctx context.Context, opts Options, args []string) error {
	root := NewRootCommand(opts)
	if args == nil {
		// cobra falls back to os.Args on nil.
		args = []string{}
	}
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		// PersistentPostRunE is skipped when RunE fails.
		if closeErr := closeRoot(root); closeErr != nil {
			fmt.Fprintf(root.ErrOrStderr(), "close: %v\n", closeErr)
		}
	}
	return err
}

func closeRoot(root *cobra.Command) error {
	if root.PersistentPostRunE == nil {
		return nil
	}
	return root.PersistentPostRunE(root, nil)
}
