package cli

import (
	"fmt"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"puerto-real/internal/adapters/repl"
	"puerto-real/internal/adapters/web"
	"puerto-real/internal/config"
	"puerto-real/internal/db"
)

func (r *runner) seedCommand() *cobra.Command {
	var (
		file    string
		replace bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo or file-based seed data into the store",
		Long: `seed writes purchases, suppliers and products from a YAML file into the
configured store. Without --file the built-in demo data is used. Records whose
id already exists are skipped unless --replace is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.service(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.Seed(cmd.Context(), file, replace)
			if err != nil {
				return err
			}
			return r.emit(cmd.OutOrStdout(), res, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "Seed applied: %d created, %d replaced, %d skipped.\n",
					res.Created, res.Replaced, res.Skipped)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed YAML file (default: built-in demo data)")
	cmd.Flags().BoolVar(&replace, "replace", false, "overwrite records that already exist")
	return cmd
}

func (r *runner) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [command] [args...]",
		Short: "Run goose migrations against the Postgres document store",
		Long: `migrate runs a goose command (up, down, status, version, redo, reset)
against the database named by PUERTO_DB_DSN. The default command is up.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := r.opts.Config
			if cfg == nil || cfg.DB.DSN == "" {
				return fmt.Errorf("PUERTO_DB_DSN is required for migrate")
			}
			command := "up"
			if len(args) > 0 {
				command, args = args[0], args[1:]
			}
			pool, err := db.NewPool(cmd.Context(), cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := db.Migrate(cmd.Context(), pool, command, args...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: done\n", command)
			return nil
		},
	}
}

func (r *runner) replCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive back office",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.repl(cmd)
		},
	}
}

func (r *runner) repl(cmd *cobra.Command) error {
	svc, err := r.service(cmd.Context())
	if err != nil {
		return err
	}
	return repl.Run(cmd.Context(), svc, cmd.InOrStdin(), cmd.OutOrStdout())
}

func (r *runner) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := r.opts.Config
			if cfg == nil {
				cfg = &config.Config{}
			}
			if addr == "" {
				addr = net.JoinHostPort("", cfg.App.Port)
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			r.opts.Registry = reg

			svc, err := r.service(cmd.Context())
			if err != nil {
				return err
			}
			handler := web.NewHandler(svc, web.Options{
				AllowedOrigins:    cfg.App.AllowedOrigins,
				StoreDriver:       cfg.Store.Driver,
				Metrics:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
				SecureCookies:     cfg.App.IsProd(),
				ExposeResetTokens: cfg.App.IsDev(),
				Logger:            r.opts.Logger,
			})
			return web.Serve(cmd.Context(), addr, handler, r.opts.Logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :$PUERTO_APP_PORT)")
	return cmd
}
