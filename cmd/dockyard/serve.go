package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/OCAP2/dockyard/internal/api"
	"github.com/OCAP2/dockyard/internal/config"
)

type serveOptions struct {
	listen       string
	allowOrigins string
	storage      string
	console      bool
	writeConfig  bool
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the station with the control API and live feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.listen, "listen", "", "API listen address (default server.listen)")
	cmd.Flags().StringVar(&opts.allowOrigins, "cors", "", "comma separated CORS origins")
	cmd.Flags().StringVar(&opts.storage, "storage", "", "journal backend: memory, sqlite, postgres, websocket, none")
	cmd.Flags().BoolVar(&opts.console, "console", false, "log to stdout instead of the logs directory")
	cmd.Flags().BoolVar(&opts.writeConfig, "write-config", false, "write the effective config file if none exists")
	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.writeConfig {
		configDir, _ := cmd.Flags().GetString("config-dir")
		path, err := config.WriteDefault(configDir)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("config: "+path))
	}

	a, err := newApp(ctx, appOptions{console: opts.console, telemetry: true, storage: opts.storage})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if cerr := a.close(shutdownCtx); cerr != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("shutdown: "+cerr.Error()))
		}
	}()
	if err != nil {
		return err
	}

	listen := opts.listen
	if listen == "" {
		listen = config.GetServerConfig().Listen
	}

	server := api.New(api.Dependencies{
		Station:      a.station,
		Dispatcher:   a.dispatcher,
		Logger:       a.log,
		Version:      Version,
		AllowOrigins: opts.allowOrigins,
	})

	fmt.Fprintln(cmd.OutOrStdout(), renderBanner(config.GetStationConfig().Name, listen, a.backendName()))

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		return a.station.Run(ctx)
	})
	p.Go(func(ctx context.Context) error {
		return server.ListenAndServe(ctx, listen)
	})
	if err := p.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (a *app) backendName() string {
	return a.storageType
}
