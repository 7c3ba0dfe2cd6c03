package main

import (
	"context"
	"os"

	"github.com/dagbolade/blind-auditor/internal/audit"
	"github.com/dagbolade/blind-auditor/internal/config"
	"github.com/dagbolade/blind-auditor/internal/controller"
	"github.com/dagbolade/blind-auditor/internal/metrics"
	"github.com/dagbolade/blind-auditor/internal/rules"
	"github.com/dagbolade/blind-auditor/internal/server"
	"github.com/dagbolade/blind-auditor/internal/tools"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func serveCmd(configPath *string) *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the audit tools over MCP stdio and/or HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, func(c *config.Config) {
				if transport != "" {
					c.Transport = transport
				}
			})
			if err != nil {
				return err
			}

			ctx, cancel := setupSignalHandler()
			defer cancel()

			log.Info().Str("version", Version).Str("transport", cfg.Transport).Msg("starting Blind Auditor")

			if err := run(ctx, cfg); err != nil {
				return err
			}

			log.Info().Msg("blind auditor stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&transport, "transport", "t", "", "Transport: stdio, http or both (overrides config)")

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	store := initRuleStore(cfg)

	if cfg.Rules.Watch {
		watcher, err := rules.WatchStore(store)
		if err != nil {
			log.Warn().Err(err).Msg("rules watcher disabled")
		} else {
			defer func() {
				if err := watcher.Close(); err != nil {
					log.Warn().Err(err).Msg("failed to close rules watcher")
				}
			}()
		}
	}

	trail, err := initTrail(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := trail.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close audit trail")
		}
	}()

	recorder := metrics.New()

	ctrl := controller.New(store,
		controller.WithTrail(trail),
		controller.WithMetrics(recorder),
	)
	defer ctrl.Close()

	handler := tools.NewHandler(ctrl, store, recorder)

	var srv *server.Server
	if cfg.ServesHTTP() {
		srv = server.New(server.Config{
			Port:            cfg.Server.Port,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		}, server.Deps{
			Tools:      handler,
			Controller: ctrl,
			Rules:      store,
			Trail:      trail,
			Metrics:    recorder,
		})
	}

	return runTransports(ctx, cfg, handler, srv)
}

func initRuleStore(cfg *config.Config) *rules.FileStore {
	log.Info().Str("path", cfg.Rules.Path).Msg("loading rules")

	store := rules.NewFileStore(cfg.Rules.Path)
	if err := store.Load(); err != nil {
		log.Warn().Err(err).Msg("failed to load rules, using defaults")
	}

	snap := store.Snapshot()
	log.Info().
		Str("project", snap.ProjectName).
		Int("rules", len(snap.Rules)).
		Int("max_retries", snap.MaxRetries).
		Msg("rules loaded")

	return store
}

func initTrail(cfg *config.Config) (audit.Store, error) {
	if !cfg.Trail.Enabled {
		log.Info().Msg("audit trail disabled")
		return audit.NopStore{}, nil
	}

	log.Info().Str("path", cfg.Trail.Path).Msg("initializing audit trail")

	store, err := audit.NewSQLiteStore(cfg.Trail.Path)
	if err != nil {
		return nil, err
	}

	log.Info().Msg("audit trail initialized")
	return store, nil
}

// runTransports blocks until a transport fails, the MCP client closes stdin
// or ctx is cancelled.
func runTransports(ctx context.Context, cfg *config.Config, handler *tools.Handler, srv *server.Server) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan error, 2)

	if srv != nil {
		go func() {
			errChan <- srv.Start()
		}()
	}

	if cfg.ServesStdio() {
		mcpServer := tools.NewMCPServer(handler, Version)
		go func() {
			err := tools.ServeStdio(ctx, mcpServer, os.Stdin, os.Stdout)
			if err == nil {
				log.Info().Msg("stdio closed by client")
			}
			errChan <- err
		}()
	}

	var runErr error
	select {
	case runErr = <-errChan:
	case <-ctx.Done():
	}
	cancel()

	if srv != nil {
		if err := srv.Shutdown(context.Background()); err != nil && runErr == nil {
			runErr = err
		}
	}

	return runErr
}
