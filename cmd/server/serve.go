package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/swim24-backend/internal/config"
	"github.com/DoyleJ11/swim24-backend/internal/httpapi"
	"github.com/DoyleJ11/swim24-backend/internal/hub"
	"github.com/DoyleJ11/swim24-backend/internal/logging"
	"github.com/DoyleJ11/swim24-backend/internal/race"
	"github.com/DoyleJ11/swim24-backend/internal/store"
	"github.com/DoyleJ11/swim24-backend/internal/store/memstore"
	"github.com/DoyleJ11/swim24-backend/internal/store/pgstore"
	"github.com/DoyleJ11/swim24-backend/internal/tracker"
)

const shutdownGrace = 10 * time.Second

func serveCmd(configPath *string) *cobra.Command {
	var migrate bool

	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := openStore(ctx, cfg, log, migrate)
			if err != nil {
				return err
			}
			return serve(ctx, cfg, st, log)
		},
	}
	c.Flags().BoolVar(&migrate, "migrate", false, "apply schema migrations before serving (postgres only)")
	return c
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger, migrate bool) (store.Store, error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("using in-memory store; data is lost on restart")
		return memstore.New(), nil
	}

	pg, err := pgstore.Open(cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}
	if err := pg.Ping(ctx); err != nil {
		return nil, multierr.Append(err, pg.Close())
	}
	if migrate {
		if err := pg.Migrate(ctx); err != nil {
			return nil, multierr.Append(err, pg.Close())
		}
		log.Info("schema migrated")
	}
	return pg, nil
}

func serve(ctx context.Context, cfg config.Config, st store.Store, log *zap.Logger) (err error) {
	h := hub.NewHub(ctx, hub.Deps{Store: st, Log: log})
	svc := tracker.New(tracker.Options{
		Store: st,
		Hub:   h,
		Log:   log,
		Hours: &race.BirdHours{Late: cfg.LateBirdHour, Early: cfg.EarlyBirdHour},
		Defaults: tracker.Defaults{
			LaneLength:         cfg.DefaultLaneLength,
			DoubleCountTimeout: cfg.DefaultDoubleCountTimeout,
		},
	})
	defer func() {
		svc.Shutdown()
		err = multierr.Append(err, st.Close())
	}()

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(svc, h, httpapi.Options{
			Log:            log,
			RequestTimeout: cfg.RequestTimeout,
			CORSOrigins:    cfg.CORSOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
