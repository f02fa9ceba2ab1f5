package cmd

import (
	"context"
	"errors"
	"net/http"

	"bankclient/config"
	"bankclient/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type watchCredentials struct {
	phone    string
	password string
}

func NewWatchCommand() *cobra.Command {
	var creds watchCredentials
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the session alive, sync history on a schedule and serve /metrics",
		Run: func(cmd *cobra.Command, args []string) {
			app := fx.New(
				Module,
				fx.Supply(creds),
				fx.Invoke(RegisterWatchLifecycle),
			)
			app.Run()
		},
	}
	cmd.Flags().StringVar(&creds.phone, "phone", "", "phone number; resumes the persisted session when empty")
	cmd.Flags().StringVar(&creds.password, "password", "", "password")
	return cmd
}

func RegisterWatchLifecycle(lc fx.Lifecycle, cfg *config.Config, session *service.Session, creds watchCredentials, logger *zap.Logger) {
	logger = logger.With(zap.String("component", "watch"))
	runCtx, cancel := context.WithCancel(context.Background())

	c := cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(zap.NewStdLog(logger)))))
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if creds.phone != "" {
				if _, err := session.Login(ctx, creds.phone, creds.password); err != nil {
					return err
				}
			} else {
				ok, err := session.Restore(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("no persisted session, pass --phone and --password")
				}
			}

			if _, err := c.AddFunc(cfg.Sync.Schedule, func() {
				txs, err := session.SyncTransactions(runCtx)
				if err != nil {
					logger.Warn("scheduled sync failed", zap.Error(err))
					return
				}
				logger.Info("scheduled sync done", zap.Int("transactions", len(txs)))
			}); err != nil {
				return err
			}
			c.Start()
			logger.Info("sync scheduled", zap.String("schedule", cfg.Sync.Schedule))

			go func() {
				logger.Info("metrics listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-c.Stop().Done():
			case <-ctx.Done():
			}
			return srv.Shutdown(ctx)
		},
	})
}
