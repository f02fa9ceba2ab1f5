package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"bankclient/config"
	"bankclient/internal/model"
	"bankclient/internal/repo"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewRelayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Forward activity events from Kafka to Google Pub/Sub",
		Run: func(cmd *cobra.Command, args []string) {
			app := fx.New(
				fx.Provide(
					config.LoadConfig,
					NewLogger,
					repo.NewPubSubClient,
					repo.NewKafkaConsumer,
				),
				fx.WithLogger(NewFxLogger),
				fx.Invoke(RegisterRelay),
			)
			app.Run()
		},
	}
}

func RegisterRelay(lc fx.Lifecycle, consumer *repo.KafkaConsumer, ps repo.PubSubInterface, logger *zap.Logger) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer close(done)
				if err := consumer.Consume(runCtx); err != nil {
					logger.Error("relay stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return ps.Close()
		},
	})
}

func NewActivityConsumerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "activity-consumer",
		Short: "Print activity events from the Google Pub/Sub subscription",
		Run: func(cmd *cobra.Command, args []string) {
			app := fx.New(
				fx.Provide(
					config.LoadConfig,
					NewLogger,
					repo.NewPubSubClient,
					func() io.Writer { return os.Stdout },
				),
				fx.WithLogger(NewFxLogger),
				fx.Invoke(RegisterActivityConsumer),
			)
			app.Run()
		},
	}
}

func RegisterActivityConsumer(lc fx.Lifecycle, ps repo.PubSubInterface, out io.Writer, logger *zap.Logger) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	handle := ActivityPrinter(out, logger)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer close(done)
				if err := ps.Subscribe(runCtx, handle); err != nil {
					logger.Error("activity consumer stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return ps.Close()
		},
	})
}

// ActivityPrinter writes one line per activity event; undecodable messages are logged and skipped.
func ActivityPrinter(out io.Writer, logger *zap.Logger) func([]byte) {
	return func(data []byte) {
		var ev model.ActivityEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			logger.Warn("skipping malformed activity event", zap.Error(err))
			return
		}
		tx := ev.Transaction
		fmt.Fprintf(out, "%s %s %s -> %s %s %q\n",
			time.UnixMilli(ev.CachedAt).UTC().Format(time.RFC3339),
			ev.Type, tx.SenderPhoneNumber, tx.ReceiverPhoneNumber, tx.Amount.String(), tx.Comment)
	}
}
