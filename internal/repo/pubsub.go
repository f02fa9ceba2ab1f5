package repo

import (
	"context"
	"fmt"
	"time"

	"bankclient/config"

	pubsub "cloud.google.com/go/pubsub/apiv1"
	pubsubpb "cloud.google.com/go/pubsub/apiv1/pubsubpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type PubSubInterface interface {
	Subscribe(ctx context.Context, handle func(data []byte)) error
	Publish(ctx context.Context, data []byte) error
	Close() error
}

type PubSub struct {
	pubClient *pubsub.PublisherClient
	subClient *pubsub.SubscriberClient
	config    *config.Config
	logger    *zap.Logger
}

func NewPubSubClient(config *config.Config, logger *zap.Logger) (PubSubInterface, error) {
	ctx := context.Background()

	opts := []option.ClientOption{
		option.WithEndpoint(config.PubSub.Endpoint),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	}

	pubClient, err := pubsub.NewPublisherClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub publisher client: %w", err)
	}

	subClient, err := pubsub.NewSubscriberClient(ctx, opts...)
	if err != nil {
		_ = pubClient.Close()
		return nil, fmt.Errorf("failed to create pubsub subscriber client: %w", err)
	}

	return &PubSub{
		pubClient: pubClient,
		subClient: subClient,
		config:    config,
		logger:    logger.With(zap.String("component", "pubsub")),
	}, nil
}

func (p *PubSub) Publish(ctx context.Context, data []byte) error {
	topicPath := fmt.Sprintf("projects/%s/topics/%s",
		p.config.PubSub.ProjectID, p.config.PubSub.Topic)

	var lastErr error
	for i := 0; i < 3; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		resp, err := p.pubClient.Publish(attemptCtx, &pubsubpb.PublishRequest{
			Topic:    topicPath,
			Messages: []*pubsubpb.PubsubMessage{{Data: data}},
		})
		cancel()
		if err == nil {
			p.logger.Debug("published message", zap.Strings("message_ids", resp.MessageIds))
			return nil
		}

		lastErr = err
		p.logger.Warn("publish attempt failed", zap.Int("attempt", i+1), zap.Error(err))
	}
	return fmt.Errorf("failed to publish after retries: %w", lastErr)
}

// Subscribe pulls until ctx is done, acknowledging each batch after handle returns.
func (p *PubSub) Subscribe(ctx context.Context, handle func(data []byte)) error {
	subPath := fmt.Sprintf("projects/%s/subscriptions/%s",
		p.config.PubSub.ProjectID, p.config.PubSub.Subscription)

	p.logger.Info("starting pubsub consumer", zap.String("subscription", subPath))

	for {
		if ctx.Err() != nil {
			return nil
		}
		resp, err := p.subClient.Pull(ctx, &pubsubpb.PullRequest{
			Subscription: subPath,
			MaxMessages:  10,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Warn("pull failed", zap.Error(err))
			if !sleep(ctx, time.Second) {
				return nil
			}
			continue
		}
		if resp == nil || len(resp.ReceivedMessages) == 0 {
			continue
		}

		ackIDs := make([]string, 0, len(resp.ReceivedMessages))
		for _, m := range resp.ReceivedMessages {
			handle(m.Message.Data)
			ackIDs = append(ackIDs, m.AckId)
		}

		if err := p.subClient.Acknowledge(ctx, &pubsubpb.AcknowledgeRequest{
			Subscription: subPath,
			AckIds:       ackIDs,
		}); err != nil {
			p.logger.Warn("ack failed", zap.Error(err))
		}
	}
}

func (p *PubSub) Close() error {
	if err := p.pubClient.Close(); err != nil {
		return err
	}
	return p.subClient.Close()
}
