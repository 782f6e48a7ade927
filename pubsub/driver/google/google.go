// Package google adapts a real Cloud Pub/Sub topic to the emulator's
// pubsub.Publisher interface, so code written against the emulator in tests
// publishes to the managed service in production unchanged.
package google

import (
	"context"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/infigaming-com/go-pubsubmock/pubsub"
)

type Config struct {
	ProjectID       string
	TopicID         string
	CredentialsJSON []byte
	Endpoint        string
	UserAgent       string
	Client          *gcppubsub.Client
	Logger          *zap.Logger
	// PublishSettings is applied to the underlying topic handle.
	PublishSettings *pubsub.PublishSettings
}

type Publisher struct {
	client     *gcppubsub.Client
	topic      *gcppubsub.Topic
	ownsClient bool
	logger     *zap.Logger
}

var _ pubsub.Publisher = (*Publisher)(nil)

func New(ctx context.Context, cfg Config) (*Publisher, error) {
	if cfg.TopicID == "" {
		return nil, errors.New("googlepubsub: topic id required")
	}
	var (
		client *gcppubsub.Client
		err    error
		owns   bool
	)

	if cfg.Client != nil {
		client = cfg.Client
	} else {
		if cfg.ProjectID == "" {
			return nil, errors.New("googlepubsub: project id required when client is not provided")
		}
		opts := make([]option.ClientOption, 0, 3)
		if len(cfg.CredentialsJSON) > 0 {
			opts = append(opts, option.WithCredentialsJSON(cfg.CredentialsJSON))
		}
		if cfg.Endpoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.Endpoint))
		}
		if cfg.UserAgent != "" {
			opts = append(opts, option.WithUserAgent(cfg.UserAgent))
		}
		client, err = gcppubsub.NewClient(ctx, cfg.ProjectID, opts...)
		if err != nil {
			return nil, fmt.Errorf("googlepubsub: create client: %w", err)
		}
		owns = true
	}

	topic := client.Topic(cfg.TopicID)
	if s := cfg.PublishSettings; s != nil {
		if s.DelayThreshold > 0 {
			topic.PublishSettings.DelayThreshold = s.DelayThreshold
		}
		if s.CountThreshold > 0 {
			topic.PublishSettings.CountThreshold = s.CountThreshold
		}
		if s.ByteThreshold > 0 {
			topic.PublishSettings.ByteThreshold = s.ByteThreshold
		}
	}

	p := &Publisher{
		client:     client,
		topic:      topic,
		ownsClient: owns,
		logger:     cfg.Logger,
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p, nil
}

// PublishMessage publishes msg and waits for the server-assigned id. The
// payload is chosen by PublishMessage.Payload, as with the emulator.
func (p *Publisher) PublishMessage(ctx context.Context, msg pubsub.PublishMessage) (string, error) {
	data, err := msg.Payload()
	if err != nil {
		return "", fmt.Errorf("googlepubsub: %w", err)
	}
	res := p.topic.Publish(ctx, &gcppubsub.Message{
		Data:       append([]byte(nil), data...),
		Attributes: cloneMap(msg.Attributes),
	})
	id, err := res.Get(ctx)
	if err != nil {
		p.logger.Error("publish failed", zap.String("topic", p.topic.String()), zap.Error(err))
		return "", fmt.Errorf("googlepubsub: publish: %w", err)
	}
	p.logger.Debug("message published", zap.String("topic", p.topic.String()), zap.String("message_id", id))
	return id, nil
}

// Close flushes pending publishes and closes the client if New created it.
func (p *Publisher) Close() error {
	p.topic.Stop()
	if p.ownsClient {
		return p.client.Close()
	}
	return nil
}

func cloneMap(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
