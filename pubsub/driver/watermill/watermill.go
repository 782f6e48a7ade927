// Package watermill exposes the emulator as a watermill message.Publisher and
// message.Subscriber, so watermill routers can run against it in tests.
package watermill

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/infigaming-com/go-pubsubmock/pubsub"
)

// UUIDAttribute carries the watermill message uuid through the emulator.
const UUIDAttribute = "_watermill_message_uuid"

var ErrClosed = stderrors.New("watermill: closed")

type Config struct {
	// Client is required.
	Client *pubsub.Client
	Logger watermill.LoggerAdapter
	// AutoCreate creates missing topics on publish and missing topics and
	// subscriptions on subscribe.
	AutoCreate bool
	// SubscriptionName maps a watermill topic to the subscription id the
	// subscriber reads. Default: the topic id itself.
	SubscriptionName func(topic string) string
	SubscriptionConfig pubsub.SubscriptionConfig
}

func (c Config) validate() error {
	if c.Client == nil {
		return stderrors.New("watermill: client required")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Logger == nil {
		c.Logger = watermill.NopLogger{}
	}
	if c.SubscriptionName == nil {
		c.SubscriptionName = func(topic string) string { return topic }
	}
}

// ensureTopic returns the topic, creating it first when allowed.
func ensureTopic(ctx context.Context, cfg Config, topicID string) (*pubsub.Topic, error) {
	topic := cfg.Client.Topic(topicID)
	if topic.Exists() || !cfg.AutoCreate {
		return topic, nil
	}
	created, err := cfg.Client.CreateTopic(ctx, topicID)
	if pubsub.IsAlreadyExists(err) {
		return cfg.Client.Topic(topicID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("watermill: create topic %s: %w", topicID, err)
	}
	cfg.Logger.Debug("topic created", watermill.LogFields{"topic": created.Name()})
	return created, nil
}

type Publisher struct {
	cfg Config

	mu     sync.RWMutex
	closed bool
}

var _ message.Publisher = (*Publisher)(nil)

func NewPublisher(cfg Config) (*Publisher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &Publisher{cfg: cfg}, nil
}

// Publish publishes each message on the emulator topic with the given id.
// Metadata becomes attributes; the uuid travels in UUIDAttribute.
func (p *Publisher) Publish(topic string, msgs ...*message.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	for _, msg := range msgs {
		ctx := msg.Context()
		t, err := ensureTopic(ctx, p.cfg, topic)
		if err != nil {
			return err
		}
		attrs := make(map[string]string, len(msg.Metadata)+1)
		for k, v := range msg.Metadata {
			attrs[k] = v
		}
		attrs[UUIDAttribute] = msg.UUID

		id, err := t.PublishMessage(ctx, pubsub.PublishMessage{Data: msg.Payload, Attributes: attrs})
		if err != nil {
			return fmt.Errorf("watermill: publish %s to %s: %w", msg.UUID, topic, err)
		}
		p.cfg.Logger.Trace("message published", watermill.LogFields{
			"topic":        topic,
			"message_uuid": msg.UUID,
			"message_id":   id,
		})
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type Subscriber struct {
	cfg Config

	mu      sync.Mutex
	closed  bool
	closing chan struct{}
	wg      sync.WaitGroup
}

var _ message.Subscriber = (*Subscriber)(nil)

func NewSubscriber(cfg Config) (*Subscriber, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &Subscriber{cfg: cfg, closing: make(chan struct{})}, nil
}

// Subscribe streams messages from the subscription mapped from topic. The
// channel closes when ctx is done, the subscriber is closed or the
// subscription is deleted. Each message must be acked or nacked before the
// next one is delivered.
func (s *Subscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	sub, err := s.subscription(ctx, topic)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan *message.Message)
	logFields := watermill.LogFields{"topic": topic, "subscription": sub.Name()}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		select {
		case <-s.closing:
			cancel()
		case <-ctx.Done():
		}
	}()
	go func() {
		defer s.wg.Done()
		defer close(out)
		defer cancel()
		if err := sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
			s.forward(ctx, m, out, logFields)
		}); err != nil {
			s.cfg.Logger.Error("receive stopped", err, logFields)
			return
		}
		s.cfg.Logger.Debug("receive stopped", logFields)
	}()
	return out, nil
}

func (s *Subscriber) subscription(ctx context.Context, topic string) (*pubsub.Subscription, error) {
	subID := s.cfg.SubscriptionName(topic)
	sub := s.cfg.Client.Subscription(subID)
	if sub.Exists() {
		return sub, nil
	}
	if !s.cfg.AutoCreate {
		return nil, fmt.Errorf("watermill: subscription %s: %w", subID, pubsub.ErrNotFound)
	}
	t, err := ensureTopic(ctx, s.cfg, topic)
	if err != nil {
		return nil, err
	}
	sub, err = t.CreateSubscription(ctx, subID, s.cfg.SubscriptionConfig)
	if pubsub.IsAlreadyExists(err) {
		return s.cfg.Client.Subscription(subID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("watermill: create subscription %s: %w", subID, err)
	}
	s.cfg.Logger.Debug("subscription created", watermill.LogFields{"subscription": sub.Name()})
	return sub, nil
}

func (s *Subscriber) forward(ctx context.Context, m *pubsub.Message, out chan<- *message.Message, fields watermill.LogFields) {
	attrs := m.Attributes()
	uuid := attrs[UUIDAttribute]
	if uuid == "" {
		uuid = m.ID()
	}
	delete(attrs, UUIDAttribute)

	msg := message.NewMessage(uuid, m.Data())
	for k, v := range attrs {
		msg.Metadata.Set(k, v)
	}
	msgCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	msg.SetContext(msgCtx)

	select {
	case out <- msg:
	case <-ctx.Done():
		m.Nack()
		return
	}

	select {
	case <-msg.Acked():
		m.Ack()
		s.cfg.Logger.Trace("message acked", fields.Add(watermill.LogFields{"message_uuid": uuid}))
	case <-msg.Nacked():
		m.Nack()
		s.cfg.Logger.Trace("message nacked", fields.Add(watermill.LogFields{"message_uuid": uuid}))
	case <-ctx.Done():
		m.Nack()
	}
}

// Close stops every running subscription and waits for them to finish.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.closing)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}
