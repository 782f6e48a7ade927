package pubsub

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/infigaming-com/go-pubsubmock/naming"
)

// Topic fans every published payload out to the subscriptions created
// through it.
type Topic struct {
	name   string
	client *Client

	mu                sync.Mutex
	subscriptionNames []string
	publishSettings   PublishSettings
}

// missingTopic is returned by lookups that find nothing.
var missingTopic = &Topic{}

var attributesType = reflect.TypeOf(map[string]string(nil))

func newTopic(c *Client, name string) *Topic {
	return &Topic{name: name, client: c}
}

func (t *Topic) missing() bool { return t == nil || t == missingTopic }

// Name returns the full topic name, empty for a missing topic.
func (t *Topic) Name() string {
	if t.missing() {
		return ""
	}
	return t.name
}

// ID returns the short topic name.
func (t *Topic) ID() string { return naming.ShortName(t.Name()) }

// Exists reports whether the handle refers to a topic that is still
// registered.
func (t *Topic) Exists() bool {
	if t.missing() {
		return false
	}
	cur, ok := t.client.store.topic(t.name)
	return ok && cur == t
}

func (t *Topic) String() string {
	if t.missing() {
		return "<missing topic>"
	}
	return t.name
}

// Delete unregisters the topic. Subscriptions created through it stay
// registered and keep their queues.
func (t *Topic) Delete(ctx context.Context) error {
	if t.missing() {
		return errTopicNotFound()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.client.store.removeTopic(t)
	t.client.logger.Debug("topic deleted", zap.String("topic", t.name))
	return nil
}

// CreateSubscription registers a subscription in the topic's project and
// binds it to the topic. It fails with ALREADY_EXISTS when the name is taken
// anywhere in the store.
func (t *Topic) CreateSubscription(ctx context.Context, subscriptionID string, cfg SubscriptionConfig) (*Subscription, error) {
	if t.missing() {
		return nil, errTopicNotFound()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	store := t.client.store
	name := naming.Subscription(t.client.projectID, subscriptionID)
	sub := newSubscription(name, t.name, cfg, store, t.client.logger)
	sub.onDelete = func() { store.removeSubscription(sub) }
	if !store.addSubscription(sub) {
		t.client.logger.Debug("subscription already exists", zap.String("subscription", name))
		return nil, errSubscriptionAlreadyExists(name)
	}

	t.mu.Lock()
	t.subscriptionNames = append(t.subscriptionNames, name)
	t.mu.Unlock()

	t.client.logger.Debug("subscription created", zap.String("topic", t.name), zap.String("subscription", name))
	return sub, nil
}

// Subscriptions returns the names bound to the topic in binding order,
// including ones deleted since.
func (t *Topic) Subscriptions() []string {
	if t.missing() {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.subscriptionNames)
}

// Subscription looks a subscription up across the whole store, not only
// among the ones bound to t.
func (t *Topic) Subscription(subscriptionID string) *Subscription {
	if t.missing() {
		return missingSubscription
	}
	return lookupSubscription(t.client.store, t.client.projectID, subscriptionID)
}

// Publish delivers data to every bound subscription and returns the shared
// message id. attributes may be nil or any map type convertible to
// map[string]string; any other value,
// including a legacy completion callback, is treated as no attributes.
func (t *Topic) Publish(ctx context.Context, data []byte, attributes any) (string, error) {
	if t.missing() {
		return "", errTopicNotFound()
	}
	return t.publish(ctx, data, t.attributesFrom(attributes))
}

// PublishMessage is Publish with a structured argument. A JSON field holding
// a value is marshalled and replaces Data.
func (t *Topic) PublishMessage(ctx context.Context, msg PublishMessage) (string, error) {
	if t.missing() {
		return "", errTopicNotFound()
	}
	data, err := msg.Payload()
	if err != nil {
		return "", err
	}
	return t.publish(ctx, data, msg.Attributes)
}

// SetPublishOptions records settings; publishing is never batched.
func (t *Topic) SetPublishOptions(settings PublishSettings) {
	if t.missing() {
		return
	}
	t.mu.Lock()
	t.publishSettings = settings
	t.mu.Unlock()
}

// PublishSettings returns the settings last passed to SetPublishOptions.
func (t *Topic) PublishSettings() PublishSettings {
	if t.missing() {
		return PublishSettings{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.publishSettings
}

func (t *Topic) attributesFrom(v any) map[string]string {
	switch attrs := v.(type) {
	case nil:
		return nil
	case map[string]string:
		return attrs
	}
	rv := reflect.ValueOf(v)
	if rv.Type().ConvertibleTo(attributesType) {
		if rv.IsNil() {
			return nil
		}
		return rv.Convert(attributesType).Interface().(map[string]string)
	}
	if rv.Kind() == reflect.Func {
		t.client.logger.Debug("callback publish api not supported, attributes ignored", zap.String("topic", t.name))
		return nil
	}
	t.client.logger.Warn("unsupported attributes type ignored", zap.String("topic", t.name), zap.String("type", fmt.Sprintf("%T", v)))
	return nil
}

// publish waits out the simulated latency, then allocates the id and
// enqueues one copy per bound subscription in binding order. Allocation and
// fan-out share the store's publish lock, so every queue holds ids in
// increasing order. Interceptors run under that lock and must not publish.
func (t *Topic) publish(ctx context.Context, data []byte, attributes map[string]string) (string, error) {
	c := t.client
	if err := sleep(ctx, c.opts.publishLatency); err != nil {
		return "", err
	}

	c.store.publishMu.Lock()
	id, delivered, err := t.fanOut(ctx, data, attributes)
	c.store.publishMu.Unlock()
	if err != nil {
		return "", err
	}

	c.metrics.recordPublished(ctx, t.name)
	c.logger.Debug("message published",
		zap.String("topic", t.name),
		zap.String("message_id", id),
		zap.Int("bytes", len(data)),
		zap.Int("deliveries", delivered),
	)
	return id, nil
}

func (t *Topic) fanOut(ctx context.Context, data []byte, attributes map[string]string) (string, int, error) {
	c := t.client
	id, err := c.store.nextMessageID(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("pubsub: allocate message id: %w", err)
	}

	names := t.Subscriptions()
	publishTime := time.Now()
	delivered := 0
	for _, name := range names {
		sub, ok := c.store.subscription(name)
		if !ok {
			c.metrics.recordSkipped(ctx, t.name, name)
			c.logger.Debug("bound subscription gone, skipping", zap.String("topic", t.name), zap.String("subscription", name))
			continue
		}
		msg := c.opts.interceptor(newMessage(id, sub, data, attributes, publishTime))
		if msg == nil {
			continue
		}
		if sub.enqueue(msg) {
			delivered++
			c.metrics.recordDelivered(ctx, name)
		}
	}
	return id, delivered, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tmr.C:
		return nil
	}
}
