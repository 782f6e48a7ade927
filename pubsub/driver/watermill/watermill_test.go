package watermill_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/infigaming-com/go-pubsubmock/pubsub"
	"github.com/infigaming-com/go-pubsubmock/pubsub/pubsubtest"
	wm "github.com/infigaming-com/go-pubsubmock/pubsub/driver/watermill"
)

func newPair(t *testing.T, cfg wm.Config) (*wm.Publisher, *wm.Subscriber) {
	t.Helper()
	if cfg.Client == nil {
		cfg.Client = pubsubtest.NewClient(t, pubsub.WithPublishLatency(0))
	}
	pub, err := wm.NewPublisher(cfg)
	require.NoError(t, err)
	sub, err := wm.NewSubscriber(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pub.Close()
		_ = sub.Close()
	})
	return pub, sub
}

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestNew_RequiresClient(t *testing.T) {
	_, err := wm.NewPublisher(wm.Config{})
	assert.Error(t, err)
	_, err = wm.NewSubscriber(wm.Config{})
	assert.Error(t, err)
}

func TestPublishSubscribe_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pub, sub := newPair(t, wm.Config{AutoCreate: true, Logger: wm.NewZapLogger(zap.NewNop())})

	ch, err := sub.Subscribe(ctx, "orders")
	require.NoError(t, err)

	out := message.NewMessage("uuid-1", []byte("hello"))
	out.Metadata.Set("kind", "created")
	require.NoError(t, pub.Publish("orders", out))

	got := receive(t, ch)
	assert.Equal(t, "uuid-1", got.UUID)
	assert.Equal(t, "hello", string(got.Payload))
	assert.Equal(t, "created", got.Metadata.Get("kind"))
	assert.Empty(t, got.Metadata.Get(wm.UUIDAttribute))
	assert.True(t, got.Ack())
}

func TestSubscribe_NackRedelivers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pub, sub := newPair(t, wm.Config{AutoCreate: true})

	ch, err := sub.Subscribe(ctx, "jobs")
	require.NoError(t, err)
	require.NoError(t, pub.Publish("jobs", message.NewMessage("j-1", []byte("work"))))

	first := receive(t, ch)
	first.Nack()

	second := receive(t, ch)
	assert.Equal(t, "j-1", second.UUID)
	assert.Equal(t, "work", string(second.Payload))
	second.Ack()
}

func TestSubscribe_PreservesOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pub, sub := newPair(t, wm.Config{AutoCreate: true})

	ch, err := sub.Subscribe(ctx, "seq")
	require.NoError(t, err)

	uuids := []string{"a", "b", "c"}
	for _, u := range uuids {
		require.NoError(t, pub.Publish("seq", message.NewMessage(u, []byte(u))))
	}
	for _, want := range uuids {
		got := receive(t, ch)
		assert.Equal(t, want, got.UUID)
		got.Ack()
	}
}

func TestPublish_WithoutAutoCreate(t *testing.T) {
	pub, _ := newPair(t, wm.Config{})

	err := pub.Publish("absent", message.NewMessage("x", []byte("x")))
	require.Error(t, err)
	assert.True(t, pubsub.IsNotFound(err))
}

func TestSubscribe_WithoutAutoCreate(t *testing.T) {
	_, sub := newPair(t, wm.Config{})

	_, err := sub.Subscribe(context.Background(), "absent")
	require.Error(t, err)
	assert.True(t, pubsub.IsNotFound(err))
}

func TestSubscribe_ExistingSubscriptionName(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := pubsubtest.NewClient(t, pubsub.WithPublishLatency(0))
	topic, _ := pubsubtest.CreateTopicWithSubscriptions(t, client, "events", "events-worker")

	_, sub := newPair(t, wm.Config{
		Client:           client,
		SubscriptionName: func(topic string) string { return topic + "-worker" },
	})
	ch, err := sub.Subscribe(ctx, "events")
	require.NoError(t, err)

	id, err := topic.Publish(ctx, []byte("native"), nil)
	require.NoError(t, err)

	got := receive(t, ch)
	assert.Equal(t, id, got.UUID)
	assert.Equal(t, "native", string(got.Payload))
	got.Ack()
}

func TestSubscriber_CloseClosesChannels(t *testing.T) {
	_, sub := newPair(t, wm.Config{AutoCreate: true})

	ch, err := sub.Subscribe(context.Background(), "closing")
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}

	_, err = sub.Subscribe(context.Background(), "closing")
	assert.ErrorIs(t, err, wm.ErrClosed)
}

func TestPublisher_Closed(t *testing.T) {
	pub, _ := newPair(t, wm.Config{AutoCreate: true})
	require.NoError(t, pub.Close())
	assert.ErrorIs(t, pub.Publish("t", message.NewMessage("x", nil)), wm.ErrClosed)
}

func TestSubscribe_DeletedSubscriptionClosesChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := pubsubtest.NewClient(t, pubsub.WithPublishLatency(0))
	_, sub := newPair(t, wm.Config{Client: client, AutoCreate: true})

	ch, err := sub.Subscribe(ctx, "gone")
	require.NoError(t, err)
	require.NoError(t, client.Subscription("gone").Delete(ctx))

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}
