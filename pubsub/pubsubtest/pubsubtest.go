// Package pubsubtest wires the emulator into Go tests: every client gets its
// own store, cleared when the test finishes, so test cases never observe each
// other's topics.
package pubsubtest

import (
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/infigaming-com/go-pubsubmock/pubsub"
)

// DefaultProjectID is the project used by NewClient.
const DefaultProjectID = "test-project"

// NewStore returns a fresh store that is reset on test cleanup.
func NewStore(tb testing.TB, opts ...pubsub.StoreOption) *pubsub.Store {
	tb.Helper()
	store := pubsub.NewStore(opts...)
	tb.Cleanup(store.Reset)
	return store
}

// NewClient returns a client for DefaultProjectID on a fresh store.
func NewClient(tb testing.TB, opts ...pubsub.Option) *pubsub.Client {
	tb.Helper()
	return NewProjectClient(tb, DefaultProjectID, opts...)
}

// NewProjectClient is NewClient for an explicit project. Options given later
// override the store option, so several clients can share one store.
func NewProjectClient(tb testing.TB, projectID string, opts ...pubsub.Option) *pubsub.Client {
	tb.Helper()
	all := append([]pubsub.Option{pubsub.WithStore(NewStore(tb))}, opts...)
	return pubsub.NewClient(projectID, all...)
}

// Recorder captures every message passing through the interceptor chain.
type Recorder struct {
	mu       sync.Mutex
	messages []*pubsub.Message
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Intercept records m and lets it through unchanged. Install it with
// pubsub.WithInterceptor(rec.Intercept).
func (r *Recorder) Intercept(m *pubsub.Message) *pubsub.Message {
	r.mu.Lock()
	r.messages = append(r.messages, m)
	r.mu.Unlock()
	return m
}

func (r *Recorder) Messages() []*pubsub.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*pubsub.Message(nil), r.messages...)
}

// ForSubscription returns the recorded messages addressed to the given full
// subscription name.
func (r *Recorder) ForSubscription(name string) []*pubsub.Message {
	return lo.Filter(r.Messages(), func(m *pubsub.Message, _ int) bool {
		return m.Subscription() == name
	})
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.messages = nil
	r.mu.Unlock()
}

// RequirePayloads fails the test unless sub's pending queue holds exactly
// the given payloads in order.
func RequirePayloads(tb testing.TB, sub *pubsub.Subscription, want ...string) {
	tb.Helper()
	got := lo.Map(sub.Messages(), func(m *pubsub.Message, _ int) string {
		return string(m.Data())
	})
	if len(want) == 0 {
		require.Empty(tb, got, "subscription %s", sub)
		return
	}
	require.Equal(tb, want, got, "subscription %s", sub)
}

// CreateTopicWithSubscriptions creates a topic and binds one subscription per
// id, in order.
func CreateTopicWithSubscriptions(tb testing.TB, client *pubsub.Client, topicID string, subscriptionIDs ...string) (*pubsub.Topic, []*pubsub.Subscription) {
	tb.Helper()
	ctx := tb.Context()
	topic, err := client.CreateTopic(ctx, topicID)
	require.NoError(tb, err)
	subs := make([]*pubsub.Subscription, 0, len(subscriptionIDs))
	for _, id := range subscriptionIDs {
		sub, err := topic.CreateSubscription(ctx, id, pubsub.SubscriptionConfig{})
		require.NoError(tb, err)
		subs = append(subs, sub)
	}
	return topic, subs
}
