package pubsub

import (
	"context"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// registry is a name-keyed table that lists entries in insertion order.
type registry[T any] struct {
	entries map[string]T
	order   []string
}

func newRegistry[T any]() registry[T] {
	return registry[T]{entries: map[string]T{}}
}

func (r *registry[T]) get(name string) (T, bool) {
	v, ok := r.entries[name]
	return v, ok
}

func (r *registry[T]) insert(name string, v T) bool {
	if _, ok := r.entries[name]; ok {
		return false
	}
	r.entries[name] = v
	r.order = append(r.order, name)
	return true
}

func (r *registry[T]) remove(name string) {
	if _, ok := r.entries[name]; !ok {
		return
	}
	delete(r.entries, name)
	r.order = lo.Without(r.order, name)
}

func (r *registry[T]) withPrefix(prefix string) []T {
	names := lo.Filter(r.order, func(name string, _ int) bool {
		return strings.HasPrefix(name, prefix)
	})
	return lo.Map(names, func(name string, _ int) T {
		return r.entries[name]
	})
}

func (r *registry[T]) reset() {
	r.entries = map[string]T{}
	r.order = nil
}

// Store holds the topic and subscription registries and the message id
// source. Every client built on the same store sees the same entities; a
// client only filters listings by its project.
type Store struct {
	mu            sync.RWMutex
	publishMu     sync.Mutex
	topics        registry[*Topic]
	subscriptions registry[*Subscription]
	opts          storeOptions
}

var defaultStore = NewStore()

// DefaultStore returns the process-wide store used by clients created
// without WithStore. It is never cleared implicitly.
func DefaultStore() *Store {
	return defaultStore
}

func NewStore(opts ...StoreOption) *Store {
	o := defaultStoreOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{
		topics:        newRegistry[*Topic](),
		subscriptions: newRegistry[*Subscription](),
		opts:          o,
	}
}

// Reset drops every topic and subscription. The message id source keeps
// counting.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics.reset()
	s.subscriptions.reset()
}

func (s *Store) nextMessageID(ctx context.Context) (string, error) {
	return s.opts.ids.New(ctx)
}

func (s *Store) nextAckID() string {
	return s.opts.ackIDs.MustNew()
}

func (s *Store) topic(name string) (*Topic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topics.get(name)
}

func (s *Store) addTopic(t *Topic) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topics.insert(t.name, t)
}

// removeTopic unregisters t's name only while it still maps to t, so a
// stale handle cannot remove a newer topic of the same name.
func (s *Store) removeTopic(t *Topic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.topics.get(t.name); ok && cur == t {
		s.topics.remove(t.name)
	}
}

func (s *Store) topicsWithPrefix(prefix string) []*Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topics.withPrefix(prefix)
}

func (s *Store) subscription(name string) (*Subscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscriptions.get(name)
}

func (s *Store) addSubscription(sub *Subscription) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscriptions.insert(sub.name, sub)
}

func (s *Store) removeSubscription(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.subscriptions.get(sub.name); ok && cur == sub {
		s.subscriptions.remove(sub.name)
	}
}

func (s *Store) subscriptionsWithPrefix(prefix string) []*Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscriptions.withPrefix(prefix)
}
