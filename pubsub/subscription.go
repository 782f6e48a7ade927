package pubsub

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/infigaming-com/go-pubsubmock/naming"
	"github.com/infigaming-com/go-pubsubmock/pubsub/internal/backoff"
	"github.com/infigaming-com/go-pubsubmock/pubsub/internal/worker"
)

// Subscription owns the delivery queue for one subscription name. Messages
// wait in the pending queue until Pull or Receive hands them out; handed out
// messages stay outstanding until acked or nacked.
type Subscription struct {
	name     string
	topic    string
	config   SubscriptionConfig
	store    *Store
	logger   *zap.Logger
	onDelete func()

	mu          sync.Mutex
	pending     []*Message
	outstanding map[string]*Message
	deleted     bool
	wake        chan struct{}
}

// missingSubscription is returned by lookups that find nothing.
var missingSubscription = &Subscription{}

func newSubscription(name, topic string, cfg SubscriptionConfig, store *Store, logger *zap.Logger) *Subscription {
	return &Subscription{
		name:        name,
		topic:       topic,
		config:      cfg,
		store:       store,
		logger:      logger.With(zap.String("subscription", name)),
		outstanding: map[string]*Message{},
		wake:        make(chan struct{}),
	}
}

func (s *Subscription) missing() bool { return s == nil || s == missingSubscription }

// Name returns the full subscription name, empty for a missing subscription.
func (s *Subscription) Name() string {
	if s.missing() {
		return ""
	}
	return s.name
}

// ID returns the short subscription name.
func (s *Subscription) ID() string { return naming.ShortName(s.Name()) }

// Topic returns the full name of the topic the subscription was created on.
func (s *Subscription) Topic() string {
	if s.missing() {
		return ""
	}
	return s.topic
}

func (s *Subscription) Config() SubscriptionConfig {
	if s.missing() {
		return SubscriptionConfig{}
	}
	return s.config
}

// Exists reports whether the handle refers to a subscription that is still
// registered.
func (s *Subscription) Exists() bool {
	if s.missing() {
		return false
	}
	cur, ok := s.store.subscription(s.name)
	return ok && cur == s
}

func (s *Subscription) String() string {
	if s.missing() {
		return "<missing subscription>"
	}
	return s.name
}

// Delete unregisters the subscription and discards its queue. Topics it was
// bound to skip it from then on.
func (s *Subscription) Delete(ctx context.Context) error {
	if s.missing() {
		return errSubscriptionNotFound("")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.deleted {
		s.mu.Unlock()
		return errSubscriptionNotFound(s.name)
	}
	s.deleted = true
	s.pending = nil
	s.outstanding = map[string]*Message{}
	s.signalLocked()
	s.mu.Unlock()

	if s.onDelete != nil {
		s.onDelete()
	}
	s.logger.Debug("subscription deleted")
	return nil
}

// Messages returns a snapshot of the pending queue in delivery order.
func (s *Subscription) Messages() []*Message {
	if s.missing() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.pending)
}

// Outstanding returns the number of handed out messages not yet settled.
func (s *Subscription) Outstanding() int {
	if s.missing() {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outstanding)
}

// Pull hands out up to max pending messages without waiting; max <= 0 takes
// everything pending.
func (s *Subscription) Pull(ctx context.Context, max int) ([]*Message, error) {
	if s.missing() {
		return nil, errSubscriptionNotFound("")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted {
		return nil, errSubscriptionNotFound(s.name)
	}
	n := len(s.pending)
	if max > 0 && max < n {
		n = max
	}
	out := make([]*Message, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.deliverLocked())
	}
	return out, nil
}

// Receive calls f for each message until ctx is done, in which case it
// returns nil. It returns a NOT_FOUND error if the subscription is missing
// or gets deleted. Callbacks run on Config().Receive.NumGoroutines workers.
func (s *Subscription) Receive(ctx context.Context, f ReceiveFunc) error {
	if s.missing() {
		return errSubscriptionNotFound("")
	}
	workers := s.config.Receive.NumGoroutines
	if workers <= 0 {
		workers = 1
	}
	pool := worker.New(workers, workers, func(r any) {
		s.logger.Error("receive callback panic", zap.Any("panic", r))
	})
	defer func() {
		pool.Close()
		pool.Wait()
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		msg, wake, err := s.next()
		if err != nil {
			return err
		}
		if msg == nil {
			select {
			case <-ctx.Done():
				return nil
			case <-wake:
			}
			continue
		}
		if err := pool.Submit(ctx, func(execCtx context.Context) { f(execCtx, msg) }); err != nil {
			s.release(msg)
			return nil
		}
	}
}

// next pops one pending message, or returns the channel closed on the next
// enqueue when the queue is empty.
func (s *Subscription) next() (*Message, <-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted {
		return nil, nil, errSubscriptionNotFound(s.name)
	}
	if len(s.pending) == 0 {
		return nil, s.wake, nil
	}
	return s.deliverLocked(), nil, nil
}

func (s *Subscription) deliverLocked() *Message {
	head := s.pending[0]
	s.pending[0] = nil
	s.pending = s.pending[1:]
	msg := head.delivered(s.store.nextAckID())
	s.outstanding[msg.ackID] = msg
	return msg
}

// enqueue appends msg to the pending queue. It reports false when the
// subscription has been deleted.
func (s *Subscription) enqueue(msg *Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted {
		return false
	}
	s.pending = append(s.pending, msg)
	s.signalLocked()
	return true
}

func (s *Subscription) signalLocked() {
	close(s.wake)
	s.wake = make(chan struct{})
}

func (s *Subscription) ack(ackID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.outstanding, ackID)
}

func (s *Subscription) nack(ackID string) {
	s.mu.Lock()
	msg, ok := s.outstanding[ackID]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.outstanding, ackID)
	s.mu.Unlock()

	delay := s.redeliveryDelay(msg.deliveryAttempt)
	s.logger.Debug("message nacked", zap.String("message_id", msg.id), zap.Int("attempt", msg.deliveryAttempt), zap.Duration("redeliver_in", delay))
	if delay <= 0 {
		s.requeue(msg.queued())
		return
	}
	time.AfterFunc(delay, func() { s.requeue(msg.queued()) })
}

// release puts a message that never reached the callback back at the head
// of the queue without counting the attempt.
func (s *Subscription) release(msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.outstanding[msg.ackID]; !ok || s.deleted {
		return
	}
	delete(s.outstanding, msg.ackID)
	back := msg.queued()
	back.deliveryAttempt--
	s.pending = append([]*Message{back}, s.pending...)
	s.signalLocked()
}

// requeue puts a nacked message at the head of the queue.
func (s *Subscription) requeue(msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted {
		return
	}
	s.pending = append([]*Message{msg}, s.pending...)
	s.signalLocked()
}

func (s *Subscription) redeliveryDelay(attempt int) time.Duration {
	policy := s.config.RetryPolicy
	if policy == nil {
		return 0
	}
	return backoff.Config{
		Initial:    policy.MinimumBackoff,
		Max:        policy.MaximumBackoff,
		Multiplier: 2,
	}.Delay(attempt)
}

func (s *Subscription) GoString() string {
	return fmt.Sprintf("Subscription{name=%q topic=%q}", s.Name(), s.Topic())
}
