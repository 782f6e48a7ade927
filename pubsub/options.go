package pubsub

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/infigaming-com/go-pubsubmock/uid"
)

// DefaultPublishLatency is the simulated round trip applied to every publish.
const DefaultPublishLatency = 5 * time.Millisecond

type Option func(*options)

type StoreOption func(*storeOptions)

type options struct {
	store          *Store
	interceptor    Interceptor
	logger         *zap.Logger
	meterProvider  metric.MeterProvider
	publishLatency time.Duration
}

type storeOptions struct {
	ids    uid.UID
	ackIDs *uid.UUIDV7
}

func defaultOptions() options {
	return options{
		interceptor:    identity,
		logger:         zap.NewNop(),
		publishLatency: DefaultPublishLatency,
	}
}

func defaultStoreOptions() storeOptions {
	return storeOptions{
		ids:    uid.NewSequence(),
		ackIDs: uid.NewUUIDV7(),
	}
}

// WithStore makes the client operate on store instead of the process-wide
// default store.
func WithStore(store *Store) Option {
	return func(o *options) {
		if store != nil {
			o.store = store
		}
	}
}

// WithInterceptor installs a transform applied to every message right
// before it is enqueued on a subscription. Default: identity.
func WithInterceptor(fn Interceptor) Option {
	return func(o *options) {
		if fn != nil {
			o.interceptor = fn
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMeterProvider sets the provider used for the emulator's counters.
// Default: the global otel provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithPublishLatency overrides the simulated publish delay. Zero or negative
// disables it.
func WithPublishLatency(d time.Duration) Option {
	return func(o *options) {
		o.publishLatency = d
	}
}

// WithUID sets the message id source of a store. Default: a sequence
// starting at 1.
func WithUID(ids uid.UID) StoreOption {
	return func(o *storeOptions) {
		if ids != nil {
			o.ids = ids
		}
	}
}

func (o options) meter() metric.MeterProvider {
	if o.meterProvider != nil {
		return o.meterProvider
	}
	return otel.GetMeterProvider()
}

// SubscriptionConfig mirrors the subset of the managed service's
// subscription settings that the emulator honours.
type SubscriptionConfig struct {
	// AckDeadline is recorded for inspection only; deadline expiry is not
	// simulated.
	AckDeadline time.Duration
	// RetryPolicy delays redelivery of nacked messages. Nil redelivers
	// immediately.
	RetryPolicy *RetryPolicy
	Receive     ReceiveSettings
	Labels      map[string]string
}

type RetryPolicy struct {
	MinimumBackoff time.Duration
	MaximumBackoff time.Duration
}

type ReceiveSettings struct {
	// NumGoroutines is the number of callbacks Receive runs at once.
	// Default 1, which preserves queue order.
	NumGoroutines int
}

// PublishSettings is accepted by Topic.SetPublishOptions for compatibility.
// Batching is not simulated.
type PublishSettings struct {
	DelayThreshold time.Duration
	CountThreshold int
	ByteThreshold  int
}

// PublishMessage is the argument of Topic.PublishMessage. When JSON holds a
// value it is marshalled and takes precedence over Data.
type PublishMessage struct {
	Data       []byte
	JSON       any
	Attributes map[string]string
}

// Payload returns the bytes to publish. A nil JSON, including a typed nil
// pointer, map or slice, leaves Data in place.
func (m PublishMessage) Payload() ([]byte, error) {
	if isNil(m.JSON) {
		return m.Data, nil
	}
	encoded, err := json.Marshal(m.JSON)
	if err != nil {
		return nil, fmt.Errorf("pubsub: marshal json payload: %w", err)
	}
	return encoded, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
