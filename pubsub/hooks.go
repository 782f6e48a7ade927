package pubsub

import "context"

// Interceptor transforms a message immediately before it is enqueued on its
// subscription. Returning nil drops the delivery.
type Interceptor func(*Message) *Message

func identity(m *Message) *Message { return m }

// Chain composes interceptors left to right.
func Chain(fns ...Interceptor) Interceptor {
	return func(m *Message) *Message {
		for _, fn := range fns {
			if m == nil {
				return nil
			}
			if fn != nil {
				m = fn(m)
			}
		}
		return m
	}
}

// Tag returns an interceptor that adds the given attributes to every message.
func Tag(attributes map[string]string) Interceptor {
	return func(m *Message) *Message {
		return m.WithAttributes(attributes)
	}
}

// Publisher is the publish surface shared by *Topic and the real-service
// adapter in driver/google, so application code can depend on either.
type Publisher interface {
	PublishMessage(ctx context.Context, msg PublishMessage) (string, error)
}

// ReceiveFunc handles one delivered message.
type ReceiveFunc func(ctx context.Context, msg *Message)
