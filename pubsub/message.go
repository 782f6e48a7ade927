package pubsub

import (
	"fmt"
	"time"
)

// Message is one delivered copy of a published payload. All copies produced
// by a single publish call share the same ID. A Message is immutable; use
// WithAttributes to derive a tagged copy.
type Message struct {
	id              string
	data            []byte
	attributes      map[string]string
	subscription    *Subscription
	publishTime     time.Time
	ackID           string
	deliveryAttempt int
}

func newMessage(id string, sub *Subscription, data []byte, attributes map[string]string, publishTime time.Time) *Message {
	return &Message{
		id:           id,
		data:         append([]byte(nil), data...),
		attributes:   cloneMap(attributes),
		subscription: sub,
		publishTime:  publishTime,
	}
}

func (m *Message) ID() string { return m.id }

func (m *Message) Data() []byte { return append([]byte(nil), m.data...) }

// Attributes returns a copy of the attributes, nil when none were published.
func (m *Message) Attributes() map[string]string { return cloneMap(m.attributes) }

func (m *Message) Attribute(key string) string { return m.attributes[key] }

// Subscription returns the full name of the subscription the copy belongs to.
func (m *Message) Subscription() string {
	if m.subscription == nil {
		return ""
	}
	return m.subscription.name
}

func (m *Message) PublishTime() time.Time { return m.publishTime }

// AckID is empty until the message is handed out by Pull or Receive.
func (m *Message) AckID() string { return m.ackID }

// DeliveryAttempt is 0 while queued, 1 on first delivery and increases with
// every nack.
func (m *Message) DeliveryAttempt() int { return m.deliveryAttempt }

// WithAttributes returns a copy of m whose attributes are m's merged with
// attributes (later keys win).
func (m *Message) WithAttributes(attributes map[string]string) *Message {
	cp := *m
	merged := make(map[string]string, len(m.attributes)+len(attributes))
	for k, v := range m.attributes {
		merged[k] = v
	}
	for k, v := range attributes {
		merged[k] = v
	}
	if len(merged) == 0 {
		merged = nil
	}
	cp.attributes = merged
	return &cp
}

// Ack settles the delivery. It is a no-op for messages that were never
// handed out or were already settled.
func (m *Message) Ack() {
	if m.ackID == "" || m.subscription == nil {
		return
	}
	m.subscription.ack(m.ackID)
}

// Nack returns the delivery to its subscription for redelivery.
func (m *Message) Nack() {
	if m.ackID == "" || m.subscription == nil {
		return
	}
	m.subscription.nack(m.ackID)
}

func (m *Message) String() string {
	return fmt.Sprintf("Message{id=%s subscription=%s bytes=%d attempt=%d}", m.id, m.Subscription(), len(m.data), m.deliveryAttempt)
}

// delivered returns the copy handed to a consumer.
func (m *Message) delivered(ackID string) *Message {
	cp := *m
	cp.ackID = ackID
	cp.deliveryAttempt = m.deliveryAttempt + 1
	return &cp
}

// queued returns the copy put back on the queue after a nack.
func (m *Message) queued() *Message {
	cp := *m
	cp.ackID = ""
	return &cp
}

func cloneMap(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	cloned := make(map[string]string, len(src))
	for k, v := range src {
		cloned[k] = v
	}
	return cloned
}
