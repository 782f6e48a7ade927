package pubsub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessage_WithAttributes(t *testing.T) {
	now := time.Now()
	sub := &Subscription{name: "projects/p/subscriptions/s"}
	orig := newMessage("7", sub, []byte("payload"), map[string]string{"a": "1"}, now)

	tagged := orig.WithAttributes(map[string]string{"b": "2", "a": "override"})
	assert.Equal(t, map[string]string{"a": "override", "b": "2"}, tagged.Attributes())
	assert.Equal(t, map[string]string{"a": "1"}, orig.Attributes())
	assert.Equal(t, "7", tagged.ID())
	assert.Equal(t, sub.name, tagged.Subscription())
	assert.Equal(t, now, tagged.PublishTime())

	bare := newMessage("8", sub, nil, nil, now)
	assert.Nil(t, bare.WithAttributes(nil).Attributes())
	assert.Equal(t, map[string]string{"x": "y"}, bare.WithAttributes(map[string]string{"x": "y"}).Attributes())
}

func TestMessage_DeliveryCopies(t *testing.T) {
	m := newMessage("1", nil, []byte("x"), nil, time.Now())
	assert.Empty(t, m.Subscription())

	d := m.delivered("ack-1")
	assert.Equal(t, "ack-1", d.AckID())
	assert.Equal(t, 1, d.DeliveryAttempt())
	assert.Empty(t, m.AckID())
	assert.Zero(t, m.DeliveryAttempt())

	q := d.queued()
	assert.Empty(t, q.AckID())
	assert.Equal(t, 1, q.DeliveryAttempt())
	assert.Equal(t, 2, q.delivered("ack-2").DeliveryAttempt())

	// Settling without an owning subscription is a no-op.
	d.Ack()
	d.Nack()
	assert.Contains(t, d.String(), "id=1")
}
