package pubsub

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/infigaming-com/go-pubsubmock/pubsub"

type instruments struct {
	published metric.Int64Counter
	delivered metric.Int64Counter
	skipped   metric.Int64Counter
}

func newInstruments(mp metric.MeterProvider) instruments {
	meter := mp.Meter(instrumentationName)
	return instruments{
		published: counter(meter, "pubsubmock.messages.published", "Publish calls completed per topic."),
		delivered: counter(meter, "pubsubmock.messages.delivered", "Message copies enqueued per subscription."),
		skipped:   counter(meter, "pubsubmock.messages.skipped", "Bound subscriptions skipped because they no longer exist."),
	}
}

func counter(meter metric.Meter, name, description string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit("{message}"))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}

func (i instruments) recordPublished(ctx context.Context, topic string) {
	i.published.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (i instruments) recordDelivered(ctx context.Context, subscription string) {
	i.delivered.Add(ctx, 1, metric.WithAttributes(attribute.String("subscription", subscription)))
}

func (i instruments) recordSkipped(ctx context.Context, topic, subscription string) {
	i.skipped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("topic", topic),
		attribute.String("subscription", subscription),
	))
}
