package pubsub

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/infigaming-com/go-pubsubmock/naming"
)

// DefaultProjectID is used when NewClient is given an empty project id.
const DefaultProjectID = "{{projectId}}"

// Client is a project-scoped view over a Store. Clients sharing a store share
// all topics and subscriptions.
type Client struct {
	projectID string
	store     *Store
	opts      options
	metrics   instruments
	logger    *zap.Logger
}

func NewClient(projectID string, opts ...Option) *Client {
	if projectID == "" {
		projectID = DefaultProjectID
	}
	base := defaultOptions()
	for _, opt := range opts {
		opt(&base)
	}
	store := base.store
	if store == nil {
		store = defaultStore
	}
	return &Client{
		projectID: projectID,
		store:     store,
		opts:      base,
		metrics:   newInstruments(base.meter()),
		logger:    base.logger.With(zap.String("project", projectID)),
	}
}

func (c *Client) ProjectID() string { return c.projectID }

func (c *Client) Store() *Store { return c.store }

// GetTopics lists the project's topics in creation order.
func (c *Client) GetTopics(ctx context.Context) ([]*Topic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.store.topicsWithPrefix(naming.ProjectPrefix(c.projectID)), nil
}

// GetSubscriptions lists the project's subscriptions in creation order.
func (c *Client) GetSubscriptions(ctx context.Context) ([]*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.store.subscriptionsWithPrefix(naming.ProjectPrefix(c.projectID)), nil
}

// CreateTopic registers a new topic bound to this client's interceptor. It
// fails with an ALREADY_EXISTS error when the name is taken.
func (c *Client) CreateTopic(ctx context.Context, topicID string) (*Topic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := naming.Topic(c.projectID, topicID)
	topic := newTopic(c, name)
	if !c.store.addTopic(topic) {
		c.logger.Debug("topic already exists", zap.String("topic", name))
		return nil, errTopicAlreadyExists(name)
	}
	c.logger.Debug("topic created", zap.String("topic", name))
	return topic, nil
}

// Topic looks the topic up. A missing topic yields a handle whose Exists is
// false and whose operations fail with NOT_FOUND when called.
func (c *Client) Topic(topicID string) *Topic {
	if t, ok := c.store.topic(naming.Topic(c.projectID, topicID)); ok {
		return t
	}
	return missingTopic
}

// Subscription looks the subscription up across the whole store.
func (c *Client) Subscription(subscriptionID string) *Subscription {
	return lookupSubscription(c.store, c.projectID, subscriptionID)
}

func (c *Client) String() string {
	return fmt.Sprintf("pubsub Client project=%s", c.projectID)
}

func lookupSubscription(store *Store, projectID, subscriptionID string) *Subscription {
	if sub, ok := store.subscription(naming.Subscription(projectID, subscriptionID)); ok {
		return sub
	}
	return missingSubscription
}
