package google_test

import (
	"context"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/infigaming-com/go-pubsubmock/pubsub"
	"github.com/infigaming-com/go-pubsubmock/pubsub/driver/google"
	"github.com/infigaming-com/go-pubsubmock/pubsub/pubsubtest"
)

func newFakeServerClient(t *testing.T) (*pstest.Server, *gcppubsub.Client) {
	t.Helper()
	ctx := context.Background()
	server := pstest.NewServer()
	t.Cleanup(func() { server.Close() })

	conn, err := grpc.DialContext(ctx, server.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	client, err := gcppubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return server, client
}

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := google.New(ctx, google.Config{ProjectID: "p"})
	assert.Error(t, err)

	_, err = google.New(ctx, google.Config{TopicID: "t"})
	assert.Error(t, err)
}

func TestPublisher_PublishMessage(t *testing.T) {
	ctx := context.Background()
	server, gcpClient := newFakeServerClient(t)

	_, err := gcpClient.CreateTopic(ctx, "orders-topic")
	require.NoError(t, err)

	publisher, err := google.New(ctx, google.Config{
		Client:          gcpClient,
		TopicID:         "orders-topic",
		PublishSettings: &pubsub.PublishSettings{CountThreshold: 1},
	})
	require.NoError(t, err)
	defer publisher.Close()

	tests := []struct {
		name      string
		msg       pubsub.PublishMessage
		wantData  string
		wantAttrs map[string]string
	}{
		{"raw data", pubsub.PublishMessage{Data: []byte("raw")}, "raw", nil},
		{"json wins", pubsub.PublishMessage{Data: []byte("ignored"), JSON: map[string]string{"id": "42"}}, `{"id":"42"}`, nil},
		{"attributes", pubsub.PublishMessage{Data: []byte("a"), Attributes: map[string]string{"k": "v"}}, "a", map[string]string{"k": "v"}},
		{"typed nil json keeps data", pubsub.PublishMessage{Data: []byte("raw"), JSON: (*struct{})(nil)}, "raw", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := publisher.PublishMessage(ctx, tt.msg)
			require.NoError(t, err)
			require.NotEmpty(t, id)

			msg := server.Message(id)
			require.NotNil(t, msg)
			assert.Equal(t, tt.wantData, string(msg.Data))
			if tt.wantAttrs == nil {
				assert.Empty(t, msg.Attributes)
			} else {
				assert.Equal(t, tt.wantAttrs, msg.Attributes)
			}
		})
	}
}

func TestPublisher_MissingTopic(t *testing.T) {
	ctx := context.Background()
	_, gcpClient := newFakeServerClient(t)

	publisher, err := google.New(ctx, google.Config{Client: gcpClient, TopicID: "nope"})
	require.NoError(t, err)
	defer publisher.Close()

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err = publisher.PublishMessage(pctx, pubsub.PublishMessage{Data: []byte("x")})
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

// The emulator and the fake server agree on the status codes application
// code branches on.
func TestParityWithFakeServer_AlreadyExists(t *testing.T) {
	ctx := context.Background()
	_, gcpClient := newFakeServerClient(t)
	emulator := pubsubtest.NewProjectClient(t, "test-project")

	realTopic, err := gcpClient.CreateTopic(ctx, "dup")
	require.NoError(t, err)
	_, err = gcpClient.CreateTopic(ctx, "dup")
	realCode := status.Code(err)

	mockTopic, err := emulator.CreateTopic(ctx, "dup")
	require.NoError(t, err)
	_, err = emulator.CreateTopic(ctx, "dup")
	mockCode := status.Code(err)

	assert.Equal(t, codes.AlreadyExists, realCode)
	assert.Equal(t, realCode, mockCode)
	assert.Equal(t, realTopic.String(), mockTopic.Name())

	_, err = gcpClient.CreateSubscription(ctx, "dup-sub", gcppubsub.SubscriptionConfig{Topic: realTopic})
	require.NoError(t, err)
	_, err = gcpClient.CreateSubscription(ctx, "dup-sub", gcppubsub.SubscriptionConfig{Topic: realTopic})
	realCode = status.Code(err)

	_, err = mockTopic.CreateSubscription(ctx, "dup-sub", pubsub.SubscriptionConfig{})
	require.NoError(t, err)
	_, err = mockTopic.CreateSubscription(ctx, "dup-sub", pubsub.SubscriptionConfig{})
	assert.Equal(t, realCode, status.Code(err))
}

// Application code written against pubsub.Publisher runs on either backend.
func TestParityWithFakeServer_Publisher(t *testing.T) {
	ctx := context.Background()
	server, gcpClient := newFakeServerClient(t)
	_, err := gcpClient.CreateTopic(ctx, "events")
	require.NoError(t, err)

	gcp, err := google.New(ctx, google.Config{Client: gcpClient, TopicID: "events"})
	require.NoError(t, err)
	defer gcp.Close()

	emulator := pubsubtest.NewProjectClient(t, "test-project")
	topic, subs := pubsubtest.CreateTopicWithSubscriptions(t, emulator, "events", "events-sub")

	emit := func(p pubsub.Publisher) string {
		id, err := p.PublishMessage(ctx, pubsub.PublishMessage{JSON: map[string]int{"n": 1}, Attributes: map[string]string{"kind": "tick"}})
		require.NoError(t, err)
		return id
	}

	realID := emit(gcp)
	mockID := emit(topic)

	realMsg := server.Message(realID)
	require.NotNil(t, realMsg)
	mockMsgs := subs[0].Messages()
	require.Len(t, mockMsgs, 1)

	assert.Equal(t, string(realMsg.Data), string(mockMsgs[0].Data()))
	assert.Equal(t, realMsg.Attributes, mockMsgs[0].Attributes())
	assert.Equal(t, mockID, mockMsgs[0].ID())
}
