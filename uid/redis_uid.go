package uid

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

type redisSequence struct {
	client *redis.Client
	key    string
}

// NewRedisSequence returns a UID backed by a Redis INCR counter, so several
// processes publishing into their own emulators still draw ids from one
// strictly increasing sequence.
func NewRedisSequence(client *redis.Client, name string) UID {
	return &redisSequence{
		client: client,
		key:    getCounterKey(name),
	}
}

func (r *redisSequence) New(ctx context.Context) (string, error) {
	counter, err := r.client.Incr(ctx, r.key).Result()
	if err != nil {
		return "", fmt.Errorf("failed to get counter for message id: %w", err)
	}
	return strconv.FormatInt(counter, 10), nil
}

func getCounterKey(name string) string {
	var sb strings.Builder
	if len(name) > 0 {
		sb.Grow(len("counter:msgid:") + len(name))
		sb.WriteString("counter:msgid:")
		sb.WriteString(name)
	} else {
		sb.Grow(len("counter:msgid"))
		sb.WriteString("counter:msgid")
	}
	return sb.String()
}
