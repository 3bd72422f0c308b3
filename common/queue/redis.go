package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/qldp/registry/common/logger"
	"github.com/qldp/registry/common/redis"
)

const popTimeout = time.Second

// RedisQueue is a queue backed by one Redis list per topic. Messages survive
// consumer restarts but are still delivered at most once.
type RedisQueue struct {
	client *redis.Client
	prefix string
	log    *logger.Logger
}

type redisEnvelope struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

// NewRedisQueue creates a queue storing topic lists under prefix
func NewRedisQueue(client *redis.Client, prefix string, log *logger.Logger) *RedisQueue {
	return &RedisQueue{
		client: client,
		prefix: prefix,
		log:    log,
	}
}

func (q *RedisQueue) listKey(topic string) string {
	return q.prefix + topic
}

// Publish appends the message to the topic list
func (q *RedisQueue) Publish(ctx context.Context, topic string, key string, message []byte) error {
	data, err := json.Marshal(redisEnvelope{Key: key, Value: message})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return q.client.PushToList(ctx, q.listKey(topic), string(data))
}

// Subscribe starts a consumer goroutine popping from the topic list
func (q *RedisQueue) Subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	key := q.listKey(topic)
	q.log.Info("subscribing to topic", "topic", topic, "list", key)

	go func() {
		for {
			if ctx.Err() != nil {
				q.log.Info("subscription cancelled", "topic", topic)
				return
			}

			res, err := q.client.BlockingPopList(ctx, popTimeout, key)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				q.log.Warn("queue pop failed", "topic", topic, "error", err)
				time.Sleep(popTimeout)
				continue
			}
			// res is [list, value], nil on timeout
			if len(res) != 2 {
				continue
			}

			var env redisEnvelope
			if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
				q.log.Warn("dropping malformed message", "topic", topic, "error", err)
				continue
			}
			if err := handler(ctx, env.Key, env.Value); err != nil {
				q.log.Error("message handler error", "topic", topic, "key", env.Key, "error", err)
			}
		}
	}()

	return nil
}

// Close is a no-op, the redis client is owned by the caller
func (q *RedisQueue) Close() error {
	return nil
}
