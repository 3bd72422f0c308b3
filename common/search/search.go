// Package search stores the denormalized projections served to search
// consumers. Documents are JSON, keyed by index name and entity id, and are
// never written in the same transaction as the primary store.
package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/qldp/registry/common/redis"
)

// Index names
const (
	IndexPeople    = "people"
	IndexPetitions = "petitions"
	IndexReplies   = "replies"
)

// Index is the search index gateway
type Index interface {
	// Get returns the stored document, ok is false when none exists
	Get(ctx context.Context, index string, id int64) (doc []byte, ok bool, err error)
	Save(ctx context.Context, index string, id int64, doc []byte) error
}

// RedisIndex keeps each projection as a JSON string under <prefix><index>:<id>
type RedisIndex struct {
	client *redis.Client
	prefix string
}

// NewRedisIndex creates a Redis-backed index
func NewRedisIndex(client *redis.Client, prefix string) *RedisIndex {
	return &RedisIndex{client: client, prefix: prefix}
}

// Key returns the Redis key holding a projection
func (i *RedisIndex) Key(index string, id int64) string {
	return i.prefix + index + ":" + strconv.FormatInt(id, 10)
}

// Get implements Index
func (i *RedisIndex) Get(ctx context.Context, index string, id int64) ([]byte, bool, error) {
	val, err := i.client.Get(ctx, i.Key(index, id))
	if errors.Is(err, redis.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s/%d: %w", index, id, err)
	}
	return []byte(val), true, nil
}

// Save implements Index. Projections do not expire.
func (i *RedisIndex) Save(ctx context.Context, index string, id int64, doc []byte) error {
	if err := i.client.Set(ctx, i.Key(index, id), string(doc), 0); err != nil {
		return fmt.Errorf("failed to save %s/%d: %w", index, id, err)
	}
	return nil
}

// MemoryIndex is an in-process Index
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryIndex creates an empty index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string][]byte)}
}

func memoryKey(index string, id int64) string {
	return index + ":" + strconv.FormatInt(id, 10)
}

// Get implements Index
func (i *MemoryIndex) Get(_ context.Context, index string, id int64) ([]byte, bool, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	doc, ok := i.docs[memoryKey(index, id)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), doc...), true, nil
}

// Save implements Index
func (i *MemoryIndex) Save(_ context.Context, index string, id int64, doc []byte) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.docs[memoryKey(index, id)] = append([]byte(nil), doc...)
	return nil
}

// Len returns the number of stored documents
func (i *MemoryIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.docs)
}
