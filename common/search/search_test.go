package search

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/qldp/registry/common/logger"
	"github.com/qldp/registry/common/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex(t *testing.T, idx Index) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := idx.Get(ctx, IndexPeople, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, idx.Save(ctx, IndexPeople, 1, []byte(`{"id":1}`)))
	doc, ok, err := idx.Get(ctx, IndexPeople, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"id":1}`, string(doc))

	// same id in another index is a different document
	_, ok, err = idx.Get(ctx, IndexPetitions, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, idx.Save(ctx, IndexPeople, 1, []byte(`{"id":1,"full_name":"A"}`)))
	doc, _, _ = idx.Get(ctx, IndexPeople, 1)
	assert.JSONEq(t, `{"id":1,"full_name":"A"}`, string(doc))
}

func TestMemoryIndex(t *testing.T) {
	idx := NewMemoryIndex()
	testIndex(t, idx)
	assert.Equal(t, 1, idx.Len())
}

func TestMemoryIndex_CopiesDocuments(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	doc := []byte(`{"id":1}`)
	require.NoError(t, idx.Save(ctx, IndexPeople, 1, doc))
	doc[2] = 'X'

	got, _, _ := idx.Get(ctx, IndexPeople, 1)
	assert.JSONEq(t, `{"id":1}`, string(got))
}

func TestRedisIndex(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	idx := NewRedisIndex(redis.NewClient(rdb, logger.Discard()), "test:search:")
	testIndex(t, idx)

	assert.Equal(t, "test:search:people:1", idx.Key(IndexPeople, 1))
	assert.True(t, mr.Exists("test:search:people:1"))
}

func TestRedisIndex_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()

	idx := NewRedisIndex(redis.NewClient(rdb, logger.Discard()), "test:search:")
	mr.Close()

	_, _, err := idx.Get(context.Background(), IndexPeople, 1)
	assert.Error(t, err)
	assert.Error(t, idx.Save(context.Background(), IndexPeople, 1, []byte(`{}`)))
}
