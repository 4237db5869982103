package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speak-coach-go/internal/model"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	conv, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, conv)

	original := &model.Conversation{ID: "c1", Mode: model.ModeFreeTalk, StartedAt: time.Now()}
	require.NoError(t, store.Put(ctx, original))

	got, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.ModeFreeTalk, got.Mode)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.Remove(ctx, "c1"))
	got, err = store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// 重复移除不报错
	assert.NoError(t, store.Remove(ctx, "c1"))
}
