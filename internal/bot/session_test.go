package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionStore(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	// 未命中不报错
	session, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, session)

	put := NewSession(StateAwaitingWithdrawAmount)
	put.Scratch[scratchAmount] = "150"
	require.NoError(t, store.Put(ctx, 1, put))

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StateAwaitingWithdrawAmount, got.State)
	assert.Equal(t, "150", got.Scratch[scratchAmount])

	// 不同会话互不影响
	other, err := store.Get(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, store.Clear(ctx, 1))
	got, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	// 重复清理无副作用
	require.NoError(t, store.Clear(ctx, 1))
}
