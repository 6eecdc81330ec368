package service

import (
	"context"
	"sync"
	"testing"

	"rewardbot/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fundUser(t *testing.T, env *testEnv, userID int64, amount int64) {
	t.Helper()
	seedUser(t, env, userID, "User")
	require.NoError(t, env.wallet.AdjustBalance(context.Background(), userID, decimal.NewFromInt(amount)))
}

func TestSubmitWithdrawalScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fundUser(t, env, 1, 150)

	// 默认最低提现额 100
	req, err := env.withdraw.Submit(ctx, 1, decimal.NewFromInt(120), "alice@upi")
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawStatusPending, req.Status)

	user, err := env.wallet.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(30)))

	// 低于限额先于余额校验
	_, err = env.withdraw.Submit(ctx, 1, decimal.NewFromInt(50), "alice@upi")
	assert.ErrorIs(t, err, ErrBelowMinimum)

	_, err = env.withdraw.Submit(ctx, 1, decimal.NewFromInt(120), "alice@upi")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// 失败的提交不会留下单据
	pending, err := env.withdraw.PendingForUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestConcurrentSubmitNoDoubleSpend(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fundUser(t, env, 1, 150)

	const workers = 4
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.withdraw.Submit(ctx, 1, decimal.NewFromInt(100), "alice@upi")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientBalance)
		}
	}
	assert.Equal(t, 1, successes)

	user, err := env.wallet.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(50)))
}

func TestResolveComplete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fundUser(t, env, 1, 200)

	req, err := env.withdraw.Submit(ctx, 1, decimal.NewFromInt(120), "alice@upi")
	require.NoError(t, err)

	resolved, err := env.withdraw.Resolve(ctx, req.ID, OutcomeComplete)
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawStatusCompleted, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	user, err := env.wallet.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(80)))
	assert.True(t, user.Withdrawn.Equal(decimal.NewFromInt(120)))

	messages := env.notifier.sentTo(1)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "completed")

	// 重复终结观察到 NotFound
	_, err = env.withdraw.Resolve(ctx, req.ID, OutcomeReturn)
	assert.ErrorIs(t, err, ErrWithdrawNotFound)
}

func TestResolveReturnRefundsBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fundUser(t, env, 1, 200)

	req, err := env.withdraw.Submit(ctx, 1, decimal.NewFromInt(140), "alice@upi")
	require.NoError(t, err)

	resolved, err := env.withdraw.Resolve(ctx, req.ID, OutcomeReturn)
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawStatusReturned, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	user, err := env.wallet.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(200)))
	assert.True(t, user.Withdrawn.IsZero())

	messages := env.notifier.sentTo(1)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "returned")
}

func TestResolveUnknownID(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.withdraw.Resolve(context.Background(), 424242, OutcomeComplete)
	assert.ErrorIs(t, err, ErrWithdrawNotFound)
}

func TestResolveCommitsWhenNotifierFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fundUser(t, env, 1, 200)
	env.notifier.failFor[1] = true

	req, err := env.withdraw.Submit(ctx, 1, decimal.NewFromInt(100), "alice@upi")
	require.NoError(t, err)

	// 通知失败不影响账本变更
	resolved, err := env.withdraw.Resolve(ctx, req.ID, OutcomeComplete)
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawStatusCompleted, resolved.Status)

	user, err := env.wallet.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.Withdrawn.Equal(decimal.NewFromInt(100)))
}

func TestMinWithdrawSetting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	assert.True(t, env.withdraw.MinWithdraw(ctx).Equal(decimal.NewFromInt(100)))

	require.NoError(t, env.admin.SetMinWithdraw(ctx, decimal.NewFromInt(250)))
	assert.True(t, env.withdraw.MinWithdraw(ctx).Equal(decimal.NewFromInt(250)))

	// 配置损坏回退默认值
	require.NoError(t, env.settings.Set(ctx, model.SettingMinWithdraw, "garbage"))
	assert.True(t, env.withdraw.MinWithdraw(ctx).Equal(decimal.NewFromInt(100)))
}

func TestSearchPendingByRequestOrUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fundUser(t, env, 7, 500)

	req1, err := env.withdraw.Submit(ctx, 7, decimal.NewFromInt(100), "a@upi")
	require.NoError(t, err)
	req2, err := env.withdraw.Submit(ctx, 7, decimal.NewFromInt(150), "a@upi")
	require.NoError(t, err)

	byReq, err := env.withdraw.SearchPending(ctx, req1.ID)
	require.NoError(t, err)
	require.Len(t, byReq, 1)
	assert.Equal(t, req1.ID, byReq[0].ID)

	byUser, err := env.withdraw.SearchPending(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	// 已终结的单据不再出现在检索结果里
	_, err = env.withdraw.Resolve(ctx, req2.ID, OutcomeComplete)
	require.NoError(t, err)
	byUser, err = env.withdraw.SearchPending(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, byUser, 1)
}

func TestLedgerEventsRecorded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fundUser(t, env, 1, 200)

	req, err := env.withdraw.Submit(ctx, 1, decimal.NewFromInt(100), "a@upi")
	require.NoError(t, err)
	_, err = env.withdraw.Resolve(ctx, req.ID, OutcomeComplete)
	require.NoError(t, err)

	events, err := env.events.GetPending(ctx, 100)
	require.NoError(t, err)

	types := make(map[string]int)
	for _, event := range events {
		types[event.Type]++
	}
	assert.Equal(t, 1, types[model.EventTypeAdminAdjust])
	assert.Equal(t, 1, types[model.EventTypeWithdrawSubmit])
	assert.Equal(t, 1, types[model.EventTypeWithdrawComplete])
}
