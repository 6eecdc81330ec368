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

func seedUser(t *testing.T, env *testEnv, id int64, name string) {
	t.Helper()
	require.NoError(t, env.wallet.EnsureUser(context.Background(), id, "", name))
}

func makeEligible(t *testing.T, env *testEnv, userID int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := env.codes.GetVerificationCode(ctx, "alpha"); err != nil {
		require.NoError(t, env.codes.CreateVerificationCode(ctx, "alpha"))
	}
	_, err := env.wallet.Verify(ctx, userID, "alpha")
	require.NoError(t, err)
}

func TestRedeemRequiresVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedUser(t, env, 1, "Alice")

	require.NoError(t, env.codes.CreateRedeemCode(ctx, &model.RedeemCode{
		Code:   "WELCOME10",
		Reward: decimal.NewFromInt(10),
	}))

	_, err := env.wallet.Redeem(ctx, 1, "WELCOME10")
	assert.ErrorIs(t, err, ErrNotEligible)

	makeEligible(t, env, 1)

	reward, err := env.wallet.Redeem(ctx, 1, "WELCOME10")
	require.NoError(t, err)
	assert.True(t, reward.Equal(decimal.NewFromInt(10)))

	user, err := env.wallet.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(10)))
}

func TestRedeemAlreadyClaimedReportsClaimer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedUser(t, env, 1, "Alice")
	seedUser(t, env, 2, "Bob")
	makeEligible(t, env, 1)
	makeEligible(t, env, 2)

	require.NoError(t, env.codes.CreateRedeemCode(ctx, &model.RedeemCode{
		Code:   "ONCE",
		Reward: decimal.NewFromInt(5),
	}))

	_, err := env.wallet.Redeem(ctx, 1, "ONCE")
	require.NoError(t, err)

	_, err = env.wallet.Redeem(ctx, 2, "ONCE")
	var claimed *AlreadyClaimedError
	require.ErrorAs(t, err, &claimed)
	assert.Equal(t, "Alice", claimed.ClaimedBy)
}

func TestRedeemInvalidCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedUser(t, env, 1, "Alice")
	makeEligible(t, env, 1)

	_, err := env.wallet.Redeem(ctx, 1, "NOPE")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestConcurrentRedeemClaimsExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const workers = 8
	for i := int64(1); i <= workers; i++ {
		seedUser(t, env, i, "User")
		makeEligible(t, env, i)
	}
	require.NoError(t, env.codes.CreateRedeemCode(ctx, &model.RedeemCode{
		Code:   "RACE",
		Reward: decimal.NewFromInt(25),
	}))

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := int64(1); i <= workers; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := env.wallet.Redeem(ctx, userID, "RACE")
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else {
			var claimed *AlreadyClaimedError
			assert.ErrorAs(t, err, &claimed)
		}
	}
	assert.Equal(t, 1, successes)

	// 总入账恰好一份奖励
	total := decimal.Zero
	for i := int64(1); i <= workers; i++ {
		user, err := env.wallet.GetUser(ctx, i)
		require.NoError(t, err)
		total = total.Add(user.Balance)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(25)))
}

func TestVerifyReportsAlreadyDone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedUser(t, env, 1, "Alice")
	require.NoError(t, env.codes.CreateVerificationCode(ctx, "beta"))

	done, err := env.wallet.Verify(ctx, 1, "beta")
	require.NoError(t, err)
	assert.False(t, done)

	done, err = env.wallet.Verify(ctx, 1, "beta")
	require.NoError(t, err)
	assert.True(t, done)

	_, err = env.wallet.Verify(ctx, 1, "missing")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestVerifyDeletedCodeStillReportsAlreadyDone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedUser(t, env, 1, "Alice")
	require.NoError(t, env.codes.CreateVerificationCode(ctx, "gone"))

	done, err := env.wallet.Verify(ctx, 1, "gone")
	require.NoError(t, err)
	assert.False(t, done)

	// 码被下架后重复提交按已使用处理，而不是无效码
	require.NoError(t, env.codes.DeleteVerificationCode(ctx, "gone"))
	done, err = env.wallet.Verify(ctx, 1, "gone")
	require.NoError(t, err)
	assert.True(t, done)

	// 其他用户此时才提交，码已不存在
	seedUser(t, env, 2, "Bob")
	_, err = env.wallet.Verify(ctx, 2, "gone")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestAdjustBalanceHasNoFloor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedUser(t, env, 1, "Alice")

	require.NoError(t, env.wallet.AdjustBalance(ctx, 1, decimal.NewFromInt(50)))
	require.NoError(t, env.wallet.AdjustBalance(ctx, 1, decimal.NewFromInt(-80)))

	user, err := env.wallet.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(-30)))

	// 等额正负调整精确归位
	require.NoError(t, env.wallet.AdjustBalance(ctx, 1, decimal.RequireFromString("12.34")))
	require.NoError(t, env.wallet.AdjustBalance(ctx, 1, decimal.RequireFromString("-12.34")))
	user, err = env.wallet.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(-30)))
}

func TestLeaderboardOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedUser(t, env, 1, "Low")
	seedUser(t, env, 2, "TiedLater")
	seedUser(t, env, 3, "TiedEarlier")

	require.NoError(t, env.wallet.AdjustBalance(ctx, 1, decimal.NewFromInt(30)))
	require.NoError(t, env.wallet.AdjustBalance(ctx, 2, decimal.NewFromInt(50)))
	require.NoError(t, env.wallet.AdjustBalance(ctx, 3, decimal.NewFromInt(50)))

	users, err := env.wallet.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, users, 3)

	// 余额相同按 id 升序
	assert.Equal(t, int64(2), users[0].ID)
	assert.Equal(t, int64(3), users[1].ID)
	assert.Equal(t, int64(1), users[2].ID)
}

func TestEnsureUserRefreshesNames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.wallet.EnsureUser(ctx, 1, "alice", "Alice"))
	require.NoError(t, env.wallet.AdjustBalance(ctx, 1, decimal.NewFromInt(10)))
	require.NoError(t, env.wallet.EnsureUser(ctx, 1, "alice2", "Alicia"))

	user, err := env.wallet.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice2", user.Username)
	assert.Equal(t, "Alicia", user.FirstName)
	// 重复建档不动余额
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(10)))
}
