package service

import (
	"context"
	"testing"

	"rewardbot/internal/model"
	"rewardbot/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBanUnbanIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedUser(t, env, 1, "Alice")

	require.NoError(t, env.admin.Ban(ctx, 1))
	require.NoError(t, env.admin.Ban(ctx, 1))

	banned, err := env.admin.IsBanned(ctx, 1)
	require.NoError(t, err)
	assert.True(t, banned)

	entries, err := env.admin.BannedUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, env.admin.Unban(ctx, 1))
	require.NoError(t, env.admin.Unban(ctx, 1))

	banned, err = env.admin.IsBanned(ctx, 1)
	require.NoError(t, err)
	assert.False(t, banned)
}

func TestAddLinkValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.admin.AddLink(ctx, "Bad", "ftp://example.com")
	assert.ErrorIs(t, err, ErrInvalidURL)
	_, err = env.admin.AddLink(ctx, "Bad", "not a url")
	assert.ErrorIs(t, err, ErrInvalidURL)

	link, err := env.admin.AddLink(ctx, "Channel", "https://example.com/x")
	require.NoError(t, err)

	links, err := env.admin.Links(ctx)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "Channel", links[0].Title)

	require.NoError(t, env.admin.DeleteLink(ctx, link.ID))
	err = env.admin.DeleteLink(ctx, link.ID)
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
}

func TestAddRedeemCodeDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.admin.AddRedeemCode(ctx, "DUP", decimal.NewFromInt(10)))
	err := env.admin.AddRedeemCode(ctx, "DUP", decimal.NewFromInt(20))
	assert.ErrorIs(t, err, ErrCodeExists)

	err = env.admin.AddRedeemCode(ctx, "ZERO", decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestVerificationCodeManagement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.admin.AddVerificationCode(ctx, "alpha"))
	err := env.admin.AddVerificationCode(ctx, "alpha")
	assert.ErrorIs(t, err, ErrCodeExists)

	seedUser(t, env, 1, "Alice")
	seedUser(t, env, 2, "Bob")
	_, err = env.wallet.Verify(ctx, 1, "alpha")
	require.NoError(t, err)
	_, err = env.wallet.Verify(ctx, 2, "alpha")
	require.NoError(t, err)

	usages, err := env.admin.VerifyUsage(ctx)
	require.NoError(t, err)
	require.Len(t, usages, 1)
	assert.Equal(t, "alpha", usages[0].Code)
	assert.Equal(t, int64(2), usages[0].Count)

	require.NoError(t, env.admin.DeleteVerificationCode(ctx, "alpha"))
	codes, err := env.admin.VerificationCodes(ctx)
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestBroadcastCountsFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedUser(t, env, 1, "A")
	seedUser(t, env, 2, "B")
	seedUser(t, env, 3, "C")
	env.notifier.failFor[2] = true

	count, err := env.admin.Broadcast(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, env.notifier.sentTo(1), 1)
	assert.Empty(t, env.notifier.sentTo(2))
}

func TestSendDirectRequiresKnownUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedUser(t, env, 1, "A")

	require.NoError(t, env.admin.SendDirect(ctx, 1, "hi"))
	assert.Len(t, env.notifier.sentTo(1), 1)

	err := env.admin.SendDirect(ctx, 99, "hi")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUsersPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := int64(1); i <= 7; i++ {
		seedUser(t, env, i, "U")
	}

	page0, total, err := env.admin.Users(ctx, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.Len(t, page0, 5)

	page1, _, err := env.admin.Users(ctx, 1, 5)
	require.NoError(t, err)
	assert.Len(t, page1, 2)
}

func TestStatsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fundUser(t, env, 1, 300)
	seedUser(t, env, 2, "B")
	require.NoError(t, env.admin.Ban(ctx, 2))

	require.NoError(t, env.admin.AddRedeemCode(ctx, "A1", decimal.NewFromInt(10)))
	require.NoError(t, env.admin.AddRedeemCode(ctx, "A2", decimal.NewFromInt(10)))
	makeEligible(t, env, 1)
	_, err := env.wallet.Redeem(ctx, 1, "A1")
	require.NoError(t, err)

	_, err = env.withdraw.Submit(ctx, 1, decimal.NewFromInt(150), "a@upi")
	require.NoError(t, err)

	stats, err := env.admin.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.BannedUsers)
	assert.Equal(t, int64(1), stats.PendingWithdraws)
	assert.True(t, stats.PendingAmount.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, int64(1), stats.UnclaimedCodes)
	assert.Equal(t, int64(1), stats.ClaimedCodes)
}

func TestSettingFallsBackToDefault(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	info, err := env.admin.Setting(ctx, model.SettingContactInfo)
	require.NoError(t, err)
	assert.Equal(t, "Contact info not set.", info)

	require.NoError(t, env.admin.SetContactInfo(ctx, "@support"))
	info, err = env.admin.Setting(ctx, model.SettingContactInfo)
	require.NoError(t, err)
	assert.Equal(t, "@support", info)
}
