package bot

import (
	"context"
	"fmt"
	"io"
	"testing"

	"rewardbot/internal/repository"
	"rewardbot/internal/service"
	"rewardbot/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminID = int64(999)

type recordingNotifier struct {
	sent map[int64][]string
}

func (n *recordingNotifier) Notify(_ context.Context, userID int64, text string) error {
	n.sent[userID] = append(n.sent[userID], text)
	return nil
}

type machineEnv struct {
	machine  *Machine
	sessions *MemorySessionStore
	notifier *recordingNotifier
	wallet   *service.WalletService
	withdraw *service.WithdrawService
	admin    *service.AdminService
}

func newMachineEnv(t *testing.T) *machineEnv {
	t.Helper()

	db := testutil.OpenTestDB(t)
	log := logrus.New()
	log.SetOutput(io.Discard)

	userRepo := repository.NewUserRepository(db)
	codeRepo := repository.NewCodeRepository(db)
	withdrawRepo := repository.NewWithdrawRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	banRepo := repository.NewBanRepository(db)
	eventRepo := repository.NewEventRepository(db)

	notifier := &recordingNotifier{sent: make(map[int64][]string)}
	wallet := service.NewWalletService(db, log, userRepo, codeRepo, eventRepo)
	withdraw := service.NewWithdrawService(db, log, nil, userRepo, withdrawRepo, settingRepo, eventRepo, notifier)
	admin := service.NewAdminService(log, userRepo, codeRepo, withdrawRepo, linkRepo, settingRepo, banRepo, notifier)

	sessions := NewMemorySessionStore()
	machine := NewMachine(log, testAdminID, 50, sessions, wallet, withdraw, admin)
	return &machineEnv{
		machine:  machine,
		sessions: sessions,
		notifier: notifier,
		wallet:   wallet,
		withdraw: withdraw,
		admin:    admin,
	}
}

func selection(key int64, token string) Event {
	return Event{SessionKey: key, Kind: EventSelection, Payload: token, FirstName: "Tester"}
}

func text(key int64, payload string) Event {
	return Event{SessionKey: key, Kind: EventText, Payload: payload, FirstName: "Tester"}
}

func TestWithdrawFlowEndToEnd(t *testing.T) {
	env := newMachineEnv(t)
	ctx := context.Background()

	require.NoError(t, env.wallet.EnsureUser(ctx, 1, "", "Tester"))
	require.NoError(t, env.wallet.AdjustBalance(ctx, 1, decimal.NewFromInt(500)))

	resp := env.machine.HandleEvent(ctx, selection(1, tokenWithdraw))
	assert.Contains(t, resp.Text, "enter the amount")

	resp = env.machine.HandleEvent(ctx, text(1, "150"))
	assert.Contains(t, resp.Text, "UPI ID")

	resp = env.machine.HandleEvent(ctx, text(1, "alice@upi"))
	assert.Contains(t, resp.Text, "confirm")

	resp = env.machine.HandleEvent(ctx, selection(1, tokenConfirmWithdraw))
	assert.Contains(t, resp.Text, "submitted successfully")

	user, err := env.wallet.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(350)))

	pending, err := env.withdraw.PendingForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "alice@upi", pending[0].UpiID)

	// 提交后会话已清空
	session, err := env.sessions.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestWithdrawCancelClearsFlow(t *testing.T) {
	env := newMachineEnv(t)
	ctx := context.Background()

	require.NoError(t, env.wallet.EnsureUser(ctx, 1, "", "Tester"))
	require.NoError(t, env.wallet.AdjustBalance(ctx, 1, decimal.NewFromInt(500)))

	env.machine.HandleEvent(ctx, selection(1, tokenWithdraw))
	env.machine.HandleEvent(ctx, text(1, "150"))
	env.machine.HandleEvent(ctx, text(1, "alice@upi"))

	resp := env.machine.HandleEvent(ctx, selection(1, tokenCancelWithdraw))
	assert.Equal(t, "Withdrawal cancelled.", resp.Text)

	pending, err := env.withdraw.PendingForUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// 取消后游离文本回到主面板
	resp = env.machine.HandleEvent(ctx, text(1, "150"))
	assert.Equal(t, textUserHome, resp.Text)
}

func TestConfirmWithoutScratchIsIncompleteFlow(t *testing.T) {
	env := newMachineEnv(t)
	ctx := context.Background()

	// 暂存丢失（例如会话过期后重建）
	require.NoError(t, env.sessions.Put(ctx, 1, NewSession(StateAwaitingWithdrawConfirm)))

	resp := env.machine.HandleEvent(ctx, selection(1, tokenConfirmWithdraw))
	assert.Equal(t, textIncompleteFlow, resp.Text)

	pending, err := env.withdraw.PendingForUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestBannedUserIsRejectedAtEntry(t *testing.T) {
	env := newMachineEnv(t)
	ctx := context.Background()

	require.NoError(t, env.wallet.EnsureUser(ctx, 1, "", "Tester"))
	require.NoError(t, env.admin.Ban(ctx, 1))

	resp := env.machine.HandleEvent(ctx, text(1, "/start"))
	assert.Equal(t, textBanned, resp.Text)
	assert.Empty(t, resp.Buttons)

	session, err := env.sessions.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestMenuSelectionInterruptsFlow(t *testing.T) {
	env := newMachineEnv(t)
	ctx := context.Background()

	require.NoError(t, env.wallet.EnsureUser(ctx, 1, "", "Tester"))
	require.NoError(t, env.wallet.AdjustBalance(ctx, 1, decimal.NewFromInt(500)))

	env.machine.HandleEvent(ctx, selection(1, tokenWithdraw))
	env.machine.HandleEvent(ctx, text(1, "150"))

	// 面板选择打断进行中的流程，不留半成品
	resp := env.machine.HandleEvent(ctx, selection(1, tokenWallet))
	assert.Contains(t, resp.Text, "Your Wallet")

	resp = env.machine.HandleEvent(ctx, text(1, "alice@upi"))
	assert.Equal(t, textUserHome, resp.Text)

	pending, err := env.withdraw.PendingForUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestNonAdminGetsUserPanelForAdminTokens(t *testing.T) {
	env := newMachineEnv(t)
	ctx := context.Background()

	resp := env.machine.HandleEvent(ctx, selection(1, tokenManageLinks))
	assert.Equal(t, textUserHome, resp.Text)

	resp = env.machine.HandleEvent(ctx, selection(1, tokenAdminHome))
	assert.Equal(t, textUserHome, resp.Text)
}

func TestAdminStartShowsAdminPanel(t *testing.T) {
	env := newMachineEnv(t)
	ctx := context.Background()

	resp := env.machine.HandleEvent(ctx, text(testAdminID, "/start"))
	assert.Equal(t, textAdminHome, resp.Text)

	resp = env.machine.HandleEvent(ctx, selection(testAdminID, tokenUserHome))
	assert.Equal(t, textUserHome, resp.Text)
	// 管理员的用户面板带返回入口
	last := resp.Buttons[len(resp.Buttons)-1]
	assert.Equal(t, tokenAdminHome, last[0].Token)
}

func TestVerifyAndRedeemFlow(t *testing.T) {
	env := newMachineEnv(t)
	ctx := context.Background()

	require.NoError(t, env.admin.AddVerificationCode(ctx, "alpha"))
	require.NoError(t, env.admin.AddRedeemCode(ctx, "WELCOME10", decimal.NewFromInt(10)))

	resp := env.machine.HandleEvent(ctx, selection(1, tokenVerifyCode))
	assert.Contains(t, resp.Text, "verification code")

	// 无效码不清会话，可直接重试
	resp = env.machine.HandleEvent(ctx, text(1, "wrong"))
	assert.Contains(t, resp.Text, "Invalid code")
	resp = env.machine.HandleEvent(ctx, text(1, "alpha"))
	assert.Contains(t, resp.Text, "Verification successful")

	resp = env.machine.HandleEvent(ctx, selection(1, tokenClaimReward))
	assert.Contains(t, resp.Text, "redeem code")
	resp = env.machine.HandleEvent(ctx, text(1, "WELCOME10"))
	assert.Contains(t, resp.Text, "You've redeemed ₹10.00")

	user, err := env.wallet.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(10)))
}

func TestAdminBalanceEditFlow(t *testing.T) {
	env := newMachineEnv(t)
	ctx := context.Background()

	require.NoError(t, env.wallet.EnsureUser(ctx, 1, "", "Tester"))

	resp := env.machine.HandleEvent(ctx, selection(testAdminID, tokenEditBalance))
	assert.Contains(t, resp.Text, "User ID")

	resp = env.machine.HandleEvent(ctx, text(testAdminID, "1"))
	assert.Contains(t, resp.Text, "Editing balance")
	require.NotEmpty(t, resp.Buttons)
	addToken := resp.Buttons[0][0].Token

	resp = env.machine.HandleEvent(ctx, selection(testAdminID, addToken))
	assert.Contains(t, resp.Text, "Enter the amount")

	resp = env.machine.HandleEvent(ctx, text(testAdminID, "25"))
	assert.Contains(t, resp.Text, "New balance: ₹25.00")

	user, err := env.wallet.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(25)))
}

func TestAdminResolveWithdrawFromSearch(t *testing.T) {
	env := newMachineEnv(t)
	ctx := context.Background()

	require.NoError(t, env.wallet.EnsureUser(ctx, 1, "", "Tester"))
	require.NoError(t, env.wallet.AdjustBalance(ctx, 1, decimal.NewFromInt(500)))
	req, err := env.withdraw.Submit(ctx, 1, decimal.NewFromInt(200), "alice@upi")
	require.NoError(t, err)

	env.machine.HandleEvent(ctx, selection(testAdminID, tokenSearchWithdraw))
	resp := env.machine.HandleEvent(ctx, text(testAdminID, "1"))
	assert.Contains(t, resp.Text, "Found Pending Requests")
	require.NotEmpty(t, resp.Buttons)
	completeToken := resp.Buttons[0][0].Token

	resp = env.machine.HandleEvent(ctx, selection(testAdminID, completeToken))
	assert.Contains(t, resp.Text, fmt.Sprintf("Withdrawal %d for user 1 marked as complete", req.ID))

	// 重复处理同一笔
	resp = env.machine.HandleEvent(ctx, selection(testAdminID, completeToken))
	assert.Contains(t, resp.Text, "processed already")

	user, err := env.wallet.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.Withdrawn.Equal(decimal.NewFromInt(200)))

	// 用户收到了完成通知
	require.NotEmpty(t, env.notifier.sent[1])
}

func TestMinWithdrawInvalidInputRetries(t *testing.T) {
	env := newMachineEnv(t)
	ctx := context.Background()

	env.machine.HandleEvent(ctx, selection(testAdminID, tokenSetMinWithdraw))
	resp := env.machine.HandleEvent(ctx, text(testAdminID, "abc"))
	assert.Contains(t, resp.Text, "Invalid amount")

	// 校验失败不清会话，直接重试
	resp = env.machine.HandleEvent(ctx, text(testAdminID, "250"))
	assert.Contains(t, resp.Text, "set to ₹250")
}

func TestAddCodesRejectBlankInput(t *testing.T) {
	env := newMachineEnv(t)
	ctx := context.Background()

	// 兑换码：空白输入不建码，留在本步重试
	env.machine.HandleEvent(ctx, selection(testAdminID, tokenAddRedeemCode))
	resp := env.machine.HandleEvent(ctx, text(testAdminID, "   "))
	assert.Contains(t, resp.Text, "Invalid code")

	resp = env.machine.HandleEvent(ctx, text(testAdminID, "BONUS5"))
	assert.Contains(t, resp.Text, "reward amount")
	resp = env.machine.HandleEvent(ctx, text(testAdminID, "5"))
	assert.Contains(t, resp.Text, "Redeem code 'BONUS5'")

	// 验证码入口同样拒绝空白
	env.machine.HandleEvent(ctx, selection(testAdminID, tokenAddVCode))
	resp = env.machine.HandleEvent(ctx, text(testAdminID, "   "))
	assert.Contains(t, resp.Text, "Invalid code")
	resp = env.machine.HandleEvent(ctx, text(testAdminID, "alpha"))
	assert.Contains(t, resp.Text, "Verify code added")

	codes, err := env.admin.VerificationCodes(ctx)
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, "alpha", codes[0].Code)
}

func TestUnknownTokenFallsBackToHome(t *testing.T) {
	env := newMachineEnv(t)
	ctx := context.Background()

	resp := env.machine.HandleEvent(ctx, selection(1, "nonsense:token"))
	assert.Equal(t, textUserHome, resp.Text)
}

func TestBannedUserEntryCreatesNoRecord(t *testing.T) {
	env := newMachineEnv(t)
	ctx := context.Background()

	require.NoError(t, env.wallet.EnsureUser(ctx, 2, "", "Other"))
	require.NoError(t, env.admin.Ban(ctx, 2))

	resp := env.machine.HandleEvent(ctx, selection(2, tokenWithdraw))
	assert.Equal(t, textBanned, resp.Text)

	// 被拦截的事件不会推进任何流程
	session, err := env.sessions.Get(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, session)
}
