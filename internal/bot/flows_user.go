package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rewardbot/internal/model"
	"rewardbot/internal/service"

	"github.com/shopspring/decimal"
)

// 用户侧流程

func (m *Machine) showLinks(ctx context.Context) Response {
	links, err := m.admin.Links(ctx)
	if err != nil {
		m.log.Errorf("链接读取失败: err=%v", err)
		return Response{Text: textGenericError, Buttons: userBackButtons()}
	}
	if len(links) == 0 {
		return Response{Text: "No links available.", Buttons: userBackButtons()}
	}

	var buttons [][]Button
	for _, link := range links {
		buttons = append(buttons, []Button{{Label: link.Title, URL: link.URL}})
	}
	buttons = append(buttons, userBackRow())
	return Response{
		Text:    "Here are the available links. Please visit them to find a verification code:",
		Buttons: buttons,
	}
}

func (m *Machine) handleVerifyCodeText(ctx context.Context, key int64, code string) Response {
	alreadyDone, err := m.wallet.Verify(ctx, key, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, service.ErrCodeNotFound) {
			// 校验失败不清会话，允许直接重试
			return Response{Text: "❌ Invalid code. Please try again.", Buttons: userBackButtons()}
		}
		m.log.Errorf("验证失败: user=%d err=%v", key, err)
		m.clearSession(ctx, key)
		return Response{Text: textGenericError, Buttons: userBackButtons()}
	}
	m.clearSession(ctx, key)
	if alreadyDone {
		return Response{Text: "You have already used this verification code.", Buttons: userBackButtons()}
	}
	return Response{Text: "✅ Verification successful!", Buttons: userBackButtons()}
}

func (m *Machine) handleRedeemCodeText(ctx context.Context, key int64, code string) Response {
	reward, err := m.wallet.Redeem(ctx, key, strings.TrimSpace(code))
	if err != nil {
		m.clearSession(ctx, key)
		var claimed *service.AlreadyClaimedError
		switch {
		case errors.Is(err, service.ErrNotEligible):
			return Response{Text: "You must verify at least one code to claim a reward.", Buttons: userBackButtons()}
		case errors.As(err, &claimed):
			return Response{Text: fmt.Sprintf("This code has already been claimed by %s.", claimed.ClaimedBy), Buttons: userBackButtons()}
		case errors.Is(err, service.ErrCodeNotFound):
			return Response{Text: "Invalid or already claimed code.", Buttons: userBackButtons()}
		}
		m.log.Errorf("兑换失败: user=%d err=%v", key, err)
		return Response{Text: textGenericError, Buttons: userBackButtons()}
	}
	m.clearSession(ctx, key)
	return Response{Text: fmt.Sprintf("🎉 Congratulations! You've redeemed ₹%s.", reward.StringFixed(2)), Buttons: userBackButtons()}
}

func (m *Machine) showWallet(ctx context.Context, key int64) Response {
	user, err := m.wallet.GetUser(ctx, key)
	if err != nil {
		m.log.Errorf("钱包读取失败: user=%d err=%v", key, err)
		return Response{Text: textGenericError, Buttons: userBackButtons()}
	}
	text := fmt.Sprintf("💰 Your Wallet:\n\nBalance: ₹%s\nTotal Withdrawn: ₹%s",
		user.Balance.StringFixed(2), user.Withdrawn.StringFixed(2))
	return Response{Text: text, Buttons: userBackButtons()}
}

func (m *Machine) startWithdraw(ctx context.Context, key int64) Response {
	user, err := m.wallet.GetUser(ctx, key)
	if err != nil {
		m.log.Errorf("钱包读取失败: user=%d err=%v", key, err)
		return Response{Text: textGenericError, Buttons: userBackButtons()}
	}
	min := m.withdraw.MinWithdraw(ctx)
	text := fmt.Sprintf("Your current balance is ₹%s\nThe minimum withdrawal amount is ₹%s.\n\nPlease enter the amount you wish to withdraw:",
		user.Balance.StringFixed(2), min.String())
	return m.prompt(ctx, key, NewSession(StateAwaitingWithdrawAmount), text, userBackButtons())
}

func (m *Machine) handleWithdrawAmountText(ctx context.Context, key int64, session *Session, text string) Response {
	amount, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		// 不清会话，留在本步重试
		return Response{Text: "Invalid amount. Please enter a number.", Buttons: userBackButtons()}
	}

	min := m.withdraw.MinWithdraw(ctx)
	if amount.LessThan(min) {
		m.clearSession(ctx, key)
		return Response{Text: fmt.Sprintf("Minimum withdrawal amount is ₹%s. Please try again.", min.String()), Buttons: userBackButtons()}
	}

	user, err := m.wallet.GetUser(ctx, key)
	if err != nil {
		m.log.Errorf("钱包读取失败: user=%d err=%v", key, err)
		m.clearSession(ctx, key)
		return Response{Text: textGenericError, Buttons: userBackButtons()}
	}
	if user.Balance.LessThan(amount) {
		m.clearSession(ctx, key)
		return Response{Text: "Insufficient balance. Your balance is lower than the amount you requested.", Buttons: userBackButtons()}
	}

	session.State = StateAwaitingWithdrawUPI
	session.Scratch[scratchAmount] = amount.String()
	if err := m.putSession(ctx, key, session); err != nil {
		return Response{Text: textGenericError, Buttons: userBackButtons()}
	}
	return Response{Text: "Amount received. Now, please enter your UPI ID (e.g., `example@upi`):"}
}

func (m *Machine) handleWithdrawUPIText(ctx context.Context, key int64, session *Session, text string) Response {
	upi := strings.TrimSpace(text)
	if upi == "" {
		return Response{Text: "Invalid UPI ID. Please try again.", Buttons: userBackButtons()}
	}

	amount, ok := session.Scratch[scratchAmount]
	if !ok {
		m.clearSession(ctx, key)
		return Response{Text: textIncompleteFlow, Buttons: userBackButtons()}
	}

	session.State = StateAwaitingWithdrawConfirm
	session.Scratch[scratchUPI] = upi
	if err := m.putSession(ctx, key, session); err != nil {
		return Response{Text: textGenericError, Buttons: userBackButtons()}
	}

	confirm := fmt.Sprintf("Please confirm your withdrawal request:\n\nAmount: ₹%s\nUPI ID: %s\n\nIs this correct?", amount, upi)
	return Response{
		Text: confirm,
		Buttons: [][]Button{
			{{Label: "✅ Yes, Confirm", Token: tokenConfirmWithdraw}},
			{{Label: "❌ No, Cancel", Token: tokenCancelWithdraw}},
		},
	}
}

func (m *Machine) confirmWithdraw(ctx context.Context, key int64) Response {
	session, err := m.sessions.Get(ctx, key)
	if err != nil {
		m.log.Errorf("会话读取失败: key=%d err=%v", key, err)
		return Response{Text: textGenericError, Buttons: userBackButtons()}
	}

	// 会话丢失或字段缺失一律按流程中断处理
	if session == nil || session.State != StateAwaitingWithdrawConfirm {
		m.clearSession(ctx, key)
		return Response{Text: textIncompleteFlow, Buttons: userBackButtons()}
	}
	rawAmount, okAmount := session.Scratch[scratchAmount]
	upi, okUPI := session.Scratch[scratchUPI]
	if !okAmount || !okUPI {
		m.clearSession(ctx, key)
		return Response{Text: textIncompleteFlow, Buttons: userBackButtons()}
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		m.clearSession(ctx, key)
		return Response{Text: textIncompleteFlow, Buttons: userBackButtons()}
	}

	m.clearSession(ctx, key)
	req, err := m.withdraw.Submit(ctx, key, amount, upi)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBelowMinimum):
			return Response{Text: fmt.Sprintf("Minimum withdrawal amount is ₹%s. Please try again.", m.withdraw.MinWithdraw(ctx)), Buttons: userBackButtons()}
		case errors.Is(err, service.ErrInsufficientBalance):
			return Response{Text: "Insufficient balance. Your balance is lower than the amount you requested.", Buttons: userBackButtons()}
		}
		m.log.Errorf("提现提交失败: user=%d err=%v", key, err)
		return Response{Text: textGenericError, Buttons: userBackButtons()}
	}

	return Response{
		Text:    fmt.Sprintf("✅ Withdrawal request of ₹%s submitted successfully! Your Withdraw ID is %d.", req.Amount.StringFixed(2), req.ID),
		Buttons: userBackButtons(),
	}
}

func (m *Machine) showPendingWithdrawals(ctx context.Context, key int64) Response {
	reqs, err := m.withdraw.PendingForUser(ctx, key)
	if err != nil {
		m.log.Errorf("待处理提现读取失败: user=%d err=%v", key, err)
		return Response{Text: textGenericError, Buttons: userBackButtons()}
	}
	if len(reqs) == 0 {
		return Response{Text: "You have no pending withdrawals.", Buttons: userBackButtons()}
	}

	var b strings.Builder
	b.WriteString("Your pending withdrawals:\n\n")
	for _, req := range reqs {
		fmt.Fprintf(&b, "ID: %d, Amount: ₹%s, UPI: %s\n", req.ID, req.Amount.StringFixed(2), req.UpiID)
	}
	return Response{Text: b.String(), Buttons: userBackButtons()}
}

func (m *Machine) showContact(ctx context.Context) Response {
	info, err := m.admin.Setting(ctx, model.SettingContactInfo)
	if err != nil {
		m.log.Errorf("联系信息读取失败: err=%v", err)
		return Response{Text: textGenericError, Buttons: userBackButtons()}
	}
	return Response{Text: fmt.Sprintf("Contact Info:\n\n%s", info), Buttons: userBackButtons()}
}

func (m *Machine) showHowToUse(ctx context.Context) Response {
	link, err := m.admin.Setting(ctx, model.SettingTutorialLink)
	if err != nil {
		m.log.Errorf("教程链接读取失败: err=%v", err)
		return Response{Text: textGenericError, Buttons: userBackButtons()}
	}
	return Response{Text: fmt.Sprintf("How to use the bot:\n\n%s", link), Buttons: userBackButtons()}
}

func (m *Machine) showLeaderboard(ctx context.Context) Response {
	users, err := m.wallet.Leaderboard(ctx, 10)
	if err != nil {
		m.log.Errorf("排行榜读取失败: err=%v", err)
		return Response{Text: textGenericError, Buttons: userBackButtons()}
	}

	var b strings.Builder
	b.WriteString("🏆 Leaderboard (Top 10 Earners):\n\n")
	if len(users) == 0 {
		b.WriteString("No users to display yet.")
	}
	for i, user := range users {
		fmt.Fprintf(&b, "%d. %s - ₹%s\n", i+1, user.DisplayName(), user.Balance.StringFixed(2))
	}
	return Response{Text: b.String(), Buttons: userBackButtons()}
}
