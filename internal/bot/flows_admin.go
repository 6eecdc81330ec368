package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"rewardbot/internal/repository"
	"rewardbot/internal/service"

	"github.com/shopspring/decimal"
)

// 管理侧流程

func (m *Machine) showManageLinks(ctx context.Context) Response {
	links, err := m.admin.Links(ctx)
	if err != nil {
		m.log.Errorf("链接读取失败: err=%v", err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}

	text := "🔗 Manage Links\n\nBelow are the current links. You can open them to check or delete them."
	var buttons [][]Button
	if len(links) == 0 {
		text = "No links have been added yet."
	}
	for _, link := range links {
		buttons = append(buttons, []Button{
			{Label: fmt.Sprintf("🔗 %s", link.Title), URL: link.URL},
			{Label: "❌ Delete", Token: deleteLinkToken(link.ID)},
		})
	}
	buttons = append(buttons, []Button{{Label: "➕ Add New Link", Token: tokenAddLink}})
	buttons = append(buttons, adminBackRow())
	return Response{Text: text, Buttons: buttons}
}

func (m *Machine) deleteLink(ctx context.Context, id int64) Response {
	if err := m.admin.DeleteLink(ctx, id); err != nil && !errors.Is(err, repository.ErrLinkNotFound) {
		m.log.Errorf("链接删除失败: id=%d err=%v", id, err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}
	// 删除后刷新管理视图，重复删除落在 NotFound 上也一并刷新
	return m.showManageLinks(ctx)
}

func (m *Machine) handleLinkTitleText(ctx context.Context, key int64, session *Session, text string) Response {
	title := strings.TrimSpace(text)
	if title == "" {
		return Response{Text: "Invalid title. Please try again.", Buttons: adminBackButtons()}
	}
	session.State = StateAwaitingLinkURL
	session.Scratch[scratchLinkTitle] = title
	if err := m.putSession(ctx, key, session); err != nil {
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}
	return Response{Text: "Now, send the URL for this link:", Buttons: [][]Button{{{Label: "⬅️ Back", Token: tokenManageLinks}}}}
}

func (m *Machine) handleLinkURLText(ctx context.Context, key int64, session *Session, text string) Response {
	title, ok := session.Scratch[scratchLinkTitle]
	if !ok {
		m.clearSession(ctx, key)
		return Response{Text: textIncompleteFlow, Buttons: adminBackButtons()}
	}

	m.clearSession(ctx, key)
	if _, err := m.admin.AddLink(ctx, title, strings.TrimSpace(text)); err != nil {
		if errors.Is(err, service.ErrInvalidURL) {
			return Response{
				Text:    "❌ Invalid URL. The URL must start with http:// or https://. Please try adding the link again.",
				Buttons: [][]Button{{{Label: "⬅️ Back to Manage Links", Token: tokenManageLinks}}},
			}
		}
		m.log.Errorf("链接添加失败: err=%v", err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}
	return Response{Text: "✅ Link added successfully!", Buttons: [][]Button{{{Label: "⬅️ Back to Manage Links", Token: tokenManageLinks}}}}
}

func (m *Machine) showManageVerifyCodes(ctx context.Context) Response {
	codes, err := m.admin.VerificationCodes(ctx)
	if err != nil {
		m.log.Errorf("验证码读取失败: err=%v", err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}

	text := "🔐 Manage Verification Codes\n\nHere are the current codes:"
	var buttons [][]Button
	if len(codes) == 0 {
		text += "\n\nNo codes have been added yet."
	}
	for _, code := range codes {
		buttons = append(buttons, []Button{
			{Label: code.Code, Token: tokenNoop},
			{Label: "🗑️ Delete", Token: deleteVCodeToken(code.Code)},
		})
	}
	buttons = append(buttons, []Button{{Label: "➕ Add New Code", Token: tokenAddVCode}})
	buttons = append(buttons, adminBackRow())
	return Response{Text: text, Buttons: buttons}
}

func (m *Machine) deleteVerifyCode(ctx context.Context, code string) Response {
	if err := m.admin.DeleteVerificationCode(ctx, code); err != nil {
		m.log.Errorf("验证码删除失败: code=%s err=%v", code, err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}
	return m.showManageVerifyCodes(ctx)
}

func (m *Machine) handleVerifyCodeAddText(ctx context.Context, key int64, text string) Response {
	backRow := [][]Button{{{Label: "⬅️ Back to Manage Codes", Token: tokenManageVCodes}}}
	code := strings.TrimSpace(text)
	if code == "" {
		// 校验失败不清会话，留在本步重试
		return Response{Text: "Invalid code. Please try again.", Buttons: backRow}
	}
	m.clearSession(ctx, key)
	if err := m.admin.AddVerificationCode(ctx, code); err != nil {
		if errors.Is(err, service.ErrCodeExists) {
			return Response{Text: "This code already exists.", Buttons: backRow}
		}
		m.log.Errorf("验证码添加失败: err=%v", err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}
	return Response{Text: "✅ Verify code added!", Buttons: backRow}
}

func (m *Machine) handleRedeemCodeAddText(ctx context.Context, key int64, session *Session, text string) Response {
	code := strings.TrimSpace(text)
	if code == "" {
		return Response{Text: "Invalid code. Please try again.", Buttons: adminBackButtons()}
	}
	session.State = StateAwaitingRedeemValueAdd
	session.Scratch[scratchRedeemCode] = code
	if err := m.putSession(ctx, key, session); err != nil {
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}
	return Response{Text: "Now, enter the reward amount (₹) for this code:", Buttons: adminBackButtons()}
}

func (m *Machine) handleRedeemValueAddText(ctx context.Context, key int64, session *Session, text string) Response {
	code, ok := session.Scratch[scratchRedeemCode]
	if !ok {
		m.clearSession(ctx, key)
		return Response{Text: textIncompleteFlow, Buttons: adminBackButtons()}
	}

	value, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return Response{Text: "Invalid amount. Please enter a number.", Buttons: adminBackButtons()}
	}

	m.clearSession(ctx, key)
	if err := m.admin.AddRedeemCode(ctx, code, value); err != nil {
		switch {
		case errors.Is(err, service.ErrCodeExists):
			return Response{Text: "This redeem code already exists.", Buttons: adminBackButtons()}
		case errors.Is(err, service.ErrInvalidAmount):
			return Response{Text: "Invalid amount. Please enter a number.", Buttons: adminBackButtons()}
		}
		m.log.Errorf("兑换码添加失败: err=%v", err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}
	return Response{Text: fmt.Sprintf("✅ Redeem code '%s' for ₹%s added!", code, value.String()), Buttons: adminBackButtons()}
}

func (m *Machine) showUsers(ctx context.Context, page int) Response {
	users, total, err := m.admin.Users(ctx, page, m.usersPageSize)
	if err != nil {
		m.log.Errorf("用户目录读取失败: err=%v", err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👥 Total Users: %d\n\n", total)
	if len(users) == 0 {
		b.WriteString("No users to display on this page.")
	}
	for _, user := range users {
		fmt.Fprintf(&b, "👤 Name: %s (@%s)\n🆔 ID: %d\n\n", user.FirstName, user.Username, user.ID)
	}

	var buttons [][]Button
	var navRow []Button
	if page > 0 {
		navRow = append(navRow, Button{Label: "◀️ Previous", Token: viewUsersToken(page - 1)})
	}
	if int64((page+1)*m.usersPageSize) < total {
		navRow = append(navRow, Button{Label: "Next ▶️", Token: viewUsersToken(page + 1)})
	}
	if len(navRow) > 0 {
		buttons = append(buttons, navRow)
	}
	buttons = append(buttons, adminBackRow())
	return Response{Text: b.String(), Buttons: buttons}
}

func (m *Machine) handleMinWithdrawText(ctx context.Context, key int64, text string) Response {
	amount, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return Response{Text: "Invalid amount. Please enter a number.", Buttons: adminBackButtons()}
	}
	m.clearSession(ctx, key)
	if err := m.admin.SetMinWithdraw(ctx, amount); err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			return Response{Text: "Invalid amount. Please enter a number.", Buttons: adminBackButtons()}
		}
		m.log.Errorf("最低提现额设置失败: err=%v", err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}
	return Response{Text: fmt.Sprintf("Minimum withdrawal amount set to ₹%s.", amount.String()), Buttons: adminBackButtons()}
}

func (m *Machine) handleBalanceUserText(ctx context.Context, key int64, text string) Response {
	userID, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return Response{Text: "Invalid User ID.", Buttons: adminBackButtons()}
	}

	user, err := m.wallet.GetUser(ctx, userID)
	if err != nil {
		m.clearSession(ctx, key)
		if errors.Is(err, repository.ErrUserNotFound) {
			return Response{Text: "User not found.", Buttons: adminBackButtons()}
		}
		m.log.Errorf("用户读取失败: user=%d err=%v", userID, err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}

	m.clearSession(ctx, key)
	return Response{
		Text: fmt.Sprintf("Editing balance for User ID: %d\nCurrent Balance: ₹%s\nChoose an action:", userID, user.Balance.StringFixed(2)),
		Buttons: [][]Button{
			{{Label: "➕ Add", Token: balanceOpToken(userID, BalanceOpAdd)}, {Label: "➖ Cut", Token: balanceOpToken(userID, BalanceOpCut)}},
			adminBackRow(),
		},
	}
}

func (m *Machine) startBalanceAmount(ctx context.Context, key, userID int64, op string) Response {
	session := NewSession(StateAwaitingBalanceAmount)
	session.Scratch[scratchBalanceUser] = strconv.FormatInt(userID, 10)
	session.Scratch[scratchBalanceOp] = op
	return m.prompt(ctx, key, session,
		fmt.Sprintf("Enter the amount to %s for user %d:", op, userID), adminBackButtons())
}

func (m *Machine) handleBalanceAmountText(ctx context.Context, key int64, session *Session, text string) Response {
	rawUser, okUser := session.Scratch[scratchBalanceUser]
	op, okOp := session.Scratch[scratchBalanceOp]
	if !okUser || !okOp {
		m.clearSession(ctx, key)
		return Response{Text: textIncompleteFlow, Buttons: adminBackButtons()}
	}
	userID, err := strconv.ParseInt(rawUser, 10, 64)
	if err != nil {
		m.clearSession(ctx, key)
		return Response{Text: textIncompleteFlow, Buttons: adminBackButtons()}
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return Response{Text: "Invalid amount.", Buttons: adminBackButtons()}
	}

	delta := amount
	if op == BalanceOpCut {
		delta = amount.Neg()
	}

	m.clearSession(ctx, key)
	if err := m.wallet.AdjustBalance(ctx, userID, delta); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Response{Text: "User not found.", Buttons: adminBackButtons()}
		}
		m.log.Errorf("调账失败: user=%d err=%v", userID, err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}

	user, err := m.wallet.GetUser(ctx, userID)
	if err != nil {
		m.log.Errorf("用户读取失败: user=%d err=%v", userID, err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}
	return Response{
		Text:    fmt.Sprintf("Balance for user %d updated. New balance: ₹%s", userID, user.Balance.StringFixed(2)),
		Buttons: adminBackButtons(),
	}
}

func (m *Machine) handleBroadcastUserText(ctx context.Context, key int64, session *Session, text string) Response {
	userID, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return Response{Text: "Invalid User ID.", Buttons: adminBackButtons()}
	}

	if _, err := m.wallet.GetUser(ctx, userID); err != nil {
		m.clearSession(ctx, key)
		if errors.Is(err, repository.ErrUserNotFound) {
			return Response{Text: "User ID not found.", Buttons: adminBackButtons()}
		}
		m.log.Errorf("用户读取失败: user=%d err=%v", userID, err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}

	session.State = StateAwaitingBroadcastText
	session.Scratch[scratchBroadcastUser] = strconv.FormatInt(userID, 10)
	if err := m.putSession(ctx, key, session); err != nil {
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}
	return Response{Text: "Now enter the message content:", Buttons: adminBackButtons()}
}

func (m *Machine) handleBroadcastText(ctx context.Context, key int64, session *Session, text string) Response {
	mode := session.Scratch[scratchBroadcastMode]
	m.clearSession(ctx, key)

	switch mode {
	case broadcastAll:
		count, err := m.admin.Broadcast(ctx, text)
		if err != nil {
			m.log.Errorf("群发失败: err=%v", err)
			return Response{Text: textGenericError, Buttons: adminBackButtons()}
		}
		return Response{Text: fmt.Sprintf("Message sent to %d users.", count), Buttons: adminBackButtons()}

	case broadcastOne:
		rawUser, ok := session.Scratch[scratchBroadcastUser]
		if !ok {
			return Response{Text: textIncompleteFlow, Buttons: adminBackButtons()}
		}
		userID, err := strconv.ParseInt(rawUser, 10, 64)
		if err != nil {
			return Response{Text: textIncompleteFlow, Buttons: adminBackButtons()}
		}
		if err := m.admin.SendDirect(ctx, userID, text); err != nil {
			m.log.Warnf("单发失败: user=%d err=%v", userID, err)
			return Response{Text: "Failed to send message.", Buttons: adminBackButtons()}
		}
		return Response{Text: fmt.Sprintf("Message sent to %d.", userID), Buttons: adminBackButtons()}
	}

	return Response{Text: textIncompleteFlow, Buttons: adminBackButtons()}
}

func (m *Machine) handleBanUserText(ctx context.Context, key int64, text string) Response {
	userID, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return Response{Text: "Invalid User ID.", Buttons: adminBackButtons()}
	}
	m.clearSession(ctx, key)

	if _, err := m.wallet.GetUser(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Response{Text: "User ID not found.", Buttons: adminBackButtons()}
		}
		m.log.Errorf("用户读取失败: user=%d err=%v", userID, err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}

	banned, err := m.admin.IsBanned(ctx, userID)
	if err != nil {
		m.log.Errorf("封禁检查失败: user=%d err=%v", userID, err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}
	if banned {
		return Response{Text: "User is already banned.", Buttons: adminBackButtons()}
	}

	if err := m.admin.Ban(ctx, userID); err != nil {
		m.log.Errorf("封禁失败: user=%d err=%v", userID, err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}
	return Response{Text: fmt.Sprintf("User %d has been banned.", userID), Buttons: adminBackButtons()}
}

func (m *Machine) handleUnbanUserText(ctx context.Context, key int64, text string) Response {
	userID, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return Response{Text: "Invalid User ID.", Buttons: adminBackButtons()}
	}
	m.clearSession(ctx, key)

	banned, err := m.admin.IsBanned(ctx, userID)
	if err != nil {
		m.log.Errorf("封禁检查失败: user=%d err=%v", userID, err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}
	if !banned {
		return Response{Text: "User not found in the banned list.", Buttons: adminBackButtons()}
	}

	if err := m.admin.Unban(ctx, userID); err != nil {
		m.log.Errorf("解封失败: user=%d err=%v", userID, err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}
	return Response{Text: fmt.Sprintf("User %d has been unbanned.", userID), Buttons: adminBackButtons()}
}

func (m *Machine) showBannedUsers(ctx context.Context) Response {
	entries, err := m.admin.BannedUsers(ctx)
	if err != nil {
		m.log.Errorf("封禁列表读取失败: err=%v", err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}

	var b strings.Builder
	b.WriteString("Banned Users:\n\n")
	if len(entries) == 0 {
		b.WriteString("The banned user list is empty.")
	}
	for _, entry := range entries {
		name := "N/A"
		if user, err := m.wallet.GetUser(ctx, entry.UserID); err == nil {
			name = user.DisplayName()
		}
		fmt.Fprintf(&b, "ID: %d, Name: %s\n", entry.UserID, name)
	}
	return Response{Text: b.String(), Buttons: [][]Button{{{Label: "⬅️ Back", Token: tokenManageUsers}}}}
}

func (m *Machine) handleWithdrawSearchText(ctx context.Context, key int64, text string) Response {
	searchID, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return Response{Text: "Invalid ID. Please enter a number.", Buttons: adminBackButtons()}
	}
	m.clearSession(ctx, key)

	reqs, err := m.withdraw.SearchPending(ctx, searchID)
	if err != nil {
		m.log.Errorf("提现检索失败: id=%d err=%v", searchID, err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}
	if len(reqs) == 0 {
		return Response{Text: "No pending withdrawal found with that ID.", Buttons: adminBackButtons()}
	}

	var b strings.Builder
	b.WriteString("Found Pending Requests:\n\n")
	var buttons [][]Button
	for _, req := range reqs {
		fmt.Fprintf(&b, "User ID: %d\nWithdraw ID: %d\nAmount: ₹%s\nUPI: %s\n\n",
			req.UserID, req.ID, req.Amount.StringFixed(2), req.UpiID)
		buttons = append(buttons, []Button{
			{Label: fmt.Sprintf("✅ Complete %d", req.ID), Token: resolveWithdrawToken("complete", req.ID)},
			{Label: fmt.Sprintf("🔁 Return %d", req.ID), Token: resolveWithdrawToken("return", req.ID)},
		})
	}
	buttons = append(buttons, adminBackRow())
	return Response{Text: b.String(), Buttons: buttons}
}

func (m *Machine) resolveWithdraw(ctx context.Context, id int64, outcome string) Response {
	var serviceOutcome service.WithdrawOutcome
	switch outcome {
	case "complete":
		serviceOutcome = service.OutcomeComplete
	case "return":
		serviceOutcome = service.OutcomeReturn
	default:
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}

	req, err := m.withdraw.Resolve(ctx, id, serviceOutcome)
	if err != nil {
		if errors.Is(err, service.ErrWithdrawNotFound) {
			return Response{Text: "Request not found, it might have been processed already.", Buttons: adminBackButtons()}
		}
		m.log.Errorf("提现终结失败: id=%d err=%v", id, err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}

	if serviceOutcome == service.OutcomeComplete {
		return Response{Text: fmt.Sprintf("Withdrawal %d for user %d marked as complete.", req.ID, req.UserID), Buttons: adminBackButtons()}
	}
	return Response{Text: fmt.Sprintf("Withdrawal %d for user %d has been returned. Balance refunded.", req.ID, req.UserID), Buttons: adminBackButtons()}
}

func (m *Machine) showCompletedWithdrawals(ctx context.Context) Response {
	reqs, err := m.withdraw.Completed(ctx, 0)
	if err != nil {
		m.log.Errorf("已完成提现读取失败: err=%v", err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}

	var b strings.Builder
	b.WriteString("✅ Completed Withdrawals:\n\n")
	if len(reqs) == 0 {
		b.WriteString("None yet.")
	}
	for _, req := range reqs {
		fmt.Fprintf(&b, "ID: %d, Amount: ₹%s, UPI: %s\n", req.ID, req.Amount.StringFixed(2), req.UpiID)
	}
	return Response{Text: b.String(), Buttons: adminBackButtons()}
}

func (m *Machine) showVerifyUsage(ctx context.Context) Response {
	usages, err := m.admin.VerifyUsage(ctx)
	if err != nil {
		m.log.Errorf("验证码用量读取失败: err=%v", err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}

	var b strings.Builder
	b.WriteString("📊 Verification Code Usage:\n\n")
	if len(usages) == 0 {
		b.WriteString("No codes have been used yet.")
	}
	for _, usage := range usages {
		fmt.Fprintf(&b, "%s: %d times\n", usage.Code, usage.Count)
	}
	return Response{Text: b.String(), Buttons: adminBackButtons()}
}

func (m *Machine) handleContactInfoText(ctx context.Context, key int64, text string) Response {
	m.clearSession(ctx, key)
	if err := m.admin.SetContactInfo(ctx, text); err != nil {
		m.log.Errorf("联系信息更新失败: err=%v", err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}
	return Response{Text: "✅ Contact info updated.", Buttons: adminBackButtons()}
}

func (m *Machine) handleTutorialLinkText(ctx context.Context, key int64, text string) Response {
	m.clearSession(ctx, key)
	if err := m.admin.SetTutorialLink(ctx, text); err != nil {
		m.log.Errorf("教程链接更新失败: err=%v", err)
		return Response{Text: textGenericError, Buttons: adminBackButtons()}
	}
	return Response{Text: "✅ Tutorial link updated.", Buttons: adminBackButtons()}
}
