package bot

import (
	"context"
	"strings"

	"rewardbot/internal/service"

	"github.com/sirupsen/logrus"
)

// Machine 对话状态机
// 入口按会话键处理事件，封禁拦截在最前，任何面板选择都可打断进行中的流程
type Machine struct {
	log           *logrus.Logger
	adminID       int64
	usersPageSize int
	sessions      SessionStore
	wallet        *service.WalletService
	withdraw      *service.WithdrawService
	admin         *service.AdminService
}

func NewMachine(
	log *logrus.Logger,
	adminID int64,
	usersPageSize int,
	sessions SessionStore,
	wallet *service.WalletService,
	withdraw *service.WithdrawService,
	admin *service.AdminService,
) *Machine {
	if usersPageSize <= 0 {
		usersPageSize = 50
	}
	return &Machine{
		log:           log,
		adminID:       adminID,
		usersPageSize: usersPageSize,
		sessions:      sessions,
		wallet:        wallet,
		withdraw:      withdraw,
		admin:         admin,
	}
}

var adminActions = map[ActionKind]bool{
	ActionAdminHome:          true,
	ActionManageLinks:        true,
	ActionAddLink:            true,
	ActionDeleteLink:         true,
	ActionManageVerifyCodes:  true,
	ActionAddVerifyCode:      true,
	ActionDeleteVerifyCode:   true,
	ActionAddRedeemCode:      true,
	ActionViewUsers:          true,
	ActionSetMinWithdraw:     true,
	ActionEditBalance:        true,
	ActionBalanceOp:          true,
	ActionSendMessage:        true,
	ActionSendToAll:          true,
	ActionSendToOne:          true,
	ActionManageUsers:        true,
	ActionBanUser:            true,
	ActionUnbanUser:          true,
	ActionViewBanned:         true,
	ActionSearchWithdraw:     true,
	ActionResolveWithdraw:    true,
	ActionCompletedWithdraws: true,
	ActionAddContactInfo:     true,
	ActionAddTutorial:        true,
	ActionVerifyUsage:        true,
}

// HandleEvent 处理一条入站事件并返回应答
// 封禁用户在此处被拦截，不建档也不建会话
func (m *Machine) HandleEvent(ctx context.Context, ev Event) Response {
	isAdmin := ev.SessionKey == m.adminID

	if !isAdmin {
		banned, err := m.admin.IsBanned(ctx, ev.SessionKey)
		if err != nil {
			m.log.Errorf("封禁检查失败: user=%d err=%v", ev.SessionKey, err)
			return Response{Text: textGenericError}
		}
		if banned {
			return Response{Text: textBanned}
		}
	}

	if err := m.wallet.EnsureUser(ctx, ev.SessionKey, ev.Username, ev.FirstName); err != nil {
		m.log.Errorf("用户建档失败: user=%d err=%v", ev.SessionKey, err)
	}

	switch ev.Kind {
	case EventSelection:
		return m.handleSelection(ctx, ev, isAdmin)
	case EventText:
		return m.handleText(ctx, ev, isAdmin)
	default:
		return m.home(ctx, ev.SessionKey, isAdmin)
	}
}

// home 清会话并回到调用方的主面板
func (m *Machine) home(ctx context.Context, key int64, isAdmin bool) Response {
	m.clearSession(ctx, key)
	if isAdmin {
		return adminHomeResponse()
	}
	return userHomeResponse(false)
}

func (m *Machine) clearSession(ctx context.Context, key int64) {
	if err := m.sessions.Clear(ctx, key); err != nil {
		m.log.Warnf("会话清理失败: key=%d err=%v", key, err)
	}
}

func (m *Machine) putSession(ctx context.Context, key int64, session *Session) error {
	if err := m.sessions.Put(ctx, key, session); err != nil {
		m.log.Errorf("会话写入失败: key=%d err=%v", key, err)
		return err
	}
	return nil
}

// prompt 设置新会话状态并下发提示语，覆盖任何进行中的流程
func (m *Machine) prompt(ctx context.Context, key int64, session *Session, text string, buttons [][]Button) Response {
	if err := m.putSession(ctx, key, session); err != nil {
		return Response{Text: textGenericError}
	}
	return Response{Text: text, Buttons: buttons}
}

func (m *Machine) handleSelection(ctx context.Context, ev Event, isAdmin bool) Response {
	action, err := ParseAction(ev.Payload)
	if err != nil {
		return m.home(ctx, ev.SessionKey, isAdmin)
	}

	// 非管理员发送管理令牌，回到用户面板
	if adminActions[action.Kind] && !isAdmin {
		m.clearSession(ctx, ev.SessionKey)
		return userHomeResponse(false)
	}

	switch action.Kind {
	case ActionNoop:
		return Response{}

	case ActionUserHome:
		m.clearSession(ctx, ev.SessionKey)
		return userHomeResponse(isAdmin)
	case ActionAdminHome:
		m.clearSession(ctx, ev.SessionKey)
		return adminHomeResponse()

	// 用户面板
	case ActionGetCode:
		m.clearSession(ctx, ev.SessionKey)
		return m.showLinks(ctx)
	case ActionVerifyCode:
		return m.prompt(ctx, ev.SessionKey, NewSession(StateAwaitingVerifyCode),
			"Please enter the verification code:", userBackButtons())
	case ActionClaimReward:
		return m.prompt(ctx, ev.SessionKey, NewSession(StateAwaitingRedeemCode),
			"Please enter your redeem code:", userBackButtons())
	case ActionWallet:
		m.clearSession(ctx, ev.SessionKey)
		return m.showWallet(ctx, ev.SessionKey)
	case ActionWithdraw:
		return m.startWithdraw(ctx, ev.SessionKey)
	case ActionPendingWithdraw:
		m.clearSession(ctx, ev.SessionKey)
		return m.showPendingWithdrawals(ctx, ev.SessionKey)
	case ActionContact:
		m.clearSession(ctx, ev.SessionKey)
		return m.showContact(ctx)
	case ActionHowToUse:
		m.clearSession(ctx, ev.SessionKey)
		return m.showHowToUse(ctx)
	case ActionLeaderboard:
		m.clearSession(ctx, ev.SessionKey)
		return m.showLeaderboard(ctx)

	// 提现确认
	case ActionConfirmWithdraw:
		return m.confirmWithdraw(ctx, ev.SessionKey)
	case ActionCancelWithdraw:
		m.clearSession(ctx, ev.SessionKey)
		return Response{Text: "Withdrawal cancelled.", Buttons: userBackButtons()}

	// 管理面板
	case ActionManageLinks:
		m.clearSession(ctx, ev.SessionKey)
		return m.showManageLinks(ctx)
	case ActionAddLink:
		return m.prompt(ctx, ev.SessionKey, NewSession(StateAwaitingLinkTitle),
			"Enter the title for the new link:", [][]Button{{{Label: "⬅️ Back", Token: tokenManageLinks}}})
	case ActionDeleteLink:
		return m.deleteLink(ctx, action.ID)
	case ActionManageVerifyCodes:
		m.clearSession(ctx, ev.SessionKey)
		return m.showManageVerifyCodes(ctx)
	case ActionAddVerifyCode:
		return m.prompt(ctx, ev.SessionKey, NewSession(StateAwaitingVerifyCodeAdd),
			"Enter the new verification code:", [][]Button{{{Label: "⬅️ Back", Token: tokenManageVCodes}}})
	case ActionDeleteVerifyCode:
		return m.deleteVerifyCode(ctx, action.Code)
	case ActionAddRedeemCode:
		return m.prompt(ctx, ev.SessionKey, NewSession(StateAwaitingRedeemCodeAdd),
			"Enter the new redeem code:", adminBackButtons())
	case ActionViewUsers:
		m.clearSession(ctx, ev.SessionKey)
		return m.showUsers(ctx, action.Page)
	case ActionSetMinWithdraw:
		return m.prompt(ctx, ev.SessionKey, NewSession(StateAwaitingMinWithdraw),
			"Enter the new minimum withdrawal amount:", adminBackButtons())
	case ActionEditBalance:
		return m.prompt(ctx, ev.SessionKey, NewSession(StateAwaitingBalanceUser),
			"Enter the User ID to edit balance:", adminBackButtons())
	case ActionBalanceOp:
		return m.startBalanceAmount(ctx, ev.SessionKey, action.UserID, action.Op)
	case ActionSendMessage:
		m.clearSession(ctx, ev.SessionKey)
		return sendMessageMenuResponse()
	case ActionSendToAll:
		session := NewSession(StateAwaitingBroadcastText)
		session.Scratch[scratchBroadcastMode] = broadcastAll
		return m.prompt(ctx, ev.SessionKey, session,
			"Enter the message to send to all users:", adminBackButtons())
	case ActionSendToOne:
		session := NewSession(StateAwaitingBroadcastUser)
		session.Scratch[scratchBroadcastMode] = broadcastOne
		return m.prompt(ctx, ev.SessionKey, session,
			"Enter the User ID to send a message to:", adminBackButtons())
	case ActionManageUsers:
		m.clearSession(ctx, ev.SessionKey)
		return manageUsersMenuResponse()
	case ActionBanUser:
		return m.prompt(ctx, ev.SessionKey, NewSession(StateAwaitingBanUser),
			"Enter the User ID to ban:", adminBackButtons())
	case ActionUnbanUser:
		return m.prompt(ctx, ev.SessionKey, NewSession(StateAwaitingUnbanUser),
			"Enter the User ID to unban:", adminBackButtons())
	case ActionViewBanned:
		m.clearSession(ctx, ev.SessionKey)
		return m.showBannedUsers(ctx)
	case ActionSearchWithdraw:
		return m.prompt(ctx, ev.SessionKey, NewSession(StateAwaitingWithdrawSearch),
			"Enter the User ID or Withdraw ID to manage:", adminBackButtons())
	case ActionResolveWithdraw:
		m.clearSession(ctx, ev.SessionKey)
		return m.resolveWithdraw(ctx, action.ID, action.Outcome)
	case ActionCompletedWithdraws:
		m.clearSession(ctx, ev.SessionKey)
		return m.showCompletedWithdrawals(ctx)
	case ActionAddContactInfo:
		return m.prompt(ctx, ev.SessionKey, NewSession(StateAwaitingContactInfo),
			"Enter the new contact information:", adminBackButtons())
	case ActionAddTutorial:
		return m.prompt(ctx, ev.SessionKey, NewSession(StateAwaitingTutorialLink),
			"Enter the new tutorial link:", adminBackButtons())
	case ActionVerifyUsage:
		m.clearSession(ctx, ev.SessionKey)
		return m.showVerifyUsage(ctx)
	}

	return m.home(ctx, ev.SessionKey, isAdmin)
}

func (m *Machine) handleText(ctx context.Context, ev Event, isAdmin bool) Response {
	// 命令一律重置到主面板
	if strings.HasPrefix(ev.Payload, "/") {
		return m.home(ctx, ev.SessionKey, isAdmin)
	}

	session, err := m.sessions.Get(ctx, ev.SessionKey)
	if err != nil {
		m.log.Errorf("会话读取失败: key=%d err=%v", ev.SessionKey, err)
		return Response{Text: textGenericError}
	}
	if session == nil || session.State == StateIdle {
		// 无进行中的流程，游离文本回主面板
		return m.home(ctx, ev.SessionKey, isAdmin)
	}

	switch session.State {
	case StateAwaitingVerifyCode:
		return m.handleVerifyCodeText(ctx, ev.SessionKey, ev.Payload)
	case StateAwaitingRedeemCode:
		return m.handleRedeemCodeText(ctx, ev.SessionKey, ev.Payload)
	case StateAwaitingWithdrawAmount:
		return m.handleWithdrawAmountText(ctx, ev.SessionKey, session, ev.Payload)
	case StateAwaitingWithdrawUPI:
		return m.handleWithdrawUPIText(ctx, ev.SessionKey, session, ev.Payload)

	case StateAwaitingLinkTitle:
		return m.handleLinkTitleText(ctx, ev.SessionKey, session, ev.Payload)
	case StateAwaitingLinkURL:
		return m.handleLinkURLText(ctx, ev.SessionKey, session, ev.Payload)
	case StateAwaitingVerifyCodeAdd:
		return m.handleVerifyCodeAddText(ctx, ev.SessionKey, ev.Payload)
	case StateAwaitingRedeemCodeAdd:
		return m.handleRedeemCodeAddText(ctx, ev.SessionKey, session, ev.Payload)
	case StateAwaitingRedeemValueAdd:
		return m.handleRedeemValueAddText(ctx, ev.SessionKey, session, ev.Payload)
	case StateAwaitingMinWithdraw:
		return m.handleMinWithdrawText(ctx, ev.SessionKey, ev.Payload)
	case StateAwaitingBalanceUser:
		return m.handleBalanceUserText(ctx, ev.SessionKey, ev.Payload)
	case StateAwaitingBalanceAmount:
		return m.handleBalanceAmountText(ctx, ev.SessionKey, session, ev.Payload)
	case StateAwaitingBroadcastUser:
		return m.handleBroadcastUserText(ctx, ev.SessionKey, session, ev.Payload)
	case StateAwaitingBroadcastText:
		return m.handleBroadcastText(ctx, ev.SessionKey, session, ev.Payload)
	case StateAwaitingBanUser:
		return m.handleBanUserText(ctx, ev.SessionKey, ev.Payload)
	case StateAwaitingUnbanUser:
		return m.handleUnbanUserText(ctx, ev.SessionKey, ev.Payload)
	case StateAwaitingWithdrawSearch:
		return m.handleWithdrawSearchText(ctx, ev.SessionKey, ev.Payload)
	case StateAwaitingContactInfo:
		return m.handleContactInfoText(ctx, ev.SessionKey, ev.Payload)
	case StateAwaitingTutorialLink:
		return m.handleTutorialLinkText(ctx, ev.SessionKey, ev.Payload)
	}

	return m.home(ctx, ev.SessionKey, isAdmin)
}
