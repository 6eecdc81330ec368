package bot

import (
	"errors"
	"strconv"
	"strings"
)

var ErrUnknownAction = errors.New("无法识别的动作令牌")

// ActionKind 动作类型
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionNoop

	// 面板导航
	ActionUserHome
	ActionAdminHome

	// 用户面板
	ActionGetCode
	ActionVerifyCode
	ActionClaimReward
	ActionWallet
	ActionWithdraw
	ActionPendingWithdraw
	ActionContact
	ActionHowToUse
	ActionLeaderboard

	// 提现确认
	ActionConfirmWithdraw
	ActionCancelWithdraw

	// 管理面板
	ActionManageLinks
	ActionAddLink
	ActionDeleteLink
	ActionManageVerifyCodes
	ActionAddVerifyCode
	ActionDeleteVerifyCode
	ActionAddRedeemCode
	ActionViewUsers
	ActionSetMinWithdraw
	ActionEditBalance
	ActionBalanceOp
	ActionSendMessage
	ActionSendToAll
	ActionSendToOne
	ActionManageUsers
	ActionBanUser
	ActionUnbanUser
	ActionViewBanned
	ActionSearchWithdraw
	ActionResolveWithdraw
	ActionCompletedWithdraws
	ActionAddContactInfo
	ActionAddTutorial
	ActionVerifyUsage
)

// 余额调整方向
const (
	BalanceOpAdd = "add"
	BalanceOpCut = "cut"
)

// 固定令牌
const (
	tokenNoop            = "noop"
	tokenUserHome        = "nav:user"
	tokenAdminHome       = "nav:admin"
	tokenGetCode         = "user:get_code"
	tokenVerifyCode      = "user:verify"
	tokenClaimReward     = "user:claim"
	tokenWallet          = "user:wallet"
	tokenWithdraw        = "user:withdraw"
	tokenPendingWithdraw = "user:pending"
	tokenContact         = "user:contact"
	tokenHowToUse        = "user:howto"
	tokenLeaderboard     = "user:leaderboard"
	tokenConfirmWithdraw = "wd:confirm"
	tokenCancelWithdraw  = "wd:cancel"
	tokenManageLinks     = "admin:links"
	tokenAddLink         = "admin:link_add"
	tokenManageVCodes    = "admin:vcodes"
	tokenAddVCode        = "admin:vcode_add"
	tokenAddRedeemCode   = "admin:redeem_add"
	tokenSetMinWithdraw  = "admin:min_withdraw"
	tokenEditBalance     = "admin:balance"
	tokenSendMessage     = "admin:send"
	tokenSendToAll       = "admin:send_all"
	tokenSendToOne       = "admin:send_one"
	tokenManageUsers     = "admin:musers"
	tokenBanUser         = "admin:ban"
	tokenUnbanUser       = "admin:unban"
	tokenViewBanned      = "admin:banned"
	tokenSearchWithdraw  = "admin:wdsearch"
	tokenCompleted       = "admin:completed"
	tokenAddContact      = "admin:contact"
	tokenAddTutorial     = "admin:tutorial"
	tokenVerifyUsage     = "admin:usage"
)

// 带参令牌前缀
const (
	prefixDeleteLink      = "admin:link_del:"
	prefixDeleteVCode     = "admin:vcode_del:"
	prefixViewUsers       = "admin:users:"
	prefixBalanceOp       = "admin:balance_op:"
	prefixResolveWithdraw = "admin:wd:"
)

// Action 解码后的动作，字段按类型各取所需
type Action struct {
	Kind    ActionKind
	Code    string
	ID      int64
	UserID  int64
	Page    int
	Op      string
	Outcome string
}

var fixedTokens = map[string]ActionKind{
	tokenNoop:            ActionNoop,
	tokenUserHome:        ActionUserHome,
	tokenAdminHome:       ActionAdminHome,
	tokenGetCode:         ActionGetCode,
	tokenVerifyCode:      ActionVerifyCode,
	tokenClaimReward:     ActionClaimReward,
	tokenWallet:          ActionWallet,
	tokenWithdraw:        ActionWithdraw,
	tokenPendingWithdraw: ActionPendingWithdraw,
	tokenContact:         ActionContact,
	tokenHowToUse:        ActionHowToUse,
	tokenLeaderboard:     ActionLeaderboard,
	tokenConfirmWithdraw: ActionConfirmWithdraw,
	tokenCancelWithdraw:  ActionCancelWithdraw,
	tokenManageLinks:     ActionManageLinks,
	tokenAddLink:         ActionAddLink,
	tokenManageVCodes:    ActionManageVerifyCodes,
	tokenAddVCode:        ActionAddVerifyCode,
	tokenAddRedeemCode:   ActionAddRedeemCode,
	tokenSetMinWithdraw:  ActionSetMinWithdraw,
	tokenEditBalance:     ActionEditBalance,
	tokenSendMessage:     ActionSendMessage,
	tokenSendToAll:       ActionSendToAll,
	tokenSendToOne:       ActionSendToOne,
	tokenManageUsers:     ActionManageUsers,
	tokenBanUser:         ActionBanUser,
	tokenUnbanUser:       ActionUnbanUser,
	tokenViewBanned:      ActionViewBanned,
	tokenSearchWithdraw:  ActionSearchWithdraw,
	tokenCompleted:       ActionCompletedWithdraws,
	tokenAddContact:      ActionAddContactInfo,
	tokenAddTutorial:     ActionAddTutorial,
	tokenVerifyUsage:     ActionVerifyUsage,
}

// ParseAction 在边界处把原始令牌解码成带类型的动作
// 状态机只对 Action 做分支，不再接触原始字符串
func ParseAction(token string) (Action, error) {
	if kind, ok := fixedTokens[token]; ok {
		return Action{Kind: kind}, nil
	}

	switch {
	case strings.HasPrefix(token, prefixDeleteLink):
		id, err := strconv.ParseInt(token[len(prefixDeleteLink):], 10, 64)
		if err != nil {
			return Action{}, ErrUnknownAction
		}
		return Action{Kind: ActionDeleteLink, ID: id}, nil

	case strings.HasPrefix(token, prefixDeleteVCode):
		code := token[len(prefixDeleteVCode):]
		if code == "" {
			return Action{}, ErrUnknownAction
		}
		return Action{Kind: ActionDeleteVerifyCode, Code: code}, nil

	case strings.HasPrefix(token, prefixViewUsers):
		page, err := strconv.Atoi(token[len(prefixViewUsers):])
		if err != nil || page < 0 {
			return Action{}, ErrUnknownAction
		}
		return Action{Kind: ActionViewUsers, Page: page}, nil

	case strings.HasPrefix(token, prefixBalanceOp):
		// admin:balance_op:<uid>:<op>
		parts := strings.Split(token[len(prefixBalanceOp):], ":")
		if len(parts) != 2 {
			return Action{}, ErrUnknownAction
		}
		userID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return Action{}, ErrUnknownAction
		}
		if parts[1] != BalanceOpAdd && parts[1] != BalanceOpCut {
			return Action{}, ErrUnknownAction
		}
		return Action{Kind: ActionBalanceOp, UserID: userID, Op: parts[1]}, nil

	case strings.HasPrefix(token, prefixResolveWithdraw):
		// admin:wd:<outcome>:<wid>
		parts := strings.Split(token[len(prefixResolveWithdraw):], ":")
		if len(parts) != 2 {
			return Action{}, ErrUnknownAction
		}
		if parts[0] != "complete" && parts[0] != "return" {
			return Action{}, ErrUnknownAction
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return Action{}, ErrUnknownAction
		}
		return Action{Kind: ActionResolveWithdraw, Outcome: parts[0], ID: id}, nil
	}

	return Action{}, ErrUnknownAction
}

func deleteLinkToken(id int64) string {
	return prefixDeleteLink + strconv.FormatInt(id, 10)
}

func deleteVCodeToken(code string) string {
	return prefixDeleteVCode + code
}

func viewUsersToken(page int) string {
	return prefixViewUsers + strconv.Itoa(page)
}

func balanceOpToken(userID int64, op string) string {
	return prefixBalanceOp + strconv.FormatInt(userID, 10) + ":" + op
}

func resolveWithdrawToken(outcome string, id int64) string {
	return prefixResolveWithdraw + outcome + ":" + strconv.FormatInt(id, 10)
}
