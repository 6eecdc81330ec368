package bot

import (
	"context"
	"sync"
)

// State 会话状态，空串表示空闲
type State string

const (
	StateIdle State = ""

	// 用户流程
	StateAwaitingVerifyCode      State = "awaiting_verify_code"
	StateAwaitingRedeemCode      State = "awaiting_redeem_code"
	StateAwaitingWithdrawAmount  State = "awaiting_withdraw_amount"
	StateAwaitingWithdrawUPI     State = "awaiting_withdraw_upi"
	StateAwaitingWithdrawConfirm State = "awaiting_withdraw_confirm"

	// 管理流程
	StateAwaitingLinkTitle      State = "awaiting_link_title"
	StateAwaitingLinkURL        State = "awaiting_link_url"
	StateAwaitingVerifyCodeAdd  State = "awaiting_verify_code_add"
	StateAwaitingRedeemCodeAdd  State = "awaiting_redeem_code_add"
	StateAwaitingRedeemValueAdd State = "awaiting_redeem_value_add"
	StateAwaitingMinWithdraw    State = "awaiting_min_withdraw"
	StateAwaitingBalanceUser    State = "awaiting_balance_user"
	StateAwaitingBalanceAmount  State = "awaiting_balance_amount"
	StateAwaitingBroadcastUser  State = "awaiting_broadcast_user"
	StateAwaitingBroadcastText  State = "awaiting_broadcast_text"
	StateAwaitingBanUser        State = "awaiting_ban_user"
	StateAwaitingUnbanUser      State = "awaiting_unban_user"
	StateAwaitingWithdrawSearch State = "awaiting_withdraw_search"
	StateAwaitingContactInfo    State = "awaiting_contact_info"
	StateAwaitingTutorialLink   State = "awaiting_tutorial_link"
)

// 暂存字段键
const (
	scratchAmount        = "amount"
	scratchUPI           = "upi"
	scratchLinkTitle     = "link_title"
	scratchRedeemCode    = "redeem_code"
	scratchBalanceUser   = "balance_user"
	scratchBalanceOp     = "balance_op"
	scratchBroadcastMode = "broadcast_mode"
	scratchBroadcastUser = "broadcast_user"
)

// 群发模式
const (
	broadcastAll = "all"
	broadcastOne = "one"
)

// Session 单个会话键的对话状态与流程暂存
type Session struct {
	State   State             `json:"state"`
	Scratch map[string]string `json:"scratch"`
}

func NewSession(state State) *Session {
	return &Session{State: state, Scratch: make(map[string]string)}
}

// SessionStore 会话存储
// Get 未命中返回 (nil, nil)；存储是易失的，丢失按流程中断处理
type SessionStore interface {
	Get(ctx context.Context, key int64) (*Session, error)
	Put(ctx context.Context, key int64, session *Session) error
	Clear(ctx context.Context, key int64) error
}

// MemorySessionStore 进程内会话存储，测试与单机运行使用
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[int64]*Session)}
}

func (s *MemorySessionStore) Get(_ context.Context, key int64) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key]
	if !ok {
		return nil, nil
	}
	return session, nil
}

func (s *MemorySessionStore) Put(_ context.Context, key int64, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key] = session
	return nil
}

func (s *MemorySessionStore) Clear(_ context.Context, key int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}
