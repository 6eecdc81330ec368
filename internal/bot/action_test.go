package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionFixedTokens(t *testing.T) {
	cases := map[string]ActionKind{
		tokenUserHome:        ActionUserHome,
		tokenAdminHome:       ActionAdminHome,
		tokenWithdraw:        ActionWithdraw,
		tokenConfirmWithdraw: ActionConfirmWithdraw,
		tokenCancelWithdraw:  ActionCancelWithdraw,
		tokenManageLinks:     ActionManageLinks,
		tokenSendToAll:       ActionSendToAll,
		tokenVerifyUsage:     ActionVerifyUsage,
	}
	for token, want := range cases {
		action, err := ParseAction(token)
		require.NoError(t, err, token)
		assert.Equal(t, want, action.Kind, token)
	}
}

func TestParseActionDeleteLink(t *testing.T) {
	action, err := ParseAction(deleteLinkToken(42))
	require.NoError(t, err)
	assert.Equal(t, ActionDeleteLink, action.Kind)
	assert.Equal(t, int64(42), action.ID)
}

func TestParseActionDeleteVerifyCode(t *testing.T) {
	action, err := ParseAction(deleteVCodeToken("alpha"))
	require.NoError(t, err)
	assert.Equal(t, ActionDeleteVerifyCode, action.Kind)
	assert.Equal(t, "alpha", action.Code)
}

func TestParseActionViewUsersPage(t *testing.T) {
	action, err := ParseAction(viewUsersToken(3))
	require.NoError(t, err)
	assert.Equal(t, ActionViewUsers, action.Kind)
	assert.Equal(t, 3, action.Page)
}

func TestParseActionBalanceOp(t *testing.T) {
	action, err := ParseAction(balanceOpToken(7, BalanceOpCut))
	require.NoError(t, err)
	assert.Equal(t, ActionBalanceOp, action.Kind)
	assert.Equal(t, int64(7), action.UserID)
	assert.Equal(t, BalanceOpCut, action.Op)
}

func TestParseActionResolveWithdraw(t *testing.T) {
	action, err := ParseAction(resolveWithdrawToken("complete", 123456789))
	require.NoError(t, err)
	assert.Equal(t, ActionResolveWithdraw, action.Kind)
	assert.Equal(t, int64(123456789), action.ID)
	assert.Equal(t, "complete", action.Outcome)

	action, err = ParseAction(resolveWithdrawToken("return", 5))
	require.NoError(t, err)
	assert.Equal(t, "return", action.Outcome)
}

func TestParseActionRejectsMalformedTokens(t *testing.T) {
	bad := []string{
		"",
		"nonsense",
		"nav:",
		"admin:link_del:",
		"admin:link_del:abc",
		"admin:users:x",
		"admin:balance_op:7",
		"admin:balance_op:abc:add",
		"admin:balance_op:7:double",
		"admin:wd:complete",
		"admin:wd:explode:5",
		"admin:wd:complete:notanumber",
	}
	for _, token := range bad {
		_, err := ParseAction(token)
		assert.ErrorIs(t, err, ErrUnknownAction, token)
	}
}
