package bot

// 固定文案
const (
	textBanned         = "You are banned from using this bot."
	textIncompleteFlow = "An error occurred. Missing details. Please start over."
	textGenericError   = "Something went wrong. Please try again later."
	textUserHome       = "Welcome! Choose an option:"
	textAdminHome      = "🛠️ Admin Panel. Choose an option:"
)

func userBackRow() []Button {
	return []Button{{Label: "⬅️ Back", Token: tokenUserHome}}
}

func adminBackRow() []Button {
	return []Button{{Label: "⬅️ Back", Token: tokenAdminHome}}
}

func userBackButtons() [][]Button {
	return [][]Button{userBackRow()}
}

func adminBackButtons() [][]Button {
	return [][]Button{adminBackRow()}
}

func userHomeResponse(isAdmin bool) Response {
	buttons := [][]Button{
		{{Label: "🔗 Get Code", Token: tokenGetCode}, {Label: "✅ Verify Code", Token: tokenVerifyCode}},
		{{Label: "🎁 Claim Reward", Token: tokenClaimReward}, {Label: "💰 Wallet", Token: tokenWallet}},
		{{Label: "💲 Withdraw", Token: tokenWithdraw}, {Label: "⏳ Pending Withdraw", Token: tokenPendingWithdraw}},
		{{Label: "📞 Contact", Token: tokenContact}, {Label: "❓ How to Use Bot", Token: tokenHowToUse}},
		{{Label: "🏆 Leaderboard", Token: tokenLeaderboard}},
	}
	if isAdmin {
		buttons = append(buttons, []Button{{Label: "⬅️ Back to Admin Panel", Token: tokenAdminHome}})
	}
	return Response{Text: textUserHome, Buttons: buttons}
}

func adminHomeResponse() Response {
	return Response{
		Text: textAdminHome,
		Buttons: [][]Button{
			{{Label: "🔗 Manage Links", Token: tokenManageLinks}, {Label: "🔐 Manage Verify Codes", Token: tokenManageVCodes}},
			{{Label: "💰 Add Redeem Code", Token: tokenAddRedeemCode}, {Label: "👥 View Users", Token: viewUsersToken(0)}},
			{{Label: "⚙️ Set Min Withdraw", Token: tokenSetMinWithdraw}, {Label: "✏️ Edit Balance", Token: tokenEditBalance}},
			{{Label: "📤 Send Message", Token: tokenSendMessage}, {Label: "🛠️ Manage Users", Token: tokenManageUsers}},
			{{Label: "💸 Manage Withdraw", Token: tokenSearchWithdraw}, {Label: "✅ Completed Withdraws", Token: tokenCompleted}},
			{{Label: "📞 Add Contact Info", Token: tokenAddContact}, {Label: "📹 Add Tutorial", Token: tokenAddTutorial}},
			{{Label: "📊 Verify Code Usage", Token: tokenVerifyUsage}, {Label: "👤 Switch to User Panel", Token: tokenUserHome}},
		},
	}
}

func sendMessageMenuResponse() Response {
	return Response{
		Text: "Who should receive the message?",
		Buttons: [][]Button{
			{{Label: "To All Users", Token: tokenSendToAll}},
			{{Label: "To a Single User", Token: tokenSendToOne}},
			adminBackRow(),
		},
	}
}

func manageUsersMenuResponse() Response {
	return Response{
		Text: "Select a user management action:",
		Buttons: [][]Button{
			{{Label: "🚫 Ban a User", Token: tokenBanUser}, {Label: "🔓 Unban a User", Token: tokenUnbanUser}},
			{{Label: "📜 View Banned List", Token: tokenViewBanned}},
			adminBackRow(),
		},
	}
}
