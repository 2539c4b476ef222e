package keyboard

import (
	"strconv"

	"gopkg.in/telebot.v4"
)

const (
	MenuUsers       = "Users"
	MenuTrialUsers  = "On trial"
	MenuCheck       = "Check"
	MenuRemoveUser  = "Remove user"
	MenuSkipTrial   = "Skip trial"
	MenuAddAdmin    = "Add admin"
	MenuRemoveAdmin = "Remove admin"
	MenuAdmins      = "Admins"
)

func AdminMenu() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(
		markup.Row(markup.Text(MenuUsers), markup.Text(MenuTrialUsers)),
		markup.Row(markup.Text(MenuCheck)),
		markup.Row(markup.Text(MenuRemoveUser), markup.Text(MenuSkipTrial)),
		markup.Row(markup.Text(MenuAddAdmin), markup.Text(MenuRemoveAdmin)),
		markup.Row(markup.Text(MenuAdmins)),
	)
	return markup
}

// Decision is the keep/remove keyboard attached to escalations.
func Decision(userID int64) *telebot.ReplyMarkup {
	id := strconv.FormatInt(userID, 10)
	markup := &telebot.ReplyMarkup{}
	markup.Inline(markup.Row(
		markup.Data("Keep", CallbackActionTrialApprove.String(), id),
		markup.Data("Remove", CallbackActionTrialRemove.String(), id),
	))
	return markup
}
