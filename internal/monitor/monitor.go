package monitor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/C4T-BuT-S4D/trialbot/internal/export"
	"github.com/C4T-BuT-S4D/trialbot/internal/keyboard"
	"github.com/C4T-BuT-S4D/trialbot/internal/lifecycle"
	"github.com/C4T-BuT-S4D/trialbot/internal/notify"
	"github.com/C4T-BuT-S4D/trialbot/internal/session"
	"gopkg.in/telebot.v4"
)

// Telegram rejects longer messages.
const messageLimit = 4000

type UpdateTracker interface {
	UpdateLastUpdate(ctx context.Context, updateID int) error
}

type Monitor struct {
	timeout  time.Duration
	engine   *lifecycle.Engine
	sessions session.Store
	state    UpdateTracker
}

func New(timeout time.Duration, engine *lifecycle.Engine, sessions session.Store, state UpdateTracker) *Monitor {
	return &Monitor{
		timeout:  timeout,
		engine:   engine,
		sessions: sessions,
		state:    state,
	}
}

// Wrap runs h with a per-update deadline and records the update as processed.
func (m *Monitor) Wrap(h func(uc *UpdateContext) error) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		uc := NewUpdateContext(ctx, c)
		uc.L().Debug("Received update")

		if err := m.state.UpdateLastUpdate(uc, c.Update().ID); err != nil {
			uc.L().Errorf("failed to update last update: %v", err)
		}

		if err := h(uc); err != nil {
			uc.L().Errorf("failed to handle update: %v", err)
		}
		return nil
	}
}

func (m *Monitor) HandleStart(uc *UpdateContext) error {
	if !uc.IsPrivate() || uc.Sender() == nil {
		return nil
	}
	senderID := uc.Sender().ID

	isAdmin, err := m.engine.IsAdmin(uc, senderID)
	if err != nil {
		return err
	}
	if isAdmin {
		uc.Reply("Admin menu", keyboard.AdminMenu())
		return nil
	}

	// Succeeds only while there are no admins at all.
	if _, err := m.engine.AddAdmin(uc, senderID, senderID); err == nil {
		uc.L().Warnf("User %d became the first administrator", senderID)
		uc.Reply("You are the first administrator", keyboard.AdminMenu())
		return nil
	} else if !errors.Is(err, lifecycle.ErrNotAdmin) {
		return err
	}

	uc.Reply(fmt.Sprintf("You are not an administrator. Your ID: %d", senderID))
	return nil
}

func (m *Monitor) HandleText(uc *UpdateContext) error {
	if !uc.IsPrivate() || uc.Sender() == nil {
		return nil
	}
	actorID := uc.Sender().ID

	isAdmin, err := m.engine.IsAdmin(uc, actorID)
	if err != nil {
		return err
	}
	if !isAdmin {
		uc.L().Debugf("ignoring text from non-admin %d", actorID)
		return nil
	}

	text := strings.TrimSpace(uc.TC().Text())
	if action, ok := menuActions[text]; ok {
		if err := m.sessions.Set(uc, actorID, action); err != nil {
			return fmt.Errorf("saving pending action: %w", err)
		}
		uc.Reply(actionPrompts[action])
		return nil
	}

	switch text {
	case keyboard.MenuUsers, keyboard.MenuTrialUsers, keyboard.MenuCheck, keyboard.MenuAdmins:
		// Another command abandons the pending one.
		if err := m.sessions.Clear(uc, actorID); err != nil {
			return fmt.Errorf("clearing pending action: %w", err)
		}
	}

	switch text {
	case keyboard.MenuUsers:
		return m.sendUsers(uc, actorID)
	case keyboard.MenuTrialUsers:
		return m.sendTrialUsers(uc, actorID)
	case keyboard.MenuCheck:
		return m.runCheck(uc, actorID)
	case keyboard.MenuAdmins:
		return m.sendAdmins(uc, actorID)
	}

	action, err := m.sessions.Take(uc, actorID)
	if errors.Is(err, session.ErrNoPending) {
		uc.Reply("Pick a command from the menu", keyboard.AdminMenu())
		return nil
	}
	if err != nil {
		return fmt.Errorf("taking pending action: %w", err)
	}

	reply, err := applyPending(uc, m.engine, actorID, action, text)
	if err != nil {
		uc.Reply("Failed to complete the command")
		return fmt.Errorf("applying %s: %w", action, err)
	}
	uc.Reply(reply, keyboard.AdminMenu())
	return nil
}

func (m *Monitor) sendUsers(uc *UpdateContext, actorID int64) error {
	users, err := m.engine.Users(uc, actorID)
	if err != nil {
		return err
	}

	now := m.engine.Now()
	data, err := export.UsersWorkbook(users, now)
	if err != nil {
		return fmt.Errorf("building users workbook: %w", err)
	}

	uc.Reply(&telebot.Document{
		File:     telebot.FromReader(bytes.NewReader(data)),
		FileName: export.UsersFileName(now),
		Caption:  fmt.Sprintf("Tracked users: %d", len(users)),
	})
	return nil
}

func (m *Monitor) sendTrialUsers(uc *UpdateContext, actorID int64) error {
	users, err := m.engine.TrialUsers(uc, actorID)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		uc.Reply("No users on trial")
		return nil
	}

	now := m.engine.Now()
	lines := make([]string, 0, len(users))
	for _, u := range users {
		lines = append(lines, notify.FormatListItem(u, now))
	}
	for _, chunk := range chunkLines(fmt.Sprintf("On trial: %d", len(users)), lines, messageLimit) {
		uc.Reply(chunk)
	}
	return nil
}

func (m *Monitor) runCheck(uc *UpdateContext, actorID int64) error {
	uc.Reply("Checking chat membership...")

	// A sweep over many users easily outlives the per-update deadline.
	ctx := context.WithoutCancel(uc.Context)
	report, err := m.engine.CheckNow(ctx, actorID)
	if err != nil {
		uc.Reply("Check failed")
		return err
	}
	uc.Reply(formatReport(report))
	return nil
}

func (m *Monitor) sendAdmins(uc *UpdateContext, actorID int64) error {
	admins, err := m.engine.Admins(uc, actorID)
	if err != nil {
		return err
	}

	lines := make([]string, 0, len(admins))
	for _, id := range admins {
		lines = append(lines, fmt.Sprintf("%d", id))
	}
	uc.Reply(fmt.Sprintf("Administrators:\n%s", strings.Join(lines, "\n")))
	return nil
}

// HandleCallback applies a keep/remove decision pressed under an escalation.
func (m *Monitor) HandleCallback(uc *UpdateContext) error {
	cb := uc.TC().Callback()
	if cb == nil || cb.Sender == nil {
		return nil
	}

	action, userID, err := keyboard.ParseDecision(cb.Data)
	if err != nil {
		uc.L().Warnf("ignoring callback: %v", err)
		return uc.TC().Respond()
	}

	var outcome string
	switch action {
	case keyboard.CallbackActionTrialApprove:
		_, err = m.engine.Approve(uc, cb.Sender.ID, userID)
		outcome = "✅ Kept"
	case keyboard.CallbackActionTrialRemove:
		_, err = m.engine.Remove(uc, cb.Sender.ID, userID)
		outcome = "❌ Removed"
	}

	switch {
	case errors.Is(err, lifecycle.ErrNotAdmin):
		return uc.TC().Respond(&telebot.CallbackResponse{Text: "You are not an administrator"})
	case errors.Is(err, lifecycle.ErrNotTracked):
		outcome = "User is no longer tracked"
	case err != nil:
		if respErr := uc.TC().Respond(&telebot.CallbackResponse{Text: "Failed, try again"}); respErr != nil {
			uc.L().Errorf("failed to respond to callback: %v", respErr)
		}
		return fmt.Errorf("applying decision %s for %d: %w", action, userID, err)
	}

	if cb.Message != nil {
		text := fmt.Sprintf("%s\n\n%s by %s", cb.Message.Text, outcome, notify.FormatUsername(cb.Sender.Username))
		if err := uc.TC().Edit(text); err != nil {
			uc.L().Warnf("failed to edit decision message: %v", err)
		}
	}
	return uc.TC().Respond(&telebot.CallbackResponse{Text: outcome})
}

func (m *Monitor) HandleJoinRequest(uc *UpdateContext) error {
	req := uc.TC().ChatJoinRequest()
	if req == nil || req.Chat == nil || req.Sender == nil {
		return nil
	}

	uc.L().Infof("Join request of %s (%d) to chat %d", req.Sender.Username, req.Sender.ID, req.Chat.ID)
	return m.engine.HandleJoinRequest(uc, req.Chat.ID, candidate(req.Sender))
}

// HandleChatMember turns membership transitions into joined/left events.
func (m *Monitor) HandleChatMember(uc *UpdateContext) error {
	upd := uc.TC().ChatMember()
	if upd == nil || upd.Chat == nil || upd.NewChatMember == nil || upd.NewChatMember.User == nil {
		return nil
	}

	user := upd.NewChatMember.User
	if user.IsBot {
		uc.L().Debugf("ignoring membership change of bot %d", user.ID)
		return nil
	}

	wasPresent, isPresent := present(upd.OldChatMember), present(upd.NewChatMember)
	switch {
	case !wasPresent && isPresent:
		uc.L().Infof("User %s (%d) joined chat %d", user.Username, user.ID, upd.Chat.ID)
		return m.engine.HandleMemberJoined(uc, upd.Chat.ID, candidate(user))
	case wasPresent && !isPresent:
		uc.L().Infof("User %s (%d) left chat %d", user.Username, user.ID, upd.Chat.ID)
		return m.engine.HandleMemberLeft(uc, upd.Chat.ID, user.ID)
	}
	return nil
}

func present(member *telebot.ChatMember) bool {
	if member == nil {
		return false
	}
	switch member.Role {
	case telebot.Creator, telebot.Administrator, telebot.Member:
		return true
	case telebot.Restricted:
		return member.Member
	}
	return false
}

func candidate(u *telebot.User) lifecycle.Candidate {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return lifecycle.Candidate{ID: u.ID, Name: name, Username: u.Username}
}
