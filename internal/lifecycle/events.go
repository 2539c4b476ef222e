package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/C4T-BuT-S4D/trialbot/internal/models"
	"github.com/C4T-BuT-S4D/trialbot/internal/notify"
)

// HandleJoinRequest approves a join request to a managed chat. Requests to
// the primary chat start a trial.
func (e *Engine) HandleJoinRequest(ctx context.Context, chatID int64, c Candidate) error {
	chat, ok := e.settings.Chats.Resolve(chatID)
	if !ok {
		e.log.Debugf("ignoring join request of %d to unmanaged chat %d", c.ID, chatID)
		return nil
	}

	if err := e.oracle.ApproveJoinRequest(ctx, chatID, c.ID); err != nil {
		return fmt.Errorf("approving join request: %w", err)
	}

	if chat != models.ChatPrimary {
		return nil
	}
	if _, _, err := e.Admit(ctx, c); err != nil {
		return err
	}
	return nil
}

// HandleMemberJoined tracks users that got into a managed chat by any path,
// including direct adds that bypass join requests.
func (e *Engine) HandleMemberJoined(ctx context.Context, chatID int64, c Candidate) error {
	chat, ok := e.settings.Chats.Resolve(chatID)
	if !ok {
		return nil
	}

	user, created, err := e.Admit(ctx, c)
	if err != nil {
		return err
	}
	if created || user.InChat(chat) {
		return nil
	}

	if _, err := e.store.SetChatPresence(ctx, user.ID, chat, true); err != nil {
		return fmt.Errorf("updating presence: %w", err)
	}
	return nil
}

// HandleMemberLeft records a departure. Leaving the secondary chat removes
// the user from both chats right away; other absences are left to the sweeper.
func (e *Engine) HandleMemberLeft(ctx context.Context, chatID, userID int64) error {
	chat, ok := e.settings.Chats.Resolve(chatID)
	if !ok {
		return nil
	}

	user, err := e.lookup(ctx, userID)
	if errors.Is(err, ErrNotTracked) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := e.store.SetChatPresence(ctx, userID, chat, false); err != nil {
		return fmt.Errorf("updating presence: %w", err)
	}

	if chat == models.ChatPrimary {
		user.InPrimaryChat = false
		if err := e.notify(ctx, notify.Notification{
			Kind:    notify.KindInformational,
			Reason:  notify.ReasonLeftPrimary,
			Subject: user,
			Message: fmt.Sprintf("User left the %s\n\n%s", chatTitle(chat), notify.FormatUser(user, e.now(), false)),
		}); err != nil {
			e.log.WithField("user_id", userID).Warnf("failed to notify about departure: %v", err)
		}
		return nil
	}

	user.InSecondaryChat = false
	if err := e.remove(ctx, user, TriggerDeparture); err != nil {
		return err
	}
	if err := e.notify(ctx, notify.Notification{
		Kind:    notify.KindInformational,
		Reason:  notify.ReasonLeftSecondary,
		Subject: user,
		Message: fmt.Sprintf(
			"User left the %s and was removed from both chats\n\n%s",
			chatTitle(chat),
			notify.FormatUser(user, e.now(), false),
		),
	}); err != nil {
		e.log.WithField("user_id", userID).Warnf("failed to notify about departure: %v", err)
	}
	return nil
}
