package notify

import (
	"context"
	"fmt"

	"github.com/C4T-BuT-S4D/trialbot/internal/keyboard"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"
)

type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

type AdminSource interface {
	ListAdmins(ctx context.Context) ([]int64, error)
}

// Telegram sends every notification to each administrator in a private chat.
type Telegram struct {
	bot    Sender
	admins AdminSource
	log    *logrus.Entry
}

func NewTelegram(bot Sender, admins AdminSource) *Telegram {
	return &Telegram{
		bot:    bot,
		admins: admins,
		log:    logrus.WithField("component", "telegram_notifier"),
	}
}

func (t *Telegram) Notify(ctx context.Context, n Notification) error {
	adminIDs, err := t.admins.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("listing admins: %w", err)
	}
	if len(adminIDs) == 0 {
		return fmt.Errorf("no admins to notify: %w", ErrNotDelivered)
	}

	var opts []interface{}
	if n.NeedsDecision() {
		opts = append(opts, keyboard.Decision(n.Subject.ID))
	}

	sent := 0
	for _, adminID := range adminIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := t.bot.Send(telebot.ChatID(adminID), n.Message, opts...); err != nil {
			t.log.Warnf("failed to send %s notification to admin %d: %v", n.Reason, adminID, err)
			continue
		}
		sent++
	}

	if sent == 0 {
		return fmt.Errorf("sending %s to %d admins: %w", n.Reason, len(adminIDs), ErrNotDelivered)
	}
	return nil
}
