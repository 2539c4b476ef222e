package presence

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/telebot.v4"
)

// ChatAPI is the part of telebot.API the oracle needs.
type ChatAPI interface {
	ChatMemberOf(chat, user telebot.Recipient) (*telebot.ChatMember, error)
	Ban(chat *telebot.Chat, member *telebot.ChatMember, revokeMessages ...bool) error
	Unban(chat *telebot.Chat, user *telebot.User, forBanned ...bool) error
	ApproveJoinRequest(chat telebot.Recipient, user *telebot.User) error
}

type Telegram struct {
	api ChatAPI
}

func NewTelegram(api ChatAPI) *Telegram {
	return &Telegram{api: api}
}

func (t *Telegram) MemberStatus(ctx context.Context, chatID, userID int64) (Status, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	member, err := t.api.ChatMemberOf(&telebot.Chat{ID: chatID}, &telebot.User{ID: userID})
	if err != nil {
		if IsNotFound(err) {
			return StatusNotFound, nil
		}
		return "", fmt.Errorf("getting chat member %d in %d: %w", userID, chatID, err)
	}

	switch member.Role {
	case telebot.Creator:
		return StatusCreator, nil
	case telebot.Administrator:
		return StatusAdministrator, nil
	case telebot.Member:
		return StatusMember, nil
	case telebot.Restricted:
		if !member.Member {
			return StatusLeft, nil
		}
		return StatusRestricted, nil
	case telebot.Kicked:
		return StatusKicked, nil
	default:
		return StatusLeft, nil
	}
}

// Expel bans and immediately unbans the user so they can rejoin by request later.
func (t *Telegram) Expel(ctx context.Context, chatID, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	chat := &telebot.Chat{ID: chatID}
	user := &telebot.User{ID: userID}

	if err := t.api.Ban(chat, &telebot.ChatMember{User: user}); err != nil {
		return fmt.Errorf("banning %d in %d: %w", userID, chatID, err)
	}
	if err := t.api.Unban(chat, user, true); err != nil {
		return fmt.Errorf("unbanning %d in %d: %w", userID, chatID, err)
	}
	return nil
}

func (t *Telegram) ApproveJoinRequest(ctx context.Context, chatID, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.api.ApproveJoinRequest(&telebot.Chat{ID: chatID}, &telebot.User{ID: userID}); err != nil {
		return fmt.Errorf("approving join request of %d in %d: %w", userID, chatID, err)
	}
	return nil
}

// IsNotFound reports whether a Bot API error means the user or chat is unknown.
func IsNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "participant_id_invalid")
}
