package monitor

import (
	"context"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"
)

// UpdateContext carries a single update through the handlers together with
// its deadline and a logger tagged with the update's origin.
type UpdateContext struct {
	context.Context
	tc  telebot.Context
	log *logrus.Entry
}

func NewUpdateContext(c context.Context, tc telebot.Context) *UpdateContext {
	fields := logrus.Fields{
		"component": "monitor",
		"update_id": tc.Update().ID,
	}
	if tc.Chat() != nil {
		fields["chat_id"] = tc.Chat().ID
		fields["chat_type"] = tc.Chat().Type
	}
	if tc.Sender() != nil {
		fields["sender_id"] = tc.Sender().ID
		fields["sender_username"] = tc.Sender().Username
	}
	if cb := tc.Callback(); cb != nil {
		fields["callback_data"] = cb.Data
	}

	return &UpdateContext{
		Context: c,
		tc:      tc,
		log:     logrus.WithFields(fields),
	}
}

func (uc *UpdateContext) L() *logrus.Entry {
	return uc.log
}

func (uc *UpdateContext) TC() telebot.Context {
	return uc.tc
}

func (uc *UpdateContext) Chat() *telebot.Chat {
	return uc.tc.Chat()
}

func (uc *UpdateContext) Sender() *telebot.User {
	return uc.tc.Sender()
}

func (uc *UpdateContext) IsPrivate() bool {
	return uc.tc.Chat() != nil && uc.tc.Chat().Type == telebot.ChatPrivate
}

// Reply sends to the chat the update came from and logs failures.
func (uc *UpdateContext) Reply(what interface{}, opts ...interface{}) {
	if err := uc.tc.Send(what, opts...); err != nil {
		uc.log.Errorf("failed to send reply: %v", err)
	}
}
