package notify

import (
	"context"
	"errors"

	"github.com/C4T-BuT-S4D/trialbot/internal/models"
)

// ErrNotDelivered means a notification reached no recipient at all.
var ErrNotDelivered = errors.New("notification not delivered")

type Kind string

const (
	KindInformational   Kind = "informational"
	KindDecisionRequest Kind = "decision_request"
)

type Reason string

const (
	ReasonTrialExpired  Reason = "trial_expired"
	ReasonExpiringSoon  Reason = "expiring_soon"
	ReasonLeftChats     Reason = "left_chats"
	ReasonAutoRemoved   Reason = "auto_removed"
	ReasonLeftPrimary   Reason = "left_primary"
	ReasonLeftSecondary Reason = "left_secondary"
	ReasonStartup       Reason = "startup"
)

// Notification is what gets delivered to administrators. Decision requests
// are answered by approving or removing Subject.
type Notification struct {
	Kind    Kind
	Reason  Reason
	Subject *models.User
	Message string
}

func (n Notification) NeedsDecision() bool {
	return n.Kind == KindDecisionRequest && n.Subject != nil
}

// Channel delivers notifications. Delivery is best effort: an error means
// nothing was delivered, partial failures are only logged.
type Channel interface {
	Notify(ctx context.Context, n Notification) error
}
