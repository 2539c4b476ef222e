package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/C4T-BuT-S4D/trialbot/internal/models"
	"github.com/go-resty/resty/v2"
)

type webhookUser struct {
	ID              int64             `json:"id"`
	Name            string            `json:"name"`
	Username        string            `json:"username,omitempty"`
	Status          models.UserStatus `json:"status"`
	JoinedAt        time.Time         `json:"joined_at"`
	TrialEndsAt     time.Time         `json:"trial_ends_at"`
	InPrimaryChat   bool              `json:"in_primary_chat"`
	InSecondaryChat bool              `json:"in_secondary_chat"`
}

type webhookPayload struct {
	Kind    Kind         `json:"kind"`
	Reason  Reason       `json:"reason"`
	Subject *webhookUser `json:"subject,omitempty"`
	Message string       `json:"message"`
	SentAt  time.Time    `json:"sent_at"`
}

// Webhook posts notifications as JSON to an external admin-facing service.
type Webhook struct {
	client *resty.Client
	url    string
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		client: resty.New().SetTimeout(10 * time.Second),
		url:    url,
	}
}

func (w *Webhook) Notify(ctx context.Context, n Notification) error {
	payload := webhookPayload{
		Kind:    n.Kind,
		Reason:  n.Reason,
		Message: n.Message,
		SentAt:  time.Now().UTC(),
	}
	if n.Subject != nil {
		payload.Subject = &webhookUser{
			ID:              n.Subject.ID,
			Name:            n.Subject.Name,
			Username:        n.Subject.Username,
			Status:          n.Subject.Status,
			JoinedAt:        n.Subject.JoinedAt,
			TrialEndsAt:     n.Subject.TrialEndsAt,
			InPrimaryChat:   n.Subject.InPrimaryChat,
			InSecondaryChat: n.Subject.InSecondaryChat,
		}
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("unexpected status code: %d %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}
