package lifecycle

import (
	"context"
	"fmt"

	"github.com/C4T-BuT-S4D/trialbot/internal/notify"
	"github.com/google/uuid"
)

const (
	jobExpiredTrials = "expired_trials"
	jobExpiringSoon  = "expiring_soon"
)

// NotifyExpired asks admins to decide on every trial that is over.
// There is no latch: an undecided user is reported on every run.
func (e *Engine) NotifyExpired(ctx context.Context) (int, error) {
	now := e.now()
	users, err := e.store.ListExpiredTrials(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("listing expired trials: %w", err)
	}

	sent := 0
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		if err := e.notify(ctx, notify.Notification{
			Kind:    notify.KindDecisionRequest,
			Reason:  notify.ReasonTrialExpired,
			Subject: user,
			Message: fmt.Sprintf("Trial period is over\n\n%s", notify.FormatUser(user, now, false)),
		}); err != nil {
			e.metrics.UserFailure(jobExpiredTrials)
			e.log.WithField("user_id", user.ID).Warnf("failed to escalate expired trial: %v", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// NotifyExpiringSoon warns admins once per user when the trial is about to end.
// The latch is set only after the warning reached someone.
func (e *Engine) NotifyExpiringSoon(ctx context.Context) (int, error) {
	now := e.now()
	users, err := e.store.ListExpiringTrials(ctx, now, e.settings.ExpiryWarning)
	if err != nil {
		return 0, fmt.Errorf("listing expiring trials: %w", err)
	}

	sent := 0
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		log := e.log.WithField("user_id", user.ID)

		if err := e.notify(ctx, notify.Notification{
			Kind:    notify.KindDecisionRequest,
			Reason:  notify.ReasonExpiringSoon,
			Subject: user,
			Message: fmt.Sprintf("Trial period ends soon\n\n%s", notify.FormatUser(user, now, true)),
		}); err != nil {
			e.metrics.UserFailure(jobExpiringSoon)
			log.Warnf("failed to warn about expiring trial: %v", err)
			continue
		}

		if err := e.store.MarkExpiryNotified(ctx, user.ID); err != nil {
			e.metrics.UserFailure(jobExpiringSoon)
			log.Errorf("failed to mark user as notified: %v", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// RunExpiryChecks runs both expiry passes; one failing does not skip the other.
func (e *Engine) RunExpiryChecks(ctx context.Context) {
	log := e.log.WithField("run_id", uuid.NewString())
	e.metrics.JobRun("expiry")

	expired, err := e.NotifyExpired(ctx)
	if err != nil {
		log.Errorf("expired trials pass failed: %v", err)
	}

	expiring, err := e.NotifyExpiringSoon(ctx)
	if err != nil {
		log.Errorf("expiring trials pass failed: %v", err)
	}

	log.Infof("expiry checks done: %d expired escalated, %d expiring warned", expired, expiring)
}
