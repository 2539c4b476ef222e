package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/C4T-BuT-S4D/trialbot/internal/models"
	"github.com/C4T-BuT-S4D/trialbot/internal/notify"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const jobReconcile = "reconcile"

type SweepReport struct {
	RunID       string
	Checked     int
	AutoRemoved int
	Escalated   int
	Failed      int
}

func (r SweepReport) Issues() int {
	return r.AutoRemoved + r.Escalated
}

type outcome int

const (
	outcomeNone outcome = iota
	outcomeAutoRemoved
	outcomeEscalated
)

// Reconcile re-reads presence of every tracked user from the platform,
// stores it and acts on mismatches. A failure on one user never stops the sweep.
func (e *Engine) Reconcile(ctx context.Context) (SweepReport, error) {
	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()

	report := SweepReport{RunID: uuid.NewString()}
	log := e.log.WithFields(logrus.Fields{"job": jobReconcile, "run_id": report.RunID})

	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return report, fmt.Errorf("listing users: %w", err)
	}
	e.metrics.JobRun(jobReconcile)
	e.metrics.TrackedUsers(len(users))

	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		report.Checked++
		res, err := e.reconcileUser(ctx, user)
		if err != nil {
			report.Failed++
			e.metrics.UserFailure(jobReconcile)
			log.WithField("user_id", user.ID).Warnf("failed to reconcile user: %v", err)
			continue
		}

		switch res {
		case outcomeAutoRemoved:
			report.AutoRemoved++
		case outcomeEscalated:
			report.Escalated++
		}
	}

	log.Infof(
		"reconciliation done: checked=%d auto_removed=%d escalated=%d failed=%d",
		report.Checked, report.AutoRemoved, report.Escalated, report.Failed,
	)
	return report, nil
}

func (e *Engine) reconcileUser(ctx context.Context, user *models.User) (outcome, error) {
	inPrimary, err := e.isPresent(ctx, e.settings.Chats.Primary, user.ID)
	if err != nil {
		return outcomeNone, err
	}
	inSecondary, err := e.isPresent(ctx, e.settings.Chats.Secondary, user.ID)
	if err != nil {
		return outcomeNone, err
	}

	exists, err := e.store.SetPresence(ctx, user.ID, inPrimary, inSecondary)
	if err != nil {
		return outcomeNone, fmt.Errorf("storing presence: %w", err)
	}
	if !exists {
		// Removed while the sweep was running.
		return outcomeNone, nil
	}
	user.InPrimaryChat, user.InSecondaryChat = inPrimary, inSecondary

	switch {
	case inSecondary && !inPrimary:
		return e.autoRemove(ctx, user)
	case !inPrimary || !inSecondary:
		return e.escalateAbsence(ctx, user)
	case user.AbsenceAlert != models.AbsenceNone:
		if _, err := e.store.SetAbsenceAlert(ctx, user.ID, models.AbsenceNone); err != nil {
			return outcomeNone, fmt.Errorf("clearing absence alert: %w", err)
		}
	}
	return outcomeNone, nil
}

// autoRemove handles membership in the secondary chat without the primary one,
// which never needs an admin decision.
func (e *Engine) autoRemove(ctx context.Context, user *models.User) (outcome, error) {
	if err := e.remove(ctx, user, TriggerAutoRemove); err != nil {
		return outcomeNone, err
	}

	if err := e.notify(ctx, notify.Notification{
		Kind:    notify.KindInformational,
		Reason:  notify.ReasonAutoRemoved,
		Subject: user,
		Message: fmt.Sprintf(
			"User removed from the %s: not in the %s\n\n%s",
			chatTitle(models.ChatSecondary),
			chatTitle(models.ChatPrimary),
			notify.FormatUser(user, e.now(), false),
		),
	}); err != nil {
		e.log.WithField("user_id", user.ID).Warnf("failed to report auto removal: %v", err)
	}
	return outcomeAutoRemoved, nil
}

// escalateAbsence asks admins to decide on a user missing from a chat, once
// per distinct absence.
func (e *Engine) escalateAbsence(ctx context.Context, user *models.User) (outcome, error) {
	absence := models.AbsenceSecondary
	left := []string{chatTitle(models.ChatSecondary)}
	if !user.InPrimaryChat {
		absence = models.AbsenceBoth
		left = []string{chatTitle(models.ChatPrimary), chatTitle(models.ChatSecondary)}
	}

	if user.AbsenceAlert == absence {
		return outcomeNone, nil
	}

	if err := e.notify(ctx, notify.Notification{
		Kind:    notify.KindDecisionRequest,
		Reason:  notify.ReasonLeftChats,
		Subject: user,
		Message: fmt.Sprintf(
			"User left: %s\n\n%s",
			strings.Join(left, ", "),
			notify.FormatUser(user, e.now(), false),
		),
	}); err != nil {
		return outcomeNone, err
	}

	if _, err := e.store.SetAbsenceAlert(ctx, user.ID, absence); err != nil {
		return outcomeNone, fmt.Errorf("storing absence alert: %w", err)
	}
	user.AbsenceAlert = absence
	return outcomeEscalated, nil
}

func (e *Engine) isPresent(ctx context.Context, chatID, userID int64) (bool, error) {
	status, err := e.oracle.MemberStatus(ctx, chatID, userID)
	if err != nil {
		return false, fmt.Errorf("getting member status: %w", err)
	}
	return status.Present(), nil
}
