package lifecycle

import (
	"context"
	"fmt"

	"github.com/C4T-BuT-S4D/trialbot/internal/models"
	"github.com/C4T-BuT-S4D/trialbot/internal/notify"
	"github.com/sirupsen/logrus"
)

func (e *Engine) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	ok, err := e.store.IsAdmin(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("checking admin: %w", err)
	}
	return ok, nil
}

func (e *Engine) requireAdmin(ctx context.Context, actorID int64) error {
	ok, err := e.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %d: %w", actorID, ErrNotAdmin)
	}
	return nil
}

// AddAdmin grants admin rights. While there are no admins at all, a user may
// grant them to themselves.
func (e *Engine) AddAdmin(ctx context.Context, actorID, targetID int64) (bool, error) {
	err := e.requireAdmin(ctx, actorID)
	if err != nil {
		admins, listErr := e.store.ListAdmins(ctx)
		if listErr != nil {
			return false, fmt.Errorf("listing admins: %w", listErr)
		}
		if len(admins) > 0 || actorID != targetID {
			return false, err
		}
		e.log.WithField("actor_id", actorID).Warnf("Bootstrapping first admin %d", targetID)
	}

	created, err := e.store.AddAdmin(ctx, targetID)
	if err != nil {
		return false, fmt.Errorf("adding admin: %w", err)
	}
	e.log.WithFields(logrus.Fields{"actor_id": actorID, "admin_id": targetID}).Infof("Admin %d added", targetID)
	return created, nil
}

func (e *Engine) RemoveAdmin(ctx context.Context, actorID, targetID int64) (bool, error) {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return false, err
	}

	removed, err := e.store.RemoveAdmin(ctx, targetID)
	if err != nil {
		return false, fmt.Errorf("removing admin: %w", err)
	}
	e.log.WithFields(logrus.Fields{"actor_id": actorID, "admin_id": targetID}).Infof("Admin %d removed", targetID)
	return removed, nil
}

func (e *Engine) Admins(ctx context.Context, actorID int64) ([]int64, error) {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return e.store.ListAdmins(ctx)
}

func (e *Engine) Users(ctx context.Context, actorID int64) ([]*models.User, error) {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return e.store.ListUsers(ctx)
}

// TrialUsers lists users still on trial, soonest expiry first.
func (e *Engine) TrialUsers(ctx context.Context, actorID int64) ([]*models.User, error) {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return e.store.ListUsersByStatus(ctx, models.UserStatusTrial)
}

// CheckNow runs a reconciliation sweep on behalf of an admin.
func (e *Engine) CheckNow(ctx context.Context, actorID int64) (SweepReport, error) {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return SweepReport{}, err
	}
	return e.Reconcile(ctx)
}

func (e *Engine) AnnounceStartup(ctx context.Context) error {
	return e.notify(ctx, notify.Notification{
		Kind:   notify.KindInformational,
		Reason: notify.ReasonStartup,
		Message: fmt.Sprintf(
			"Bot started and ready\n\nTrial period: %s",
			notify.FormatDuration(e.settings.TrialDuration),
		),
	})
}
