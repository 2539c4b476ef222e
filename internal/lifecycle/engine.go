package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/C4T-BuT-S4D/trialbot/internal/metrics"
	"github.com/C4T-BuT-S4D/trialbot/internal/models"
	"github.com/C4T-BuT-S4D/trialbot/internal/notify"
	"github.com/C4T-BuT-S4D/trialbot/internal/presence"
	"github.com/C4T-BuT-S4D/trialbot/internal/storage"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotAdmin   = errors.New("not an admin")
	ErrNotTracked = errors.New("user is not tracked")
)

// Store is the user record store. Every mutation touches a single row.
type Store interface {
	CreateUserIfAbsent(ctx context.Context, user *models.User) (*models.User, bool, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	ListUsersByStatus(ctx context.Context, status models.UserStatus) ([]*models.User, error)
	ListExpiredTrials(ctx context.Context, now time.Time) ([]*models.User, error)
	ListExpiringTrials(ctx context.Context, now time.Time, window time.Duration) ([]*models.User, error)
	MarkExpiryNotified(ctx context.Context, userID int64) error
	SetUserStatus(ctx context.Context, userID int64, status models.UserStatus) (bool, error)
	SetPresence(ctx context.Context, userID int64, inPrimary, inSecondary bool) (bool, error)
	SetChatPresence(ctx context.Context, userID int64, chat models.Chat, present bool) (bool, error)
	SetAbsenceAlert(ctx context.Context, userID int64, absence models.Absence) (bool, error)
	DeleteUser(ctx context.Context, userID int64) (bool, error)

	AddAdmin(ctx context.Context, adminID int64) (bool, error)
	RemoveAdmin(ctx context.Context, adminID int64) (bool, error)
	ListAdmins(ctx context.Context) ([]int64, error)
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

// Chats holds the platform ids of the two managed chats.
type Chats struct {
	Primary   int64
	Secondary int64
}

func (c Chats) Resolve(chatID int64) (models.Chat, bool) {
	switch chatID {
	case c.Primary:
		return models.ChatPrimary, true
	case c.Secondary:
		return models.ChatSecondary, true
	}
	return "", false
}

func (c Chats) ID(chat models.Chat) int64 {
	if chat == models.ChatPrimary {
		return c.Primary
	}
	return c.Secondary
}

type Settings struct {
	Chats         Chats
	TrialDuration time.Duration
	ExpiryWarning time.Duration
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Candidate is a platform user about to be tracked.
type Candidate struct {
	ID       int64
	Name     string
	Username string
}

// Trigger names what caused a removal.
type Trigger string

const (
	TriggerDecision   Trigger = "decision"
	TriggerAutoRemove Trigger = "auto_remove"
	TriggerDeparture  Trigger = "departure"
)

type Engine struct {
	settings Settings
	store    Store
	oracle   presence.Oracle
	notifier notify.Channel
	metrics  *metrics.Metrics
	now      func() time.Time
	log      *logrus.Entry

	// sweepMu keeps reconciliation runs from overlapping.
	sweepMu sync.Mutex
}

func NewEngine(settings Settings, store Store, oracle presence.Oracle, notifier notify.Channel, opts ...Option) *Engine {
	e := &Engine{
		settings: settings,
		store:    store,
		oracle:   oracle,
		notifier: notifier,
		now:      time.Now,
		log:      logrus.WithField("component", "lifecycle"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Now() time.Time {
	return e.now()
}

func (e *Engine) Settings() Settings {
	return e.settings
}

// Admit starts tracking a user on trial. Admitting an already tracked user
// returns the existing record untouched.
func (e *Engine) Admit(ctx context.Context, c Candidate) (*models.User, bool, error) {
	joined := e.now().UTC().Truncate(time.Microsecond)
	user, created, err := e.store.CreateUserIfAbsent(ctx, &models.User{
		ID:              c.ID,
		Name:            c.Name,
		Username:        c.Username,
		JoinedAt:        joined,
		TrialEndsAt:     joined.Add(e.settings.TrialDuration),
		Status:          models.UserStatusTrial,
		InPrimaryChat:   true,
		InSecondaryChat: true,
	})
	if err != nil {
		return nil, false, fmt.Errorf("creating user: %w", err)
	}
	if created {
		e.log.WithField("user_id", user.ID).Infof("User %d (%s) started trial until %s", user.ID, user.Username, user.TrialEndsAt)
	}
	return user, created, nil
}

// Approve moves a user to approved. It serves both the "keep" decision and "skip trial".
func (e *Engine) Approve(ctx context.Context, actorID, userID int64) (*models.User, error) {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	user, err := e.lookup(ctx, userID)
	if err != nil {
		return nil, err
	}

	ok, err := e.store.SetUserStatus(ctx, userID, models.UserStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("approving user: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotTracked)
	}
	user.Status = models.UserStatusApproved

	e.log.WithFields(logrus.Fields{"user_id": userID, "actor_id": actorID}).Infof("User %d approved", userID)
	return user, nil
}

// Remove expels the user from both chats and deletes the record.
func (e *Engine) Remove(ctx context.Context, actorID, userID int64) (*models.User, error) {
	if err := e.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	user, err := e.lookup(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := e.remove(ctx, user, TriggerDecision); err != nil {
		return nil, err
	}
	user.Status = models.UserStatusRemoved
	return user, nil
}

// remove expels the user from every managed chat they appear in and deletes
// the record. Expel failures are logged and never stop the deletion.
func (e *Engine) remove(ctx context.Context, user *models.User, trigger Trigger) error {
	log := e.log.WithFields(logrus.Fields{"user_id": user.ID, "trigger": trigger})

	for _, chat := range []models.Chat{models.ChatPrimary, models.ChatSecondary} {
		chatID := e.settings.Chats.ID(chat)

		status, err := e.oracle.MemberStatus(ctx, chatID, user.ID)
		switch {
		case err != nil:
			log.Warnf("failed to get status in %s chat, expelling anyway: %v", chat, err)
		case !status.Present():
			continue
		}

		if err := e.oracle.Expel(ctx, chatID, user.ID); err != nil {
			log.Errorf("failed to expel user from %s chat: %v", chat, err)
			continue
		}
		log.Infof("User %d expelled from %s chat", user.ID, chat)
	}

	deleted, err := e.store.DeleteUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("deleting user %d: %w", user.ID, err)
	}
	if !deleted {
		log.Debugf("user %d was already deleted", user.ID)
	}

	e.metrics.Removal(string(trigger))
	log.Infof("User %d removed", user.ID)
	return nil
}

func (e *Engine) lookup(ctx context.Context, userID int64) (*models.User, error) {
	user, err := e.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotTracked)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return user, nil
}

func (e *Engine) notify(ctx context.Context, n notify.Notification) error {
	err := e.notifier.Notify(ctx, n)
	e.metrics.Notification(string(n.Reason), err == nil)
	if err != nil {
		return fmt.Errorf("notifying %s: %w", n.Reason, err)
	}
	return nil
}

func chatTitle(chat models.Chat) string {
	if chat == models.ChatPrimary {
		return "work chat"
	}
	return "study group"
}
