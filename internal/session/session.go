package session

import (
	"context"
	"errors"
)

// ErrNoPending means the admin has no pending action or it has expired.
var ErrNoPending = errors.New("no pending action")

// Action is a multi-step admin command waiting for a user id.
type Action string

const (
	ActionRemoveUser  Action = "remove_user"
	ActionSkipTrial   Action = "skip_trial"
	ActionAddAdmin    Action = "add_admin"
	ActionRemoveAdmin Action = "remove_admin"
)

func (a Action) Valid() bool {
	switch a {
	case ActionRemoveUser, ActionSkipTrial, ActionAddAdmin, ActionRemoveAdmin:
		return true
	}
	return false
}

// Store keeps at most one pending action per admin. Take consumes it.
type Store interface {
	Set(ctx context.Context, adminID int64, action Action) error
	Take(ctx context.Context, adminID int64) (Action, error)
	Clear(ctx context.Context, adminID int64) error
}
