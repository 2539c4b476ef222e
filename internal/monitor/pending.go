package monitor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/C4T-BuT-S4D/trialbot/internal/keyboard"
	"github.com/C4T-BuT-S4D/trialbot/internal/lifecycle"
	"github.com/C4T-BuT-S4D/trialbot/internal/models"
	"github.com/C4T-BuT-S4D/trialbot/internal/notify"
	"github.com/C4T-BuT-S4D/trialbot/internal/session"
)

// Operations are the admin commands reachable from the bot.
type Operations interface {
	Approve(ctx context.Context, actorID, userID int64) (*models.User, error)
	Remove(ctx context.Context, actorID, userID int64) (*models.User, error)
	AddAdmin(ctx context.Context, actorID, targetID int64) (bool, error)
	RemoveAdmin(ctx context.Context, actorID, targetID int64) (bool, error)
}

var menuActions = map[string]session.Action{
	keyboard.MenuRemoveUser:  session.ActionRemoveUser,
	keyboard.MenuSkipTrial:   session.ActionSkipTrial,
	keyboard.MenuAddAdmin:    session.ActionAddAdmin,
	keyboard.MenuRemoveAdmin: session.ActionRemoveAdmin,
}

var actionPrompts = map[session.Action]string{
	session.ActionRemoveUser:  "Send the ID of the user to remove from both chats",
	session.ActionSkipTrial:   "Send the ID of the user to keep without trial",
	session.ActionAddAdmin:    "Send the ID of the new administrator",
	session.ActionRemoveAdmin: "Send the ID of the administrator to remove",
}

// applyPending completes a multi-step command with the id the admin sent.
// Expected outcomes are reported as text; the error is for failures only.
func applyPending(ctx context.Context, ops Operations, actorID int64, action session.Action, input string) (string, error) {
	targetID, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil {
		return "Invalid ID, pick the command again", nil
	}

	switch action {
	case session.ActionRemoveUser:
		user, err := ops.Remove(ctx, actorID, targetID)
		if errors.Is(err, lifecycle.ErrNotTracked) {
			return fmt.Sprintf("User %d is not tracked", targetID), nil
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("User %s (%d) removed from both chats", notify.FormatUsername(user.Username), user.ID), nil

	case session.ActionSkipTrial:
		user, err := ops.Approve(ctx, actorID, targetID)
		if errors.Is(err, lifecycle.ErrNotTracked) {
			return fmt.Sprintf("User %d is not tracked", targetID), nil
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("User %s (%d) kept, trial skipped", notify.FormatUsername(user.Username), user.ID), nil

	case session.ActionAddAdmin:
		added, err := ops.AddAdmin(ctx, actorID, targetID)
		if err != nil {
			return "", err
		}
		if !added {
			return fmt.Sprintf("%d is already an administrator", targetID), nil
		}
		return fmt.Sprintf("Administrator %d added", targetID), nil

	case session.ActionRemoveAdmin:
		removed, err := ops.RemoveAdmin(ctx, actorID, targetID)
		if err != nil {
			return "", err
		}
		if !removed {
			return fmt.Sprintf("%d is not an administrator", targetID), nil
		}
		return fmt.Sprintf("Administrator %d removed", targetID), nil
	}

	return "", fmt.Errorf("unknown pending action %q", action)
}

// chunkLines joins lines into messages no longer than limit bytes.
// A single line longer than limit gets a message of its own.
func chunkLines(header string, lines []string, limit int) []string {
	var (
		chunks []string
		sb     strings.Builder
	)
	sb.WriteString(header)
	for _, line := range lines {
		if sb.Len() > 0 && sb.Len()+len(line)+1 > limit {
			chunks = append(chunks, sb.String())
			sb.Reset()
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
	}
	if sb.Len() > 0 {
		chunks = append(chunks, sb.String())
	}
	return chunks
}

func formatReport(r lifecycle.SweepReport) string {
	if r.Issues() == 0 && r.Failed == 0 {
		return fmt.Sprintf("Check done: %d users, everything is fine", r.Checked)
	}
	return fmt.Sprintf(
		"Check done: %d users\nRemoved automatically: %d\nWaiting for decision: %d\nFailed to check: %d",
		r.Checked, r.AutoRemoved, r.Escalated, r.Failed,
	)
}
