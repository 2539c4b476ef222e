package monitor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/C4T-BuT-S4D/trialbot/internal/lifecycle"
	"github.com/C4T-BuT-S4D/trialbot/internal/models"
	"github.com/C4T-BuT-S4D/trialbot/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v4"
)

type fakeOps struct {
	users  map[int64]*models.User
	admins map[int64]bool
	calls  []string
}

func newFakeOps() *fakeOps {
	return &fakeOps{
		users:  map[int64]*models.User{10: {ID: 10, Username: "alice", Status: models.UserStatusTrial}},
		admins: map[int64]bool{1: true},
	}
}

func (f *fakeOps) user(id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, lifecycle.ErrNotTracked)
	}
	return u, nil
}

func (f *fakeOps) Approve(_ context.Context, actorID, userID int64) (*models.User, error) {
	f.calls = append(f.calls, fmt.Sprintf("approve %d by %d", userID, actorID))
	return f.user(userID)
}

func (f *fakeOps) Remove(_ context.Context, actorID, userID int64) (*models.User, error) {
	f.calls = append(f.calls, fmt.Sprintf("remove %d by %d", userID, actorID))
	u, err := f.user(userID)
	if err == nil {
		delete(f.users, userID)
	}
	return u, err
}

func (f *fakeOps) AddAdmin(_ context.Context, _, targetID int64) (bool, error) {
	if f.admins[targetID] {
		return false, nil
	}
	f.admins[targetID] = true
	return true, nil
}

func (f *fakeOps) RemoveAdmin(_ context.Context, _, targetID int64) (bool, error) {
	if !f.admins[targetID] {
		return false, nil
	}
	delete(f.admins, targetID)
	return true, nil
}

func TestApplyPending(t *testing.T) {
	for _, tc := range []struct {
		name   string
		action session.Action
		input  string
		want   string
	}{
		{name: "remove", action: session.ActionRemoveUser, input: "10", want: "User @alice (10) removed from both chats"},
		{name: "remove untracked", action: session.ActionRemoveUser, input: "11", want: "User 11 is not tracked"},
		{name: "skip trial", action: session.ActionSkipTrial, input: " 10 ", want: "User @alice (10) kept, trial skipped"},
		{name: "skip trial untracked", action: session.ActionSkipTrial, input: "11", want: "User 11 is not tracked"},
		{name: "add admin", action: session.ActionAddAdmin, input: "5", want: "Administrator 5 added"},
		{name: "add existing admin", action: session.ActionAddAdmin, input: "1", want: "1 is already an administrator"},
		{name: "remove admin", action: session.ActionRemoveAdmin, input: "1", want: "Administrator 1 removed"},
		{name: "remove missing admin", action: session.ActionRemoveAdmin, input: "7", want: "7 is not an administrator"},
		{name: "bad id", action: session.ActionRemoveUser, input: "alice", want: "Invalid ID, pick the command again"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			reply, err := applyPending(context.Background(), newFakeOps(), 1, tc.action, tc.input)
			require.NoError(t, err)
			require.Equal(t, tc.want, reply)
		})
	}
}

func TestApplyPending_UnknownAction(t *testing.T) {
	ops := newFakeOps()
	_, err := applyPending(context.Background(), ops, 1, session.Action("bogus"), "10")
	require.Error(t, err)
	require.Empty(t, ops.calls)
}

type deniedOps struct{ fakeOps }

func (deniedOps) Remove(context.Context, int64, int64) (*models.User, error) {
	return nil, lifecycle.ErrNotAdmin
}

func TestApplyPending_PropagatesFailures(t *testing.T) {
	_, err := applyPending(context.Background(), &deniedOps{}, 2, session.ActionRemoveUser, "10")
	require.ErrorIs(t, err, lifecycle.ErrNotAdmin)
}

func TestChunkLines(t *testing.T) {
	lines := []string{"aaaa", "bbbb", "cccc"}

	require.Equal(t, []string{"head\naaaa\nbbbb\ncccc"}, chunkLines("head", lines, 100))
	require.Equal(t, []string{"head\naaaa", "bbbb\ncccc"}, chunkLines("head", lines, 10))
	require.Equal(t, []string{"head", "aaaa", "bbbb", "cccc"}, chunkLines("head", lines, 4))
	require.Nil(t, chunkLines("", nil, 10))

	for _, chunk := range chunkLines("", []string{strings.Repeat("x", 6), "y"}, 8) {
		assert.LessOrEqual(t, len(chunk), 8)
	}
}

func TestFormatReport(t *testing.T) {
	require.Equal(t, "Check done: 3 users, everything is fine", formatReport(lifecycle.SweepReport{Checked: 3}))
	require.Equal(t,
		"Check done: 3 users\nRemoved automatically: 1\nWaiting for decision: 1\nFailed to check: 0",
		formatReport(lifecycle.SweepReport{Checked: 3, AutoRemoved: 1, Escalated: 1}),
	)
}

func TestPresent(t *testing.T) {
	for _, tc := range []struct {
		member *telebot.ChatMember
		want   bool
	}{
		{member: nil, want: false},
		{member: &telebot.ChatMember{Role: telebot.Creator}, want: true},
		{member: &telebot.ChatMember{Role: telebot.Administrator}, want: true},
		{member: &telebot.ChatMember{Role: telebot.Member}, want: true},
		{member: &telebot.ChatMember{Role: telebot.Restricted, Member: true}, want: true},
		{member: &telebot.ChatMember{Role: telebot.Restricted}, want: false},
		{member: &telebot.ChatMember{Role: telebot.Left}, want: false},
		{member: &telebot.ChatMember{Role: telebot.Kicked}, want: false},
	} {
		assert.Equal(t, tc.want, present(tc.member), "%+v", tc.member)
	}
}

func TestCandidate(t *testing.T) {
	require.Equal(t,
		lifecycle.Candidate{ID: 1, Name: "Ann Lee", Username: "ann"},
		candidate(&telebot.User{ID: 1, FirstName: "Ann", LastName: "Lee", Username: "ann"}),
	)
	require.Equal(t,
		lifecycle.Candidate{ID: 2, Name: "bob", Username: "bob"},
		candidate(&telebot.User{ID: 2, Username: "bob"}),
	)
}
