package lifecycle_test

import (
	"context"
	"testing"

	"github.com/C4T-BuT-S4D/trialbot/internal/lifecycle"
	"github.com/C4T-BuT-S4D/trialbot/internal/models"
	"github.com/C4T-BuT-S4D/trialbot/internal/notify"
	"github.com/stretchr/testify/require"
)

func TestHandleJoinRequest(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	candidate := lifecycle.Candidate{ID: 10, Name: "Alice", Username: "alice"}

	require.NoError(t, e.engine.HandleJoinRequest(ctx, -999, candidate))
	require.Empty(t, e.oracle.approved)
	require.False(t, e.tracked(t, 10))

	require.NoError(t, e.engine.HandleJoinRequest(ctx, secondaryChat, candidate))
	require.Equal(t, []string{"-200/10"}, e.oracle.approved)
	require.False(t, e.tracked(t, 10))

	require.NoError(t, e.engine.HandleJoinRequest(ctx, primaryChat, candidate))
	require.Equal(t, []string{"-200/10", "-100/10"}, e.oracle.approved)

	user, err := e.store.GetUser(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, models.UserStatusTrial, user.Status)
	require.Equal(t, "alice", user.Username)
	require.WithinDuration(t, t0.Add(trialDuration), user.TrialEndsAt, 0)
}

func TestHandleMemberJoined(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.engine.HandleMemberJoined(ctx, -999, lifecycle.Candidate{ID: 10}))
	require.False(t, e.tracked(t, 10))

	require.NoError(t, e.engine.HandleMemberJoined(ctx, secondaryChat, lifecycle.Candidate{ID: 10, Name: "Bob"}))
	require.True(t, e.tracked(t, 10))

	_, err := e.store.SetChatPresence(ctx, 10, models.ChatPrimary, false)
	require.NoError(t, err)

	e.clock.now = t0.Add(trialDuration)
	require.NoError(t, e.engine.HandleMemberJoined(ctx, primaryChat, lifecycle.Candidate{ID: 10, Name: "Bob"}))

	user, err := e.store.GetUser(ctx, 10)
	require.NoError(t, err)
	require.True(t, user.InPrimaryChat)
	require.WithinDuration(t, t0, user.JoinedAt, 0)
}

func TestHandleMemberLeft_Primary(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.admit(t, 10)

	require.NoError(t, e.engine.HandleMemberLeft(ctx, primaryChat, 10))

	user, err := e.store.GetUser(ctx, 10)
	require.NoError(t, err)
	require.False(t, user.InPrimaryChat)
	require.True(t, user.InSecondaryChat)
	require.Empty(t, e.oracle.expelled)

	require.Len(t, e.channel.sent, 1)
	require.Equal(t, notify.ReasonLeftPrimary, e.channel.sent[0].Reason)
	require.False(t, e.channel.sent[0].NeedsDecision())
}

func TestHandleMemberLeft_SecondaryRemovesEverywhere(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.admit(t, 10)
	e.oracle.set(10, true, false)

	require.NoError(t, e.engine.HandleMemberLeft(ctx, secondaryChat, 10))

	require.False(t, e.tracked(t, 10))
	require.Equal(t, []string{"-100/10"}, e.oracle.expelled)
	require.Equal(t, []notify.Reason{notify.ReasonLeftSecondary}, e.channel.reasons())
}

func TestHandleMemberLeft_Untracked(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.engine.HandleMemberLeft(ctx, secondaryChat, 42))
	require.NoError(t, e.engine.HandleMemberLeft(ctx, -999, 42))
	require.Empty(t, e.channel.sent)
	require.Empty(t, e.oracle.expelled)
}
