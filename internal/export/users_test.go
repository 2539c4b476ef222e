package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/C4T-BuT-S4D/trialbot/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestUsersWorkbook(t *testing.T) {
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	joined := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	users := []*models.User{
		{
			ID:              10,
			Name:            "Alice",
			Username:        "alice",
			JoinedAt:        joined,
			TrialEndsAt:     joined.Add(192 * time.Hour),
			Status:          models.UserStatusTrial,
			InPrimaryChat:   true,
			InSecondaryChat: false,
		},
		{
			ID:              11,
			Name:            "Bob",
			JoinedAt:        joined,
			TrialEndsAt:     joined.Add(192 * time.Hour),
			Status:          models.UserStatusApproved,
			InPrimaryChat:   true,
			InSecondaryChat: true,
		},
	}

	data, err := UsersWorkbook(users, now)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	require.Equal(t, []string{UsersSheet}, f.GetSheetList())

	rows, err := f.GetRows(UsersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"ID", "Username", "Name", "Status", "Joined", "Trial ends", "Remaining", "Primary", "Secondary"}, rows[0])
	require.Equal(t, []string{"10", "@alice", "Alice", "trial", "2024-03-01 12:00", "2024-03-09 12:00", "4 d. 0 h. 0 min.", "yes", "no"}, rows[1])
	require.Equal(t, []string{"11", "no username", "Bob", "approved", "2024-03-01 12:00", "2024-03-09 12:00", "-", "yes", "yes"}, rows[2])
}

func TestUsersWorkbook_Empty(t *testing.T) {
	data, err := UsersWorkbook(nil, time.Now())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(UsersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestUsersFileName(t *testing.T) {
	require.Equal(t, "users_20240305_120000.xlsx", UsersFileName(time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)))
}
