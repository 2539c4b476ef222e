package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/C4T-BuT-S4D/trialbot/internal/models"
	"github.com/C4T-BuT-S4D/trialbot/internal/notify"
	"github.com/xuri/excelize/v2"
)

const (
	UsersSheet = "Users"
	timeLayout = "2006-01-02 15:04"
)

var usersHeader = []interface{}{
	"ID",
	"Username",
	"Name",
	"Status",
	"Joined",
	"Trial ends",
	"Remaining",
	"Primary",
	"Secondary",
}

// UsersWorkbook renders tracked users as an xlsx file, one row per user.
func UsersWorkbook(users []*models.User, now time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), UsersSheet); err != nil {
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}

	if err := f.SetSheetRow(UsersSheet, "A1", &usersHeader); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}

	for i, u := range users {
		remaining := "-"
		if u.Status == models.UserStatusTrial {
			remaining = notify.FormatRemaining(u.TrialEndsAt, now)
		}

		row := []interface{}{
			u.ID,
			notify.FormatUsername(u.Username),
			u.Name,
			string(u.Status),
			u.JoinedAt.UTC().Format(timeLayout),
			u.TrialEndsAt.UTC().Format(timeLayout),
			remaining,
			yesNo(u.InPrimaryChat),
			yesNo(u.InSecondaryChat),
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("getting cell name: %w", err)
		}
		if err := f.SetSheetRow(UsersSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("writing user %d: %w", u.ID, err)
		}
	}

	if err := f.SetColWidth(UsersSheet, "A", "I", 18); err != nil {
		return nil, fmt.Errorf("setting column width: %w", err)
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// UsersFileName names an export made at now.
func UsersFileName(now time.Time) string {
	return fmt.Sprintf("users_%s.xlsx", now.UTC().Format("20060102_150405"))
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
