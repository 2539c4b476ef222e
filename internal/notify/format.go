package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/C4T-BuT-S4D/trialbot/internal/models"
)

func FormatUsername(username string) string {
	if username == "" {
		return "no username"
	}
	return "@" + username
}

// FormatDuration renders d as "D d. H h. M min.", rounding down to minutes.
func FormatDuration(d time.Duration) string {
	minutes := int64(d / time.Minute)
	days := minutes / (24 * 60)
	hours := minutes % (24 * 60) / 60
	return fmt.Sprintf("%d d. %d h. %d min.", days, hours, minutes%60)
}

func FormatRemaining(trialEndsAt, now time.Time) string {
	left := trialEndsAt.Sub(now)
	if left < time.Minute {
		return "expired"
	}
	return FormatDuration(left)
}

func statusMark(status models.UserStatus) string {
	if status == models.UserStatusApproved {
		return "🟢"
	}
	return "🟡"
}

// FormatUser renders a user card; withRemaining adds the trial time left for trial users.
func FormatUser(u *models.User, now time.Time, withRemaining bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\nID: %d\n%s", statusMark(u.Status), u.Name, u.ID, FormatUsername(u.Username))
	if withRemaining && u.Status == models.UserStatusTrial {
		fmt.Fprintf(&sb, "\nRemaining: %s", FormatRemaining(u.TrialEndsAt, now))
	}
	return sb.String()
}

// FormatListItem renders a single line for user listings.
func FormatListItem(u *models.User, now time.Time) string {
	state := "Kept"
	if u.Status == models.UserStatusTrial {
		state = FormatRemaining(u.TrialEndsAt, now)
	}
	return fmt.Sprintf("%d | %s | %s | %s", u.ID, FormatUsername(u.Username), u.Name, state)
}
