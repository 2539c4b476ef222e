package keyboard

import (
	"fmt"
	"strconv"
	"strings"
)

type CallbackAction string

const (
	CallbackActionTrialApprove CallbackAction = "trial_approve"
	CallbackActionTrialRemove  CallbackAction = "trial_remove"
)

func (a CallbackAction) String() string {
	return string(a)
}

func (a CallbackAction) prefix() string {
	return "\f" + a.String()
}

func (a CallbackAction) DataMatches(data string) bool {
	return data == a.prefix() || strings.HasPrefix(data, a.prefix()+"|")
}

// ParseDecision extracts the decision action and target user from raw callback data.
func ParseDecision(data string) (CallbackAction, int64, error) {
	for _, action := range []CallbackAction{CallbackActionTrialApprove, CallbackActionTrialRemove} {
		if !action.DataMatches(data) {
			continue
		}
		payload := strings.TrimPrefix(strings.TrimPrefix(data, action.prefix()), "|")
		userID, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return "", 0, fmt.Errorf("parsing user id %q: %w", payload, err)
		}
		return action, userID, nil
	}
	return "", 0, fmt.Errorf("unknown callback data %q", data)
}
