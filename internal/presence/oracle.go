package presence

import "context"

// Status is a user's membership status in a chat as reported by the platform.
type Status string

const (
	StatusCreator       Status = "creator"
	StatusAdministrator Status = "administrator"
	StatusMember        Status = "member"
	StatusRestricted    Status = "restricted"
	StatusLeft          Status = "left"
	StatusKicked        Status = "kicked"
	// StatusNotFound means the platform does not know the user in that chat.
	StatusNotFound Status = "not_found"
)

// Present reports whether the status counts as being in the chat.
// Restricted members are reported as StatusLeft by the oracle when they are not members.
func (s Status) Present() bool {
	switch s {
	case StatusCreator, StatusAdministrator, StatusMember, StatusRestricted:
		return true
	}
	return false
}

// Oracle answers membership questions and removes users from chats.
type Oracle interface {
	MemberStatus(ctx context.Context, chatID, userID int64) (Status, error)
	// Expel removes the user from the chat without banning them permanently.
	Expel(ctx context.Context, chatID, userID int64) error
	ApproveJoinRequest(ctx context.Context, chatID, userID int64) error
}
