package models

import (
	"fmt"
	"time"
)

type UserStatus string

const (
	UserStatusTrial    UserStatus = "trial"
	UserStatusApproved UserStatus = "approved"
	// UserStatusRemoved is never stored: removal deletes the row.
	UserStatusRemoved UserStatus = "removed"
)

// Chat names one of the two managed chats.
type Chat string

const (
	ChatPrimary   Chat = "primary"
	ChatSecondary Chat = "secondary"
)

// Absence is the set of managed chats a user was last escalated as missing from.
type Absence string

const (
	AbsenceNone      Absence = ""
	AbsenceSecondary Absence = "secondary"
	AbsenceBoth      Absence = "both"
)

type User struct {
	ID       int64 `gorm:"primaryKey;autoIncrement:false"`
	Name     string
	Username string

	JoinedAt    time.Time  `gorm:"not null"`
	TrialEndsAt time.Time  `gorm:"not null;index"`
	Status      UserStatus `gorm:"not null;index"`

	InPrimaryChat      bool
	InSecondaryChat    bool
	NotifiedExpirySoon bool
	AbsenceAlert       Absence

	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (u *User) InChat(chat Chat) bool {
	if chat == ChatPrimary {
		return u.InPrimaryChat
	}
	return u.InSecondaryChat
}

func (u *User) String() string {
	return fmt.Sprintf("User(%d, %q, %s)", u.ID, u.Username, u.Status)
}
