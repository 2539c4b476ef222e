package models

import "time"

const GlobalStateID = 1

// BotState is a singleton row keeping long polling position across restarts.
type BotState struct {
	ID           int `gorm:"primaryKey;autoIncrement:false"`
	LastUpdateID int
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}
