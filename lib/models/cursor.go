package models

import (
	"time"

	"gorm.io/gorm"
)

// PollCursor records what has already been observed for one service
// connection. State is the serialized detect.State. A cursor only ever moves
// forward: it is created on the first successful poll, rewritten at the end
// of every successful cycle, and deleted with its connection.
type PollCursor struct {
	gorm.Model
	ServiceConnectionID uint `gorm:"uniqueIndex"`
	LastPolledAt        time.Time
	State               string

	ServiceConnection ServiceConnection
}
