package model

import (
	"time"

	"gorm.io/gorm"
)

/*

Friendship is a mutual relation between two users

A friendship only grants visibility into FRIENDS_ONLY items once Accepted is
set. Rows are stored one way (UserID requested FriendID); lookups consider
both directions.

*/
type Friendship struct {
	UserID    string `gorm:"primaryKey"`
	FriendID  string `gorm:"primaryKey"`
	CreatedAt time.Time
	DeletedAt gorm.DeletedAt
	Accepted  bool
}

/*

Watch is a one-directional follow relation

Watching an owner only surfaces the owner's PUBLIC items in the watcher's
feed, it never grants FRIENDS_ONLY visibility.

*/
type Watch struct {
	UserID    string `gorm:"primaryKey"`
	OwnerID   string `gorm:"primaryKey"`
	CreatedAt time.Time
	DeletedAt gorm.DeletedAt
}

// Mute hides the muted user's comments from the muter's feed rows.
type Mute struct {
	UserID    string `gorm:"primaryKey"`
	MutedID   string `gorm:"primaryKey"`
	CreatedAt time.Time
	DeletedAt gorm.DeletedAt
}
