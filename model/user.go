package model

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	Id          string `gorm:"primaryKey"`
	CreatedAt   time.Time
	DeletedAt   gorm.DeletedAt
	Handle      string
	DisplayName string
	IconUrl     string
}

/*

UserRef is a lightweight, cacheable reference to a user record

It is looked up lazily when building feed rows and cached per session (and
cross-session in Redis). It is a back-reference only and never owns the user
record: any field other than Uid may be empty if the lookup degraded.

*/
type UserRef struct {
	Uid         string `json:"uid"`
	Handle      string `json:"handle,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	IconUrl     string `json:"icon_url,omitempty"`
}

func (u *User) Ref() *UserRef {
	return &UserRef{
		Uid:         u.Id,
		Handle:      u.Handle,
		DisplayName: u.DisplayName,
		IconUrl:     u.IconUrl,
	}
}
