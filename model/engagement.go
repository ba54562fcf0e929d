package model

import (
	"time"

	"gorm.io/gorm"
)

/*

ItemLike is a "many-to-many" relation of user liking a content item

UserID: user id
ItemID: content item id
CreatedAt: time when relation is created
DeletedAt: time when relation is deleted, a like toggle-off soft deletes the
	row so the viewer's history is preserved

*/
type ItemLike struct {
	UserID    string `gorm:"primaryKey"`
	ItemID    string `gorm:"primaryKey"`
	CreatedAt time.Time
	DeletedAt gorm.DeletedAt
}

/*

ItemRepost is a user resharing a content item into their own timeline

The repost time (CreatedAt) participates in feed ranking: a repost by a
relevant actor produces a REPOST activity signal ranked by repost time.

*/
type ItemRepost struct {
	Id        string `gorm:"primaryKey"`
	CreatedAt time.Time
	DeletedAt gorm.DeletedAt
	ItemID    string `gorm:"index"`
	UserID    string
}

// ItemReaction is a single emoji reaction by a user on a content item.
type ItemReaction struct {
	Id        string `gorm:"primaryKey"`
	CreatedAt time.Time
	DeletedAt gorm.DeletedAt
	ItemID    string `gorm:"index"`
	UserID    string
	Emoji     string
}

type ItemComment struct {
	Id        string `gorm:"primaryKey"`
	CreatedAt time.Time
	DeletedAt gorm.DeletedAt
	ItemID    string `gorm:"index"`
	AuthorID  string
	Text      string
}

/*

ReactionBucket is the per-emoji aggregate surfaced on a feed row

Count: number of users who reacted with Emoji
Mine: whether the viewer is among them

*/
type ReactionBucket struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
	Mine  bool   `json:"mine"`
}
