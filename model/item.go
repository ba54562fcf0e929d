package model

import (
	"time"

	"gorm.io/gorm"
)

/*

ContentItem is a user created post/album aggregated into the activity feed

Id: primary key, use to identify a content item
CreatedAt: time when entity is created
DeletedAt: time when entity is deleted
OwnerID:
Owner: user who created this item, "belongs-to" relation

Title: item's title in plain text
Visibility: either PUBLIC or FRIENDS_ONLY, a FRIENDS_ONLY item must never be
	served to a viewer who is neither the owner nor an accepted friend of the
	owner, no matter how the viewer reached the item (e.g. through a watch)

*/
type ContentItem struct {
	Id         string `gorm:"primaryKey"`
	CreatedAt  time.Time
	DeletedAt  gorm.DeletedAt
	OwnerID    string `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Owner      User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Title      string
	Visibility Visibility
}

/*

ItemImage is an image attached to a content item

UploaderID is not necessarily the item owner: participants other than the
owner can add images to an item, which is surfaced in the feed as an
IMAGE_ADDED activity signal.

*/
type ItemImage struct {
	Id         string `gorm:"primaryKey"`
	CreatedAt  time.Time
	DeletedAt  gorm.DeletedAt
	ItemID     string `gorm:"index"`
	UploaderID string
	Url        string
}
