package model

import (
	"time"
)

// RelationKind names a user-to-item association
type RelationKind string

const (
	RelationWatchLater RelationKind = "watch_later"
	RelationWatched    RelationKind = "watched"
)

// WatchLater is a removable bookmark of an item by a user
type WatchLater struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_watch_later_pair"`
	ItemID    string    `gorm:"size:8;not null;uniqueIndex:idx_watch_later_pair;index"`
	CreatedAt time.Time `gorm:"index"`
}

// TableName returns the table name for WatchLater
func (WatchLater) TableName() string {
	return "watch_later"
}

// Watched is the append-only record of a user having watched an item
type Watched struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_watched_pair"`
	ItemID    string    `gorm:"size:8;not null;uniqueIndex:idx_watched_pair;index"`
	CreatedAt time.Time `gorm:"index"`
}

// TableName returns the table name for Watched
func (Watched) TableName() string {
	return "watched"
}

// TableFor returns the relation table backing a kind
func TableFor(kind RelationKind) (string, bool) {
	switch kind {
	case RelationWatchLater:
		return WatchLater{}.TableName(), true
	case RelationWatched:
		return Watched{}.TableName(), true
	default:
		return "", false
	}
}
