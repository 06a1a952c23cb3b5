package model

import (
	"time"
)

// MediaKind defines how an item's media reference is delivered
type MediaKind string

const (
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
)

// ItemIDLength is the length of a catalog item identifier
const ItemIDLength = 8

// ItemIDAlphabet is the symbol set item identifiers are drawn from
const ItemIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Item represents a catalog entry
type Item struct {
	ID          string    `gorm:"primaryKey;size:8"`
	Title       string    `gorm:"size:255;not null"`
	Description string    `gorm:"type:text"`
	Genre       string    `gorm:"size:100"`
	Year        int       `gorm:"default:0"`
	MediaRef    string    `gorm:"size:255;not null"`
	MediaKind   MediaKind `gorm:"size:16;not null"`
	AddedBy     int64     `gorm:"index"`
	Views       int64     `gorm:"default:0;not null"`
	CreatedAt   time.Time `gorm:"index"`
}

// TableName returns the table name for Item
func (Item) TableName() string {
	return "items"
}

// IsValidItemID reports whether id has the catalog identifier format
func IsValidItemID(id string) bool {
	if len(id) != ItemIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
