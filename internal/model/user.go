package model

import (
	"time"
)

// Language is one of the supported interface languages
type Language string

const (
	LangEnglish Language = "en"
	LangRussian Language = "ru"
	LangUzbek   Language = "uz"
)

// DefaultLanguage is used for new users and for unknown codes
const DefaultLanguage = LangEnglish

// Languages lists the supported languages in picker order
var Languages = []Language{LangUzbek, LangRussian, LangEnglish}

// ParseLanguage returns the language for a code and whether it is supported
func ParseLanguage(code string) (Language, bool) {
	switch Language(code) {
	case LangEnglish, LangRussian, LangUzbek:
		return Language(code), true
	default:
		return DefaultLanguage, false
	}
}

// User represents a Telegram user known to the bot
type User struct {
	ID           int64    `gorm:"primaryKey;autoIncrement:false"`
	PhoneNumber  string   `gorm:"size:32"`
	Username     string   `gorm:"size:64"`
	FirstName    string   `gorm:"size:128"`
	LastName     string   `gorm:"size:128"`
	Language     Language `gorm:"size:2;not null;default:en"`
	IsSubscribed bool     `gorm:"default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for User
func (User) TableName() string {
	return "users"
}

// DisplayName returns the best human-readable name for the user
func (u *User) DisplayName() string {
	switch {
	case u.Username != "":
		return "@" + u.Username
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return "-"
	}
}
