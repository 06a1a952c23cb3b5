// Package render builds transport-neutral replies: texts, item cards and
// keyboards. The bot package turns them into Telegram requests.
package render

import (
	"github.com/user/movie-bot-go/internal/model"
)

// ModeMarkdownV2 is the Telegram parse mode used for item captions
const ModeMarkdownV2 = "MarkdownV2"

// Button is an inline button carrying either callback data or a URL
type Button struct {
	Text string
	Data string
	URL  string
}

// Media is an opaque media reference sent by file ID
type Media struct {
	Ref  string
	Kind model.MediaKind
}

// Reply is a single outbound message.
// When Media is set, Text is used as the caption.
// Keyboard replaces the reply keyboard; Inline attaches buttons to the message.
type Reply struct {
	Text      string
	ParseMode string
	Media     *Media
	Inline    [][]Button
	Keyboard  [][]string
}

// HasKeyboard reports whether the reply replaces the reply keyboard
func (r Reply) HasKeyboard() bool {
	return len(r.Keyboard) > 0
}
