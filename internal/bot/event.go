package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/user/movie-bot-go/internal/model"
)

// EventKind is the shape of an inbound event
type EventKind int

const (
	EventCommand EventKind = iota + 1
	EventText
	EventCallback
	EventMedia
	EventContact
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventText:
		return "text"
	case EventCallback:
		return "callback"
	case EventMedia:
		return "media"
	case EventContact:
		return "contact"
	default:
		return "unknown"
	}
}

// Sender identifies who produced an event
type Sender struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// Event is a transport-neutral inbound event
type Event struct {
	Kind   EventKind
	ChatID int64
	From   Sender

	// Command and Args for EventCommand
	Command string
	Args    string
	// Text for EventText
	Text string
	// CallbackID and Data for EventCallback
	CallbackID string
	Data       string
	// Media for EventMedia
	MediaRef  string
	MediaKind model.MediaKind
	// Phone for EventContact
	Phone string
}

// EventFromUpdate maps a Telegram update onto an event.
// Updates the bot does not act on return false.
func EventFromUpdate(update tgbotapi.Update) (Event, bool) {
	if cb := update.CallbackQuery; cb != nil {
		if cb.From == nil {
			return Event{}, false
		}
		ev := Event{
			Kind:       EventCallback,
			ChatID:     cb.From.ID,
			From:       senderOf(cb.From),
			CallbackID: cb.ID,
			Data:       cb.Data,
		}
		if cb.Message != nil && cb.Message.Chat != nil {
			ev.ChatID = cb.Message.Chat.ID
		}
		return ev, true
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return Event{}, false
	}
	// Private conversations only
	if !msg.Chat.IsPrivate() {
		return Event{}, false
	}

	ev := Event{ChatID: msg.Chat.ID, From: senderOf(msg.From)}
	switch {
	case msg.IsCommand():
		ev.Kind = EventCommand
		ev.Command = strings.ToLower(msg.Command())
		ev.Args = strings.TrimSpace(msg.CommandArguments())
	case msg.Video != nil:
		ev.Kind = EventMedia
		ev.MediaRef = msg.Video.FileID
		ev.MediaKind = model.MediaVideo
	case msg.Document != nil:
		ev.Kind = EventMedia
		ev.MediaRef = msg.Document.FileID
		ev.MediaKind = model.MediaDocument
	case msg.Contact != nil:
		// Only the sender's own number is stored
		if msg.Contact.UserID != msg.From.ID {
			return Event{}, false
		}
		ev.Kind = EventContact
		ev.Phone = msg.Contact.PhoneNumber
	case msg.Text != "":
		ev.Kind = EventText
		ev.Text = msg.Text
	default:
		return Event{}, false
	}
	return ev, true
}

func senderOf(u *tgbotapi.User) Sender {
	return Sender{
		ID:        u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
