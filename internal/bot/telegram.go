package bot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/user/movie-bot-go/internal/model"
	"github.com/user/movie-bot-go/internal/render"
	"golang.org/x/time/rate"
)

// Replier delivers rendered replies to a chat
type Replier interface {
	Send(ctx context.Context, chatID int64, reply render.Reply) error
	Acknowledge(callbackID string) error
}

var _ Replier = (*Client)(nil)

// Client wraps the Telegram Bot API for sending messages
type Client struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter // Telegram rate limit shared by all outbound sends
}

// requestSlack is added on top of the long-poll timeout for every API request
const requestSlack = 15 * time.Second

// newHTTPClient bounds every Bot API request. Long polling holds a request
// open for pollTimeout seconds, so the bound must exceed it.
func newHTTPClient(pollTimeout int) *http.Client {
	if pollTimeout < 0 {
		pollTimeout = 0
	}
	return &http.Client{Timeout: time.Duration(pollTimeout)*time.Second + requestSlack}
}

// NewClient creates a new Telegram client with the given bot token.
// sendRate is the maximum number of outbound requests per second;
// pollTimeout is the long-poll timeout in seconds.
func NewClient(token string, sendRate float64, pollTimeout int) (*Client, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, newHTTPClient(pollTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	if sendRate <= 0 {
		sendRate = 30
	}

	return &Client{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(sendRate), 1),
	}, nil
}

// GetAPI returns the underlying bot API for advanced operations
func (c *Client) GetAPI() *tgbotapi.BotAPI {
	return c.api
}

// Username returns the bot's own username
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// GetUpdates returns a channel for receiving updates from Telegram
func (c *Client) GetUpdates(timeout int) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	u.AllowedUpdates = []string{"message", "callback_query"}
	return c.api.GetUpdatesChan(u)
}

// StopReceivingUpdates stops the update channel
func (c *Client) StopReceivingUpdates() {
	c.api.StopReceivingUpdates()
}

// Send renders a reply into a Telegram request and sends it
func (c *Client) Send(ctx context.Context, chatID int64, reply render.Reply) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	if _, err := c.api.Send(buildChattable(chatID, reply)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Acknowledge answers a callback query so the client stops its spinner
func (c *Client) Acknowledge(callbackID string) error {
	if _, err := c.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

// buildChattable maps a reply onto the matching Telegram request
func buildChattable(chatID int64, reply render.Reply) tgbotapi.Chattable {
	markup := replyMarkup(reply)

	if reply.Media != nil {
		file := tgbotapi.FileID(reply.Media.Ref)
		if reply.Media.Kind == model.MediaDocument {
			doc := tgbotapi.NewDocument(chatID, file)
			doc.Caption = reply.Text
			doc.ParseMode = reply.ParseMode
			doc.ReplyMarkup = markup
			return doc
		}
		video := tgbotapi.NewVideo(chatID, file)
		video.Caption = reply.Text
		video.ParseMode = reply.ParseMode
		video.ReplyMarkup = markup
		return video
	}

	msg := tgbotapi.NewMessage(chatID, reply.Text)
	msg.ParseMode = reply.ParseMode
	msg.ReplyMarkup = markup
	return msg
}

// replyMarkup returns inline buttons when present, otherwise a reply keyboard
func replyMarkup(reply render.Reply) interface{} {
	if len(reply.Inline) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(reply.Inline))
		for _, row := range reply.Inline {
			buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				if b.URL != "" {
					buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
				} else {
					buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
				}
			}
			rows = append(rows, buttons)
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	if reply.HasKeyboard() {
		rows := make([][]tgbotapi.KeyboardButton, 0, len(reply.Keyboard))
		for _, row := range reply.Keyboard {
			buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
			for _, label := range row {
				buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
			}
			rows = append(rows, buttons)
		}
		return tgbotapi.NewReplyKeyboard(rows...)
	}

	return nil
}
