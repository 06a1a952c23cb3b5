package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/movie-bot-go/internal/access"
	"github.com/user/movie-bot-go/internal/model"
	"github.com/user/movie-bot-go/internal/render"
)

type fakeMemberGetter struct {
	member tgbotapi.ChatMember
	err    error
	last   tgbotapi.GetChatMemberConfig
}

func (f *fakeMemberGetter) GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	f.last = config
	return f.member, f.err
}

func TestIsActiveMember(t *testing.T) {
	tests := []struct {
		status   string
		isMember bool
		want     bool
		sentinel error
	}{
		{"creator", false, true, nil},
		{"administrator", false, true, nil},
		{"member", false, true, nil},
		{"restricted", true, true, nil},
		{"restricted", false, false, access.ErrNotMember},
		{"left", false, false, access.ErrNotMember},
		{"kicked", false, false, access.ErrNotMember},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got, err := IsActiveMember(tgbotapi.ChatMember{Status: tt.status, IsMember: tt.isMember})
			assert.Equal(t, tt.want, got)
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := IsActiveMember(tgbotapi.ChatMember{Status: "ghost"})
	assert.Error(t, err)
}

func TestClassifyMemberError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"user not found", &tgbotapi.Error{Code: 400, Message: "Bad Request: user not found"}, access.ErrNotMember},
		{"chat not found", &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}, access.ErrInvalidChannel},
		{"forbidden", &tgbotapi.Error{Code: 403, Message: "Forbidden: bot is not a member of the channel chat"}, access.ErrNoPermission},
		{"inaccessible", tgbotapi.Error{Code: 400, Message: "Bad Request: member list is inaccessible"}, access.ErrNoPermission},
		{"admin required", &tgbotapi.Error{Code: 400, Message: "Bad Request: CHAT_ADMIN_REQUIRED"}, access.ErrNoPermission},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyMemberError(tt.err), tt.sentinel)
		})
	}

	network := errors.New("connection reset")
	err := classifyMemberError(network)
	assert.ErrorIs(t, err, network)
	assert.Equal(t, "other", access.FailureReason(err))
}

func TestMembershipOracle(t *testing.T) {
	getter := &fakeMemberGetter{member: tgbotapi.ChatMember{Status: "member"}}

	oracle := NewMembershipOracle(getter, "@movies")
	ok, err := oracle.IsSubscribed(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "@movies", getter.last.SuperGroupUsername)
	assert.Equal(t, int64(42), getter.last.UserID)

	oracle = NewMembershipOracle(getter, "-1001234567890")
	_, err = oracle.IsSubscribed(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(-1001234567890), getter.last.ChatID)

	getter.err = &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}
	ok, err = oracle.IsSubscribed(context.Background(), 42)
	assert.False(t, ok)
	assert.ErrorIs(t, err, access.ErrInvalidChannel)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = oracle.IsSubscribed(ctx, 42)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChannelConfig(t *testing.T) {
	assert.Equal(t, "@movies", channelConfig("movies").SuperGroupUsername)
	assert.Equal(t, "@movies", channelConfig(" @movies ").SuperGroupUsername)
	assert.Equal(t, int64(-100), channelConfig("-100").ChatID)
}

func TestBuildChattable(t *testing.T) {
	text := buildChattable(42, render.Reply{Text: "hi", Keyboard: [][]string{{"A", "B"}}})
	msg, ok := text.(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, "hi", msg.Text)
	keyboard, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.True(t, keyboard.ResizeKeyboard)
	assert.Equal(t, "B", keyboard.Keyboard[0][1].Text)

	video := buildChattable(42, render.Reply{
		Text:      "*t*",
		ParseMode: render.ModeMarkdownV2,
		Media:     &render.Media{Ref: "vid", Kind: model.MediaVideo},
		Inline:    [][]render.Button{{{Text: "Watch", Data: "watch:AB12CD34"}}, {{Text: "Join", URL: "https://t.me/x"}}},
	})
	vc, ok := video.(tgbotapi.VideoConfig)
	require.True(t, ok)
	assert.Equal(t, "*t*", vc.Caption)
	assert.Equal(t, tgbotapi.FileID("vid"), vc.File)
	inline, ok := vc.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.NotNil(t, inline.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "watch:AB12CD34", *inline.InlineKeyboard[0][0].CallbackData)
	require.NotNil(t, inline.InlineKeyboard[1][0].URL)
	assert.Equal(t, "https://t.me/x", *inline.InlineKeyboard[1][0].URL)

	doc := buildChattable(42, render.Reply{Media: &render.Media{Ref: "doc", Kind: model.MediaDocument}})
	dc, ok := doc.(tgbotapi.DocumentConfig)
	require.True(t, ok)
	assert.Nil(t, dc.ReplyMarkup)
}

func TestNewHTTPClient_Timeout(t *testing.T) {
	assert.Equal(t, 60*time.Second+requestSlack, newHTTPClient(60).Timeout)
	assert.Equal(t, requestSlack, newHTTPClient(0).Timeout)
	assert.Equal(t, requestSlack, newHTTPClient(-5).Timeout)
}
