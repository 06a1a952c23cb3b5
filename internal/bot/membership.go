package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/user/movie-bot-go/internal/access"
)

// memberGetter is the part of the bot API the oracle needs
type memberGetter interface {
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// MembershipOracle checks channel membership through getChatMember
type MembershipOracle struct {
	api     memberGetter
	channel tgbotapi.ChatConfigWithUser
}

// NewMembershipOracle creates an oracle for a channel given as a numeric
// ID or an @username
func NewMembershipOracle(api memberGetter, channelID string) *MembershipOracle {
	return &MembershipOracle{
		api:     api,
		channel: channelConfig(channelID),
	}
}

// channelConfig maps a configured channel onto the request fields
func channelConfig(channelID string) tgbotapi.ChatConfigWithUser {
	channelID = strings.TrimSpace(channelID)
	if id, err := strconv.ParseInt(channelID, 10, 64); err == nil {
		return tgbotapi.ChatConfigWithUser{ChatID: id}
	}
	if !strings.HasPrefix(channelID, "@") {
		channelID = "@" + channelID
	}
	return tgbotapi.ChatConfigWithUser{SuperGroupUsername: channelID}
}

// IsSubscribed reports whether userID is currently in the channel.
// The bot API call takes no context; callers bound it with their own timeout.
func (o *MembershipOracle) IsSubscribed(ctx context.Context, userID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	cfg := o.channel
	cfg.UserID = userID
	member, err := o.api.GetChatMember(tgbotapi.GetChatMemberConfig{ChatConfigWithUser: cfg})
	if err != nil {
		return false, classifyMemberError(err)
	}
	return IsActiveMember(member)
}

// IsActiveMember classifies a chat member status.
// Restricted users count only while they are still in the chat.
func IsActiveMember(member tgbotapi.ChatMember) (bool, error) {
	switch member.Status {
	case "creator", "administrator", "member":
		return true, nil
	case "restricted":
		if member.IsMember {
			return true, nil
		}
		return false, fmt.Errorf("status restricted: %w", access.ErrNotMember)
	case "left", "kicked":
		return false, fmt.Errorf("status %s: %w", member.Status, access.ErrNotMember)
	default:
		return false, fmt.Errorf("unknown member status %q", member.Status)
	}
}

// classifyMemberError maps Telegram API errors onto the access sentinels
func classifyMemberError(err error) error {
	var apiErr *tgbotapi.Error
	var message string
	var code int
	if errors.As(err, &apiErr) {
		message, code = apiErr.Message, apiErr.Code
	} else {
		var valErr tgbotapi.Error
		if !errors.As(err, &valErr) {
			return fmt.Errorf("failed to get chat member: %w", err)
		}
		message, code = valErr.Message, valErr.Code
	}

	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "user not found"), strings.Contains(lower, "participant_id_invalid"):
		return fmt.Errorf("%s: %w", message, access.ErrNotMember)
	case strings.Contains(lower, "chat not found"), strings.Contains(lower, "channel_invalid"):
		return fmt.Errorf("%s: %w", message, access.ErrInvalidChannel)
	case code == 403,
		strings.Contains(lower, "member list is inaccessible"),
		strings.Contains(lower, "chat_admin_required"),
		strings.Contains(lower, "not enough rights"):
		return fmt.Errorf("%s: %w", message, access.ErrNoPermission)
	default:
		return fmt.Errorf("failed to get chat member: %w", err)
	}
}
