package access

import (
	"context"
	"errors"
)

var (
	// ErrNotMember means the user is not in the channel
	ErrNotMember = errors.New("user is not a channel member")
	// ErrNoPermission means the bot may not read the channel's members
	ErrNoPermission = errors.New("bot lacks permission to check membership")
	// ErrInvalidChannel means the configured channel does not exist
	ErrInvalidChannel = errors.New("invalid channel")
)

// Oracle answers whether a user is subscribed to the channel
type Oracle interface {
	IsSubscribed(ctx context.Context, userID int64) (bool, error)
}

// OracleFunc adapts a function to the Oracle interface
type OracleFunc func(ctx context.Context, userID int64) (bool, error)

// IsSubscribed calls f
func (f OracleFunc) IsSubscribed(ctx context.Context, userID int64) (bool, error) {
	return f(ctx, userID)
}

// FailureReason classifies an oracle error for logs and metrics
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotMember):
		return "not_member"
	case errors.Is(err, ErrNoPermission):
		return "no_permission"
	case errors.Is(err, ErrInvalidChannel):
		return "invalid_channel"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}
