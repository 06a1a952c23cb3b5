// Package access decides whether a user may perform a protected action.
package access

import (
	"time"

	"github.com/user/movie-bot-go/internal/config"
)

// DefaultCheckTimeout bounds an oracle call when no timeout is configured
const DefaultCheckTimeout = 5 * time.Second

// Policy is the immutable access configuration.
// Build it once at startup and share it by value.
type Policy struct {
	admins       map[int64]struct{}
	channelURL   string
	checkTimeout time.Duration
}

// NewPolicy builds a policy from an admin list, a channel URL and an oracle timeout
func NewPolicy(adminIDs []int64, channelURL string, checkTimeout time.Duration) Policy {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	if checkTimeout <= 0 {
		checkTimeout = DefaultCheckTimeout
	}
	return Policy{
		admins:       admins,
		channelURL:   channelURL,
		checkTimeout: checkTimeout,
	}
}

// PolicyFromConfig builds a policy from loaded configuration
func PolicyFromConfig(cfg *config.Config) Policy {
	return NewPolicy(cfg.Admin.IDs, cfg.Channel.InviteURL(), cfg.Channel.CheckTimeout)
}

// IsAdmin reports whether userID is an administrator
func (p Policy) IsAdmin(userID int64) bool {
	_, ok := p.admins[userID]
	return ok
}

// ChannelURL returns the public link shown in the subscription prompt
func (p Policy) ChannelURL() string {
	return p.channelURL
}

// CheckTimeout returns the bound on a single oracle call
func (p Policy) CheckTimeout() time.Duration {
	return p.checkTimeout
}
