package access

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/user/movie-bot-go/internal/model"
	"github.com/user/movie-bot-go/internal/render"
	"github.com/user/movie-bot-go/internal/server"
)

// SubscriptionRecorder persists the latest subscription status
type SubscriptionRecorder interface {
	UpdateSubscription(ctx context.Context, userID int64, subscribed bool) error
}

// Decision is the outcome of one gate check
type Decision struct {
	// Allowed permits exactly one downstream action
	Allowed bool
	// Granted is set when a cached denial turned into an allowance
	Granted bool
	// Prompt is the reply to send when not allowed
	Prompt render.Reply
}

// Gate verifies channel membership before every protected action.
// It never caches: every call asks the oracle again.
type Gate struct {
	oracle   Oracle
	users    SubscriptionRecorder
	policy   Policy
	renderer *render.Renderer
}

// NewGate creates a new gate
func NewGate(oracle Oracle, users SubscriptionRecorder, policy Policy, renderer *render.Renderer) *Gate {
	return &Gate{
		oracle:   oracle,
		users:    users,
		policy:   policy,
		renderer: renderer,
	}
}

// Policy returns the gate's access policy
func (g *Gate) Policy() Policy {
	return g.policy
}

// Authorize checks the user's subscription and records the result.
// Any oracle failure denies access.
func (g *Gate) Authorize(ctx context.Context, user *model.User) Decision {
	logger := zerolog.Ctx(ctx)

	subscribed, err := g.check(ctx, user.ID)
	if err != nil {
		reason := FailureReason(err)
		server.RecordOracleFailure(reason)
		if reason == "not_member" {
			logger.Debug().Err(err).Int64("userID", user.ID).Str("reason", reason).Msg("Subscription check denied")
		} else {
			logger.Warn().Err(err).Int64("userID", user.ID).Str("reason", reason).Msg("Subscription check failed")
		}
		subscribed = false
	}

	if err := g.users.UpdateSubscription(ctx, user.ID, subscribed); err != nil {
		logger.Error().Err(err).Int64("userID", user.ID).Msg("Failed to persist subscription status")
	}

	server.RecordGateDecision(subscribed)

	decision := Decision{
		Allowed: subscribed,
		Granted: subscribed && !user.IsSubscribed,
	}
	user.IsSubscribed = subscribed
	if !subscribed {
		decision.Prompt = g.renderer.SubscriptionPrompt(user.Language, g.policy.ChannelURL())
	}
	return decision
}

type checkResult struct {
	subscribed bool
	err        error
}

// check calls the oracle under the policy timeout.
// The oracle may ignore its context, so the wait is bounded here as well.
func (g *Gate) check(ctx context.Context, userID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, g.policy.CheckTimeout())
	defer cancel()

	resultCh := make(chan checkResult, 1)
	go func() {
		subscribed, err := g.oracle.IsSubscribed(ctx, userID)
		resultCh <- checkResult{subscribed: subscribed, err: err}
	}()

	select {
	case res := <-resultCh:
		return res.subscribed, res.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
