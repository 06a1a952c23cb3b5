package bot

import (
	"context"
	"errors"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/user/movie-bot-go/internal/access"
	"github.com/user/movie-bot-go/internal/catalog"
	"github.com/user/movie-bot-go/internal/model"
	"github.com/user/movie-bot-go/internal/render"
	"github.com/user/movie-bot-go/internal/server"
	"github.com/user/movie-bot-go/internal/session"
	"github.com/user/movie-bot-go/internal/store"
)

// recentUsersLimit bounds the admin user listing
const recentUsersLimit = 20

// Handler turns inbound events into catalog operations and replies
type Handler struct {
	store    store.Store
	catalog  *catalog.Service
	gate     *access.Gate
	policy   access.Policy
	sessions *session.Store
	resolver *session.Resolver
	renderer *render.Renderer
	sender   Replier

	wg sync.WaitGroup
}

// NewHandler creates a new event handler
func NewHandler(
	store store.Store,
	catalog *catalog.Service,
	gate *access.Gate,
	sessions *session.Store,
	resolver *session.Resolver,
	renderer *render.Renderer,
	sender Replier,
) *Handler {
	return &Handler{
		store:    store,
		catalog:  catalog,
		gate:     gate,
		policy:   gate.Policy(),
		sessions: sessions,
		resolver: resolver,
		renderer: renderer,
		sender:   sender,
	}
}

// Run handles updates until the channel closes or ctx is done.
// Each update runs in its own goroutine; stopping Run does not cancel
// updates already in flight, use Wait for those.
func (h *Handler) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	handlerCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			h.wg.Add(1)
			go func(u tgbotapi.Update) {
				defer h.wg.Done()
				defer func() {
					if r := recover(); r != nil {
						server.RecordError("panic")
						log.Error().Interface("panic", r).Int("updateID", u.UpdateID).Msg("Recovered from panic in update handler")
					}
				}()
				h.HandleUpdate(handlerCtx, u)
			}(update)
		}
	}
}

// Wait blocks until in-flight updates finish
func (h *Handler) Wait() {
	h.wg.Wait()
}

// HandleUpdate processes an incoming Telegram update
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	ev, ok := EventFromUpdate(update)
	if !ok {
		return
	}
	h.HandleEvent(ctx, ev)
}

// HandleEvent processes one event while holding the sender's session lock
func (h *Handler) HandleEvent(ctx context.Context, ev Event) {
	logger := log.With().
		Str("eventID", uuid.NewString()).
		Int64("userID", ev.From.ID).
		Str("kind", ev.Kind.String()).
		Logger()
	ctx = logger.WithContext(ctx)

	unlock := h.sessions.Lock(ev.From.ID)
	defer unlock()

	if ev.Kind == EventCallback {
		defer h.acknowledge(ctx, ev.CallbackID)
	}

	user, err := h.ensureUser(ctx, ev.From)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to register user")
		server.RecordError("store")
		h.send(ctx, ev.ChatID, h.renderer.Text(model.DefaultLanguage, "generic_error"))
		return
	}

	// The language picker is reachable before subscribing
	if ev.Kind == EventCommand && ev.Args == "" && (ev.Command == "start" || ev.Command == "language") {
		h.sessions.Reset(user.ID)
		server.RecordIntent(session.ChooseLanguage.String())
		h.send(ctx, ev.ChatID, h.renderer.LanguagePicker(user.Language))
		return
	}
	if ev.Kind == EventCallback {
		if action, arg, ok := render.ParseCallback(ev.Data); ok && action == render.ActionLanguage {
			h.handleLanguage(ctx, ev, user, model.Language(arg))
			return
		}
	}

	decision := h.gate.Authorize(ctx, user)
	if !decision.Allowed {
		h.send(ctx, ev.ChatID, decision.Prompt)
		return
	}
	if decision.Granted {
		h.send(ctx, ev.ChatID, h.renderer.MainMenu(user.Language, h.policy.IsAdmin(user.ID), h.text(user, "subscribed")))
	}

	switch ev.Kind {
	case EventCommand:
		intent, next := h.resolver.ResolveCommand(h.policy.IsAdmin(user.ID), h.sessions.Get(user.ID), ev.Command, ev.Args)
		h.sessions.Set(user.ID, next)
		h.execute(ctx, ev, user, intent)
	case EventText:
		intent, next := h.resolver.Resolve(user.Language, h.policy.IsAdmin(user.ID), h.sessions.Get(user.ID), ev.Text)
		h.sessions.Set(user.ID, next)
		h.execute(ctx, ev, user, intent)
	case EventMedia:
		intent, next := h.resolver.ResolveMedia(h.policy.IsAdmin(user.ID), h.sessions.Get(user.ID))
		h.sessions.Set(user.ID, next)
		h.execute(ctx, ev, user, intent)
	case EventContact:
		h.handleContact(ctx, ev, user)
	case EventCallback:
		h.handleCallback(ctx, ev, user)
	}
}

// ensureUser registers the sender or refreshes their display attributes
func (h *Handler) ensureUser(ctx context.Context, from Sender) (*model.User, error) {
	return h.store.UpsertUser(ctx, &model.User{
		ID:        from.ID,
		Username:  from.Username,
		FirstName: from.FirstName,
		LastName:  from.LastName,
		Language:  model.DefaultLanguage,
	})
}

// handleLanguage stores the chosen language, then shows the menu or the
// subscription prompt
func (h *Handler) handleLanguage(ctx context.Context, ev Event, user *model.User, lang model.Language) {
	logger := zerolog.Ctx(ctx)
	server.RecordIntent("set_language")

	if err := h.store.UpdateLanguage(ctx, user.ID, lang); err != nil {
		logger.Error().Err(err).Str("language", string(lang)).Msg("Failed to update language")
		h.sendError(ctx, ev.ChatID, user)
		return
	}
	user.Language = lang

	decision := h.gate.Authorize(ctx, user)
	if !decision.Allowed {
		h.send(ctx, ev.ChatID, decision.Prompt)
		return
	}

	text := h.text(user, "language_changed")
	if decision.Granted {
		text = h.text(user, "subscribed")
	}
	h.send(ctx, ev.ChatID, h.renderer.MainMenu(lang, h.policy.IsAdmin(user.ID), text))
}

// execute runs the single handler for a resolved intent
func (h *Handler) execute(ctx context.Context, ev Event, user *model.User, intent session.Intent) {
	logger := zerolog.Ctx(ctx)
	server.RecordIntent(intent.Kind.String())
	logger.Debug().Str("intent", intent.Kind.String()).Msg("Resolved intent")

	lang := user.Language
	isAdmin := h.policy.IsAdmin(user.ID)

	switch intent.Kind {
	case session.MainMenu, session.Cancel:
		h.send(ctx, ev.ChatID, h.renderer.MainMenu(lang, isAdmin, ""))

	case session.ChooseLanguage:
		h.send(ctx, ev.ChatID, h.renderer.LanguagePicker(lang))

	case session.ListAll:
		items, err := h.catalog.ListAll(ctx)
		h.sendItems(ctx, ev.ChatID, user, items, err, render.CardBrowse, "no_movies")

	case session.ListWatchLater:
		items, err := h.catalog.ListForUser(ctx, user.ID, model.RelationWatchLater)
		h.sendItems(ctx, ev.ChatID, user, items, err, render.CardWatchLater, "watch_later_empty")

	case session.ListWatched:
		items, err := h.catalog.ListForUser(ctx, user.ID, model.RelationWatched)
		h.sendItems(ctx, ev.ChatID, user, items, err, render.CardWatched, "watched_empty")

	case session.SearchPrompt, session.LookupPrompt:
		h.send(ctx, ev.ChatID, h.renderer.Text(lang, intent.Prompt))

	case session.Search:
		items, err := h.catalog.Search(ctx, intent.Arg)
		if err == nil && len(items) == 0 {
			h.send(ctx, ev.ChatID, h.renderer.Text(lang, "search_empty", intent.Arg))
			return
		}
		h.sendItems(ctx, ev.ChatID, user, items, err, render.CardBrowse, "movie_not_found")

	case session.LookupByID:
		item, err := h.catalog.Get(ctx, intent.Arg)
		if err != nil {
			logger.Error().Err(err).Str("itemID", intent.Arg).Msg("Failed to look up item")
			h.sendError(ctx, ev.ChatID, user)
			return
		}
		if item == nil {
			h.send(ctx, ev.ChatID, h.renderer.Text(lang, "movie_not_found"))
			return
		}
		h.send(ctx, ev.ChatID, h.renderer.ItemCard(lang, item, render.CardBrowse))

	case session.Account:
		watched, later, err := h.catalog.UserStats(ctx, user.ID)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to load user stats")
			h.sendError(ctx, ev.ChatID, user)
			return
		}
		h.send(ctx, ev.ChatID, h.renderer.Text(lang, "user_stats", watched, later))

	case session.AdminPanel:
		users, items, err := h.catalog.Totals(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to load totals")
			h.sendError(ctx, ev.ChatID, user)
			return
		}
		h.send(ctx, ev.ChatID, h.renderer.AdminPanel(lang, users, items))

	case session.ManageUsers:
		h.handleManageUsers(ctx, ev, user)

	case session.AdminStep:
		if intent.Prompt == "use_add_movie" {
			h.send(ctx, ev.ChatID, h.renderer.Text(lang, intent.Prompt))
			return
		}
		h.send(ctx, ev.ChatID, h.renderer.Prompt(lang, intent.Prompt))

	case session.AddItem:
		h.handleAddItem(ctx, ev, user, intent.Draft)

	case session.DeleteByID:
		h.handleDelete(ctx, ev, user, intent.Arg)

	default:
		h.send(ctx, ev.ChatID, h.renderer.Text(lang, "unknown_input"))
	}
}

// sendItems sends one card per item, or the empty message
func (h *Handler) sendItems(ctx context.Context, chatID int64, user *model.User, items []*model.Item, err error, cardCtx render.CardContext, emptyKey string) {
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to load items")
		h.sendError(ctx, chatID, user)
		return
	}
	if len(items) == 0 {
		h.send(ctx, chatID, h.renderer.Text(user.Language, emptyKey))
		return
	}
	if len(items) > catalog.MaxResults {
		items = items[:catalog.MaxResults]
	}
	for _, reply := range h.renderer.ItemCards(user.Language, items, cardCtx) {
		h.send(ctx, chatID, reply)
	}
}

// handleCallback serves inline button presses
func (h *Handler) handleCallback(ctx context.Context, ev Event, user *model.User) {
	logger := zerolog.Ctx(ctx)
	lang := user.Language

	action, itemID, ok := render.ParseCallback(ev.Data)
	if !ok {
		logger.Warn().Str("data", ev.Data).Msg("Ignoring malformed callback")
		return
	}
	server.RecordIntent("callback_" + string(action))

	item, err := h.catalog.Get(ctx, itemID)
	if err != nil {
		logger.Error().Err(err).Str("itemID", itemID).Msg("Failed to look up item")
		h.sendError(ctx, ev.ChatID, user)
		return
	}
	if item == nil && action != render.ActionUnlater {
		h.send(ctx, ev.ChatID, h.renderer.Text(lang, "movie_not_found"))
		return
	}

	switch action {
	case render.ActionWatch:
		if h.catalog.AddRelation(ctx, user.ID, item.ID, model.RelationWatched) == catalog.Failed {
			server.RecordError("relation")
		}
		h.send(ctx, ev.ChatID, h.renderer.Playback(item))

	case render.ActionLater:
		switch h.catalog.AddRelation(ctx, user.ID, item.ID, model.RelationWatchLater) {
		case catalog.Applied:
			h.send(ctx, ev.ChatID, h.renderer.Text(lang, "added_to_watch_later"))
		case catalog.Unchanged:
			h.send(ctx, ev.ChatID, h.renderer.Text(lang, "already_in_watch_later"))
		default:
			h.sendError(ctx, ev.ChatID, user)
		}

	case render.ActionUnlater:
		if h.catalog.RemoveRelation(ctx, user.ID, itemID, model.RelationWatchLater) == catalog.Failed {
			h.sendError(ctx, ev.ChatID, user)
			return
		}
		h.send(ctx, ev.ChatID, h.renderer.Text(lang, "removed_from_watch_later"))
	}
}

// handleContact stores the sender's shared phone number
func (h *Handler) handleContact(ctx context.Context, ev Event, user *model.User) {
	server.RecordIntent("share_contact")
	if err := h.store.UpdatePhone(ctx, user.ID, ev.Phone); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to save phone number")
		h.sendError(ctx, ev.ChatID, user)
		return
	}
	h.send(ctx, ev.ChatID, h.renderer.Text(user.Language, "contact_saved"))
}

// handleManageUsers lists the newest users for an admin
func (h *Handler) handleManageUsers(ctx context.Context, ev Event, user *model.User) {
	logger := zerolog.Ctx(ctx)

	total, _, err := h.catalog.Totals(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to count users")
		h.sendError(ctx, ev.ChatID, user)
		return
	}
	users, err := h.catalog.RecentUsers(ctx, recentUsersLimit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list users")
		h.sendError(ctx, ev.ChatID, user)
		return
	}
	h.send(ctx, ev.ChatID, h.renderer.UserList(user.Language, total, users))
}

// handleAddItem completes the add flow with the uploaded media
func (h *Handler) handleAddItem(ctx context.Context, ev Event, user *model.User, draft session.Draft) {
	item, err := h.catalog.AddItem(ctx, user.ID, catalog.Draft{
		Title:       draft.Title,
		Description: draft.Description,
		Genre:       draft.Genre,
		Year:        draft.Year,
		MediaRef:    ev.MediaRef,
		MediaKind:   ev.MediaKind,
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to add item")
		if errors.Is(err, catalog.ErrNotAdmin) {
			h.send(ctx, ev.ChatID, h.renderer.Text(user.Language, "unknown_input"))
			return
		}
		h.sendError(ctx, ev.ChatID, user)
		return
	}
	h.send(ctx, ev.ChatID, h.renderer.AdminMenu(user.Language, h.renderer.Texts().Format(user.Language, "movie_added_success", item.ID)))
}

// handleDelete removes an item by typed ID
func (h *Handler) handleDelete(ctx context.Context, ev Event, user *model.User, itemID string) {
	deleted, err := h.catalog.DeleteItem(ctx, user.ID, itemID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("itemID", itemID).Msg("Failed to delete item")
		h.sendError(ctx, ev.ChatID, user)
		return
	}
	key := "movie_not_found"
	if deleted {
		key = "movie_deleted"
	}
	h.send(ctx, ev.ChatID, h.renderer.AdminMenu(user.Language, h.text(user, key)))
}

func (h *Handler) text(user *model.User, key string) string {
	return h.renderer.Texts().Text(user.Language, key)
}

// send delivers a reply and logs failures
func (h *Handler) send(ctx context.Context, chatID int64, reply render.Reply) {
	if err := h.sender.Send(ctx, chatID, reply); err != nil {
		server.RecordError("send")
		zerolog.Ctx(ctx).Error().Err(err).Int64("chatID", chatID).Msg("Failed to send reply")
	}
}

// sendError sends the localized generic error message
func (h *Handler) sendError(ctx context.Context, chatID int64, user *model.User) {
	h.send(ctx, chatID, h.renderer.Text(user.Language, "generic_error"))
}

func (h *Handler) acknowledge(ctx context.Context, callbackID string) {
	if callbackID == "" {
		return
	}
	if err := h.sender.Acknowledge(callbackID); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to answer callback")
	}
}
