package render

import (
	"strings"
	"unicode/utf8"

	"github.com/user/movie-bot-go/internal/i18n"
	"github.com/user/movie-bot-go/internal/model"
)

// captionLimit is Telegram's maximum caption length
const captionLimit = 1024

// Budgets inside a caption. Title and details are measured after escaping;
// the description gets whatever is left, at most descriptionLimit raw runes.
const (
	descriptionLimit = 600
	titleBudget      = 512
	genreLimit       = 64
	captionSeparator = "\n\n"
)

// CardContext selects the buttons attached to an item card
type CardContext int

const (
	// CardBrowse is used for catalog listings, search results and lookups
	CardBrowse CardContext = iota
	// CardWatchLater is used for the user's watch-later list
	CardWatchLater
	// CardWatched is used for the user's watched list
	CardWatched
)

var languageLabels = map[model.Language]string{
	model.LangUzbek:   "🇺🇿 O'zbek",
	model.LangRussian: "🇷🇺 Русский",
	model.LangEnglish: "🇬🇧 English",
}

// Renderer builds localized replies
type Renderer struct {
	texts *i18n.Table
}

// New creates a renderer over a localization table
func New(texts *i18n.Table) *Renderer {
	return &Renderer{texts: texts}
}

// Texts returns the underlying localization table
func (r *Renderer) Texts() *i18n.Table {
	return r.texts
}

// Text returns a plain localized message
func (r *Renderer) Text(lang model.Language, key string, args ...any) Reply {
	if len(args) > 0 {
		return Reply{Text: r.texts.Format(lang, key, args...)}
	}
	return Reply{Text: r.texts.Text(lang, key)}
}

// LanguagePicker returns the welcome message with one button per language
func (r *Renderer) LanguagePicker(lang model.Language) Reply {
	rows := make([][]Button, 0, len(model.Languages))
	for _, l := range model.Languages {
		rows = append(rows, []Button{{
			Text: languageLabels[l],
			Data: CallbackData(ActionLanguage, string(l)),
		}})
	}
	return Reply{
		Text:   r.texts.Text(lang, "start") + "\n\n" + r.texts.Text(lang, "select_language"),
		Inline: rows,
	}
}

// MainMenu returns text with the main reply keyboard.
// The admin row is only shown to administrators.
func (r *Renderer) MainMenu(lang model.Language, isAdmin bool, text string) Reply {
	t := func(key string) string { return r.texts.Text(lang, key) }
	keyboard := [][]string{
		{t("movies"), t("search")},
		{t("watch_later"), t("watched")},
		{t("find_by_id"), t("my_account")},
	}
	if isAdmin {
		keyboard = append(keyboard, []string{t("admin_panel")})
	}
	if text == "" {
		text = t("main_menu")
	}
	return Reply{Text: text, Keyboard: keyboard}
}

// AdminPanel returns the admin summary with the admin reply keyboard
func (r *Renderer) AdminPanel(lang model.Language, users, items int64) Reply {
	text := strings.Join([]string{
		r.texts.Text(lang, "admin_welcome"),
		"",
		r.texts.Format(lang, "total_users", users),
		r.texts.Format(lang, "total_movies", items),
	}, "\n")
	return r.AdminMenu(lang, text)
}

// AdminMenu returns text with the admin reply keyboard
func (r *Renderer) AdminMenu(lang model.Language, text string) Reply {
	t := func(key string) string { return r.texts.Text(lang, key) }
	return Reply{
		Text: text,
		Keyboard: [][]string{
			{t("add_movie")},
			{t("manage_users")},
			{t("delete_movie")},
			{t("back")},
		},
	}
}

// Prompt returns a question with a single cancel button
func (r *Renderer) Prompt(lang model.Language, key string) Reply {
	return Reply{
		Text:     r.texts.Text(lang, key),
		Keyboard: [][]string{{r.texts.Text(lang, "cancel")}},
	}
}

// SubscriptionPrompt asks the user to join the channel.
// Without a public URL the button is omitted.
func (r *Renderer) SubscriptionPrompt(lang model.Language, channelURL string) Reply {
	reply := Reply{Text: r.texts.Text(lang, "subscribe_channel")}
	if channelURL != "" {
		reply.Inline = [][]Button{{{
			Text: r.texts.Text(lang, "check_subscription"),
			URL:  channelURL,
		}}}
	}
	return reply
}

// Caption formats an item for display in MarkdownV2.
// The details line with the item ID is always kept; the description is
// shortened to fit, and escaped text is never cut inside an escape pair.
func (r *Renderer) Caption(lang model.Language, item *model.Item) string {
	if item == nil {
		return ""
	}

	header := "🎬 *" + escapeWithin(item.Title, titleBudget) + "*"
	details := EscapeMarkdown(r.texts.Format(lang, "movie_details", truncate(item.Genre, genreLimit), item.Year, item.Views, item.ID))

	parts := []string{header}
	if item.Description != "" {
		sep := utf8.RuneCountInString(captionSeparator)
		room := captionLimit - utf8.RuneCountInString(header) - utf8.RuneCountInString(details) - 2*sep
		if desc := escapeWithin(truncate(item.Description, descriptionLimit), room); desc != "" {
			parts = append(parts, desc)
		}
	}
	parts = append(parts, details)

	return strings.Join(parts, captionSeparator)
}

// ItemCard returns an item's media with caption and context buttons
func (r *Renderer) ItemCard(lang model.Language, item *model.Item, cardCtx CardContext) Reply {
	t := func(key string) string { return r.texts.Text(lang, key) }

	var buttons [][]Button
	switch cardCtx {
	case CardWatchLater:
		buttons = [][]Button{
			{{Text: t("btn_watch"), Data: CallbackData(ActionWatch, item.ID)}},
			{{Text: t("btn_remove"), Data: CallbackData(ActionUnlater, item.ID)}},
		}
	case CardWatched:
		buttons = [][]Button{
			{{Text: t("btn_watch_again"), Data: CallbackData(ActionWatch, item.ID)}},
		}
	default:
		buttons = [][]Button{
			{{Text: t("btn_watch"), Data: CallbackData(ActionWatch, item.ID)}},
			{{Text: t("btn_watch_later"), Data: CallbackData(ActionLater, item.ID)}},
		}
	}

	return Reply{
		Text:      r.Caption(lang, item),
		ParseMode: ModeMarkdownV2,
		Media:     &Media{Ref: item.MediaRef, Kind: item.MediaKind},
		Inline:    buttons,
	}
}

// ItemCards renders a list of items, one card each
func (r *Renderer) ItemCards(lang model.Language, items []*model.Item, cardCtx CardContext) []Reply {
	replies := make([]Reply, 0, len(items))
	for _, item := range items {
		replies = append(replies, r.ItemCard(lang, item, cardCtx))
	}
	return replies
}

// Playback returns the bare media for a watched item
func (r *Renderer) Playback(item *model.Item) Reply {
	return Reply{Media: &Media{Ref: item.MediaRef, Kind: item.MediaKind}}
}

// UserInfo formats one line block of the admin user listing
func (r *Renderer) UserInfo(lang model.Language, user *model.User) string {
	subscribed := r.texts.Text(lang, "answer_no")
	if user.IsSubscribed {
		subscribed = r.texts.Text(lang, "answer_yes")
	}
	return r.texts.Format(lang, "user_info", user.DisplayName(), user.ID, string(user.Language), subscribed)
}

// UserList renders the admin user listing
func (r *Renderer) UserList(lang model.Language, total int64, users []*model.User) Reply {
	blocks := []string{r.texts.Text(lang, "all_users"), r.texts.Format(lang, "total_users", total)}
	for _, u := range users {
		blocks = append(blocks, r.UserInfo(lang, u))
	}
	return Reply{Text: strings.Join(blocks, "\n\n")}
}
