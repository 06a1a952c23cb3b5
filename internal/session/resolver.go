package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/user/movie-bot-go/internal/i18n"
	"github.com/user/movie-bot-go/internal/model"
)

// Year bounds accepted by the add flow
const (
	MinYear = 1888
	MaxYear = 2100
)

// Menu action keys. Labels are the localized texts of these keys.
const (
	ActionMainMenu    = "main_menu"
	ActionMovies      = "movies"
	ActionWatchLater  = "watch_later"
	ActionWatched     = "watched"
	ActionSearch      = "search"
	ActionFindByID    = "find_by_id"
	ActionMyAccount   = "my_account"
	ActionAdminPanel  = "admin_panel"
	ActionAddMovie    = "add_movie"
	ActionManageUsers = "manage_users"
	ActionDeleteMovie = "delete_movie"
	ActionBack        = "back"
	ActionCancel      = "cancel"
)

// MenuActions lists every action reachable by a menu label
var MenuActions = []string{
	ActionMainMenu, ActionMovies, ActionWatchLater, ActionWatched,
	ActionSearch, ActionFindByID, ActionMyAccount, ActionAdminPanel,
	ActionAddMovie, ActionManageUsers, ActionDeleteMovie, ActionBack, ActionCancel,
}

var adminActions = map[string]bool{
	ActionAdminPanel:  true,
	ActionAddMovie:    true,
	ActionManageUsers: true,
	ActionDeleteMovie: true,
}

// IsAdminAction reports whether only administrators may use an action
func IsAdminAction(action string) bool {
	return adminActions[action]
}

// Resolver classifies inbound text against the sender's language and state
type Resolver struct {
	labels map[model.Language]map[string]string
}

// NewResolver builds one reverse label table per language.
// Two actions sharing a label in the same language is an error.
func NewResolver(texts *i18n.Table) (*Resolver, error) {
	labels := make(map[model.Language]map[string]string, len(model.Languages))
	for _, lang := range model.Languages {
		table := make(map[string]string, len(MenuActions))
		for _, action := range MenuActions {
			label := normalizeLabel(texts.Text(lang, action))
			if other, dup := table[label]; dup {
				return nil, fmt.Errorf("duplicate %s label %q for %s and %s", lang, label, other, action)
			}
			table[label] = action
		}
		labels[lang] = table
	}
	return &Resolver{labels: labels}, nil
}

func normalizeLabel(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeID trims and upper-cases a typed item ID
func NormalizeID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Action returns the menu action a label maps to in lang
func (r *Resolver) Action(lang model.Language, text string) (string, bool) {
	table, ok := r.labels[lang]
	if !ok {
		table = r.labels[model.DefaultLanguage]
	}
	action, ok := table[normalizeLabel(text)]
	return action, ok
}

// Resolve classifies free text. Menu labels win over pending input; a
// pending phase consumes the text otherwise.
func (r *Resolver) Resolve(lang model.Language, isAdmin bool, state State, text string) (Intent, State) {
	if action, ok := r.Action(lang, text); ok && (isAdmin || !IsAdminAction(action)) {
		return r.menuIntent(action)
	}

	switch state.Phase {
	case AwaitingSearch:
		return Intent{Kind: Search, Arg: strings.TrimSpace(text)}, idle()
	case AwaitingID:
		return Intent{Kind: LookupByID, Arg: NormalizeID(text)}, idle()
	}

	if state.Phase.IsAdmin() {
		if !isAdmin {
			return Intent{Kind: None}, idle()
		}
		return resolveAdminText(state, text)
	}

	return Intent{Kind: None}, state
}

// ResolveMedia classifies an uploaded file.
// Only the last step of the add flow accepts media.
func (r *Resolver) ResolveMedia(isAdmin bool, state State) (Intent, State) {
	if !isAdmin {
		return Intent{Kind: None}, state
	}
	if state.Phase == AddMedia {
		return Intent{Kind: AddItem, Draft: state.Draft}, idle()
	}
	return Intent{Kind: AdminStep, Prompt: "use_add_movie"}, state
}

// ResolveCommand classifies a slash command and its argument
func (r *Resolver) ResolveCommand(isAdmin bool, state State, command, arg string) (Intent, State) {
	arg = strings.TrimSpace(arg)
	switch command {
	case "start":
		if arg != "" {
			return Intent{Kind: LookupByID, Arg: NormalizeID(arg)}, idle()
		}
		return Intent{Kind: ChooseLanguage}, idle()
	case "language":
		return Intent{Kind: ChooseLanguage}, idle()
	case "menu":
		return Intent{Kind: MainMenu}, idle()
	case "cancel":
		return Intent{Kind: Cancel}, idle()
	case "search":
		if arg == "" {
			return Intent{Kind: SearchPrompt, Prompt: "search_placeholder"}, State{Phase: AwaitingSearch}
		}
		return Intent{Kind: Search, Arg: arg}, idle()
	case "id":
		if arg == "" {
			return Intent{Kind: LookupPrompt, Prompt: "enter_movie_id"}, State{Phase: AwaitingID}
		}
		return Intent{Kind: LookupByID, Arg: NormalizeID(arg)}, idle()
	default:
		return Intent{Kind: None}, state
	}
}

func (r *Resolver) menuIntent(action string) (Intent, State) {
	switch action {
	case ActionMovies:
		return Intent{Kind: ListAll}, idle()
	case ActionWatchLater:
		return Intent{Kind: ListWatchLater}, idle()
	case ActionWatched:
		return Intent{Kind: ListWatched}, idle()
	case ActionSearch:
		return Intent{Kind: SearchPrompt, Prompt: "search_placeholder"}, State{Phase: AwaitingSearch}
	case ActionFindByID:
		return Intent{Kind: LookupPrompt, Prompt: "enter_movie_id"}, State{Phase: AwaitingID}
	case ActionMyAccount:
		return Intent{Kind: Account}, idle()
	case ActionAdminPanel:
		return Intent{Kind: AdminPanel}, idle()
	case ActionAddMovie:
		return Intent{Kind: AdminStep, Prompt: "enter_movie_title"}, State{Phase: AddTitle}
	case ActionManageUsers:
		return Intent{Kind: ManageUsers}, idle()
	case ActionDeleteMovie:
		return Intent{Kind: AdminStep, Prompt: "enter_movie_id_to_delete"}, State{Phase: AwaitingDeleteID}
	case ActionCancel:
		return Intent{Kind: Cancel}, idle()
	default:
		// main_menu and back
		return Intent{Kind: MainMenu}, idle()
	}
}

func resolveAdminText(state State, text string) (Intent, State) {
	value := strings.TrimSpace(text)
	next := state

	switch state.Phase {
	case AddTitle:
		if value == "" {
			return Intent{Kind: AdminStep, Prompt: "enter_movie_title"}, state
		}
		next.Draft.Title = value
		next.Phase = AddDescription
		return Intent{Kind: AdminStep, Prompt: "enter_movie_description"}, next
	case AddDescription:
		next.Draft.Description = value
		next.Phase = AddGenre
		return Intent{Kind: AdminStep, Prompt: "enter_movie_genre"}, next
	case AddGenre:
		next.Draft.Genre = value
		next.Phase = AddYear
		return Intent{Kind: AdminStep, Prompt: "enter_movie_year"}, next
	case AddYear:
		year, ok := ParseYear(value)
		if !ok {
			return Intent{Kind: AdminStep, Prompt: "invalid_year"}, state
		}
		next.Draft.Year = year
		next.Phase = AddMedia
		return Intent{Kind: AdminStep, Prompt: "send_movie_file"}, next
	case AddMedia:
		return Intent{Kind: AdminStep, Prompt: "send_movie_file"}, state
	case AwaitingDeleteID:
		return Intent{Kind: DeleteByID, Arg: NormalizeID(value)}, idle()
	default:
		return Intent{Kind: None}, idle()
	}
}

// ParseYear accepts a release year within MinYear..MaxYear
func ParseYear(s string) (int, bool) {
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || year < MinYear || year > MaxYear {
		return 0, false
	}
	return year, true
}

func idle() State {
	return State{Phase: Idle}
}
