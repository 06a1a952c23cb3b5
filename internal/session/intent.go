package session

// Kind enumerates what a user asked for
type Kind int

const (
	None Kind = iota
	MainMenu
	ChooseLanguage
	ListAll
	ListWatchLater
	ListWatched
	SearchPrompt
	Search
	LookupPrompt
	LookupByID
	Account
	AdminPanel
	ManageUsers
	AdminStep
	AddItem
	DeleteByID
	Cancel
)

var kindNames = map[Kind]string{
	None:           "none",
	MainMenu:       "main_menu",
	ChooseLanguage: "choose_language",
	ListAll:        "list_all",
	ListWatchLater: "list_watch_later",
	ListWatched:    "list_watched",
	SearchPrompt:   "search_prompt",
	Search:         "search",
	LookupPrompt:   "lookup_prompt",
	LookupByID:     "lookup_by_id",
	Account:        "account",
	AdminPanel:     "admin_panel",
	ManageUsers:    "manage_users",
	AdminStep:      "admin_step",
	AddItem:        "add_item",
	DeleteByID:     "delete_by_id",
	Cancel:         "cancel",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Intent is the resolved meaning of one inbound event
type Intent struct {
	Kind Kind
	// Arg is the search query or item ID
	Arg string
	// Prompt is the localization key to reply with for prompt-like intents
	Prompt string
	// Draft is the completed item draft for AddItem
	Draft Draft
}
