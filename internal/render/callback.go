package render

import (
	"strings"

	"github.com/user/movie-bot-go/internal/model"
)

// CallbackAction is the verb encoded in inline button data
type CallbackAction string

const (
	ActionLanguage CallbackAction = "lang"
	ActionWatch    CallbackAction = "watch"
	ActionLater    CallbackAction = "later"
	ActionUnlater  CallbackAction = "unlater"
)

const callbackSeparator = ":"

// CallbackData encodes an action and its argument as "<action>:<arg>"
func CallbackData(action CallbackAction, arg string) string {
	return string(action) + callbackSeparator + arg
}

// ParseCallback decodes button data produced by CallbackData.
// Unknown actions and empty arguments are rejected.
func ParseCallback(data string) (CallbackAction, string, bool) {
	action, arg, found := strings.Cut(data, callbackSeparator)
	if !found || arg == "" {
		return "", "", false
	}

	switch CallbackAction(action) {
	case ActionLanguage:
		if _, ok := model.ParseLanguage(arg); !ok {
			return "", "", false
		}
	case ActionWatch, ActionLater, ActionUnlater:
		if !model.IsValidItemID(arg) {
			return "", "", false
		}
	default:
		return "", "", false
	}
	return CallbackAction(action), arg, true
}
