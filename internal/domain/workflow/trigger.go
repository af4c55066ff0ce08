package workflow

import (
	"fmt"
	"strings"
)

// Action is the canonical keyword of a role action that drives a transition
type Action string

const (
	ActionSubmit           Action = "submit"
	ActionEdit             Action = "edit"
	ActionDelete           Action = "delete"
	ActionApprove          Action = "approve"
	ActionDisapprove       Action = "disapprove"
	ActionReturnToEmployee Action = "return to employee"
	ActionReturnToManager  Action = "return to manager"
	ActionBook             Action = "book"
	ActionBookTicket       Action = "book ticket"
	ActionComplete         Action = "complete"
	ActionClose            Action = "close"
)

// actionAliases maps accepted keywords to canonical actions
var actionAliases = map[string]Action{
	"submit":             ActionSubmit,
	"edit":               ActionEdit,
	"delete":             ActionDelete,
	"approve":            ActionApprove,
	"disapprove":         ActionDisapprove,
	"return to employee": ActionReturnToEmployee,
	"return to manager":  ActionReturnToManager,
	"book":               ActionBook,
	"book ticket":        ActionBookTicket,
	"complete":           ActionComplete,
	"close":              ActionClose,
}

// ParseAction resolves a client keyword to a canonical action.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseAction(keyword string) (Action, error) {
	key := normalizeKeyword(keyword)
	if action, ok := actionAliases[key]; ok {
		return action, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, keyword)
}

func normalizeKeyword(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}
