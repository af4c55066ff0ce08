package workflow

// Audience is a set of notification recipients resolved against the
// reporting chain of the request owner
type Audience uint8

const (
	NotifyEmployee Audience = 1 << iota
	NotifyManager
	NotifyTravelAdmins
)

// NotifyNone means a transition produces no notification intent
const NotifyNone Audience = 0

// Has reports whether every recipient in other is part of the audience
func (a Audience) Has(other Audience) bool {
	return other != 0 && a&other == other
}

// Transition is the input of a workflow decision
type Transition struct {
	Role    Role
	Action  Action
	From    Status // empty when the request does not exist yet
	Comment string
}

// Decision is the outcome of an accepted transition
type Decision struct {
	Role     Role
	Action   Action
	From     Status
	To       Status
	Audience Audience
	Removes  bool
}

// Policy decides workflow transitions. Implementations are immutable and
// safe for concurrent use.
type Policy interface {
	// Decide computes the next status for a transition or returns a sentinel error
	Decide(t Transition) (Decision, error)

	// Validate checks action, permission and comment without looking at the
	// current status
	Validate(t Transition) error

	// ResolveAction maps a client keyword to one of the role's actions,
	// honouring role-specific aliases
	ResolveAction(role Role, keyword string) (Action, error)

	// Can returns true if the role has a rule for the action
	Can(role Role, action Action) bool

	// PermittedActions returns the actions configured for a role
	PermittedActions(role Role) []Action
}
