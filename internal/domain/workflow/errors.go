package workflow

import "errors"

var (
	// ErrUnknownAction is returned when an action keyword is not recognised
	ErrUnknownAction = errors.New("invalid action specified")

	// ErrActionNotPermitted is returned when the role has no rule for the action
	ErrActionNotPermitted = errors.New("action not permitted for role")

	// ErrCommentRequired is returned when a mandatory comment is blank
	ErrCommentRequired = errors.New("the comments section cannot be left blank")

	// ErrPreconditionFailed is returned when a rule's status precondition fails
	ErrPreconditionFailed = errors.New("precondition failed for current status")

	// ErrInvalidStatus is returned when a request carries an unknown status
	ErrInvalidStatus = errors.New("invalid status")
)
