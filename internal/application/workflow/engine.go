package workflow

import (
	"context"

	"github.com/garyjia/travel-desk/internal/domain/entity"
	domainwf "github.com/garyjia/travel-desk/internal/domain/workflow"
)

// SubmitCommand creates a new travel request on behalf of an employee
type SubmitCommand struct {
	OwnerID      int64
	EmployeeCode string
	Details      entity.TravelDetails
	Comment      string
}

// Command applies one role-scoped action to an existing request
type Command struct {
	RequestID int64
	ActorID   int64
	Role      domainwf.Role
	Action    string // raw keyword as sent by the client
	Comment   string
	TicketURL string                // "book ticket" only
	Details   *entity.TravelDetails // edit only
}

// Outcome is the result of an applied command. Request is nil when the
// action removed it.
type Outcome struct {
	Request  *entity.TravelRequest
	Decision domainwf.Decision
}

// WorkflowEngine orchestrates the travel request workflow
type WorkflowEngine interface {
	// Submit creates a request in its initial status
	Submit(ctx context.Context, cmd SubmitCommand) (*entity.TravelRequest, error)

	// Apply validates, decides and persists a transition, then emits its event
	Apply(ctx context.Context, cmd Command) (*Outcome, error)

	// Policy returns the transition table the engine enforces
	Policy() domainwf.Policy
}
