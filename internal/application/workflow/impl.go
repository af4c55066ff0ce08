package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/garyjia/travel-desk/internal/apperror"
	"github.com/garyjia/travel-desk/internal/application/dispatcher"
	"github.com/garyjia/travel-desk/internal/application/port"
	"github.com/garyjia/travel-desk/internal/domain/entity"
	"github.com/garyjia/travel-desk/internal/domain/event"
	domainwf "github.com/garyjia/travel-desk/internal/domain/workflow"
	"go.uber.org/zap"
)

// Client-facing rejection messages
const (
	MsgUnknownAction   = "Invalid action specified."
	MsgCommentRequired = "The comments section cannot be left blank."
	MsgRequestNotFound = "Request not found."
	MsgNotEditable     = "This request cannot be edited in its current status."
	MsgEditNotOwned    = "Request not found or you do not have permission to edit it."
	MsgDeleteNotOwned  = "Request not found or you do not have permission to delete it."
	MsgDetailsRequired = "Request details are required."
	MsgStatusPrecluded = "This action is not allowed in the request's current status."
)

// engineImpl is the concrete implementation of WorkflowEngine
type engineImpl struct {
	policy     domainwf.Policy
	requests   port.RequestRepository
	comments   port.CommentRepository
	txManager  port.TransactionManager
	dispatcher dispatcher.Dispatcher
	metrics    port.WorkflowMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithMetrics sets the workflow metrics recorder
func WithMetrics(m port.WorkflowMetrics) EngineOption {
	return func(e *engineImpl) {
		e.metrics = m
	}
}

// WithPolicy replaces the default travel policy
func WithPolicy(p domainwf.Policy) EngineOption {
	return func(e *engineImpl) {
		e.policy = p
	}
}

// WithClock overrides the comment timestamp source
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	requests port.RequestRepository,
	comments port.CommentRepository,
	txManager port.TransactionManager,
	logger *zap.Logger,
	opts ...EngineOption,
) WorkflowEngine {
	e := &engineImpl{
		policy:    BuildTravelPolicy(),
		requests:  requests,
		comments:  comments,
		txManager: txManager,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Policy returns the transition table the engine enforces
func (e *engineImpl) Policy() domainwf.Policy {
	return e.policy
}

// Submit creates a request in its initial status
func (e *engineImpl) Submit(ctx context.Context, cmd SubmitCommand) (*entity.TravelRequest, error) {
	decision, err := e.policy.Decide(domainwf.Transition{
		Role:    domainwf.RoleEmployee,
		Action:  domainwf.ActionSubmit,
		Comment: cmd.Comment,
	})
	if err != nil {
		return nil, e.reject(domainwf.RoleEmployee, domainwf.ActionSubmit, err)
	}

	req := &entity.TravelRequest{
		UserID:       cmd.OwnerID,
		EmployeeCode: cmd.EmployeeCode,
		Status:       decision.To,
	}
	cmd.Details.Apply(req)

	comment := strings.TrimSpace(cmd.Comment)

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.requests.Create(txCtx, req); err != nil {
			return err
		}
		if comment == "" {
			return nil
		}
		c := &entity.RequestComment{
			RequestID: req.ID,
			UserID:    cmd.OwnerID,
			Comment:   comment,
			Timestamp: e.now(),
		}
		if err := e.comments.Create(txCtx, c); err != nil {
			return err
		}
		req.Comments = append(req.Comments, *c)
		return nil
	})
	if err != nil {
		e.logger.Error("Failed to submit travel request", zap.Int64("owner_id", cmd.OwnerID), zap.Error(err))
		return nil, apperror.Internal(err)
	}

	e.logger.Info("Travel request submitted",
		zap.Int64("request_id", req.ID),
		zap.Int64("owner_id", cmd.OwnerID))

	e.observe(decision)
	e.emit(ctx, event.TypeRequestSubmitted, req, cmd.OwnerID, decision, comment)

	return req, nil
}

// Apply validates, decides and persists a transition, then emits its event.
// Nothing is written unless every check passes.
func (e *engineImpl) Apply(ctx context.Context, cmd Command) (*Outcome, error) {
	action, err := e.policy.ResolveAction(cmd.Role, cmd.Action)
	if err != nil {
		return nil, e.reject(cmd.Role, domainwf.Action(cmd.Action), err)
	}

	transition := domainwf.Transition{Role: cmd.Role, Action: action, Comment: cmd.Comment}
	if err := e.policy.Validate(transition); err != nil {
		return nil, e.reject(cmd.Role, action, err)
	}

	if action == domainwf.ActionEdit && cmd.Details == nil {
		return nil, apperror.Validation(MsgDetailsRequired)
	}

	req, err := e.requests.GetByID(ctx, cmd.RequestID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if req == nil || (cmd.Role == domainwf.RoleEmployee && req.UserID != cmd.ActorID) {
		e.rejection(cmd.Role, "not_found")
		return nil, apperror.NotFound(notFoundMessage(cmd.Role, action))
	}

	transition.From = req.Status
	decision, err := e.policy.Decide(transition)
	if err != nil {
		return nil, e.reject(cmd.Role, action, err)
	}

	comment := strings.TrimSpace(cmd.Comment)
	var appended *entity.RequestComment

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if decision.Removes {
			return e.requests.Delete(txCtx, req.ID)
		}

		if action == domainwf.ActionEdit {
			if err := e.requests.UpdateDetails(txCtx, req.ID, *cmd.Details, decision.To); err != nil {
				return err
			}
		} else if err := e.requests.UpdateStatus(txCtx, req.ID, decision.To); err != nil {
			return err
		}

		if action == domainwf.ActionBookTicket && strings.TrimSpace(cmd.TicketURL) != "" {
			if err := e.requests.SetDocumentURL(txCtx, req.ID, strings.TrimSpace(cmd.TicketURL)); err != nil {
				return err
			}
		}

		if comment == "" {
			return nil
		}
		appended = &entity.RequestComment{
			RequestID: req.ID,
			UserID:    cmd.ActorID,
			Comment:   comment,
			Timestamp: e.now(),
		}
		return e.comments.Create(txCtx, appended)
	})
	if err != nil {
		e.logger.Error("Failed to apply transition",
			zap.Int64("request_id", req.ID),
			zap.String("role", cmd.Role.String()),
			zap.String("action", action.String()),
			zap.Error(err))
		return nil, apperror.Internal(err)
	}

	e.logger.Info("Travel request transitioned",
		zap.Int64("request_id", req.ID),
		zap.Int64("actor_id", cmd.ActorID),
		zap.String("role", cmd.Role.String()),
		zap.String("action", action.String()),
		zap.String("from", decision.From.String()),
		zap.String("to", decision.To.String()))

	e.observe(decision)

	if decision.Removes {
		e.emit(ctx, event.TypeRequestDeleted, req, cmd.ActorID, decision, "")
		return &Outcome{Decision: decision}, nil
	}

	// reflect the committed write without a second read
	if action == domainwf.ActionEdit {
		cmd.Details.Apply(req)
	}
	if action == domainwf.ActionBookTicket && strings.TrimSpace(cmd.TicketURL) != "" {
		url := strings.TrimSpace(cmd.TicketURL)
		req.PassportFileURL = &url
	}
	req.Status = decision.To
	req.UpdatedAt = e.now()
	if appended != nil {
		req.Comments = append(req.Comments, *appended)
	}

	e.emit(ctx, event.TypeRequestTransitioned, req, cmd.ActorID, decision, comment)

	return &Outcome{Request: req, Decision: decision}, nil
}

// emit hands the event to the dispatcher; delivery never affects the caller
func (e *engineImpl) emit(ctx context.Context, eventType event.Type, req *entity.TravelRequest, actorID int64, d domainwf.Decision, comment string) {
	if e.dispatcher == nil {
		return
	}

	evt := event.NewEvent(eventType, req.ID, actorID, map[string]interface{}{
		event.KeyRole:     d.Role.String(),
		event.KeyAction:   d.Action.String(),
		event.KeyFrom:     d.From.String(),
		event.KeyTo:       d.To.String(),
		event.KeyComment:  comment,
		event.KeyOwnerID:  req.UserID,
		event.KeyAudience: int(d.Audience),
	})

	e.dispatcher.DispatchAsync(ctx, evt)
}

func (e *engineImpl) observe(d domainwf.Decision) {
	if e.metrics != nil {
		e.metrics.ObserveTransition(d.Role, d.Action, d.To)
	}
}

func (e *engineImpl) rejection(role domainwf.Role, reason string) {
	if e.metrics != nil {
		e.metrics.ObserveRejection(role, reason)
	}
}

// reject translates a policy error into a client error
func (e *engineImpl) reject(role domainwf.Role, action domainwf.Action, err error) error {
	switch {
	case errors.Is(err, domainwf.ErrUnknownAction):
		e.rejection(role, "unknown_action")
		return apperror.Wrap(apperror.CodeValidation, MsgUnknownAction, err)
	case errors.Is(err, domainwf.ErrCommentRequired):
		e.rejection(role, "comment_required")
		return apperror.Wrap(apperror.CodeValidation, MsgCommentRequired, err)
	case errors.Is(err, domainwf.ErrPreconditionFailed):
		e.rejection(role, "precondition_failed")
		if action == domainwf.ActionEdit {
			return apperror.Wrap(apperror.CodeValidation, MsgNotEditable, err)
		}
		return apperror.Wrap(apperror.CodeValidation, MsgStatusPrecluded, err)
	case errors.Is(err, domainwf.ErrActionNotPermitted):
		// role gating happens at the endpoint; here it is a keyword outside the role's vocabulary
		e.rejection(role, "not_permitted")
		return apperror.Wrap(apperror.CodeValidation, MsgUnknownAction, err)
	default:
		e.logger.Error("Workflow decision failed",
			zap.String("role", role.String()),
			zap.String("action", action.String()),
			zap.Error(err))
		return apperror.Internal(err)
	}
}

func notFoundMessage(role domainwf.Role, action domainwf.Action) string {
	if role != domainwf.RoleEmployee {
		return MsgRequestNotFound
	}
	switch action {
	case domainwf.ActionEdit:
		return MsgEditNotOwned
	case domainwf.ActionDelete:
		return MsgDeleteNotOwned
	default:
		return MsgRequestNotFound
	}
}
