package service

import (
	"context"
	"io"
	"strings"

	"github.com/garyjia/travel-desk/internal/apperror"
	"github.com/garyjia/travel-desk/internal/application/port"
	appwf "github.com/garyjia/travel-desk/internal/application/workflow"
	"github.com/garyjia/travel-desk/internal/domain/entity"
	"github.com/garyjia/travel-desk/internal/domain/workflow"
	"github.com/garyjia/travel-desk/pkg/utils"
)

// MsgRequestSubmitted acknowledges a new request
const MsgRequestSubmitted = "Request submitted successfully."

// RequestInput is the employee-supplied content of a request
type RequestInput struct {
	EmployeeCode string
	Details      entity.TravelDetails
	Comment      string
}

// ActionInput is a reviewer decision on a request
type ActionInput struct {
	Action    string
	Comment   string
	TicketURL string
}

// Actor identifies the authenticated caller
type Actor struct {
	UserID int64
	Role   workflow.Role
}

// Document is a stored file attached to a request
type Document struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// RequestService exposes the travel request workflow to the API
type RequestService interface {
	Create(ctx context.Context, ownerID int64, in RequestInput) (*entity.TravelRequest, error)
	Edit(ctx context.Context, ownerID, requestID int64, in RequestInput) (*entity.TravelRequest, error)
	Delete(ctx context.Context, ownerID, requestID int64) error
	Act(ctx context.Context, actor Actor, requestID int64, in ActionInput) (*entity.TravelRequest, error)

	ListByOwner(ctx context.Context, ownerID int64) ([]*entity.TravelRequest, error)
	ListForManager(ctx context.Context, managerID int64, pendingOnly bool) ([]*entity.TravelRequest, error)
	ListAll(ctx context.Context) ([]*entity.TravelRequest, error)
	Documents(ctx context.Context, requestID int64) ([]Document, error)
	Export(ctx context.Context, w io.Writer) error
}

type requestServiceImpl struct {
	engine   appwf.WorkflowEngine
	requests port.RequestRepository
	exporter port.RequestExporter
	logger   Logger
}

// NewRequestService creates a new RequestService
func NewRequestService(
	engine appwf.WorkflowEngine,
	requests port.RequestRepository,
	exporter port.RequestExporter,
	logger Logger,
) RequestService {
	return &requestServiceImpl{
		engine:   engine,
		requests: requests,
		exporter: exporter,
		logger:   logger,
	}
}

// Create submits a new request for the owner
func (s *requestServiceImpl) Create(ctx context.Context, ownerID int64, in RequestInput) (*entity.TravelRequest, error) {
	if err := validateRequestInput(in, true); err != nil {
		return nil, err
	}

	return s.engine.Submit(ctx, appwf.SubmitCommand{
		OwnerID:      ownerID,
		EmployeeCode: strings.TrimSpace(in.EmployeeCode),
		Details:      in.Details,
		Comment:      in.Comment,
	})
}

// Edit replaces the details of a returned request and resubmits it
// Ownership is checked before the fields so other employees only ever see
// not-found.
func (s *requestServiceImpl) Edit(ctx context.Context, ownerID, requestID int64, in RequestInput) (*entity.TravelRequest, error) {
	current, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		s.logger.Error("Failed to load request for edit", "request_id", requestID, "error", err)
		return nil, apperror.Internal(err)
	}
	if current == nil || current.UserID != ownerID {
		return nil, apperror.NotFound(appwf.MsgEditNotOwned)
	}

	if err := validateRequestInput(in, false); err != nil {
		return nil, err
	}

	details := in.Details
	out, err := s.engine.Apply(ctx, appwf.Command{
		RequestID: requestID,
		ActorID:   ownerID,
		Role:      workflow.RoleEmployee,
		Action:    workflow.ActionEdit.String(),
		Comment:   in.Comment,
		Details:   &details,
	})
	if err != nil {
		return nil, err
	}
	return out.Request, nil
}

// Delete removes a request owned by the caller
func (s *requestServiceImpl) Delete(ctx context.Context, ownerID, requestID int64) error {
	_, err := s.engine.Apply(ctx, appwf.Command{
		RequestID: requestID,
		ActorID:   ownerID,
		Role:      workflow.RoleEmployee,
		Action:    workflow.ActionDelete.String(),
	})
	return err
}

// Act applies a manager or travel desk decision
func (s *requestServiceImpl) Act(ctx context.Context, actor Actor, requestID int64, in ActionInput) (*entity.TravelRequest, error) {
	out, err := s.engine.Apply(ctx, appwf.Command{
		RequestID: requestID,
		ActorID:   actor.UserID,
		Role:      actor.Role,
		Action:    in.Action,
		Comment:   in.Comment,
		TicketURL: in.TicketURL,
	})
	if err != nil {
		return nil, err
	}
	return out.Request, nil
}

// ListByOwner returns the caller's requests, newest first
func (s *requestServiceImpl) ListByOwner(ctx context.Context, ownerID int64) ([]*entity.TravelRequest, error) {
	requests, err := s.requests.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return requests, nil
}

// ListForManager returns requests of the manager's direct reports
func (s *requestServiceImpl) ListForManager(ctx context.Context, managerID int64, pendingOnly bool) ([]*entity.TravelRequest, error) {
	var status workflow.Status
	if pendingOnly {
		status = workflow.StatusPending
	}

	requests, err := s.requests.ListByManager(ctx, managerID, status)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return requests, nil
}

// ListAll returns every request with owner and comments
func (s *requestServiceImpl) ListAll(ctx context.Context) ([]*entity.TravelRequest, error) {
	requests, err := s.requests.ListAll(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return requests, nil
}

// Documents lists the stored travel documents of a request
func (s *requestServiceImpl) Documents(ctx context.Context, requestID int64) ([]Document, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if req == nil {
		return nil, apperror.NotFound(appwf.MsgRequestNotFound)
	}

	documents := []Document{}
	if url := req.DocumentURL(); url != "" {
		documents = append(documents, Document{Name: "Travel Documents", URL: url, Type: "booking"})
	}
	return documents, nil
}

// Export writes a spreadsheet of every request
func (s *requestServiceImpl) Export(ctx context.Context, w io.Writer) error {
	requests, err := s.requests.ListAll(ctx)
	if err != nil {
		return apperror.Internal(err)
	}

	if err := s.exporter.Export(w, requests); err != nil {
		s.logger.Error("Failed to export requests", "error", err, "count", len(requests))
		return apperror.Internal(err)
	}

	s.logger.Info("Requests exported", "count", len(requests))
	return nil
}

type requiredField struct {
	name  string
	value string
}

// validateRequestInput checks the mandatory request fields. The employee
// code is only required on create.
func validateRequestInput(in RequestInput, create bool) error {
	var required []requiredField
	if create {
		required = append(required, requiredField{"EmployeeId", in.EmployeeCode})
	}
	required = append(required,
		requiredField{"ProjectName", in.Details.ProjectName},
		requiredField{"DepartmentName", in.Details.DepartmentName},
		requiredField{"ReasonForTravelling", in.Details.ReasonForTravelling},
		requiredField{"TypeOfBooking", in.Details.TypeOfBooking},
	)

	for _, field := range required {
		if utils.Blank(field.value) {
			return apperror.Validation("The " + field.name + " field is required.")
		}
	}

	if in.Details.DaysOfStay != nil && *in.Details.DaysOfStay < 0 {
		return apperror.Validation("The DaysOfStay field must not be negative.")
	}

	return nil
}
