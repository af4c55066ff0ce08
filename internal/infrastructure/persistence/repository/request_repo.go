package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/travel-desk/internal/application/port"
	"github.com/garyjia/travel-desk/internal/domain/entity"
	"github.com/garyjia/travel-desk/internal/domain/workflow"
	"github.com/garyjia/travel-desk/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const requestColumns = `
	tr.id, tr.user_id, tr.employee_code, tr.project_name, tr.department_name,
	tr.reason_for_travelling, tr.type_of_booking, tr.flight_type, tr.dates,
	tr.aadhaar_number, tr.passport_number, tr.visa_file_url, tr.passport_file_url,
	tr.days_of_stay, tr.meal_required, tr.meal_preference, tr.status,
	tr.created_at, tr.updated_at,
	u.email, u.first_name, u.last_name, u.employee_code, u.department, u.manager_id`

const requestFrom = ` FROM travel_requests tr JOIN users u ON u.id = tr.user_id`

// RequestRepository implements port.RequestRepository
type RequestRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new travel request repository
func NewRequestRepository(db *sqlite.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a travel request and sets its ID
func (r *RequestRepository) Create(ctx context.Context, req *entity.TravelRequest) error {
	query := `
		INSERT INTO travel_requests (
			user_id, employee_code, project_name, department_name,
			reason_for_travelling, type_of_booking, flight_type, dates,
			aadhaar_number, passport_number, visa_file_url, passport_file_url,
			days_of_stay, meal_required, meal_preference, status,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		req.UserID,
		req.EmployeeCode,
		req.ProjectName,
		req.DepartmentName,
		req.ReasonForTravelling,
		req.TypeOfBooking,
		nullableString(req.FlightType),
		nullableString(req.Dates),
		nullableString(req.AadhaarNumber),
		nullableString(req.PassportNumber),
		nullableString(req.VisaFileURL),
		nullableString(req.PassportFileURL),
		nullableInt(req.DaysOfStay),
		nullableString(req.MealRequired),
		nullableString(req.MealPreference),
		req.Status.String(),
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create travel request", zap.Int64("user_id", req.UserID), zap.Error(err))
		return fmt.Errorf("failed to create travel request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	req.ID = id
	req.CreatedAt = now
	req.UpdatedAt = now
	if req.Comments == nil {
		req.Comments = []entity.RequestComment{}
	}
	return nil
}

// GetByID retrieves a travel request with owner and comments
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*entity.TravelRequest, error) {
	query := `SELECT ` + requestColumns + requestFrom + ` WHERE tr.id = ?`

	req, err := scanRequest(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get travel request", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get travel request: %w", err)
	}

	if err := r.attachComments(ctx, []*entity.TravelRequest{req}); err != nil {
		return nil, err
	}

	return req, nil
}

// ListByOwner returns the owner's requests, newest first
func (r *RequestRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*entity.TravelRequest, error) {
	query := `SELECT ` + requestColumns + requestFrom + ` WHERE tr.user_id = ? ORDER BY tr.id DESC`
	return r.list(ctx, "list requests by owner", query, ownerID)
}

// ListByManager returns requests of the manager's direct reports, newest
// first. An empty status matches every status.
func (r *RequestRepository) ListByManager(ctx context.Context, managerID int64, status workflow.Status) ([]*entity.TravelRequest, error) {
	if status == "" {
		query := `SELECT ` + requestColumns + requestFrom + ` WHERE u.manager_id = ? ORDER BY tr.id DESC`
		return r.list(ctx, "list requests by manager", query, managerID)
	}

	query := `SELECT ` + requestColumns + requestFrom + ` WHERE u.manager_id = ? AND tr.status = ? ORDER BY tr.id DESC`
	return r.list(ctx, "list requests by manager", query, managerID, status.String())
}

// ListAll returns every request, newest first
func (r *RequestRepository) ListAll(ctx context.Context) ([]*entity.TravelRequest, error) {
	query := `SELECT ` + requestColumns + requestFrom + ` ORDER BY tr.id DESC`
	return r.list(ctx, "list all requests", query)
}

// UpdateStatus sets the workflow status of a request
func (r *RequestRepository) UpdateStatus(ctx context.Context, id int64, status workflow.Status) error {
	query := `UPDATE travel_requests SET status = ?, updated_at = ? WHERE id = ?`

	if err := r.execOne(ctx, query, status.String(), time.Now().UTC(), id); err != nil {
		r.logger.Error("Failed to update status", zap.Int64("id", id), zap.String("status", status.String()), zap.Error(err))
		return fmt.Errorf("failed to update status: %w", err)
	}

	return nil
}

// UpdateDetails replaces the employee-editable fields and the status
func (r *RequestRepository) UpdateDetails(ctx context.Context, id int64, d entity.TravelDetails, status workflow.Status) error {
	query := `
		UPDATE travel_requests SET
			project_name = ?, department_name = ?, reason_for_travelling = ?,
			type_of_booking = ?, flight_type = ?, dates = ?, aadhaar_number = ?,
			passport_number = ?, visa_file_url = ?, passport_file_url = ?,
			days_of_stay = ?, meal_required = ?, meal_preference = ?,
			status = ?, updated_at = ?
		WHERE id = ?
	`

	err := r.execOne(ctx, query,
		d.ProjectName,
		d.DepartmentName,
		d.ReasonForTravelling,
		d.TypeOfBooking,
		nullableString(d.FlightType),
		nullableString(d.Dates),
		nullableString(d.AadhaarNumber),
		nullableString(d.PassportNumber),
		nullableString(d.VisaFileURL),
		nullableString(d.PassportFileURL),
		nullableInt(d.DaysOfStay),
		nullableString(d.MealRequired),
		nullableString(d.MealPreference),
		status.String(),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		r.logger.Error("Failed to update travel request", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update travel request: %w", err)
	}

	return nil
}

// SetDocumentURL stores the travel document location of a request
func (r *RequestRepository) SetDocumentURL(ctx context.Context, id int64, url string) error {
	query := `UPDATE travel_requests SET passport_file_url = ?, updated_at = ? WHERE id = ?`

	if err := r.execOne(ctx, query, url, time.Now().UTC(), id); err != nil {
		r.logger.Error("Failed to set document url", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to set document url: %w", err)
	}

	return nil
}

// Delete removes a request; its comments go with it
func (r *RequestRepository) Delete(ctx context.Context, id int64) error {
	if err := r.execOne(ctx, `DELETE FROM travel_requests WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete travel request", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete travel request: %w", err)
	}
	return nil
}

// CountByOwner returns how many requests a user owns
func (r *RequestRepository) CountByOwner(ctx context.Context, ownerID int64) (int, error) {
	var n int
	err := r.db.Executor(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM travel_requests WHERE user_id = ?`, ownerID).Scan(&n)
	if err != nil {
		r.logger.Error("Failed to count requests by owner", zap.Int64("user_id", ownerID), zap.Error(err))
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}
	return n, nil
}

// execOne runs a statement that must touch exactly one row
func (r *RequestRepository) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *RequestRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]*entity.TravelRequest, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, zap.Error(err))
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	requests := make([]*entity.TravelRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan travel request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate travel requests: %w", err)
	}

	if err := r.attachComments(ctx, requests); err != nil {
		return nil, err
	}

	return requests, nil
}

// attachComments loads the comment trails of requests in one query
func (r *RequestRepository) attachComments(ctx context.Context, requests []*entity.TravelRequest) error {
	if len(requests) == 0 {
		return nil
	}

	byID := make(map[int64]*entity.TravelRequest, len(requests))
	placeholders := make([]string, 0, len(requests))
	args := make([]interface{}, 0, len(requests))
	for _, req := range requests {
		req.Comments = []entity.RequestComment{}
		byID[req.ID] = req
		placeholders = append(placeholders, "?")
		args = append(args, req.ID)
	}

	query := `
		SELECT id, request_id, user_id, comment, created_at
		FROM request_comments
		WHERE request_id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY id
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to load comments", zap.Int("requests", len(requests)), zap.Error(err))
		return fmt.Errorf("failed to load comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c entity.RequestComment
		if err := rows.Scan(&c.ID, &c.RequestID, &c.UserID, &c.Comment, &c.Timestamp); err != nil {
			return fmt.Errorf("failed to scan comment: %w", err)
		}
		if req, ok := byID[c.RequestID]; ok {
			req.Comments = append(req.Comments, c)
		}
	}

	return rows.Err()
}

func scanRequest(s scanner) (*entity.TravelRequest, error) {
	var req entity.TravelRequest
	var owner entity.UserSummary
	var status string
	var flightType, dates, aadhaar, passport, visaURL, passportURL, mealRequired, mealPreference sql.NullString
	var daysOfStay, managerID sql.NullInt64

	err := s.Scan(
		&req.ID,
		&req.UserID,
		&req.EmployeeCode,
		&req.ProjectName,
		&req.DepartmentName,
		&req.ReasonForTravelling,
		&req.TypeOfBooking,
		&flightType,
		&dates,
		&aadhaar,
		&passport,
		&visaURL,
		&passportURL,
		&daysOfStay,
		&mealRequired,
		&mealPreference,
		&status,
		&req.CreatedAt,
		&req.UpdatedAt,
		&owner.Email,
		&owner.FirstName,
		&owner.LastName,
		&owner.EmployeeCode,
		&owner.Department,
		&managerID,
	)
	if err != nil {
		return nil, err
	}

	req.Status = workflow.Status(status)
	req.FlightType = stringPtr(flightType)
	req.Dates = stringPtr(dates)
	req.AadhaarNumber = stringPtr(aadhaar)
	req.PassportNumber = stringPtr(passport)
	req.VisaFileURL = stringPtr(visaURL)
	req.PassportFileURL = stringPtr(passportURL)
	req.DaysOfStay = intPtr(daysOfStay)
	req.MealRequired = stringPtr(mealRequired)
	req.MealPreference = stringPtr(mealPreference)

	owner.ID = req.UserID
	if managerID.Valid {
		id := managerID.Int64
		owner.ManagerID = &id
	}
	req.User = &owner

	return &req, nil
}

// Verify interface compliance
var _ port.RequestRepository = (*RequestRepository)(nil)
