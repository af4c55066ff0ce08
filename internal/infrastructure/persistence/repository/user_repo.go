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

const userColumns = `
	u.id, u.email, u.password_hash, u.role_id, r.name,
	u.first_name, u.last_name, u.employee_code, u.department,
	u.manager_id, u.is_active, u.created_at, u.updated_at`

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlite.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a user and sets its ID
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (
			email, password_hash, role_id, first_name, last_name,
			employee_code, department, manager_id, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		user.Email,
		user.PasswordHash,
		user.RoleID,
		user.FirstName,
		user.LastName,
		user.EmployeeCode,
		user.Department,
		nullableInt64(user.ManagerID),
		user.IsActive,
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create user", zap.String("email", user.Email), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u JOIN roles r ON r.id = u.role_id WHERE u.id = ?`
	user, err := scanUser(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by exact email match
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u JOIN roles r ON r.id = u.role_id WHERE u.email = ?`
	user, err := scanUser(r.db.Executor(ctx).QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user by email", zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// List returns all users ordered by ID
func (r *UserRepository) List(ctx context.Context) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u JOIN roles r ON r.id = u.role_id ORDER BY u.id`
	return r.query(ctx, "list users", query)
}

// ListByRole returns users holding the role, ordered by ID
func (r *UserRepository) ListByRole(ctx context.Context, role workflow.Role) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u JOIN roles r ON r.id = u.role_id WHERE r.name = ? ORDER BY u.id`
	return r.query(ctx, "list users by role", query, role.String())
}

// Update applies the non-nil fields of update
func (r *UserRepository) Update(ctx context.Context, id int64, update entity.UserUpdate) error {
	var sets []string
	var args []interface{}

	add := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if update.Email != nil {
		add("email", *update.Email)
	}
	if update.PasswordHash != nil {
		add("password_hash", *update.PasswordHash)
	}
	if update.RoleID != nil {
		add("role_id", *update.RoleID)
	}
	if update.FirstName != nil {
		add("first_name", *update.FirstName)
	}
	if update.LastName != nil {
		add("last_name", *update.LastName)
	}
	if update.EmployeeCode != nil {
		add("employee_code", *update.EmployeeCode)
	}
	if update.Department != nil {
		add("department", *update.Department)
	}
	if update.ManagerID != nil {
		add("manager_id", nullableInt64(update.ManagerID))
	}

	if len(sets) == 0 {
		return nil
	}

	add("updated_at", time.Now().UTC())
	args = append(args, id)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("Failed to update user", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

// SetActive flips the active flag of a user
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`

	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, active, time.Now().UTC(), id); err != nil {
		r.logger.Error("Failed to set user active flag", zap.Int64("id", id), zap.Bool("active", active), zap.Error(err))
		return fmt.Errorf("failed to set user active flag: %w", err)
	}

	return nil
}

// Delete removes a user
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete user", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// Count returns the number of users
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	return r.count(ctx, "count users", `SELECT COUNT(*) FROM users`)
}

// CountSubordinates returns the number of users reporting to managerID
func (r *UserRepository) CountSubordinates(ctx context.Context, managerID int64) (int, error) {
	return r.count(ctx, "count subordinates", `SELECT COUNT(*) FROM users WHERE manager_id = ?`, managerID)
}

// EmployeeCodesWithPrefix returns every employee code starting with prefix
func (r *UserRepository) EmployeeCodesWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	query := `SELECT employee_code FROM users WHERE substr(employee_code, 1, ?) = ?`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, len(prefix), prefix)
	if err != nil {
		r.logger.Error("Failed to list employee codes", zap.String("prefix", prefix), zap.Error(err))
		return nil, fmt.Errorf("failed to list employee codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan employee code: %w", err)
		}
		codes = append(codes, code)
	}

	return codes, rows.Err()
}

func (r *UserRepository) query(ctx context.Context, op, query string, args ...interface{}) ([]*entity.User, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, zap.Error(err))
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	users := make([]*entity.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

func (r *UserRepository) count(ctx context.Context, op, query string, args ...interface{}) (int, error) {
	var n int
	if err := r.db.Executor(ctx).QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		r.logger.Error("Failed to "+op, zap.Error(err))
		return 0, fmt.Errorf("failed to %s: %w", op, err)
	}
	return n, nil
}

func scanUser(s scanner) (*entity.User, error) {
	var user entity.User
	var roleName string
	var managerID sql.NullInt64

	err := s.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.RoleID,
		&roleName,
		&user.FirstName,
		&user.LastName,
		&user.EmployeeCode,
		&user.Department,
		&managerID,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.RoleName = workflow.Role(roleName)
	if managerID.Valid {
		id := managerID.Int64
		user.ManagerID = &id
	}

	return &user, nil
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
