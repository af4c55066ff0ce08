package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/travel-desk/internal/application/port"
	"github.com/garyjia/travel-desk/internal/domain/entity"
	"github.com/garyjia/travel-desk/internal/domain/workflow"
	"github.com/garyjia/travel-desk/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// RoleRepository implements port.RoleRepository
type RoleRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *sqlite.DB, logger *zap.Logger) port.RoleRepository {
	return &RoleRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a role by ID
func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*entity.Role, error) {
	var role entity.Role
	var name string

	err := r.db.Executor(ctx).QueryRowContext(ctx, `SELECT id, name FROM roles WHERE id = ?`, id).Scan(&role.ID, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get role", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	role.Name = workflow.Role(name)
	return &role, nil
}

// List returns all roles ordered by ID
func (r *RoleRepository) List(ctx context.Context) ([]*entity.Role, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `SELECT id, name FROM roles ORDER BY id`)
	if err != nil {
		r.logger.Error("Failed to list roles", zap.Error(err))
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	roles := make([]*entity.Role, 0, 4)
	for rows.Next() {
		var role entity.Role
		var name string
		if err := rows.Scan(&role.ID, &name); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		role.Name = workflow.Role(name)
		roles = append(roles, &role)
	}

	return roles, rows.Err()
}

// Verify interface compliance
var _ port.RoleRepository = (*RoleRepository)(nil)
