package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/garyjia/travel-desk/internal/apperror"
	"github.com/garyjia/travel-desk/internal/application/port"
	"github.com/garyjia/travel-desk/internal/domain/entity"
	"github.com/garyjia/travel-desk/internal/domain/workflow"
	"github.com/garyjia/travel-desk/pkg/utils"
)

// Admin rejection messages
const (
	MsgUserFieldsRequired  = "Email and Password are required."
	MsgInvalidEmail        = "Invalid email format."
	MsgDuplicateEmail      = "A user with this email already exists."
	MsgUserNotFound        = "User not found."
	MsgInvalidRole         = "Invalid role specified."
	MsgManagerNotFound     = "Specified manager does not exist."
	MsgManagerCycle        = "Manager assignment would create a reporting cycle."
	MsgUserHasRequests     = "Cannot delete user. User has associated travel requests."
	MsgUserHasSubordinates = "Cannot delete user. User is assigned as a manager to other employees."
	MsgUserHasComments     = "Cannot delete user. User has authored request comments."
	MsgUserDeactivated     = "User deactivated successfully"
)

// employeeCodePrefixes maps roles to the prefix of generated employee codes
var employeeCodePrefixes = map[workflow.Role]string{
	workflow.RoleEmployee:    "EMP",
	workflow.RoleManager:     "MGR",
	workflow.RoleAdmin:       "ADM",
	workflow.RoleTravelAdmin: "ADM",
}

const defaultEmployeeCodePrefix = "EMP"

// CreateUserInput is the payload of an admin user creation
type CreateUserInput struct {
	Email      string
	Password   string
	RoleID     int64
	FirstName  string
	LastName   string
	Department string
	ManagerID  *int64
}

// EditUserInput is a partial user edit; nil fields are left unchanged
type EditUserInput struct {
	Email        *string
	Password     *string
	RoleID       *int64
	FirstName    *string
	LastName     *string
	EmployeeCode *string
	Department   *string
	ManagerID    *int64 // 0 clears the manager
}

// UserView is a user row of the admin grid
type UserView struct {
	UserID       int64  `json:"userId"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	EmployeeCode string `json:"employeeId"`
	Department   string `json:"department"`
	Role         string `json:"role"`
	RoleID       int64  `json:"roleId"`
	ManagerID    *int64 `json:"managerId"`
	ManagerName  string `json:"managerName"`
	IsActive     bool   `json:"isActive"`
}

// ManagerView is a manager dropdown entry
type ManagerView struct {
	UserID       int64  `json:"userId"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	EmployeeCode string `json:"employeeId"`
}

// Relationship is one reporting link
type Relationship struct {
	UserID      int64   `json:"userId"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	ManagerID   *int64  `json:"managerId"`
	ManagerName *string `json:"managerName"`
}

// AdminService manages users and their reporting chain
type AdminService interface {
	ListUsers(ctx context.Context) ([]UserView, error)
	ListManagers(ctx context.Context) ([]ManagerView, error)
	ListRoles(ctx context.Context) ([]*entity.Role, error)
	CreateUser(ctx context.Context, in CreateUserInput) (*entity.User, error)
	EditUser(ctx context.Context, id int64, in EditUserInput) (*entity.User, error)
	DeleteUser(ctx context.Context, id int64) error
	DeactivateUser(ctx context.Context, id int64) error
	Relationships(ctx context.Context) ([]Relationship, error)

	// GenerateEmployeeCode returns the next free code for a role
	GenerateEmployeeCode(ctx context.Context, roleID int64) (string, error)

	// EnsureBootstrapAdmin creates an admin when no user exists yet
	EnsureBootstrapAdmin(ctx context.Context, email, password string) error
}

type adminServiceImpl struct {
	users     port.UserRepository
	roles     port.RoleRepository
	requests  port.RequestRepository
	comments  port.CommentRepository
	hasher    port.PasswordHasher
	txManager port.TransactionManager
	logger    Logger
}

// NewAdminService creates a new AdminService
func NewAdminService(
	users port.UserRepository,
	roles port.RoleRepository,
	requests port.RequestRepository,
	comments port.CommentRepository,
	hasher port.PasswordHasher,
	txManager port.TransactionManager,
	logger Logger,
) AdminService {
	return &adminServiceImpl{
		users:     users,
		roles:     roles,
		requests:  requests,
		comments:  comments,
		hasher:    hasher,
		txManager: txManager,
		logger:    logger,
	}
}

// ListUsers returns every user with the name of their manager
func (s *adminServiceImpl) ListUsers(ctx context.Context) ([]UserView, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	byID := indexUsers(users)
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		managerName := "N/A"
		if m := managerOf(u, byID); m != nil {
			managerName = m.FullName()
		}
		views = append(views, UserView{
			UserID:       u.ID,
			Email:        u.Email,
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			EmployeeCode: u.EmployeeCode,
			Department:   u.Department,
			Role:         u.RoleName.String(),
			RoleID:       u.RoleID,
			ManagerID:    u.ManagerID,
			ManagerName:  managerName,
			IsActive:     u.IsActive,
		})
	}

	return views, nil
}

// ListManagers returns every user holding the Manager role
func (s *adminServiceImpl) ListManagers(ctx context.Context) ([]ManagerView, error) {
	managers, err := s.users.ListByRole(ctx, workflow.RoleManager)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	views := make([]ManagerView, 0, len(managers))
	for _, m := range managers {
		views = append(views, ManagerView{
			UserID:       m.ID,
			Name:         m.FullName(),
			Email:        m.Email,
			EmployeeCode: m.EmployeeCode,
		})
	}
	return views, nil
}

// ListRoles returns the static role table
func (s *adminServiceImpl) ListRoles(ctx context.Context) ([]*entity.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return roles, nil
}

// CreateUser validates and stores a new user with a generated employee code
func (s *adminServiceImpl) CreateUser(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperror.Validation(MsgUserFieldsRequired)
	}
	if err := utils.ValidateEmail(email); err != nil {
		return nil, apperror.Wrap(apperror.CodeValidation, MsgInvalidEmail, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error("Failed to hash password", "error", err)
		return nil, apperror.Internal(err)
	}

	user := &entity.User{
		Email:        email,
		PasswordHash: hash,
		RoleID:       in.RoleID,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Department:   strings.TrimSpace(in.Department),
		ManagerID:    in.ManagerID,
		IsActive:     true,
	}

	// code generation and insert share one write transaction
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.users.GetByEmail(txCtx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.Conflict(MsgDuplicateEmail)
		}

		role, err := s.requireRole(txCtx, in.RoleID)
		if err != nil {
			return err
		}
		user.RoleName = role.Name

		if user.HasManager() {
			if _, err := s.requireManager(txCtx, *user.ManagerID); err != nil {
				return err
			}
		} else {
			user.ManagerID = nil
		}

		code, err := s.nextEmployeeCode(txCtx, role.Name)
		if err != nil {
			return err
		}
		user.EmployeeCode = code

		return s.users.Create(txCtx, user)
	})
	if err != nil {
		return nil, s.classify("create user", err)
	}

	s.logger.Info("User created", "user_id", user.ID, "role", user.RoleName, "employee_code", user.EmployeeCode)
	return user, nil
}

// EditUser applies a partial update
func (s *adminServiceImpl) EditUser(ctx context.Context, id int64, in EditUserInput) (*entity.User, error) {
	var updated *entity.User

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		user, err := s.users.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return apperror.NotFound(MsgUserNotFound)
		}

		update := entity.UserUpdate{
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			EmployeeCode: in.EmployeeCode,
			Department:   in.Department,
		}

		if in.Email != nil && *in.Email != user.Email {
			email := strings.TrimSpace(*in.Email)
			if err := utils.ValidateEmail(email); err != nil {
				return apperror.Wrap(apperror.CodeValidation, MsgInvalidEmail, err)
			}
			other, err := s.users.GetByEmail(txCtx, email)
			if err != nil {
				return err
			}
			if other != nil && other.ID != id {
				return apperror.Conflict(MsgDuplicateEmail)
			}
			update.Email = &email
		}

		if in.RoleID != nil {
			if _, err := s.requireRole(txCtx, *in.RoleID); err != nil {
				return err
			}
			update.RoleID = in.RoleID
		}

		if in.ManagerID != nil {
			if *in.ManagerID != 0 {
				if err := s.checkReportingChain(txCtx, id, *in.ManagerID); err != nil {
					return err
				}
			}
			update.ManagerID = in.ManagerID
		}

		if in.Password != nil && *in.Password != "" {
			hash, err := s.hasher.Hash(*in.Password)
			if err != nil {
				return err
			}
			update.PasswordHash = &hash
		}

		if err := s.users.Update(txCtx, id, update); err != nil {
			return err
		}

		updated, err = s.users.GetByID(txCtx, id)
		return err
	})
	if err != nil {
		return nil, s.classify("edit user", err)
	}

	s.logger.Info("User updated", "user_id", id)
	return updated, nil
}

// DeleteUser removes a user nothing else refers to
func (s *adminServiceImpl) DeleteUser(ctx context.Context, id int64) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		user, err := s.users.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return apperror.NotFound(MsgUserNotFound)
		}

		owned, err := s.requests.CountByOwner(txCtx, id)
		if err != nil {
			return err
		}
		if owned > 0 {
			return apperror.Conflict(MsgUserHasRequests)
		}

		reports, err := s.users.CountSubordinates(txCtx, id)
		if err != nil {
			return err
		}
		if reports > 0 {
			return apperror.Conflict(MsgUserHasSubordinates)
		}

		authored, err := s.comments.CountByAuthor(txCtx, id)
		if err != nil {
			return err
		}
		if authored > 0 {
			return apperror.Conflict(MsgUserHasComments)
		}

		return s.users.Delete(txCtx, id)
	})
	if err != nil {
		return s.classify("delete user", err)
	}

	s.logger.Info("User deleted", "user_id", id)
	return nil
}

// DeactivateUser blocks future logins of a user
func (s *adminServiceImpl) DeactivateUser(ctx context.Context, id int64) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return apperror.Internal(err)
	}
	if user == nil {
		return apperror.NotFound(MsgUserNotFound)
	}

	if err := s.users.SetActive(ctx, id, false); err != nil {
		return apperror.Internal(err)
	}

	s.logger.Info("User deactivated", "user_id", id)
	return nil
}

// Relationships lists every user with their manager
func (s *adminServiceImpl) Relationships(ctx context.Context) ([]Relationship, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	byID := indexUsers(users)
	out := make([]Relationship, 0, len(users))
	for _, u := range users {
		rel := Relationship{
			UserID:    u.ID,
			Name:      u.FullName(),
			Email:     u.Email,
			ManagerID: u.ManagerID,
		}
		if m := managerOf(u, byID); m != nil {
			name := m.FullName()
			rel.ManagerName = &name
		}
		out = append(out, rel)
	}
	return out, nil
}

// GenerateEmployeeCode returns the next free code for a role
func (s *adminServiceImpl) GenerateEmployeeCode(ctx context.Context, roleID int64) (string, error) {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return "", apperror.Internal(err)
	}

	var name workflow.Role
	if role != nil {
		name = role.Name
	}

	code, err := s.nextEmployeeCode(ctx, name)
	if err != nil {
		return "", apperror.Internal(err)
	}
	return code, nil
}

// EnsureBootstrapAdmin creates an admin when no user exists yet
func (s *adminServiceImpl) EnsureBootstrapAdmin(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	admin, err := s.CreateUser(ctx, CreateUserInput{
		Email:     email,
		Password:  password,
		RoleID:    entity.RoleIDAdmin,
		FirstName: "System",
		LastName:  "Administrator",
	})
	if err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}

	s.logger.Info("Bootstrap admin created", "user_id", admin.ID, "email", admin.Email)
	return nil
}

// nextEmployeeCode scans existing codes with the role prefix and returns
// the successor of the highest numeric suffix, zero-padded to 3 digits
func (s *adminServiceImpl) nextEmployeeCode(ctx context.Context, role workflow.Role) (string, error) {
	prefix, ok := employeeCodePrefixes[role]
	if !ok {
		prefix = defaultEmployeeCodePrefix
	}

	codes, err := s.users.EmployeeCodesWithPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	return NextEmployeeCode(prefix, codes), nil
}

// NextEmployeeCode computes the successor code for prefix from the codes in use
func NextEmployeeCode(prefix string, existing []string) string {
	highest := 0
	for _, code := range existing {
		if len(code) <= len(prefix) || !strings.HasPrefix(code, prefix) {
			continue
		}
		n, err := strconv.Atoi(code[len(prefix):])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%03d", prefix, highest+1)
}

func (s *adminServiceImpl) requireRole(ctx context.Context, roleID int64) (*entity.Role, error) {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, apperror.Validation(MsgInvalidRole)
	}
	return role, nil
}

func (s *adminServiceImpl) requireManager(ctx context.Context, managerID int64) (*entity.User, error) {
	manager, err := s.users.GetByID(ctx, managerID)
	if err != nil {
		return nil, err
	}
	if manager == nil {
		return nil, apperror.Validation(MsgManagerNotFound)
	}
	return manager, nil
}

// checkReportingChain rejects a manager link that would make userID report
// to itself, directly or through the chain above managerID
func (s *adminServiceImpl) checkReportingChain(ctx context.Context, userID, managerID int64) error {
	if managerID == userID {
		return apperror.Validation(MsgManagerCycle)
	}

	manager, err := s.requireManager(ctx, managerID)
	if err != nil {
		return err
	}

	seen := map[int64]bool{userID: true}
	for current := manager; current != nil && current.HasManager(); {
		next := *current.ManagerID
		if seen[next] {
			return apperror.Validation(MsgManagerCycle)
		}
		seen[next] = true

		current, err = s.users.GetByID(ctx, next)
		if err != nil {
			return err
		}
	}

	return nil
}

// classify keeps client errors and hides everything else
func (s *adminServiceImpl) classify(op string, err error) error {
	if apperror.GetCode(err) != apperror.CodeInternal {
		return err
	}
	s.logger.Error("Admin operation failed", "op", op, "error", err)
	if _, ok := err.(*apperror.Error); ok {
		return err
	}
	return apperror.Internal(err)
}

func indexUsers(users []*entity.User) map[int64]*entity.User {
	byID := make(map[int64]*entity.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID
}

func managerOf(u *entity.User, byID map[int64]*entity.User) *entity.User {
	if !u.HasManager() {
		return nil
	}
	return byID[*u.ManagerID]
}
