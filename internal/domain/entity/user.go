package entity

import (
	"strings"
	"time"

	"github.com/garyjia/travel-desk/internal/domain/workflow"
)

// Role is a row of the static role lookup table
type Role struct {
	ID   int64         `json:"roleId"`
	Name workflow.Role `json:"roleName"`
}

// Seeded role identifiers
const (
	RoleIDAdmin       int64 = 1
	RoleIDTravelAdmin int64 = 2
	RoleIDEmployee    int64 = 3
	RoleIDManager     int64 = 4
)

// User is a person who can sign in. ManagerID is a back-reference into the
// reporting chain and is never owned.
type User struct {
	ID           int64         `json:"userId"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	RoleID       int64         `json:"roleId"`
	RoleName     workflow.Role `json:"role"`
	FirstName    string        `json:"firstName"`
	LastName     string        `json:"lastName"`
	EmployeeCode string        `json:"employeeId"`
	Department   string        `json:"department"`
	ManagerID    *int64        `json:"managerId,omitempty"`
	IsActive     bool          `json:"isActive"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasManager returns true if the user reports to someone
func (u *User) HasManager() bool {
	return u.ManagerID != nil && *u.ManagerID > 0
}

// UserSummary is the owner projection attached to listed requests
type UserSummary struct {
	ID           int64  `json:"userId"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	EmployeeCode string `json:"employeeId"`
	Department   string `json:"department"`
	ManagerID    *int64 `json:"managerId,omitempty"`
}

// UserUpdate is a partial user edit; nil fields are left unchanged
type UserUpdate struct {
	Email        *string
	PasswordHash *string
	RoleID       *int64
	FirstName    *string
	LastName     *string
	EmployeeCode *string
	Department   *string
	ManagerID    *int64
}
