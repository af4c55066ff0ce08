package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/travel-desk/internal/application/service"
)

// AddUserRequest is the body of POST /api/admin/add-user
type AddUserRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RoleID     int64  `json:"roleId"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Department string `json:"department"`
	ManagerID  *int64 `json:"managerId"`
}

// EditUserRequest is the body of PUT /api/admin/edit-user/:id. Omitted
// fields keep their value.
type EditUserRequest struct {
	Email      *string `json:"email"`
	Password   *string `json:"password"`
	RoleID     *int64  `json:"roleId"`
	FirstName  *string `json:"firstName"`
	LastName   *string `json:"lastName"`
	EmployeeID *string `json:"employeeId"`
	Department *string `json:"department"`
	ManagerID  *int64  `json:"managerId"`
}

// UserListResponse is returned by GET /api/admin/users
type UserListResponse struct {
	TotalUsers int                `json:"totalUsers"`
	Users      []service.UserView `json:"users"`
}

// ListUsers handles GET /api/admin/users
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.admin.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, UserListResponse{TotalUsers: len(users), Users: users})
}

// ListManagers handles GET /api/admin/managers
func (h *Handlers) ListManagers(c *gin.Context) {
	managers, err := h.admin.ListManagers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, managers)
}

// ListRoles handles GET /api/admin/roles
func (h *Handlers) ListRoles(c *gin.Context) {
	roles, err := h.admin.ListRoles(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

// NextEmployeeID handles GET /api/admin/next-employee-id?roleId=N
func (h *Handlers) NextEmployeeID(c *gin.Context) {
	roleID, err := strconv.ParseInt(c.Query("roleId"), 10, 64)
	if err != nil {
		h.badRequest(c, service.MsgInvalidRole)
		return
	}

	code, err := h.admin.GenerateEmployeeCode(c.Request.Context(), roleID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employeeId": code})
}

// AddUser handles POST /api/admin/add-user
func (h *Handlers) AddUser(c *gin.Context) {
	var req AddUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, msgInvalidBody)
		return
	}

	user, err := h.admin.CreateUser(c.Request.Context(), service.CreateUserInput{
		Email:      req.Email,
		Password:   req.Password,
		RoleID:     req.RoleID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Department: req.Department,
		ManagerID:  req.ManagerID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// EditUser handles PUT /api/admin/edit-user/:id
func (h *Handlers) EditUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req EditUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, msgInvalidBody)
		return
	}

	user, err := h.admin.EditUser(c.Request.Context(), id, service.EditUserInput{
		Email:        req.Email,
		Password:     req.Password,
		RoleID:       req.RoleID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		EmployeeCode: req.EmployeeID,
		Department:   req.Department,
		ManagerID:    req.ManagerID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /api/admin/delete-user/:id
func (h *Handlers) DeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.admin.DeleteUser(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeactivateUser handles PUT /api/admin/deactivate-user/:id
func (h *Handlers) DeactivateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.admin.DeactivateUser(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: service.MsgUserDeactivated})
}

// CheckRelationships handles GET /api/admin/check-relationships
func (h *Handlers) CheckRelationships(c *gin.Context) {
	relationships, err := h.admin.Relationships(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, relationships)
}
