package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/travel-desk/internal/apperror"
	"github.com/garyjia/travel-desk/internal/application/service"
	"github.com/garyjia/travel-desk/internal/domain/workflow"
)

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned on successful login
type LoginResponse struct {
	Token      string `json:"token"`
	Role       string `json:"role"`
	UserID     int64  `json:"userId"`
	Email      string `json:"email"`
	EmployeeID string `json:"employeeId"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Department string `json:"department"`
	ExpiresIn  int64  `json:"expiresIn"`
}

// ValidateTokenRequest is the optional body of POST /api/auth/validate-token
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse describes a valid token
type ValidateTokenResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

// Login handles POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, service.MsgCredentialsRequired)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	user := result.User
	c.JSON(http.StatusOK, LoginResponse{
		Token:      result.Token,
		Role:       roleSlug(user.RoleName),
		UserID:     user.ID,
		Email:      user.Email,
		EmployeeID: user.EmployeeCode,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Department: user.Department,
		ExpiresIn:  result.ExpiresIn,
	})
}

// ValidateToken handles POST /api/auth/validate-token. The token is read
// from the body, falling back to the Authorization header.
func (h *Handlers) ValidateToken(c *gin.Context) {
	var req ValidateTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, msgInvalidBody)
			return
		}
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		token = bearerToken(c)
	}
	if token == "" {
		h.fail(c, apperror.Unauthorized(msgMissingToken))
		return
	}

	user, err := h.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, ValidateTokenResponse{
		Valid:   true,
		Message: "Token is valid",
		UserID:  user.ID,
		Email:   user.Email,
		Role:    roleSlug(user.RoleName),
	})
}

// roleSlug renders a role the way clients route on it, e.g. hr-travel-admin
func roleSlug(role workflow.Role) string {
	return strings.ReplaceAll(strings.ToLower(role.String()), " ", "-")
}
