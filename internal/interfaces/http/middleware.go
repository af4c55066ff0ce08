package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyjia/travel-desk/internal/apperror"
	"github.com/garyjia/travel-desk/internal/domain/entity"
	"github.com/garyjia/travel-desk/internal/domain/workflow"
)

const (
	headerRequestID = "X-Request-ID"
	ctxKeyRequestID = "request_id"
	ctxKeyUser      = "current_user"
)

// Route groups guarded by role
const (
	groupEmployee    = "employee"
	groupManager     = "manager"
	groupTravelAdmin = "travel-admin"
	groupAdmin       = "admin"
	groupDocuments   = "documents"
)

const (
	msgMissingToken = "Authorization token is required"
	msgForbidden    = "You do not have access to this resource."
)

// groupRoles lists the roles admitted to each route group. A nil entry
// admits every authenticated role.
var groupRoles = map[string][]workflow.Role{
	groupEmployee:    {workflow.RoleEmployee},
	groupManager:     {workflow.RoleManager},
	groupTravelAdmin: {workflow.RoleTravelAdmin},
	groupAdmin:       {workflow.RoleAdmin},
	groupDocuments:   nil,
}

// roleAllowed reports whether role may call routes of group
func roleAllowed(role workflow.Role, group string) bool {
	roles, ok := groupRoles[group]
	if !ok {
		return false
	}
	if roles == nil {
		return role.IsValid()
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// requestIDMiddleware propagates or assigns a request id
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(ctxKeyRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(ctxKeyRequestID),
		)
	}
}

// corsMiddleware admits the configured origins. "*" admits any origin but
// then never allows credentials.
func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(corsConfig(origins))
}

func corsConfig(origins []string) cors.Config {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", headerRequestID},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", headerRequestID},
		MaxAge:        12 * time.Hour,
	}
	if allowAll {
		cfg.AllowAllOrigins = true
		return cfg
	}

	cfg.AllowOriginFunc = func(origin string) bool {
		return allowed[origin]
	}
	cfg.AllowCredentials = true
	return cfg
}

// authMiddleware resolves the bearer token to an active user
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortWithMessage(c, http.StatusUnauthorized, msgMissingToken)
			return
		}

		user, err := s.services.Auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			code := apperror.GetCode(err)
			if code == apperror.CodeInternal {
				s.logger.Error("Failed to authenticate request", "error", err, "path", c.Request.URL.Path)
			}
			abortWithMessage(c, apperror.HTTPStatus(code), apperror.Message(err))
			return
		}

		c.Set(ctxKeyUser, user)
		c.Next()
	}
}

// requireGroup rejects callers whose role is not admitted to group
func requireGroup(group string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			abortWithMessage(c, http.StatusUnauthorized, msgMissingToken)
			return
		}
		if !roleAllowed(user.RoleName, group) {
			abortWithMessage(c, http.StatusForbidden, msgForbidden)
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func currentUser(c *gin.Context) *entity.User {
	v, ok := c.Get(ctxKeyUser)
	if !ok {
		return nil
	}
	user, _ := v.(*entity.User)
	return user
}

func abortWithMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, MessageResponse{Message: message})
}
