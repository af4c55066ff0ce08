package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/travel-desk/internal/apperror"
	"github.com/garyjia/travel-desk/internal/application/service"
)

const (
	msgInvalidBody = "Invalid request body."
	msgInvalidID   = "Invalid identifier."
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	auth      service.AuthService
	requests  service.RequestService
	admin     service.AdminService
	documents service.DocumentService
	health    HealthFunc
	version   string
	logger    Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, health HealthFunc, version string, logger Logger) *Handlers {
	return &Handlers{
		auth:      services.Auth,
		requests:  services.Requests,
		admin:     services.Admin,
		documents: services.Documents,
		health:    health,
		version:   version,
		logger:    logger,
	}
}

// MessageResponse carries a human readable outcome or rejection
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Version    string      `json:"version"`
	Components interface{} `json:"components,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
	}

	status := http.StatusOK
	if h.health != nil {
		healthy, details := h.health(c.Request.Context())
		response.Components = details
		if !healthy {
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, response)
}

// ServeFile handles GET /files/*name
func (h *Handlers) ServeFile(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("name"), "/")

	path, err := h.documents.Resolve(c.Request.Context(), name)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.File(path)
}

// UploadDocument handles POST /api/documents
func (h *Handlers) UploadDocument(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, MessageResponse{Message: service.MsgNoFile})
		return
	}

	file, err := header.Open()
	if err != nil {
		h.fail(c, apperror.Internal(err))
		return
	}
	defer file.Close()

	stored, err := h.documents.Upload(c.Request.Context(), header.Filename, file)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, stored)
}

// fail writes err as a message response. Internal failures are logged and
// answered with a generic message.
func (h *Handlers) fail(c *gin.Context, err error) {
	code := apperror.GetCode(err)
	if code == apperror.CodeInternal {
		h.logger.Error("Request failed",
			"error", err,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"request_id", c.GetString(ctxKeyRequestID))
	}
	c.JSON(apperror.HTTPStatus(code), MessageResponse{Message: apperror.Message(err)})
}

func (h *Handlers) badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, MessageResponse{Message: message})
}

// pathID parses the :id route parameter
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, MessageResponse{Message: msgInvalidID})
		return 0, false
	}
	return id, true
}
