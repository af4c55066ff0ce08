package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/travel-desk/internal/application/service"
	"github.com/garyjia/travel-desk/internal/domain/entity"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TravelRequestPayload is the employee-supplied body of create and edit
type TravelRequestPayload struct {
	EmployeeID          string  `json:"employeeId"`
	ProjectName         string  `json:"projectName"`
	DepartmentName      string  `json:"departmentName"`
	ReasonForTravelling string  `json:"reasonForTravelling"`
	TypeOfBooking       string  `json:"typeOfBooking"`
	FlightType          *string `json:"flightType"`
	Dates               *string `json:"dates"`
	AadhaarNumber       *string `json:"aadhaarNumber"`
	PassportNumber      *string `json:"passportNumber"`
	VisaFileURL         *string `json:"visaFileUrl"`
	PassportFileURL     *string `json:"passportFileUrl"`
	DaysOfStay          *int    `json:"daysOfStay"`
	MealRequired        *string `json:"mealRequired"`
	MealPreference      *string `json:"mealPreference"`
	Comments            string  `json:"comments"`
}

func (p TravelRequestPayload) toInput() service.RequestInput {
	return service.RequestInput{
		EmployeeCode: p.EmployeeID,
		Comment:      p.Comments,
		Details: entity.TravelDetails{
			EmployeeCode:        p.EmployeeID,
			ProjectName:         p.ProjectName,
			DepartmentName:      p.DepartmentName,
			ReasonForTravelling: p.ReasonForTravelling,
			TypeOfBooking:       p.TypeOfBooking,
			FlightType:          p.FlightType,
			Dates:               p.Dates,
			AadhaarNumber:       p.AadhaarNumber,
			PassportNumber:      p.PassportNumber,
			VisaFileURL:         p.VisaFileURL,
			PassportFileURL:     p.PassportFileURL,
			DaysOfStay:          p.DaysOfStay,
			MealRequired:        p.MealRequired,
			MealPreference:      p.MealPreference,
		},
	}
}

// ActionPayload is a reviewer decision
type ActionPayload struct {
	Action        string `json:"action"`
	Comments      string `json:"comments"`
	TicketFileURL string `json:"ticketFileUrl"`
}

// CreateRequestResponse acknowledges a submitted request
type CreateRequestResponse struct {
	Message   string `json:"message"`
	RequestID int64  `json:"requestId"`
}

// CreateRequest handles POST /api/employee/create-request
func (h *Handlers) CreateRequest(c *gin.Context) {
	var payload TravelRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.badRequest(c, msgInvalidBody)
		return
	}

	req, err := h.requests.Create(c.Request.Context(), currentUser(c).ID, payload.toInput())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, CreateRequestResponse{
		Message:   service.MsgRequestSubmitted,
		RequestID: req.ID,
	})
}

// MyRequests handles GET /api/employee/my-requests
func (h *Handlers) MyRequests(c *gin.Context) {
	requests, err := h.requests.ListByOwner(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// EditRequest handles PUT /api/employee/edit-request/:id
func (h *Handlers) EditRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var payload TravelRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.badRequest(c, msgInvalidBody)
		return
	}

	req, err := h.requests.Edit(c.Request.Context(), currentUser(c).ID, id, payload.toInput())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// DeleteRequest handles DELETE /api/employee/delete-request/:id
func (h *Handlers) DeleteRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.requests.Delete(c.Request.Context(), currentUser(c).ID, id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ManagerRequests handles GET /api/manager/my-requests
func (h *Handlers) ManagerRequests(c *gin.Context) {
	h.listForManager(c, false)
}

// ManagerPendingRequests handles GET /api/manager/pending-requests
func (h *Handlers) ManagerPendingRequests(c *gin.Context) {
	h.listForManager(c, true)
}

func (h *Handlers) listForManager(c *gin.Context, pendingOnly bool) {
	requests, err := h.requests.ListForManager(c.Request.Context(), currentUser(c).ID, pendingOnly)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// ActOnRequest handles the manager and travel desk action-request routes.
// The caller's role selects the applicable transitions.
func (h *Handlers) ActOnRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var payload ActionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.badRequest(c, msgInvalidBody)
		return
	}

	user := currentUser(c)
	req, err := h.requests.Act(c.Request.Context(),
		service.Actor{UserID: user.ID, Role: user.RoleName},
		id,
		service.ActionInput{
			Action:    payload.Action,
			Comment:   payload.Comments,
			TicketURL: payload.TicketFileURL,
		})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Request %d status updated to %s.", req.ID, req.Status),
	})
}

// AllRequests handles GET /api/travel-admin/all-requests
func (h *Handlers) AllRequests(c *gin.Context) {
	requests, err := h.requests.ListAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// RequestDocuments handles GET /api/travel-admin/request-documents/:id
func (h *Handlers) RequestDocuments(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	documents, err := h.requests.Documents(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, documents)
}

// ExportRequests handles GET /api/travel-admin/export
func (h *Handlers) ExportRequests(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.requests.Export(c.Request.Context(), &buf); err != nil {
		h.fail(c, err)
		return
	}

	filename := fmt.Sprintf("travel-requests-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
