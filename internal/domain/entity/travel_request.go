package entity

import (
	"time"

	"github.com/garyjia/travel-desk/internal/domain/workflow"
)

// TravelRequest is the subject of the approval workflow
type TravelRequest struct {
	ID                  int64            `json:"requestId"`
	UserID              int64            `json:"userId"`
	EmployeeCode        string           `json:"employeeId"`
	ProjectName         string           `json:"projectName"`
	DepartmentName      string           `json:"departmentName"`
	ReasonForTravelling string           `json:"reasonForTravelling"`
	TypeOfBooking       string           `json:"typeOfBooking"`
	FlightType          *string          `json:"flightType"`
	Dates               *string          `json:"dates"`
	AadhaarNumber       *string          `json:"aadhaarNumber"`
	PassportNumber      *string          `json:"passportNumber"`
	VisaFileURL         *string          `json:"visaFileUrl"`
	PassportFileURL     *string          `json:"passportFileUrl"`
	DaysOfStay          *int             `json:"daysOfStay"`
	MealRequired        *string          `json:"mealRequired"`
	MealPreference      *string          `json:"mealPreference"`
	Status              workflow.Status  `json:"status"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
	User                *UserSummary     `json:"user,omitempty"`
	Comments            []RequestComment `json:"comments"`
}

// TravelDetails are the employee-editable fields of a request
type TravelDetails struct {
	EmployeeCode        string
	ProjectName         string
	DepartmentName      string
	ReasonForTravelling string
	TypeOfBooking       string
	FlightType          *string
	Dates               *string
	AadhaarNumber       *string
	PassportNumber      *string
	VisaFileURL         *string
	PassportFileURL     *string
	DaysOfStay          *int
	MealRequired        *string
	MealPreference      *string
}

// Apply copies the details onto the request
func (d TravelDetails) Apply(r *TravelRequest) {
	if d.EmployeeCode != "" {
		r.EmployeeCode = d.EmployeeCode
	}
	r.ProjectName = d.ProjectName
	r.DepartmentName = d.DepartmentName
	r.ReasonForTravelling = d.ReasonForTravelling
	r.TypeOfBooking = d.TypeOfBooking
	r.FlightType = d.FlightType
	r.Dates = d.Dates
	r.AadhaarNumber = d.AadhaarNumber
	r.PassportNumber = d.PassportNumber
	r.VisaFileURL = d.VisaFileURL
	r.PassportFileURL = d.PassportFileURL
	r.DaysOfStay = d.DaysOfStay
	r.MealRequired = d.MealRequired
	r.MealPreference = d.MealPreference
}

// DocumentURL returns the stored travel document location, if any
func (r *TravelRequest) DocumentURL() string {
	if r.PassportFileURL == nil {
		return ""
	}
	return *r.PassportFileURL
}

// RequestComment is one immutable entry of a request's audit trail
type RequestComment struct {
	ID        int64     `json:"commentId"`
	RequestID int64     `json:"requestId"`
	UserID    int64     `json:"userId"`
	Comment   string    `json:"comment"`
	Timestamp time.Time `json:"timestamp"`
}
