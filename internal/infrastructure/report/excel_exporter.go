package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/garyjia/travel-desk/internal/application/port"
	"github.com/garyjia/travel-desk/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// SheetName is the worksheet holding exported requests
const SheetName = "Travel Requests"

const timeLayout = "2006-01-02 15:04"

var headers = []string{
	"Request ID", "Employee ID", "Employee", "Email", "Project", "Department",
	"Reason", "Booking Type", "Flight Type", "Dates", "Days of Stay",
	"Meal Required", "Meal Preference", "Status", "Created", "Updated", "Comments",
}

// ExcelExporter writes travel requests as an XLSX workbook. Identity
// document numbers are left out of the export.
type ExcelExporter struct {
	logger *zap.Logger
}

// NewExcelExporter creates a new exporter
func NewExcelExporter(logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{logger: logger}
}

var _ port.RequestExporter = (*ExcelExporter)(nil)

// Export writes one row per request below a frozen, filterable header
func (e *ExcelExporter) Export(w io.Writer, requests []*entity.TravelRequest) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, req := range requests {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := requestRow(req)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write request %d: %w", req.ID, err)
		}
	}

	e.decorate(f)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Requests exported to workbook", zap.Int("rows", len(requests)))
	return nil
}

// decorate styles the header; failures only cost formatting
func (e *ExcelExporter) decorate(f *excelize.File) {
	lastCol, _ := excelize.ColumnNumberToName(len(headers))

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err == nil {
		err = f.SetRowStyle(SheetName, 1, 1, style)
	}
	if err == nil {
		err = f.SetColWidth(SheetName, "A", lastCol, 18)
	}
	if err == nil {
		err = f.AutoFilter(SheetName, "A1:"+lastCol+"1", nil)
	}
	if err == nil {
		err = f.SetPanes(SheetName, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
	if err != nil {
		e.logger.Warn("Failed to format export sheet", zap.Error(err))
	}
}

func requestRow(r *entity.TravelRequest) []interface{} {
	var name, email string
	if r.User != nil {
		name = strings.TrimSpace(r.User.FirstName + " " + r.User.LastName)
		email = r.User.Email
	}

	comments := make([]string, 0, len(r.Comments))
	for _, c := range r.Comments {
		comments = append(comments, c.Timestamp.Format(timeLayout)+" "+c.Comment)
	}

	var days interface{} = ""
	if r.DaysOfStay != nil {
		days = *r.DaysOfStay
	}

	return []interface{}{
		r.ID,
		r.EmployeeCode,
		name,
		email,
		r.ProjectName,
		r.DepartmentName,
		r.ReasonForTravelling,
		r.TypeOfBooking,
		deref(r.FlightType),
		deref(r.Dates),
		days,
		deref(r.MealRequired),
		deref(r.MealPreference),
		r.Status.String(),
		r.CreatedAt.Format(timeLayout),
		r.UpdatedAt.Format(timeLayout),
		strings.Join(comments, "\n"),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
