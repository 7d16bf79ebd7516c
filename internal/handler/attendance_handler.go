package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-erp-api/internal/models"
	"github.com/noah-isme/college-erp-api/internal/service"
	appErrors "github.com/noah-isme/college-erp-api/pkg/errors"
	"github.com/noah-isme/college-erp-api/pkg/export"
	"github.com/noah-isme/college-erp-api/pkg/response"
)

// AttendanceHandler exposes the teacher portal's attendance ledger endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
	dashboard  *service.DashboardService
	csv        *export.CSVExporter
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService, dashboard *service.DashboardService, csv *export.CSVExporter) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, dashboard: dashboard, csv: csv}
}

// Mark godoc
// @Summary Mark (or re-mark) attendance for one class day
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teacher/attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	record, err := h.attendance.Mark(c.Request.Context(), claims.PrincipalID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.dashboard != nil {
		for _, entry := range record.Entries {
			h.dashboard.InvalidateStudent(c.Request.Context(), entry.StudentID)
		}
	}
	response.JSON(c, http.StatusOK, record, nil)
}

func attendanceFilterFromQuery(c *gin.Context) (models.AttendanceFilter, error) {
	var filter models.AttendanceFilter
	filter.SubjectID = c.Query("subjectId")
	filter.Division = c.Query("division")

	parse := func(name string) (*time.Time, error) {
		raw := c.Query(name)
		if raw == "" {
			return nil, nil
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be formatted YYYY-MM-DD", name)
		}
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &t, nil
	}

	var err error
	if filter.Date, err = parse("date"); err != nil {
		return filter, err
	}
	if filter.DateFrom, err = parse("from"); err != nil {
		return filter, err
	}
	if filter.DateTo, err = parse("to"); err != nil {
		return filter, err
	}
	return filter, nil
}

// List godoc
// @Summary List attendance records for an assigned subject
// @Tags Attendance
// @Produce json
// @Param subjectId query string true "Subject ID"
// @Param division query string false "Division"
// @Param date query string false "Exact date (YYYY-MM-DD)"
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teacher/attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter, err := attendanceFilterFromQuery(c)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	records, err := h.attendance.List(c.Request.Context(), claims.PrincipalID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Roster godoc
// @Summary Get the class roster for marking attendance
// @Tags Attendance
// @Produce json
// @Param subjectId query string true "Subject ID"
// @Param division query string true "Division"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teacher/attendance/roster [get]
func (h *AttendanceHandler) Roster(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	roster, err := h.attendance.Roster(c.Request.Context(), claims.PrincipalID, c.Query("subjectId"), c.Query("division"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// ExportCSV godoc
// @Summary Export attendance records as CSV
// @Tags Attendance
// @Produce text/csv
// @Param subjectId query string true "Subject ID"
// @Param division query string false "Division"
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Success 200 {string} string "CSV file"
// @Router /teacher/attendance/export [get]
func (h *AttendanceHandler) ExportCSV(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter, err := attendanceFilterFromQuery(c)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	records, err := h.attendance.List(c.Request.Context(), claims.PrincipalID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	dataset := export.Dataset{
		Headers: []string{"Date", "Division", "Total", "Present", "Absent"},
	}
	for _, record := range records {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":     record.Date.Format("2006-01-02"),
			"Division": record.Division,
			"Total":    strconv.Itoa(record.Total),
			"Present":  strconv.Itoa(record.Present),
			"Absent":   strconv.Itoa(record.Absent),
		})
	}

	payload, err := h.csv.Render(dataset)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export"))
		return
	}

	filename := fmt.Sprintf("attendance-%s.csv", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", payload)
}
