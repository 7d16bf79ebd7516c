package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-erp-api/internal/models"
	"github.com/noah-isme/college-erp-api/internal/service"
	appErrors "github.com/noah-isme/college-erp-api/pkg/errors"
	"github.com/noah-isme/college-erp-api/pkg/response"
)

// StudentHandler exposes the student portal's read-only endpoints.
type StudentHandler struct {
	students   *service.StudentService
	subjects   *service.SubjectService
	attendance *service.AttendanceService
	marks      *service.MarkService
	dashboard  *service.DashboardService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students *service.StudentService, subjects *service.SubjectService, attendance *service.AttendanceService, marks *service.MarkService, dashboard *service.DashboardService) *StudentHandler {
	return &StudentHandler{
		students:   students,
		subjects:   subjects,
		attendance: attendance,
		marks:      marks,
		dashboard:  dashboard,
	}
}

// Dashboard godoc
// @Summary Student dashboard rollup
// @Tags Student
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/dashboard [get]
func (h *StudentHandler) Dashboard(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	dashboard, err := h.dashboard.StudentDashboard(c.Request.Context(), claims.PrincipalID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}

// Profile godoc
// @Summary Get the authenticated student's profile
// @Tags Student
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/profile [get]
func (h *StudentHandler) Profile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	student, err := h.students.Get(c.Request.Context(), claims.PrincipalID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// UpdateProfile godoc
// @Summary Update the authenticated student's profile
// @Tags Student
// @Accept json
// @Produce json
// @Param payload body service.UpdateStudentProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Router /student/profile [put]
func (h *StudentHandler) UpdateProfile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateStudentProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}

	student, err := h.students.UpdateProfile(c.Request.Context(), claims.PrincipalID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Subjects godoc
// @Summary List the student's semester subjects
// @Tags Student
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/subjects [get]
func (h *StudentHandler) Subjects(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	student, err := h.students.Get(c.Request.Context(), claims.PrincipalID)
	if err != nil {
		response.Error(c, err)
		return
	}

	subjects, err := h.subjects.List(c.Request.Context(), student.SemesterID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

func studentAttendanceFilterFromQuery(c *gin.Context) (models.StudentAttendanceFilter, error) {
	var filter models.StudentAttendanceFilter
	filter.SubjectID = c.Query("subjectId")

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
	if filter.DateFrom, err = parse("from"); err != nil {
		return filter, err
	}
	if filter.DateTo, err = parse("to"); err != nil {
		return filter, err
	}
	return filter, nil
}

// Attendance godoc
// @Summary Student attendance report
// @Tags Student
// @Produce json
// @Param subjectId query string false "Filter by subject"
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /student/attendance [get]
func (h *StudentHandler) Attendance(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter, err := studentAttendanceFilterFromQuery(c)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	summary, err := h.attendance.StudentSummary(c.Request.Context(), claims.PrincipalID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Marks godoc
// @Summary Student internal marks report
// @Tags Student
// @Produce json
// @Param subjectId query string false "Filter by subject"
// @Param examType query string false "Filter by exam type"
// @Success 200 {object} response.Envelope
// @Router /student/internal-marks [get]
func (h *StudentHandler) Marks(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.MarkFilter{
		StudentID: claims.PrincipalID,
		SubjectID: c.Query("subjectId"),
		ExamType:  models.ExamType(c.Query("examType")),
	}
	summary, err := h.marks.StudentSummary(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
