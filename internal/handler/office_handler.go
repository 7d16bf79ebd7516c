package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-erp-api/internal/models"
	"github.com/noah-isme/college-erp-api/internal/service"
	appErrors "github.com/noah-isme/college-erp-api/pkg/errors"
	"github.com/noah-isme/college-erp-api/pkg/response"
)

// OfficeHandler exposes the office staff portal. Staff handle student
// records and consult the catalog but never touch either ledger.
type OfficeHandler struct {
	students  *service.StudentService
	semesters *service.SemesterService
	subjects  *service.SubjectService
}

// NewOfficeHandler constructs OfficeHandler.
func NewOfficeHandler(students *service.StudentService, semesters *service.SemesterService, subjects *service.SubjectService) *OfficeHandler {
	return &OfficeHandler{students: students, semesters: semesters, subjects: subjects}
}

// CreateStudent godoc
// @Summary Register a student
// @Tags Office
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /office/students [post]
func (h *OfficeHandler) CreateStudent(c *gin.Context) {
	var req service.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}

	student, err := h.students.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// ListStudents godoc
// @Summary List students
// @Tags Office
// @Produce json
// @Param search query string false "Search by name, email or UUCMS number"
// @Param semesterId query string false "Filter by semester"
// @Param division query string false "Filter by division"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /office/students [get]
func (h *OfficeHandler) ListStudents(c *gin.Context) {
	var filter models.StudentFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.SemesterID = c.Query("semesterId")
	filter.Division = c.Query("division")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	students, total, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// GetStudent godoc
// @Summary Get student detail
// @Tags Office
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /office/students/{id} [get]
func (h *OfficeHandler) GetStudent(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// UpdateStudent godoc
// @Summary Update a student
// @Tags Office
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /office/students/{id} [put]
func (h *OfficeHandler) UpdateStudent(c *gin.Context) {
	var req service.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}

	student, err := h.students.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// ListSemesters godoc
// @Summary List semesters
// @Tags Office
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /office/semesters [get]
func (h *OfficeHandler) ListSemesters(c *gin.Context) {
	semesters, err := h.semesters.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semesters, nil)
}

// ListSubjects godoc
// @Summary List subjects
// @Tags Office
// @Produce json
// @Param semesterId query string false "Filter by semester"
// @Success 200 {object} response.Envelope
// @Router /office/subjects [get]
func (h *OfficeHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.subjects.List(c.Request.Context(), c.Query("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}
