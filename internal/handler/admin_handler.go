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

// AdminHandler exposes the admin portal's management endpoints.
type AdminHandler struct {
	admins    *service.AdminService
	semesters *service.SemesterService
	subjects  *service.SubjectService
	teachers  *service.TeacherService
	students  *service.StudentService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(admins *service.AdminService, semesters *service.SemesterService, subjects *service.SubjectService, teachers *service.TeacherService, students *service.StudentService) *AdminHandler {
	return &AdminHandler{
		admins:    admins,
		semesters: semesters,
		subjects:  subjects,
		teachers:  teachers,
		students:  students,
	}
}

// Seed godoc
// @Summary Bootstrap the first admin account
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body service.SeedAdminRequest true "Admin payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/seed [post]
func (h *AdminHandler) Seed(c *gin.Context) {
	var req service.SeedAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid admin payload"))
		return
	}

	admin, err := h.admins.Seed(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, admin)
}

// CreateSemester godoc
// @Summary Register a semester
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body service.CreateSemesterRequest true "Semester payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/semesters [post]
func (h *AdminHandler) CreateSemester(c *gin.Context) {
	var req service.CreateSemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid semester payload"))
		return
	}

	semester, err := h.semesters.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, semester)
}

// ListSemesters godoc
// @Summary List semesters
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/semesters [get]
func (h *AdminHandler) ListSemesters(c *gin.Context) {
	semesters, err := h.semesters.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semesters, nil)
}

// GetSemester godoc
// @Summary Get semester detail
// @Tags Admin
// @Produce json
// @Param id path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /admin/semesters/{id} [get]
func (h *AdminHandler) GetSemester(c *gin.Context) {
	semester, err := h.semesters.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semester, nil)
}

// UpdateSemester godoc
// @Summary Renumber a semester
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Semester ID"
// @Param payload body service.UpdateSemesterRequest true "Semester payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/semesters/{id} [put]
func (h *AdminHandler) UpdateSemester(c *gin.Context) {
	var req service.UpdateSemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid semester payload"))
		return
	}

	semester, err := h.semesters.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semester, nil)
}

// AddDivision godoc
// @Summary Add a division to a semester
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Semester ID"
// @Param payload body service.DivisionRequest true "Division payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/semesters/{id}/divisions [post]
func (h *AdminHandler) AddDivision(c *gin.Context) {
	var req service.DivisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid division payload"))
		return
	}

	semester, err := h.semesters.AddDivision(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semester, nil)
}

// RemoveDivision godoc
// @Summary Remove a division from a semester
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Semester ID"
// @Param payload body service.DivisionRequest true "Division payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/semesters/{id}/divisions [delete]
func (h *AdminHandler) RemoveDivision(c *gin.Context) {
	var req service.DivisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid division payload"))
		return
	}

	semester, err := h.semesters.RemoveDivision(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semester, nil)
}

// DeleteSemester godoc
// @Summary Delete a semester
// @Tags Admin
// @Param id path string true "Semester ID"
// @Success 204
// @Router /admin/semesters/{id} [delete]
func (h *AdminHandler) DeleteSemester(c *gin.Context) {
	if err := h.semesters.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateSubject godoc
// @Summary Register a subject
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body service.CreateSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/subjects [post]
func (h *AdminHandler) CreateSubject(c *gin.Context) {
	var req service.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subject payload"))
		return
	}

	subject, err := h.subjects.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// ListSubjects godoc
// @Summary List subjects
// @Tags Admin
// @Produce json
// @Param semesterId query string false "Filter by semester"
// @Success 200 {object} response.Envelope
// @Router /admin/subjects [get]
func (h *AdminHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.subjects.List(c.Request.Context(), c.Query("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// UpdateSubject godoc
// @Summary Update a subject
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body service.UpdateSubjectRequest true "Subject payload"
// @Success 200 {object} response.Envelope
// @Router /admin/subjects/{id} [put]
func (h *AdminHandler) UpdateSubject(c *gin.Context) {
	var req service.UpdateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subject payload"))
		return
	}

	subject, err := h.subjects.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// DeleteSubject godoc
// @Summary Delete a subject
// @Tags Admin
// @Param id path string true "Subject ID"
// @Success 204
// @Router /admin/subjects/{id} [delete]
func (h *AdminHandler) DeleteSubject(c *gin.Context) {
	if err := h.subjects.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateTeacher godoc
// @Summary Register a teacher
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body service.CreateTeacherRequest true "Teacher payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/teachers [post]
func (h *AdminHandler) CreateTeacher(c *gin.Context) {
	var req service.CreateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid teacher payload"))
		return
	}

	teacher, err := h.teachers.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, teacher)
}

// ListTeachers godoc
// @Summary List teachers
// @Tags Admin
// @Produce json
// @Param search query string false "Search by name, email or number"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/teachers [get]
func (h *AdminHandler) ListTeachers(c *gin.Context) {
	var filter models.TeacherFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	teachers, total, err := h.teachers.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// GetTeacher godoc
// @Summary Get teacher detail
// @Tags Admin
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /admin/teachers/{id} [get]
func (h *AdminHandler) GetTeacher(c *gin.Context) {
	teacher, err := h.teachers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// UpdateTeacher godoc
// @Summary Update a teacher
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body service.UpdateTeacherRequest true "Teacher payload"
// @Success 200 {object} response.Envelope
// @Router /admin/teachers/{id} [put]
func (h *AdminHandler) UpdateTeacher(c *gin.Context) {
	var req service.UpdateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid teacher payload"))
		return
	}

	teacher, err := h.teachers.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// DeleteTeacher godoc
// @Summary Delete a teacher
// @Tags Admin
// @Param id path string true "Teacher ID"
// @Success 204
// @Router /admin/teachers/{id} [delete]
func (h *AdminHandler) DeleteTeacher(c *gin.Context) {
	if err := h.teachers.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListAssignments godoc
// @Summary List a teacher's subject assignments
// @Tags Admin
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /admin/teachers/{id}/assignments [get]
func (h *AdminHandler) ListAssignments(c *gin.Context) {
	assignments, err := h.teachers.Assignments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// AssignSubject godoc
// @Summary Assign a subject and division to a teacher
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body service.AssignSubjectRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/teachers/{id}/assignments [post]
func (h *AdminHandler) AssignSubject(c *gin.Context) {
	var req service.AssignSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	assignment, err := h.teachers.AssignSubject(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// RemoveAssignment godoc
// @Summary Revoke a teacher's subject assignment
// @Tags Admin
// @Param id path string true "Teacher ID"
// @Param assignmentId path string true "Assignment ID"
// @Success 204
// @Router /admin/teachers/{id}/assignments/{assignmentId} [delete]
func (h *AdminHandler) RemoveAssignment(c *gin.Context) {
	if err := h.teachers.RemoveAssignment(c.Request.Context(), c.Param("id"), c.Param("assignmentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateStudent godoc
// @Summary Register a student
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/students [post]
func (h *AdminHandler) CreateStudent(c *gin.Context) {
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
// @Tags Admin
// @Produce json
// @Param search query string false "Search by name, email or UUCMS number"
// @Param semesterId query string false "Filter by semester"
// @Param division query string false "Filter by division"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/students [get]
func (h *AdminHandler) ListStudents(c *gin.Context) {
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
// @Tags Admin
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /admin/students/{id} [get]
func (h *AdminHandler) GetStudent(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// UpdateStudent godoc
// @Summary Update a student
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /admin/students/{id} [put]
func (h *AdminHandler) UpdateStudent(c *gin.Context) {
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

// DeleteStudent godoc
// @Summary Delete a student
// @Tags Admin
// @Param id path string true "Student ID"
// @Success 204
// @Router /admin/students/{id} [delete]
func (h *AdminHandler) DeleteStudent(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateStaff godoc
// @Summary Register an office staff member
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body service.CreateStaffRequest true "Staff payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/staff [post]
func (h *AdminHandler) CreateStaff(c *gin.Context) {
	var req service.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid staff payload"))
		return
	}

	staff, err := h.admins.CreateStaff(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, staff)
}

// ListStaff godoc
// @Summary List office staff
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/staff [get]
func (h *AdminHandler) ListStaff(c *gin.Context) {
	staff, err := h.admins.ListStaff(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, staff, nil)
}
