package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-erp-api/internal/models"
	"github.com/noah-isme/college-erp-api/internal/service"
	appErrors "github.com/noah-isme/college-erp-api/pkg/errors"
	"github.com/noah-isme/college-erp-api/pkg/response"
)

// MarksHandler exposes the teacher portal's internal marks endpoints.
type MarksHandler struct {
	marks     *service.MarkService
	dashboard *service.DashboardService
}

// NewMarksHandler constructs MarksHandler.
func NewMarksHandler(marks *service.MarkService, dashboard *service.DashboardService) *MarksHandler {
	return &MarksHandler{marks: marks, dashboard: dashboard}
}

func (h *MarksHandler) invalidateDashboard(c *gin.Context, studentIDs ...string) {
	if h.dashboard == nil {
		return
	}
	for _, id := range studentIDs {
		h.dashboard.InvalidateStudent(c.Request.Context(), id)
	}
}

// Submit godoc
// @Summary Record internal marks for a class
// @Description Entries succeed and fail independently; the response reports both sets.
// @Tags Marks
// @Accept json
// @Produce json
// @Param payload body service.SubmitMarksRequest true "Marks payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teacher/marks [post]
func (h *MarksHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SubmitMarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid marks payload"))
		return
	}

	result, err := h.marks.Submit(c.Request.Context(), claims.PrincipalID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	for _, mark := range result.Saved {
		h.invalidateDashboard(c, mark.StudentID)
	}
	response.JSON(c, http.StatusOK, result, nil, map[string]interface{}{
		"saved_count": result.SavedCount,
		"error_count": len(result.Errors),
	})
}

// List godoc
// @Summary List marks in one subject group
// @Tags Marks
// @Produce json
// @Param subjectId query string true "Subject ID"
// @Param division query string true "Division"
// @Param examType query string true "Exam type"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teacher/marks [get]
func (h *MarksHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	marks, err := h.marks.ListGroup(c.Request.Context(), claims.PrincipalID,
		c.Query("subjectId"), c.Query("division"), models.ExamType(c.Query("examType")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, marks, nil)
}

// ClassAverage godoc
// @Summary Class average for one subject group
// @Tags Marks
// @Produce json
// @Param subjectId query string true "Subject ID"
// @Param division query string true "Division"
// @Param examType query string true "Exam type"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teacher/marks/class-average [get]
func (h *MarksHandler) ClassAverage(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	avg, err := h.marks.ClassAverage(c.Request.Context(), claims.PrincipalID,
		c.Query("subjectId"), c.Query("division"), models.ExamType(c.Query("examType")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, avg, nil)
}

// Get godoc
// @Summary Get a single mark from one of the teacher's classes
// @Tags Marks
// @Produce json
// @Param id path string true "Mark ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teacher/marks/{id} [get]
func (h *MarksHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	mark, err := h.marks.Get(c.Request.Context(), claims.PrincipalID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mark, nil)
}

// Update godoc
// @Summary Rewrite a single mark's scoring fields
// @Tags Marks
// @Accept json
// @Produce json
// @Param id path string true "Mark ID"
// @Param payload body service.UpdateMarkRequest true "Mark payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teacher/marks/{id} [put]
func (h *MarksHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mark payload"))
		return
	}

	mark, err := h.marks.UpdateOne(c.Request.Context(), claims.PrincipalID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.invalidateDashboard(c, mark.StudentID)
	response.JSON(c, http.StatusOK, mark, nil)
}

// Delete godoc
// @Summary Delete a mark recorded by the authenticated teacher
// @Tags Marks
// @Param id path string true "Mark ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /teacher/marks/{id} [delete]
func (h *MarksHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	mark, err := h.marks.Delete(c.Request.Context(), claims.PrincipalID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.invalidateDashboard(c, mark.StudentID)
	response.NoContent(c)
}
