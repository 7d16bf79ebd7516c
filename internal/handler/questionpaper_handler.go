package handler

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-erp-api/internal/models"
	"github.com/noah-isme/college-erp-api/internal/service"
	appErrors "github.com/noah-isme/college-erp-api/pkg/errors"
	"github.com/noah-isme/college-erp-api/pkg/export"
	"github.com/noah-isme/college-erp-api/pkg/response"
)

// QuestionPaperHandler exposes the document-to-question-paper pipeline.
// Papers are generated on demand and never persisted.
type QuestionPaperHandler struct {
	papers *service.QuestionPaperService
	pdf    *export.PDFExporter
}

// NewQuestionPaperHandler constructs QuestionPaperHandler.
func NewQuestionPaperHandler(papers *service.QuestionPaperService, pdf *export.PDFExporter) *QuestionPaperHandler {
	return &QuestionPaperHandler{papers: papers, pdf: pdf}
}

func (h *QuestionPaperHandler) readUpload(c *gin.Context) (string, []byte, error) {
	file, header, err := c.Request.FormFile("document")
	if err != nil {
		return "", nil, fmt.Errorf("document file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("read uploaded document: %w", err)
	}
	return header.Filename, data, nil
}

// Generate godoc
// @Summary Generate a question paper from a study document
// @Tags QuestionPapers
// @Accept multipart/form-data
// @Produce json
// @Param document formData file true "Study material (.pdf or .txt)"
// @Param title formData string false "Paper title"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teacher/question-papers/generate [post]
func (h *QuestionPaperHandler) Generate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filename, data, err := h.readUpload(c)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		title = "Question Paper"
	}

	paper, err := h.papers.Generate(c.Request.Context(), title, filename, data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, paper, nil)
}

// Download godoc
// @Summary Render a generated question paper for download
// @Description Accepts the generated paper back and streams a printable file. Only PDF is supported.
// @Tags QuestionPapers
// @Accept json
// @Produce application/pdf
// @Param format query string false "File format (pdf)"
// @Param payload body models.QuestionPaper true "Generated paper"
// @Success 200 {string} string "PDF file"
// @Failure 501 {object} response.Envelope
// @Router /teacher/question-papers/download [post]
func (h *QuestionPaperHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", "pdf"))
	if format == "docx" {
		response.Error(c, appErrors.Clone(appErrors.ErrNotImplemented, "docx export is not implemented"))
		return
	}
	if format != "pdf" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format)))
		return
	}

	var paper models.QuestionPaper
	if err := c.ShouldBindJSON(&paper); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid paper payload"))
		return
	}

	questions := make([]string, 0, len(paper.Questions))
	for _, q := range paper.Questions {
		questions = append(questions, q.Text)
	}

	payload, err := h.pdf.RenderQuestionPaper(export.QuestionPaperDoc{
		Title:     paper.Title,
		Subtitle:  paper.SourceName,
		Questions: questions,
	})
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render paper"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="question-paper.pdf"`)
	c.Data(http.StatusOK, "application/pdf", payload)
}
