package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-erp-api/internal/middleware"
	"github.com/noah-isme/college-erp-api/internal/models"
	"github.com/noah-isme/college-erp-api/pkg/export"
)

func newPaperRequest(t *testing.T, target string, paper *models.QuestionPaper) *http.Request {
	t.Helper()
	body, err := json.Marshal(paper)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func teacherClaims() *models.JWTClaims {
	return &models.JWTClaims{PrincipalID: "teacher-1", Kind: models.KindTeacher}
}

func TestQuestionPaperDownloadRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewQuestionPaperHandler(nil, export.NewPDFExporter())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = newPaperRequest(t, "/question-papers/download", &models.QuestionPaper{Title: "T"})

	handler.Download(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestQuestionPaperDownloadDocxNotImplemented(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewQuestionPaperHandler(nil, export.NewPDFExporter())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = newPaperRequest(t, "/question-papers/download?format=docx", &models.QuestionPaper{Title: "T"})
	c.Set(middleware.ContextPrincipalKey, teacherClaims())

	handler.Download(c)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestQuestionPaperDownloadUnsupportedFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewQuestionPaperHandler(nil, export.NewPDFExporter())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = newPaperRequest(t, "/question-papers/download?format=rtf", &models.QuestionPaper{Title: "T"})
	c.Set(middleware.ContextPrincipalKey, teacherClaims())

	handler.Download(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuestionPaperDownloadRendersPDF(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewQuestionPaperHandler(nil, export.NewPDFExporter())

	paper := &models.QuestionPaper{
		Title:      "Internal 1 Draft",
		SourceName: "notes.pdf",
		ChunkCount: 2,
		Questions: []models.GeneratedQuestion{
			{Number: 1, Text: "Define a binary search tree."},
			{Number: 2, Text: "Explain rehashing."},
		},
	}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = newPaperRequest(t, "/question-papers/download", paper)
	c.Set(middleware.ContextPrincipalKey, teacherClaims())

	handler.Download(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "question-paper.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}
