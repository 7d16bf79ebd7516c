package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-erp-api/pkg/export"
)

func TestAttendanceMarkRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(nil, nil, export.NewCSVExporter())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/attendance", strings.NewReader("{}"))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Mark(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAttendanceFilterFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/attendance?subjectId=sub-1&division=A&from=2026-02-01&to=2026-02-28", nil)

	filter, err := attendanceFilterFromQuery(c)
	require.NoError(t, err)

	assert.Equal(t, "sub-1", filter.SubjectID)
	assert.Equal(t, "A", filter.Division)
	assert.Nil(t, filter.Date)
	require.NotNil(t, filter.DateFrom)
	require.NotNil(t, filter.DateTo)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), *filter.DateFrom)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), *filter.DateTo)
}

func TestAttendanceFilterFromQueryBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/attendance?subjectId=sub-1&date=02-10-2026", nil)

	_, err := attendanceFilterFromQuery(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}
