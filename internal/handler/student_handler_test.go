package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentAttendanceRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStudentHandler(nil, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/student/attendance", nil)

	handler.Attendance(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStudentAttendanceFilterFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/student/attendance?subjectId=sub-1&from=2026-02-01&to=2026-02-28", nil)

	filter, err := studentAttendanceFilterFromQuery(c)
	require.NoError(t, err)

	assert.Equal(t, "sub-1", filter.SubjectID)
	require.NotNil(t, filter.DateFrom)
	require.NotNil(t, filter.DateTo)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), *filter.DateFrom)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), *filter.DateTo)
}

func TestStudentAttendanceFilterFromQueryBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/student/attendance?from=01-02-2026", nil)

	_, err := studentAttendanceFilterFromQuery(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}
