package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/college-erp-api/internal/models"
	appErrors "github.com/noah-isme/college-erp-api/pkg/errors"
)

type fakeCacheRepo struct {
	entries map[string][]byte
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{entries: make(map[string][]byte)}
}

func (f *fakeCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	payload, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (f *fakeCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = payload
	return nil
}

func (f *fakeCacheRepo) Delete(ctx context.Context, key string) error {
	delete(f.entries, key)
	return nil
}

func (f *fakeCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	f.entries = make(map[string][]byte)
	return nil
}

type fakeDashboardAttendance struct {
	calls   int
	summary *models.StudentAttendanceSummary
}

func (f *fakeDashboardAttendance) StudentSummary(ctx context.Context, studentID string, filter models.StudentAttendanceFilter) (*models.StudentAttendanceSummary, error) {
	f.calls++
	return f.summary, nil
}

type fakeDashboardMarks struct {
	summary *models.StudentMarksSummary
}

func (f *fakeDashboardMarks) StudentSummary(ctx context.Context, filter models.MarkFilter) (*models.StudentMarksSummary, error) {
	return f.summary, nil
}

type fakeDashboardSubjects struct {
	count int
}

func (f *fakeDashboardSubjects) CountBySemester(ctx context.Context, semesterID string) (int, error) {
	return f.count, nil
}

type fakeDashboardCounts struct {
	total       int
	assignments int
}

func (f *fakeDashboardCounts) CountByStudent(ctx context.Context, studentID string) (int, error) {
	return f.total, nil
}

func (f *fakeDashboardCounts) CountByStudentAndExamType(ctx context.Context, studentID string, examType models.ExamType) (int, error) {
	return f.assignments, nil
}

func newDashboardFixture() (*DashboardService, *fakeDashboardAttendance) {
	students := &fakeStudentRepo{students: map[string]*models.Student{
		testStudent1: {ID: testStudent1, SemesterID: testSemesterID, Division: "A"},
	}}
	attendance := &fakeDashboardAttendance{summary: &models.StudentAttendanceSummary{
		TotalClasses:      10,
		Attended:          8,
		OverallPercentage: 80,
	}}
	marks := &fakeDashboardMarks{summary: &models.StudentMarksSummary{AveragePercentage: 72.5}}
	cache := NewCacheService(newFakeCacheRepo(), nil, time.Minute, zap.NewNop(), true)
	svc := NewDashboardService(students, &fakeDashboardSubjects{count: 6}, attendance, marks,
		&fakeDashboardCounts{total: 12, assignments: 3}, cache, time.Minute, zap.NewNop())
	return svc, attendance
}

func TestStudentDashboardServedFromCache(t *testing.T) {
	svc, attendance := newDashboardFixture()

	first, err := svc.StudentDashboard(context.Background(), testStudent1)
	require.NoError(t, err)
	assert.Equal(t, 6, first.SubjectCount)
	assert.Equal(t, float64(80), first.AttendancePercentage)
	assert.Equal(t, 72.5, first.AverageMarksPercent)
	assert.Equal(t, 3, first.AssignmentCount)
	assert.Equal(t, 12, first.RecordedInternalMarks)
	assert.Equal(t, 1, attendance.calls)

	second, err := svc.StudentDashboard(context.Background(), testStudent1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, attendance.calls)
}

func TestInvalidateStudentDropsCachedDashboard(t *testing.T) {
	svc, attendance := newDashboardFixture()

	_, err := svc.StudentDashboard(context.Background(), testStudent1)
	require.NoError(t, err)
	_, err = svc.StudentDashboard(context.Background(), testStudent1)
	require.NoError(t, err)
	assert.Equal(t, 1, attendance.calls)

	svc.InvalidateStudent(context.Background(), testStudent1)

	// The next read rebuilds the rollup instead of serving the stale copy.
	_, err = svc.StudentDashboard(context.Background(), testStudent1)
	require.NoError(t, err)
	assert.Equal(t, 2, attendance.calls)
}
