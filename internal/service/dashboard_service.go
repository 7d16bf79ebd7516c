package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/college-erp-api/internal/dto"
	"github.com/noah-isme/college-erp-api/internal/models"
	appErrors "github.com/noah-isme/college-erp-api/pkg/errors"
)

type dashboardStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type dashboardSubjectStore interface {
	CountBySemester(ctx context.Context, semesterID string) (int, error)
}

type dashboardAttendance interface {
	StudentSummary(ctx context.Context, studentID string, filter models.StudentAttendanceFilter) (*models.StudentAttendanceSummary, error)
}

type dashboardMarks interface {
	StudentSummary(ctx context.Context, filter models.MarkFilter) (*models.StudentMarksSummary, error)
}

type dashboardMarkCounts interface {
	CountByStudent(ctx context.Context, studentID string) (int, error)
	CountByStudentAndExamType(ctx context.Context, studentID string, examType models.ExamType) (int, error)
}

// DashboardService assembles the cached student dashboard rollup.
type DashboardService struct {
	students   dashboardStudentStore
	subjects   dashboardSubjectStore
	attendance dashboardAttendance
	marks      dashboardMarks
	markCounts dashboardMarkCounts
	cache      *CacheService
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(students dashboardStudentStore, subjects dashboardSubjectStore, attendance dashboardAttendance, marks dashboardMarks, markCounts dashboardMarkCounts, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{
		students:   students,
		subjects:   subjects,
		attendance: attendance,
		marks:      marks,
		markCounts: markCounts,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

func dashboardCacheKey(studentID string) string {
	return fmt.Sprintf("dashboard:student:%s", studentID)
}

// StudentDashboard builds the student rollup, serving from cache when fresh.
func (s *DashboardService) StudentDashboard(ctx context.Context, studentID string) (*dto.StudentDashboardResponse, error) {
	key := dashboardCacheKey(studentID)
	var cached dto.StudentDashboardResponse
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	subjectCount, err := s.subjects.CountBySemester(ctx, student.SemesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count subjects")
	}

	attendance, err := s.attendance.StudentSummary(ctx, studentID, models.StudentAttendanceFilter{})
	if err != nil {
		return nil, err
	}
	marks, err := s.marks.StudentSummary(ctx, models.MarkFilter{StudentID: studentID})
	if err != nil {
		return nil, err
	}

	assignmentCount, err := s.markCounts.CountByStudentAndExamType(ctx, studentID, models.ExamAssignment)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count assignments")
	}
	markCount, err := s.markCounts.CountByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count marks")
	}

	dashboard := &dto.StudentDashboardResponse{
		StudentID:             studentID,
		SubjectCount:          subjectCount,
		AttendancePercentage:  attendance.OverallPercentage,
		AverageMarksPercent:   marks.AveragePercentage,
		AssignmentCount:       assignmentCount,
		TotalClasses:          attendance.TotalClasses,
		ClassesAttended:       attendance.Attended,
		RecordedInternalMarks: markCount,
	}

	if err := s.cache.Set(ctx, key, dashboard, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache dashboard", zap.String("student_id", studentID), zap.Error(err))
	}
	return dashboard, nil
}

// InvalidateStudent drops a student's cached dashboard after a ledger write.
func (s *DashboardService) InvalidateStudent(ctx context.Context, studentID string) {
	if err := s.cache.Delete(ctx, dashboardCacheKey(studentID)); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.String("student_id", studentID), zap.Error(err))
	}
}
