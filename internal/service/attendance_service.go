package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-erp-api/internal/models"
	"github.com/noah-isme/college-erp-api/internal/repository"
	appErrors "github.com/noah-isme/college-erp-api/pkg/errors"
)

type attendanceStore interface {
	FindByKey(ctx context.Context, subjectID, division string, date time.Time) (*models.AttendanceRecord, error)
	Create(ctx context.Context, record *models.AttendanceRecord) error
	ReplaceEntries(ctx context.Context, record *models.AttendanceRecord) error
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	StudentRows(ctx context.Context, studentID, semesterID, division string, filter models.StudentAttendanceFilter) ([]models.StudentAttendanceRow, error)
	StudentSubjectStats(ctx context.Context, studentID, semesterID, division string, filter models.StudentAttendanceFilter) ([]models.SubjectAttendanceStat, error)
}

type attendanceAuthz interface {
	Exists(ctx context.Context, teacherID, subjectID, division string) (bool, error)
	ExistsForSubject(ctx context.Context, teacherID, subjectID string) (bool, error)
}

type attendanceRoster interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Roster(ctx context.Context, semesterID, division string) ([]models.RosterStudent, error)
}

// MarkEntryRequest is one student's state in a mark submission.
type MarkEntryRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid4"`
	Status    string `json:"status" validate:"required,oneof=Present Absent"`
}

// MarkAttendanceRequest payload for marking (or re-marking) one class day.
type MarkAttendanceRequest struct {
	SubjectID string             `json:"subject_id" validate:"required,uuid4"`
	Division  string             `json:"division" validate:"required"`
	Date      string             `json:"date" validate:"required,datetime=2006-01-02"`
	Entries   []MarkEntryRequest `json:"entries" validate:"required,min=1,dive"`
}

// AttendanceService maintains the per-class attendance ledger.
type AttendanceService struct {
	repo      attendanceStore
	authz     attendanceAuthz
	subjects  subjectStore
	students  attendanceRoster
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(repo attendanceStore, authz attendanceAuthz, subjects subjectStore, students attendanceRoster, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{
		repo:      repo,
		authz:     authz,
		subjects:  subjects,
		students:  students,
		validator: validate,
		logger:    logger,
	}
}

// Mark records one class day. Marking an already-marked (subject, division,
// date) replaces the entry set wholesale and recomputes the counts; partial
// edits are not supported by the ledger.
func (s *AttendanceService) Mark(ctx context.Context, teacherID string, req MarkAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	allowed, err := s.authz.Exists(ctx, teacherID, req.SubjectID, req.Division)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "subject is not assigned to you for this division")
	}

	date, err := parseLedgerDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}

	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch subject")
	}

	roster, err := s.students.Roster(ctx, subject.SemesterID, req.Division)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	inClass := make(map[string]bool, len(roster))
	for _, st := range roster {
		inClass[st.ID] = true
	}

	entries := make([]models.AttendanceEntry, 0, len(req.Entries))
	seen := make(map[string]bool, len(req.Entries))
	for _, e := range req.Entries {
		if !inClass[e.StudentID] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s is not in this class", e.StudentID))
		}
		if seen[e.StudentID] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s appears more than once", e.StudentID))
		}
		seen[e.StudentID] = true
		entries = append(entries, models.AttendanceEntry{
			StudentID: e.StudentID,
			Status:    models.AttendanceStatus(e.Status),
		})
	}

	counts := models.TallyEntries(entries)

	existing, err := s.repo.FindByKey(ctx, req.SubjectID, req.Division, date)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch attendance record")
	}

	if existing != nil {
		existing.TeacherID = teacherID
		existing.AttendanceCounts = counts
		existing.Entries = entries
		if err := s.repo.ReplaceEntries(ctx, existing); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance record")
		}
		s.logger.Info("attendance re-marked",
			zap.String("subject_id", req.SubjectID),
			zap.String("division", req.Division),
			zap.String("date", req.Date),
			zap.Int("present", counts.Present),
			zap.Int("total", counts.Total))
		return existing, nil
	}

	record := &models.AttendanceRecord{
		SubjectID:        req.SubjectID,
		TeacherID:        teacherID,
		Division:         req.Division,
		Date:             date,
		AttendanceCounts: counts,
		Entries:          entries,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "attendance for this class and date was just marked; retry to overwrite")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create attendance record")
	}

	s.logger.Info("attendance marked",
		zap.String("subject_id", req.SubjectID),
		zap.String("division", req.Division),
		zap.String("date", req.Date),
		zap.Int("present", counts.Present),
		zap.Int("total", counts.Total))
	return record, nil
}

// List returns ledger records for one of the teacher's subjects.
func (s *AttendanceService) List(ctx context.Context, teacherID string, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	if filter.SubjectID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject_id is required")
	}

	allowed, err := s.authz.ExistsForSubject(ctx, teacherID, filter.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "subject is not assigned to you")
	}

	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance records")
	}
	return records, nil
}

// Roster returns the class list a teacher marks attendance against.
func (s *AttendanceService) Roster(ctx context.Context, teacherID, subjectID, division string) ([]models.RosterStudent, error) {
	allowed, err := s.authz.Exists(ctx, teacherID, subjectID, division)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "subject is not assigned to you for this division")
	}

	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch subject")
	}

	roster, err := s.students.Roster(ctx, subject.SemesterID, division)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	return roster, nil
}

// StudentSummary builds the student-facing attendance report, optionally
// narrowed by subject and date range. Days the student has no entry for
// count as Absent, and a class with no recorded days reports zero percent
// rather than dividing by zero.
func (s *AttendanceService) StudentSummary(ctx context.Context, studentID string, filter models.StudentAttendanceFilter) (*models.StudentAttendanceSummary, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	rows, err := s.repo.StudentRows(ctx, studentID, student.SemesterID, student.Division, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance rows")
	}
	stats, err := s.repo.StudentSubjectStats(ctx, studentID, student.SemesterID, student.Division, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance stats")
	}

	summary := &models.StudentAttendanceSummary{Rows: rows, Subjects: stats}
	for i := range summary.Subjects {
		stat := &summary.Subjects[i]
		stat.Percentage = percentage(stat.Attended, stat.TotalClasses)
		summary.TotalClasses += stat.TotalClasses
		summary.Attended += stat.Attended
	}
	summary.OverallPercentage = percentage(summary.Attended, summary.TotalClasses)
	return summary, nil
}

func parseLedgerDate(value string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC), nil
}

func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return roundTwoDecimals(float64(part) / float64(whole) * 100)
}

func roundTwoDecimals(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
