package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-erp-api/internal/models"
	"github.com/noah-isme/college-erp-api/internal/repository"
	appErrors "github.com/noah-isme/college-erp-api/pkg/errors"
)

type markStore interface {
	FindByKey(ctx context.Context, studentID, subjectID string, examType models.ExamType) (*models.InternalMark, error)
	FindByID(ctx context.Context, id string) (*models.InternalMark, error)
	Create(ctx context.Context, mark *models.InternalMark) error
	Update(ctx context.Context, mark *models.InternalMark) error
	Delete(ctx context.Context, id string) error
	ListByStudent(ctx context.Context, filter models.MarkFilter) ([]models.InternalMark, error)
	ListBySubjectGroup(ctx context.Context, subjectID, division string, examType models.ExamType) ([]models.InternalMark, error)
	ClassAverage(ctx context.Context, subjectID, division string, examType models.ExamType) (*models.ClassAverage, error)
	SubjectBreakdown(ctx context.Context, studentID string) ([]models.SubjectMarksBreakdown, error)
}

// MarkEntryInput is one student's score inside a batch submission.
type MarkEntryInput struct {
	StudentID     string  `json:"student_id" validate:"required,uuid4"`
	MaxMarks      float64 `json:"max_marks" validate:"required,gt=0"`
	ObtainedMarks float64 `json:"obtained_marks" validate:"min=0"`
	Remarks       *string `json:"remarks"`
}

// SubmitMarksRequest payload for recording marks for a class at once.
type SubmitMarksRequest struct {
	SubjectID string           `json:"subject_id" validate:"required,uuid4"`
	Division  string           `json:"division" validate:"required"`
	ExamType  string           `json:"exam_type" validate:"required"`
	ExamDate  string           `json:"exam_date" validate:"required,datetime=2006-01-02"`
	Entries   []MarkEntryInput `json:"entries" validate:"required,min=1,dive"`
}

// MarkEntryError describes why one entry in a batch was rejected.
type MarkEntryError struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// SubmitMarksResult reports the batch outcome. Entries succeed and fail
// independently; one bad row never blocks the rest.
type SubmitMarksResult struct {
	Saved      []models.InternalMark `json:"saved"`
	Errors     []MarkEntryError      `json:"errors"`
	SavedCount int                   `json:"saved_count"`
}

// MarkService maintains the internal marks ledger.
type MarkService struct {
	repo      markStore
	authz     attendanceAuthz
	subjects  subjectStore
	students  attendanceRoster
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMarkService constructs a MarkService.
func NewMarkService(repo markStore, authz attendanceAuthz, subjects subjectStore, students attendanceRoster, validate *validator.Validate, logger *zap.Logger) *MarkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MarkService{
		repo:      repo,
		authz:     authz,
		subjects:  subjects,
		students:  students,
		validator: validate,
		logger:    logger,
	}
}

// Submit records a batch of marks. Each (student, subject, examType) triple
// is upserted: a repeated submission rewrites the existing row in place.
func (s *MarkService) Submit(ctx context.Context, teacherID string, req SubmitMarksRequest) (*SubmitMarksResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid marks payload")
	}

	examType := models.ExamType(req.ExamType)
	if !examType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported exam type %q", req.ExamType))
	}

	allowed, err := s.authz.Exists(ctx, teacherID, req.SubjectID, req.Division)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "subject is not assigned to you for this division")
	}

	examDate, err := parseLedgerDate(req.ExamDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exam_date must be formatted YYYY-MM-DD")
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

	result := &SubmitMarksResult{Saved: []models.InternalMark{}, Errors: []MarkEntryError{}}
	seen := make(map[string]bool, len(req.Entries))
	for _, entry := range req.Entries {
		if reason := s.entryReason(entry, inClass, seen); reason != "" {
			result.Errors = append(result.Errors, MarkEntryError{StudentID: entry.StudentID, Reason: reason})
			continue
		}
		seen[entry.StudentID] = true

		mark, err := s.upsertEntry(ctx, teacherID, subject, req.Division, examType, examDate, entry)
		if err != nil {
			s.logger.Warn("mark entry rejected",
				zap.String("student_id", entry.StudentID),
				zap.Error(err))
			result.Errors = append(result.Errors, MarkEntryError{StudentID: entry.StudentID, Reason: "failed to save mark"})
			continue
		}
		result.Saved = append(result.Saved, *mark)
	}
	result.SavedCount = len(result.Saved)
	return result, nil
}

func (s *MarkService) entryReason(entry MarkEntryInput, inClass, seen map[string]bool) string {
	if seen[entry.StudentID] {
		return "student appears more than once in the batch"
	}
	if !inClass[entry.StudentID] {
		return "student is not in this class"
	}
	if entry.MaxMarks <= 0 {
		return "max_marks must be positive"
	}
	if entry.ObtainedMarks < 0 || entry.ObtainedMarks > entry.MaxMarks {
		return "obtained_marks must be between 0 and max_marks"
	}
	return ""
}

func (s *MarkService) upsertEntry(ctx context.Context, teacherID string, subject *models.Subject, division string, examType models.ExamType, examDate time.Time, entry MarkEntryInput) (*models.InternalMark, error) {
	existing, err := s.repo.FindByKey(ctx, entry.StudentID, subject.ID, examType)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fetch existing mark: %w", err)
	}

	if existing != nil {
		existing.TeacherID = teacherID
		existing.MaxMarks = entry.MaxMarks
		existing.ObtainedMarks = entry.ObtainedMarks
		existing.ExamDate = examDate
		existing.Remarks = entry.Remarks
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("update mark: %w", err)
		}
		return existing, nil
	}

	mark := &models.InternalMark{
		StudentID:     entry.StudentID,
		SubjectID:     subject.ID,
		TeacherID:     teacherID,
		Division:      division,
		SemesterID:    subject.SemesterID,
		ExamType:      examType,
		MaxMarks:      entry.MaxMarks,
		ObtainedMarks: entry.ObtainedMarks,
		ExamDate:      examDate,
		Remarks:       entry.Remarks,
	}
	if err := s.repo.Create(ctx, mark); err != nil {
		if repository.IsUniqueViolation(err) {
			// Lost a race with a concurrent submission; rewrite that row.
			return s.upsertEntry(ctx, teacherID, subject, division, examType, examDate, entry)
		}
		return nil, fmt.Errorf("create mark: %w", err)
	}
	return mark, nil
}

// UpdateMarkRequest edits the scoring fields of a single recorded mark.
type UpdateMarkRequest struct {
	MaxMarks      float64 `json:"max_marks" validate:"required,gt=0"`
	ObtainedMarks float64 `json:"obtained_marks" validate:"min=0"`
	ExamDate      string  `json:"exam_date" validate:"omitempty,datetime=2006-01-02"`
	Remarks       *string `json:"remarks"`
}

// Get returns a single mark from one of the teacher's classes.
func (s *MarkService) Get(ctx context.Context, teacherID, markID string) (*models.InternalMark, error) {
	mark, err := s.repo.FindByID(ctx, markID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mark not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch mark")
	}

	allowed, err := s.authz.Exists(ctx, teacherID, mark.SubjectID, mark.Division)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "subject is not assigned to you for this division")
	}
	return mark, nil
}

// UpdateOne rewrites a single mark in place. The (student, subject, examType)
// key never changes; only the scoring fields do.
func (s *MarkService) UpdateOne(ctx context.Context, teacherID, markID string, req UpdateMarkRequest) (*models.InternalMark, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark payload")
	}
	if req.ObtainedMarks < 0 || req.ObtainedMarks > req.MaxMarks {
		return nil, appErrors.Clone(appErrors.ErrValidation, "obtained_marks must be between 0 and max_marks")
	}

	mark, err := s.Get(ctx, teacherID, markID)
	if err != nil {
		return nil, err
	}

	if req.ExamDate != "" {
		examDate, err := parseLedgerDate(req.ExamDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "exam_date must be formatted YYYY-MM-DD")
		}
		mark.ExamDate = examDate
	}
	mark.TeacherID = teacherID
	mark.MaxMarks = req.MaxMarks
	mark.ObtainedMarks = req.ObtainedMarks
	mark.Remarks = req.Remarks
	if err := s.repo.Update(ctx, mark); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mark not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update mark")
	}
	return mark, nil
}

// ListGroup returns every mark in one (subject, division, examType) group.
func (s *MarkService) ListGroup(ctx context.Context, teacherID, subjectID, division string, examType models.ExamType) ([]models.InternalMark, error) {
	if !examType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported exam type %q", examType))
	}
	allowed, err := s.authz.Exists(ctx, teacherID, subjectID, division)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "subject is not assigned to you for this division")
	}
	marks, err := s.repo.ListBySubjectGroup(ctx, subjectID, division, examType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marks")
	}
	return marks, nil
}

// ClassAverage summarises one (subject, division, examType) group with
// two-decimal rounding.
func (s *MarkService) ClassAverage(ctx context.Context, teacherID, subjectID, division string, examType models.ExamType) (*models.ClassAverage, error) {
	if !examType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported exam type %q", examType))
	}
	allowed, err := s.authz.Exists(ctx, teacherID, subjectID, division)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "subject is not assigned to you for this division")
	}

	avg, err := s.repo.ClassAverage(ctx, subjectID, division, examType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute class average")
	}
	avg.AverageMarks = roundTwoDecimals(avg.AverageMarks)
	avg.AveragePercentage = roundTwoDecimals(avg.AveragePercentage)
	return avg, nil
}

// Delete removes a mark owned by the teacher and returns the removed row.
func (s *MarkService) Delete(ctx context.Context, teacherID, markID string) (*models.InternalMark, error) {
	mark, err := s.repo.FindByID(ctx, markID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mark not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch mark")
	}
	if mark.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "mark was recorded by another teacher")
	}
	if err := s.repo.Delete(ctx, markID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mark not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete mark")
	}
	return mark, nil
}

// StudentSummary builds the student-facing marks report.
func (s *MarkService) StudentSummary(ctx context.Context, filter models.MarkFilter) (*models.StudentMarksSummary, error) {
	if filter.ExamType != "" && !filter.ExamType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported exam type %q", filter.ExamType))
	}

	marks, err := s.repo.ListByStudent(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marks")
	}
	breakdown, err := s.repo.SubjectBreakdown(ctx, filter.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks breakdown")
	}

	summary := &models.StudentMarksSummary{Marks: marks, Subjects: breakdown}
	for i := range summary.Subjects {
		sub := &summary.Subjects[i]
		if sub.TotalMax > 0 {
			sub.AveragePercentage = roundTwoDecimals(sub.TotalObtained / sub.TotalMax * 100)
		}
		summary.TotalObtainedMarks += sub.TotalObtained
		summary.TotalMaxMarks += sub.TotalMax
	}
	if summary.TotalMaxMarks > 0 {
		summary.AveragePercentage = roundTwoDecimals(summary.TotalObtainedMarks / summary.TotalMaxMarks * 100)
	}
	return summary, nil
}
