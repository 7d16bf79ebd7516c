package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-erp-api/internal/models"
	"github.com/noah-isme/college-erp-api/internal/repository"
	appErrors "github.com/noah-isme/college-erp-api/pkg/errors"
)

type teacherStore interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id string) error
}

type assignmentStore interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.SubjectAssignmentDetail, error)
	Exists(ctx context.Context, teacherID, subjectID, division string) (bool, error)
	Create(ctx context.Context, assignment *models.SubjectAssignment) error
	Delete(ctx context.Context, teacherID, assignmentID string) error
}

// CreateTeacherRequest payload for registering a teacher.
type CreateTeacherRequest struct {
	TeacherNo string  `json:"teacher_no" validate:"required"`
	FullName  string  `json:"full_name" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=6"`
	Phone     *string `json:"phone" validate:"omitempty"`
}

// UpdateTeacherRequest payload for editing a teacher.
type UpdateTeacherRequest struct {
	FullName string  `json:"full_name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    *string `json:"phone" validate:"omitempty"`
}

// UpdateTeacherProfileRequest payload for a teacher's own profile edit. The
// email and teacher number stay under admin control.
type UpdateTeacherProfileRequest struct {
	FullName string  `json:"full_name" validate:"required"`
	Phone    *string `json:"phone" validate:"omitempty"`
}

// AssignSubjectRequest payload for granting a teaching assignment.
type AssignSubjectRequest struct {
	SubjectID string `json:"subject_id" validate:"required,uuid4"`
	Division  string `json:"division" validate:"required"`
}

// TeacherService manages teacher accounts and their subject assignments.
type TeacherService struct {
	repo        teacherStore
	assignments assignmentStore
	subjects    subjectStore
	semesters   subjectSemesterStore
	passwords   PasswordVerifier
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherStore, assignments assignmentStore, subjects subjectStore, semesters subjectSemesterStore, passwords PasswordVerifier, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if passwords == nil {
		passwords = NewBcryptVerifier()
	}
	return &TeacherService{
		repo:        repo,
		assignments: assignments,
		subjects:    subjects,
		semesters:   semesters,
		passwords:   passwords,
		validator:   validate,
		logger:      logger,
	}
}

// Create registers a new teacher account with a hashed password.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	teacher := &models.Teacher{
		TeacherNo:    req.TeacherNo,
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.Phone,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("teacher with number %q or email %q already exists", req.TeacherNo, req.Email))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}

	s.logger.Info("teacher created", zap.String("teacher_no", teacher.TeacherNo))
	return teacher, nil
}

// Get returns one teacher by identifier.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch teacher")
	}
	return teacher, nil
}

// List returns teachers matching the filter with pagination metadata.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, total, nil
}

// Update edits a teacher's profile fields.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	teacher.FullName = req.FullName
	teacher.Email = req.Email
	teacher.Phone = req.Phone
	if err := s.repo.Update(ctx, teacher); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("teacher with email %q already exists", req.Email))
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return teacher, nil
}

// UpdateProfile edits the fields a teacher may change about themselves.
func (s *TeacherService) UpdateProfile(ctx context.Context, teacherID string, req UpdateTeacherProfileRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	teacher, err := s.Get(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	teacher.FullName = req.FullName
	teacher.Phone = req.Phone
	if err := s.repo.Update(ctx, teacher); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return teacher, nil
}

// Delete removes a teacher; their assignments cascade away with them.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	return nil
}

// Assignments returns a teacher's subject assignments with catalog detail.
func (s *TeacherService) Assignments(ctx context.Context, teacherID string) ([]models.SubjectAssignmentDetail, error) {
	if _, err := s.Get(ctx, teacherID); err != nil {
		return nil, err
	}
	assignments, err := s.assignments.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// AssignSubject grants a teacher the (subject, division) pair. The division
// must belong to the subject's semester, and the same grant cannot be made
// twice; the storage unique index backs the duplicate check under races.
func (s *TeacherService) AssignSubject(ctx context.Context, teacherID string, req AssignSubjectRequest) (*models.SubjectAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	if _, err := s.Get(ctx, teacherID); err != nil {
		return nil, err
	}

	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch subject")
	}

	semester, err := s.semesters.FindByID(ctx, subject.SemesterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch semester")
	}
	if !semester.HasDivision(req.Division) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("division %q does not exist in semester %d", req.Division, semester.Number))
	}

	exists, err := s.assignments.Exists(ctx, teacherID, req.SubjectID, req.Division)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "assignment already exists")
	}

	assignment := &models.SubjectAssignment{
		TeacherID: teacherID,
		SubjectID: req.SubjectID,
		Division:  req.Division,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "assignment already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	s.logger.Info("subject assigned",
		zap.String("teacher_id", teacherID),
		zap.String("subject_id", req.SubjectID),
		zap.String("division", req.Division))
	return assignment, nil
}

// RemoveAssignment revokes one of a teacher's assignments.
func (s *TeacherService) RemoveAssignment(ctx context.Context, teacherID, assignmentID string) error {
	if err := s.assignments.Delete(ctx, teacherID, assignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}
