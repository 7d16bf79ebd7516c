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

type studentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	Roster(ctx context.Context, semesterID, division string) ([]models.RosterStudent, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// CreateStudentRequest payload for registering a student.
type CreateStudentRequest struct {
	FullName   string `json:"full_name" validate:"required"`
	UUCMSNo    string `json:"uucms_no" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	SemesterID string `json:"semester_id" validate:"required,uuid4"`
	Division   string `json:"division" validate:"required"`
}

// UpdateStudentRequest payload for editing a student, including promotion.
type UpdateStudentRequest struct {
	FullName   string `json:"full_name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	SemesterID string `json:"semester_id" validate:"required,uuid4"`
	Division   string `json:"division" validate:"required"`
}

// UpdateStudentProfileRequest payload for a student's own profile edit.
// Placement and email stay under admin control.
type UpdateStudentProfileRequest struct {
	FullName string `json:"full_name" validate:"required"`
}

// StudentService manages student accounts and class placement.
type StudentService struct {
	repo      studentStore
	semesters subjectSemesterStore
	passwords PasswordVerifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentStore, semesters subjectSemesterStore, passwords PasswordVerifier, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if passwords == nil {
		passwords = NewBcryptVerifier()
	}
	return &StudentService{repo: repo, semesters: semesters, passwords: passwords, validator: validate, logger: logger}
}

func (s *StudentService) checkPlacement(ctx context.Context, semesterID, division string) error {
	semester, err := s.semesters.FindByID(ctx, semesterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch semester")
	}
	if !semester.HasDivision(division) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("division %q does not exist in semester %d", division, semester.Number))
	}
	return nil
}

// Create registers a new student under an existing (semester, division).
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.checkPlacement(ctx, req.SemesterID, req.Division); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	student := &models.Student{
		FullName:     req.FullName,
		UUCMSNo:      req.UUCMSNo,
		Email:        req.Email,
		SemesterID:   req.SemesterID,
		Division:     req.Division,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("student with UUCMS number %q or email %q already exists", req.UUCMSNo, req.Email))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	s.logger.Info("student created", zap.String("uucms_no", student.UUCMSNo))
	return student, nil
}

// Get returns one student by identifier.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	return student, nil
}

// List returns students matching the filter with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, total, nil
}

// Update edits a student's profile or promotes them to another class.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkPlacement(ctx, req.SemesterID, req.Division); err != nil {
		return nil, err
	}

	student.FullName = req.FullName
	student.Email = req.Email
	student.SemesterID = req.SemesterID
	student.Division = req.Division
	if err := s.repo.Update(ctx, student); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("student with email %q already exists", req.Email))
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// UpdateProfile edits the fields a student may change about themselves.
func (s *StudentService) UpdateProfile(ctx context.Context, studentID string, req UpdateStudentProfileRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	student, err := s.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}

	student.FullName = req.FullName
	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return student, nil
}

// Delete removes a student.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}
