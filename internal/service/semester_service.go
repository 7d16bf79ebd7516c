package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/college-erp-api/internal/models"
	"github.com/noah-isme/college-erp-api/internal/repository"
	appErrors "github.com/noah-isme/college-erp-api/pkg/errors"
)

type semesterStore interface {
	Create(ctx context.Context, semester *models.Semester) error
	List(ctx context.Context) ([]models.Semester, error)
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	FindByNumber(ctx context.Context, number int) (*models.Semester, error)
	UpdateDivisions(ctx context.Context, id string, divisions pq.StringArray) error
	Update(ctx context.Context, semester *models.Semester) error
	Delete(ctx context.Context, id string) error
}

// CreateSemesterRequest payload for registering a semester.
type CreateSemesterRequest struct {
	Number    int      `json:"number" validate:"required,min=1,max=12"`
	Divisions []string `json:"divisions" validate:"omitempty,dive,required"`
}

// UpdateSemesterRequest payload for renumbering a semester.
type UpdateSemesterRequest struct {
	Number int `json:"number" validate:"required,min=1,max=12"`
}

// DivisionRequest payload for adding or removing a division.
type DivisionRequest struct {
	Division string `json:"division" validate:"required"`
}

// SemesterService manages the semester catalog and its division sets.
type SemesterService struct {
	repo      semesterStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSemesterService constructs a SemesterService.
func NewSemesterService(repo semesterStore, validate *validator.Validate, logger *zap.Logger) *SemesterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SemesterService{repo: repo, validator: validate, logger: logger}
}

// Create registers a new semester with an optional initial division set.
func (s *SemesterService) Create(ctx context.Context, req CreateSemesterRequest) (*models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester payload")
	}

	semester := &models.Semester{
		Number:    req.Number,
		Divisions: normalizeDivisions(req.Divisions),
	}
	if err := s.repo.Create(ctx, semester); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("semester %d already exists", req.Number))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create semester")
	}

	s.logger.Info("semester created", zap.Int("number", semester.Number))
	return semester, nil
}

// List returns all semesters ordered by number.
func (s *SemesterService) List(ctx context.Context) ([]models.Semester, error) {
	semesters, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semesters")
	}
	return semesters, nil
}

// Get returns one semester by identifier.
func (s *SemesterService) Get(ctx context.Context, id string) (*models.Semester, error) {
	semester, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch semester")
	}
	return semester, nil
}

// Update renumbers a semester. The division set is managed through
// AddDivision and RemoveDivision, not here. The unique index on number
// backs the collision check under races.
func (s *SemesterService) Update(ctx context.Context, id string, req UpdateSemesterRequest) (*models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester payload")
	}

	semester, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	semester.Number = req.Number
	if err := s.repo.Update(ctx, semester); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("semester %d already exists", req.Number))
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update semester")
	}

	s.logger.Info("semester updated", zap.String("id", semester.ID), zap.Int("number", semester.Number))
	return semester, nil
}

// AddDivision appends a division label to a semester. The label must not
// already be present.
func (s *SemesterService) AddDivision(ctx context.Context, semesterID string, req DivisionRequest) (*models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid division payload")
	}

	semester, err := s.Get(ctx, semesterID)
	if err != nil {
		return nil, err
	}

	division := strings.TrimSpace(req.Division)
	if division == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "division must not be blank")
	}
	if semester.HasDivision(division) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("division %q already exists", division))
	}

	semester.Divisions = append(semester.Divisions, division)
	if err := s.repo.UpdateDivisions(ctx, semester.ID, semester.Divisions); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update divisions")
	}
	return semester, nil
}

// RemoveDivision drops a division label from a semester. Students already
// registered in the division keep their assignment; removal only stops new
// use of the label.
func (s *SemesterService) RemoveDivision(ctx context.Context, semesterID string, req DivisionRequest) (*models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid division payload")
	}

	semester, err := s.Get(ctx, semesterID)
	if err != nil {
		return nil, err
	}

	division := strings.TrimSpace(req.Division)
	if !semester.HasDivision(division) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("division %q does not exist", division))
	}

	kept := semester.Divisions[:0]
	for _, d := range semester.Divisions {
		if d != division {
			kept = append(kept, d)
		}
	}
	semester.Divisions = kept
	if err := s.repo.UpdateDivisions(ctx, semester.ID, semester.Divisions); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update divisions")
	}
	return semester, nil
}

// Delete removes a semester.
func (s *SemesterService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete semester")
	}
	return nil
}

func normalizeDivisions(divisions []string) pq.StringArray {
	out := pq.StringArray{}
	seen := make(map[string]bool, len(divisions))
	for _, d := range divisions {
		d = strings.TrimSpace(d)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
