package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/college-erp-api/internal/models"
	appErrors "github.com/noah-isme/college-erp-api/pkg/errors"
)

type fakeSemesterRepo struct {
	semesters map[string]*models.Semester
	byNumber  map[int]*models.Semester
}

func newFakeSemesterRepo() *fakeSemesterRepo {
	return &fakeSemesterRepo{
		semesters: make(map[string]*models.Semester),
		byNumber:  make(map[int]*models.Semester),
	}
}

func (f *fakeSemesterRepo) Create(ctx context.Context, semester *models.Semester) error {
	if _, exists := f.byNumber[semester.Number]; exists {
		return &pq.Error{Code: "23505"}
	}
	semester.ID = fmt.Sprintf("sem-%d", semester.Number)
	f.semesters[semester.ID] = semester
	f.byNumber[semester.Number] = semester
	return nil
}

func (f *fakeSemesterRepo) List(ctx context.Context) ([]models.Semester, error) {
	out := make([]models.Semester, 0, len(f.semesters))
	for _, s := range f.semesters {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeSemesterRepo) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	if s, ok := f.semesters[id]; ok {
		clone := *s
		clone.Divisions = append(pq.StringArray{}, s.Divisions...)
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSemesterRepo) FindByNumber(ctx context.Context, number int) (*models.Semester, error) {
	if s, ok := f.byNumber[number]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSemesterRepo) UpdateDivisions(ctx context.Context, id string, divisions pq.StringArray) error {
	s, ok := f.semesters[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.Divisions = divisions
	return nil
}

func (f *fakeSemesterRepo) Update(ctx context.Context, semester *models.Semester) error {
	existing, ok := f.semesters[semester.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if other, taken := f.byNumber[semester.Number]; taken && other.ID != semester.ID {
		return &pq.Error{Code: "23505"}
	}
	delete(f.byNumber, existing.Number)
	f.semesters[semester.ID] = semester
	f.byNumber[semester.Number] = semester
	return nil
}

func (f *fakeSemesterRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.semesters[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.semesters, id)
	return nil
}

func TestCreateSemesterNormalizesDivisions(t *testing.T) {
	svc := NewSemesterService(newFakeSemesterRepo(), validator.New(), zap.NewNop())

	semester, err := svc.Create(context.Background(), CreateSemesterRequest{
		Number:    1,
		Divisions: []string{" A ", "B", "A", ""},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, semester.Number)
	assert.Equal(t, pq.StringArray{"A", "B"}, semester.Divisions)
}

func TestCreateSemesterDuplicateNumber(t *testing.T) {
	svc := NewSemesterService(newFakeSemesterRepo(), validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateSemesterRequest{Number: 3})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateSemesterRequest{Number: 3})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCreateSemesterNumberOutOfRange(t *testing.T) {
	svc := NewSemesterService(newFakeSemesterRepo(), validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateSemesterRequest{Number: 13})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateSemesterRenumbers(t *testing.T) {
	repo := newFakeSemesterRepo()
	svc := NewSemesterService(repo, validator.New(), zap.NewNop())

	created, err := svc.Create(context.Background(), CreateSemesterRequest{Number: 2, Divisions: []string{"A"}})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, UpdateSemesterRequest{Number: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Number)
	assert.Equal(t, pq.StringArray{"A"}, updated.Divisions)

	fetched, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, fetched.Number)
}

func TestUpdateSemesterDuplicateNumber(t *testing.T) {
	repo := newFakeSemesterRepo()
	svc := NewSemesterService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateSemesterRequest{Number: 1})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), CreateSemesterRequest{Number: 2})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), second.ID, UpdateSemesterRequest{Number: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUpdateSemesterNotFound(t *testing.T) {
	svc := NewSemesterService(newFakeSemesterRepo(), validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), "missing", UpdateSemesterRequest{Number: 5})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAddDivision(t *testing.T) {
	repo := newFakeSemesterRepo()
	svc := NewSemesterService(repo, validator.New(), zap.NewNop())

	created, err := svc.Create(context.Background(), CreateSemesterRequest{Number: 1, Divisions: []string{"A"}})
	require.NoError(t, err)

	updated, err := svc.AddDivision(context.Background(), created.ID, DivisionRequest{Division: "B"})
	require.NoError(t, err)
	assert.Equal(t, pq.StringArray{"A", "B"}, updated.Divisions)

	_, err = svc.AddDivision(context.Background(), created.ID, DivisionRequest{Division: "B"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRemoveDivision(t *testing.T) {
	repo := newFakeSemesterRepo()
	svc := NewSemesterService(repo, validator.New(), zap.NewNop())

	created, err := svc.Create(context.Background(), CreateSemesterRequest{Number: 1, Divisions: []string{"A", "B"}})
	require.NoError(t, err)

	updated, err := svc.RemoveDivision(context.Background(), created.ID, DivisionRequest{Division: "A"})
	require.NoError(t, err)
	assert.Equal(t, pq.StringArray{"B"}, updated.Divisions)

	_, err = svc.RemoveDivision(context.Background(), created.ID, DivisionRequest{Division: "C"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGetSemesterNotFound(t *testing.T) {
	svc := NewSemesterService(newFakeSemesterRepo(), validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
