package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/college-erp-api/internal/models"
)

// SemesterRepository persists the semester catalog.
type SemesterRepository struct {
	db *sqlx.DB
}

// NewSemesterRepository constructs the repository.
func NewSemesterRepository(db *sqlx.DB) *SemesterRepository {
	return &SemesterRepository{db: db}
}

// Create inserts a new semester. A duplicate number surfaces as a unique
// violation for the caller to translate.
func (r *SemesterRepository) Create(ctx context.Context, semester *models.Semester) error {
	if semester.ID == "" {
		semester.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if semester.CreatedAt.IsZero() {
		semester.CreatedAt = now
	}
	semester.UpdatedAt = now
	if semester.Divisions == nil {
		semester.Divisions = pq.StringArray{}
	}

	const query = `INSERT INTO semesters (id, number, divisions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, semester.ID, semester.Number, semester.Divisions, semester.CreatedAt, semester.UpdatedAt); err != nil {
		return fmt.Errorf("create semester: %w", err)
	}
	return nil
}

// List returns all semesters ordered by number.
func (r *SemesterRepository) List(ctx context.Context) ([]models.Semester, error) {
	const query = `SELECT id, number, divisions, created_at, updated_at FROM semesters ORDER BY number ASC`
	var semesters []models.Semester
	if err := r.db.SelectContext(ctx, &semesters, query); err != nil {
		return nil, fmt.Errorf("list semesters: %w", err)
	}
	return semesters, nil
}

// FindByID returns a semester by identifier.
func (r *SemesterRepository) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	const query = `SELECT id, number, divisions, created_at, updated_at FROM semesters WHERE id = $1 LIMIT 1`
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find semester by id: %w", err)
	}
	return &semester, nil
}

// FindByNumber returns a semester by its unique number.
func (r *SemesterRepository) FindByNumber(ctx context.Context, number int) (*models.Semester, error) {
	const query = `SELECT id, number, divisions, created_at, updated_at FROM semesters WHERE number = $1 LIMIT 1`
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, number); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find semester by number: %w", err)
	}
	return &semester, nil
}

// UpdateDivisions replaces the division set of a semester.
func (r *SemesterRepository) UpdateDivisions(ctx context.Context, id string, divisions pq.StringArray) error {
	const query = `UPDATE semesters SET divisions = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, divisions, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update semester divisions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated semester rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Update updates the semester number.
func (r *SemesterRepository) Update(ctx context.Context, semester *models.Semester) error {
	semester.UpdatedAt = time.Now().UTC()
	const query = `UPDATE semesters SET number = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, semester.ID, semester.Number, semester.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update semester: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated semester rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a semester. Referential integrity across subjects and
// students is the caller's responsibility; no cascade is enforced here.
func (r *SemesterRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM semesters WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete semester: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted semester rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
