package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-erp-api/internal/models"
)

// AssignmentRepository persists teacher subject/division grants.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// ListByTeacher returns assignment grants owned by a teacher.
func (r *AssignmentRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.SubjectAssignmentDetail, error) {
	const query = `
SELECT a.id, a.teacher_id, a.subject_id, a.division, a.created_at,
       s.code AS subject_code, s.name AS subject_name, sem.number AS semester_number
FROM subject_assignments a
JOIN subjects s ON s.id = a.subject_id
JOIN semesters sem ON sem.id = s.semester_id
WHERE a.teacher_id = $1
ORDER BY sem.number ASC, s.code ASC, a.division ASC`
	var assignments []models.SubjectAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, teacherID); err != nil {
		return nil, fmt.Errorf("list subject assignments: %w", err)
	}
	return assignments, nil
}

// Exists checks whether the teacher already holds the (subject, division)
// grant. The compound unique index remains the authority under races.
func (r *AssignmentRepository) Exists(ctx context.Context, teacherID, subjectID, division string) (bool, error) {
	const query = `SELECT 1 FROM subject_assignments WHERE teacher_id = $1 AND subject_id = $2 AND division = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, teacherID, subjectID, division); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check subject assignment: %w", err)
	}
	return true, nil
}

// ExistsForSubject checks whether the teacher holds any grant on the subject,
// regardless of division. Subject-level reads only require this.
func (r *AssignmentRepository) ExistsForSubject(ctx context.Context, teacherID, subjectID string) (bool, error) {
	const query = `SELECT 1 FROM subject_assignments WHERE teacher_id = $1 AND subject_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, teacherID, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check subject-level assignment: %w", err)
	}
	return true, nil
}

// Create inserts a new assignment grant.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.SubjectAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO subject_assignments (id, teacher_id, subject_id, division, created_at)
		VALUES (:id, :teacher_id, :subject_id, :division, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create subject assignment: %w", err)
	}
	return nil
}

// Delete removes an assignment grant verifying ownership.
func (r *AssignmentRepository) Delete(ctx context.Context, teacherID, assignmentID string) error {
	const query = `DELETE FROM subject_assignments WHERE id = $1 AND teacher_id = $2`
	result, err := r.db.ExecContext(ctx, query, assignmentID, teacherID)
	if err != nil {
		return fmt.Errorf("delete subject assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
