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

// MarkRepository persists the internal marks ledger. Each row is keyed
// (student, subject, exam type); the unique index on that triple is the
// final arbiter under concurrent writes.
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository constructs the repository.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

// FindByKey returns the mark for (student, subject, exam type), or
// sql.ErrNoRows when none has been recorded.
func (r *MarkRepository) FindByKey(ctx context.Context, studentID, subjectID string, examType models.ExamType) (*models.InternalMark, error) {
	const query = `SELECT id, student_id, subject_id, teacher_id, division, semester_id, exam_type, max_marks, obtained_marks, exam_date, remarks, created_at, updated_at
FROM internal_marks WHERE student_id = $1 AND subject_id = $2 AND exam_type = $3 LIMIT 1`
	var mark models.InternalMark
	if err := r.db.GetContext(ctx, &mark, query, studentID, subjectID, examType); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find internal mark: %w", err)
	}
	return &mark, nil
}

// FindByID returns a mark by identifier.
func (r *MarkRepository) FindByID(ctx context.Context, id string) (*models.InternalMark, error) {
	const query = `SELECT id, student_id, subject_id, teacher_id, division, semester_id, exam_type, max_marks, obtained_marks, exam_date, remarks, created_at, updated_at
FROM internal_marks WHERE id = $1 LIMIT 1`
	var mark models.InternalMark
	if err := r.db.GetContext(ctx, &mark, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find internal mark by id: %w", err)
	}
	return &mark, nil
}

// Create inserts a new mark. A duplicate (student, subject, exam type)
// surfaces as a unique violation for the caller to translate.
func (r *MarkRepository) Create(ctx context.Context, mark *models.InternalMark) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if mark.CreatedAt.IsZero() {
		mark.CreatedAt = now
	}
	mark.UpdatedAt = now

	const query = `INSERT INTO internal_marks (id, student_id, subject_id, teacher_id, division, semester_id, exam_type, max_marks, obtained_marks, exam_date, remarks, created_at, updated_at)
		VALUES (:id, :student_id, :subject_id, :teacher_id, :division, :semester_id, :exam_type, :max_marks, :obtained_marks, :exam_date, :remarks, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, mark); err != nil {
		return fmt.Errorf("create internal mark: %w", err)
	}
	return nil
}

// Update rewrites the scoring fields of an existing mark in place.
func (r *MarkRepository) Update(ctx context.Context, mark *models.InternalMark) error {
	mark.UpdatedAt = time.Now().UTC()
	const query = `UPDATE internal_marks SET teacher_id = :teacher_id, max_marks = :max_marks, obtained_marks = :obtained_marks, exam_date = :exam_date, remarks = :remarks, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, mark)
	if err != nil {
		return fmt.Errorf("update internal mark: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated mark rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a mark.
func (r *MarkRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM internal_marks WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete internal mark: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted mark rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByStudent returns a student's marks, optionally narrowed by subject
// and exam type, newest exam first.
func (r *MarkRepository) ListByStudent(ctx context.Context, filter models.MarkFilter) ([]models.InternalMark, error) {
	query := `SELECT id, student_id, subject_id, teacher_id, division, semester_id, exam_type, max_marks, obtained_marks, exam_date, remarks, created_at, updated_at
FROM internal_marks WHERE student_id = $1`
	args := []interface{}{filter.StudentID}

	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		query += fmt.Sprintf(" AND subject_id = $%d", len(args))
	}
	if filter.ExamType != "" {
		args = append(args, filter.ExamType)
		query += fmt.Sprintf(" AND exam_type = $%d", len(args))
	}
	query += " ORDER BY exam_date DESC, exam_type ASC"

	var marks []models.InternalMark
	if err := r.db.SelectContext(ctx, &marks, query, args...); err != nil {
		return nil, fmt.Errorf("list internal marks: %w", err)
	}
	return marks, nil
}

// ListBySubjectGroup returns every mark in one (subject, division, examType)
// group, ordered by student name.
func (r *MarkRepository) ListBySubjectGroup(ctx context.Context, subjectID, division string, examType models.ExamType) ([]models.InternalMark, error) {
	const query = `SELECT m.id, m.student_id, m.subject_id, m.teacher_id, m.division, m.semester_id, m.exam_type, m.max_marks, m.obtained_marks, m.exam_date, m.remarks, m.created_at, m.updated_at
FROM internal_marks m
JOIN students s ON s.id = m.student_id
WHERE m.subject_id = $1 AND m.division = $2 AND m.exam_type = $3
ORDER BY s.full_name ASC`
	var marks []models.InternalMark
	if err := r.db.SelectContext(ctx, &marks, query, subjectID, division, examType); err != nil {
		return nil, fmt.Errorf("list subject group marks: %w", err)
	}
	return marks, nil
}

// ClassAverage summarises one (subject, division, examType) group. The
// percentage averages each row's own obtained/max ratio so uneven max marks
// do not skew the result.
func (r *MarkRepository) ClassAverage(ctx context.Context, subjectID, division string, examType models.ExamType) (*models.ClassAverage, error) {
	const query = `
SELECT COALESCE(AVG(obtained_marks), 0) AS average_marks,
       COALESCE(AVG(CASE WHEN max_marks > 0 THEN obtained_marks / max_marks * 100 ELSE 0 END), 0) AS average_percentage,
       COUNT(*) AS total_students
FROM internal_marks
WHERE subject_id = $1 AND division = $2 AND exam_type = $3`
	var avg struct {
		AverageMarks      float64 `db:"average_marks"`
		AveragePercentage float64 `db:"average_percentage"`
		TotalStudents     int     `db:"total_students"`
	}
	if err := r.db.GetContext(ctx, &avg, query, subjectID, division, examType); err != nil {
		return nil, fmt.Errorf("compute class average: %w", err)
	}
	return &models.ClassAverage{
		AverageMarks:      avg.AverageMarks,
		AveragePercentage: avg.AveragePercentage,
		TotalStudents:     avg.TotalStudents,
	}, nil
}

// SubjectBreakdown aggregates a student's marks per subject.
func (r *MarkRepository) SubjectBreakdown(ctx context.Context, studentID string) ([]models.SubjectMarksBreakdown, error) {
	const query = `
SELECT m.subject_id, sub.name AS subject_name,
       COALESCE(SUM(m.obtained_marks), 0) AS total_obtained,
       COALESCE(SUM(m.max_marks), 0) AS total_max
FROM internal_marks m
JOIN subjects sub ON sub.id = m.subject_id
WHERE m.student_id = $1
GROUP BY m.subject_id, sub.name
ORDER BY sub.name ASC`
	var breakdown []models.SubjectMarksBreakdown
	if err := r.db.SelectContext(ctx, &breakdown, query, studentID); err != nil {
		return nil, fmt.Errorf("load subject marks breakdown: %w", err)
	}
	return breakdown, nil
}

// CountByStudentAndExamType counts how many marks of one exam type a student
// has across subjects. The dashboard uses it for assignment counts.
func (r *MarkRepository) CountByStudentAndExamType(ctx context.Context, studentID string, examType models.ExamType) (int, error) {
	const query = `SELECT COUNT(*) FROM internal_marks WHERE student_id = $1 AND exam_type = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, examType); err != nil {
		return 0, fmt.Errorf("count marks by exam type: %w", err)
	}
	return count, nil
}

// CountByStudent counts all recorded marks for a student.
func (r *MarkRepository) CountByStudent(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM internal_marks WHERE student_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID); err != nil {
		return 0, fmt.Errorf("count marks by student: %w", err)
	}
	return count, nil
}
