package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/college-erp-api/internal/models"
)

// AttendanceRepository persists the attendance ledger. Each record is one
// (subject, division, date) row plus its per-student entries; the unique
// index on that triple is the final arbiter under concurrent writes.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// FindByKey returns the record for (subject, division, date) with entries
// loaded, or sql.ErrNoRows when no class was marked that day.
func (r *AttendanceRepository) FindByKey(ctx context.Context, subjectID, division string, date time.Time) (*models.AttendanceRecord, error) {
	const query = `SELECT id, subject_id, teacher_id, division, date, total_count, present_count, absent_count, created_at, updated_at
FROM attendance_records WHERE subject_id = $1 AND division = $2 AND date = $3 LIMIT 1`
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, subjectID, division, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance record: %w", err)
	}
	if err := r.loadEntries(ctx, []*models.AttendanceRecord{&record}); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByID returns a record with entries loaded.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	const query = `SELECT id, subject_id, teacher_id, division, date, total_count, present_count, absent_count, created_at, updated_at
FROM attendance_records WHERE id = $1 LIMIT 1`
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance record by id: %w", err)
	}
	if err := r.loadEntries(ctx, []*models.AttendanceRecord{&record}); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a new record and its entries in one transaction. A duplicate
// (subject, division, date) surfaces as a unique violation for the caller to
// translate.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance tx: %w", err)
	}
	defer tx.Rollback()

	const insertRecord = `INSERT INTO attendance_records (id, subject_id, teacher_id, division, date, total_count, present_count, absent_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := tx.ExecContext(ctx, insertRecord,
		record.ID, record.SubjectID, record.TeacherID, record.Division, record.Date,
		record.Total, record.Present, record.Absent, record.CreatedAt, record.UpdatedAt); err != nil {
		return fmt.Errorf("insert attendance record: %w", err)
	}

	if err := insertEntries(ctx, tx, record.ID, record.Entries); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance tx: %w", err)
	}
	return nil
}

// ReplaceEntries swaps the full entry set of an existing record and updates
// its counts in one transaction. Re-marking a class is always wholesale.
func (r *AttendanceRepository) ReplaceEntries(ctx context.Context, record *models.AttendanceRecord) error {
	record.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance tx: %w", err)
	}
	defer tx.Rollback()

	const updateRecord = `UPDATE attendance_records SET teacher_id = $2, total_count = $3, present_count = $4, absent_count = $5, updated_at = $6 WHERE id = $1`
	result, err := tx.ExecContext(ctx, updateRecord,
		record.ID, record.TeacherID, record.Total, record.Present, record.Absent, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update attendance record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated attendance rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_entries WHERE record_id = $1`, record.ID); err != nil {
		return fmt.Errorf("clear attendance entries: %w", err)
	}
	if err := insertEntries(ctx, tx, record.ID, record.Entries); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance tx: %w", err)
	}
	return nil
}

func insertEntries(ctx context.Context, tx *sqlx.Tx, recordID string, entries []models.AttendanceEntry) error {
	if len(entries) == 0 {
		return nil
	}
	values := make([]string, 0, len(entries))
	args := make([]interface{}, 0, len(entries)*3)
	for i, e := range entries {
		values = append(values, fmt.Sprintf("($%d, $%d, $%d)", i*3+1, i*3+2, i*3+3))
		args = append(args, recordID, e.StudentID, e.Status)
	}
	query := `INSERT INTO attendance_entries (record_id, student_id, status) VALUES ` + strings.Join(values, ", ")
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert attendance entries: %w", err)
	}
	return nil
}

// List returns ledger records matching the filter, newest first, with their
// entries loaded.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	query := `SELECT id, subject_id, teacher_id, division, date, total_count, present_count, absent_count, created_at, updated_at
FROM attendance_records WHERE subject_id = $1`
	args := []interface{}{filter.SubjectID}

	if filter.Division != "" {
		args = append(args, filter.Division)
		query += fmt.Sprintf(" AND division = $%d", len(args))
	}
	if filter.Date != nil {
		args = append(args, *filter.Date)
		query += fmt.Sprintf(" AND date = $%d", len(args))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	query += " ORDER BY date DESC"

	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}

	refs := make([]*models.AttendanceRecord, len(records))
	for i := range records {
		refs[i] = &records[i]
	}
	if err := r.loadEntries(ctx, refs); err != nil {
		return nil, err
	}
	return records, nil
}

type entryRow struct {
	RecordID string `db:"record_id"`
	models.AttendanceEntry
}

func (r *AttendanceRepository) loadEntries(ctx context.Context, records []*models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]string, len(records))
	byID := make(map[string]*models.AttendanceRecord, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
		byID[rec.ID] = rec
	}

	const query = `SELECT e.record_id, e.student_id, e.status
FROM attendance_entries e
JOIN students s ON s.id = e.student_id
WHERE e.record_id = ANY($1)
ORDER BY s.full_name ASC`
	var rows []entryRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load attendance entries: %w", err)
	}
	for _, row := range rows {
		rec := byID[row.RecordID]
		rec.Entries = append(rec.Entries, row.AttendanceEntry)
	}
	return nil
}

func studentLedgerConditions(filter models.StudentAttendanceFilter, args []interface{}) (string, []interface{}) {
	clause := ""
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		clause += fmt.Sprintf(" AND r.subject_id = $%d", len(args))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		clause += fmt.Sprintf(" AND r.date >= $%d", len(args))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		clause += fmt.Sprintf(" AND r.date <= $%d", len(args))
	}
	return clause, args
}

// StudentRows projects the ledger down to one student's day-by-day view.
// Records of the student's class where the student has no entry count as
// Absent, so attendance marked before a late enrollment still shows up.
func (r *AttendanceRepository) StudentRows(ctx context.Context, studentID, semesterID, division string, filter models.StudentAttendanceFilter) ([]models.StudentAttendanceRow, error) {
	query := `
SELECT r.id AS record_id, r.subject_id, sub.name AS subject_name, r.date,
       COALESCE(e.status, 'Absent') AS status
FROM attendance_records r
JOIN subjects sub ON sub.id = r.subject_id
LEFT JOIN attendance_entries e ON e.record_id = r.id AND e.student_id = $1
WHERE sub.semester_id = $2 AND r.division = $3`
	args := []interface{}{studentID, semesterID, division}
	clause, args := studentLedgerConditions(filter, args)
	query += clause + " ORDER BY r.date DESC, sub.name ASC"

	var rows []models.StudentAttendanceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("load student attendance rows: %w", err)
	}
	return rows, nil
}

// StudentSubjectStats aggregates one student's attendance per subject.
// Percentage is left zero; the service computes and rounds it.
func (r *AttendanceRepository) StudentSubjectStats(ctx context.Context, studentID, semesterID, division string, filter models.StudentAttendanceFilter) ([]models.SubjectAttendanceStat, error) {
	query := `
SELECT r.subject_id, sub.name AS subject_name,
       COUNT(*) AS total_classes,
       COUNT(*) FILTER (WHERE e.status = 'Present') AS attended
FROM attendance_records r
JOIN subjects sub ON sub.id = r.subject_id
LEFT JOIN attendance_entries e ON e.record_id = r.id AND e.student_id = $1
WHERE sub.semester_id = $2 AND r.division = $3`
	args := []interface{}{studentID, semesterID, division}
	clause, args := studentLedgerConditions(filter, args)
	query += clause + " GROUP BY r.subject_id, sub.name ORDER BY sub.name ASC"

	var stats []models.SubjectAttendanceStat
	if err := r.db.SelectContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("load student attendance stats: %w", err)
	}
	return stats, nil
}
