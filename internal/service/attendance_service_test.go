package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/college-erp-api/internal/models"
	appErrors "github.com/noah-isme/college-erp-api/pkg/errors"
)

const (
	testSubjectID  = "6f1b2a3c-4d5e-4f60-8a9b-0c1d2e3f4a5b"
	testSemesterID = "7a2b3c4d-5e6f-4071-8293-a4b5c6d7e8f9"
	testStudent1   = "11111111-1111-4111-8111-111111111111"
	testStudent2   = "22222222-2222-4222-8222-222222222222"
	testStudent3   = "33333333-3333-4333-8333-333333333333"
	testStudent4   = "44444444-4444-4444-8444-444444444444"
	testStudent5   = "55555555-5555-4555-8555-555555555555"
	testOutsider   = "99999999-9999-4999-8999-999999999999"
)

type fakeAttendanceRepo struct {
	records map[string]*models.AttendanceRecord
	rows    []models.StudentAttendanceRow
	stats   []models.SubjectAttendanceStat
}

func attendanceKey(subjectID, division string, date time.Time) string {
	return fmt.Sprintf("%s|%s|%s", subjectID, division, date.Format("2006-01-02"))
}

func (f *fakeAttendanceRepo) FindByKey(ctx context.Context, subjectID, division string, date time.Time) (*models.AttendanceRecord, error) {
	if rec, ok := f.records[attendanceKey(subjectID, division, date)]; ok {
		return rec, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAttendanceRepo) Create(ctx context.Context, record *models.AttendanceRecord) error {
	if f.records == nil {
		f.records = make(map[string]*models.AttendanceRecord)
	}
	key := attendanceKey(record.SubjectID, record.Division, record.Date)
	if _, exists := f.records[key]; exists {
		return &pq.Error{Code: "23505"}
	}
	record.ID = fmt.Sprintf("rec-%d", len(f.records)+1)
	f.records[key] = record
	return nil
}

func (f *fakeAttendanceRepo) ReplaceEntries(ctx context.Context, record *models.AttendanceRecord) error {
	for _, rec := range f.records {
		if rec.ID == record.ID {
			*rec = *record
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for _, rec := range f.records {
		if rec.SubjectID == filter.SubjectID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeAttendanceRepo) StudentRows(ctx context.Context, studentID, semesterID, division string, filter models.StudentAttendanceFilter) ([]models.StudentAttendanceRow, error) {
	var out []models.StudentAttendanceRow
	for _, row := range f.rows {
		if filter.SubjectID != "" && row.SubjectID != filter.SubjectID {
			continue
		}
		if filter.DateFrom != nil && row.Date.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && row.Date.After(*filter.DateTo) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeAttendanceRepo) StudentSubjectStats(ctx context.Context, studentID, semesterID, division string, filter models.StudentAttendanceFilter) ([]models.SubjectAttendanceStat, error) {
	var out []models.SubjectAttendanceStat
	for _, stat := range f.stats {
		if filter.SubjectID != "" && stat.SubjectID != filter.SubjectID {
			continue
		}
		out = append(out, stat)
	}
	return out, nil
}

type fakeAuthz struct {
	grants map[string]bool
}

func (f *fakeAuthz) Exists(ctx context.Context, teacherID, subjectID, division string) (bool, error) {
	return f.grants[teacherID+"|"+subjectID+"|"+division], nil
}

func (f *fakeAuthz) ExistsForSubject(ctx context.Context, teacherID, subjectID string) (bool, error) {
	prefix := teacherID + "|" + subjectID + "|"
	for key, ok := range f.grants {
		if ok && strings.HasPrefix(key, prefix) {
			return true, nil
		}
	}
	return false, nil
}

type fakeSubjectRepo struct {
	subjects map[string]*models.Subject
}

func (f *fakeSubjectRepo) Create(ctx context.Context, subject *models.Subject) error { return nil }
func (f *fakeSubjectRepo) Update(ctx context.Context, subject *models.Subject) error { return nil }
func (f *fakeSubjectRepo) Delete(ctx context.Context, id string) error               { return nil }
func (f *fakeSubjectRepo) List(ctx context.Context, semesterID string) ([]models.SubjectDetail, error) {
	return nil, nil
}

func (f *fakeSubjectRepo) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := f.subjects[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type fakeStudentRepo struct {
	students map[string]*models.Student
	roster   []models.RosterStudent
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := f.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) Roster(ctx context.Context, semesterID, division string) ([]models.RosterStudent, error) {
	return f.roster, nil
}

func newAttendanceFixture() (*AttendanceService, *fakeAttendanceRepo) {
	repo := &fakeAttendanceRepo{}
	authz := &fakeAuthz{grants: map[string]bool{"teacher-1|" + testSubjectID + "|A": true}}
	subjects := &fakeSubjectRepo{subjects: map[string]*models.Subject{
		testSubjectID: {ID: testSubjectID, Code: "CS101", Name: "Data Structures", SemesterID: testSemesterID},
	}}
	students := &fakeStudentRepo{roster: []models.RosterStudent{
		{ID: testStudent1}, {ID: testStudent2}, {ID: testStudent3}, {ID: testStudent4}, {ID: testStudent5},
	}}
	svc := NewAttendanceService(repo, authz, subjects, students, validator.New(), zap.NewNop())
	return svc, repo
}

func markRequest(entries []MarkEntryRequest) MarkAttendanceRequest {
	return MarkAttendanceRequest{
		SubjectID: testSubjectID,
		Division:  "A",
		Date:      "2026-02-10",
		Entries:   entries,
	}
}

func TestAttendanceMarkCreatesRecord(t *testing.T) {
	svc, repo := newAttendanceFixture()

	record, err := svc.Mark(context.Background(), "teacher-1", markRequest([]MarkEntryRequest{
		{StudentID: testStudent1, Status: "Present"},
		{StudentID: testStudent2, Status: "Absent"},
		{StudentID: testStudent3, Status: "Present"},
		{StudentID: testStudent4, Status: "Present"},
		{StudentID: testStudent5, Status: "Absent"},
	}))
	require.NoError(t, err)

	assert.Equal(t, 5, record.Total)
	assert.Equal(t, 3, record.Present)
	assert.Equal(t, 2, record.Absent)
	assert.Len(t, repo.records, 1)
	assert.Equal(t, time.UTC, record.Date.Location())
}

func TestAttendanceReMarkReplacesEntries(t *testing.T) {
	svc, repo := newAttendanceFixture()

	_, err := svc.Mark(context.Background(), "teacher-1", markRequest([]MarkEntryRequest{
		{StudentID: testStudent1, Status: "Present"},
		{StudentID: testStudent2, Status: "Absent"},
		{StudentID: testStudent3, Status: "Present"},
		{StudentID: testStudent4, Status: "Present"},
		{StudentID: testStudent5, Status: "Absent"},
	}))
	require.NoError(t, err)

	record, err := svc.Mark(context.Background(), "teacher-1", markRequest([]MarkEntryRequest{
		{StudentID: testStudent1, Status: "Present"},
		{StudentID: testStudent2, Status: "Present"},
		{StudentID: testStudent3, Status: "Present"},
		{StudentID: testStudent4, Status: "Absent"},
	}))
	require.NoError(t, err)

	// Still one ledger row for the day; the entry set was swapped wholesale.
	assert.Len(t, repo.records, 1)
	assert.Equal(t, 4, record.Total)
	assert.Equal(t, 3, record.Present)
	assert.Equal(t, 1, record.Absent)
	assert.Len(t, record.Entries, 4)
}

func TestAttendanceMarkForbiddenWithoutAssignment(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, err := svc.Mark(context.Background(), "teacher-2", markRequest([]MarkEntryRequest{
		{StudentID: testStudent1, Status: "Present"},
	}))
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestAttendanceMarkRejectsStudentOutsideClass(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, err := svc.Mark(context.Background(), "teacher-1", markRequest([]MarkEntryRequest{
		{StudentID: testOutsider, Status: "Present"},
	}))
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAttendanceMarkRejectsDuplicateStudent(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, err := svc.Mark(context.Background(), "teacher-1", markRequest([]MarkEntryRequest{
		{StudentID: testStudent1, Status: "Present"},
		{StudentID: testStudent1, Status: "Absent"},
	}))
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestStudentSummaryPercentages(t *testing.T) {
	repo := &fakeAttendanceRepo{
		stats: []models.SubjectAttendanceStat{
			{SubjectID: "sub-1", SubjectName: "Data Structures", TotalClasses: 3, Attended: 2},
			{SubjectID: "sub-2", SubjectName: "Algorithms", TotalClasses: 0, Attended: 0},
		},
	}
	students := &fakeStudentRepo{students: map[string]*models.Student{
		testStudent1: {ID: testStudent1, SemesterID: testSemesterID, Division: "A"},
	}}
	svc := NewAttendanceService(repo, &fakeAuthz{}, &fakeSubjectRepo{}, students, validator.New(), zap.NewNop())

	summary, err := svc.StudentSummary(context.Background(), testStudent1, models.StudentAttendanceFilter{})
	require.NoError(t, err)

	assert.InDelta(t, 66.67, summary.Subjects[0].Percentage, 0.001)
	assert.Equal(t, float64(0), summary.Subjects[1].Percentage)
	assert.Equal(t, 3, summary.TotalClasses)
	assert.Equal(t, 2, summary.Attended)
	assert.InDelta(t, 66.67, summary.OverallPercentage, 0.001)
}

func TestStudentSummarySubjectAndDateFilter(t *testing.T) {
	feb10 := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	feb20 := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	mar05 := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	repo := &fakeAttendanceRepo{
		rows: []models.StudentAttendanceRow{
			{RecordID: "rec-1", SubjectID: "sub-1", Date: feb10, Status: models.AttendancePresent},
			{RecordID: "rec-2", SubjectID: "sub-1", Date: mar05, Status: models.AttendanceAbsent},
			{RecordID: "rec-3", SubjectID: "sub-2", Date: feb20, Status: models.AttendancePresent},
		},
		stats: []models.SubjectAttendanceStat{
			{SubjectID: "sub-1", SubjectName: "Data Structures", TotalClasses: 2, Attended: 1},
			{SubjectID: "sub-2", SubjectName: "Algorithms", TotalClasses: 1, Attended: 1},
		},
	}
	students := &fakeStudentRepo{students: map[string]*models.Student{
		testStudent1: {ID: testStudent1, SemesterID: testSemesterID, Division: "A"},
	}}
	svc := NewAttendanceService(repo, &fakeAuthz{}, &fakeSubjectRepo{}, students, validator.New(), zap.NewNop())

	bySubject, err := svc.StudentSummary(context.Background(), testStudent1, models.StudentAttendanceFilter{SubjectID: "sub-1"})
	require.NoError(t, err)
	require.Len(t, bySubject.Rows, 2)
	require.Len(t, bySubject.Subjects, 1)
	assert.Equal(t, "sub-1", bySubject.Subjects[0].SubjectID)
	assert.Equal(t, 2, bySubject.TotalClasses)
	assert.Equal(t, 1, bySubject.Attended)

	to := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	byRange, err := svc.StudentSummary(context.Background(), testStudent1, models.StudentAttendanceFilter{DateTo: &to})
	require.NoError(t, err)
	require.Len(t, byRange.Rows, 2)
	for _, row := range byRange.Rows {
		assert.False(t, row.Date.After(to))
	}
}

func TestStudentSummaryUnknownStudent(t *testing.T) {
	svc := NewAttendanceService(&fakeAttendanceRepo{}, &fakeAuthz{}, &fakeSubjectRepo{}, &fakeStudentRepo{}, validator.New(), zap.NewNop())

	_, err := svc.StudentSummary(context.Background(), testOutsider, models.StudentAttendanceFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
