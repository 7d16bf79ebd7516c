package service

import (
	"context"
	"database/sql"
	"fmt"
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

type fakeMarkRepo struct {
	marks     map[string]*models.InternalMark
	breakdown []models.SubjectMarksBreakdown
	average   *models.ClassAverage
}

func markKey(studentID, subjectID string, examType models.ExamType) string {
	return fmt.Sprintf("%s|%s|%s", studentID, subjectID, examType)
}

func (f *fakeMarkRepo) FindByKey(ctx context.Context, studentID, subjectID string, examType models.ExamType) (*models.InternalMark, error) {
	if m, ok := f.marks[markKey(studentID, subjectID, examType)]; ok {
		return m, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeMarkRepo) FindByID(ctx context.Context, id string) (*models.InternalMark, error) {
	for _, m := range f.marks {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeMarkRepo) Create(ctx context.Context, mark *models.InternalMark) error {
	if f.marks == nil {
		f.marks = make(map[string]*models.InternalMark)
	}
	key := markKey(mark.StudentID, mark.SubjectID, mark.ExamType)
	if _, exists := f.marks[key]; exists {
		return &pq.Error{Code: "23505"}
	}
	mark.ID = fmt.Sprintf("mark-%d", len(f.marks)+1)
	f.marks[key] = mark
	return nil
}

func (f *fakeMarkRepo) Update(ctx context.Context, mark *models.InternalMark) error {
	key := markKey(mark.StudentID, mark.SubjectID, mark.ExamType)
	if _, ok := f.marks[key]; !ok {
		return sql.ErrNoRows
	}
	f.marks[key] = mark
	return nil
}

func (f *fakeMarkRepo) Delete(ctx context.Context, id string) error {
	for key, m := range f.marks {
		if m.ID == id {
			delete(f.marks, key)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeMarkRepo) ListByStudent(ctx context.Context, filter models.MarkFilter) ([]models.InternalMark, error) {
	var out []models.InternalMark
	for _, m := range f.marks {
		if m.StudentID == filter.StudentID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMarkRepo) ListBySubjectGroup(ctx context.Context, subjectID, division string, examType models.ExamType) ([]models.InternalMark, error) {
	var out []models.InternalMark
	for _, m := range f.marks {
		if m.SubjectID == subjectID && m.Division == division && m.ExamType == examType {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMarkRepo) ClassAverage(ctx context.Context, subjectID, division string, examType models.ExamType) (*models.ClassAverage, error) {
	if f.average != nil {
		return f.average, nil
	}
	return &models.ClassAverage{}, nil
}

func (f *fakeMarkRepo) SubjectBreakdown(ctx context.Context, studentID string) ([]models.SubjectMarksBreakdown, error) {
	return f.breakdown, nil
}

func newMarkFixture() (*MarkService, *fakeMarkRepo) {
	repo := &fakeMarkRepo{}
	authz := &fakeAuthz{grants: map[string]bool{"teacher-1|" + testSubjectID + "|A": true}}
	subjects := &fakeSubjectRepo{subjects: map[string]*models.Subject{
		testSubjectID: {ID: testSubjectID, Code: "CS101", Name: "Data Structures", SemesterID: testSemesterID},
	}}
	students := &fakeStudentRepo{roster: []models.RosterStudent{
		{ID: testStudent1}, {ID: testStudent2}, {ID: testStudent3},
	}}
	svc := NewMarkService(repo, authz, subjects, students, validator.New(), zap.NewNop())
	return svc, repo
}

func submitRequest(entries []MarkEntryInput) SubmitMarksRequest {
	return SubmitMarksRequest{
		SubjectID: testSubjectID,
		Division:  "A",
		ExamType:  string(models.ExamInternal1),
		ExamDate:  "2026-03-01",
		Entries:   entries,
	}
}

func TestSubmitMarksPartialFailure(t *testing.T) {
	svc, repo := newMarkFixture()

	result, err := svc.Submit(context.Background(), "teacher-1", submitRequest([]MarkEntryInput{
		{StudentID: testStudent1, MaxMarks: 50, ObtainedMarks: 42},
		{StudentID: testOutsider, MaxMarks: 50, ObtainedMarks: 30},
		{StudentID: testStudent2, MaxMarks: 50, ObtainedMarks: 55},
		{StudentID: testStudent3, MaxMarks: 50, ObtainedMarks: 18},
	}))
	require.NoError(t, err)

	assert.Equal(t, 2, result.SavedCount)
	assert.Len(t, result.Saved, 2)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, testOutsider, result.Errors[0].StudentID)
	assert.Equal(t, "student is not in this class", result.Errors[0].Reason)
	assert.Equal(t, testStudent2, result.Errors[1].StudentID)
	assert.Equal(t, "obtained_marks must be between 0 and max_marks", result.Errors[1].Reason)
	assert.Len(t, repo.marks, 2)
}

func TestSubmitMarksUpsertsExistingTriple(t *testing.T) {
	svc, repo := newMarkFixture()

	_, err := svc.Submit(context.Background(), "teacher-1", submitRequest([]MarkEntryInput{
		{StudentID: testStudent1, MaxMarks: 50, ObtainedMarks: 30},
	}))
	require.NoError(t, err)

	result, err := svc.Submit(context.Background(), "teacher-1", submitRequest([]MarkEntryInput{
		{StudentID: testStudent1, MaxMarks: 50, ObtainedMarks: 44},
	}))
	require.NoError(t, err)

	assert.Equal(t, 1, result.SavedCount)
	assert.Len(t, repo.marks, 1)
	saved := repo.marks[markKey(testStudent1, testSubjectID, models.ExamInternal1)]
	assert.Equal(t, float64(44), saved.ObtainedMarks)
}

func TestSubmitMarksRejectsDuplicateInBatch(t *testing.T) {
	svc, _ := newMarkFixture()

	result, err := svc.Submit(context.Background(), "teacher-1", submitRequest([]MarkEntryInput{
		{StudentID: testStudent1, MaxMarks: 50, ObtainedMarks: 30},
		{StudentID: testStudent1, MaxMarks: 50, ObtainedMarks: 35},
	}))
	require.NoError(t, err)

	assert.Equal(t, 1, result.SavedCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "student appears more than once in the batch", result.Errors[0].Reason)
}

func TestSubmitMarksForbiddenWithoutAssignment(t *testing.T) {
	svc, _ := newMarkFixture()

	_, err := svc.Submit(context.Background(), "teacher-2", submitRequest([]MarkEntryInput{
		{StudentID: testStudent1, MaxMarks: 50, ObtainedMarks: 30},
	}))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSubmitMarksUnsupportedExamType(t *testing.T) {
	svc, _ := newMarkFixture()

	req := submitRequest([]MarkEntryInput{{StudentID: testStudent1, MaxMarks: 50, ObtainedMarks: 30}})
	req.ExamType = "Midterm"

	_, err := svc.Submit(context.Background(), "teacher-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestClassAverageRounding(t *testing.T) {
	svc, repo := newMarkFixture()
	repo.average = &models.ClassAverage{
		AverageMarks:      7.999999,
		AveragePercentage: 79.99999,
		TotalStudents:     3,
	}

	avg, err := svc.ClassAverage(context.Background(), "teacher-1", testSubjectID, "A", models.ExamInternal1)
	require.NoError(t, err)

	assert.Equal(t, 8.0, avg.AverageMarks)
	assert.Equal(t, 80.0, avg.AveragePercentage)
	assert.Equal(t, 3, avg.TotalStudents)
}

func seedMark(repo *fakeMarkRepo) *models.InternalMark {
	mark := &models.InternalMark{
		ID:            "mark-1",
		StudentID:     testStudent1,
		SubjectID:     testSubjectID,
		TeacherID:     "teacher-1",
		Division:      "A",
		SemesterID:    testSemesterID,
		ExamType:      models.ExamInternal1,
		MaxMarks:      50,
		ObtainedMarks: 30,
		ExamDate:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	repo.marks = map[string]*models.InternalMark{
		markKey(mark.StudentID, mark.SubjectID, mark.ExamType): mark,
	}
	return mark
}

func TestGetMarkChecksAssignment(t *testing.T) {
	svc, repo := newMarkFixture()
	seedMark(repo)

	mark, err := svc.Get(context.Background(), "teacher-1", "mark-1")
	require.NoError(t, err)
	assert.Equal(t, testStudent1, mark.StudentID)

	_, err = svc.Get(context.Background(), "teacher-2", "mark-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestGetMarkNotFound(t *testing.T) {
	svc, _ := newMarkFixture()

	_, err := svc.Get(context.Background(), "teacher-1", "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUpdateMarkRewritesScoring(t *testing.T) {
	svc, repo := newMarkFixture()
	seedMark(repo)

	remarks := "improved"
	updated, err := svc.UpdateOne(context.Background(), "teacher-1", "mark-1", UpdateMarkRequest{
		MaxMarks:      60,
		ObtainedMarks: 48,
		ExamDate:      "2026-03-15",
		Remarks:       &remarks,
	})
	require.NoError(t, err)

	assert.Equal(t, float64(60), updated.MaxMarks)
	assert.Equal(t, float64(48), updated.ObtainedMarks)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), updated.ExamDate)

	saved := repo.marks[markKey(testStudent1, testSubjectID, models.ExamInternal1)]
	assert.Equal(t, float64(48), saved.ObtainedMarks)
	require.NotNil(t, saved.Remarks)
	assert.Equal(t, "improved", *saved.Remarks)
}

func TestUpdateMarkObtainedAboveMax(t *testing.T) {
	svc, repo := newMarkFixture()
	seedMark(repo)

	_, err := svc.UpdateOne(context.Background(), "teacher-1", "mark-1", UpdateMarkRequest{
		MaxMarks:      50,
		ObtainedMarks: 55,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateMarkForbiddenWithoutAssignment(t *testing.T) {
	svc, repo := newMarkFixture()
	seedMark(repo)

	_, err := svc.UpdateOne(context.Background(), "teacher-2", "mark-1", UpdateMarkRequest{
		MaxMarks:      50,
		ObtainedMarks: 40,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDeleteMarkOwnership(t *testing.T) {
	svc, repo := newMarkFixture()
	repo.marks = map[string]*models.InternalMark{
		markKey(testStudent1, testSubjectID, models.ExamInternal1): {
			ID:        "mark-1",
			StudentID: testStudent1,
			SubjectID: testSubjectID,
			TeacherID: "teacher-1",
			ExamType:  models.ExamInternal1,
		},
	}

	_, err := svc.Delete(context.Background(), "teacher-2", "mark-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.marks, 1)

	deleted, err := svc.Delete(context.Background(), "teacher-1", "mark-1")
	require.NoError(t, err)
	assert.Equal(t, testStudent1, deleted.StudentID)
	assert.Empty(t, repo.marks)
}

func TestDeleteMarkNotFound(t *testing.T) {
	svc, _ := newMarkFixture()

	_, err := svc.Delete(context.Background(), "teacher-1", "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentMarksSummaryPercentages(t *testing.T) {
	svc, repo := newMarkFixture()
	repo.breakdown = []models.SubjectMarksBreakdown{
		{SubjectID: "sub-1", SubjectName: "Data Structures", TotalObtained: 40, TotalMax: 60},
		{SubjectID: "sub-2", SubjectName: "Algorithms", TotalObtained: 0, TotalMax: 0},
	}
	examDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	repo.marks = map[string]*models.InternalMark{
		markKey(testStudent1, "sub-1", models.ExamInternal1): {
			ID: "mark-1", StudentID: testStudent1, SubjectID: "sub-1",
			ExamType: models.ExamInternal1, MaxMarks: 60, ObtainedMarks: 40, ExamDate: examDate,
		},
	}

	summary, err := svc.StudentSummary(context.Background(), models.MarkFilter{StudentID: testStudent1})
	require.NoError(t, err)

	assert.InDelta(t, 66.67, summary.Subjects[0].AveragePercentage, 0.001)
	assert.Equal(t, float64(0), summary.Subjects[1].AveragePercentage)
	assert.Equal(t, float64(40), summary.TotalObtainedMarks)
	assert.Equal(t, float64(60), summary.TotalMaxMarks)
	assert.InDelta(t, 66.67, summary.AveragePercentage, 0.001)
	assert.Len(t, summary.Marks, 1)
}
