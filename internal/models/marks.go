package models

import "time"

// ExamType is the closed set of assessment categories.
type ExamType string

const (
	ExamInternal1  ExamType = "Internal 1"
	ExamInternal2  ExamType = "Internal 2"
	ExamInternal3  ExamType = "Internal 3"
	ExamAssignment ExamType = "Assignment"
	ExamQuiz       ExamType = "Quiz"
	ExamProject    ExamType = "Project"
)

// Valid returns true when the exam type is a supported value.
func (t ExamType) Valid() bool {
	switch t {
	case ExamInternal1, ExamInternal2, ExamInternal3, ExamAssignment, ExamQuiz, ExamProject:
		return true
	default:
		return false
	}
}

// InternalMark is the single ledger row for (student, subject, exam type).
// A later submission for the same triple updates this row in place.
type InternalMark struct {
	ID            string    `db:"id" json:"id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	SubjectID     string    `db:"subject_id" json:"subject_id"`
	TeacherID     string    `db:"teacher_id" json:"teacher_id"`
	Division      string    `db:"division" json:"division"`
	SemesterID    string    `db:"semester_id" json:"semester_id"`
	ExamType      ExamType  `db:"exam_type" json:"exam_type"`
	MaxMarks      float64   `db:"max_marks" json:"max_marks"`
	ObtainedMarks float64   `db:"obtained_marks" json:"obtained_marks"`
	ExamDate      time.Time `db:"exam_date" json:"exam_date"`
	Remarks       *string   `db:"remarks" json:"remarks,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// MarkFilter scopes student-facing mark reads.
type MarkFilter struct {
	StudentID string
	SubjectID string
	ExamType  ExamType
}

// ClassAverage summarises one (subject, division, examType) group.
type ClassAverage struct {
	AverageMarks      float64 `json:"average_marks"`
	AveragePercentage float64 `json:"average_percentage"`
	TotalStudents     int     `json:"total_students"`
}

// SubjectMarksBreakdown aggregates a student's marks within one subject.
type SubjectMarksBreakdown struct {
	SubjectID         string  `db:"subject_id" json:"subject_id"`
	SubjectName       string  `db:"subject_name" json:"subject_name"`
	TotalObtained     float64 `db:"total_obtained" json:"total_obtained"`
	TotalMax          float64 `db:"total_max" json:"total_max"`
	AveragePercentage float64 `json:"average_percentage"`
}

// StudentMarksSummary is the student-facing marks report.
type StudentMarksSummary struct {
	Marks              []InternalMark          `json:"marks"`
	TotalObtainedMarks float64                 `json:"total_obtained_marks"`
	TotalMaxMarks      float64                 `json:"total_max_marks"`
	AveragePercentage  float64                 `json:"average_percentage"`
	Subjects           []SubjectMarksBreakdown `json:"subjects"`
}
