package models

import "time"

// AttendanceStatus is the per-student state within a record.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "Present"
	AttendanceAbsent  AttendanceStatus = "Absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == AttendancePresent || s == AttendanceAbsent
}

// AttendanceEntry is one student's state inside an attendance record.
type AttendanceEntry struct {
	StudentID string           `db:"student_id" json:"student_id"`
	Status    AttendanceStatus `db:"status" json:"status"`
}

// AttendanceCounts is the cached projection stored on each record. It is
// never trusted as input; TallyEntries recomputes it on every write.
type AttendanceCounts struct {
	Total   int `db:"total_count" json:"total_count"`
	Present int `db:"present_count" json:"present_count"`
	Absent  int `db:"absent_count" json:"absent_count"`
}

// TallyEntries derives counts from the entry list. Absent is defined as
// total minus present, so the three always sum consistently.
func TallyEntries(entries []AttendanceEntry) AttendanceCounts {
	counts := AttendanceCounts{Total: len(entries)}
	for _, e := range entries {
		if e.Status == AttendancePresent {
			counts.Present++
		}
	}
	counts.Absent = counts.Total - counts.Present
	return counts
}

// AttendanceRecord is the single ledger row for (subject, division, date).
type AttendanceRecord struct {
	ID        string    `db:"id" json:"id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	Division  string    `db:"division" json:"division"`
	Date      time.Time `db:"date" json:"date"`
	AttendanceCounts
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
	Entries   []AttendanceEntry `json:"entries"`
}

// AttendanceFilter scopes ledger reads for the teacher portal.
type AttendanceFilter struct {
	SubjectID string
	Division  string
	Date      *time.Time
	DateFrom  *time.Time
	DateTo    *time.Time
}

// StudentAttendanceFilter narrows the student-facing report. Every field
// is optional; the zero value selects the whole ledger.
type StudentAttendanceFilter struct {
	SubjectID string
	DateFrom  *time.Time
	DateTo    *time.Time
}

// StudentAttendanceRow projects one record down to a single student's view.
// Status defaults to Absent when the student has no entry in the record.
type StudentAttendanceRow struct {
	RecordID    string           `db:"record_id" json:"record_id"`
	SubjectID   string           `db:"subject_id" json:"subject_id"`
	SubjectName string           `db:"subject_name" json:"subject_name"`
	Date        time.Time        `db:"date" json:"date"`
	Status      AttendanceStatus `db:"status" json:"status"`
}

// SubjectAttendanceStat aggregates one subject's classes for a student.
type SubjectAttendanceStat struct {
	SubjectID    string  `db:"subject_id" json:"subject_id"`
	SubjectName  string  `db:"subject_name" json:"subject_name"`
	TotalClasses int     `db:"total_classes" json:"total_classes"`
	Attended     int     `db:"attended" json:"attended"`
	Percentage   float64 `json:"percentage"`
}

// StudentAttendanceSummary is the student-facing attendance report.
type StudentAttendanceSummary struct {
	Rows              []StudentAttendanceRow  `json:"rows"`
	Subjects          []SubjectAttendanceStat `json:"subjects"`
	TotalClasses      int                     `json:"total_classes"`
	Attended          int                     `json:"attended"`
	OverallPercentage float64                 `json:"overall_percentage"`
}
