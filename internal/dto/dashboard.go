package dto

// StudentDashboardResponse is the read-only rollup served to a student.
type StudentDashboardResponse struct {
	StudentID             string  `json:"student_id"`
	SubjectCount          int     `json:"subject_count"`
	AttendancePercentage  float64 `json:"attendance_percentage"`
	AverageMarksPercent   float64 `json:"average_marks_percent"`
	AssignmentCount       int     `json:"assignment_count"`
	TotalClasses          int     `json:"total_classes"`
	ClassesAttended       int     `json:"classes_attended"`
	RecordedInternalMarks int     `json:"recorded_internal_marks"`
}
