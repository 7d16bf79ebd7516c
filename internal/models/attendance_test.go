package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTallyEntries(t *testing.T) {
	counts := TallyEntries([]AttendanceEntry{
		{StudentID: "s1", Status: AttendancePresent},
		{StudentID: "s2", Status: AttendanceAbsent},
		{StudentID: "s3", Status: AttendancePresent},
		{StudentID: "s4", Status: AttendancePresent},
		{StudentID: "s5", Status: AttendanceAbsent},
	})

	assert.Equal(t, 5, counts.Total)
	assert.Equal(t, 3, counts.Present)
	assert.Equal(t, 2, counts.Absent)
}

func TestTallyEntriesEmpty(t *testing.T) {
	counts := TallyEntries(nil)
	assert.Equal(t, 0, counts.Total)
	assert.Equal(t, 0, counts.Present)
	assert.Equal(t, 0, counts.Absent)
}

func TestAttendanceStatusValid(t *testing.T) {
	assert.True(t, AttendancePresent.Valid())
	assert.True(t, AttendanceAbsent.Valid())
	assert.False(t, AttendanceStatus("Late").Valid())
}

func TestExamTypeValid(t *testing.T) {
	assert.True(t, ExamInternal1.Valid())
	assert.True(t, ExamAssignment.Valid())
	assert.False(t, ExamType("Midterm").Valid())
}
