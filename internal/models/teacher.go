package models

import "time"

// Teacher represents a teaching staff member able to write into the
// attendance and assessment ledgers for assigned subject/division pairs.
type Teacher struct {
	ID           string    `db:"id" json:"id"`
	TeacherNo    string    `db:"teacher_no" json:"teacher_no"`
	FullName     string    `db:"full_name" json:"full_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	RefreshToken *string   `db:"refresh_token" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering criteria for listing teachers.
type TeacherFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// SubjectAssignment grants a teacher write authority over one
// (subject, division) pair. A compound unique index backs the tuple.
type SubjectAssignment struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	Division  string    `db:"division" json:"division"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SubjectAssignmentDetail enriches assignments with catalog fields.
type SubjectAssignmentDetail struct {
	SubjectAssignment
	SubjectCode    string `db:"subject_code" json:"subject_code"`
	SubjectName    string `db:"subject_name" json:"subject_name"`
	SemesterNumber int    `db:"semester_number" json:"semester_number"`
}
