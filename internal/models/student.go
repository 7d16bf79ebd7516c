package models

import "time"

// Student represents a learner registered in a semester and division.
type Student struct {
	ID           string    `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"full_name"`
	UUCMSNo      string    `db:"uucms_no" json:"uucms_no"`
	Email        string    `db:"email" json:"email"`
	SemesterID   string    `db:"semester_id" json:"semester_id"`
	Division     string    `db:"division" json:"division"`
	PasswordHash string    `db:"password_hash" json:"-"`
	RefreshToken *string   `db:"refresh_token" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	SemesterID string
	Division   string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// RosterStudent is the minimal projection used when marking attendance.
type RosterStudent struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	UUCMSNo  string `db:"uucms_no" json:"uucms_no"`
}
