package models

import "time"

// Subject is owned by exactly one semester. Code and name are independently
// unique across the whole catalog, not just within a semester.
type Subject struct {
	ID         string    `db:"id" json:"id"`
	Code       string    `db:"code" json:"code"`
	Name       string    `db:"name" json:"name"`
	SemesterID string    `db:"semester_id" json:"semester_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectDetail enriches a subject with its semester number.
type SubjectDetail struct {
	Subject
	SemesterNumber int `db:"semester_number" json:"semester_number"`
}
