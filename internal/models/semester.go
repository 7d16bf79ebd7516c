package models

import (
	"time"

	"github.com/lib/pq"
)

// Semester groups subjects and students by academic term number. Divisions is
// a set of named subgroups ("A", "B", ...) managed in place by the admin.
type Semester struct {
	ID        string         `db:"id" json:"id"`
	Number    int            `db:"number" json:"number"`
	Divisions pq.StringArray `db:"divisions" json:"divisions"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// HasDivision reports membership in the division set.
func (s *Semester) HasDivision(division string) bool {
	for _, d := range s.Divisions {
		if d == division {
			return true
		}
	}
	return false
}
