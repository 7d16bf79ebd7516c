package models

import "github.com/golang-jwt/jwt/v5"

// PrincipalKind identifies which portal an authenticated actor belongs to.
// Each kind is verified against its own collection, so a token minted for one
// portal never grants access to another.
type PrincipalKind string

const (
	KindAdmin   PrincipalKind = "ADMIN"
	KindTeacher PrincipalKind = "TEACHER"
	KindStudent PrincipalKind = "STUDENT"
	KindStaff   PrincipalKind = "STAFF"
)

// Valid reports whether the kind is one of the four supported portals.
func (k PrincipalKind) Valid() bool {
	switch k {
	case KindAdmin, KindTeacher, KindStudent, KindStaff:
		return true
	default:
		return false
	}
}

// PrincipalAccount is the portal-independent view of an authenticatable row.
// Repositories project their own table into this shape for the auth service.
type PrincipalAccount struct {
	ID           string        `db:"id" json:"id"`
	Kind         PrincipalKind `db:"-" json:"kind"`
	Email        string        `db:"email" json:"email"`
	FullName     string        `db:"full_name" json:"full_name"`
	PasswordHash string        `db:"password_hash" json:"-"`
	RefreshToken *string       `db:"refresh_token" json:"-"`
}

// PrincipalInfo describes the authenticated principal in responses.
type PrincipalInfo struct {
	ID       string        `json:"id"`
	Kind     PrincipalKind `json:"kind"`
	Email    string        `json:"email"`
	FullName string        `json:"full_name"`
}

// JWTClaims represents the payload carried by both access and refresh tokens.
type JWTClaims struct {
	PrincipalID string        `json:"principal_id"`
	Kind        PrincipalKind `json:"kind"`
	Email       string        `json:"email"`
	FullName    string        `json:"full_name"`
	jwt.RegisteredClaims
}
