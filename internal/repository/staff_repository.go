package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-erp-api/internal/models"
)

// StaffRepository provides database access for office staff members.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository creates a new instance of StaffRepository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// Kind identifies the principal collection this repository verifies.
func (r *StaffRepository) Kind() models.PrincipalKind {
	return models.KindStaff
}

// FindAccountByEmail projects the staff row into a principal account.
func (r *StaffRepository) FindAccountByEmail(ctx context.Context, email string) (*models.PrincipalAccount, error) {
	const query = `SELECT id, email, full_name, password_hash, refresh_token FROM office_staff WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var account models.PrincipalAccount
	if err := r.db.GetContext(ctx, &account, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find staff by email: %w", err)
	}
	account.Kind = models.KindStaff
	return &account, nil
}

// FindAccountByID projects the staff row into a principal account.
func (r *StaffRepository) FindAccountByID(ctx context.Context, id string) (*models.PrincipalAccount, error) {
	const query = `SELECT id, email, full_name, password_hash, refresh_token FROM office_staff WHERE id = $1 LIMIT 1`
	var account models.PrincipalAccount
	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find staff by id: %w", err)
	}
	account.Kind = models.KindStaff
	return &account, nil
}

// SetRefreshToken stores (or clears, when nil) the persisted refresh token.
func (r *StaffRepository) SetRefreshToken(ctx context.Context, id string, token *string) error {
	const query = `UPDATE office_staff SET refresh_token = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, token, time.Now().UTC()); err != nil {
		return fmt.Errorf("set staff refresh token: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *StaffRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE office_staff SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, time.Now().UTC()); err != nil {
		return fmt.Errorf("update staff password: %w", err)
	}
	return nil
}

// Create inserts a new office staff member.
func (r *StaffRepository) Create(ctx context.Context, staff *models.OfficeStaff) error {
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if staff.CreatedAt.IsZero() {
		staff.CreatedAt = now
	}
	staff.UpdatedAt = now

	const query = `INSERT INTO office_staff (id, email, password_hash, full_name, created_at, updated_at)
		VALUES (:id, :email, :password_hash, :full_name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, staff); err != nil {
		return fmt.Errorf("create staff: %w", err)
	}
	return nil
}

// List returns all office staff ordered by name.
func (r *StaffRepository) List(ctx context.Context) ([]models.OfficeStaff, error) {
	const query = `SELECT id, email, password_hash, full_name, refresh_token, created_at, updated_at FROM office_staff ORDER BY full_name ASC`
	var staff []models.OfficeStaff
	if err := r.db.SelectContext(ctx, &staff, query); err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return staff, nil
}
