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

// AdminRepository provides database access for portal administrators.
type AdminRepository struct {
	db *sqlx.DB
}

// NewAdminRepository creates a new instance of AdminRepository.
func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Kind identifies the principal collection this repository verifies.
func (r *AdminRepository) Kind() models.PrincipalKind {
	return models.KindAdmin
}

// FindAccountByEmail projects the admin row into a principal account.
func (r *AdminRepository) FindAccountByEmail(ctx context.Context, email string) (*models.PrincipalAccount, error) {
	const query = `SELECT id, email, full_name, password_hash, refresh_token FROM admins WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var account models.PrincipalAccount
	if err := r.db.GetContext(ctx, &account, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find admin by email: %w", err)
	}
	account.Kind = models.KindAdmin
	return &account, nil
}

// FindAccountByID projects the admin row into a principal account.
func (r *AdminRepository) FindAccountByID(ctx context.Context, id string) (*models.PrincipalAccount, error) {
	const query = `SELECT id, email, full_name, password_hash, refresh_token FROM admins WHERE id = $1 LIMIT 1`
	var account models.PrincipalAccount
	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find admin by id: %w", err)
	}
	account.Kind = models.KindAdmin
	return &account, nil
}

// SetRefreshToken stores (or clears, when nil) the persisted refresh token.
func (r *AdminRepository) SetRefreshToken(ctx context.Context, id string, token *string) error {
	const query = `UPDATE admins SET refresh_token = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, token, time.Now().UTC()); err != nil {
		return fmt.Errorf("set admin refresh token: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *AdminRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE admins SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, time.Now().UTC()); err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	return nil
}

// Count returns the number of admin rows. Seeding is only allowed while zero.
func (r *AdminRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM admins`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return count, nil
}

// Create inserts a new admin.
func (r *AdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = now
	}
	admin.UpdatedAt = now

	const query = `INSERT INTO admins (id, email, password_hash, full_name, created_at, updated_at)
		VALUES (:id, :email, :password_hash, :full_name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}
