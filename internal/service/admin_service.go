package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-erp-api/internal/models"
	"github.com/noah-isme/college-erp-api/internal/repository"
	appErrors "github.com/noah-isme/college-erp-api/pkg/errors"
)

type adminStore interface {
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, admin *models.Admin) error
}

type staffStore interface {
	Create(ctx context.Context, staff *models.OfficeStaff) error
	List(ctx context.Context) ([]models.OfficeStaff, error)
}

// SeedAdminRequest payload for bootstrapping the first admin account.
type SeedAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required"`
}

// CreateStaffRequest payload for registering an office staff member.
type CreateStaffRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required"`
}

// AdminService bootstraps the admin account and manages office staff.
type AdminService struct {
	admins    adminStore
	staff     staffStore
	passwords PasswordVerifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAdminService constructs an AdminService.
func NewAdminService(admins adminStore, staff staffStore, passwords PasswordVerifier, validate *validator.Validate, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if passwords == nil {
		passwords = NewBcryptVerifier()
	}
	return &AdminService{admins: admins, staff: staff, passwords: passwords, validator: validate, logger: logger}
}

// Seed creates the first admin account. Once any admin exists the endpoint
// is closed for good.
func (s *AdminService) Seed(ctx context.Context, req SeedAdminRequest) (*models.Admin, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admin payload")
	}

	count, err := s.admins.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count admins")
	}
	if count > 0 {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "an admin account already exists")
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	admin := &models.Admin{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an admin account already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create admin")
	}

	s.logger.Info("admin account seeded", zap.String("email", admin.Email))
	return admin, nil
}

// CreateStaff registers a new office staff member.
func (s *AdminService) CreateStaff(ctx context.Context, req CreateStaffRequest) (*models.OfficeStaff, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid staff payload")
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	staff := &models.OfficeStaff{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("staff with email %q already exists", req.Email))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create staff")
	}

	s.logger.Info("office staff created", zap.String("email", staff.Email))
	return staff, nil
}

// ListStaff returns all office staff members.
func (s *AdminService) ListStaff(ctx context.Context) ([]models.OfficeStaff, error) {
	staff, err := s.staff.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list staff")
	}
	return staff, nil
}
