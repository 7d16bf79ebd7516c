package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/college-erp-api/internal/models"
	appErrors "github.com/noah-isme/college-erp-api/pkg/errors"
)

// PrincipalStore is implemented by each portal's repository. Tokens minted
// for one kind are only ever verified against that kind's store.
type PrincipalStore interface {
	Kind() models.PrincipalKind
	FindAccountByEmail(ctx context.Context, email string) (*models.PrincipalAccount, error)
	FindAccountByID(ctx context.Context, id string) (*models.PrincipalAccount, error)
	SetRefreshToken(ctx context.Context, id string, token *string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenSecret string
	RefreshTokenExpiry time.Duration
}

// AuthService provides login, refresh and logout for all four portals.
type AuthService struct {
	stores    map[models.PrincipalKind]PrincipalStore
	passwords PasswordVerifier
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService over the given principal stores.
func NewAuthService(stores []PrincipalStore, passwords PasswordVerifier, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if passwords == nil {
		passwords = NewBcryptVerifier()
	}
	registry := make(map[models.PrincipalKind]PrincipalStore, len(stores))
	for _, store := range stores {
		registry[store.Kind()] = store
	}
	return &AuthService{stores: registry, passwords: passwords, validator: validate, logger: logger, config: config}
}

func (s *AuthService) store(kind models.PrincipalKind) (PrincipalStore, error) {
	store, ok := s.stores[kind]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, fmt.Sprintf("unknown principal kind %q", kind))
	}
	return store, nil
}

// Login authenticates a principal of the given kind and returns issued tokens.
func (s *AuthService) Login(ctx context.Context, kind models.PrincipalKind, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	store, err := s.store(kind)
	if err != nil {
		return nil, err
	}

	account, err := store.FindAccountByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
	}

	if err := s.passwords.Compare(account.PasswordHash, req.Password); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	accessToken, issuedAt, err := s.generateToken(account, s.config.AccessTokenSecret, s.config.AccessTokenExpiry)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	refreshToken, _, err := s.generateToken(account, s.config.RefreshTokenSecret, s.config.RefreshTokenExpiry)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}

	if err := store.SetRefreshToken(ctx, account.ID, &refreshToken); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}

	s.logger.Info("principal logged in",
		zap.String("kind", string(kind)),
		zap.String("principal_id", account.ID))

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     issuedAt,
		Principal: models.PrincipalInfo{
			ID:       account.ID,
			Kind:     account.Kind,
			Email:    account.Email,
			FullName: account.FullName,
		},
	}, nil
}

// Refresh validates the refresh token against the persisted copy and rotates
// the pair. A token cleared by logout no longer refreshes.
func (s *AuthService) Refresh(ctx context.Context, kind models.PrincipalKind, req models.RefreshRequest) (*models.RefreshResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}

	claims, err := s.parseToken(req.RefreshToken, s.config.RefreshTokenSecret)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid refresh token")
	}
	if claims.Kind != kind {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token issued for a different portal")
	}

	store, err := s.store(kind)
	if err != nil {
		return nil, err
	}

	account, err := store.FindAccountByID(ctx, claims.PrincipalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
	}
	if account.RefreshToken == nil || *account.RefreshToken != req.RefreshToken {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token revoked")
	}

	accessToken, issuedAt, err := s.generateToken(account, s.config.AccessTokenSecret, s.config.AccessTokenExpiry)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	refreshToken, _, err := s.generateToken(account, s.config.RefreshTokenSecret, s.config.RefreshTokenExpiry)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}
	if err := store.SetRefreshToken(ctx, account.ID, &refreshToken); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}

	return &models.RefreshResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     issuedAt,
	}, nil
}

// Logout clears the persisted refresh token so the session cannot be renewed.
func (s *AuthService) Logout(ctx context.Context, kind models.PrincipalKind, principalID string) error {
	store, err := s.store(kind)
	if err != nil {
		return err
	}
	if err := store.SetRefreshToken(ctx, principalID, nil); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear refresh token")
	}
	s.logger.Info("principal logged out",
		zap.String("kind", string(kind)),
		zap.String("principal_id", principalID))
	return nil
}

// VerifyAccess parses an access token and checks it was minted for the
// expected portal.
func (s *AuthService) VerifyAccess(tokenString string, kind models.PrincipalKind) (*models.JWTClaims, error) {
	claims, err := s.parseToken(tokenString, s.config.AccessTokenSecret)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	if claims.Kind != kind {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token issued for a different portal")
	}
	return claims, nil
}

// LookupPrincipal confirms the token's subject still exists in its store.
func (s *AuthService) LookupPrincipal(ctx context.Context, kind models.PrincipalKind, principalID string) (*models.PrincipalAccount, error) {
	store, err := s.store(kind)
	if err != nil {
		return nil, err
	}
	account, err := store.FindAccountByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
	}
	return account, nil
}

// ChangePassword verifies the old password, stores a new hash and revokes
// the persisted refresh token.
func (s *AuthService) ChangePassword(ctx context.Context, kind models.PrincipalKind, principalID string, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password payload")
	}

	store, err := s.store(kind)
	if err != nil {
		return err
	}
	account, err := store.FindAccountByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
	}

	if err := s.passwords.Compare(account.PasswordHash, req.OldPassword); err != nil {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "old password is incorrect")
	}

	hash, err := s.passwords.Hash(req.NewPassword)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := store.UpdatePassword(ctx, principalID, hash); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	// Force every open session to re-authenticate with the new password.
	if err := store.SetRefreshToken(ctx, principalID, nil); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear refresh token")
	}
	return nil
}

func (s *AuthService) generateToken(account *models.PrincipalAccount, secret string, expiry time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	claims := models.JWTClaims{
		PrincipalID: account.ID,
		Kind:        account.Kind,
		Email:       account.Email,
		FullName:    account.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, now, nil
}

func (s *AuthService) parseToken(tokenString, secret string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	return claims, nil
}
