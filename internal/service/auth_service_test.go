package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/college-erp-api/internal/models"
	appErrors "github.com/noah-isme/college-erp-api/pkg/errors"
)

type plainVerifier struct{}

func (plainVerifier) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func (plainVerifier) Compare(hash, plain string) error {
	if hash != "hashed:"+plain {
		return errors.New("password mismatch")
	}
	return nil
}

type fakePrincipalStore struct {
	kind     models.PrincipalKind
	accounts map[string]*models.PrincipalAccount
}

func newFakePrincipalStore(kind models.PrincipalKind, accounts ...*models.PrincipalAccount) *fakePrincipalStore {
	store := &fakePrincipalStore{kind: kind, accounts: make(map[string]*models.PrincipalAccount)}
	for _, a := range accounts {
		a.Kind = kind
		store.accounts[a.ID] = a
	}
	return store
}

func (f *fakePrincipalStore) Kind() models.PrincipalKind { return f.kind }

func (f *fakePrincipalStore) FindAccountByEmail(ctx context.Context, email string) (*models.PrincipalAccount, error) {
	for _, a := range f.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakePrincipalStore) FindAccountByID(ctx context.Context, id string) (*models.PrincipalAccount, error) {
	if a, ok := f.accounts[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakePrincipalStore) SetRefreshToken(ctx context.Context, id string, token *string) error {
	a, ok := f.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.RefreshToken = token
	return nil
}

func (f *fakePrincipalStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	a, ok := f.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.PasswordHash = passwordHash
	return nil
}

func newAuthFixture() (*AuthService, *fakePrincipalStore, *fakePrincipalStore) {
	teachers := newFakePrincipalStore(models.KindTeacher, &models.PrincipalAccount{
		ID:           "teacher-1",
		Email:        "teacher@college.edu",
		FullName:     "Asha Rao",
		PasswordHash: "hashed:secret123",
	})
	students := newFakePrincipalStore(models.KindStudent, &models.PrincipalAccount{
		ID:           "student-1",
		Email:        "student@college.edu",
		FullName:     "Kiran Shetty",
		PasswordHash: "hashed:secret123",
	})
	svc := NewAuthService(
		[]PrincipalStore{teachers, students},
		plainVerifier{}, validator.New(), zap.NewNop(),
		AuthConfig{
			AccessTokenSecret:  "access-secret",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenSecret: "refresh-secret",
			RefreshTokenExpiry: 24 * time.Hour,
		})
	return svc, teachers, students
}

func TestLoginIssuesTokenPair(t *testing.T) {
	svc, teachers, _ := newAuthFixture()

	resp, err := svc.Login(context.Background(), models.KindTeacher, models.LoginRequest{
		Email:    "teacher@college.edu",
		Password: "secret123",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "teacher-1", resp.Principal.ID)
	assert.Equal(t, models.KindTeacher, resp.Principal.Kind)

	account := teachers.accounts["teacher-1"]
	require.NotNil(t, account.RefreshToken)
	assert.Equal(t, resp.RefreshToken, *account.RefreshToken)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, err := svc.Login(context.Background(), models.KindTeacher, models.LoginRequest{
		Email:    "teacher@college.edu",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, err := svc.Login(context.Background(), models.KindTeacher, models.LoginRequest{
		Email:    "nobody@college.edu",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestVerifyAccessKindMismatch(t *testing.T) {
	svc, _, _ := newAuthFixture()

	resp, err := svc.Login(context.Background(), models.KindTeacher, models.LoginRequest{
		Email:    "teacher@college.edu",
		Password: "secret123",
	})
	require.NoError(t, err)

	claims, err := svc.VerifyAccess(resp.AccessToken, models.KindTeacher)
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", claims.PrincipalID)

	// A teacher token must not open the student portal.
	_, err = svc.VerifyAccess(resp.AccessToken, models.KindStudent)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestVerifyAccessRejectsRefreshToken(t *testing.T) {
	svc, _, _ := newAuthFixture()

	resp, err := svc.Login(context.Background(), models.KindTeacher, models.LoginRequest{
		Email:    "teacher@college.edu",
		Password: "secret123",
	})
	require.NoError(t, err)

	_, err = svc.VerifyAccess(resp.RefreshToken, models.KindTeacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc, teachers, _ := newAuthFixture()

	login, err := svc.Login(context.Background(), models.KindTeacher, models.LoginRequest{
		Email:    "teacher@college.edu",
		Password: "secret123",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), models.KindTeacher, models.RefreshRequest{
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	account := teachers.accounts["teacher-1"]
	require.NotNil(t, account.RefreshToken)
	assert.Equal(t, refreshed.RefreshToken, *account.RefreshToken)
}

func TestRefreshAfterLogoutFails(t *testing.T) {
	svc, _, _ := newAuthFixture()

	login, err := svc.Login(context.Background(), models.KindTeacher, models.LoginRequest{
		Email:    "teacher@college.edu",
		Password: "secret123",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), models.KindTeacher, "teacher-1"))

	_, err = svc.Refresh(context.Background(), models.KindTeacher, models.RefreshRequest{
		RefreshToken: login.RefreshToken,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestRefreshWrongPortal(t *testing.T) {
	svc, _, _ := newAuthFixture()

	login, err := svc.Login(context.Background(), models.KindTeacher, models.LoginRequest{
		Email:    "teacher@college.edu",
		Password: "secret123",
	})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), models.KindStudent, models.RefreshRequest{
		RefreshToken: login.RefreshToken,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestChangePassword(t *testing.T) {
	svc, teachers, _ := newAuthFixture()

	login, err := svc.Login(context.Background(), models.KindTeacher, models.LoginRequest{
		Email:    "teacher@college.edu",
		Password: "secret123",
	})
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), models.KindTeacher, "teacher-1", models.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "newsecret",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	err = svc.ChangePassword(context.Background(), models.KindTeacher, "teacher-1", models.ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "newsecret",
	})
	require.NoError(t, err)
	assert.Equal(t, "hashed:newsecret", teachers.accounts["teacher-1"].PasswordHash)
	assert.Nil(t, teachers.accounts["teacher-1"].RefreshToken)

	// The session issued before the change must not refresh anymore.
	_, err = svc.Refresh(context.Background(), models.KindTeacher, models.RefreshRequest{
		RefreshToken: login.RefreshToken,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
