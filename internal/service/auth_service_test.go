package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/civic-connect/civic-api/internal/models"
	"github.com/civic-connect/civic-api/internal/repository"
	appErrors "github.com/civic-connect/civic-api/pkg/errors"
)

type mockAuthRepo struct {
	users            map[string]*models.User
	createErr        error
	findErr          error
	lastLoginErr     error
	auditLogs        []*models.AuditLog
	lastLoginUpdated bool
}

func newMockAuthRepo(users ...*models.User) *mockAuthRepo {
	m := &mockAuthRepo{users: map[string]*models.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockAuthRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if m.lastLoginErr != nil {
		return m.lastLoginErr
	}
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newTestAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{
		Secret:     "secret",
		Expiry:     time.Hour,
		Issuer:     "test",
		AdminCode:  "let-me-in",
		BcryptCost: bcrypt.MinCost,
	})
}

func TestAuthServiceRegisterCreatesPendingUser(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newTestAuthService(repo)

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Name:            "Lycée Pétion",
		Email:           "Contact@Petion.ht ",
		Password:        "secret1",
		Role:            models.RoleInstitution,
		InstitutionName: "Lycée Alexandre Pétion",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, models.StatusPending, resp.User.Status)
	assert.Equal(t, "contact@petion.ht", resp.User.Email)
	assert.Equal(t, models.LanguageFR, resp.User.Language)
	require.NotNil(t, resp.User.InstitutionName)
	assert.Equal(t, "Lycée Alexandre Pétion", *resp.User.InstitutionName)
	assert.NotEqual(t, "secret1", resp.User.PasswordHash)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionRegister, repo.auditLogs[0].Action)
}

func TestAuthServiceRegisterRejectsAdminRole(t *testing.T) {
	svc := newTestAuthService(newMockAuthRepo())
	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Name: "Mallory", Email: "m@example.com", Password: "secret1", Role: models.RoleAdmin,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	existing := &models.User{ID: "u1", Email: "taken@example.com"}
	svc := newTestAuthService(newMockAuthRepo(existing))

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Name: "Other", Email: "TAKEN@example.com", Password: "secret1", Role: models.RoleUser,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateEmail))
}

func TestAuthServiceRegisterDuplicateFromConstraint(t *testing.T) {
	repo := newMockAuthRepo()
	repo.createErr = repository.ErrDuplicate
	svc := newTestAuthService(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Name: "Racer", Email: "race@example.com", Password: "secret1", Role: models.RoleUser,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateEmail))
}

func TestAuthServiceRegisterAdmin(t *testing.T) {
	svc := newTestAuthService(newMockAuthRepo())

	_, err := svc.RegisterAdmin(context.Background(), models.AdminRegisterRequest{
		Name: "Root", Email: "root@example.com", Password: "secret1", AdminCode: "wrong",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidAdminCode))

	resp, err := svc.RegisterAdmin(context.Background(), models.AdminRegisterRequest{
		Name: "Root", Email: "  Root@Example.com", Password: "secret1", AdminCode: "let-me-in",
	})
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", resp.User.Email)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.Equal(t, models.StatusApproved, resp.User.Status)
}

func TestAuthServiceRegisterAdminDisabledWithoutCode(t *testing.T) {
	repo := newMockAuthRepo()
	svc := NewAuthService(repo, nil, nil, AuthConfig{Secret: "s", BcryptCost: bcrypt.MinCost})
	_, err := svc.RegisterAdmin(context.Background(), models.AdminRegisterRequest{
		Name: "Root", Email: "root@example.com", Password: "secret1", AdminCode: "x",
	})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidAdminCode))
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	user := &models.User{ID: "u1", Email: "jane@example.com", PasswordHash: hashed(t, "password"), Role: models.RoleUser, Status: models.StatusApproved}
	repo := newMockAuthRepo(user)
	svc := newTestAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: " JANE@example.com\t", Password: "password"})
	require.NoError(t, err)
	assert.True(t, repo.lastLoginUpdated)
	assert.NotNil(t, resp.User.LastLogin)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestAuthServiceLoginInvalidCredentials(t *testing.T) {
	user := &models.User{ID: "u1", Email: "jane@example.com", PasswordHash: hashed(t, "password"), Status: models.StatusApproved}
	svc := newTestAuthService(newMockAuthRepo(user))

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "jane@example.com", Password: "nope"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "nope"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginPendingUser(t *testing.T) {
	user := &models.User{ID: "u1", Email: "p@example.com", PasswordHash: hashed(t, "password"), Role: models.RoleInstitution, Status: models.StatusPending}
	repo := newMockAuthRepo(user)
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "p@example.com", Password: "password"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotApproved))
	assert.False(t, repo.lastLoginUpdated)
}

func TestAuthServiceLoginSurvivesLastLoginFailure(t *testing.T) {
	user := &models.User{ID: "u1", Email: "jane@example.com", PasswordHash: hashed(t, "password"), Status: models.StatusApproved}
	repo := newMockAuthRepo(user)
	repo.lastLoginErr = errors.New("db down")
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "jane@example.com", Password: "password"})
	assert.NoError(t, err)
}

func TestAuthServiceAuthenticate(t *testing.T) {
	user := &models.User{ID: "u1", Email: "jane@example.com", Status: models.StatusApproved}
	repo := newMockAuthRepo(user)
	svc := newTestAuthService(repo)

	resp, err := svc.issue(user)
	require.NoError(t, err)

	got, err := svc.Authenticate(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	delete(repo.users, "u1")
	_, err = svc.Authenticate(context.Background(), resp.Token)
	assert.True(t, errors.Is(err, appErrors.ErrUserNotFound))

	_, err = svc.Authenticate(context.Background(), "")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthenticated))
}

func TestAuthServiceAuthenticateExpiredToken(t *testing.T) {
	user := &models.User{ID: "u1"}
	svc := newTestAuthService(newMockAuthRepo(user))
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	resp, err := svc.issue(user)
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), resp.Token)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthenticated))
}

func TestAuthServiceValidateTokenRejectsOtherAlgorithms(t *testing.T) {
	svc := newTestAuthService(newMockAuthRepo())
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, &models.JWTClaims{UserID: "u1"})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthenticated))
}

func TestAuthServiceChangePassword(t *testing.T) {
	user := &models.User{ID: "u1", PasswordHash: hashed(t, "oldpass")}
	repo := newMockAuthRepo(user)
	svc := newTestAuthService(repo)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "newpass"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	err = svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{CurrentPassword: "oldpass", NewPassword: "newpass"})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("newpass")))
}

func TestAuthServiceUpdateProfileAllowlist(t *testing.T) {
	user := &models.User{ID: "u1", Name: "Old", Role: models.RoleUser, Status: models.StatusPending, Email: "a@example.com"}
	svc := newTestAuthService(newMockAuthRepo(user))

	name := "New Name"
	lang := models.LanguageKH
	got, err := svc.UpdateProfile(context.Background(), "u1", models.UpdateProfileRequest{Name: &name, Language: &lang})
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)
	assert.Equal(t, models.LanguageKH, got.Language)
	assert.Equal(t, models.RoleUser, got.Role)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, "a@example.com", got.Email)
}
