package admins

import (
	"context"
	"errors"
	"testing"

	pkgAuth "github.com/classforge/edugames-backend/pkg/auth"
	"github.com/classforge/edugames-backend/pkg/config"
	"github.com/classforge/edugames-backend/pkg/db/models"
	pkgerrors "github.com/classforge/edugames-backend/pkg/errors"
	"github.com/classforge/edugames-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubRepo struct {
	byEmail   map[string]*models.Admin
	byID      map[uuid.UUID]*models.Admin
	created   []*models.Admin
	updated   map[uuid.UUID]string
	createErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		byEmail: map[string]*models.Admin{},
		byID:    map[uuid.UUID]*models.Admin{},
		updated: map[uuid.UUID]string{},
	}
}

func (r *stubRepo) add(admin *models.Admin) {
	r.byEmail[admin.Email] = admin
	r.byID[admin.ID] = admin
}

func (r *stubRepo) Create(ctx context.Context, admin *models.Admin) (*models.Admin, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	admin.ID = uuid.New()
	r.created = append(r.created, admin)
	r.add(admin)
	return admin, nil
}

func (r *stubRepo) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	if admin, ok := r.byEmail[email]; ok {
		return admin, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	if admin, ok := r.byID[id]; ok {
		return admin, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	r.updated[id] = hash
	return nil
}

type stubSessions struct {
	created []string
	revoked []string
}

func (s *stubSessions) Create(ctx context.Context, adminID string) (string, error) {
	id := uuid.NewString()
	s.created = append(s.created, id)
	return id, nil
}

func (s *stubSessions) Revoke(ctx context.Context, sessionID string) error {
	s.revoked = append(s.revoked, sessionID)
	return nil
}

func sessionConfig() config.SessionConfig {
	return config.SessionConfig{Secret: "secret", Issuer: "edugames", TTLMinutes: 60, CookieName: "edugames_session"}
}

func newService(t *testing.T, repo *stubRepo, sessions *stubSessions, env string) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:          repo,
		Sessions:      sessions,
		SessionConfig: sessionConfig(),
		AppConfig:     config.AppConfig{Env: env},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedAdmin(t *testing.T, repo *stubRepo, email, password string) *models.Admin {
	t.Helper()
	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	admin := &models.Admin{ID: uuid.New(), Email: email, PasswordHash: hash}
	repo.add(admin)
	return admin
}

func TestLoginMintsSessionToken(t *testing.T) {
	repo := newStubRepo()
	sessions := &stubSessions{}
	admin := seedAdmin(t, repo, "admin@school.edu", "hunter22")
	svc := newService(t, repo, sessions, config.AppEnvDev)

	result, err := svc.Login(context.Background(), LoginInput{Email: "admin@school.edu", Password: "hunter22"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Admin.ID != admin.ID {
		t.Fatalf("unexpected admin id %s", result.Admin.ID)
	}

	claims, err := pkgAuth.ParseSessionToken(sessionConfig(), result.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.AdminID != admin.ID {
		t.Fatalf("token admin mismatch")
	}
	if len(sessions.created) != 1 || claims.ID != sessions.created[0] {
		t.Fatalf("token jti should match the redis session id")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := newStubRepo()
	seedAdmin(t, repo, "admin@school.edu", "hunter22")
	svc := newService(t, repo, &stubSessions{}, config.AppEnvDev)
	ctx := context.Background()

	cases := []LoginInput{
		{Email: "admin@school.edu", Password: "wrong"},
		{Email: "nobody@school.edu", Password: "hunter22"},
		{Email: "", Password: "hunter22"},
		{Email: "admin@school.edu", Password: ""},
	}
	for _, input := range cases {
		_, err := svc.Login(ctx, input)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized for %+v, got %v", input, err)
		}
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	sessions := &stubSessions{}
	svc := newService(t, newStubRepo(), sessions, config.AppEnvDev)

	if err := svc.Logout(context.Background(), "session-123"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "session-123" {
		t.Fatalf("expected session revoked, got %v", sessions.revoked)
	}

	// blank session id is a silent no-op
	if err := svc.Logout(context.Background(), ""); err != nil {
		t.Fatalf("logout blank: %v", err)
	}
}

func TestRegisterDisabledInProd(t *testing.T) {
	svc := newService(t, newStubRepo(), &stubSessions{}, config.AppEnvProd)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "new@school.edu", Password: "longenough"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRegisterValidatesAndHashes(t *testing.T) {
	repo := newStubRepo()
	svc := newService(t, repo, &stubSessions{}, config.AppEnvDev)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "new@school.edu", Password: "short"}); pkgerrors.As(err) == nil {
		t.Fatalf("expected validation error for short password, got %v", err)
	}

	dto, err := svc.Register(ctx, RegisterInput{Email: "New@School.edu", Password: "longenough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if dto.Email != "new@school.edu" {
		t.Fatalf("expected lowercased email, got %q", dto.Email)
	}

	stored := repo.created[0]
	if stored.PasswordHash == "longenough" {
		t.Fatal("password stored unhashed")
	}
	ok, err := security.VerifyPassword("longenough", stored.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify: ok=%v err=%v", ok, err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newStubRepo()
	repo.createErr = errors.New(`duplicate key value violates unique constraint "admins_email_key"`)
	svc := newService(t, repo, &stubSessions{}, config.AppEnvDev)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "taken@school.edu", Password: "longenough"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdatePassword(t *testing.T) {
	repo := newStubRepo()
	admin := seedAdmin(t, repo, "admin@school.edu", "hunter22")
	svc := newService(t, repo, &stubSessions{}, config.AppEnvDev)
	ctx := context.Background()

	if err := svc.UpdatePassword(ctx, admin.ID, "hunter22", "short"); pkgerrors.As(err) == nil {
		t.Fatalf("expected validation error, got %v", err)
	}

	err := svc.UpdatePassword(ctx, admin.ID, "wrong", "newpassword")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	if err := svc.UpdatePassword(ctx, admin.ID, "hunter22", "newpassword"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	hash, ok := repo.updated[admin.ID]
	if !ok {
		t.Fatal("password hash not updated")
	}
	valid, err := security.VerifyPassword("newpassword", hash)
	if err != nil || !valid {
		t.Fatalf("new hash does not verify: ok=%v err=%v", valid, err)
	}
}
