package admins

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgAuth "github.com/classforge/edugames-backend/pkg/auth"
	"github.com/classforge/edugames-backend/pkg/config"
	"github.com/classforge/edugames-backend/pkg/db"
	"github.com/classforge/edugames-backend/pkg/db/models"
	pkgerrors "github.com/classforge/edugames-backend/pkg/errors"
	"github.com/classforge/edugames-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const invalidCredentialsMessage = "invalid credentials"

// AdminDTO is the wire representation of a staff account.
type AdminDTO struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// LoginInput carries login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult bundles the session token the controller sets as a cookie.
type LoginResult struct {
	Token string
	Admin AdminDTO
}

// RegisterInput carries a new account request.
type RegisterInput struct {
	Email    string
	Password string
}

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	Register(ctx context.Context, input RegisterInput) (*AdminDTO, error)
	UpdatePassword(ctx context.Context, adminID uuid.UUID, current, next string) error
}

type adminRepository interface {
	Create(ctx context.Context, admin *models.Admin) (*models.Admin, error)
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionManager interface {
	Create(ctx context.Context, adminID string) (string, error)
	Revoke(ctx context.Context, sessionID string) error
}

type service struct {
	repo       adminRepository
	sessions   sessionManager
	sessionCfg config.SessionConfig
	appCfg     config.AppConfig
}

// ServiceParams bundles the dependencies required to build the auth service.
type ServiceParams struct {
	Repo          adminRepository
	Sessions      sessionManager
	SessionConfig config.SessionConfig
	AppConfig     config.AppConfig
}

// NewService constructs the admin auth service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("admin repository is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		repo:       params.Repo,
		sessions:   params.Sessions,
		sessionCfg: params.SessionConfig,
		appCfg:     params.AppConfig,
	}, nil
}

// Login verifies credentials, opens a redis-backed session and mints the
// cookie JWT tied to it.
func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	admin, err := s.authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}

	sessionID, err := s.sessions.Create(ctx, admin.ID.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open session")
	}

	token, err := pkgAuth.MintSessionToken(s.sessionCfg, time.Now().UTC(), admin.ID, admin.Email, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint session token")
	}

	return &LoginResult{
		Token: token,
		Admin: AdminDTO{ID: admin.ID, Email: admin.Email},
	}, nil
}

// Logout revokes the session behind the cookie. Unknown sessions succeed.
func (s *service) Logout(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// Register creates a staff account. Disabled outside dev environments.
func (s *service) Register(ctx context.Context, input RegisterInput) (*AdminDTO, error) {
	if s.appCfg.IsProd() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "registration is disabled")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if len(input.Password) < security.MinPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("password must be at least %d characters", security.MinPasswordLength))
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	admin, err := s.repo.Create(ctx, &models.Admin{Email: email, PasswordHash: hash})
	if err != nil {
		if db.IsUniqueViolation(err, "admins_email_key") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDatabase, err, "create admin")
	}

	return &AdminDTO{ID: admin.ID, Email: admin.Email}, nil
}

// UpdatePassword re-hashes after verifying the current password.
func (s *service) UpdatePassword(ctx context.Context, adminID uuid.UUID, current, next string) error {
	if len(next) < security.MinPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("password must be at least %d characters", security.MinPasswordLength))
	}

	admin, err := s.repo.FindByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDatabase, err, "lookup admin")
	}

	valid, err := security.VerifyPassword(current, admin.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	hash, err := security.HashPassword(next)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.repo.UpdatePasswordHash(ctx, adminID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDatabase, err, "update password")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.Admin, error) {
	input := strings.TrimSpace(email)
	if input == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	admin, err := s.repo.FindByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDatabase, err, "lookup admin")
	}

	valid, err := security.VerifyPassword(password, admin.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return admin, nil
}
