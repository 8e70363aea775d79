package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/robotcare/maintenance-service/internal/auth"
	"github.com/robotcare/maintenance-service/internal/config"
	"github.com/robotcare/maintenance-service/internal/domain"
	"github.com/robotcare/maintenance-service/internal/repository"
	apperrors "github.com/robotcare/maintenance-service/pkg/util"
)

// AuthService coordinates login and account provisioning.
type AuthService struct {
	users         repository.UserRepository
	organizations repository.OrganizationRepository
	tokenMgr      *auth.TokenManager
	bcryptCost    int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo         repository.UserRepository
	OrganizationRepo repository.OrganizationRepository
	TokenManager     *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	tokens := deps.TokenManager
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg)
	}
	return &AuthService{
		users:         deps.UserRepo,
		organizations: deps.OrganizationRepo,
		tokenMgr:      tokens,
		bcryptCost:    cfg.BcryptCost,
	}
}

// Login authenticates a user and issues an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if !user.Active {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("account inactive")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, exp, nil
}

// CreateOrganization provisions a tenant.
func (s *AuthService) CreateOrganization(ctx context.Context, name string, kind domain.OrganizationKind) (*domain.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if kind != domain.OrganizationServiceProvider && kind != domain.OrganizationCustomer {
		return nil, apperrors.NewValidationError("invalid organization kind", map[string]any{"kind": kind})
	}
	org := &domain.Organization{Name: name, Kind: kind}
	if err := s.organizations.Create(ctx, org); err != nil {
		return nil, apperrors.MapError(err)
	}
	return org, nil
}

// UserCreateInput describes a new account.
type UserCreateInput struct {
	Name           string
	Email          string
	Password       string
	Role           domain.Role
	OrganizationID string
}

// CreateUser provisions an account. The role must match the organization kind.
func (s *AuthService) CreateUser(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
	}
	if strings.TrimSpace(input.Email) == "" {
		return nil, apperrors.NewValidationError("email is required", map[string]any{"field": "email"})
	}
	if err := auth.ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	org, err := s.organizations.GetByID(ctx, input.OrganizationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("organization", map[string]any{"organization_id": input.OrganizationID})
		}
		return nil, apperrors.MapError(err)
	}
	wantKind := domain.OrganizationCustomer
	if auth.HasCapability(input.Role, domain.CapabilityService) {
		wantKind = domain.OrganizationServiceProvider
	}
	if org.Kind != wantKind {
		return nil, apperrors.NewValidationError("role does not fit organization kind", map[string]any{
			"role": input.Role, "organization_kind": org.Kind,
		})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	user := &domain.User{
		Name:           strings.TrimSpace(input.Name),
		Email:          strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash:   hash,
		Role:           input.Role,
		OrganizationID: org.ID,
		Active:         true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": user.Email})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}
