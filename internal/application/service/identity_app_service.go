package service

import (
	"context"

	"github.com/turtacn/perimeter/internal/application/dto"
	"github.com/turtacn/perimeter/internal/domain/models"
	"github.com/turtacn/perimeter/internal/domain/repository"
	domainService "github.com/turtacn/perimeter/internal/domain/service"
	"github.com/turtacn/perimeter/pkg/errors"
	"github.com/turtacn/perimeter/pkg/logger"
)

// IdentityAppService answers credential checks for the identity store
type IdentityAppService interface {
	// ValidateCredentials returns the identity for matching credentials, or
	// errors.ErrInvalidCredentials for unknown users, inactive accounts and wrong passwords.
	ValidateCredentials(ctx context.Context, username, password string) (*dto.IdentityResponse, error)

	// EnsureAdmin creates the given account when the store holds no users yet.
	EnsureAdmin(ctx context.Context, username, email, password string, roles []string) error
}

type identityAppServiceImpl struct {
	users    repository.UserRepository
	cache    repository.UserCache
	verifier domainService.PasswordVerifier
	metrics  domainService.Metrics
	logger   logger.Logger
}

// NewIdentityAppService creates a new instance of IdentityAppService
func NewIdentityAppService(
	users repository.UserRepository,
	cache repository.UserCache,
	verifier domainService.PasswordVerifier,
	metrics domainService.Metrics,
	log logger.Logger,
) IdentityAppService {
	return &identityAppServiceImpl{
		users:    users,
		cache:    cache,
		verifier: verifier,
		metrics:  metrics,
		logger:   log.WithComponent("identity"),
	}
}

// ValidateCredentials implements IdentityAppService
func (s *identityAppServiceImpl) ValidateCredentials(ctx context.Context, username, password string) (*dto.IdentityResponse, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			s.reject(ctx, username, "unknown user")
			return nil, errors.ErrInvalidCredentials
		}
		s.logger.Error(ctx, "User lookup failed", err, logger.String("username", username))
		return nil, err
	}

	if !user.IsActive() {
		s.reject(ctx, username, "inactive account")
		return nil, errors.ErrInvalidCredentials
	}
	if err := s.verifier.Compare(user.PasswordHash, password); err != nil {
		s.reject(ctx, username, "password mismatch")
		return nil, errors.ErrInvalidCredentials
	}

	s.metrics.RecordIdentityValidation("accepted")
	return &dto.IdentityResponse{
		ID:       user.Subject(),
		Username: user.Username,
		Email:    user.Email,
		Roles:    user.RoleNames(),
	}, nil
}

// lookup reads through the cache. Cache failures degrade to the repository.
func (s *identityAppServiceImpl) lookup(ctx context.Context, username string) (*models.User, error) {
	if user, err := s.cache.Get(ctx, username); err != nil {
		s.logger.Warn(ctx, "User cache read failed", logger.Err(err))
	} else if user != nil {
		return user, nil
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, user); err != nil {
		s.logger.Warn(ctx, "User cache write failed", logger.Err(err))
	}
	return user, nil
}

func (s *identityAppServiceImpl) reject(ctx context.Context, username, reason string) {
	s.metrics.RecordIdentityValidation("rejected")
	s.logger.Info(ctx, "Credentials rejected",
		logger.String("username", username),
		logger.String("reason", reason),
	)
}

// EnsureAdmin implements IdentityAppService
func (s *identityAppServiceImpl) EnsureAdmin(ctx context.Context, username, email, password string, roles []string) error {
	if username == "" || password == "" {
		return nil
	}
	n, err := s.users.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hash, err := s.verifier.Hash(password)
	if err != nil {
		return err
	}
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Status:       models.UserStatusActive,
	}
	for _, r := range roles {
		user.Roles = append(user.Roles, models.Role{Name: r})
	}
	if err := s.users.Create(ctx, user); err != nil {
		return err
	}
	s.logger.Info(ctx, "Seeded initial account", logger.String("username", username), logger.Strings("roles", roles))
	return nil
}
