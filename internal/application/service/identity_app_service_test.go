package service

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/turtacn/perimeter/internal/domain/models"
	repomocks "github.com/turtacn/perimeter/internal/domain/repository/mocks"
	"github.com/turtacn/perimeter/internal/infrastructure/crypto"
	"github.com/turtacn/perimeter/internal/infrastructure/monitoring"
	"github.com/turtacn/perimeter/pkg/errors"
	"github.com/turtacn/perimeter/pkg/logger"
)

type identityFixture struct {
	users   *repomocks.MockUserRepository
	cache   *repomocks.MockUserCache
	service IdentityAppService
	hash    string
}

func newIdentityFixture(t *testing.T) *identityFixture {
	t.Helper()
	verifier := crypto.NewBcryptVerifier(bcrypt.MinCost)
	hash, err := verifier.Hash("s3cret")
	require.NoError(t, err)

	f := &identityFixture{
		users: new(repomocks.MockUserRepository),
		cache: new(repomocks.MockUserCache),
		hash:  hash,
	}
	f.service = NewIdentityAppService(f.users, f.cache, verifier, monitoring.NewNoopMetrics(), logger.NewNoopLogger())
	return f
}

func (f *identityFixture) alice(status models.UserStatus) *models.User {
	return &models.User{
		ID:           42,
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: f.hash,
		Status:       status,
		Roles:        []models.Role{{Name: "USER"}, {Name: "ADMIN"}},
	}
}

func TestIdentityAppService_ValidCredentialsFromRepository(t *testing.T) {
	f := newIdentityFixture(t)
	user := f.alice(models.UserStatusActive)
	f.cache.On("Get", mock.Anything, "alice").Return(nil, nil).Once()
	f.users.On("FindByUsername", mock.Anything, "alice").Return(user, nil).Once()
	f.cache.On("Set", mock.Anything, user).Return(nil).Once()

	resp, err := f.service.ValidateCredentials(context.Background(), "alice", "s3cret")

	require.NoError(t, err)
	assert.Equal(t, "42", resp.ID)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, []string{"USER", "ADMIN"}, resp.Roles)
	f.users.AssertExpectations(t)
	f.cache.AssertExpectations(t)
}

func TestIdentityAppService_CacheHitSkipsRepository(t *testing.T) {
	f := newIdentityFixture(t)
	f.cache.On("Get", mock.Anything, "alice").Return(f.alice(models.UserStatusActive), nil).Once()

	resp, err := f.service.ValidateCredentials(context.Background(), "alice", "s3cret")

	require.NoError(t, err)
	assert.Equal(t, "42", resp.ID)
	f.users.AssertNotCalled(t, "FindByUsername", mock.Anything, mock.Anything)
}

func TestIdentityAppService_CacheFailureFallsBack(t *testing.T) {
	f := newIdentityFixture(t)
	user := f.alice(models.UserStatusActive)
	f.cache.On("Get", mock.Anything, "alice").Return(nil, stderrors.New("redis down"))
	f.users.On("FindByUsername", mock.Anything, "alice").Return(user, nil)
	f.cache.On("Set", mock.Anything, user).Return(stderrors.New("redis down"))

	_, err := f.service.ValidateCredentials(context.Background(), "alice", "s3cret")
	assert.NoError(t, err)
}

func TestIdentityAppService_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		password string
		user     func(f *identityFixture) *models.User
		findErr  error
	}{
		{"wrong password", "nope", func(f *identityFixture) *models.User { return f.alice(models.UserStatusActive) }, nil},
		{"inactive account", "s3cret", func(f *identityFixture) *models.User { return f.alice(models.UserStatusInactive) }, nil},
		{"unknown user", "s3cret", func(*identityFixture) *models.User { return nil }, errors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIdentityFixture(t)
			user := tt.user(f)
			f.cache.On("Get", mock.Anything, "alice").Return(nil, nil)
			if user != nil {
				f.users.On("FindByUsername", mock.Anything, "alice").Return(user, nil)
				f.cache.On("Set", mock.Anything, user).Return(nil)
			} else {
				f.users.On("FindByUsername", mock.Anything, "alice").Return(nil, tt.findErr)
			}

			_, err := f.service.ValidateCredentials(context.Background(), "alice", tt.password)
			assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))
		})
	}
}

func TestIdentityAppService_StoreFailureIsNotARejection(t *testing.T) {
	f := newIdentityFixture(t)
	f.cache.On("Get", mock.Anything, "alice").Return(nil, nil)
	f.users.On("FindByUsername", mock.Anything, "alice").Return(nil, errors.ErrServiceUnavailable)

	_, err := f.service.ValidateCredentials(context.Background(), "alice", "s3cret")

	assert.True(t, errors.Is(err, errors.ErrServiceUnavailable))
	assert.False(t, errors.Is(err, errors.ErrInvalidCredentials))
}

func TestIdentityAppService_EnsureAdmin(t *testing.T) {
	t.Run("seeds an empty store", func(t *testing.T) {
		f := newIdentityFixture(t)
		f.users.On("Count", mock.Anything).Return(int64(0), nil)
		f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Username == "admin" && u.PasswordHash != "pw" && len(u.Roles) == 1 && u.Roles[0].Name == "ADMIN"
		})).Return(nil).Once()

		require.NoError(t, f.service.EnsureAdmin(context.Background(), "admin", "admin@localhost", "pw", []string{"ADMIN"}))
		f.users.AssertExpectations(t)
	})

	t.Run("leaves a populated store alone", func(t *testing.T) {
		f := newIdentityFixture(t)
		f.users.On("Count", mock.Anything).Return(int64(3), nil)

		require.NoError(t, f.service.EnsureAdmin(context.Background(), "admin", "admin@localhost", "pw", nil))
		f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("no password configured", func(t *testing.T) {
		f := newIdentityFixture(t)
		require.NoError(t, f.service.EnsureAdmin(context.Background(), "admin", "", "", nil))
		f.users.AssertNotCalled(t, "Count", mock.Anything)
	})
}
