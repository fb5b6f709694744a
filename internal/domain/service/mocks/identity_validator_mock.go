package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/turtacn/perimeter/internal/domain/models"
)

type MockIdentityValidator struct {
	mock.Mock
}

func (m *MockIdentityValidator) Validate(ctx context.Context, username, password string) (models.IdentityResult, error) {
	args := m.Called(ctx, username, password)
	return args.Get(0).(models.IdentityResult), args.Error(1)
}
