package mocks

import (
	"github.com/stretchr/testify/mock"
	"github.com/turtacn/perimeter/internal/domain/models"
)

type MockTokenCodec struct {
	mock.Mock
}

func (m *MockTokenCodec) Issue(subject string, roles []string, ttlSeconds int64) (string, error) {
	args := m.Called(subject, roles, ttlSeconds)
	return args.String(0), args.Error(1)
}

func (m *MockTokenCodec) Verify(token string) (*models.Claims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Claims), args.Error(1)
}
