package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/turtacn/perimeter/internal/domain/models"
)

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) LogLoginEvent(ctx context.Context, event *models.LoginAuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
