package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/turtacn/perimeter/pkg/constants"
)

type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordLogin(outcome constants.LoginOutcome, duration time.Duration) {
	m.Called(outcome, duration)
}

func (m *MockMetrics) RecordRetry(target string) {
	m.Called(target)
}

func (m *MockMetrics) RecordBreakerTransition(target, from, to string) {
	m.Called(target, from, to)
}

func (m *MockMetrics) RecordGatewayDecision(decision string) {
	m.Called(decision)
}

func (m *MockMetrics) RecordCacheAccess(cacheType string, hit bool) {
	m.Called(cacheType, hit)
}

func (m *MockMetrics) RecordIdentityValidation(result string) {
	m.Called(result)
}

func (m *MockMetrics) RecordAuditPublish(sink string, err error) {
	m.Called(sink, err)
}
