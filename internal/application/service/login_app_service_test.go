package service

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/turtacn/perimeter/internal/domain/models"
	"github.com/turtacn/perimeter/internal/domain/service/mocks"
	"github.com/turtacn/perimeter/internal/infrastructure/resilience"
	"github.com/turtacn/perimeter/pkg/constants"
	"github.com/turtacn/perimeter/pkg/errors"
	"github.com/turtacn/perimeter/pkg/logger"
)

type loginFixture struct {
	validator *mocks.MockIdentityValidator
	codec     *mocks.MockTokenCodec
	audit     *mocks.MockAuditService
	metrics   *mocks.MockMetrics
	executor  *resilience.Executor
	service   LoginAppService
}

func newLoginFixture(t *testing.T) *loginFixture {
	t.Helper()
	f := &loginFixture{
		validator: new(mocks.MockIdentityValidator),
		codec:     new(mocks.MockTokenCodec),
		audit:     new(mocks.MockAuditService),
		metrics:   new(mocks.MockMetrics),
		executor: resilience.NewExecutor(
			resilience.NewRegistry(resilience.DefaultSettings()),
			resilience.RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond},
		),
	}
	f.service = NewLoginAppService(
		f.validator, f.executor, f.codec, f.audit, f.metrics,
		noop.NewTracerProvider().Tracer("test"), 3600, logger.NewNoopLogger(),
	)
	return f
}

func (f *loginFixture) expectOutcome(outcome constants.LoginOutcome) {
	f.metrics.On("RecordLogin", outcome, mock.AnythingOfType("time.Duration")).Once()
	f.audit.On("LogLoginEvent", mock.Anything, mock.MatchedBy(func(e *models.LoginAuditEvent) bool {
		return e.Outcome == outcome && e.Username == "alice"
	})).Return(nil).Once()
}

func TestLoginAppService_Success(t *testing.T) {
	f := newLoginFixture(t)
	f.validator.On("Validate", mock.Anything, "alice", "s3cret").
		Return(models.Authenticated("42", []string{"USER", "ADMIN"}), nil).Once()
	f.codec.On("Issue", "42", []string{"USER", "ADMIN"}, int64(3600)).Return("signed-token", nil).Once()
	f.expectOutcome(constants.LoginOutcomeSuccess)

	resp, err := f.service.Login(context.Background(), "alice", "s3cret")

	require.NoError(t, err)
	assert.Equal(t, "signed-token", resp.Token)
	assert.Equal(t, int64(3600), resp.TTLSeconds)
	f.validator.AssertExpectations(t)
	f.codec.AssertExpectations(t)
	f.audit.AssertExpectations(t)
	f.metrics.AssertExpectations(t)
}

func TestLoginAppService_NilRolesIssueEmpty(t *testing.T) {
	f := newLoginFixture(t)
	f.validator.On("Validate", mock.Anything, "alice", "pw").Return(models.Authenticated("7", nil), nil)
	f.codec.On("Issue", "7", []string{}, int64(3600)).Return("t", nil).Once()
	f.expectOutcome(constants.LoginOutcomeSuccess)

	_, err := f.service.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	f.codec.AssertExpectations(t)
}

func TestLoginAppService_RejectedCredentials(t *testing.T) {
	f := newLoginFixture(t)
	f.validator.On("Validate", mock.Anything, "alice", "wrong").
		Return(models.Rejected("bad password"), nil).Once()
	f.expectOutcome(constants.LoginOutcomeInvalidCredentials)

	_, err := f.service.Login(context.Background(), "alice", "wrong")

	assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))
	f.validator.AssertNumberOfCalls(t, "Validate", 1)
	f.codec.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything)

	snap := f.executor.Breaker(constants.IdentityServiceTarget).Snapshot()
	assert.Equal(t, 1, snap.Calls)
	assert.Zero(t, snap.Failures)
}

func TestLoginAppService_RetriesExhausted(t *testing.T) {
	f := newLoginFixture(t)
	f.validator.On("Validate", mock.Anything, "alice", "pw").
		Return(models.IdentityResult{}, errors.ErrRemoteCallFailed.WithCause(stderrors.New("connection refused")))
	f.expectOutcome(constants.LoginOutcomeUnavailable)

	_, err := f.service.Login(context.Background(), "alice", "pw")

	assert.True(t, errors.Is(err, errors.ErrServiceUnavailable))
	assert.False(t, errors.Is(err, errors.ErrInvalidCredentials))
	f.validator.AssertNumberOfCalls(t, "Validate", 3)
}

func TestLoginAppService_TransientFailureRecovers(t *testing.T) {
	f := newLoginFixture(t)
	f.validator.On("Validate", mock.Anything, "alice", "pw").
		Return(models.IdentityResult{}, errors.ErrRemoteCallFailed).Once()
	f.validator.On("Validate", mock.Anything, "alice", "pw").
		Return(models.Authenticated("42", nil), nil).Once()
	f.codec.On("Issue", "42", []string{}, int64(3600)).Return("t", nil)
	f.expectOutcome(constants.LoginOutcomeSuccess)

	resp, err := f.service.Login(context.Background(), "alice", "pw")

	require.NoError(t, err)
	assert.Equal(t, "t", resp.Token)
	f.validator.AssertNumberOfCalls(t, "Validate", 2)
}

func TestLoginAppService_BreakerOpenSkipsIdentityService(t *testing.T) {
	f := newLoginFixture(t)
	cb := f.executor.Breaker(constants.IdentityServiceTarget)
	for i := 0; i < 5; i++ {
		_ = cb.Execute(context.Background(), func(context.Context) error { return stderrors.New("down") })
	}
	require.Equal(t, resilience.StateOpen, cb.State())
	f.expectOutcome(constants.LoginOutcomeUnavailable)

	_, err := f.service.Login(context.Background(), "alice", "pw")

	assert.True(t, errors.Is(err, errors.ErrServiceUnavailable))
	assert.True(t, errors.Is(err, errors.ErrCallNotPermitted))
	f.validator.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginAppService_IssueFailure(t *testing.T) {
	f := newLoginFixture(t)
	f.validator.On("Validate", mock.Anything, "alice", "pw").Return(models.Authenticated("42", nil), nil)
	f.codec.On("Issue", "42", []string{}, int64(3600)).Return("", stderrors.New("signing failed"))
	f.expectOutcome(constants.LoginOutcomeError)

	_, err := f.service.Login(context.Background(), "alice", "pw")

	assert.True(t, errors.Is(err, errors.ErrUnknown))
}

func TestLoginAppService_AuditFailureDoesNotFailLogin(t *testing.T) {
	f := newLoginFixture(t)
	f.validator.On("Validate", mock.Anything, "alice", "pw").Return(models.Authenticated("42", nil), nil)
	f.codec.On("Issue", "42", []string{}, int64(3600)).Return("t", nil)
	f.metrics.On("RecordLogin", constants.LoginOutcomeSuccess, mock.Anything)
	f.audit.On("LogLoginEvent", mock.Anything, mock.Anything).Return(stderrors.New("kafka down"))

	resp, err := f.service.Login(context.Background(), "alice", "pw")

	require.NoError(t, err)
	assert.Equal(t, "t", resp.Token)
}

func TestLoginAppService_AuditCarriesRequestID(t *testing.T) {
	f := newLoginFixture(t)
	f.validator.On("Validate", mock.Anything, "alice", "pw").Return(models.Rejected(""), nil)
	f.metrics.On("RecordLogin", mock.Anything, mock.Anything)
	f.audit.On("LogLoginEvent", mock.Anything, mock.MatchedBy(func(e *models.LoginAuditEvent) bool {
		return e.RequestID == "req-9" && e.Subject == ""
	})).Return(nil).Once()

	ctx := context.WithValue(context.Background(), constants.ContextKeyRequestID, "req-9")
	_, err := f.service.Login(ctx, "alice", "pw")

	assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))
	f.audit.AssertExpectations(t)
}
