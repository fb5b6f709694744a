// Package service provides application-level services that orchestrate domain services and infrastructure
package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/perimeter/internal/application/dto"
	"github.com/turtacn/perimeter/internal/domain/models"
	domainService "github.com/turtacn/perimeter/internal/domain/service"
	"github.com/turtacn/perimeter/internal/infrastructure/monitoring"
	"github.com/turtacn/perimeter/internal/infrastructure/resilience"
	"github.com/turtacn/perimeter/pkg/constants"
	"github.com/turtacn/perimeter/pkg/errors"
	"github.com/turtacn/perimeter/pkg/logger"
)

// LoginAppService authenticates credentials and mints tokens
type LoginAppService interface {
	// Login validates the credentials against the identity store and issues a token.
	// Failures are errors.ErrInvalidCredentials, errors.ErrServiceUnavailable or errors.ErrUnknown.
	Login(ctx context.Context, username, password string) (*dto.LoginResponse, error)
}

type loginAppServiceImpl struct {
	validator  domainService.IdentityValidator
	executor   *resilience.Executor
	codec      domainService.TokenCodec
	audit      domainService.AuditService
	metrics    domainService.Metrics
	tracer     trace.Tracer
	ttlSeconds int64
	logger     logger.Logger
}

// NewLoginAppService wires the login flow. Every identity call goes through
// executor under the constants.IdentityServiceTarget breaker.
func NewLoginAppService(
	validator domainService.IdentityValidator,
	executor *resilience.Executor,
	codec domainService.TokenCodec,
	audit domainService.AuditService,
	metrics domainService.Metrics,
	tracer trace.Tracer,
	ttlSeconds int64,
	log logger.Logger,
) LoginAppService {
	if ttlSeconds <= 0 {
		ttlSeconds = int64(constants.TokenDefaultTTL.Seconds())
	}
	return &loginAppServiceImpl{
		validator:  validator,
		executor:   executor,
		codec:      codec,
		audit:      audit,
		metrics:    metrics,
		tracer:     tracer,
		ttlSeconds: ttlSeconds,
		logger:     log.WithComponent("login"),
	}
}

// Login implements LoginAppService
func (s *loginAppServiceImpl) Login(ctx context.Context, username, password string) (*dto.LoginResponse, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "LoginAppService.Login", trace.WithAttributes(attribute.String("username", username)))
	defer span.End()

	result, err := s.validate(ctx, username, password)
	if err != nil {
		appErr := errors.ErrServiceUnavailable.WithCause(err)
		s.logger.Warn(ctx, "Identity service unavailable",
			logger.String("username", username),
			logger.Err(err),
		)
		monitoring.RecordError(ctx, appErr)
		s.finish(ctx, username, "", constants.LoginOutcomeUnavailable, start)
		return nil, appErr
	}

	if !result.IsAuthenticated() {
		s.logger.Info(ctx, "Login rejected",
			logger.String("username", username),
			logger.String("reason", result.Reason()),
		)
		s.finish(ctx, username, "", constants.LoginOutcomeInvalidCredentials, start)
		return nil, errors.ErrInvalidCredentials
	}

	identity := result.Identity()
	token, err := s.codec.Issue(identity.Subject, identity.Roles, s.ttlSeconds)
	if err != nil {
		s.logger.Error(ctx, "Failed to issue token", err, logger.String("subject", identity.Subject))
		monitoring.RecordError(ctx, err)
		s.finish(ctx, username, identity.Subject, constants.LoginOutcomeError, start)
		return nil, errors.ErrUnknown.WithCause(err)
	}

	span.SetAttributes(attribute.String("subject", identity.Subject))
	s.logger.Info(ctx, "Login succeeded",
		logger.String("username", username),
		logger.String("subject", identity.Subject),
		logger.Int("roles", len(identity.Roles)),
	)
	s.finish(ctx, username, identity.Subject, constants.LoginOutcomeSuccess, start)

	return &dto.LoginResponse{Token: token, TTLSeconds: s.ttlSeconds}, nil
}

// validate calls the identity store through the resilience layer. A rejection
// is a definitive answer and counts as a successful call for the breaker.
func (s *loginAppServiceImpl) validate(ctx context.Context, username, password string) (models.IdentityResult, error) {
	ctx, span := s.tracer.Start(ctx, "IdentityValidator.Validate")
	defer span.End()

	var result models.IdentityResult
	err := s.executor.Execute(ctx, constants.IdentityServiceTarget, func(ctx context.Context) error {
		r, err := s.validator.Validate(ctx, username, password)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		monitoring.RecordError(ctx, err)
		return models.IdentityResult{}, err
	}
	return result, nil
}

func (s *loginAppServiceImpl) finish(ctx context.Context, username, subject string, outcome constants.LoginOutcome, start time.Time) {
	s.metrics.RecordLogin(outcome, time.Since(start))

	event := models.NewLoginAuditEvent(username, outcome).WithSubject(subject)
	if requestID, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok {
		event.WithRequestID(requestID)
	}
	if err := s.audit.LogLoginEvent(ctx, event); err != nil {
		s.logger.Warn(ctx, "Failed to record login audit event", logger.Err(err))
	}
}
