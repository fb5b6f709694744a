// Package identity contains the HTTP client the login flow uses to reach the identity store.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/propagation"

	"github.com/turtacn/perimeter/internal/application/dto"
	"github.com/turtacn/perimeter/internal/config"
	"github.com/turtacn/perimeter/internal/domain/models"
	"github.com/turtacn/perimeter/internal/domain/service"
	"github.com/turtacn/perimeter/internal/infrastructure/monitoring"
	"github.com/turtacn/perimeter/pkg/constants"
	"github.com/turtacn/perimeter/pkg/errors"
)

// maxResponseBytes bounds how much of an identity response is read.
const maxResponseBytes = 64 << 10

// HTTPValidator implements service.IdentityValidator against the identity
// service's validate endpoint. 200 is an accepted identity, 401 a rejection;
// every other outcome is errors.ErrRemoteCallFailed so the caller may retry.
type HTTPValidator struct {
	endpoint string
	client   *http.Client
}

// NewHTTPValidator creates a validator for cfg.BaseURL + cfg.ValidatePath.
func NewHTTPValidator(cfg *config.IdentityConfig) service.IdentityValidator {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPValidator{
		endpoint: strings.TrimSuffix(cfg.BaseURL, "/") + cfg.ValidatePath,
		client:   &http.Client{Timeout: timeout},
	}
}

// Validate implements service.IdentityValidator.
func (v *HTTPValidator) Validate(ctx context.Context, username, password string) (models.IdentityResult, error) {
	body, err := json.Marshal(dto.ValidateCredentialsRequest{Username: username, Password: password})
	if err != nil {
		return models.IdentityResult{}, errors.ErrUnknown.WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.IdentityResult{}, errors.ErrRemoteCallFailed.WithMessage("failed to create request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if requestID, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok && requestID != "" {
		req.Header.Set(constants.HeaderRequestID, requestID)
	}
	monitoring.InjectTraceContext(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := v.client.Do(req)
	if err != nil {
		return models.IdentityResult{}, errors.ErrRemoteCallFailed.WithMessage("failed to send request").WithCause(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return models.IdentityResult{}, errors.ErrRemoteCallFailed.WithMessage("failed to read response").WithCause(err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var identity dto.IdentityResponse
		if err := json.Unmarshal(payload, &identity); err != nil {
			return models.IdentityResult{}, errors.ErrRemoteCallFailed.WithMessage("failed to decode response").WithCause(err)
		}
		if identity.ID == "" {
			return models.IdentityResult{}, errors.ErrRemoteCallFailed.WithMessage("identity response has no id")
		}
		return models.Authenticated(identity.ID, identity.Roles), nil
	case http.StatusUnauthorized:
		return models.Rejected("identity service rejected credentials"), nil
	default:
		return models.IdentityResult{}, errors.ErrRemoteCallFailed.WithMessage(
			fmt.Sprintf("identity service returned %d", resp.StatusCode))
	}
}
