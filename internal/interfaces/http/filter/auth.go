package filter

import (
	"context"
	"net/http"
	"strings"

	"github.com/turtacn/perimeter/internal/domain/service"
	"github.com/turtacn/perimeter/pkg/constants"
	"github.com/turtacn/perimeter/pkg/errors"
	"github.com/turtacn/perimeter/pkg/logger"
)

// OrderAuth runs after OrderRequestID.
const OrderAuth = -1

// AuthFilter verifies bearer tokens on every path outside the allowlist and
// forwards the token's identity as X-User-Id and X-Roles.
type AuthFilter struct {
	codec     service.TokenCodec
	allowlist []string
	logger    logger.Logger
}

// NewAuthFilter creates the filter. Allowlist entries are path prefixes
// matched on segment boundaries.
func NewAuthFilter(codec service.TokenCodec, allowlist []string, log logger.Logger) *AuthFilter {
	prefixes := make([]string, 0, len(allowlist))
	for _, p := range allowlist {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return &AuthFilter{codec: codec, allowlist: prefixes, logger: log.WithComponent("auth-filter")}
}

func (f *AuthFilter) Name() string { return "auth" }
func (f *AuthFilter) Order() int   { return OrderAuth }

func (f *AuthFilter) Apply(ctx context.Context, r Request) Outcome {
	if f.allowed(r.Path()) {
		return Forward(r)
	}

	token, ok := extractBearer(r.Header(constants.HeaderAuthorization))
	if !ok {
		f.logger.Debug(ctx, "Missing or malformed authorization header", logger.String("path", r.Path()))
		return Reject(http.StatusUnauthorized)
	}

	claims, err := f.codec.Verify(token)
	if err != nil {
		reason := "invalid"
		if errors.Is(err, errors.ErrTokenExpired) {
			reason = "expired"
		}
		f.logger.Info(ctx, "Token rejected",
			logger.String("path", r.Path()),
			logger.String("reason", reason),
		)
		return Reject(http.StatusUnauthorized)
	}

	return Forward(r.
		WithHeader(constants.HeaderUserID, claims.Subject).
		WithHeader(constants.HeaderRoles, claims.RolesHeader()))
}

func (f *AuthFilter) allowed(path string) bool {
	for _, prefix := range f.allowlist {
		if path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
			return true
		}
	}
	return false
}

// extractBearer returns the token of an "Authorization: Bearer <token>" header.
func extractBearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, constants.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
