package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/perimeter/internal/application/dto"
	"github.com/turtacn/perimeter/internal/application/service"
	"github.com/turtacn/perimeter/pkg/errors"
)

// IdentityHandler serves the identity store's internal validation endpoint.
type IdentityHandler struct {
	identityService service.IdentityAppService
}

// NewIdentityHandler creates a new IdentityHandler.
func NewIdentityHandler(identityService service.IdentityAppService) *IdentityHandler {
	return &IdentityHandler{identityService: identityService}
}

// ValidateCredentials answers 200 with the identity, or 401 with no body when
// the credentials do not match an active user.
func (h *IdentityHandler) ValidateCredentials(c *gin.Context) {
	var req dto.ValidateCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithCause(err))
		return
	}

	identity, err := h.identityService.ValidateCredentials(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, errors.ErrInvalidCredentials) {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if err != nil {
		dto.SendError(c, err)
		return
	}

	dto.SendSuccess(c, http.StatusOK, identity)
}
