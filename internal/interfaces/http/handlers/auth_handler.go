package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/perimeter/internal/application/dto"
	"github.com/turtacn/perimeter/internal/application/service"
	"github.com/turtacn/perimeter/pkg/errors"
	"github.com/turtacn/perimeter/pkg/logger"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	loginService service.LoginAppService
	logger       logger.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(loginService service.LoginAppService, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		loginService: loginService,
		logger:       log.WithComponent("auth-handler"),
	}
}

// Login godoc
// @Summary      Log in
// @Description  Exchanges a username and password for a signed bearer token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  dto.LoginResponse
// @Failure      400  {object}  dto.ErrorDTO
// @Failure      401  {object}  dto.ErrorDTO
// @Failure      503  {object}  dto.ErrorDTO
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug(c.Request.Context(), "Malformed login request", logger.Err(err))
		dto.SendError(c, errors.ErrInvalidRequest.WithCause(err))
		return
	}

	resp, err := h.loginService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		dto.SendError(c, err)
		return
	}

	dto.SendSuccess(c, http.StatusOK, resp)
}
