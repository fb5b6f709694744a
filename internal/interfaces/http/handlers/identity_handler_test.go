package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/turtacn/perimeter/internal/application/dto"
	"github.com/turtacn/perimeter/pkg/errors"
)

type MockIdentityAppService struct {
	mock.Mock
}

func (m *MockIdentityAppService) ValidateCredentials(ctx context.Context, username, password string) (*dto.IdentityResponse, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.IdentityResponse), args.Error(1)
}

func (m *MockIdentityAppService) EnsureAdmin(ctx context.Context, username, email, password string, roles []string) error {
	return m.Called(ctx, username, email, password, roles).Error(0)
}

func newIdentityRouter(svc *MockIdentityAppService) *gin.Engine {
	router := gin.New()
	router.POST("/internal/users/validate", NewIdentityHandler(svc).ValidateCredentials)
	return router
}

func TestIdentityHandler_Accepted(t *testing.T) {
	svc := new(MockIdentityAppService)
	svc.On("ValidateCredentials", mock.Anything, "alice", "pw").
		Return(&dto.IdentityResponse{ID: "42", Username: "alice", Roles: []string{}}, nil)

	rr := postJSON(newIdentityRouter(svc), "/internal/users/validate", `{"username":"alice","password":"pw"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":"42","username":"alice","roles":[]}`, rr.Body.String())
}

func TestIdentityHandler_RejectedHasNoBody(t *testing.T) {
	svc := new(MockIdentityAppService)
	svc.On("ValidateCredentials", mock.Anything, "alice", "bad").Return(nil, errors.ErrInvalidCredentials)

	rr := postJSON(newIdentityRouter(svc), "/internal/users/validate", `{"username":"alice","password":"bad"}`)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestIdentityHandler_StoreFailure(t *testing.T) {
	svc := new(MockIdentityAppService)
	svc.On("ValidateCredentials", mock.Anything, "alice", "pw").Return(nil, errors.ErrServiceUnavailable)

	rr := postJSON(newIdentityRouter(svc), "/internal/users/validate", `{"username":"alice","password":"pw"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestIdentityHandler_MalformedBody(t *testing.T) {
	svc := new(MockIdentityAppService)

	rr := postJSON(newIdentityRouter(svc), "/internal/users/validate", `{"username":1}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "ValidateCredentials", mock.Anything, mock.Anything, mock.Anything)
}
