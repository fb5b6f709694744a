package dto

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/perimeter/pkg/constants"
	"github.com/turtacn/perimeter/pkg/errors"
)

// ErrorDTO is the body of every non-2xx JSON response. It carries a stable
// code and the error's fixed description, never the underlying cause.
type ErrorDTO struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse maps err onto an HTTP status and a body. Errors outside the
// application taxonomy are reported as errors.ErrUnknown.
func ErrorResponse(err error, requestID string) (int, *ErrorDTO) {
	appErr := errors.From(err)
	return appErr.HTTPStatus(), &ErrorDTO{
		Code:      string(appErr.Code()),
		Message:   appErr.Description(),
		RequestID: requestID,
	}
}

// SendError writes err as a JSON error body and aborts the handler chain.
func SendError(c *gin.Context, err error) {
	status, body := ErrorResponse(err, c.GetHeader(constants.HeaderRequestID))
	c.AbortWithStatusJSON(status, body)
}

// SendSuccess writes data as the JSON body.
func SendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}
