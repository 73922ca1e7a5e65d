package resputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caredesk/caredesk/pkg/approval"
)

// Response is the uniform envelope of every endpoint.
type Response[T any] struct {
	Code ErrorCode `json:"code"`
	Data T         `json:"data"`
	Msg  string    `json:"msg"`
}

func Success[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, Response[T]{
		Code: OK,
		Data: data,
	})
}

// HTTPError responds with an explicit status code.
func HTTPError(c *gin.Context, status int, msg string, code ErrorCode) {
	c.JSON(status, Response[any]{
		Code: code,
		Msg:  msg,
	})
}

// Error is the generic server-side failure response.
func Error(c *gin.Context, msg string, code ErrorCode) {
	HTTPError(c, http.StatusInternalServerError, msg, code)
}

func BadRequestError(c *gin.Context, msg string) {
	HTTPError(c, http.StatusBadRequest, msg, InvalidRequest)
}

// WorkflowError translates the approval service's typed failures to their
// response codes; anything unrecognized becomes a 500.
func WorkflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, approval.ErrNotFound):
		HTTPError(c, http.StatusNotFound, err.Error(), RequestNotFound)
	case errors.Is(err, approval.ErrAlreadyProcessed):
		HTTPError(c, http.StatusConflict, err.Error(), RequestAlreadyProcessed)
	case errors.Is(err, approval.ErrConflict):
		HTTPError(c, http.StatusConflict, err.Error(), DuplicatePendingRequest)
	case errors.Is(err, approval.ErrForbidden):
		HTTPError(c, http.StatusForbidden, err.Error(), NotAllowed)
	case errors.Is(err, approval.ErrValidation):
		HTTPError(c, http.StatusUnprocessableEntity, err.Error(), PayloadInvalid)
	default:
		Error(c, err.Error(), NotSpecified)
	}
}
