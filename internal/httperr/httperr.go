package httperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type HTTPError struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func Write(c *gin.Context, status int, code, message string) {
	c.JSON(status, HTTPError{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, code, message string) {
	Write(c, http.StatusBadRequest, code, message)
}

func NotFound(c *gin.Context, code, message string) {
	Write(c, http.StatusNotFound, code, message)
}

func Internal(c *gin.Context, code, message string) {
	Write(c, http.StatusInternalServerError, code, message)
}

func Unauthorized(c *gin.Context, code, message string) {
	Write(c, http.StatusUnauthorized, code, message)
}

func Forbidden(c *gin.Context, code, message string) {
	Write(c, http.StatusForbidden, code, message)
}

var statusByCode = map[string]int{
	ErrNotFound.Code:               http.StatusNotFound,
	ErrForbidden.Code:              http.StatusForbidden,
	ErrConcurrentUpdate.Code:       http.StatusConflict,
	ErrSlotUnavailable.Code:        http.StatusConflict,
	ErrTimeConflict.Code:           http.StatusConflict,
	ErrExternalServiceFailure.Code: http.StatusBadGateway,
	ErrInvalidInput.Code:           http.StatusBadRequest,
	ErrInvalidAmount.Code:          http.StatusBadRequest,
	ErrInvalidTransition.Code:      http.StatusUnprocessableEntity,
	ErrAppealWindowExpired.Code:    http.StatusUnprocessableEntity,
	ErrInsufficientFunds.Code:      http.StatusUnprocessableEntity,
}

// StatusFor maps an error returned by a use case to its HTTP status.
func StatusFor(err error) int {
	var be BusinessError
	if !errors.As(err, &be) {
		return http.StatusInternalServerError
	}
	if status, ok := statusByCode[be.Code]; ok {
		return status
	}
	return http.StatusBadRequest
}

// Respond writes err using the business code table. Unknown errors never
// leak their text.
func Respond(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		Internal(c, "internal_error", "internal server error")
		return
	}
	Write(c, status, Code(err), err.Error())
}
