package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/rent-estimator/internal/domain/rentform"
	apperrors "github.com/yanqian/rent-estimator/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// fromDomainError maps estimator error codes onto HTTP statuses.
func fromDomainError(err error) *HTTPError {
	msg := apperrors.MessageOf(err)
	switch {
	case apperrors.IsCode(err, rentform.CodeInvalidInput):
		return NewHTTPError(http.StatusBadRequest, rentform.CodeInvalidInput, msg, err)
	case apperrors.IsCode(err, rentform.CodeViewNotFound):
		return NewHTTPError(http.StatusNotFound, rentform.CodeViewNotFound, msg, err)
	case apperrors.IsCode(err, rentform.CodeInFlight):
		return NewHTTPError(http.StatusConflict, rentform.CodeInFlight, msg, err)
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal_error", "something went wrong", err)
	}
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
