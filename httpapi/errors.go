package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pdftemplate "github.com/lvillar/pdftemplate"
)

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, pdftemplate.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pdftemplate.ErrInvalidTemplate), errors.Is(err, pdftemplate.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, pdftemplate.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, pdftemplate.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, pdftemplate.ErrMergeFailed):
		return http.StatusUnprocessableEntity
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

// fail aborts the request with the status and message of err. Internal
// errors are not echoed to the client.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	c.Error(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	abort(c, status, msg)
}

func abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
