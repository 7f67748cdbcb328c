package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/itohio/gowheel/pkg/control"
	"github.com/itohio/gowheel/pkg/rotor"
	"github.com/itohio/gowheel/pkg/session"
)

// Response is the envelope of every REST reply.
type Response struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func failure(c *gin.Context, err error) {
	status := statusOf(err)
	c.JSON(status, Response{
		Error: &APIError{
			Code:    codeOf(status),
			Message: err.Error(),
		},
		Timestamp: time.Now(),
	})
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	var verr *control.ValidationError
	var connErr *rotor.ConnectionError
	var ioErr *rotor.IoError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, control.ErrNotConnected), errors.Is(err, control.ErrWrongMode), errors.As(err, &connErr):
		return http.StatusConflict
	case errors.Is(err, session.ErrNotStarted), errors.Is(err, rotor.ErrLinkClosed):
		return http.StatusServiceUnavailable
	case errors.As(err, &ioErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func codeOf(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	case http.StatusBadGateway:
		return "DEVICE_IO_ERROR"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}
