package main

import (
	"errors"
	"net/http"

	"earnings/store"

	"github.com/gin-gonic/gin"
)

// apiError is the body of every non-2xx response.
type apiError struct {
	Error      string       `json:"error"`
	Message    string       `json:"message"`
	Details    []fieldError `json:"details,omitempty"`
	RetryAfter int          `json:"retry_after,omitempty"`
	RequestID  string       `json:"request_id,omitempty"`
}

const (
	codeValidation  = "validation_failed"
	codeNotFound    = "not_found"
	codeInternal    = "internal_error"
	codeRateLimited = "too_many_requests"
	codeUnavailable = "service_unavailable"
)

func abortWithError(c *gin.Context, status int, body apiError) {
	body.RequestID = requestID(c)
	c.AbortWithStatusJSON(status, body)
}

// abortValidation answers 422 before any storage access happens.
func abortValidation(c *gin.Context, message string, details []fieldError) {
	abortWithError(c, http.StatusUnprocessableEntity, apiError{Error: codeValidation, Message: message, Details: details})
}

func abortNotFound(c *gin.Context, message string) {
	abortWithError(c, http.StatusNotFound, apiError{Error: codeNotFound, Message: message})
}

// abortStorage reports a failed database call as a 500. The cause is logged
// with whatever Postgres detail is available and never echoed to the client.
func (s *server) abortStorage(c *gin.Context, op string, err error) {
	ev := s.log.Error().Err(err).Str("op", op).Str("request_id", requestID(c))
	if fields := store.ErrorFields(err); fields != nil {
		ev = ev.Fields(fields)
	}
	switch {
	case errors.Is(err, store.ErrSessionClosed):
		ev = ev.Str("kind", "session")
	case store.IsConstraintViolation(err):
		ev = ev.Str("kind", "constraint")
	default:
		ev = ev.Str("kind", "storage")
	}
	ev.Msg("storage operation failed")
	_ = c.Error(err)
	abortWithError(c, http.StatusInternalServerError, apiError{Error: codeInternal, Message: "could not " + op})
}
