// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` helper in this package) and the translation of
// service errors into status and code. Codes give clients a stable,
// machine-readable taxonomy that supplements human-readable messages.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Generic codes mirror common HTTP status semantics.
//   - Domain-specific codes name the service condition that caused them.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "not_registered",
//	  "message": "handle is not registered"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/cptrainer/internal/repo"
	"github.com/tbourn/cptrainer/internal/scheduler"
	"github.com/tbourn/cptrainer/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeInvalidHandle  = "invalid_handle"
	ErrCodeNotRegistered  = "not_registered"
	ErrCodeUnknownJob     = "unknown_job"
	ErrCodeJobFailed      = "job_failed"
	ErrCodeUpstreamFailed = "upstream_unavailable"
)

// failErr maps a service error to its status and code and aborts the request.
// Unrecognized errors are 500s.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidHandle):
		fail(c, http.StatusBadRequest, ErrCodeInvalidHandle, err.Error())
	case errors.Is(err, services.ErrNotRegistered):
		fail(c, http.StatusNotFound, ErrCodeNotRegistered, err.Error())
	case errors.Is(err, services.ErrDuplicateUser):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrCatalogUnavailable):
		fail(c, http.StatusBadGateway, ErrCodeUpstreamFailed, err.Error())
	case errors.Is(err, scheduler.ErrUnknownJob):
		fail(c, http.StatusNotFound, ErrCodeUnknownJob, err.Error())
	case errors.Is(err, repo.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "resource not found")
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
