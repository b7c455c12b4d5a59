package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/marketplace-backend/internal/service"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// JSONServiceError maps a service sentinel to the HTTP fault the client sees.
func JSONServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "not found"))
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "not a participant"))
	case errors.Is(err, service.ErrBlocked):
		return c.JSON(http.StatusForbidden, NewErrorResponse("blocked", "conversation is blocked"))
	case errors.Is(err, service.ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, NewErrorResponse("rate_limited", "too many requests, retry later"))
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid input"))
	case errors.Is(err, service.ErrSelfMessaging):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "cannot message yourself"))
	case errors.Is(err, service.ErrListingNotAvailable):
		return c.JSON(http.StatusConflict, NewErrorResponse("listing_not_available", "listing is not available"))
	default:
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "unexpected error"))
	}
}
