package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"tapevault/internal/media"
)

// respondError translates classified pipeline errors into HTTP responses.
// Validation failures are 400, uniqueness conflicts 409 (with the holding
// asset when known), missing assets 404, assets still processing 409,
// unsatisfiable ranges 416, and storage trouble 503.
func respondError(c echo.Context, err error) error {
	var conflict *media.ConflictError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, ConflictResponse{
			Message:    conflict.Error(),
			ExistingID: conflict.ExistingID,
		})
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Client went away; 499 is non-standard but unambiguous in logs.
		return c.NoContent(499)
	case errors.Is(err, media.ErrInvalidMediaType),
		errors.Is(err, media.ErrMissingRequiredField),
		errors.Is(err, media.ErrForbiddenField),
		errors.Is(err, media.ErrStreamRead):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	case errors.Is(err, media.ErrDuplicateContent), errors.Is(err, media.ErrDuplicateKey):
		return c.JSON(http.StatusConflict, ErrorResponse{Message: err.Error()})
	case errors.Is(err, media.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Message: err.Error()})
	case errors.Is(err, media.ErrNotReady):
		return c.JSON(http.StatusConflict, ErrorResponse{Message: err.Error()})
	case errors.Is(err, media.ErrRangeNotSatisfiable):
		return c.JSON(http.StatusRequestedRangeNotSatisfiable, ErrorResponse{Message: err.Error()})
	case errors.Is(err, media.ErrStorageFailure):
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Message: "storage is unavailable"})
	}
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "internal error"})
}
