package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlene/kitchen-api/internal/apperr"
	"github.com/charlene/kitchen-api/internal/dto"
)

func ok(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, dto.Envelope{Success: true, Message: message, Data: data})
}

func created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, dto.Envelope{Success: true, Message: message, Data: data})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.Envelope{Success: false, Message: message})
}

// fail maps a domain error to its HTTP status exactly once. Anything
// outside the taxonomy logs as a 500 with the detail kept server-side.
func fail(c *gin.Context, log *slog.Logger, err error) {
	var (
		validationErr  *apperr.ValidationError
		conflictErr    *apperr.ConflictError
		rateErr        *apperr.RateLimitedError
		unavailableErr *apperr.ProductUnavailableError
		transitionErr  *apperr.InvalidTransitionError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, dto.Envelope{
			Success: false,
			Message: "validation failed",
			Errors:  validationErr.Messages,
		})
	case errors.As(err, &unavailableErr):
		badRequest(c, err.Error())
	case errors.As(err, &transitionErr):
		badRequest(c, err.Error())
	case errors.Is(err, apperr.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, dto.Envelope{Success: false, Message: "invalid email or password"})
	case errors.Is(err, apperr.ErrAccountDisabled):
		c.JSON(http.StatusUnauthorized, dto.Envelope{Success: false, Message: "account disabled"})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.Envelope{Success: false, Message: "resource not found"})
	case errors.As(err, &conflictErr):
		badRequest(c, err.Error())
	case errors.As(err, &rateErr):
		c.JSON(http.StatusTooManyRequests, dto.Envelope{Success: false, Message: err.Error()})
	default:
		log.Error("request failed", "path", c.FullPath(), "error", err)
		msg := "internal server error"
		// gin runs in debug mode only in development
		if gin.Mode() != gin.ReleaseMode {
			msg = err.Error()
		}
		c.JSON(http.StatusInternalServerError, dto.Envelope{Success: false, Message: msg})
	}
}
