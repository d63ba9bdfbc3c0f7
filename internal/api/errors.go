package api

import (
	"afasia/therapist-portal/internal/generator"
	"afasia/therapist-portal/internal/logger"
	"afasia/therapist-portal/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondWithError maps service errors to HTTP status codes. Unknown errors are logged and
// answered with a generic 500.
func respondWithError(c *gin.Context, log *logger.Logger, err error) {
	var remoteErr *generator.RemoteAPIError

	switch {
	case errors.Is(err, service.ErrValidationFailed):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAuthenticationFailed):
		abortWithError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrExerciseAccessDenied),
		errors.Is(err, service.ErrPatientNotManaged):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrExerciseNotFound),
		errors.Is(err, service.ErrPatientNotFound),
		errors.Is(err, service.ErrTherapistNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrTherapistAlreadyExists),
		errors.Is(err, service.ErrPatientAlreadyAssigned):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.As(err, &remoteErr):
		log.Warn("remote api call failed", "endpoint", remoteErr.Endpoint, "status", remoteErr.Status, "error", remoteErr.Message)
		abortWithError(c, http.StatusBadGateway, remoteErr.Error())
	default:
		log.Error("request failed", "path", c.FullPath(), "error", err)
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
