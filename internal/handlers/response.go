package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/apperr"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/middleware"
	"github.com/HuynhHoangThai/Oncademy-sub000/internal/service"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func SuccessResponse(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func BadRequestResponse(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, APIResponse{
		Success: false,
		Message: message,
		Code:    string(apperr.KindValidation),
	})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuthorization, apperr.KindUnavailable, apperr.KindAttemptLimit:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindImport:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// ErrorResponse answers with the status of the error's kind. Internal
// failures are logged and their details kept out of the response.
func ErrorResponse(c *gin.Context, log zerolog.Logger, err error, data interface{}) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(status, APIResponse{
			Success: false,
			Message: "Internal server error",
			Code:    string(apperr.KindInternal),
		})
		return
	}

	c.JSON(status, APIResponse{
		Success: false,
		Message: apperr.Message(err),
		Data:    data,
		Code:    string(kind),
	})
}

func callerFrom(c *gin.Context) service.Caller {
	return service.Caller{
		UserID: c.GetString(middleware.ContextUserID),
		Role:   c.GetString(middleware.ContextRole),
	}
}
