package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"inkpost-api/models"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the uniform body of every API response.
type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Token   string      `json:"token,omitempty"`
}

// ValidationData is the data payload of a validation failure.
type ValidationData struct {
	Errors map[string]string `json:"errors"`
}

func SendSuccess(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Envelope{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	})
}

func SendCreated(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	})
}

func SendWithToken(c *gin.Context, message string, data interface{}, token string) {
	c.JSON(http.StatusOK, Envelope{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
		Token:   token,
	})
}

func SendError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{
		Status:  StatusError,
		Message: message,
	})
}

func SendValidationError(c *gin.Context, message string, fields map[string]string) {
	if message == "" {
		message = "The given data was invalid."
	}
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, Envelope{
		Status:  StatusError,
		Message: message,
		Data:    ValidationData{Errors: fields},
	})
}

// SendAppError renders err in the envelope. Anything that is not an *models.AppError, and
// internal AppErrors, are logged and replaced by a generic message.
func SendAppError(c *gin.Context, err error) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
	}

	status := StatusForCode(appErr.Code)
	if status == http.StatusInternalServerError {
		Logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err.Error(),
		)
		SendError(c, status, "An unexpected error occurred")
		return
	}
	if appErr.Code == models.CodeValidation {
		SendValidationError(c, appErr.Message, appErr.Fields)
		return
	}
	SendError(c, status, appErr.Message)
}

func StatusForCode(code string) int {
	switch code {
	case models.CodeValidation:
		return http.StatusUnprocessableEntity
	case models.CodeUnauthenticated:
		return http.StatusUnauthorized
	case models.CodeForbidden:
		return http.StatusForbidden
	case models.CodeNotFound:
		return http.StatusNotFound
	case models.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
