package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkpost-api/models"
	"inkpost-api/utils"
)

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Errors map[string]string `json:"errors"`
	} `json:"data"`
}

func serve(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/resource", handler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resource", nil))

	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w, body
}

func TestErrorHandlerRendersAttachedAppError(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) {
		_ = c.Error(models.NewNotFoundError("Post"))
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, utils.StatusError, body.Status)
	assert.Equal(t, "Post not found", body.Message)
}

func TestErrorHandlerRendersValidationFields(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) {
		_ = c.Error(models.NewFieldError("title", "The title field is required."))
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "The title field is required.", body.Data.Errors["title"])
}

func TestErrorHandlerHidesInternalErrors(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) {
		_ = c.Error(errors.New("dial tcp 10.0.0.5:3306: connection refused"))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "An unexpected error occurred", body.Message)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestErrorHandlerLeavesWrittenResponseAlone(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) {
		utils.SendSuccess(c, "done", nil)
		_ = c.Error(models.NewNotFoundError("Post"))
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "done", body.Message)
}
