package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apperrors "fixflow.io/fixflow/internal/pkg/errors"
)

func runWithError(err error) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(err)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	return w
}

func TestErrorHandler_AppError(t *testing.T) {
	w := runWithError(apperrors.ErrRequestNotFound("r-404"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), apperrors.CodeRequestNotFound)
	assert.Contains(t, w.Body.String(), "r-404")
}

func TestErrorHandler_AppErrorStatusPassthrough(t *testing.T) {
	w := runWithError(apperrors.Unprocessable(apperrors.CodeInvalidTransition, "no such edge"))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), apperrors.CodeInvalidTransition)
}

func TestErrorHandler_GenericError(t *testing.T) {
	w := runWithError(errors.New("kaboom"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.NotContains(t, w.Body.String(), "kaboom")
}
