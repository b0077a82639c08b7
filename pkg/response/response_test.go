package response

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "freshkart/pkg/errors"
)

func render(t *testing.T, fn func(c echo.Context) error) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, fn(c))

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestErrorMapsAppErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.AuthenticationRequired(), http.StatusUnauthorized, apperrors.CodeAuthenticationRequired},
		{apperrors.NotFound("Conversation", nil), http.StatusNotFound, apperrors.CodeNotFound},
		{apperrors.Transient("store down", nil), http.StatusServiceUnavailable, apperrors.CodeTransientStore},
		{stderrors.New("boom"), http.StatusInternalServerError, apperrors.CodeInternal},
		{echo.NewHTTPError(http.StatusBadRequest, "bad json"), http.StatusBadRequest, apperrors.CodeValidation},
	}
	for _, tt := range tests {
		rec, body := render(t, func(c echo.Context) error { return Error(c, tt.err) })
		assert.Equal(t, tt.status, rec.Code)
		assert.False(t, body.Success)
		require.NotNil(t, body.Error)
		assert.Equal(t, tt.code, body.Error.Code)
	}
}

func TestErrorMapsValidatorErrors(t *testing.T) {
	type req struct {
		ParticipantID string `validate:"required"`
	}
	err := validator.New().Struct(req{})

	rec, body := render(t, func(c echo.Context) error { return Error(c, err) })
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "participantid is required", body.Error.Message)
}

func TestSuccessPaginated(t *testing.T) {
	rec, body := render(t, func(c echo.Context) error {
		return SuccessPaginated(c, []string{"a", "b"}, 45, 20, 20)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["page"])
	assert.Equal(t, float64(3), data["totalPages"])
	assert.Equal(t, float64(45), data["total"])
}
