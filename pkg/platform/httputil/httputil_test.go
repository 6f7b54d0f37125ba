package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "docverify/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "internal_error", body["error"])
		_, ok := body["error_description"]
		assert.False(t, ok)
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		require.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "bad_request", body["error"])
		assert.Equal(t, "invalid input", body["error_description"])
	})

	t.Run("uncoded errors are internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("connection reset"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection reset")
	})

	t.Run("invalid state maps to conflict", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInvalidState, "request already processed"))
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

type sample struct {
	Name string `json:"name"`
}

func (s *sample) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	t.Run("valid body is normalized", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"  ada "}`))
		w := httptest.NewRecorder()

		got, ok := DecodeAndPrepare[sample](w, r, nil, r.Context(), "req-1")
		require.True(t, ok)
		assert.Equal(t, "ada", got.Name)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ada","admin":true}`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[sample](w, r, nil, r.Context(), "req-1")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("validation failure writes 400", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":" "}`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[sample](w, r, nil, r.Context(), "req-1")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "name is required")
	})

	t.Run("empty body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[sample](w, r, nil, r.Context(), "req-1")
		assert.False(t, ok)
		assert.Contains(t, w.Body.String(), "request body is required")
	})
}
