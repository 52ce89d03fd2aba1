package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "rentalsign/pkg/domain-errors"
)

func TestToHTTPStatus(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeBadRequest:            http.StatusBadRequest,
		dErrors.CodeMissingFields:         http.StatusBadRequest,
		dErrors.CodeWebhookMalformed:      http.StatusBadRequest,
		dErrors.CodeNotFound:              http.StatusNotFound,
		dErrors.CodeFetchFailed:           http.StatusBadGateway,
		dErrors.CodeGenerationFailed:      http.StatusInternalServerError,
		dErrors.CodeSigningURLUnavailable: http.StatusInternalServerError,
		dErrors.CodeInternal:              http.StatusInternalServerError,
		dErrors.Code("made_up"):           http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), "code %s", code)
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusCreated, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"abc"}`, rr.Body.String())
}

func TestWriteError(t *testing.T) {
	t.Run("domain error carries code and description", func(t *testing.T) {
		rr := httptest.NewRecorder()
		WriteError(rr, dErrors.New(dErrors.CodeMissingFields, "signer email is required"))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "missing_fields", body["error"])
		assert.Equal(t, "signer email is required", body["error_description"])
	})

	t.Run("internal error hides detail", func(t *testing.T) {
		rr := httptest.NewRecorder()
		WriteError(rr, dErrors.Wrap(dErrors.CodeInternal, "database exploded", errors.New("pq: connection refused")))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "internal_error", body["error"])
		_, hasDetail := body["error_description"]
		assert.False(t, hasDetail)
	})

	t.Run("unknown error defaults to internal", func(t *testing.T) {
		rr := httptest.NewRecorder()
		WriteError(rr, errors.New("something raw"))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "internal_error", body["error"])
	})
}

func TestDecodeJSON(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Amal"}`))
		rr := httptest.NewRecorder()

		v, ok := DecodeJSON[payload](rr, req, logger)
		require.True(t, ok)
		assert.Equal(t, "Amal", v.Name)
	})

	t.Run("malformed body writes bad_request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{name`))
		rr := httptest.NewRecorder()

		v, ok := DecodeJSON[payload](rr, req, logger)
		assert.False(t, ok)
		assert.Nil(t, v)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
