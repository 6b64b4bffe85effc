package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/review-service/pkg/errors"
	"github.com/utafrali/review-service/pkg/logger"
	"github.com/utafrali/review-service/pkg/validator"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, http.StatusCreated, map[string]string{"id": "r-1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decode(t, rec)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"id": "r-1"}, resp.Data)
}

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithCorrelationID(req.Context(), "corr-9"))

	appErr := apperrors.New("SELF_VOTE", "cannot vote on your own review", http.StatusForbidden, apperrors.ErrForbidden)
	WriteError(rec, req, fmt.Errorf("vote: %w", appErr), nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decode(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SELF_VOTE", resp.Error.Code)
	assert.Equal(t, "corr-9", resp.Error.RequestID)
}

func TestWriteError_SentinelMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("x: %w", apperrors.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{apperrors.ErrAlreadyExists, http.StatusConflict, "CONFLICT"},
		{fmt.Errorf("%w: bad reason", apperrors.ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT"},
		{apperrors.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err, nil)
		assert.Equal(t, tt.status, rec.Code)
		assert.Equal(t, tt.code, decode(t, rec).Error.Code)
	}
}

func TestWriteError_InternalIsLoggedAndHidden(t *testing.T) {
	var buf bytes.Buffer
	fallback := slog.New(slog.NewJSONHandler(&buf, nil))

	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/reviews/1", nil), errors.New("pq: deadlock detected"), fallback)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "deadlock")
	assert.Contains(t, buf.String(), "deadlock detected")
	assert.Contains(t, buf.String(), "/api/v1/reviews/1")
}

func TestWriteValidationError(t *testing.T) {
	type body struct {
		Rating int `json:"rating" validate:"required,gte=1,lte=5"`
	}
	err := validator.Validate(body{Rating: 9})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	WriteValidationError(rec, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "rating")

	rec = httptest.NewRecorder()
	WriteValidationError(rec, errors.New("decode request body: unexpected EOF"))
	assert.Equal(t, "INVALID_INPUT", decode(t, rec).Error.Code)
}

func TestParseUUID(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := ParseUUID(rec, "6f1c1c52-1d2b-4a53-9a47-0d5f4c6f1e10")
	assert.True(t, ok)
	assert.Equal(t, "6f1c1c52-1d2b-4a53-9a47-0d5f4c6f1e10", id)

	rec = httptest.NewRecorder()
	_, ok = ParseUUID(rec, "not-a-uuid")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", decode(t, rec).Error.Code)
}

func TestTrustedProxies_Resolve(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.10 "})
	require.NoError(t, err)

	tests := []struct {
		name    string
		proxies *TrustedProxies
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", proxies, nil, "198.51.100.7:54321", "198.51.100.7"},
		{"untrusted peer ignores forwarded", proxies, map[string]string{"X-Forwarded-For": "203.0.113.5"}, "198.51.100.7:80", "198.51.100.7"},
		{"no proxies configured", nil, map[string]string{"X-Forwarded-For": "203.0.113.5", "X-Real-IP": "203.0.113.6"}, "10.0.0.1:80", "10.0.0.1"},
		{"trusted peer uses forwarded", proxies, map[string]string{"X-Forwarded-For": "203.0.113.5"}, "10.0.0.1:80", "203.0.113.5"},
		{"spoofed left entry ignored", proxies, map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.5, 10.0.0.2"}, "10.0.0.1:80", "203.0.113.5"},
		{"single trusted address", proxies, map[string]string{"X-Forwarded-For": "203.0.113.9"}, "192.0.2.10:443", "203.0.113.9"},
		{"garbage hop stops walk", proxies, map[string]string{"X-Forwarded-For": "203.0.113.5, unknown"}, "10.0.0.1:80", "10.0.0.1"},
		{"real ip from trusted peer", proxies, map[string]string{"X-Real-IP": "192.0.2.44"}, "10.0.0.1:80", "192.0.2.44"},
		{"remote without port", proxies, nil, "192.0.2.9", "192.0.2.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, tt.proxies.Resolve(req))
		})
	}
}

func TestParseTrustedProxies_Invalid(t *testing.T) {
	_, err := ParseTrustedProxies([]string{"10.0.0.0/33"})
	assert.Error(t, err)

	_, err = ParseTrustedProxies([]string{"gateway"})
	assert.Error(t, err)
}

func TestClientIP_NeverReadsHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	assert.Equal(t, "198.51.100.7", ClientIP(req))

	req = req.WithContext(WithClientIP(req.Context(), "203.0.113.5"))
	assert.Equal(t, "203.0.113.5", ClientIP(req))
}
