package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zeusbolt/internal/types"
)

func TestJSON_WritesEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	JSON(rec, req, http.StatusOK, APIResponse{Data: map[string]string{"hello": "world"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "world", resp.Data["hello"])
}

func TestError_AppErrorMapping(t *testing.T) {
	tests := []struct {
		code       types.ErrorCode
		wantStatus int
	}{
		{types.ErrCodeValidationInvalidJSON, http.StatusBadRequest},
		{types.ErrCodeWebhookSignatureInvalid, http.StatusBadRequest},
		{types.ErrCodeAuthTokenExpired, http.StatusUnauthorized},
		{types.ErrCodeLimitProjects, http.StatusForbidden},
		{types.ErrCodeNotFoundProject, http.StatusNotFound},
		{types.ErrCodeBillingNoAccount, http.StatusConflict},
		{types.ErrCodeUpstreamStripe, http.StatusBadGateway},
		{types.ErrCodeInternalDB, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(types.WithRequestID(req.Context(), "req_1"))

			Error(rec, req, types.NewAppError(tt.code, "boom", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp APIErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, string(tt.code), resp.Error.Code)
			assert.Equal(t, "req_1", resp.Error.RequestID)
		})
	}
}

func TestError_GenericErrorDoesNotLeak(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	Error(rec, req, errors.New("pq: password authentication failed for user postgres"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrCodeInternalUnexpected), resp.Error.Code)
}

func TestError_WrappedAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	inner := types.NewAppError(types.ErrCodeNotFoundProject, "project not found", nil)
	Error(rec, req, errors.Join(errors.New("outer"), inner))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type decodeTarget struct {
	Content string `json:"content"`
}

func TestDecodeJSON_Success(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"content":"hi"}`))

	var dst decodeTarget
	require.NoError(t, DecodeJSON(rec, req, &dst))
	assert.Equal(t, "hi", dst.Content)
}

func TestDecodeJSON_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"malformed", `{"content":`},
		{"unknown field", `{"content":"hi","extra":1}`},
		{"wrong type", `{"content":42}`},
		{"multiple values", `{"content":"a"}{"content":"b"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var dst decodeTarget
			err := DecodeJSON(rec, req, &dst)
			require.Error(t, err)

			var appErr *types.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, types.ErrCodeValidationInvalidJSON, appErr.Code)
		})
	}
}

func TestDecodeJSON_OversizedBody(t *testing.T) {
	rec := httptest.NewRecorder()
	big := bytes.Repeat([]byte("a"), maxRequestBodySize+1)
	body := `{"content":"` + string(big) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dst decodeTarget
	err := DecodeJSON(rec, req, &dst)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeValidationInvalidJSON, appErr.Code)
}
