package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

// TestAppErrorImplementsError verifies that *AppError satisfies the error interface.
func TestAppErrorImplementsError(t *testing.T) {
	var _ error = (*AppError)(nil)
}

// TestAppErrorErrorFormat verifies the Error() method produces "code: message".
func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeValidationInvalidStep,
		Message: "refinement step must be between 1 and 6",
	}

	expected := "validation_invalid_refinement_step: refinement step must be between 1 and 6"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

// TestAppErrorUnwrap verifies the error chain support via Unwrap.
func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("database connection failed")
	appErr := &AppError{
		Code:    ErrCodeInternalDB,
		Message: "failed to query subscriptions",
		Err:     underlying,
	}

	if appErr.Unwrap() != underlying {
		t.Errorf("Unwrap() returned unexpected error: got %v, want %v", appErr.Unwrap(), underlying)
	}
}

// TestAppErrorUnwrapNil verifies Unwrap returns nil when no underlying error exists.
func TestAppErrorUnwrapNil(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeNotFoundProject,
		Message: "project not found",
	}

	if appErr.Unwrap() != nil {
		t.Errorf("Unwrap() should return nil when Err is nil, got %v", appErr.Unwrap())
	}
}

// TestAppErrorErrorsAs verifies that errors.As can extract AppError from a chain.
func TestAppErrorErrorsAs(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeAuthTokenExpired,
		Message: "token has expired",
	}
	wrappedErr := fmt.Errorf("handler failed: %w", appErr)

	var target *AppError
	if !errors.As(wrappedErr, &target) {
		t.Fatal("errors.As should find AppError in the chain")
	}
	if target.Code != ErrCodeAuthTokenExpired {
		t.Errorf("extracted Code = %q, want %q", target.Code, ErrCodeAuthTokenExpired)
	}
}

// TestAppErrorErrorsIs verifies that errors.Is works through the AppError chain.
func TestAppErrorErrorsIs(t *testing.T) {
	sentinel := errors.New("sentinel")
	appErr := &AppError{
		Code:    ErrCodeInternalUnexpected,
		Message: "unexpected failure",
		Err:     sentinel,
	}

	if !errors.Is(appErr, sentinel) {
		t.Error("errors.Is should find the sentinel error through Unwrap")
	}
}

// TestNewAppError verifies the basic constructor.
func TestNewAppError(t *testing.T) {
	underlying := errors.New("connection refused")
	appErr := NewAppError(ErrCodeUpstreamStripe, "stripe unavailable", underlying)

	if appErr.Code != ErrCodeUpstreamStripe {
		t.Errorf("Code = %q, want %q", appErr.Code, ErrCodeUpstreamStripe)
	}
	if appErr.Message != "stripe unavailable" {
		t.Errorf("Message = %q, want %q", appErr.Message, "stripe unavailable")
	}
	if appErr.Err != underlying {
		t.Errorf("Err = %v, want %v", appErr.Err, underlying)
	}
	if appErr.Details != nil {
		t.Errorf("Details should be nil, got %v", appErr.Details)
	}
}

// TestNewAppErrorWithDetails verifies the detailed constructor.
func TestNewAppErrorWithDetails(t *testing.T) {
	details := map[string]any{
		"limit": 3,
		"count": 3,
	}
	appErr := NewAppErrorWithDetails(ErrCodeLimitProjects, "project limit reached", nil, details)

	if appErr.Details["limit"] != 3 {
		t.Errorf("Details[limit] = %v, want 3", appErr.Details["limit"])
	}
	if appErr.Details["count"] != 3 {
		t.Errorf("Details[count] = %v, want 3", appErr.Details["count"])
	}
}

// TestErrorCodeHTTPStatus verifies the prefix-based status mapping for every
// error code family.
func TestErrorCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationInvalidJSON, http.StatusBadRequest},
		{ErrCodeValidationMissingField, http.StatusBadRequest},
		{ErrCodeValidationContentLength, http.StatusBadRequest},
		{ErrCodeValidationInvalidStep, http.StatusBadRequest},
		{ErrCodeWebhookSignatureInvalid, http.StatusBadRequest},
		{ErrCodeWebhookPayloadMalformed, http.StatusBadRequest},
		{ErrCodeAuthTokenMissing, http.StatusUnauthorized},
		{ErrCodeAuthTokenInvalid, http.StatusUnauthorized},
		{ErrCodeAuthTokenExpired, http.StatusUnauthorized},
		{ErrCodeLimitProjects, http.StatusForbidden},
		{ErrCodeNotFoundProject, http.StatusNotFound},
		{ErrCodeNotFoundSubscription, http.StatusNotFound},
		{ErrCodeBillingNoAccount, http.StatusConflict},
		{ErrCodePaymentDeclined, http.StatusPaymentRequired},
		{ErrCodeUpstreamStripe, http.StatusBadGateway},
		{ErrCodeUpstreamAuth, http.StatusBadGateway},
		{ErrCodeUpstreamAI, http.StatusBadGateway},
		{ErrCodeUpstreamUnavailable, http.StatusBadGateway},
		{ErrCodeUpstreamRateLimited, http.StatusBadGateway},
		{ErrCodeInternalDB, http.StatusInternalServerError},
		{ErrCodeInternalUnexpected, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := tt.code.HTTPStatus(); got != tt.want {
			t.Errorf("HTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

// TestErrorCodeHTTPStatusUnknownCode verifies the safe default for
// unrecognized codes.
func TestErrorCodeHTTPStatusUnknownCode(t *testing.T) {
	if got := ErrorCode("something_else").HTTPStatus(); got != http.StatusInternalServerError {
		t.Errorf("HTTPStatus for unknown code = %d, want 500", got)
	}
}

// TestAppErrorHTTPStatus verifies the convenience method delegates to the code.
func TestAppErrorHTTPStatus(t *testing.T) {
	appErr := NewAppError(ErrCodeBillingNoAccount, "no billing account", nil)
	if appErr.HTTPStatus() != http.StatusConflict {
		t.Errorf("HTTPStatus() = %d, want 409", appErr.HTTPStatus())
	}
}
