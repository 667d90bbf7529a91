package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

// TestSecretStringRedactsString verifies that fmt-style formatting never
// exposes the raw value.
func TestSecretStringRedactsString(t *testing.T) {
	secret := SecretString("sk_live_super_secret")

	if secret.String() != "***REDACTED***" {
		t.Errorf("String() = %q, want redacted placeholder", secret.String())
	}

	formatted := fmt.Sprintf("key=%s", secret)
	if strings.Contains(formatted, "sk_live_super_secret") {
		t.Errorf("fmt.Sprintf leaked the secret: %q", formatted)
	}
	if !strings.Contains(formatted, "***REDACTED***") {
		t.Errorf("fmt.Sprintf should show the placeholder, got %q", formatted)
	}
}

// TestSecretStringRedactsJSON verifies that JSON serialization never exposes
// the raw value, including when the secret is nested in a struct.
func TestSecretStringRedactsJSON(t *testing.T) {
	payload := struct {
		APIKey SecretString `json:"api_key"`
	}{
		APIKey: SecretString("sk_live_super_secret"),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("json.Marshal returned error: %v", err)
	}

	if strings.Contains(string(data), "sk_live_super_secret") {
		t.Errorf("JSON output leaked the secret: %s", data)
	}
	if string(data) != `{"api_key":"***REDACTED***"}` {
		t.Errorf("JSON output = %s, want redacted placeholder", data)
	}
}

// TestSecretStringUnmask verifies that Unmask returns the raw plaintext.
func TestSecretStringUnmask(t *testing.T) {
	secret := SecretString("sk_live_super_secret")

	if secret.Unmask() != "sk_live_super_secret" {
		t.Errorf("Unmask() = %q, want raw value", secret.Unmask())
	}
}

// TestSecretStringEmpty verifies behavior with an empty secret.
func TestSecretStringEmpty(t *testing.T) {
	secret := SecretString("")

	if secret.Unmask() != "" {
		t.Errorf("Unmask() of empty secret = %q, want empty", secret.Unmask())
	}
	// Even an empty secret is redacted; callers cannot infer emptiness
	// from the formatted output.
	if secret.String() != "***REDACTED***" {
		t.Errorf("String() of empty secret = %q, want placeholder", secret.String())
	}
}
