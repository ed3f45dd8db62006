package apiclient

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

// Every envelope the client produces has Success and a timestamp, and
// exactly one of Data/Error populated consistent with Success.
func TestEnvelopeInvariant(t *testing.T) {
	success := newSuccessEnvelope(json.RawMessage(`["x"]`), nil)
	if !success.Success {
		t.Error("Expected Success=true")
	}
	if success.Error != nil {
		t.Error("A success envelope must not carry an error")
	}
	if len(success.Data) == 0 {
		t.Error("A success envelope must carry data")
	}
	if success.Timestamp == "" {
		t.Error("Timestamp must always be set")
	}

	failure := newFailureEnvelope(KindTransport, "network request failed", nil)
	if failure.Success {
		t.Error("Expected Success=false")
	}
	if failure.Error == nil {
		t.Fatal("A failure envelope must carry an error")
	}
	if len(failure.Data) != 0 {
		t.Error("A failure envelope must not carry data")
	}
	if failure.Timestamp == "" {
		t.Error("Timestamp must always be set, even on failure")
	}
	if failure.Error.Kind != KindTransport {
		t.Errorf("Expected kind %q, got %q", KindTransport, failure.Error.Kind)
	}
}

func TestEnvelopeTimestampFormat(t *testing.T) {
	env := newSuccessEnvelope(json.RawMessage(`1`), nil)
	if _, err := time.Parse(envelopeTimeFormat, env.Timestamp); err != nil {
		t.Errorf("Timestamp %q does not parse: %v", env.Timestamp, err)
	}
}

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid success", `{"success":true,"data":[1],"timestamp":"2024-01-01T00:00:00.000Z"}`, false},
		{"valid failure", `{"success":false,"error":{"message":"nope"},"timestamp":"2024-01-01T00:00:00.000Z"}`, false},
		{"missing timestamp filled in", `{"success":true,"data":[1]}`, false},
		{"not json", `<html>`, true},
		{"success with error", `{"success":true,"data":[1],"error":{"message":"x"}}`, true},
		{"failure without error", `{"success":false}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := decodeEnvelope([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Error("Expected a decode error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected decode error: %v", err)
			}
			if env.Timestamp == "" {
				t.Error("Decoded envelope must have a timestamp")
			}
		})
	}
}

func TestEnvelopeDecode(t *testing.T) {
	env := newSuccessEnvelope(json.RawMessage(`{"id":"a1","title":"Hello"}`), nil)

	var article Article
	if err := env.Decode(&article); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if article.ID != "a1" || article.Title != "Hello" {
		t.Errorf("Unexpected article: %+v", article)
	}

	failure := newFailureEnvelope(KindClient, "not found", nil)
	if err := failure.Decode(&article); err == nil {
		t.Error("Decode on a failure envelope must error")
	}

	var nilEnv *Envelope
	if err := nilEnv.Decode(&article); err == nil {
		t.Error("Decode on a nil envelope must error")
	}
}

func TestDecodeDataGeneric(t *testing.T) {
	env := newSuccessEnvelope(json.RawMessage(`["a","b"]`), nil)
	items, err := DecodeData[[]string](env)
	if err != nil {
		t.Fatalf("DecodeData failed: %v", err)
	}
	if len(items) != 2 || items[0] != "a" {
		t.Errorf("Unexpected items: %v", items)
	}
}

func TestEnvelopeFromClientError(t *testing.T) {
	clientErr := &ClientError{
		Kind:       KindServer,
		Message:    "Service Unavailable",
		StatusCode: 503,
		Attempt:    3,
		MaxRetries: 3,
	}
	env := envelopeFromClientError(clientErr)

	if env.Success {
		t.Fatal("Expected a failure envelope")
	}
	if env.ErrorMessage() != "Service Unavailable" {
		t.Errorf("Unexpected message %q", env.ErrorMessage())
	}

	var details errorDetails
	if err := json.Unmarshal(env.Error.Details, &details); err != nil {
		t.Fatalf("Details did not unmarshal: %v", err)
	}
	if details.Status != 503 {
		t.Errorf("Expected status 503 in details, got %d", details.Status)
	}
	if details.Attempts != 4 {
		t.Errorf("Expected 4 attempts in details, got %d", details.Attempts)
	}
}

// Standby failures never leak the underlying cause into the details payload.
func TestStandbyErrorDetailsRedacted(t *testing.T) {
	clientErr := &ClientError{
		Kind:    KindStandby,
		Message: standbyFailureMessage,
		Cause:   errEnvelopeShape,
	}
	env := envelopeFromClientError(clientErr)

	if len(env.Error.Details) != 0 {
		var details errorDetails
		if err := json.Unmarshal(env.Error.Details, &details); err == nil && details.Cause != "" {
			t.Errorf("Standby cause leaked into details: %q", details.Cause)
		}
	}
}

func TestErrorMessageAndKindAccessors(t *testing.T) {
	success := newSuccessEnvelope(json.RawMessage(`1`), nil)
	if success.ErrorMessage() != "" || success.Kind() != "" {
		t.Error("Accessors on a success envelope must be empty")
	}

	failure := newFailureEnvelope(KindRateLimited, "rate limit exceeded", nil)
	if failure.ErrorMessage() != "rate limit exceeded" {
		t.Errorf("Unexpected message %q", failure.ErrorMessage())
	}
	if failure.Kind() != KindRateLimited {
		t.Errorf("Unexpected kind %q", failure.Kind())
	}
}
