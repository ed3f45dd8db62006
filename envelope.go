package apiclient

import (
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// envelopeTimeFormat matches the millisecond UTC timestamps the platform
// emits, e.g. "2024-01-01T00:00:00.000Z".
const envelopeTimeFormat = "2006-01-02T15:04:05.000Z07:00"

var errEnvelopeShape = errors.New("apiclient: response is not a valid envelope")

// Envelope is the uniform response shape every operation returns. The primary
// backend responds with this envelope for success and failure alike; standby
// responses and locally synthesized failures are wrapped into it so callers
// only ever branch on Success.
//
// Exactly one of Data and Error is populated, matching the Success flag.
// Timestamp is always set. A returned envelope is never mutated by the client
// afterwards; callers must treat it as read-only because cached reads share
// the same instance.
type Envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     *ErrorInfo      `json:"error,omitempty"`
	Meta      *PaginationMeta `json:"meta,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// ErrorInfo is the error payload of a failed envelope. Kind is a
// machine-readable discriminant; Message stays human-readable.
type ErrorInfo struct {
	Message string          `json:"message"`
	Kind    ErrorKind       `json:"kind,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}

// PaginationMeta describes the window of a list response.
type PaginationMeta struct {
	Page       int `json:"page,omitempty"`
	Limit      int `json:"limit,omitempty"`
	Total      int `json:"total,omitempty"`
	TotalPages int `json:"totalPages,omitempty"`
}

// errorDetails is the synthesized Details payload for local failures.
type errorDetails struct {
	Status   int    `json:"status,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
	Cause    string `json:"cause,omitempty"`
}

func nowTimestamp() string {
	return time.Now().UTC().Format(envelopeTimeFormat)
}

// newSuccessEnvelope wraps already-encoded data into a fresh success envelope.
func newSuccessEnvelope(data json.RawMessage, meta *PaginationMeta) *Envelope {
	return &Envelope{
		Success:   true,
		Data:      data,
		Meta:      meta,
		Timestamp: nowTimestamp(),
	}
}

// newFailureEnvelope synthesizes a failed envelope with the given kind and message.
func newFailureEnvelope(kind ErrorKind, message string, details *errorDetails) *Envelope {
	info := &ErrorInfo{
		Message: message,
		Kind:    kind,
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			info.Details = raw
		}
	}
	return &Envelope{
		Success:   false,
		Error:     info,
		Timestamp: nowTimestamp(),
	}
}

// envelopeFromClientError folds a ClientError into a failed envelope.
func envelopeFromClientError(clientErr *ClientError) *Envelope {
	details := &errorDetails{
		Status: clientErr.StatusCode,
	}
	if clientErr.Attempt > 0 {
		details.Attempts = clientErr.Attempt + 1
	}
	if clientErr.Cause != nil && clientErr.Kind != KindStandby {
		details.Cause = clientErr.Cause.Error()
	}
	if details.Status == 0 && details.Attempts == 0 && details.Cause == "" {
		details = nil
	}
	return newFailureEnvelope(clientErr.Kind, clientErr.Message, details)
}

// decodeEnvelope parses a primary-backend body and verifies the envelope
// invariants hold. A body that parses but violates the shape is rejected the
// same way as unparseable JSON.
func decodeEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if env.Success && env.Error != nil {
		return nil, errEnvelopeShape
	}
	if !env.Success && env.Error == nil {
		return nil, errEnvelopeShape
	}
	if env.Timestamp == "" {
		env.Timestamp = nowTimestamp()
	}
	return &env, nil
}

// Decode unmarshals the Data payload into v. It fails on a failed envelope so
// callers cannot accidentally read data that is not there.
func (e *Envelope) Decode(v interface{}) error {
	if e == nil {
		return fmt.Errorf("apiclient: decode on nil envelope")
	}
	if !e.Success {
		msg := "unknown error"
		if e.Error != nil {
			msg = e.Error.Message
		}
		return fmt.Errorf("apiclient: envelope reports failure: %s", msg)
	}
	if len(e.Data) == 0 {
		return fmt.Errorf("apiclient: envelope has no data")
	}
	return json.Unmarshal(e.Data, v)
}

// DecodeData unmarshals the Data payload of a successful envelope into T.
func DecodeData[T any](e *Envelope) (T, error) {
	var out T
	if err := e.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// ErrorMessage returns the error message of a failed envelope, or "" for a
// successful one.
func (e *Envelope) ErrorMessage() string {
	if e == nil || e.Error == nil {
		return ""
	}
	return e.Error.Message
}

// Kind returns the error kind of a failed envelope, or "" for a successful one.
func (e *Envelope) Kind() ErrorKind {
	if e == nil || e.Error == nil {
		return ""
	}
	return e.Error.Kind
}
