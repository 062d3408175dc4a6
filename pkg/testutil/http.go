// Package testutil provides common test utilities for handler and integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Envelope mirrors the JSON body every endpoint writes, with data left raw so
// tests can decode it into the type they expect.
type Envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
}

// NewJSONRequest creates an HTTP request with body marshaled to JSON.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewRequest creates a simple HTTP request without a body.
func NewRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, path, nil)
}

// DoRequest executes a request against a handler and returns the recorder.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// DecodeEnvelope decodes the response envelope.
func DecodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), "failed to unmarshal envelope: %s", rr.Body.String())
	return env
}

// DecodeData decodes the envelope's data member into T.
func DecodeData[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	env := DecodeEnvelope(t, rr)
	require.True(t, env.Success, "expected success envelope, got %s", rr.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), "failed to unmarshal data")
	return out
}

// AssertStatus asserts the response status code matches expected.
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, rr.Code, "unexpected status code: %s", rr.Body.String())
}

// AssertStatusAndError asserts both status code and error code.
func AssertStatusAndError(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus int, expectedCode string) {
	t.Helper()
	AssertStatus(t, rr, expectedStatus)
	env := DecodeEnvelope(t, rr)
	assert.False(t, env.Success)
	assert.Equal(t, expectedCode, env.Error, "unexpected error code")
}

// AssertFieldError asserts the failure envelope names field.
func AssertFieldError(t *testing.T, rr *httptest.ResponseRecorder, field string) {
	t.Helper()
	env := DecodeEnvelope(t, rr)
	assert.Contains(t, env.Errors, field, "expected field error for %q", field)
}
