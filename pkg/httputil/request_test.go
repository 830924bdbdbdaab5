package httputil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		expectError bool
	}{
		{
			name:        "valid JSON",
			body:        `{"name": "test"}`,
			expectError: false,
		},
		{
			name:        "invalid JSON",
			body:        `{invalid}`,
			expectError: true,
		},
		{
			name:        "empty body",
			body:        ``,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/test", bytes.NewBufferString(tt.body))
			var dest map[string]string

			err := ParseJSON(req, &dest)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, "test", dest["name"])
			}
		})
	}
}

func TestParseJSONOrError(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", bytes.NewBufferString(`{invalid}`))
	w := httptest.NewRecorder()
	var dest map[string]string

	ok := ParseJSONOrError(w, req, &dest)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), MsgInvalidJSON)
}

func TestParsePathInt64OrError(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		want   int64
		wantOK bool
	}{
		{"valid", "42", 42, true},
		{"zero", "0", 0, false},
		{"negative", "-3", 0, false},
		{"not a number", "abc", 0, false},
		{"missing", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/goals/x", nil)
			req = mux.SetURLVars(req, map[string]string{"id": tt.id})
			w := httptest.NewRecorder()

			got, ok := ParsePathInt64OrError(w, req, "id")

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			if !ok {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest("GET", "/workouts?limit=25&offset=abc", nil)

	limit, err := ParseQueryInt(req, "limit", 10)
	assert.NoError(t, err)
	assert.Equal(t, 25, limit)

	_, err = ParseQueryInt(req, "offset", 0)
	assert.Error(t, err)

	missing, err := ParseQueryInt(req, "page", 3)
	assert.NoError(t, err)
	assert.Equal(t, 3, missing)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		trust      bool
		want       string
	}{
		{"peer only", nil, "203.0.113.9:4711", true, "203.0.113.9"},
		{"forwarded first element", map[string]string{"X-Forwarded-For": "198.51.100.7, 203.0.113.1"}, "10.0.0.2:80", true, "198.51.100.7"},
		{"forwarded private first element falls back to peer", map[string]string{"X-Forwarded-For": "10.1.1.1, 198.51.100.7"}, "10.0.0.2:80", true, "10.0.0.2"},
		{"forwarded private first element falls back to real ip", map[string]string{"X-Forwarded-For": "10.1.1.1, 198.51.100.7", "X-Real-IP": "198.51.100.8"}, "10.0.0.2:80", true, "198.51.100.8"},
		{"forwarded garbage", map[string]string{"X-Forwarded-For": "unknown"}, "10.0.0.2:80", true, "10.0.0.2"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.8"}, "10.0.0.2:80", true, "198.51.100.8"},
		{"client ip", map[string]string{"Client-IP": "198.51.100.9"}, "10.0.0.2:80", true, "198.51.100.9"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "198.51.100.7", "X-Real-IP": "198.51.100.8"}, "10.0.0.2:80", true, "198.51.100.7"},
		{"loopback header ignored", map[string]string{"X-Real-IP": "127.0.0.1"}, "10.0.0.2:80", true, "10.0.0.2"},
		{"ipv6", map[string]string{"X-Forwarded-For": "2001:db8::1"}, "10.0.0.2:80", true, "2001:db8::1"},
		{"headers not trusted", map[string]string{"X-Forwarded-For": "198.51.100.7"}, "10.0.0.2:80", false, "10.0.0.2"},
		{"peer without port", nil, "10.0.0.3", true, "10.0.0.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/auth/login", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req, tt.trust))
		})
	}
}
