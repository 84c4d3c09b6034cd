package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"place-intelligence/internal/common/errors"
)

type echo struct {
	Name string `json:"name"`
}

func TestDoJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))

		var in echo
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(echo{Name: in.Name + "!"})
	}))
	defer server.Close()

	client := NewClient(time.Second)
	var out echo
	err := client.DoJSON(context.Background(), JSONRequest{
		Service: "test",
		Method:  http.MethodPost,
		URL:     server.URL,
		Body:    echo{Name: "hi"},
		Headers: map[string]string{"Authorization": "Bearer abc"},
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, "hi!", out.Name)
}

func TestDoJSON_ErrorCodes(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    errors.ErrorCode
	}{
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) }, errors.ErrCodeUpstreamUnauthorized},
		{"forbidden", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) }, errors.ErrCodeUpstreamUnauthorized},
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) }, errors.ErrCodeUpstreamUnavailable},
		{"malformed", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("{not json")) }, errors.ErrCodeUpstreamMalformed},
		{"slow", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{}`))
		}, errors.ErrCodeUpstreamTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(50 * time.Millisecond)
			var out echo
			err := client.DoJSON(context.Background(), JSONRequest{Service: "test", URL: server.URL}, &out)
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.CodeOf(err))
		})
	}
}

func TestDoJSON_Unreachable(t *testing.T) {
	client := NewClient(100 * time.Millisecond)
	err := client.DoJSON(context.Background(), JSONRequest{Service: "test", URL: "http://127.0.0.1:1"}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUpstreamUnavailable, errors.CodeOf(err))
}
