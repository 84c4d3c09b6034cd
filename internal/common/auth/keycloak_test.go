package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"place-intelligence/internal/common/errors"
)

func TestKeycloakClient_TokenIsCached(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/realms/perched/protocol/openid-connect/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "intel", r.PostForm.Get("client_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":300,"token_type":"Bearer"}`))
	}))
	defer server.Close()

	kc := NewKeycloakClient(server.URL+"/", "perched", "intel", "secret")

	for i := 0; i < 3; i++ {
		tok, err := kc.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-1", tok)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestKeycloakClient_RefreshesAfterExpiry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":60}`))
	}))
	defer server.Close()

	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	kc := NewKeycloakClient(server.URL, "perched", "intel", "secret")
	kc.now = func() time.Time { return now }

	_, err := kc.Token(context.Background())
	require.NoError(t, err)

	now = now.Add(31 * time.Second) // past expires_in minus skew
	_, err = kc.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestKeycloakClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   errors.ErrorCode
	}{
		{"rejected credentials", http.StatusUnauthorized, `{}`, errors.ErrCodeUpstreamUnauthorized},
		{"server down", http.StatusServiceUnavailable, `oops`, errors.ErrCodeUpstreamUnavailable},
		{"garbage", http.StatusOK, `nope`, errors.ErrCodeUpstreamMalformed},
		{"empty token", http.StatusOK, `{"expires_in":60}`, errors.ErrCodeUpstreamMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			kc := NewKeycloakClient(server.URL, "perched", "intel", "secret")
			_, err := kc.Token(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.CodeOf(err))
		})
	}
}

func TestStaticIntegrity(t *testing.T) {
	var p IntegrityProvider = StaticIntegrity("attest")
	v, err := p.IntegrityToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "attest", v)
}
