// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"place-intelligence/internal/common/errors"
)

// TokenProvider supplies the bearer token attached to outbound proxy calls.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// IntegrityProvider supplies the X-App-Integrity attestation value.
type IntegrityProvider interface {
	IntegrityToken(ctx context.Context) (string, error)
}

// KeycloakClient obtains service tokens through the client credentials flow and caches them until expiry.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
	now         func() time.Time
}

// TokenResponse holds the response from Keycloak's token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

// expirySkew renews a token slightly before Keycloak would reject it.
const expirySkew = 30 * time.Second

// NewKeycloakClient creates a new instance of KeycloakClient.
func NewKeycloakClient(baseURL, realm, clientID, clientSecret string) *KeycloakClient {
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		now:          time.Now,
	}
}

// Token returns a cached access token or fetches a new one.
func (k *KeycloakClient) Token(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.accessToken != "" && k.tokenExpiry.After(k.now()) {
		return k.accessToken, nil
	}
	if err := k.getAccessToken(ctx); err != nil {
		return "", err
	}
	return k.accessToken, nil
}

// getAccessToken fetches a new access token. Caller holds k.mu.
func (k *KeycloakClient) getAccessToken(ctx context.Context) error {
	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return errors.NewUpstreamUnavailableError("keycloak", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return errors.NewUpstreamUnavailableError("keycloak", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return errors.NewUpstreamUnauthorizedError("keycloak", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.NewUpstreamUnavailableError("keycloak",
			fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body)))
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return errors.NewUpstreamMalformedError("keycloak", err)
	}
	if tokenResp.AccessToken == "" {
		return errors.NewUpstreamMalformedError("keycloak", fmt.Errorf("empty access_token"))
	}

	ttl := time.Duration(tokenResp.ExpiresIn)*time.Second - expirySkew
	if ttl < 0 {
		ttl = 0
	}
	k.accessToken = tokenResp.AccessToken
	k.tokenExpiry = k.now().Add(ttl)

	return nil
}

// StaticIntegrity returns a fixed attestation value.
type StaticIntegrity string

func (s StaticIntegrity) IntegrityToken(context.Context) (string, error) {
	return string(s), nil
}
