package github

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AppAuth exchanges a GitHub App's signed JWT for short-lived installation
// tokens, so the reviewer can post as the app instead of a personal token.
type AppAuth struct {
	appID          string
	installationID int64
	key            *rsa.PrivateKey
	baseURL        string
	httpc          *http.Client
}

// AppOption customizes an AppAuth.
type AppOption func(*AppAuth)

// WithAppBaseURL points the token exchange at a different API root.
func WithAppBaseURL(u string) AppOption {
	return func(a *AppAuth) {
		for len(u) > 0 && u[len(u)-1] == '/' {
			u = u[:len(u)-1]
		}
		a.baseURL = u
	}
}

// WithAppHTTPClient swaps the underlying http.Client.
func WithAppHTTPClient(h *http.Client) AppOption {
	return func(a *AppAuth) { a.httpc = h }
}

// NewAppAuth parses the app's PEM private key and prepares the exchanger.
func NewAppAuth(appID string, installationID int64, privateKeyPEM []byte, opts ...AppOption) (*AppAuth, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing app private key: %w", err)
	}

	a := &AppAuth{
		appID:          appID,
		installationID: installationID,
		key:            key,
		baseURL:        defaultBaseURL,
		httpc:          &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// appJWT signs the app-level token GitHub requires for the exchange. The
// issued-at skew and short expiry follow GitHub's documented limits.
func (a *AppAuth) appJWT(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    a.appID,
		IssuedAt:  jwt.NewNumericDate(now.Add(-30 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(9 * time.Minute)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("signing app token: %w", err)
	}
	return signed, nil
}

// InstallationToken mints an installation access token. Tokens are valid for
// about an hour; a single review run never outlives one, so there is no
// caching here.
func (a *AppAuth) InstallationToken(ctx context.Context) (string, error) {
	signed, err := a.appJWT(time.Now())
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", a.baseURL, a.installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+signed)
	req.Header.Set("Accept", acceptJSON)

	resp, err := a.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("exchanging installation token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("exchanging installation token: %s", resp.Status)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding installation token: %w", err)
	}
	if payload.Token == "" {
		return "", fmt.Errorf("installation token response is empty")
	}
	return payload.Token, nil
}
