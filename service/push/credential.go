package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	messagingScope = "https://www.googleapis.com/auth/firebase.messaging"
	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	credentialTTL = time.Hour
	// Cached tokens are never served this close to expiry.
	expiryMargin = 60 * time.Second
)

// ErrNoServiceAccount means the structured channel has no signing
// identity configured.
var ErrNoServiceAccount = errors.New("push: no firebase service account configured")

// SigningError wraps a failure to parse or use the service account's
// RSA private key.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("push: signing credential assertion: %v", e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// ExchangeError is a non-success response from the OAuth token
// endpoint. The body is kept for diagnostics.
type ExchangeError struct {
	Status int
	Body   string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("push: token exchange failed with status %d: %s", e.Status, e.Body)
}

// serviceAccount is the subset of a Google service-account key file the
// minter needs.
type serviceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// CredentialMinter exchanges an RS256-signed JWT assertion for a
// short-lived OAuth bearer token, caching it until shortly before
// expiry.
type CredentialMinter struct {
	accountJSON string
	tokenURL    string
	client      *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewCredentialMinter(accountJSON, tokenURL string, client *http.Client) *CredentialMinter {
	if tokenURL == "" {
		tokenURL = defaultTokenEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &CredentialMinter{
		accountJSON: accountJSON,
		tokenURL:    tokenURL,
		client:      client,
	}
}

// Mint returns a bearer token for the messaging scope and its expiry.
// A cached token is reused while it has more than a minute of life
// left; the exchange is never retried.
func (m *CredentialMinter) Mint(ctx context.Context) (string, time.Time, error) {
	if m.accountJSON == "" {
		return "", time.Time{}, ErrNoServiceAccount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && time.Now().Before(m.expires.Add(-expiryMargin)) {
		return m.token, m.expires, nil
	}

	var account serviceAccount
	if err := json.Unmarshal([]byte(m.accountJSON), &account); err != nil {
		return "", time.Time{}, &SigningError{Err: fmt.Errorf("parsing service account: %w", err)}
	}

	assertion, err := m.signAssertion(account)
	if err != nil {
		return "", time.Time{}, err
	}

	token, expires, err := m.exchange(ctx, assertion)
	if err != nil {
		return "", time.Time{}, err
	}

	m.token = token
	m.expires = expires
	return token, expires, nil
}

func (m *CredentialMinter) signAssertion(account serviceAccount) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(account.PrivateKey))
	if err != nil {
		return "", &SigningError{Err: err}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   account.ClientEmail,
		"scope": messagingScope,
		"aud":   m.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(credentialTTL).Unix(),
	}

	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", &SigningError{Err: err}
	}
	return assertion, nil
}

func (m *CredentialMinter) exchange(ctx context.Context, assertion string) (string, time.Time, error) {
	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("push: building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("push: token exchange request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", time.Time{}, &ExchangeError{Status: resp.StatusCode, Body: string(body)}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", time.Time{}, fmt.Errorf("push: decoding token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", time.Time{}, &ExchangeError{Status: resp.StatusCode, Body: "response contained no access_token"}
	}

	ttl := credentialTTL
	if payload.ExpiresIn > 0 {
		ttl = time.Duration(payload.ExpiresIn) * time.Second
	}
	return payload.AccessToken, time.Now().Add(ttl), nil
}
