/*
Package auth keeps the accounting feed's OAuth access token fresh.

PURPOSE:
  The accounting API issues short-lived access tokens and single-use refresh
  tokens. Each refresh returns a NEW refresh token and invalidates the old
  one, so the latest refresh token must be persisted before anything else
  can use the API.

FLOW:
  1. Load the stored token. If the access token is still valid, use it.
  2. Otherwise enter TokenStore.Rotate (single writer):
     a. Re-check validity (another run may have refreshed while we waited)
     b. POST grant_type=refresh_token to the token endpoint
     c. Return the new pair; Rotate persists it before releasing the lock

SECURITY:
  Access and refresh tokens are never logged. Only the provider name and
  expiry appear in log lines.

SEE ALSO:
  - generic/store.go: TokenStore contract
  - sources/http.go: Consumes AccessToken as a TokenSource
*/
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/warp/bizops-engine/generic"
)

// RefreshTokenCredential names the seed secret in configuration.
const RefreshTokenCredential = "ACCOUNTING_REFRESH_TOKEN"

// Rotator implements sources.TokenSource over a TokenStore.
type Rotator struct {
	Provider     string
	TokenURL     string
	ClientID     string
	ClientSecret string

	// SeedRefreshToken is used only when the store holds no token yet.
	SeedRefreshToken string

	Store  generic.TokenStore
	Client *http.Client
	Now    func() time.Time
}

func NewRotator(provider, tokenURL, clientID, clientSecret, seed string, store generic.TokenStore) *Rotator {
	return &Rotator{
		Provider:         provider,
		TokenURL:         tokenURL,
		ClientID:         clientID,
		ClientSecret:     clientSecret,
		SeedRefreshToken: seed,
		Store:            store,
		Client:           &http.Client{Timeout: 30 * time.Second},
		Now:              time.Now,
	}
}

// AccessToken returns a usable access token, refreshing if needed.
func (r *Rotator) AccessToken(ctx context.Context) (string, error) {
	now := r.now()

	current, ok, err := r.Store.LoadToken(ctx, r.Provider)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	if ok && current.Valid(now) {
		return current.AccessToken, nil
	}

	next, err := r.Store.Rotate(ctx, r.Provider, func(cur generic.Token) (generic.Token, error) {
		if cur.Valid(r.now()) {
			return cur, nil
		}
		refresh := cur.RefreshToken
		if refresh == "" {
			refresh = r.SeedRefreshToken
		}
		if refresh == "" {
			return generic.Token{}, &generic.MissingCredentialError{Name: RefreshTokenCredential}
		}
		return r.refresh(ctx, refresh)
	})
	if err != nil {
		return "", err
	}
	return next.AccessToken, nil
}

// tokenResponse is the token endpoint's JSON body.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (r *Rotator) refresh(ctx context.Context, refreshToken string) (generic.Token, error) {
	if r.ClientID == "" || r.ClientSecret == "" {
		return generic.Token{}, &generic.MissingCredentialError{Name: "ACCOUNTING_CLIENT_ID/ACCOUNTING_CLIENT_SECRET"}
	}

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", r.ClientID)
	data.Set("client_secret", r.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return generic.Token{}, r.upstream(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return generic.Token{}, r.upstream(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return generic.Token{}, r.upstream(err)
	}
	if resp.StatusCode != http.StatusOK {
		return generic.Token{}, r.upstream(fmt.Errorf("token refresh failed: status %d", resp.StatusCode))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return generic.Token{}, r.upstream(fmt.Errorf("decode token response: %w", err))
	}
	if tr.AccessToken == "" {
		return generic.Token{}, r.upstream(fmt.Errorf("token response has no access_token"))
	}

	now := r.now()
	next := generic.Token{
		Provider:     r.Provider,
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    now.Add(time.Duration(tr.ExpiresIn) * time.Second),
		UpdatedAt:    now,
	}
	// Some providers omit the refresh token when it did not rotate.
	if next.RefreshToken == "" {
		next.RefreshToken = refreshToken
	}

	log.Printf("[Auth] Refreshed %s token, expires %s", r.Provider, next.ExpiresAt.Format(time.RFC3339))
	return next, nil
}

func (r *Rotator) upstream(err error) error {
	return &generic.UpstreamError{Feed: r.Provider + " token endpoint", Err: err}
}

func (r *Rotator) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
