package umapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"aum/internal/errors"
)

// tokenRefreshMargin refreshes tokens slightly before the server-reported
// expiry so in-flight calls never race an expiring token.
const tokenRefreshMargin = 5 * time.Minute

// tokenSource exchanges client credentials for an IMS access token and
// caches it until shortly before expiry. Safe for concurrent use; a
// refresh serializes callers behind the mutex.
type tokenSource struct {
	httpClient   *http.Client
	tokenURL     string
	clientID     string
	clientSecret string

	mu          sync.Mutex
	accessToken string
	expiry      time.Time
}

func newTokenSource(httpClient *http.Client, tokenURL, clientID, clientSecret string) *tokenSource {
	return &tokenSource{
		httpClient:   httpClient,
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// Token returns a valid access token, refreshing it if needed
func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.accessToken != "" && time.Now().Before(t.expiry.Add(-tokenRefreshMargin)) {
		return t.accessToken, nil
	}

	if err := t.refresh(ctx); err != nil {
		return "", err
	}
	return t.accessToken, nil
}

// Invalidate drops the cached token, forcing a refresh on the next call
func (t *tokenSource) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accessToken = ""
}

func (t *tokenSource) refresh(ctx context.Context) error {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {t.clientID},
		"client_secret": {t.clientSecret},
		"scope":         {"openid,AdobeID,user_management_sdk"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.WrapNetworkError(err, "POST", t.tokenURL)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return errors.WrapNetworkError(err, "POST", t.tokenURL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapNetworkError(err, "POST", t.tokenURL)
	}

	if resp.StatusCode != http.StatusOK {
		return errors.WrapHTTPError(resp.StatusCode, string(body), "POST", t.tokenURL)
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &token); err != nil {
		return errors.WrapNetworkError(err, "POST", t.tokenURL)
	}
	if token.AccessToken == "" {
		return errors.WrapHTTPError(resp.StatusCode, "token response missing access_token", "POST", t.tokenURL)
	}

	t.accessToken = token.AccessToken
	t.expiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return nil
}
