package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type oauthPasswordTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// FetchOAuthPasswordToken runs the OAuth2 password flow against tokenURL,
// which may be relative to baseURL.
func FetchOAuthPasswordToken(ctx context.Context, client *http.Client, baseURL, tokenURL, username, password, scope string) (accessToken string, tokenType string, err error) {
	full := tokenURL
	if u, perr := url.Parse(tokenURL); perr == nil && !u.IsAbs() {
		base, berr := url.Parse(strings.TrimRight(baseURL, "/") + "/")
		if berr == nil {
			full = base.ResolveReference(u).String()
		}
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)
	if strings.TrimSpace(scope) != "" {
		form.Set("scope", strings.TrimSpace(scope))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, full, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", MimeURLEncoded)
	req.Header.Set("Accept", MimeJSON)

	if client == nil {
		client = NewClient(DefaultTimeout)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("token request failed: %s", resp.Status)
	}

	var tr oauthPasswordTokenResponse
	if err := json.Unmarshal(b, &tr); err != nil {
		return "", "", fmt.Errorf("token response not json: %w", err)
	}
	if strings.TrimSpace(tr.AccessToken) == "" {
		return "", "", fmt.Errorf("token response missing access_token")
	}

	tt := strings.TrimSpace(tr.TokenType)
	if tt == "" || strings.EqualFold(tt, "bearer") {
		tt = "Bearer"
	}
	return tr.AccessToken, tt, nil
}
