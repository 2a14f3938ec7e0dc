package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"

	"roombook/internal/config"
)

// authTransport attaches the deployment's credentials to every request:
// a bearer token in the Authorization header, or the auth_token session
// cookie. Exactly one mode is active at a time.
type authTransport struct {
	Mode      config.AuthMode
	Token     string
	Transport http.RoundTripper
}

// RoundTrip adds the credential and a stable User-Agent to each request.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", "roombook/1.0")
	if t.Token != "" {
		switch t.Mode {
		case config.AuthCookie:
			clone.AddCookie(&http.Cookie{Name: "auth_token", Value: t.Token})
		default:
			clone.Header.Set("Authorization", "Bearer "+t.Token)
		}
	}
	base := t.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}

// SaveToken persists a bearer token to the token file.
func SaveToken(path, accessToken string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(&oauth2.Token{AccessToken: accessToken})
}

// LoadToken reads a previously saved bearer token.
func LoadToken(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return "", fmt.Errorf("unable to decode token file: %w", err)
	}
	return tok.AccessToken, nil
}

// cookieFile is the on-disk shape of a saved session cookie.
type cookieFile struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SaveCookie persists the auth_token session cookie value.
func SaveCookie(path, value string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create cookie file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(cookieFile{Name: "auth_token", Value: value})
}

// LoadCookie reads a previously saved session cookie value.
func LoadCookie(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	var c cookieFile
	if err := json.NewDecoder(f).Decode(&c); err != nil {
		return "", fmt.Errorf("unable to decode cookie file: %w", err)
	}
	return c.Value, nil
}
