package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

// Authenticator manages the OAuth credentials for YouTube uploads: the
// client secrets installed by the user and the token obtained through the
// browser consent flow, cached on disk between runs.
type Authenticator struct {
	cfg       *oauth2.Config
	tokenPath string
	logger    *slog.Logger
}

// NewAuthenticator loads the OAuth client configuration from a Google
// client_secrets.json file. The token file may not exist yet; that just
// means the consent flow has not been run.
func NewAuthenticator(secretsPath, tokenPath string, logger *slog.Logger) (*Authenticator, error) {
	data, err := os.ReadFile(secretsPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read client secrets: %w", err)
	}
	cfg, err := google.ConfigFromJSON(data, youtube.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("cannot parse client secrets: %w", err)
	}
	return &Authenticator{cfg: cfg, tokenPath: tokenPath, logger: logger}, nil
}

// AuthURL returns the browser URL that starts the consent flow.
func (a *Authenticator) AuthURL(state string) string {
	return a.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorisation code for a token and caches it.
func (a *Authenticator) Exchange(ctx context.Context, code string) error {
	token, err := a.cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("code exchange failed: %w", err)
	}
	if err := a.saveToken(token); err != nil {
		return err
	}
	if a.logger != nil {
		a.logger.Info("youtube authorisation complete")
	}
	return nil
}

// Authenticated reports whether a cached token exists. It says nothing
// about whether the provider still honours it.
func (a *Authenticator) Authenticated() bool {
	_, err := a.loadToken()
	return err == nil
}

// HTTPClient returns an HTTP client that attaches and auto-refreshes the
// cached token.
func (a *Authenticator) HTTPClient(ctx context.Context) (*http.Client, error) {
	token, err := a.loadToken()
	if err != nil {
		return nil, ErrNotAuthenticated
	}
	return a.cfg.Client(ctx, token), nil
}

func (a *Authenticator) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(a.tokenPath)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("token cache %s is corrupt: %w", a.tokenPath, err)
	}
	return &token, nil
}

func (a *Authenticator) saveToken(token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	// The token grants upload rights to the channel; keep it private.
	if err := os.WriteFile(a.tokenPath, data, 0600); err != nil {
		return fmt.Errorf("cannot cache token: %w", err)
	}
	return nil
}
