package youtube

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/episodic/pkg/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

var (
	// ErrNotConfigured is returned when client id, secret or refresh token is missing.
	ErrNotConfigured = errors.New("youtube credentials are not configured")

	// ErrMissingClient is returned when the OAuth client id or secret is missing.
	ErrMissingClient = errors.New("youtube client id and secret are required")
)

// Scopes requested for the channel.
var Scopes = []string{youtube.YoutubeUploadScope, youtube.YoutubeScope}

// OAuthConfig returns the OAuth client of the channel.
func OAuthConfig(cfg config.YouTubeConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       Scopes,
	}
}

// AuthURL returns the consent page URL that yields an offline code.
func AuthURL(cfg config.YouTubeConfig) (string, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return "", ErrMissingClient
	}

	return OAuthConfig(cfg).AuthCodeURL("episodic", oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// Exchange trades an authorization code for tokens. The refresh token is
// what YOUTUBE_REFRESH_TOKEN expects.
func Exchange(ctx context.Context, cfg config.YouTubeConfig, code string) (*oauth2.Token, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingClient
	}

	token, err := OAuthConfig(cfg).Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	return token, nil
}

func tokenSource(ctx context.Context, cfg config.YouTubeConfig) (oauth2.TokenSource, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}

	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	}

	return OAuthConfig(cfg).TokenSource(ctx, token), nil
}
