package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	githubUserURL   = "https://api.github.com/user"
	githubEmailsURL = "https://api.github.com/user/emails"
)

// GithubConfig holds the GitHub OAuth application credentials.
type GithubConfig struct {
	ClientID     string `env:"GITHUB_CLIENT_ID"`
	ClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	RedirectURL  string `env:"GITHUB_REDIRECT_URL"`
}

// Enabled reports whether the provider is configured.
func (c GithubConfig) Enabled() bool { return c.ClientID != "" && c.ClientSecret != "" }

type githubProvider struct {
	config *oauth2.Config
}

// NewGithubProvider creates the GitHub OAuth provider.
func NewGithubProvider(cfg GithubConfig) Provider {
	return &githubProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
	}
}

func (p *githubProvider) Name() string { return MethodGithub }

func (p *githubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *githubProvider) Exchange(ctx context.Context, code string) (*ExternalIdentity, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("github code exchange failed: %w", err)
	}
	client := p.config.Client(ctx, tok)

	var profile struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(client, githubUserURL, &profile); err != nil {
		return nil, fmt.Errorf("github profile request failed: %w", err)
	}

	// The profile email is only set when the user made it public; the emails
	// endpoint always carries the primary verified address.
	emailAddr := profile.Email
	if emailAddr == "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := getJSON(client, githubEmailsURL, &emails); err != nil {
			return nil, fmt.Errorf("github emails request failed: %w", err)
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				emailAddr = e.Email
				break
			}
		}
	}
	if emailAddr == "" {
		return nil, fmt.Errorf("github identity carries no verified email")
	}

	name := profile.Name
	if name == "" {
		name = profile.Login
	}

	return &ExternalIdentity{
		ID:           strconv.FormatInt(profile.ID, 10),
		Name:         name,
		Email:        emailAddr,
		AvatarURL:    profile.AvatarURL,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}, nil
}

func getJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Compile-time interface assertion
var _ Provider = (*githubProvider)(nil)
