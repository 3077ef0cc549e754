package oauth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dimitrije/personal-secrets/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubAPI = "https://api.github.com"

func NewGitHubProvider(cfg config.OAuthConfig) Provider {
	return &provider{
		name: "github",
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"user:email", "read:user"},
			Endpoint:     github.Endpoint,
		},
		apiBase: githubAPI,
		fetch:   fetchGitHubUser,
	}
}

func fetchGitHubUser(ctx context.Context, client *http.Client, apiBase string) (*UserInfo, error) {
	var ghUser struct {
		ID        int    `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, client, apiBase+"/user", &ghUser); err != nil {
		return nil, err
	}

	email := ghUser.Email
	if email == "" {
		var err error
		email, err = githubPrimaryEmail(ctx, client, apiBase)
		if err != nil {
			return nil, err
		}
	}

	name := ghUser.Name
	if name == "" {
		name = ghUser.Login
	}

	return &UserInfo{
		Email:     email,
		Name:      name,
		AvatarURL: ghUser.AvatarURL,
		ID:        fmt.Sprintf("%d", ghUser.ID),
	}, nil
}

// githubPrimaryEmail prefers the primary verified address, then any verified one.
func githubPrimaryEmail(ctx context.Context, client *http.Client, apiBase string) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, apiBase+"/user/emails", &emails); err != nil {
		return "", err
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}
	return "", ErrNoEmail
}
