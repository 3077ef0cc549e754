package oauth

import (
	"context"
	"net/http"

	"github.com/dimitrije/personal-secrets/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleAPI = "https://www.googleapis.com"

func NewGoogleProvider(cfg config.OAuthConfig) Provider {
	return &provider{
		name: "google",
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		apiBase: googleAPI,
		fetch:   fetchGoogleUser,
	}
}

func fetchGoogleUser(ctx context.Context, client *http.Client, apiBase string) (*UserInfo, error) {
	var gUser struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := getJSON(ctx, client, apiBase+"/oauth2/v2/userinfo", &gUser); err != nil {
		return nil, err
	}
	if !gUser.VerifiedEmail {
		return nil, ErrNoEmail
	}

	return &UserInfo{
		Email:     gUser.Email,
		Name:      gUser.Name,
		AvatarURL: gUser.Picture,
		ID:        gUser.ID,
	}, nil
}
