package oidc

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/mealbox/mealbox/internal/config"
	"github.com/mealbox/mealbox/internal/models"
	"golang.org/x/oauth2"
)

// Client wraps the identity provider: endpoint descriptors, the PKCE
// authorization-code exchange and the userinfo call.
type Client struct {
	provider *oidc.Provider
	oauth    *oauth2.Config
	audience string
}

// Endpoints returns the static descriptors for a provider hosted at issuer.
func Endpoints(issuer string) *oidc.ProviderConfig {
	base := strings.TrimRight(issuer, "/")
	return &oidc.ProviderConfig{
		IssuerURL:   base + "/",
		AuthURL:     base + "/authorize",
		TokenURL:    base + "/oauth/token",
		UserInfoURL: base + "/userinfo",
		JWKSURL:     base + "/.well-known/jwks.json",
	}
}

// NewClient builds a client from static endpoint descriptors, or from the
// issuer's discovery document when cfg.Discover is set.
func NewClient(ctx context.Context, cfg config.OAuthConfig) (*Client, error) {
	issuer := cfg.Issuer()
	if issuer == "" || cfg.ClientID == "" {
		return nil, fmt.Errorf("oauth domain and client id are required")
	}
	var provider *oidc.Provider
	if cfg.Discover {
		p, err := oidc.NewProvider(ctx, issuer)
		if err != nil {
			return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
		}
		provider = p
	} else {
		provider = Endpoints(issuer).NewProvider(ctx)
	}
	endpoint := provider.Endpoint()
	// a single POST per exchange: no auth-style probing
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}
	return &Client{
		provider: provider,
		audience: cfg.Audience,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
		},
	}, nil
}

// AuthCodeURL builds the authorization request URL carrying the S256
// challenge derived from verifier.
func (c *Client) AuthCodeURL(state, verifier string) string {
	opts := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}
	if c.audience != "" {
		opts = append(opts, oauth2.SetAuthURLParam("audience", c.audience))
	}
	return c.oauth.AuthCodeURL(state, opts...)
}

// Exchange redeems an authorization code together with its PKCE verifier.
func (c *Client) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	return c.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
}

// Refresh redeems a refresh token for a new token set.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
}

// UserInfo fetches the identity profile authenticated with accessToken.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*models.Profile, error) {
	info, err := c.provider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))
	if err != nil {
		return nil, err
	}
	var extra struct {
		Name    string `json:"name"`
		Picture string `json:"picture"`
		Locale  string `json:"locale"`
	}
	if err := info.Claims(&extra); err != nil {
		return nil, fmt.Errorf("decode userinfo claims: %w", err)
	}
	return &models.Profile{
		Sub:           info.Subject,
		Name:          extra.Name,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		Picture:       extra.Picture,
		Locale:        extra.Locale,
	}, nil
}
