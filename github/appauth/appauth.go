// Package appauth mints GitHub App installation tokens. The App's private
// key signs a short-lived RS256 JWT which the Apps API exchanges for an
// installation token; tokens are cached and renewed shortly before expiry.
// These are outbound API credentials for fetching, nothing more.
package appauth

import (
	"context"
	"crypto/rsa"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-github/v39/github"
	"golang.org/x/oauth2"
)

const (
	jwtLifetime   = 10 * time.Minute
	renewalMargin = time.Minute
)

type tokenSource struct {
	ctx            context.Context
	appID          int64
	installationID int64
	key            *rsa.PrivateKey

	mu    sync.Mutex
	token *oauth2.Token
}

// TokenSource returns an oauth2.TokenSource producing installation tokens
// for the given App and installation. The private key is parsed once; the
// context is used for the token exchanges this source performs later.
func TokenSource(ctx context.Context, appID, installationID int64, privateKeyPEM []byte) (oauth2.TokenSource, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse GitHub App private key: %w", err)
	}
	return &tokenSource{ctx: ctx, appID: appID, installationID: installationID, key: key}, nil
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != nil && time.Until(s.token.Expiry) > renewalMargin {
		return s.token, nil
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		// Backdated a little to absorb clock skew against GitHub.
		IssuedAt:  jwt.NewNumericDate(now.Add(-30 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(jwtLifetime)),
		Issuer:    strconv.FormatInt(s.appID, 10),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("sign GitHub App jwt: %w", err)
	}

	appJWT := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: signed})
	appClient := github.NewClient(oauth2.NewClient(s.ctx, appJWT))

	installation, _, err := appClient.Apps.CreateInstallationToken(s.ctx, s.installationID, nil)
	if err != nil {
		return nil, fmt.Errorf("create installation token: %w", err)
	}

	s.token = &oauth2.Token{
		AccessToken: installation.GetToken(),
		Expiry:      installation.GetExpiresAt(),
	}
	return s.token, nil
}
