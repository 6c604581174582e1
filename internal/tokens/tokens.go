package tokens

import (
	"context"
	"fmt"
)

var (
	// ErrNoToken indicates no stored credential for the user.
	ErrNoToken = fmt.Errorf("no token stored for user")

	// ErrNoRefreshToken indicates the user has no refresh token and must
	// re-authenticate through the authorization URL.
	ErrNoRefreshToken = fmt.Errorf("no refresh token available: user must re-authenticate")
)

// TokenResponse mirrors the JSON body returned by Spotify's token endpoint.
//
// RefreshToken and Scope may be empty: Spotify does not rotate the refresh
// token on every refresh response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// Repository stores one token record per user, keyed by an opaque user ID.
//
// Store is an upsert, not an append log: access token, expiry, and scopes of
// any previous record are replaced. Carrying forward an old refresh token
// when the provider omits one is the caller's job (see [Flow.Refresh]), not
// the repository's.
type Repository interface {
	// Store computes the absolute expiry from ExpiresIn and upserts the
	// record for the user.
	Store(ctx context.Context, userID string, tokens *TokenResponse) error

	// AccessToken returns the stored access token verbatim, with no
	// freshness check. Returns ErrNoToken when absent.
	AccessToken(ctx context.Context, userID string) (string, error)

	// RefreshToken returns the stored refresh token. Returns ErrNoToken
	// when no record exists or the record has no refresh token.
	RefreshToken(ctx context.Context, userID string) (string, error)

	// AccessTokenExpired reports whether the stored access token is at or
	// past its expiry. A missing record or missing expiry counts as
	// expired.
	AccessTokenExpired(ctx context.Context, userID string) (bool, error)

	// Forget deletes everything stored for the user. Forgetting an
	// unknown user is not an error.
	Forget(ctx context.Context, userID string) error
}
