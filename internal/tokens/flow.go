package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthorizeURL = "https://accounts.spotify.com/authorize"
	spotifyTokenURL     = "https://accounts.spotify.com/api/token"
)

// AuthError is returned when Spotify rejects a code exchange or a refresh:
// bad or reused authorization code, revoked refresh token, bad client
// credentials. It carries the provider's HTTP status and decoded error body.
//
// These calls are never retried automatically. Authorization codes are
// single-use, so retrying an exchange with the same code will fail again.
type AuthError struct {
	Status      int
	Code        string
	Description string
	Body        []byte
}

func (e *AuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("spotify auth error: %s (%s), status %d", e.Code, e.Description, e.Status)
	}
	return fmt.Sprintf("spotify auth error: %s, status %d", e.Code, e.Status)
}

func newAuthError(status int, body []byte) *AuthError {
	authErr := &AuthError{Status: status, Code: "Unknown error", Body: body}

	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		authErr.Code = payload.Error
		authErr.Description = payload.ErrorDescription
	}

	return authErr
}

// FlowOpts contains configuration options for creating a [Flow].
type FlowOpts struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// AuthorizeURL and TokenURL override the Spotify account endpoints,
	// mainly for tests.
	AuthorizeURL string
	TokenURL     string

	HTTPClient *http.Client
	Logger     *log.Logger
}

// Flow owns the OAuth Authorization Code protocol for application users: it
// builds the authorization redirect URL, exchanges codes for tokens, decides
// when a refresh is needed and performs it, delegating all credential reads
// and writes to a [Repository].
//
// Safe for concurrent use. Refreshes for the same user are serialized within
// the process; the repository's upsert stays last-writer-wins across
// processes.
type Flow struct {
	clientID     string
	clientSecret string
	redirectURI  string
	authorizeURL string
	tokenURL     string
	httpClient   *http.Client
	tokens       Repository
	logger       *log.Logger

	mu       sync.Mutex
	inFlight map[string]*sync.Mutex
}

// NewFlow creates a new [Flow] backed by the given token repository.
func NewFlow(opts FlowOpts, tokens Repository) *Flow {
	if opts.AuthorizeURL == "" {
		opts.AuthorizeURL = spotifyAuthorizeURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return &Flow{
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		redirectURI:  opts.RedirectURI,
		authorizeURL: opts.AuthorizeURL,
		tokenURL:     opts.TokenURL,
		httpClient:   opts.HTTPClient,
		tokens:       tokens,
		logger:       opts.Logger,
		inFlight:     make(map[string]*sync.Mutex),
	}
}

// AuthorizationURL builds the URL to redirect the user to for consent.
//
// Pure function: no I/O, no storage access. Scope is omitted when scopes is
// empty and state is omitted when empty.
func (f *Flow) AuthorizationURL(scopes []string, state string) string {
	config := oauth2.Config{
		ClientID:    f.clientID,
		RedirectURL: f.redirectURI,
		Scopes:      scopes,
		Endpoint:    oauth2.Endpoint{AuthURL: f.authorizeURL},
	}
	return config.AuthCodeURL(state)
}

// Exchange trades a one-time authorization code for a token pair and stores
// it under userID. The stored record is only written after a fully parsed
// success response.
func (f *Flow) Exchange(ctx context.Context, userID, code string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {f.redirectURI},
	}

	tokens, err := f.postToken(ctx, form)
	if err != nil {
		return nil, err
	}

	if err := f.tokens.Store(ctx, userID, tokens); err != nil {
		return nil, err
	}

	f.logger.Debug("exchanged authorization code", "user", userID)
	return tokens, nil
}

// AccessTokenForUser returns a currently valid access token for the user.
//
// When the stored token is fresh it is returned directly with zero network
// calls. When expired, a stored refresh token is required; if none exists
// this fails immediately with [ErrNoRefreshToken], again without contacting
// the provider. Otherwise the token is refreshed and the new value returned.
func (f *Flow) AccessTokenForUser(ctx context.Context, userID string) (string, error) {
	expired, err := f.tokens.AccessTokenExpired(ctx, userID)
	if err != nil {
		return "", err
	}

	if !expired {
		return f.tokens.AccessToken(ctx, userID)
	}

	if _, err := f.tokens.RefreshToken(ctx, userID); err != nil {
		if errors.Is(err, ErrNoToken) {
			return "", ErrNoRefreshToken
		}
		return "", err
	}

	tokens, err := f.Refresh(ctx, userID)
	if err != nil {
		return "", err
	}

	return tokens.AccessToken, nil
}

// Refresh mints a new access token from the stored refresh token.
//
// Spotify may omit refresh_token from the response; the previously known
// refresh token is substituted before storing so a refresh never drops the
// ability to refresh again. On provider rejection the stored record is left
// untouched.
func (f *Flow) Refresh(ctx context.Context, userID string) (*TokenResponse, error) {
	unlock := f.lockUser(userID)
	defer unlock()

	refreshToken, err := f.tokens.RefreshToken(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return nil, ErrNoRefreshToken
		}
		return nil, err
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	tokens, err := f.postToken(ctx, form)
	if err != nil {
		return nil, err
	}

	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}

	if err := f.tokens.Store(ctx, userID, tokens); err != nil {
		return nil, err
	}

	f.logger.Debug("refreshed access token", "user", userID)
	return tokens, nil
}

// Forget removes the user's stored tokens (logout / revocation). No network call.
func (f *Flow) Forget(ctx context.Context, userID string) error {
	return f.tokens.Forget(ctx, userID)
}

// lockUser serializes refreshes per user so at most one is in flight within
// this process.
func (f *Flow) lockUser(userID string) func() {
	f.mu.Lock()
	userMu, ok := f.inFlight[userID]
	if !ok {
		userMu = &sync.Mutex{}
		f.inFlight[userID] = userMu
	}
	f.mu.Unlock()

	userMu.Lock()
	return userMu.Unlock
}

// postToken performs one POST to the token endpoint with Basic-auth client
// credentials and parses the JSON response. Non-2xx responses become
// [*AuthError].
func (f *Flow) postToken(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(f.clientID, f.clientSecret)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAuthError(resp.StatusCode, body)
	}

	var tokens TokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &tokens, nil
}
