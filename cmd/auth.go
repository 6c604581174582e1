package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/spotauth/internal/server"
	"github.com/desertthunder/spotauth/internal/shared"
	"github.com/desertthunder/spotauth/internal/tokens"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the OAuth2 authorization code flow with a local callback server.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireFlow(); err != nil {
		return err
	}

	userID := cmd.String("user")
	scopes := cmd.StringSlice("scope")

	result, err := r.doOAuth(ctx, userID, scopes, cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	r.logger.Infof("authorization complete for user %v", userID)

	r.writePlain("✓ Authorization successful\n")
	r.writePlain("  User: %s\n", userID)
	if result.Scope != "" {
		r.writePlain("  Scopes: %s\n", result.Scope)
	}
	r.writePlain("  Access token expires in %ds\n", result.ExpiresIn)
	if result.RefreshToken == "" {
		r.writePlainln("⚠ No refresh token granted; the session cannot be renewed automatically.")
	}

	return nil
}

// AuthStatus reports the stored token state for a user.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireFlow(); err != nil {
		return err
	}

	userID := cmd.String("user")

	expired, err := r.repo.AccessTokenExpired(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check token state: %w", err)
	}

	hasRefresh := true
	if _, err := r.repo.RefreshToken(ctx, userID); err != nil {
		if !errors.Is(err, tokens.ErrNoToken) {
			return fmt.Errorf("failed to check refresh token: %w", err)
		}
		hasRefresh = false
	}

	if !hasRefresh && expired {
		if _, err := r.repo.AccessToken(ctx, userID); errors.Is(err, tokens.ErrNoToken) {
			return fmt.Errorf("%w: no tokens stored for user %q, run 'spotauth auth login'", shared.ErrNotAuthenticated, userID)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"user":              userID,
			"access_token_live": !expired,
			"has_refresh_token": hasRefresh,
		}, true)
	}

	r.writePlain("User: %s\n", userID)
	if expired {
		r.writePlain("Access token: ✗ expired\n")
	} else {
		r.writePlain("Access token: ✓ live\n")
	}
	if hasRefresh {
		r.writePlain("Refresh token: ✓ stored\n")
	} else {
		r.writePlain("Refresh token: ✗ missing\n")
	}

	if !cmd.Bool("verify") {
		return nil
	}

	accessToken, err := r.flow.AccessTokenForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	var profile struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
		Product     string `json:"product"`
	}
	if err := r.catalog.WithToken(accessToken).Me().Do(ctx, &profile); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	r.writePlain("Verified: ✓ authenticated as %s (%s)\n", profile.DisplayName, profile.ID)
	return nil
}

// AuthRefresh forces a token refresh regardless of the stored expiry.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireFlow(); err != nil {
		return err
	}

	userID := cmd.String("user")

	refreshed, err := r.flow.Refresh(ctx, userID)
	if err != nil {
		if errors.Is(err, tokens.ErrNoRefreshToken) {
			return fmt.Errorf("%w: no refresh token for user %q, run 'spotauth auth login'", shared.ErrNotAuthenticated, userID)
		}
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	r.logger.Infof("refreshed token for user %v", userID)

	r.writePlain("✓ Token refreshed\n")
	r.writePlain("  User: %s\n", userID)
	r.writePlain("  Access token expires in %ds\n", refreshed.ExpiresIn)
	return nil
}

// AuthLogout forgets all stored tokens for a user.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireFlow(); err != nil {
		return err
	}

	userID := cmd.String("user")

	if err := r.flow.Forget(ctx, userID); err != nil {
		return fmt.Errorf("failed to forget tokens: %w", err)
	}

	r.logger.Infof("forgot tokens for user %v", userID)
	return r.writePlain("✓ Logged out %s\n", userID)
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server.
func (r *Runner) doOAuth(ctx context.Context, userID string, scopes []string, noBrowser bool) (*tokens.TokenResponse, error) {
	logger := shared.WithLogger(r.logger, "user", userID)

	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := r.flow.AuthorizationURL(scopes, state)
	oauthHandler := server.NewOAuthHandler(r.flow, userID, state)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Infof("starting OAuth callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	if noBrowser {
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	} else {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
		}
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Tokens == nil {
		return nil, fmt.Errorf("no tokens received")
	}

	return result.Tokens, nil
}
