package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/spotauth/internal/shared"
	"github.com/desertthunder/spotauth/internal/spotify"
	"github.com/desertthunder/spotauth/internal/tokens"
	"github.com/urfave/cli/v3"
)

// userCatalog resolves a live access token for the user (refreshing when
// needed) and returns a catalog bound to it.
func (r *Runner) userCatalog(ctx context.Context, userID string) (spotify.Catalog, error) {
	if err := r.requireFlow(); err != nil {
		return spotify.Catalog{}, err
	}

	accessToken, err := r.flow.AccessTokenForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, tokens.ErrNoRefreshToken) {
			return spotify.Catalog{}, fmt.Errorf("%w: user %q must run 'spotauth auth login'", shared.ErrNotAuthenticated, userID)
		}
		return spotify.Catalog{}, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	return r.catalog.WithToken(accessToken), nil
}

// APIGet performs a direct GET against a Web API path and prints raw JSON.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path (e.g. /albums/4aawyAB9vmqN3uQ7FjRGTy)", shared.ErrMissingArgument)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	catalog, err := r.userCatalog(ctx, cmd.String("user"))
	if err != nil {
		return err
	}

	req := catalog.Request(path)
	if limit := cmd.Int("limit"); limit > 0 {
		req = req.Limit(int(limit))
	}
	if offset := cmd.Int("offset"); offset > 0 {
		req = req.Offset(int(offset))
	}
	if market := cmd.String("market"); market != "" {
		req = req.Market(market)
	}

	raw, err := req.Raw(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	return r.writeJSON(raw, cmd.Bool("pretty"))
}

// APISearch queries the Spotify catalog and prints raw JSON.
func (r *Runner) APISearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	catalog, err := r.userCatalog(ctx, cmd.String("user"))
	if err != nil {
		return err
	}

	types := strings.Split(cmd.String("type"), ",")
	req := catalog.Search(query, types...)
	if limit := cmd.Int("limit"); limit > 0 {
		req = req.Limit(int(limit))
	}

	raw, err := req.Raw(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	return r.writeJSON(raw, cmd.Bool("pretty"))
}
