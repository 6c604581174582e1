package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/spotauth/internal/shared"
	"github.com/urfave/cli/v3"
)

// TokensList prints a summary of every stored token record.
//
// Only available on the database backend; Redis cannot enumerate users.
func (r *Runner) TokensList(ctx context.Context, cmd *cli.Command) error {
	if r.dbRepo == nil {
		return fmt.Errorf("%w: token listing requires tokens.repository = \"database\"", shared.ErrInvalidConfig)
	}

	records, err := r.dbRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tokens: %w", err)
	}

	if cmd.Bool("json") {
		type record struct {
			UserID          string    `json:"user_id"`
			HasRefreshToken bool      `json:"has_refresh_token"`
			Expired         bool      `json:"expired"`
			ExpiresAt       time.Time `json:"expires_at"`
			Scopes          string    `json:"scopes,omitempty"`
			UpdatedAt       time.Time `json:"updated_at"`
		}

		now := time.Now()
		out := make([]record, len(records))
		for i, stored := range records {
			out[i] = record{
				UserID:          stored.UserID,
				HasRefreshToken: stored.HasRefreshToken,
				Expired:         stored.Expired(now),
				ExpiresAt:       stored.ExpiresAt,
				Scopes:          stored.Scopes,
				UpdatedAt:       stored.UpdatedAt,
			}
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	if len(records) == 0 {
		return r.writePlain("No tokens stored. Run 'spotauth auth login' first.\n")
	}

	r.writePlainHeader(fmt.Sprintf("Stored tokens (%d)", len(records)))

	now := time.Now()
	for _, stored := range records {
		r.writePlain("%s\n", stored.UserID)
		if stored.Expired(now) {
			r.writePlain("  Access token: ✗ expired\n")
		} else {
			r.writePlain("  Access token: ✓ live, expires %s\n", stored.ExpiresAt.Local().Format(time.RFC822))
		}
		if stored.HasRefreshToken {
			r.writePlain("  Refresh token: ✓ stored\n")
		} else {
			r.writePlain("  Refresh token: ✗ missing\n")
		}
		if stored.Scopes != "" {
			r.writePlain("  Scopes: %s\n", stored.Scopes)
		}
	}

	return nil
}
