package tokens

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DatabaseRepository implements [Repository] backed by SQLite.
//
// One row per user in spotify_tokens, written with an atomic upsert so
// concurrent stores for the same user never produce duplicate rows. Records
// survive process restarts.
type DatabaseRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewDatabaseRepository creates a new [DatabaseRepository] with the given database connection.
func NewDatabaseRepository(db *sql.DB) *DatabaseRepository {
	return &DatabaseRepository{db: db, now: time.Now}
}

// Store upserts the token record for the user, replacing every field of any
// previous record. expires_at is computed here from ExpiresIn; a
// client-supplied absolute expiry is never trusted.
func (r *DatabaseRepository) Store(ctx context.Context, userID string, tokens *TokenResponse) error {
	now := r.now().UTC()
	expiresAt := now.Add(time.Duration(tokens.ExpiresIn) * time.Second)

	refreshToken := sql.NullString{String: tokens.RefreshToken, Valid: tokens.RefreshToken != ""}
	scopes := sql.NullString{String: tokens.Scope, Valid: tokens.Scope != ""}

	query := `
		INSERT INTO spotify_tokens (user_id, access_token, refresh_token, expires_at, scopes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			scopes = excluded.scopes,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, userID, tokens.AccessToken, refreshToken, expiresAt, scopes, now, now)
	if err != nil {
		return fmt.Errorf("failed to store tokens: %w", err)
	}

	return nil
}

// AccessToken returns the stored access token regardless of expiry.
func (r *DatabaseRepository) AccessToken(ctx context.Context, userID string) (string, error) {
	var accessToken string

	err := r.db.QueryRowContext(ctx, "SELECT access_token FROM spotify_tokens WHERE user_id = ?", userID).Scan(&accessToken)
	if err == sql.ErrNoRows {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to query access token: %w", err)
	}

	return accessToken, nil
}

// RefreshToken returns the stored refresh token.
func (r *DatabaseRepository) RefreshToken(ctx context.Context, userID string) (string, error) {
	var refreshToken sql.NullString

	err := r.db.QueryRowContext(ctx, "SELECT refresh_token FROM spotify_tokens WHERE user_id = ?", userID).Scan(&refreshToken)
	if err == sql.ErrNoRows {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to query refresh token: %w", err)
	}

	if !refreshToken.Valid || refreshToken.String == "" {
		return "", ErrNoToken
	}

	return refreshToken.String, nil
}

// AccessTokenExpired reports true when no record exists, no expiry was
// stored, or the stored expiry is at or before the current time.
func (r *DatabaseRepository) AccessTokenExpired(ctx context.Context, userID string) (bool, error) {
	var expiresAt sql.NullTime

	err := r.db.QueryRowContext(ctx, "SELECT expires_at FROM spotify_tokens WHERE user_id = ?", userID).Scan(&expiresAt)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("failed to query token expiry: %w", err)
	}

	if !expiresAt.Valid {
		return true, nil
	}

	return !expiresAt.Time.After(r.now()), nil
}

// Forget deletes the user's token record. Deleting a non-existent record is a no-op.
func (r *DatabaseRepository) Forget(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM spotify_tokens WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to forget tokens: %w", err)
	}
	return nil
}

// StoredToken summarizes one persisted record for inventory listings.
type StoredToken struct {
	UserID          string
	HasRefreshToken bool
	ExpiresAt       time.Time
	Scopes          string
	UpdatedAt       time.Time
}

// Expired reports whether the record's access token is at or past its expiry.
func (s StoredToken) Expired(now time.Time) bool {
	return s.ExpiresAt.IsZero() || !s.ExpiresAt.After(now)
}

// List returns a summary of every stored record ordered by user ID.
//
// Not part of [Repository]: the cache backend cannot enumerate users, so
// listings are only available on the durable store.
func (r *DatabaseRepository) List(ctx context.Context) ([]StoredToken, error) {
	query := `
		SELECT user_id, refresh_token, expires_at, scopes, updated_at
		FROM spotify_tokens
		ORDER BY user_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var records []StoredToken
	for rows.Next() {
		var (
			userID       string
			refreshToken sql.NullString
			expiresAt    sql.NullTime
			scopes       sql.NullString
			updatedAt    time.Time
		)

		if err := rows.Scan(&userID, &refreshToken, &expiresAt, &scopes, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan token record: %w", err)
		}

		record := StoredToken{
			UserID:          userID,
			HasRefreshToken: refreshToken.Valid && refreshToken.String != "",
			Scopes:          scopes.String,
			UpdatedAt:       updatedAt,
		}
		if expiresAt.Valid {
			record.ExpiresAt = expiresAt.Time
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}
