package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	accessTokenKey  = "spotify_user_access_token_%s"
	expiresAtKey    = "spotify_user_expires_at_%s"
	refreshTokenKey = "spotify_user_refresh_token_%s"

	// The expiry marker outlives the access token key so an evaporated
	// token still reads as "expired" instead of "never issued".
	expiryGrace = 60 * time.Second

	// Spotify refresh tokens are long-lived and not tied to the access
	// token lifetime.
	refreshTokenTTL = 60 * 24 * time.Hour
)

// CacheRepository implements [Repository] backed by Redis with native
// per-key TTLs.
//
// NOT durable: a Redis flush or restart loses every record and forces full
// re-authorization for every user. Use [DatabaseRepository] when tokens must
// survive restarts.
type CacheRepository struct {
	rdb *redis.Client
	now func() time.Time
}

// NewCacheRepository creates a new [CacheRepository] with the given Redis client.
func NewCacheRepository(rdb *redis.Client) *CacheRepository {
	return &CacheRepository{rdb: rdb, now: time.Now}
}

// Store writes three independently expiring keys: the access token with
// TTL=expires_in, an expiry marker with TTL=expires_in+60s, and (when
// present) the refresh token with a long fixed TTL.
func (r *CacheRepository) Store(ctx context.Context, userID string, tokens *TokenResponse) error {
	ttl := time.Duration(tokens.ExpiresIn) * time.Second
	expiresAt := r.now().Add(ttl)

	if err := r.rdb.Set(ctx, fmt.Sprintf(accessTokenKey, userID), tokens.AccessToken, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache access token: %w", err)
	}

	if err := r.rdb.Set(ctx, fmt.Sprintf(expiresAtKey, userID), expiresAt.Format(time.RFC3339), ttl+expiryGrace).Err(); err != nil {
		return fmt.Errorf("failed to cache token expiry: %w", err)
	}

	if tokens.RefreshToken != "" {
		if err := r.rdb.Set(ctx, fmt.Sprintf(refreshTokenKey, userID), tokens.RefreshToken, refreshTokenTTL).Err(); err != nil {
			return fmt.Errorf("failed to cache refresh token: %w", err)
		}
	}

	return nil
}

// AccessToken returns the cached access token.
func (r *CacheRepository) AccessToken(ctx context.Context, userID string) (string, error) {
	token, err := r.rdb.Get(ctx, fmt.Sprintf(accessTokenKey, userID)).Result()
	if err == redis.Nil {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read access token from cache: %w", err)
	}
	return token, nil
}

// RefreshToken returns the cached refresh token.
func (r *CacheRepository) RefreshToken(ctx context.Context, userID string) (string, error) {
	token, err := r.rdb.Get(ctx, fmt.Sprintf(refreshTokenKey, userID)).Result()
	if err == redis.Nil {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read refresh token from cache: %w", err)
	}
	return token, nil
}

// AccessTokenExpired reads the expiry marker. A missing or unparseable
// marker counts as expired.
func (r *CacheRepository) AccessTokenExpired(ctx context.Context, userID string) (bool, error) {
	value, err := r.rdb.Get(ctx, fmt.Sprintf(expiresAtKey, userID)).Result()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("failed to read token expiry from cache: %w", err)
	}

	expiresAt, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return true, nil
	}

	return !expiresAt.After(r.now()), nil
}

// Forget deletes all three keys for the user. Idempotent.
func (r *CacheRepository) Forget(ctx context.Context, userID string) error {
	keys := []string{
		fmt.Sprintf(accessTokenKey, userID),
		fmt.Sprintf(expiresAtKey, userID),
		fmt.Sprintf(refreshTokenKey, userID),
	}

	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to forget tokens: %w", err)
	}

	return nil
}
