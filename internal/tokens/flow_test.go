package tokens

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"
)

// memoryRepository is an in-memory Repository for exercising the flow
// without a database. Store is a total overwrite, which makes it the
// strictest check that the flow carries refresh tokens forward itself.
type memoryRepository struct {
	mu      sync.Mutex
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	scopes       string
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{records: make(map[string]memoryRecord), now: time.Now}
}

func (m *memoryRepository) Store(_ context.Context, userID string, tokens *TokenResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[userID] = memoryRecord{
		accessToken:  tokens.AccessToken,
		refreshToken: tokens.RefreshToken,
		expiresAt:    m.now().Add(time.Duration(tokens.ExpiresIn) * time.Second),
		scopes:       tokens.Scope,
	}
	return nil
}

func (m *memoryRepository) AccessToken(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[userID]
	if !ok {
		return "", ErrNoToken
	}
	return record.accessToken, nil
}

func (m *memoryRepository) RefreshToken(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[userID]
	if !ok || record.refreshToken == "" {
		return "", ErrNoToken
	}
	return record.refreshToken, nil
}

func (m *memoryRepository) AccessTokenExpired(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[userID]
	if !ok || record.expiresAt.IsZero() {
		return true, nil
	}
	return !record.expiresAt.After(m.now()), nil
}

func (m *memoryRepository) Forget(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, userID)
	return nil
}

// tokenEndpoint returns a test server acting as the provider's token
// endpoint and a pointer to the number of requests it served.
func tokenEndpoint(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int) {
	t.Helper()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return srv, &calls
}

func newTestFlow(repo Repository, tokenURL string) *Flow {
	return NewFlow(FlowOpts{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:3000/callback",
		TokenURL:     tokenURL,
	}, repo)
}

func TestFlowAuthorizationURL(t *testing.T) {
	flow := newTestFlow(newMemoryRepository(), "http://unused")

	t.Run("With Scopes And State", func(t *testing.T) {
		raw := flow.AuthorizationURL([]string{"user-read-private", "user-read-email"}, "xyz")

		parsed, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("failed to parse authorization URL: %v", err)
		}

		query := parsed.Query()
		if query.Get("client_id") != "client-id" {
			t.Errorf("expected client_id client-id, got %s", query.Get("client_id"))
		}
		if query.Get("response_type") != "code" {
			t.Errorf("expected response_type code, got %s", query.Get("response_type"))
		}
		if query.Get("redirect_uri") != "http://localhost:3000/callback" {
			t.Errorf("unexpected redirect_uri %s", query.Get("redirect_uri"))
		}
		if query.Get("scope") != "user-read-private user-read-email" {
			t.Errorf("expected space-joined scopes, got %q", query.Get("scope"))
		}
		if query.Get("state") != "xyz" {
			t.Errorf("expected state xyz, got %s", query.Get("state"))
		}
	})

	t.Run("Omits Empty Scope And State", func(t *testing.T) {
		raw := flow.AuthorizationURL(nil, "")

		parsed, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("failed to parse authorization URL: %v", err)
		}

		query := parsed.Query()
		if _, ok := query["scope"]; ok {
			t.Error("scope should be omitted when no scopes are requested")
		}
		if _, ok := query["state"]; ok {
			t.Error("state should be omitted when empty")
		}
	})
}

func TestFlowExchange(t *testing.T) {
	ctx := context.Background()

	t.Run("Success Stores Tokens", func(t *testing.T) {
		srv, _ := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok || username != "client-id" || password != "client-secret" {
				t.Errorf("expected basic auth client credentials, got %s:%s", username, password)
			}

			if err := r.ParseForm(); err != nil {
				t.Fatalf("failed to parse form: %v", err)
			}
			if r.PostForm.Get("grant_type") != "authorization_code" {
				t.Errorf("expected grant_type authorization_code, got %s", r.PostForm.Get("grant_type"))
			}
			if r.PostForm.Get("code") != "abc" {
				t.Errorf("expected code abc, got %s", r.PostForm.Get("code"))
			}
			if r.PostForm.Get("redirect_uri") == "" {
				t.Error("expected redirect_uri in exchange request")
			}

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"T1","token_type":"Bearer","refresh_token":"R1","expires_in":3600,"scope":"user-read-private"}`))
		})

		repo := newMemoryRepository()
		flow := newTestFlow(repo, srv.URL)

		tokens, err := flow.Exchange(ctx, "42", "abc")
		if err != nil {
			t.Fatalf("exchange failed: %v", err)
		}

		if tokens.AccessToken != "T1" {
			t.Errorf("expected access token T1, got %s", tokens.AccessToken)
		}

		accessToken, err := repo.AccessToken(ctx, "42")
		if err != nil {
			t.Fatalf("expected stored access token: %v", err)
		}
		if accessToken != "T1" {
			t.Errorf("expected stored access token T1, got %s", accessToken)
		}
	})

	t.Run("Provider Rejection", func(t *testing.T) {
		srv, _ := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid authorization code"}`))
		})

		repo := newMemoryRepository()
		flow := newTestFlow(repo, srv.URL)

		_, err := flow.Exchange(ctx, "42", "bad-code")
		if err == nil {
			t.Fatal("expected error for rejected code")
		}

		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("expected *AuthError, got %T: %v", err, err)
		}
		if authErr.Status != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", authErr.Status)
		}
		if authErr.Code != "invalid_grant" {
			t.Errorf("expected error code invalid_grant, got %s", authErr.Code)
		}

		if _, err := repo.AccessToken(ctx, "42"); err != ErrNoToken {
			t.Errorf("nothing should be stored after a failed exchange, got %v", err)
		}
	})
}

func TestFlowAccessTokenForUser(t *testing.T) {
	ctx := context.Background()

	t.Run("Fast Path Does No Network IO", func(t *testing.T) {
		srv, calls := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("token endpoint must not be called for a fresh token")
		})

		repo := newMemoryRepository()
		flow := newTestFlow(repo, srv.URL)

		if err := repo.Store(ctx, "42", &TokenResponse{AccessToken: "T1", RefreshToken: "R1", ExpiresIn: 3600}); err != nil {
			t.Fatalf("failed to seed repository: %v", err)
		}

		accessToken, err := flow.AccessTokenForUser(ctx, "42")
		if err != nil {
			t.Fatalf("failed to get access token: %v", err)
		}
		if accessToken != "T1" {
			t.Errorf("expected access token T1, got %s", accessToken)
		}
		if *calls != 0 {
			t.Errorf("expected zero token endpoint calls, got %d", *calls)
		}
	})

	t.Run("No Refresh Token Fails Without Network Call", func(t *testing.T) {
		srv, calls := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("token endpoint must not be called without a refresh token")
		})

		repo := newMemoryRepository()
		flow := newTestFlow(repo, srv.URL)

		// Expired record without a refresh token.
		now := time.Now()
		repo.now = func() time.Time { return now.Add(-2 * time.Hour) }
		if err := repo.Store(ctx, "42", &TokenResponse{AccessToken: "T1", ExpiresIn: 3600}); err != nil {
			t.Fatalf("failed to seed repository: %v", err)
		}
		repo.now = time.Now

		if _, err := flow.AccessTokenForUser(ctx, "42"); !errors.Is(err, ErrNoRefreshToken) {
			t.Errorf("expected ErrNoRefreshToken, got %v", err)
		}

		// Unknown user behaves the same.
		if _, err := flow.AccessTokenForUser(ctx, "nobody"); !errors.Is(err, ErrNoRefreshToken) {
			t.Errorf("expected ErrNoRefreshToken for unknown user, got %v", err)
		}

		if *calls != 0 {
			t.Errorf("expected zero token endpoint calls, got %d", *calls)
		}
	})

	t.Run("Expired Token Triggers Refresh", func(t *testing.T) {
		srv, calls := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				t.Fatalf("failed to parse form: %v", err)
			}
			if r.PostForm.Get("grant_type") != "refresh_token" {
				t.Errorf("expected grant_type refresh_token, got %s", r.PostForm.Get("grant_type"))
			}
			if r.PostForm.Get("refresh_token") != "R1" {
				t.Errorf("expected refresh_token R1, got %s", r.PostForm.Get("refresh_token"))
			}

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"T2","token_type":"Bearer","expires_in":3600}`))
		})

		repo := newMemoryRepository()
		flow := newTestFlow(repo, srv.URL)

		now := time.Now()
		repo.now = func() time.Time { return now }
		if err := repo.Store(ctx, "42", &TokenResponse{AccessToken: "T1", RefreshToken: "R1", ExpiresIn: 3600}); err != nil {
			t.Fatalf("failed to seed repository: %v", err)
		}

		// Advance past expiry.
		repo.now = func() time.Time { return now.Add(3601 * time.Second) }

		expired, err := repo.AccessTokenExpired(ctx, "42")
		if err != nil {
			t.Fatalf("failed to check expiry: %v", err)
		}
		if !expired {
			t.Fatal("token should be expired after 3601s")
		}

		accessToken, err := flow.AccessTokenForUser(ctx, "42")
		if err != nil {
			t.Fatalf("failed to get access token: %v", err)
		}
		if accessToken != "T2" {
			t.Errorf("expected refreshed access token T2, got %s", accessToken)
		}
		if *calls != 1 {
			t.Errorf("expected exactly one token endpoint call, got %d", *calls)
		}

		// The provider omitted refresh_token; the old one must survive.
		refreshToken, err := repo.RefreshToken(ctx, "42")
		if err != nil {
			t.Fatalf("failed to get refresh token: %v", err)
		}
		if refreshToken != "R1" {
			t.Errorf("expected refresh token R1 to be carried forward, got %s", refreshToken)
		}
	})
}

func TestFlowRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("Rotated Refresh Token Wins", func(t *testing.T) {
		srv, _ := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"T2","refresh_token":"R2","expires_in":3600}`))
		})

		repo := newMemoryRepository()
		flow := newTestFlow(repo, srv.URL)

		if err := repo.Store(ctx, "42", &TokenResponse{AccessToken: "T1", RefreshToken: "R1", ExpiresIn: 3600}); err != nil {
			t.Fatalf("failed to seed repository: %v", err)
		}

		if _, err := flow.Refresh(ctx, "42"); err != nil {
			t.Fatalf("refresh failed: %v", err)
		}

		refreshToken, _ := repo.RefreshToken(ctx, "42")
		if refreshToken != "R2" {
			t.Errorf("expected rotated refresh token R2, got %s", refreshToken)
		}
	})

	t.Run("Failure Leaves State Untouched", func(t *testing.T) {
		srv, _ := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"Refresh token revoked"}`))
		})

		repo := newMemoryRepository()
		flow := newTestFlow(repo, srv.URL)

		if err := repo.Store(ctx, "42", &TokenResponse{AccessToken: "T1", RefreshToken: "R1", ExpiresIn: 3600}); err != nil {
			t.Fatalf("failed to seed repository: %v", err)
		}

		_, err := flow.Refresh(ctx, "42")
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("expected *AuthError, got %T: %v", err, err)
		}
		if authErr.Status != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", authErr.Status)
		}

		accessToken, _ := repo.AccessToken(ctx, "42")
		if accessToken != "T1" {
			t.Errorf("stored access token must be unchanged after failed refresh, got %s", accessToken)
		}
		refreshToken, _ := repo.RefreshToken(ctx, "42")
		if refreshToken != "R1" {
			t.Errorf("stored refresh token must be unchanged after failed refresh, got %s", refreshToken)
		}
	})

	t.Run("No Refresh Token Fails Immediately", func(t *testing.T) {
		srv, calls := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("token endpoint must not be called without a refresh token")
		})

		flow := newTestFlow(newMemoryRepository(), srv.URL)

		if _, err := flow.Refresh(ctx, "42"); !errors.Is(err, ErrNoRefreshToken) {
			t.Errorf("expected ErrNoRefreshToken, got %v", err)
		}
		if *calls != 0 {
			t.Errorf("expected zero token endpoint calls, got %d", *calls)
		}
	})
}

func TestFlowForget(t *testing.T) {
	ctx := context.Background()

	repo := newMemoryRepository()
	flow := newTestFlow(repo, "http://unused")

	if err := repo.Store(ctx, "42", &TokenResponse{AccessToken: "T1", RefreshToken: "R1", ExpiresIn: 3600}); err != nil {
		t.Fatalf("failed to seed repository: %v", err)
	}

	if err := flow.Forget(ctx, "42"); err != nil {
		t.Fatalf("forget failed: %v", err)
	}

	if _, err := repo.AccessToken(ctx, "42"); err != ErrNoToken {
		t.Errorf("expected ErrNoToken after forget, got %v", err)
	}
}
