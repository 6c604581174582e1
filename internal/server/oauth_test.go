package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/spotauth/internal/tokens"
)

// fakeRepository is a minimal in-memory token repository for callback tests.
type fakeRepository struct {
	mu      sync.Mutex
	records map[string]*tokens.TokenResponse
}

func (f *fakeRepository) Store(_ context.Context, userID string, t *tokens.TokenResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[userID] = t
	return nil
}

func (f *fakeRepository) AccessToken(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[userID]
	if !ok {
		return "", tokens.ErrNoToken
	}
	return record.AccessToken, nil
}

func (f *fakeRepository) RefreshToken(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[userID]
	if !ok || record.RefreshToken == "" {
		return "", tokens.ErrNoToken
	}
	return record.RefreshToken, nil
}

func (f *fakeRepository) AccessTokenExpired(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[userID]
	return !ok, nil
}

func (f *fakeRepository) Forget(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, userID)
	return nil
}

func setupCallback(t *testing.T, tokenResponse string) (*OAuthHandler, tokens.Repository) {
	t.Helper()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(tokenResponse))
	}))
	t.Cleanup(tokenSrv.Close)

	repo := &fakeRepository{records: make(map[string]*tokens.TokenResponse)}
	flow := tokens.NewFlow(tokens.FlowOpts{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:3000/callback",
		TokenURL:     tokenSrv.URL,
	}, repo)

	return NewOAuthHandler(flow, "42", "expected-state"), repo
}

func TestOAuthHandler(t *testing.T) {
	t.Run("Successful Callback Stores Tokens", func(t *testing.T) {
		handler, repo := setupCallback(t, `{"access_token":"T1","refresh_token":"R1","expires_in":3600}`)

		req := httptest.NewRequest(http.MethodGet, "/callback?code=abc&state=expected-state", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "Authorization Successful") {
			t.Error("expected success page in response body")
		}

		result := <-handler.Result()
		if result.Error() != nil {
			t.Fatalf("unexpected result error: %v", result.Error())
		}
		if result.Tokens.AccessToken != "T1" {
			t.Errorf("expected access token T1, got %s", result.Tokens.AccessToken)
		}

		accessToken, err := repo.AccessToken(context.Background(), "42")
		if err != nil {
			t.Fatalf("tokens should be stored before the result fires: %v", err)
		}
		if accessToken != "T1" {
			t.Errorf("expected stored access token T1, got %s", accessToken)
		}
	})

	t.Run("Invalid State", func(t *testing.T) {
		handler, _ := setupCallback(t, `{}`)

		req := httptest.NewRequest(http.MethodGet, "/callback?code=abc&state=forged", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		result := <-handler.Result()
		if result.Error() == nil {
			t.Error("expected result error for forged state")
		}
	})

	t.Run("Provider Denied Authorization", func(t *testing.T) {
		handler, _ := setupCallback(t, `{}`)

		req := httptest.NewRequest(http.MethodGet, "/callback?error=access_denied&error_description=User+declined&state=expected-state", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		result := <-handler.Result()
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected access_denied in result error, got %v", result.Error())
		}
	})

	t.Run("Second Callback Rejected", func(t *testing.T) {
		handler, _ := setupCallback(t, `{"access_token":"T1","expires_in":3600}`)

		first := httptest.NewRecorder()
		handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/callback?code=abc&state=expected-state", nil))
		if first.Code != http.StatusOK {
			t.Fatalf("expected first callback to succeed, got %d", first.Code)
		}

		second := httptest.NewRecorder()
		handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/callback?code=def&state=expected-state", nil))
		if second.Code != http.StatusBadRequest {
			t.Errorf("expected replayed callback to be rejected, got %d", second.Code)
		}
	})
}
