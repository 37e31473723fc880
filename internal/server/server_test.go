package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avdunn/tunesync/internal/shared"
	"golang.org/x/oauth2"
)

// fakeTokenEndpoint stands in for the provider's token exchange endpoint.
func fakeTokenEndpoint(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok123","token_type":"Bearer"}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func oauthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:9/callback",
		Endpoint:     oauth2.Endpoint{AuthURL: "http://localhost:9/auth", TokenURL: tokenURL},
	}
}

func TestOAuthHandler(t *testing.T) {
	t.Run("valid callback exchanges code", func(t *testing.T) {
		token := fakeTokenEndpoint(t)
		handler := NewOAuthHandler(oauthConfig(token.URL), "state123")

		req := httptest.NewRequest(http.MethodGet, "/callback?state=state123&code=abc", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}

		result := <-handler.Result()
		if err := result.Error(); err != nil {
			t.Fatalf("result error = %v", err)
		}
		if result.Token == nil || result.Token.AccessToken != "tok123" {
			t.Errorf("token = %+v, want tok123", result.Token)
		}
	})

	t.Run("state mismatch rejected", func(t *testing.T) {
		handler := NewOAuthHandler(oauthConfig("http://localhost:9/token"), "expected")

		req := httptest.NewRequest(http.MethodGet, "/callback?state=wrong&code=abc", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		result := <-handler.Result()
		if result.Error() == nil {
			t.Error("expected error for state mismatch")
		}
	})

	t.Run("second callback rejected", func(t *testing.T) {
		token := fakeTokenEndpoint(t)
		handler := NewOAuthHandler(oauthConfig(token.URL), "state123")

		first := httptest.NewRecorder()
		handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/callback?state=state123&code=abc", nil))

		second := httptest.NewRecorder()
		handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/callback?state=state123&code=abc", nil))

		if second.Code != http.StatusBadRequest {
			t.Errorf("replayed callback status = %d, want 400", second.Code)
		}
	})

	t.Run("missing code reports provider error", func(t *testing.T) {
		handler := NewOAuthHandler(oauthConfig("http://localhost:9/token"), "state123")

		req := httptest.NewRequest(http.MethodGet, "/callback?state=state123&error=access_denied", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		result := <-handler.Result()
		if result.Error() == nil {
			t.Error("expected error when provider denies authorization")
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("method filtering", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusNoContent {
			t.Errorf("GET status = %d, want 204", rec.Code)
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST status = %d, want 405", rec.Code)
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mw("outer"), mw("inner"))
		router.Handle(http.MethodGet, "/x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
			t.Errorf("middleware order = %v, want [outer inner]", order)
		}
	})

	t.Run("logging middleware passes through", func(t *testing.T) {
		router := NewBasicRouter()
		router.Use(Logging(shared.NewLogger(nil)))

		hit := false
		router.Handle(http.MethodGet, "/y", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hit = true
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/y", nil))
		if !hit {
			t.Error("handler not reached through logging middleware")
		}
	})
}
