package commercetools

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"storefront/internal/model"
)

const testProjectKey = "demo"

// newFakeBackend starts a server that issues tokens at /oauth/token and hands
// every authenticated API call to api.
func newFakeBackend(t *testing.T, api http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		if !strings.HasPrefix(r.URL.Path, "/"+testProjectKey+"/") {
			t.Errorf("path %q is not project scoped", r.URL.Path)
		}
		api(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		ProjectKey:   testProjectKey,
		ClientID:     "client",
		ClientSecret: "secret",
		AuthURL:      srv.URL,
		APIURL:       srv.URL,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encoding response: %v", err)
	}
}

func TestNewClient_MissingCredentials(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		missing string
	}{
		{"no project key", Config{ClientID: "id", ClientSecret: "s"}, "CTP_PROJECT_KEY"},
		{"no client id", Config{ProjectKey: "p", ClientSecret: "s"}, "CTP_CLIENT_ID"},
		{"no secret", Config{ProjectKey: "p", ClientID: "id"}, "CTP_CLIENT_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			if !errors.Is(err, model.ErrConfiguration) {
				t.Fatalf("err = %v, want configuration error", err)
			}
			if !strings.Contains(err.Error(), tt.missing) {
				t.Errorf("error %q should name %s", err, tt.missing)
			}
		})
	}
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		code     int
	}{
		{"conflict", 409, `{"statusCode":409,"message":"Object has a different version","errors":[{"code":"ConcurrentModification"}]}`, model.ErrVersionConflict, 409},
		{"not found", 404, `{"statusCode":404,"message":"not found"}`, model.ErrNotFound, 404},
		{"bad request", 400, `{"statusCode":400,"message":"bad"}`, model.ErrInvalidRequest, 400},
		{"unauthorized", 401, `{}`, model.ErrUnauthorized, 401},
		{"rate limited", 429, ``, model.ErrRateLimited, 429},
		{"server error", 503, `not json`, model.ErrUpstreamError, 502},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseError(tt.status, []byte(tt.body))
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("err = %v, want %v", err, tt.sentinel)
			}
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != tt.code {
				t.Errorf("APIError status = %+v, want %d", apiErr, tt.code)
			}
		})
	}
}

func TestParseError_KeepsBackendCodes(t *testing.T) {
	err := parseError(409, []byte(`{"statusCode":409,"message":"stale","errors":[{"code":"ConcurrentModification"}]}`))

	var ctErr *BackendError
	if !errors.As(err, &ctErr) {
		t.Fatal("BackendError should be reachable")
	}
	if !ctErr.HasCode("ConcurrentModification") {
		t.Errorf("codes = %+v", ctErr.Errors)
	}
}

func TestUpdate_StaleVersionSurfacesConflict(t *testing.T) {
	client := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusConflict, map[string]interface{}{
			"statusCode": 409,
			"message":    "Object abc has a different version than expected. Expected: 1 - Actual: 2.",
			"errors":     []map[string]string{{"code": "ConcurrentModification"}},
		})
	})

	_, err := client.RemoveLineItem(t.Context(), "cart-1", "li-1", 1)
	if !errors.Is(err, model.ErrVersionConflict) {
		t.Fatalf("err = %v, want version conflict", err)
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "CONCURRENT_MODIFICATION" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestTokenFailureIsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":"invalid_client"}`)
			return
		}
		t.Errorf("API called without a token: %s", r.URL.Path)
	}))
	defer srv.Close()

	client, err := NewClient(Config{ProjectKey: "p", ClientID: "id", ClientSecret: "bad", AuthURL: srv.URL, APIURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.GetCart(t.Context(), "cart-1")
	if !errors.Is(err, model.ErrUnauthorized) {
		t.Errorf("err = %v, want unauthorized", err)
	}
}

func TestTokenIsReused(t *testing.T) {
	var tokens atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			tokens.Add(1)
			user, pass, ok := r.BasicAuth()
			if !ok || user != "id" || pass != "secret" {
				t.Errorf("token request basic auth = %q/%q", user, pass)
			}
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"access_token":"t","token_type":"Bearer","expires_in":3600}`)
			return
		}
		io.WriteString(w, `{"id":"cart-1","version":1}`)
	}))
	defer srv.Close()

	client, err := NewClient(Config{ProjectKey: "p", ClientID: "id", ClientSecret: "secret", AuthURL: srv.URL, APIURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := client.GetCart(t.Context(), "cart-1"); err != nil {
			t.Fatalf("GetCart: %v", err)
		}
	}
	if got := tokens.Load(); got != 1 {
		t.Errorf("token requests = %d, want 1", got)
	}
}
