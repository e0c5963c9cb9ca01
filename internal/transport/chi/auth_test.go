package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestBearerAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		method string
		path   string
		header string
		want   int
	}{
		{"no keys configured", nil, "POST", "/v1/facets", "", http.StatusOK},
		{"only empty keys", []string{"", ""}, "POST", "/v1/facets", "", http.StatusOK},
		{"missing header", []string{"secret"}, "POST", "/v1/facets", "", http.StatusUnauthorized},
		{"basic scheme", []string{"secret"}, "POST", "/v1/facets", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"lowercase scheme", []string{"secret"}, "POST", "/v1/facets", "bearer secret", http.StatusUnauthorized},
		{"wrong key", []string{"secret"}, "POST", "/v1/combine", "Bearer wrong-key", http.StatusUnauthorized},
		{"prefix of key", []string{"secret"}, "POST", "/v1/shards/0/facets", "Bearer secre", http.StatusUnauthorized},
		{"key with suffix", []string{"secret"}, "POST", "/v1/shards/0/facets", "Bearer secret2", http.StatusUnauthorized},
		{"valid key", []string{"secret"}, "POST", "/v1/facets", "Bearer secret", http.StatusOK},
		{"second of two keys", []string{"key1", "key2"}, "DELETE", "/v1/shards/1", "Bearer key2", http.StatusOK},
		{"health exempt", []string{"secret"}, "GET", "/health", "", http.StatusOK},
		{"metrics exempt", []string{"secret"}, "GET", "/metrics", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := BearerAuthMiddleware(tt.keys)(okHandler())

			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.want)
			}
			if tt.want != http.StatusUnauthorized {
				return
			}
			var errResp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if errResp.Code != ErrorCodeUnauthorized {
				t.Errorf("error code: got %s, want %s", errResp.Code, ErrorCodeUnauthorized)
			}
		})
	}
}
