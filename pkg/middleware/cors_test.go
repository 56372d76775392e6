package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	allowedOrigins := []string{"http://localhost:5173", "http://example.com"}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	corsHandler := CORS(allowedOrigins)(handler)

	tests := []struct {
		name            string
		origin          string
		method          string
		expectCORS      bool
		expectedOrigin  string
		wantCredentials string
	}{
		{
			name:            "allowed origin",
			origin:          "http://localhost:5173",
			method:          http.MethodGet,
			expectCORS:      true,
			expectedOrigin:  "http://localhost:5173",
			wantCredentials: "true",
		},
		{
			name:            "another allowed origin",
			origin:          "http://example.com",
			method:          http.MethodPost,
			expectCORS:      true,
			expectedOrigin:  "http://example.com",
			wantCredentials: "true",
		},
		{
			name:       "disallowed origin",
			origin:     "http://evil.com",
			method:     http.MethodGet,
			expectCORS: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/state", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			rec := httptest.NewRecorder()
			corsHandler.ServeHTTP(rec, req)

			acao := rec.Header().Get("Access-Control-Allow-Origin")
			if tt.expectCORS {
				if acao != tt.expectedOrigin {
					t.Errorf("expected Access-Control-Allow-Origin %s, got %s", tt.expectedOrigin, acao)
				}
				if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCredentials {
					t.Errorf("expected Access-Control-Allow-Credentials %q, got %q", tt.wantCredentials, got)
				}
			} else if acao != "" {
				t.Errorf("expected no Access-Control-Allow-Origin header, got %s", acao)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	corsHandler := CORS([]string{"http://localhost:5173"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight should not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/calls/answer", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()

	corsHandler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("expected preflight origin header, got %q", got)
	}
	if rec.Code >= 300 {
		t.Errorf("expected 2xx for preflight, got %d", rec.Code)
	}
}

func TestCORSWildcardDropsCredentials(t *testing.T) {
	corsHandler := CORS([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req.Header.Set("Origin", "http://anywhere.example")
	rec := httptest.NewRecorder()
	corsHandler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard origin, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("expected no credentials header, got %q", got)
	}
}
