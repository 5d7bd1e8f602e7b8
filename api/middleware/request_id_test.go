package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestIDKeepsCallerID(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items/status", nil)
	req.Header.Set(requestIDHeader, "stock-check-42")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if seen != "stock-check-42" || resp.Header().Get(requestIDHeader) != "stock-check-42" {
		t.Fatalf("expected caller id, got context=%q header=%q", seen, resp.Header().Get(requestIDHeader))
	}
}

func TestRequestIDReplacesUnusableID(t *testing.T) {
	for _, supplied := range []string{"", strings.Repeat("x", maxRequestIDLen+1), "bad id\n"} {
		var seen string
		handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestIDFromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if supplied != "" {
			req.Header[requestIDHeader] = []string{supplied}
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if _, err := uuid.Parse(seen); err != nil {
			t.Fatalf("expected minted uuid for %q, got %q", supplied, seen)
		}
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Fatal("expected empty id outside a request")
	}
}
