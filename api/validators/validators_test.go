package validators

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/stockroom-backend/pkg/errors"
)

type sampleBody struct {
	Item     string `json:"item" validate:"required,max=5"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"item":"bolt","quantity":2}`))
	var body sampleBody
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Item != "bolt" || body.Quantity != 2 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestDecodeJSONBodyValidationDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"item":"","quantity":0}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", pkgerrors.As(err).Details())
	}
	if details["item"] != "is required" || details["quantity"] != "must be at least 1" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=20", nil)
	if v, err := ParseQueryInt(req, "limit", 10, 1, 100); err != nil || v != 20 {
		t.Fatalf("expected 20, got %d (%v)", v, err)
	}
	if v, err := ParseQueryInt(req, "missing", 10, 1, 100); err != nil || v != 10 {
		t.Fatalf("expected default, got %d (%v)", v, err)
	}
	req = httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	if _, err := ParseQueryInt(req, "limit", 10, 1, 100); err == nil {
		t.Fatal("expected range error")
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := BearerToken(req); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	req.Header.Set("Authorization", "Bearer abc.def")
	if token, err := BearerToken(req); err != nil || token != "abc.def" {
		t.Fatalf("unexpected token %q (%v)", token, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/ws?token=xyz", nil)
	if token, err := BearerToken(req); err != nil || token != "xyz" {
		t.Fatalf("unexpected query token %q (%v)", token, err)
	}
}

func TestQueryTextCountsCharacters(t *testing.T) {
	accented := strings.Repeat("é", 200)
	req := httptest.NewRequest(http.MethodGet, "/?name="+url.QueryEscape("  "+accented+"  "), nil)
	got, err := QueryText(req, "name", 255)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != accented {
		t.Fatalf("name altered: %d bytes, want %d", len(got), len(accented))
	}

	req = httptest.NewRequest(http.MethodGet, "/?name="+url.QueryEscape(strings.Repeat("é", 256)), nil)
	if _, err := QueryText(req, "name", 255); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckTextRejectsInvalidUTF8(t *testing.T) {
	if _, err := CheckText("item", "bolt\xff", 255); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got, err := CheckText("item", "  bolt ", 0); err != nil || got != "bolt" {
		t.Fatalf("unexpected %q (%v)", got, err)
	}
}
