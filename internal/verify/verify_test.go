package verify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func mapsServer(t *testing.T, routes map[string]any) *MapsClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			http.Error(w, "no key", http.StatusForbidden)
			return
		}
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	c := NewMapsClient("test-key")
	c.BaseURL = srv.URL
	return c
}

var txComponents = []map[string]any{
	{"short_name": "TX", "types": []string{"administrative_area_level_1", "political"}},
	{"short_name": "US", "types": []string{"country", "political"}},
}

func TestVerifyAddress(t *testing.T) {
	c := mapsServer(t, map[string]any{
		"/geocode/json": map[string]any{
			"status": "OK",
			"results": []map[string]any{{
				"formatted_address":  "123 Main St, Austin, TX 78701, USA",
				"address_components": txComponents,
				"geometry":           map[string]any{"location": map[string]any{"lat": 1, "lng": 2}},
			}},
		},
	})
	res, err := c.VerifyAddress(context.Background(), "123 main st austin")
	if err != nil {
		t.Fatalf("VerifyAddress: %v", err)
	}
	if !res.Verified || res.State != "TX" || res.Normalized != "123 Main St, Austin, TX 78701, USA" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestVerifyAddressPartialMatch(t *testing.T) {
	c := mapsServer(t, map[string]any{
		"/geocode/json": map[string]any{
			"status": "OK",
			"results": []map[string]any{{
				"formatted_address":  "Main St, TX, USA",
				"address_components": txComponents,
				"geometry":           map[string]any{},
				"partial_match":      true,
			}},
		},
	})
	res, err := c.VerifyAddress(context.Background(), "main st")
	if err != nil {
		t.Fatalf("VerifyAddress: %v", err)
	}
	if res.Verified {
		t.Fatal("partial match must not verify")
	}
}

func TestVerifyAddressZeroResults(t *testing.T) {
	c := mapsServer(t, map[string]any{"/geocode/json": map[string]any{"status": "ZERO_RESULTS"}})
	res, err := c.VerifyAddress(context.Background(), "nowhere")
	if err != nil || res.Verified || res.Normalized != "nowhere" {
		t.Fatalf("unexpected: %+v %v", res, err)
	}
}

func TestVerifyAttorney(t *testing.T) {
	c := mapsServer(t, map[string]any{
		"/place/textsearch/json": map[string]any{
			"status":  "OK",
			"results": []map[string]any{{"place_id": "p1"}},
		},
		"/place/details/json": map[string]any{
			"status": "OK",
			"result": map[string]any{
				"name":                       "Smith & Jones Law",
				"formatted_address":          "9 Court St, Austin, TX",
				"international_phone_number": "+1 555-123-4567",
			},
		},
	})
	ok, err := c.VerifyAttorney(context.Background(), Attorney{Name: "Ann Smith", Firm: "Smith & Jones", Phone: "555 123 4567"})
	if err != nil || !ok {
		t.Fatalf("expected verified, got %v %v", ok, err)
	}
	ok, err = c.VerifyAttorney(context.Background(), Attorney{Firm: "Other Firm", Phone: "555 123 4567"})
	if err != nil || ok {
		t.Fatalf("expected mismatch, got %v %v", ok, err)
	}
}

func TestNotConfigured(t *testing.T) {
	if _, err := (Noop{}).VerifyAddress(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := NewMapsClient("").VerifyAttorney(context.Background(), Attorney{Name: "x"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
