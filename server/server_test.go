package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/rushteam/cartrec/core"
	"github.com/rushteam/cartrec/service"
	"github.com/rushteam/cartrec/store"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *prometheus.Registry) {
	t.Helper()
	log := store.NewMemoryInteractionLog(store.WithCleanupInterval(0))
	t.Cleanup(func() { _ = log.Close() })

	reg := prometheus.NewRegistry()
	rec := service.New(service.Stores{
		Log: log,
		Catalog: store.NewMemoryCatalog(
			&core.Product{ID: "laptop", Name: "Laptop", Category: "Electronics", Price: 999, CreatedAt: t0},
			&core.Product{ID: "headphones", Name: "Headphones", Category: "Electronics", Price: 199, CreatedAt: t0.Add(time.Hour)},
			&core.Product{ID: "shirt", Name: "Shirt", Category: "Fashion", Price: 29, CreatedAt: t0.Add(2 * time.Hour)},
		),
		Orders: store.NewMemoryOrders(
			&core.Order{ID: "o1", CreatedAt: t0, Items: []core.OrderItem{{ProductID: "laptop"}, {ProductID: "headphones"}}},
		),
	}, service.WithMetrics(service.NewMetrics("cartrec", reg)))

	srv := httptest.NewServer(New(rec, reg, zerolog.Nop()).Router())
	t.Cleanup(srv.Close)
	return srv, reg
}

func do(t *testing.T, method, url, user, body string) *http.Response {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestRecordInteraction(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		user string
		body string
		want int
	}{
		{"created", "u1", `{"productId":"laptop","type":"view"}`, http.StatusCreated},
		{"missing user", "", `{"productId":"laptop","type":"view"}`, http.StatusBadRequest},
		{"missing product", "u1", `{"type":"view"}`, http.StatusBadRequest},
		{"bad type", "u1", `{"productId":"laptop","type":"share"}`, http.StatusBadRequest},
		{"empty body", "u1", "", http.StatusBadRequest},
		{"malformed json", "u1", `{"productId":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, srv.URL+"/api/interactions", tt.user, tt.body)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if tt.want == http.StatusCreated {
				in := decode[core.Interaction](t, resp)
				if in.ID == "" || in.UserID != "u1" || in.Type != core.InteractionView {
					t.Errorf("interaction = %+v", in)
				}
			}
		})
	}
}

type failingRecommender struct{ Recommender }

func (failingRecommender) RecordInteraction(context.Context, string, string, string) (core.Interaction, error) {
	return core.Interaction{}, core.Unavailable(core.ModuleInteraction, errors.New("redis down"))
}

func TestRecordInteraction_StoreFailure(t *testing.T) {
	srv := httptest.NewServer(New(failingRecommender{}, prometheus.NewRegistry(), zerolog.Nop()).Router())
	defer srv.Close()

	resp := do(t, http.MethodPost, srv.URL+"/api/interactions", "u1", `{"productId":"laptop","type":"view"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if body := decode[errorResponse](t, resp); body.Code != core.ErrorCodeUnavailable {
		t.Errorf("error = %+v", body)
	}
}

func TestRecommendations(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/recommendations?algorithm=content-based&productId=laptop&limit=abc", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[recommendationsResponse](t, resp)
	if body.Algorithm != "content-based" {
		t.Errorf("algorithm = %q", body.Algorithm)
	}
	if len(body.Recommendations) != 1 {
		t.Fatalf("recommendations = %+v, want [headphones]", body.Recommendations)
	}
	got := body.Recommendations[0]
	if got.ID != "headphones" || got.Name != "Headphones" || got.MatchScore != 0.8 || got.Source != "content" {
		t.Errorf("item = %+v", got)
	}
}

func TestRecommendations_DefaultHybridIsArray(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/recommendations?category=Toys", "", "")
	raw := decode[map[string]json.RawMessage](t, resp)
	if string(raw["algorithm"]) != `"hybrid"` {
		t.Errorf("algorithm = %s", raw["algorithm"])
	}
	if !strings.HasPrefix(string(raw["recommendations"]), "[") {
		t.Errorf("recommendations = %s, want JSON array", raw["recommendations"])
	}
}

func TestBoughtTogether(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/recommendations/bought-together/laptop", "", "")
	items := decode[[]itemResponse](t, resp)
	if len(items) != 1 || items[0].ID != "headphones" || items[0].MatchScore != 0.95 {
		t.Errorf("items = %+v", items)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/recommendations/bought-together/undefined", "", "")
	if items := decode[[]itemResponse](t, resp); len(items) != 0 {
		t.Errorf("items = %+v, want empty", items)
	}
}

func TestPersonalizedHome(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, http.MethodPost, srv.URL+"/api/interactions", "u1", `{"productId":"shirt","type":"view"}`)

	resp := do(t, http.MethodGet, srv.URL+"/api/personalized/home", "u1", "")
	home := decode[homeResponse](t, resp)
	if len(home.RecentlyViewed) != 1 || home.RecentlyViewed[0].ID != "shirt" {
		t.Errorf("recentlyViewed = %+v", home.RecentlyViewed)
	}
	if len(home.CategorySuggestions) != 1 || home.CategorySuggestions[0] != "Fashion" {
		t.Errorf("categorySuggestions = %v", home.CategorySuggestions)
	}
	if len(home.Trending) != 1 || home.Trending[0].ID != "shirt" {
		t.Errorf("trending = %+v", home.Trending)
	}

	anon := decode[map[string]json.RawMessage](t, do(t, http.MethodGet, srv.URL+"/api/personalized/home", "", ""))
	for _, key := range []string{"recentlyViewed", "categorySuggestions"} {
		if string(anon[key]) != "[]" {
			t.Errorf("anonymous %s = %s, want []", key, anon[key])
		}
	}
}

func TestPersonalizedHome_UserFromQuery(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, http.MethodPost, srv.URL+"/api/interactions", "u2", `{"productId":"laptop","type":"view"}`)

	home := decode[homeResponse](t, do(t, http.MethodGet, srv.URL+"/api/personalized/home?userId=u2", "", ""))
	if len(home.RecentlyViewed) != 1 || home.RecentlyViewed[0].ID != "laptop" {
		t.Errorf("recentlyViewed = %+v, want [laptop]", home.RecentlyViewed)
	}

	// 查询参数优先于请求头
	home = decode[homeResponse](t, do(t, http.MethodGet, srv.URL+"/api/personalized/home?userId=u2", "u1", ""))
	if len(home.RecentlyViewed) != 1 || home.RecentlyViewed[0].ID != "laptop" {
		t.Errorf("recentlyViewed with header = %+v, want [laptop]", home.RecentlyViewed)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, http.MethodPost, srv.URL+"/api/interactions", "u1", `{"productId":"laptop","type":"like"}`)

	if resp := do(t, http.MethodGet, srv.URL+"/healthz", "", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}

	resp := do(t, http.MethodGet, srv.URL+"/metrics", "", "")
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `cartrec_interactions_total{type="like"} 1`) {
		t.Errorf("metrics output missing interaction counter:\n%s", buf.String())
	}
}

func TestParseLimit(t *testing.T) {
	tests := map[string]int{"": 0, "abc": 0, "-1": 0, "7": 7, " 12 ": 12}
	for in, want := range tests {
		if got := parseLimit(in); got != want {
			t.Errorf("parseLimit(%q) = %d, want %d", in, got, want)
		}
	}
}
