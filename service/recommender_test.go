package service

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rushteam/cartrec/core"
	"github.com/rushteam/cartrec/filter"
	"github.com/rushteam/cartrec/recall"
	"github.com/rushteam/cartrec/store"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

// stepClock 每次调用前进一秒，保证行为时间戳严格递增。
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

type fixture struct {
	log     *store.MemoryInteractionLog
	catalog *store.MemoryCatalog
	orders  *store.MemoryOrders
	rec     *Recommender
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	logNow := t0.Add(48 * time.Hour)
	f := &fixture{
		log: store.NewMemoryInteractionLog(
			store.WithClock(func() time.Time { return logNow }),
			store.WithCleanupInterval(0),
		),
		catalog: store.NewMemoryCatalog(
			&core.Product{ID: "laptop", Category: "Electronics", Price: 999, CreatedAt: t0},
			&core.Product{ID: "phone", Category: "Electronics", Price: 599, CreatedAt: t0.Add(time.Hour)},
			&core.Product{ID: "headphones", Category: "Electronics", Price: 199, CreatedAt: t0.Add(2 * time.Hour)},
			&core.Product{ID: "shirt", Category: "Fashion", Price: 29, CreatedAt: t0.Add(3 * time.Hour)},
			&core.Product{ID: "lamp", Category: "Home", Price: 49, CreatedAt: t0.Add(4 * time.Hour)},
		),
		orders: store.NewMemoryOrders(
			&core.Order{ID: "o1", CreatedAt: t0, Items: []core.OrderItem{{ProductID: "laptop"}, {ProductID: "headphones"}}},
			&core.Order{ID: "o2", CreatedAt: t0.Add(time.Hour), Items: []core.OrderItem{{ProductID: "laptop"}, {ProductID: "headphones"}}},
			&core.Order{ID: "o3", CreatedAt: t0.Add(2 * time.Hour), Items: []core.OrderItem{{ProductID: "laptop"}, {ProductID: "phone"}}},
		),
	}
	t.Cleanup(func() { _ = f.log.Close() })

	clock := &stepClock{cur: t0.Add(time.Hour)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	f.rec = New(Stores{
		Log:     f.log,
		Catalog: f.catalog,
		Orders:  f.orders,
		Users:   store.NewMemoryUsers("u1", "u2"),
	}, opts...)
	return f
}

func (f *fixture) track(t *testing.T, user, product string, typ core.InteractionType) {
	t.Helper()
	if _, err := f.rec.RecordInteraction(context.Background(), user, product, string(typ)); err != nil {
		t.Fatalf("RecordInteraction(%s, %s, %s) error = %v", user, product, typ, err)
	}
}

func ids(items []*core.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

type failingLog struct{ core.InteractionLog }

func (failingLog) Append(context.Context, core.Interaction) error {
	return errors.New("connection refused")
}

type failingCatalog struct{ core.Catalog }

func (failingCatalog) Name() string { return "failing" }

func (failingCatalog) Find(context.Context, core.ProductQuery) ([]*core.Product, error) {
	return nil, errors.New("connection refused")
}

func (failingCatalog) Get(context.Context, string) (*core.Product, error) {
	return nil, errors.New("connection refused")
}

func (failingCatalog) GetMany(context.Context, []string) ([]*core.Product, error) {
	return nil, errors.New("connection refused")
}

func TestRecordInteraction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		user      string
		product   string
		typ       string
		wantValid bool
	}{
		{"ok", "u1", "laptop", "view", true},
		{"missing user", "", "laptop", "view", false},
		{"missing product", "u1", "", "view", false},
		{"undefined product", "u1", "undefined", "cart", false},
		{"unknown type", "u1", "laptop", "share", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := f.rec.RecordInteraction(ctx, tt.user, tt.product, tt.typ)
			if tt.wantValid {
				if err != nil {
					t.Fatalf("RecordInteraction() error = %v", err)
				}
				if in.ID == "" || in.UserID != tt.user || in.ProductID != tt.product {
					t.Errorf("RecordInteraction() = %+v", in)
				}
				return
			}
			if !core.IsValidation(err) {
				t.Errorf("RecordInteraction() error = %v, want validation error", err)
			}
		})
	}

	n, _ := f.log.Count(ctx)
	if n != 1 {
		t.Errorf("log Count() = %d, want 1", n)
	}
}

func TestRecordInteraction_StoreFailurePropagates(t *testing.T) {
	rec := New(Stores{Log: failingLog{}, Catalog: store.NewMemoryCatalog()})
	_, err := rec.RecordInteraction(context.Background(), "u1", "laptop", "view")
	if !core.IsUnavailable(err) {
		t.Fatalf("RecordInteraction() error = %v, want unavailable", err)
	}
}

func TestGetRecommendations_Dispatch(t *testing.T) {
	f := newFixture(t)
	f.track(t, "u1", "laptop", core.InteractionView)
	f.track(t, "u2", "laptop", core.InteractionView)
	f.track(t, "u2", "shirt", core.InteractionView)
	ctx := context.Background()

	tests := []struct {
		name       string
		req        Request
		want       []string
		wantScore  float64
		wantReason string
	}{
		{
			name:      "collaborative",
			req:       Request{Algorithm: "collaborative", UserID: "u1", Limit: 5},
			want:      []string{"shirt"},
			wantScore: core.ScoreCollaborative,
		},
		{
			name:       "content by product",
			req:        Request{Algorithm: "content-based", ProductID: "laptop", Limit: 2},
			want:       []string{"headphones", "phone"},
			wantScore:  core.ScoreContent,
			wantReason: "Similar to items you viewed in Electronics",
		},
		{
			name:       "unknown algorithm is content",
			req:        Request{Algorithm: "deep-learning", Category: "Home"},
			want:       []string{"lamp"},
			wantScore:  core.ScoreContent,
			wantReason: "Similar to items you viewed in Home",
		},
		{
			// 两路都出现 shirt 时保留内容推荐的属性
			name:      "default is hybrid",
			req:       Request{UserID: "u1", Limit: 6},
			want:      []string{"shirt", "lamp", "headphones"},
			wantScore: core.ScoreContent,
		},
		{
			name:       "unknown user falls back to popular",
			req:        Request{Algorithm: "collaborative", UserID: "u9", Limit: 2},
			want:       []string{"laptop", "shirt"},
			wantScore:  core.ScorePopular,
			wantReason: core.ReasonTrending,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.rec.GetRecommendations(ctx, tt.req)
			if !reflect.DeepEqual(ids(got), tt.want) {
				t.Fatalf("GetRecommendations() = %v, want %v", ids(got), tt.want)
			}
			for _, it := range got {
				if it.Score != tt.wantScore {
					t.Errorf("%s score = %v, want %v", it.ID, it.Score, tt.wantScore)
				}
				if tt.wantReason != "" && it.Reason != tt.wantReason {
					t.Errorf("%s reason = %q, want %q", it.ID, it.Reason, tt.wantReason)
				}
			}
		})
	}
}

func TestGetRecommendations_StoreFailureDegrades(t *testing.T) {
	rec := New(Stores{
		Log:     store.NewMemoryInteractionLog(store.WithCleanupInterval(0)),
		Catalog: failingCatalog{},
	})
	for _, alg := range []string{"content-based", "collaborative", "hybrid"} {
		got := rec.GetRecommendations(context.Background(), Request{Algorithm: alg, ProductID: "laptop"})
		if got == nil || len(got) != 0 {
			t.Errorf("GetRecommendations(%s) = %v, want empty non-nil list", alg, got)
		}
	}
}

func TestGetRecommendations_Filters(t *testing.T) {
	expr, err := filter.NewExprFilter(`item.product.category == "Fashion"`)
	if err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, WithFilters(filter.NewBlacklistFilter([]string{"lamp"}), expr))

	got := f.rec.GetRecommendations(context.Background(), Request{Algorithm: "content-based", Limit: 5})
	if want := []string{"headphones", "phone", "laptop"}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("GetRecommendations() = %v, want %v", ids(got), want)
	}
}

func TestClamp(t *testing.T) {
	r := New(Stores{}, WithLimits(Limits{Max: 50}))
	tests := []struct{ in, want int }{
		{0, 6},
		{-3, 6},
		{3, 3},
		{50, 50},
		{500, 50},
	}
	for _, tt := range tests {
		if got := r.clamp(tt.in, r.Limits.Default); got != tt.want {
			t.Errorf("clamp(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestGetBoughtTogether(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got := f.rec.GetBoughtTogether(ctx, "laptop")
	if want := []string{"headphones", "phone"}; !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("GetBoughtTogether() = %v, want %v", ids(got), want)
	}
	for _, it := range got {
		if it.Score != core.ScoreBoughtTogether || it.Reason != core.ReasonBoughtTogether {
			t.Errorf("item %s = (%v, %q)", it.ID, it.Score, it.Reason)
		}
	}

	for _, anchor := range []string{"", "undefined", "lamp"} {
		if got := f.rec.GetBoughtTogether(ctx, anchor); got == nil || len(got) != 0 {
			t.Errorf("GetBoughtTogether(%q) = %v, want empty list", anchor, ids(got))
		}
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("cartrec", reg)
	f := newFixture(t, WithMetrics(m))
	f.track(t, "u2", "laptop", core.InteractionView)
	f.track(t, "u2", "shirt", core.InteractionCart)

	f.rec.GetRecommendations(context.Background(), Request{Algorithm: "collaborative", UserID: "u9"})

	if got := testutil.ToFloat64(m.Interactions.WithLabelValues("view")); got != 1 {
		t.Errorf("interactions{view} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Recommendations.WithLabelValues("collaborative")); got != 1 {
		t.Errorf("recommendations{collaborative} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Fallbacks.WithLabelValues(recall.FallbackUnknownUser)); got != 2 {
		t.Errorf("fallbacks{unknown_user} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Items.WithLabelValues("popular")); got != 2 {
		t.Errorf("items{popular} = %v, want 2", got)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(core.AlgorithmHybrid, &recall.Content{})
	r.Register(core.AlgorithmContent, &recall.Content{})
	r.Register("", &recall.Content{})
	r.Register(core.AlgorithmCollaborative, nil)

	if want := []string{"content-based", "hybrid"}; !reflect.DeepEqual(r.Algorithms(), want) {
		t.Errorf("Algorithms() = %v, want %v", r.Algorithms(), want)
	}
	if _, ok := r.Get(core.AlgorithmCollaborative); ok {
		t.Error("Get(collaborative) ok = true")
	}
}
