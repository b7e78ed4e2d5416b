package recall

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rushteam/cartrec/core"
	"github.com/rushteam/cartrec/store"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func product(id, category string, created time.Duration) *core.Product {
	return &core.Product{ID: id, Name: id, Category: category, Price: 100, Stock: 1, CreatedAt: t0.Add(created)}
}

type env struct {
	now     time.Time
	log     *store.MemoryInteractionLog
	catalog *store.MemoryCatalog
	orders  *store.MemoryOrders
	users   *store.MemoryUsers
}

func newEnv(t *testing.T, products ...*core.Product) *env {
	t.Helper()
	e := &env{
		now:     t0.Add(24 * time.Hour),
		catalog: store.NewMemoryCatalog(products...),
		orders:  store.NewMemoryOrders(),
		users:   store.NewMemoryUsers(),
	}
	e.log = store.NewMemoryInteractionLog(
		store.WithClock(func() time.Time { return e.now }),
		store.WithCleanupInterval(0),
	)
	t.Cleanup(func() { _ = e.log.Close() })
	return e
}

// track 追加一条行为，offset 相对 t0 递增以保证时间顺序。
func (e *env) track(t *testing.T, user, productID string, typ core.InteractionType, offset time.Duration) {
	t.Helper()
	e.users.Add(user)
	in := core.Interaction{UserID: user, ProductID: productID, Type: typ, CreatedAt: t0.Add(offset)}
	if err := e.log.Append(context.Background(), in); err != nil {
		t.Fatal(err)
	}
}

func (e *env) popular() *Popular {
	return &Popular{Log: e.log, Catalog: e.catalog, Now: func() time.Time { return e.now }}
}

func (e *env) content() *Content {
	return &Content{Catalog: e.catalog}
}

func (e *env) collaborative() *UserBasedCF {
	return &UserBasedCF{Log: e.log, Catalog: e.catalog, Users: e.users, Fallback: e.popular()}
}

func (e *env) hybrid() *Hybrid {
	return &Hybrid{Collaborative: e.collaborative(), Content: e.content()}
}

func ids(items []*core.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func assertScores(t *testing.T, items []*core.Item, score float64, reason string) {
	t.Helper()
	for _, it := range items {
		if it.Score != score {
			t.Errorf("item %s score = %v, want %v", it.ID, it.Score, score)
		}
		if reason != "" && it.Reason != reason {
			t.Errorf("item %s reason = %q, want %q", it.ID, it.Reason, reason)
		}
	}
}

func assertUnique(t *testing.T, items []*core.Item) {
	t.Helper()
	seen := make(map[string]bool)
	for _, it := range items {
		if seen[it.ID] {
			t.Errorf("duplicate item %s", it.ID)
		}
		seen[it.ID] = true
	}
}

var errBackend = errors.New("connection refused")

// brokenLog 模拟存储故障。
type brokenLog struct{ core.InteractionLog }

func (brokenLog) Count(context.Context) (int64, error) {
	return 0, core.Unavailable(core.ModuleInteraction, errBackend)
}

func (brokenLog) DistinctProductIDs(context.Context, string) ([]string, error) {
	return nil, core.Unavailable(core.ModuleInteraction, errBackend)
}

// brokenCatalog 模拟商品目录故障。
type brokenCatalog struct{ core.Catalog }

func (brokenCatalog) Find(context.Context, core.ProductQuery) ([]*core.Product, error) {
	return nil, errBackend
}

func (brokenCatalog) Get(context.Context, string) (*core.Product, error) {
	return nil, errBackend
}

// staticSource 返回固定结果。
type staticSource struct {
	name  string
	items []*core.Item
	err   error
	delay time.Duration
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Recall(ctx context.Context, _ *core.RecommendContext) ([]*core.Item, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*core.Item, 0, len(s.items))
	for _, it := range s.items {
		cp := *it
		cp.Labels = nil
		out = append(out, &cp)
	}
	return out, nil
}
