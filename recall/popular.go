package recall

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/cartrec/core"
	"github.com/rushteam/cartrec/pipeline"
)

// Popular 是热门召回源（PopularityEngine），也是其他召回源的最终降级。
//   - 日志为空：返回最新上架商品（New arrivals）
//   - 否则按窗口内行为次数排序（Trending）
//   - 热门商品都已下架时，同样退回最新上架
//
// Popular 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用
type Popular struct {
	Log     core.InteractionLog
	Catalog core.Catalog

	// Window 是统计窗口，默认 30 天
	Window time.Duration

	// DefaultLimit 是未指定 Limit 时的返回条数
	DefaultLimit int

	Now    func() time.Time
	Logger zerolog.Logger
}

func (r *Popular) Name() string        { return "recall.popular" }
func (r *Popular) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Popular) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (r *Popular) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	limit := rctx.LimitOr(r.defaultLimit())
	items, err := FirstOf(ctx,
		r.trending(limit),
		r.newArrivals(limit),
	)
	if err != nil {
		return nil, err
	}
	return tag(items, "popular", ""), nil
}

func (r *Popular) trending(limit int) Step {
	return func(ctx context.Context) ([]*core.Item, bool, error) {
		total, err := r.Log.Count(ctx)
		if err != nil {
			return nil, false, err
		}
		if total == 0 {
			r.Logger.Debug().Msg("no interactions yet, using new arrivals")
			return nil, false, nil
		}

		counts, err := r.Log.CountByProduct(ctx, r.now().Add(-r.window()))
		if err != nil {
			return nil, false, err
		}
		if len(counts) > limit {
			counts = counts[:limit]
		}
		// 已下架的商品在 GetMany 中被跳过
		products, err := r.Catalog.GetMany(ctx, core.ProductIDs(counts))
		if err != nil {
			return nil, false, core.Unavailable(core.ModuleCatalog, err)
		}
		if len(products) == 0 {
			r.Logger.Debug().Int("candidates", len(counts)).Msg("trending products no longer exist, using new arrivals")
			return nil, false, nil
		}
		return toItems(products, core.ReasonTrending, core.ScorePopular), true, nil
	}
}

func (r *Popular) newArrivals(limit int) Step {
	return func(ctx context.Context) ([]*core.Item, bool, error) {
		items, err := NewArrivals(ctx, r.Catalog, limit)
		if err != nil {
			return nil, false, err
		}
		return tag(items, "", "new_arrivals"), true, nil
	}
}

// NewArrivals 返回最新上架的 limit 个商品。
func NewArrivals(ctx context.Context, catalog core.Catalog, limit int) ([]*core.Item, error) {
	products, err := catalog.Find(ctx, core.ProductQuery{Sort: core.SortNewest, Limit: limit})
	if err != nil {
		return nil, core.Unavailable(core.ModuleCatalog, err)
	}
	return toItems(products, core.ReasonNewArrivals, core.ScoreNewArrival), nil
}

func (r *Popular) defaultLimit() int {
	if r.DefaultLimit <= 0 {
		return 6
	}
	return r.DefaultLimit
}

func (r *Popular) window() time.Duration {
	if r.Window <= 0 {
		return core.InteractionRetention
	}
	return r.Window
}

func (r *Popular) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
