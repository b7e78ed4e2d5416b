package recall

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/cartrec/core"
	"github.com/rushteam/cartrec/pipeline"
)

// BoughtTogether 是"一起购买"召回源（BoughtTogetherEngine），基于历史订单的共现次数。
//
//	cooccurrence[anchor][other] = 同时包含 anchor 与 other 的订单行数
//
// 与其他召回源不同，没有共现商品时返回空列表，不降级到热门：没有共现本身就是有意义的信号。
type BoughtTogether struct {
	Orders  core.OrderHistory
	Catalog core.Catalog

	// MaxOrders 限制扫描的订单数（最新优先），默认 1000
	MaxOrders int

	// DefaultLimit 是未指定 Limit 时的返回条数，默认 4
	DefaultLimit int

	Logger zerolog.Logger
}

func (r *BoughtTogether) Name() string        { return "recall.bought_together" }
func (r *BoughtTogether) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *BoughtTogether) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *BoughtTogether) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if rctx == nil {
		return []*core.Item{}, nil
	}
	anchor, ok := core.ParseID(rctx.ProductID)
	if !ok {
		return []*core.Item{}, nil
	}
	limit := rctx.LimitOr(r.defaultLimit())

	orders, err := r.Orders.OrdersContaining(ctx, anchor.String(), r.maxOrders())
	if err != nil {
		return nil, core.Unavailable(core.ModuleOrder, err)
	}
	counts := core.CountCoOccurrences(orders, anchor.String())
	if len(counts) == 0 {
		r.Logger.Debug().Str("product_id", anchor.String()).Int("orders", len(orders)).Msg("no co-purchased products")
		return []*core.Item{}, nil
	}
	if len(counts) > limit {
		counts = counts[:limit]
	}

	products, err := r.Catalog.GetMany(ctx, core.ProductIDs(counts))
	if err != nil {
		return nil, core.Unavailable(core.ModuleCatalog, err)
	}
	items := toItems(products, core.ReasonBoughtTogether, core.ScoreBoughtTogether)
	return tag(items, "bought_together", ""), nil
}

func (r *BoughtTogether) defaultLimit() int {
	if r.DefaultLimit <= 0 {
		return 4
	}
	return r.DefaultLimit
}

func (r *BoughtTogether) maxOrders() int {
	if r.MaxOrders <= 0 {
		return 1000
	}
	return r.MaxOrders
}
