package recall

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/cartrec/core"
	"github.com/rushteam/cartrec/pipeline"
)

// Content 是基于内容的召回源（ContentSimilarityEngine）。
//
// 核心思想："看过某个类目的商品，推荐同类目的其他新品"
//
// 锚点解析顺序：
//  1. rctx.ProductID 能解析为已有商品：按其类目过滤，并排除该商品
//  2. 否则 rctx.Category 非空：按类目过滤
//  3. 否则不过滤，返回最新上架
//
// 无效的 ProductID 不会报错，只是落到下一个分支。
type Content struct {
	Catalog core.Catalog

	// DefaultLimit 是未指定 Limit 时的返回条数
	DefaultLimit int

	Logger zerolog.Logger
}

func (r *Content) Name() string        { return "recall.content" }
func (r *Content) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *Content) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *Content) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if rctx == nil {
		rctx = &core.RecommendContext{}
	}
	limit := rctx.LimitOr(r.defaultLimit())

	q, err := r.resolve(ctx, rctx)
	if err != nil {
		return nil, err
	}
	q.Sort = core.SortNewest
	q.Limit = limit

	products, err := r.Catalog.Find(ctx, q)
	if err != nil {
		return nil, core.Unavailable(core.ModuleCatalog, err)
	}

	out := make([]*core.Item, 0, len(products))
	for _, p := range products {
		if p == nil {
			continue
		}
		out = append(out, core.NewItem(p, core.ContentReason(p.Category), core.ScoreContent))
	}
	return tag(out, "content", ""), nil
}

// resolve 把请求锚点解析为目录查询条件。
func (r *Content) resolve(ctx context.Context, rctx *core.RecommendContext) (core.ProductQuery, error) {
	if id, ok := core.ParseID(rctx.ProductID); ok {
		p, err := r.Catalog.Get(ctx, id.String())
		switch {
		case err == nil:
			return core.ProductQuery{Category: p.Category, ExcludeID: p.ID}, nil
		case core.IsStoreNotFound(err):
			r.Logger.Debug().Str("product_id", id.String()).Msg("anchor product not found, using category")
		default:
			return core.ProductQuery{}, core.Unavailable(core.ModuleCatalog, err)
		}
	}
	if category, ok := core.ParseCategory(rctx.Category); ok {
		return core.ProductQuery{Category: category}, nil
	}
	return core.ProductQuery{}, nil
}

func (r *Content) defaultLimit() int {
	if r.DefaultLimit <= 0 {
		return 6
	}
	return r.DefaultLimit
}
