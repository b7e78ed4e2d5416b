package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/cartrec/core"
	"github.com/rushteam/cartrec/pipeline"
)

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该物品就会被过滤掉。
// 过滤器出错时保留该物品并记录日志。
type FilterNode struct {
	Filters []Filter
	Logger  zerolog.Logger
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if name, drop := n.check(ctx, rctx, item); drop {
			n.Logger.Debug().Str("item_id", item.ID).Str("filter", name).Msg("item filtered")
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// check 依次检查每个过滤器，返回命中的过滤器名称。
func (n *FilterNode) check(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (string, bool) {
	for _, f := range n.Filters {
		drop, err := f.ShouldFilter(ctx, rctx, item)
		if err != nil {
			n.Logger.Warn().Err(err).Str("filter", f.Name()).Str("item_id", item.ID).Msg("filter failed, keeping item")
			continue
		}
		if drop {
			return f.Name(), true
		}
	}
	return "", false
}
