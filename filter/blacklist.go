package filter

import (
	"context"

	"github.com/rushteam/cartrec/core"
)

// BlacklistFilter 是黑名单过滤器，过滤掉被下架/屏蔽的商品。
type BlacklistFilter struct {
	ids map[string]struct{}
}

// NewBlacklistFilter 创建一个黑名单过滤器。
func NewBlacklistFilter(productIDs []string) *BlacklistFilter {
	ids := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		if pid, ok := core.ParseID(id); ok {
			ids[pid.String()] = struct{}{}
		}
	}
	return &BlacklistFilter{ids: ids}
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	_, blocked := f.ids[item.ID]
	return blocked, nil
}
