package recall

import (
	"context"

	"github.com/rushteam/cartrec/core"
	"github.com/rushteam/cartrec/pkg/utils"
)

// Source 表示一个可复用的召回源（热门/协同/内容/一起购买/...）。
// 你可以把它理解为“可并发 fan-out 的策略单元”。
//
// Recall 的 error 只表示存储故障（UNAVAILABLE），"没有数据"用空列表表达。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// 解释标签的 key。
const (
	LabelRecallSource = "recall_source"
	LabelFallback     = "fallback"
)

// Step 是降级链中的一步。
//   - ok=false：没有数据，继续下一步
//   - err!=nil：存储故障，整条链终止
type Step func(ctx context.Context) (items []*core.Item, ok bool, err error)

// FirstOf 依次执行 steps，返回第一个 ok 的结果。
// 所有步骤都没有数据时返回空列表。
func FirstOf(ctx context.Context, steps ...Step) ([]*core.Item, error) {
	for _, step := range steps {
		items, ok, err := step(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			return items, nil
		}
	}
	return []*core.Item{}, nil
}

// Delegate 把另一个召回源包装为降级步骤，并给结果打上 fallback 标签。
// 被委托的召回源总是被视为终点：即使返回空列表也不再继续。
func Delegate(src Source, rctx *core.RecommendContext, fallback string) Step {
	return func(ctx context.Context) ([]*core.Item, bool, error) {
		items, err := src.Recall(ctx, rctx)
		if err != nil {
			return nil, false, err
		}
		tag(items, "", fallback)
		return items, true, nil
	}
}

// tag 写入召回来源与降级原因标签，空值跳过。
func tag(items []*core.Item, source, fallback string) []*core.Item {
	for _, it := range items {
		if source != "" {
			it.PutLabel(LabelRecallSource, utils.Label{Value: source, Source: "recall"})
		}
		if fallback != "" {
			it.PutLabel(LabelFallback, utils.Label{Value: fallback, Source: "recall"})
		}
	}
	return items
}

// toItems 把商品包装为推荐结果。
func toItems(products []*core.Product, reason string, score float64) []*core.Item {
	out := make([]*core.Item, 0, len(products))
	for _, p := range products {
		if p == nil {
			continue
		}
		out = append(out, core.NewItem(p, reason, score))
	}
	return out
}
