package recall

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/cartrec/core"
	"github.com/rushteam/cartrec/pipeline"
)

// Fanout 是一个 Recall Node：并发执行多个召回源，并合并结果。
//
// 召回源并发执行，但始终按 Sources 的顺序合并（与完成先后无关），保证结果确定。
// 单个召回源出错时记录日志并按空结果处理，不中断其他召回源。
type Fanout struct {
	Sources []Source

	// Quota 返回每个召回源的配额，nil 表示沿用 rctx.Limit
	Quota func(limit int) int

	Timeout       time.Duration // 每个召回源的超时时间
	MaxConcurrent int           // 最大并发数（0 表示无限制）

	// MergeStrategy 为 nil 时使用 FirstMergeStrategy
	MergeStrategy MergeStrategy

	Logger zerolog.Logger
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return n.Recall(ctx, rctx)
}

// Recall 实现 Source 接口，Fanout 可以嵌套。
func (n *Fanout) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return []*core.Item{}, nil
	}

	sub := rctx
	if n.Quota != nil {
		sub = rctx.WithLimit(n.Quota(rctx.LimitOr(0)))
	}

	results := make([][]*core.Item, len(n.Sources))
	eg, egCtx := errgroup.WithContext(ctx)
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		eg.Go(func() error {
			// 超时控制
			recallCtx := egCtx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(egCtx, n.Timeout)
				defer cancel()
			}

			items, err := src.Recall(recallCtx, sub)
			if err != nil {
				// 超时或错误时返回空结果，不中断其他召回源
				n.Logger.Warn().Err(err).Str("source", src.Name()).Msg("recall source failed")
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = eg.Wait()

	strategy := n.MergeStrategy
	if strategy == nil {
		strategy = FirstMergeStrategy{}
	}
	return strategy.Merge(results), nil
}

// MergeStrategy 把按召回源顺序排列的结果合并为一个去重列表。
type MergeStrategy interface {
	Merge(results [][]*core.Item) []*core.Item
}

// FirstMergeStrategy 按 ID 去重，保留第一个出现的（默认策略）。
type FirstMergeStrategy struct{}

func (FirstMergeStrategy) Merge(results [][]*core.Item) []*core.Item {
	seen := make(map[string]*core.Item)
	out := make([]*core.Item, 0)
	for _, items := range results {
		for _, it := range items {
			if it == nil {
				continue
			}
			if old, ok := seen[it.ID]; ok {
				for k, v := range it.Labels {
					old.PutLabel(k, v)
				}
				continue
			}
			seen[it.ID] = it
			out = append(out, it)
		}
	}
	return out
}

// LastWinsMergeStrategy 按 ID 去重：位置取第一次出现的位置，属性（商品、理由、分数）取最后一次出现的。
// 混合推荐用它让后合并的内容推荐在冲突时胜出。
type LastWinsMergeStrategy struct{}

func (LastWinsMergeStrategy) Merge(results [][]*core.Item) []*core.Item {
	index := make(map[string]int)
	out := make([]*core.Item, 0)
	for _, items := range results {
		for _, it := range items {
			if it == nil {
				continue
			}
			i, ok := index[it.ID]
			if !ok {
				index[it.ID] = len(out)
				out = append(out, it)
				continue
			}
			old := out[i]
			for k, v := range old.Labels {
				if _, exists := it.Labels[k]; !exists {
					it.PutLabel(k, v)
				}
			}
			out[i] = it
		}
	}
	return out
}
