package recall

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/cartrec/core"
	"github.com/rushteam/cartrec/pipeline"
	"github.com/rushteam/cartrec/rerank"
)

// Hybrid 是混合召回源（HybridAggregator）：协同过滤 + 内容推荐。
//
// 等价于下面的 Pipeline：
//
//	&pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &recall.Fanout{Sources: [collaborative, content], MergeStrategy: LastWinsMergeStrategy{}}, // 各取 ceil(limit/2)
//	        &rerank.ScoreSort{},      // 按 matchScore 稳定降序
//	        &rerank.TopNNode{N: limit},
//	    },
//	}
//
// 同一商品同时出现在两路结果中时，内容推荐（后合并）的理由和分数胜出。
type Hybrid struct {
	Collaborative Source
	Content       Source

	// DefaultLimit 是未指定 Limit 时的返回条数
	DefaultLimit int

	Logger zerolog.Logger
}

func (r *Hybrid) Name() string        { return "recall.hybrid" }
func (r *Hybrid) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *Hybrid) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *Hybrid) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	limit := rctx.LimitOr(r.defaultLimit())

	sources := make([]Source, 0, 2)
	for _, src := range []Source{r.Collaborative, r.Content} {
		if src != nil {
			sources = append(sources, src)
		}
	}

	p := &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			&Fanout{
				Sources:       sources,
				Quota:         HalfQuota,
				MergeStrategy: LastWinsMergeStrategy{},
				Logger:        r.Logger,
			},
			&rerank.ScoreSort{},
			&rerank.TopNNode{N: limit},
		},
	}
	return p.Run(ctx, rctx.WithLimit(limit), nil)
}

// HalfQuota 返回 ceil(limit/2)。
func HalfQuota(limit int) int {
	return (limit + 1) / 2
}

func (r *Hybrid) defaultLimit() int {
	if r.DefaultLimit <= 0 {
		return 6
	}
	return r.DefaultLimit
}
