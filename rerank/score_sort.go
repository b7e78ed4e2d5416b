package rerank

import (
	"context"
	"sort"

	"github.com/rushteam/cartrec/core"
	"github.com/rushteam/cartrec/pipeline"
)

// ScoreSort 按 matchScore 降序重排，同分保持输入顺序（稳定排序）。
type ScoreSort struct{}

func (n *ScoreSort) Name() string {
	return "rerank.score_sort"
}

func (n *ScoreSort) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *ScoreSort) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	return items, nil
}
