package pipeline

import (
	"context"

	"github.com/rushteam/cartrec/core"
)

// Kind 用于标记 Node 类型，方便按阶段打点。
type Kind string

const (
	KindRecall Kind = "recall" // 召回：各推荐引擎
	KindFilter Kind = "filter" // 过滤：业务规则剔除候选
	KindReRank Kind = "rerank" // 重排：排序与截断
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用“输入 items -> 输出 items”的形态；召回节点忽略输入，生成候选。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}
