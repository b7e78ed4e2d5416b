// Package cartrec 是电商推荐引擎（Cart Recommender）。
//
// 设计要点：
//   - Pipeline-first: 推荐逻辑通过 Node 串联（Recall → Filter → ReRank）
//   - Fallback-first: 每个引擎的降级链由 recall.FirstOf 显式表达，"没有数据"与"存储故障"是两种信号
//   - Labels-first: recall_source / fallback 标签随结果透传，用于 explain 与观测
//
// 对外入口见 service.Recommender：RecordInteraction、GetRecommendations、
// GetPersonalizedHome、GetBoughtTogether。
package cartrec

import (
	"github.com/rushteam/cartrec/pipeline"
	"github.com/rushteam/cartrec/service"
)

// 轻量 facade：便于直接 import "cartrec" 使用核心抽象。
type (
	Pipeline    = pipeline.Pipeline
	Node        = pipeline.Node
	Kind        = pipeline.Kind
	Recommender = service.Recommender
	Request     = service.Request
	Home        = service.Home
	Stores      = service.Stores
)

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindReRank = pipeline.KindReRank
)

// New 组装推荐服务，见 service.New。
func New(stores Stores, opts ...service.Option) *Recommender {
	return service.New(stores, opts...)
}
