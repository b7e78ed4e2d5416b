package core

import (
	"fmt"

	"github.com/rushteam/cartrec/pkg/utils"
)

// 各策略的固定 matchScore。分数是策略标签，不是连续计算的相似度。
const (
	ScoreContent        = 0.8
	ScoreCollaborative  = 0.9
	ScorePopular        = 0.7
	ScoreNewArrival     = 0.7
	ScoreBoughtTogether = 0.95
)

// 各策略的推荐理由。
const (
	ReasonNewArrivals    = "New arrivals"
	ReasonTrending       = "Trending now — Popular among shoppers"
	ReasonCollaborative  = "Users with similar taste also liked this"
	ReasonBoughtTogether = "Frequently bought together"
	reasonContentFormat  = "Similar to items you viewed in %s"
)

// Item 是推荐结果（RecommendationItem）：商品引用 + 理由 + 分数 + 解释标签。
// 每次请求现算，不落库。
type Item struct {
	ID      string                 `json:"id"`
	Product *Product               `json:"product"`
	Reason  string                 `json:"reason"`
	Score   float64                `json:"matchScore"`
	Labels  map[string]utils.Label `json:"labels,omitempty"`
}

func NewItem(p *Product, reason string, score float64) *Item {
	it := &Item{
		Reason: reason,
		Score:  score,
		Labels: make(map[string]utils.Label),
	}
	if p != nil {
		it.ID = p.ID
		it.Product = p
	}
	return it
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// Label 读取 Label 的值，不存在时返回空字符串。
func (it *Item) Label(key string) string {
	if it.Labels == nil {
		return ""
	}
	return it.Labels[key].Value
}

// ContentReason 返回内容推荐的理由文案。
func ContentReason(category string) string {
	return fmt.Sprintf(reasonContentFormat, category)
}
