package core

// RecommendContext 承载一次推荐请求的锚点（用户/商品/类目）与数量限制，贯穿整个 Pipeline 透传。
// 所有锚点都是原始字符串，由各引擎入口通过 ParseID 解析一次。
type RecommendContext struct {
	UserID    string
	ProductID string
	Category  string

	// Limit 是本次请求希望返回的最大条数，<= 0 时由引擎使用默认值
	Limit int

	// Params 请求级参数（例如 filter 表达式所需的上下文）
	Params map[string]any
}

// WithLimit 返回一个只修改 Limit 的副本，用于向子策略下发配额。
func (rctx *RecommendContext) WithLimit(limit int) *RecommendContext {
	if rctx == nil {
		return &RecommendContext{Limit: limit}
	}
	cp := *rctx
	cp.Limit = limit
	return &cp
}

// LimitOr 返回 Limit，未设置时返回 def。
func (rctx *RecommendContext) LimitOr(def int) int {
	if rctx == nil || rctx.Limit <= 0 {
		return def
	}
	return rctx.Limit
}
