package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/cartrec/core"
	"github.com/rushteam/cartrec/filter"
	"github.com/rushteam/cartrec/recall"
)

// Stores 是推荐服务依赖的存储。Users 可为 nil。
type Stores struct {
	Log     core.InteractionLog
	Catalog core.Catalog
	Orders  core.OrderHistory
	Users   core.UserDirectory
}

// Limits 是各入口的条数与扫描上限。
type Limits struct {
	Default             int // getRecommendations 默认条数
	Max                 int // 请求条数上限
	Home                int // 首页推荐条数
	Trending            int
	RecentlyViewed      int
	CategorySuggestions int
	BoughtTogether      int

	MaxOrders           int // 一起购买扫描的订单数
	MaxUserInteractions int // 协同过滤/类目偏好读取的用户行为数
	PopularityWindow    time.Duration
}

// DefaultLimits 返回默认上限。
func DefaultLimits() Limits {
	return Limits{
		Default:             6,
		Max:                 50,
		Home:                8,
		Trending:            6,
		RecentlyViewed:      6,
		CategorySuggestions: 3,
		BoughtTogether:      4,
		MaxOrders:           1000,
		MaxUserInteractions: 500,
		PopularityWindow:    core.InteractionRetention,
	}
}

// Request 是 getRecommendations 的参数，所有锚点都是原始字符串。
type Request struct {
	Algorithm string
	ProductID string
	Category  string
	UserID    string
	Limit     int
}

// Recommender 是推荐引擎对外的入口：埋点、推荐、首页、一起购买。
//
// 读路径永远不返回错误：引擎出错时记录日志并返回空列表。
// 写路径（RecordInteraction）原样返回校验错误和存储错误。
type Recommender struct {
	Log      core.InteractionLog
	Registry *Registry

	Popular        recall.Source
	BoughtTogether recall.Source
	History        *recall.UserHistory
	Affinity       *recall.CategoryAffinity

	// Filters 在每个召回源之后执行，只删除条目
	Filters []filter.Filter

	Limits  Limits
	Metrics *Metrics
	Logger  zerolog.Logger
	Now     func() time.Time
}

// Option 配置 Recommender。
type Option func(*Recommender)

func WithLogger(l zerolog.Logger) Option {
	return func(r *Recommender) { r.Logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(r *Recommender) { r.Metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(r *Recommender) { r.Now = now }
}

func WithFilters(filters ...filter.Filter) Option {
	return func(r *Recommender) { r.Filters = append(r.Filters, filters...) }
}

// WithLimits 覆盖默认上限，零值字段保留默认值。
func WithLimits(l Limits) Option {
	return func(r *Recommender) { r.Limits = mergeLimits(r.Limits, l) }
}

// New 用 stores 组装全部引擎并注册三种算法。
func New(stores Stores, opts ...Option) *Recommender {
	r := &Recommender{
		Log:    stores.Log,
		Limits: DefaultLimits(),
		Logger: zerolog.Nop(),
		Now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	popular := &recall.Popular{
		Log:          stores.Log,
		Catalog:      stores.Catalog,
		Window:       r.Limits.PopularityWindow,
		DefaultLimit: r.Limits.Default,
		Now:          r.Now,
		Logger:       r.component("recall.popular"),
	}
	content := &recall.Content{
		Catalog:      stores.Catalog,
		DefaultLimit: r.Limits.Default,
		Logger:       r.component("recall.content"),
	}
	collaborative := &recall.UserBasedCF{
		Log:          stores.Log,
		Catalog:      stores.Catalog,
		Users:        stores.Users,
		Fallback:     popular,
		MaxUserItems: r.Limits.MaxUserInteractions,
		DefaultLimit: r.Limits.Default,
		Logger:       r.component("recall.u2i"),
	}
	hybrid := &recall.Hybrid{
		Collaborative: collaborative,
		Content:       content,
		DefaultLimit:  r.Limits.Default,
		Logger:        r.component("recall.hybrid"),
	}

	r.Registry = NewRegistry()
	r.Registry.Register(core.AlgorithmContent, content)
	r.Registry.Register(core.AlgorithmCollaborative, collaborative)
	r.Registry.Register(core.AlgorithmHybrid, hybrid)

	r.Popular = popular
	r.BoughtTogether = &recall.BoughtTogether{
		Orders:       stores.Orders,
		Catalog:      stores.Catalog,
		MaxOrders:    r.Limits.MaxOrders,
		DefaultLimit: r.Limits.BoughtTogether,
		Logger:       r.component("recall.bought_together"),
	}
	r.History = &recall.UserHistory{
		Log:          stores.Log,
		Catalog:      stores.Catalog,
		BehaviorType: core.InteractionView,
		TopK:         r.Limits.RecentlyViewed,
		Logger:       r.component("recall.user_history"),
	}
	r.Affinity = &recall.CategoryAffinity{
		Log:             stores.Log,
		Catalog:         stores.Catalog,
		MaxInteractions: r.Limits.MaxUserInteractions,
		TopK:            r.Limits.CategorySuggestions,
	}
	return r
}

// RecordInteraction 校验并追加一条行为。
// 校验失败返回 INVALID_INPUT，存储失败返回 UNAVAILABLE。
func (r *Recommender) RecordInteraction(ctx context.Context, userID, productID, typ string) (core.Interaction, error) {
	defer r.Metrics.observe("record_interaction", time.Now())

	in, err := core.NewInteraction(core.TrackRequest{UserID: userID, ProductID: productID, Type: typ}, r.now())
	if err != nil {
		return core.Interaction{}, err
	}
	if err := r.Log.Append(ctx, in); err != nil {
		return core.Interaction{}, fmt.Errorf("record interaction: %w", core.Unavailable(core.ModuleInteraction, err))
	}
	r.Metrics.interaction(in.Type)
	r.Logger.Debug().
		Str("user_id", in.UserID).
		Str("product_id", in.ProductID).
		Str("type", string(in.Type)).
		Msg("interaction recorded")
	return in, nil
}

// GetRecommendations 按算法分发。缺省算法为 hybrid，无法识别的算法退化为 content-based。
func (r *Recommender) GetRecommendations(ctx context.Context, req Request) []*core.Item {
	defer r.Metrics.observe("recommendations", time.Now())

	alg := core.ParseAlgorithm(req.Algorithm)
	src, ok := r.Registry.Get(alg)
	if !ok {
		r.Logger.Warn().Str("algorithm", string(alg)).Strs("registered", r.Registry.Algorithms()).Msg("algorithm not registered")
		return []*core.Item{}
	}
	rctx := &core.RecommendContext{
		UserID:    req.UserID,
		ProductID: req.ProductID,
		Category:  req.Category,
		Limit:     r.clamp(req.Limit, r.Limits.Default),
	}
	items := r.run(ctx, "recommendations", src, rctx)
	r.Metrics.recommendation(alg, items)
	return items
}

// GetBoughtTogether 返回与 productID 一起购买最多的商品，最多 Limits.BoughtTogether 个。
func (r *Recommender) GetBoughtTogether(ctx context.Context, productID string) []*core.Item {
	defer r.Metrics.observe("bought_together", time.Now())

	rctx := &core.RecommendContext{ProductID: productID, Limit: r.Limits.BoughtTogether}
	items := r.run(ctx, "bought_together", r.BoughtTogether, rctx)
	r.Metrics.items(items)
	return items
}

// run 执行召回源并应用后置过滤；出错时降级为空列表。
func (r *Recommender) run(ctx context.Context, op string, src recall.Source, rctx *core.RecommendContext) []*core.Item {
	if src == nil {
		return []*core.Item{}
	}
	items, err := src.Recall(ctx, rctx)
	if err != nil {
		r.Logger.Warn().Err(err).Str("operation", op).Str("source", src.Name()).Msg("recommendation degraded to empty list")
		r.Metrics.degraded(op)
		return []*core.Item{}
	}
	if len(r.Filters) > 0 {
		node := &filter.FilterNode{Filters: r.Filters, Logger: r.Logger}
		items, err = node.Process(ctx, rctx, items)
		if err != nil {
			r.Logger.Warn().Err(err).Str("operation", op).Msg("post filter failed")
			r.Metrics.degraded(op)
			return []*core.Item{}
		}
	}
	if items == nil {
		items = []*core.Item{}
	}
	return items
}

// clamp 把请求条数限制在 (0, Limits.Max]。
func (r *Recommender) clamp(limit, def int) int {
	if limit <= 0 {
		limit = def
	}
	if r.Limits.Max > 0 && limit > r.Limits.Max {
		limit = r.Limits.Max
	}
	return limit
}

func (r *Recommender) component(name string) zerolog.Logger {
	return r.Logger.With().Str("component", name).Logger()
}

func (r *Recommender) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func mergeLimits(base, override Limits) Limits {
	pick := func(b, o int) int {
		if o > 0 {
			return o
		}
		return b
	}
	base.Default = pick(base.Default, override.Default)
	base.Max = pick(base.Max, override.Max)
	base.Home = pick(base.Home, override.Home)
	base.Trending = pick(base.Trending, override.Trending)
	base.RecentlyViewed = pick(base.RecentlyViewed, override.RecentlyViewed)
	base.CategorySuggestions = pick(base.CategorySuggestions, override.CategorySuggestions)
	base.BoughtTogether = pick(base.BoughtTogether, override.BoughtTogether)
	base.MaxOrders = pick(base.MaxOrders, override.MaxOrders)
	base.MaxUserInteractions = pick(base.MaxUserInteractions, override.MaxUserInteractions)
	if override.PopularityWindow > 0 {
		base.PopularityWindow = override.PopularityWindow
	}
	return base
}
