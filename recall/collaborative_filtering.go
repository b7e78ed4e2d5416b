package recall

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/cartrec/core"
	"github.com/rushteam/cartrec/pipeline"
)

// UserBasedCF 是基于用户的协同过滤召回源（CollaborativeEngine）。
//
// 核心思想："兴趣相似的用户，喜欢相似的物品"
//
// 算法流程：
//  1. 取目标用户交互过的商品集合 S
//  2. 取与 S 中任一商品交互过的其他用户 U
//  3. 取 U 交互过、且不在 S 中的候选商品
//  4. 解析为商品，理由 "Users with similar taste also liked this"
//
// 四个降级点（用户无效、S 为空、U 为空、候选为空）都委托给 Fallback（通常是 Popular），
// 并用 fallback 标签区分。
type UserBasedCF struct {
	Log     core.InteractionLog
	Catalog core.Catalog

	// Users 用于判断用户是否存在；为 nil 时任何合法 ID 都视为用户
	Users core.UserDirectory

	// Fallback 是没有协同信号时的降级召回源
	Fallback Source

	// MaxUserItems 限制参与计算的目标用户商品数
	MaxUserItems int

	// TopKSimilarUsers 限制参与计算的相似用户数
	TopKSimilarUsers int

	// DefaultLimit 是未指定 Limit 时的返回条数
	DefaultLimit int

	Logger zerolog.Logger
}

// 降级原因
const (
	FallbackUnknownUser    = "unknown_user"
	FallbackNoInteractions = "no_interactions"
	FallbackNoSimilarUsers = "no_similar_users"
	FallbackNoCandidates   = "no_candidates"
)

func (r *UserBasedCF) Name() string {
	return "recall.u2i" // 工业标准命名：u2i (User-to-Item)
}

func (r *UserBasedCF) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *UserBasedCF) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *UserBasedCF) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if rctx == nil {
		rctx = &core.RecommendContext{}
	}
	limit := rctx.LimitOr(r.defaultLimit())

	var reason string
	return FirstOf(ctx,
		func(ctx context.Context) ([]*core.Item, bool, error) {
			items, why, err := r.collaborate(ctx, rctx.UserID, limit)
			reason = why
			return items, why == "", err
		},
		func(ctx context.Context) ([]*core.Item, bool, error) {
			r.Logger.Debug().Str("user_id", rctx.UserID).Str("fallback", reason).Msg("no collaborative signal, falling back to popular")
			return r.fallback(rctx.WithLimit(limit), reason)(ctx)
		},
	)
}

// collaborate 执行协同过滤；没有协同信号时返回对应的降级原因。
func (r *UserBasedCF) collaborate(ctx context.Context, rawUserID string, limit int) ([]*core.Item, string, error) {
	userID, ok, err := r.resolveUser(ctx, rawUserID)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, FallbackUnknownUser, nil
	}

	seen, err := r.Log.DistinctProductIDs(ctx, userID.String())
	if err != nil {
		return nil, "", err
	}
	if len(seen) == 0 {
		return nil, FallbackNoInteractions, nil
	}
	seen = truncate(seen, r.maxUserItems())

	similar, err := r.Log.DistinctUserIDs(ctx, seen, userID.String())
	if err != nil {
		return nil, "", err
	}
	if len(similar) == 0 {
		return nil, FallbackNoSimilarUsers, nil
	}
	similar = truncate(similar, r.topKSimilarUsers())

	ids, err := r.Log.ProductIDsByUsers(ctx, similar, seen, limit)
	if err != nil {
		return nil, "", err
	}
	// 候选商品都已下架时同样视为没有候选
	products, err := r.Catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, "", core.Unavailable(core.ModuleCatalog, err)
	}
	if len(products) == 0 {
		return nil, FallbackNoCandidates, nil
	}
	items := toItems(products, core.ReasonCollaborative, core.ScoreCollaborative)
	return tag(items, "collaborative", ""), "", nil
}

// resolveUser 解析并确认用户存在，ok=false 表示匿名或未知用户。
func (r *UserBasedCF) resolveUser(ctx context.Context, raw string) (core.ID, bool, error) {
	id, ok := core.ParseID(raw)
	if !ok {
		return "", false, nil
	}
	if r.Users == nil {
		return id, true, nil
	}
	exists, err := r.Users.UserExists(ctx, id.String())
	if err != nil {
		return "", false, core.Unavailable(core.ModuleUser, err)
	}
	if !exists {
		return "", false, nil
	}
	return id, true, nil
}

func (r *UserBasedCF) fallback(rctx *core.RecommendContext, reason string) Step {
	if r.Fallback == nil {
		return func(context.Context) ([]*core.Item, bool, error) {
			return []*core.Item{}, true, nil
		}
	}
	return Delegate(r.Fallback, rctx, reason)
}

func (r *UserBasedCF) defaultLimit() int {
	if r.DefaultLimit <= 0 {
		return 6
	}
	return r.DefaultLimit
}

func (r *UserBasedCF) maxUserItems() int {
	if r.MaxUserItems <= 0 {
		return 500
	}
	return r.MaxUserItems
}

func (r *UserBasedCF) topKSimilarUsers() int {
	if r.TopKSimilarUsers <= 0 {
		return 50 // 默认考虑最近的 50 个相似用户
	}
	return r.TopKSimilarUsers
}

func truncate(ids []string, n int) []string {
	if n > 0 && len(ids) > n {
		return ids[:n]
	}
	return ids
}
