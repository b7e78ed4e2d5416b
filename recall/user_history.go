package recall

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/cartrec/core"
)

// UserHistory 读取用户最近的行为，并解析为商品（"最近浏览"）。
// 不是召回源：结果是商品而不是推荐条目。
type UserHistory struct {
	Log     core.InteractionLog
	Catalog core.Catalog

	// BehaviorType 行为类型，默认 view
	BehaviorType core.InteractionType

	// TopK 读取最近的 TopK 条行为，默认 6
	TopK int

	Logger zerolog.Logger
}

// Products 返回最近行为对应的商品，最新在前。
// 同一商品只出现一次；已下架的商品被跳过；匿名用户返回空列表。
func (r *UserHistory) Products(ctx context.Context, rawUserID string) ([]*core.Product, error) {
	userID, ok := core.ParseID(rawUserID)
	if !ok {
		return []*core.Product{}, nil
	}

	behaviorType := r.BehaviorType
	if behaviorType == "" {
		behaviorType = core.InteractionView
	}
	topK := r.TopK
	if topK <= 0 {
		topK = 6
	}

	history, err := r.Log.Recent(ctx, userID.String(), behaviorType, topK)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(history))
	seen := make(map[string]struct{}, len(history))
	for _, in := range history {
		if _, ok := seen[in.ProductID]; ok {
			continue
		}
		seen[in.ProductID] = struct{}{}
		ids = append(ids, in.ProductID)
	}

	products, err := r.Catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, core.Unavailable(core.ModuleCatalog, err)
	}
	if skipped := len(ids) - len(products); skipped > 0 {
		r.Logger.Debug().Str("user_id", userID.String()).Int("skipped", skipped).Msg("history references removed products")
	}
	return products, nil
}

// CategoryAffinity 统计用户行为最多的类目（"猜你喜欢的类目"）。
type CategoryAffinity struct {
	Log     core.InteractionLog
	Catalog core.Catalog

	// MaxInteractions 参与统计的最近行为条数上限，默认 500
	MaxInteractions int

	// TopK 返回的类目数，默认 3
	TopK int
}

// Categories 返回按行为次数降序的类目，匿名用户返回空列表。
func (r *CategoryAffinity) Categories(ctx context.Context, rawUserID string) ([]string, error) {
	userID, ok := core.ParseID(rawUserID)
	if !ok {
		return []string{}, nil
	}
	maxInteractions := r.MaxInteractions
	if maxInteractions <= 0 {
		maxInteractions = 500
	}
	topK := r.TopK
	if topK <= 0 {
		topK = 3
	}

	history, err := r.Log.Recent(ctx, userID.String(), "", maxInteractions)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(history))
	seen := make(map[string]struct{}, len(history))
	for _, in := range history {
		if _, ok := seen[in.ProductID]; !ok {
			seen[in.ProductID] = struct{}{}
			ids = append(ids, in.ProductID)
		}
	}
	products, err := r.Catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, core.Unavailable(core.ModuleCatalog, err)
	}
	byID := make(map[string]*core.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	counts := core.CountCategories(history, byID)
	if len(counts) > topK {
		counts = counts[:topK]
	}
	out := make([]string, 0, len(counts))
	for _, c := range counts {
		out = append(out, c.Category)
	}
	return out, nil
}
