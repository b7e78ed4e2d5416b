package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/cartrec/core"
)

// Home 是个性化首页。四个区块都不为 nil。
type Home struct {
	Recommendations     []*core.Item    `json:"recommendations"`
	Trending            []*core.Item    `json:"trending"`
	RecentlyViewed      []*core.Product `json:"recentlyViewed"`
	CategorySuggestions []string        `json:"categorySuggestions"`
}

// GetPersonalizedHome 组装个性化首页（PersonalizedHomeAssembler）。
//
//   - recommendations：hybrid(userID, limit=Home)，为空时退回不过滤的内容推荐
//   - trending：popular(Trending)，匿名用户同样计算
//   - recentlyViewed：最近浏览的商品
//   - categorySuggestions：行为最多的类目
//
// 匿名用户只有 trending 和不过滤的 recommendations。区块之间并发执行，互不影响。
func (r *Recommender) GetPersonalizedHome(ctx context.Context, rawUserID string) *Home {
	defer r.Metrics.observe("personalized_home", time.Now())

	home := &Home{
		Recommendations:     []*core.Item{},
		Trending:            []*core.Item{},
		RecentlyViewed:      []*core.Product{},
		CategorySuggestions: []string{},
	}
	userID, known := core.ParseID(rawUserID)

	var eg errgroup.Group
	eg.Go(func() error {
		home.Trending = r.run(ctx, "home.trending", r.Popular, &core.RecommendContext{Limit: r.Limits.Trending})
		return nil
	})
	eg.Go(func() error {
		home.Recommendations = r.homeRecommendations(ctx, userID, known)
		return nil
	})
	if known {
		eg.Go(func() error {
			products, err := r.History.Products(ctx, userID.String())
			if err != nil {
				r.degradeSection("home.recently_viewed", err)
				return nil
			}
			home.RecentlyViewed = products
			return nil
		})
		eg.Go(func() error {
			categories, err := r.Affinity.Categories(ctx, userID.String())
			if err != nil {
				r.degradeSection("home.category_suggestions", err)
				return nil
			}
			home.CategorySuggestions = categories
			return nil
		})
	}
	_ = eg.Wait()

	r.Metrics.items(home.Recommendations)
	r.Metrics.items(home.Trending)
	return home
}

func (r *Recommender) homeRecommendations(ctx context.Context, userID core.ID, known bool) []*core.Item {
	content, _ := r.Registry.Get(core.AlgorithmContent)
	unfiltered := &core.RecommendContext{Limit: r.Limits.Home}
	if !known {
		return r.run(ctx, "home.recommendations", content, unfiltered)
	}

	hybrid, _ := r.Registry.Get(core.AlgorithmHybrid)
	items := r.run(ctx, "home.recommendations", hybrid, &core.RecommendContext{
		UserID: userID.String(),
		Limit:  r.Limits.Home,
	})
	if len(items) > 0 {
		return items
	}
	r.Logger.Debug().Str("user_id", userID.String()).Msg("no hybrid recommendations, using unfiltered content")
	return r.run(ctx, "home.recommendations", content, unfiltered)
}

func (r *Recommender) degradeSection(op string, err error) {
	r.Logger.Warn().Err(err).Str("operation", op).Msg("home section degraded to empty list")
	r.Metrics.degraded(op)
}
