package server

import (
	"time"

	"github.com/rushteam/cartrec/core"
	"github.com/rushteam/cartrec/recall"
	"github.com/rushteam/cartrec/service"
)

// itemResponse 把商品字段摊平，并附上推荐理由与分数。
type itemResponse struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Image       string    `json:"image,omitempty"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"createdAt"`
	Reason      string    `json:"reason"`
	MatchScore  float64   `json:"matchScore"`
	Source      string    `json:"source,omitempty"`
	Fallback    string    `json:"fallback,omitempty"`
}

type recommendationsResponse struct {
	Algorithm       string         `json:"algorithm"`
	Recommendations []itemResponse `json:"recommendations"`
}

type homeResponse struct {
	Recommendations     []itemResponse  `json:"recommendations"`
	Trending            []itemResponse  `json:"trending"`
	RecentlyViewed      []*core.Product `json:"recentlyViewed"`
	CategorySuggestions []string        `json:"categorySuggestions"`
}

type interactionRequest struct {
	ProductID string `json:"productId"`
	Type      string `json:"type"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func toItemResponses(items []*core.Item) []itemResponse {
	out := make([]itemResponse, 0, len(items))
	for _, it := range items {
		if it == nil || it.Product == nil {
			continue
		}
		p := it.Product
		out = append(out, itemResponse{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Category:    p.Category,
			Price:       p.Price,
			Image:       p.Image,
			Stock:       p.Stock,
			CreatedAt:   p.CreatedAt,
			Reason:      it.Reason,
			MatchScore:  it.Score,
			Source:      it.Label(recall.LabelRecallSource),
			Fallback:    it.Label(recall.LabelFallback),
		})
	}
	return out
}

func toHomeResponse(h *service.Home) homeResponse {
	return homeResponse{
		Recommendations:     toItemResponses(h.Recommendations),
		Trending:            toItemResponses(h.Trending),
		RecentlyViewed:      h.RecentlyViewed,
		CategorySuggestions: h.CategorySuggestions,
	}
}
