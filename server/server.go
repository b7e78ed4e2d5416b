package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rushteam/cartrec/core"
	"github.com/rushteam/cartrec/service"
)

// UserHeader 携带上游认证层解析出的用户 ID。
const UserHeader = "X-User-ID"

var errEmptyBody = errors.New("empty request body")

// Recommender 是 HTTP 层依赖的推荐服务。
type Recommender interface {
	RecordInteraction(ctx context.Context, userID, productID, typ string) (core.Interaction, error)
	GetRecommendations(ctx context.Context, req service.Request) []*core.Item
	GetPersonalizedHome(ctx context.Context, userID string) *service.Home
	GetBoughtTogether(ctx context.Context, productID string) []*core.Item
}

// Server 把推荐服务暴露为 HTTP 接口。
type Server struct {
	rec      Recommender
	gatherer prometheus.Gatherer
	logger   zerolog.Logger
}

// New 创建 Server。gatherer 为 nil 时 /metrics 使用默认 Gatherer。
func New(rec Recommender, gatherer prometheus.Gatherer, logger zerolog.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{rec: rec, gatherer: gatherer, logger: logger}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/interactions", s.handleRecordInteraction)
		r.Get("/recommendations", s.handleRecommendations)
		r.Get("/recommendations/bought-together/{productId}", s.handleBoughtTogether)
		r.Get("/personalized/home", s.handleHome)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRecordInteraction(w http.ResponseWriter, r *http.Request) {
	var req interactionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, core.ErrorCodeInvalidInput, err.Error())
		return
	}
	in, err := s.rec.RecordInteraction(r.Context(), r.Header.Get(UserHeader), req.ProductID, req.Type)
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, in)
	case core.IsValidation(err):
		respondError(w, http.StatusBadRequest, core.ErrorCodeInvalidInput, err.Error())
	default:
		s.logger.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("record interaction failed")
		respondError(w, http.StatusInternalServerError, core.ErrorCodeUnavailable, "failed to record interaction")
	}
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := service.Request{
		Algorithm: q.Get("algorithm"),
		ProductID: q.Get("productId"),
		Category:  q.Get("category"),
		UserID:    requestUser(r),
		Limit:     parseLimit(q.Get("limit")),
	}
	items := s.rec.GetRecommendations(r.Context(), req)
	respondJSON(w, http.StatusOK, recommendationsResponse{
		Algorithm:       string(core.ParseAlgorithm(req.Algorithm)),
		Recommendations: toItemResponses(items),
	})
}

func (s *Server) handleBoughtTogether(w http.ResponseWriter, r *http.Request) {
	items := s.rec.GetBoughtTogether(r.Context(), chi.URLParam(r, "productId"))
	respondJSON(w, http.StatusOK, toItemResponses(items))
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	home := s.rec.GetPersonalizedHome(r.Context(), requestUser(r))
	respondJSON(w, http.StatusOK, toHomeResponse(home))
}

// requestUser 读取调用方用户：?userId= 优先，其次 X-User-ID 头。
func requestUser(r *http.Request) string {
	if id := r.URL.Query().Get("userId"); id != "" {
		return id
	}
	return r.Header.Get(UserHeader)
}

// logRequests 为每个请求记录一条访问日志。
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// parseLimit 解析 limit 参数，非法值返回 0（使用默认值）。
func parseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
