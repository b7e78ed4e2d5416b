package service

import (
	"sort"
	"sync"

	"github.com/rushteam/cartrec/core"
	"github.com/rushteam/cartrec/recall"
)

// Registry 维护算法名到召回源的映射，getRecommendations 按它分发。
type Registry struct {
	mu      sync.RWMutex
	sources map[core.Algorithm]recall.Source
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[core.Algorithm]recall.Source)}
}

// Register 注册（或替换）一种算法的召回源。
func (r *Registry) Register(alg core.Algorithm, src recall.Source) {
	if alg == "" || src == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[alg] = src
}

// Get 返回算法对应的召回源。
func (r *Registry) Get(alg core.Algorithm) (recall.Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[alg]
	return src, ok
}

// Algorithms 返回已注册的算法（排序），用于日志与错误提示。
func (r *Registry) Algorithms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sources))
	for alg := range r.sources {
		out = append(out, string(alg))
	}
	sort.Strings(out)
	return out
}
