package store

import (
	"context"
	"sync"
	"time"

	"github.com/rushteam/cartrec/core"
)

// MemoryInteractionLog 是内存实现的行为日志，用于测试/开发/原型。
// 支持保留窗口（TTL），但进程重启后数据丢失。
//   - 读操作按时钟过滤掉超出窗口的记录
//   - 后台 ticker 定期物理删除过期记录
type MemoryInteractionLog struct {
	mu        sync.RWMutex
	records   []core.Interaction // 按追加顺序（时间正序）
	retention time.Duration
	now       func() time.Time
	clean     *time.Ticker
	done      chan struct{}
	closeOnce sync.Once
}

// MemoryOption 配置内存后端。
type MemoryOption func(*MemoryInteractionLog)

// WithClock 替换时钟，便于测试保留窗口。
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryInteractionLog) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRetention 修改保留窗口，默认 30 天。
func WithRetention(d time.Duration) MemoryOption {
	return func(m *MemoryInteractionLog) {
		if d > 0 {
			m.retention = d
		}
	}
}

// WithCleanupInterval 修改后台清理周期，<= 0 表示不启动清理协程。
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(m *MemoryInteractionLog) {
		if m.clean != nil {
			m.clean.Stop()
			m.clean = nil
		}
		if d > 0 {
			m.clean = time.NewTicker(d)
		}
	}
}

func NewMemoryInteractionLog(opts ...MemoryOption) *MemoryInteractionLog {
	ml := &MemoryInteractionLog{
		retention: core.InteractionRetention,
		now:       time.Now,
		clean:     time.NewTicker(time.Minute),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ml)
	}
	if ml.clean != nil {
		go ml.cleanup()
	}
	return ml
}

func (m *MemoryInteractionLog) Name() string { return "memory" }

func (m *MemoryInteractionLog) Append(_ context.Context, in core.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if in.CreatedAt.IsZero() {
		in.CreatedAt = m.now()
	}
	// 保持时间正序；乱序写入（测试数据）向前插入
	i := len(m.records)
	for i > 0 && m.records[i-1].CreatedAt.After(in.CreatedAt) {
		i--
	}
	m.records = append(m.records, core.Interaction{})
	copy(m.records[i+1:], m.records[i:])
	m.records[i] = in
	return nil
}

func (m *MemoryInteractionLog) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	var n int64
	for _, in := range m.records {
		if !in.Expired(now, m.retention) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryInteractionLog) CountByProduct(_ context.Context, since time.Time) ([]core.ProductCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	window := make([]core.Interaction, 0, len(m.records))
	for _, in := range m.records {
		if in.Expired(now, m.retention) || in.CreatedAt.Before(since) {
			continue
		}
		window = append(window, in)
	}
	return core.CountByProduct(window), nil
}

func (m *MemoryInteractionLog) DistinctProductIDs(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i := len(m.records) - 1; i >= 0; i-- {
		in := m.records[i]
		if in.UserID != userID || in.Expired(now, m.retention) {
			continue
		}
		if _, ok := seen[in.ProductID]; ok {
			continue
		}
		seen[in.ProductID] = struct{}{}
		out = append(out, in.ProductID)
	}
	return out, nil
}

func (m *MemoryInteractionLog) DistinctUserIDs(_ context.Context, productIDs []string, excludeUserID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	products := toSet(productIDs)
	now := m.now()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i := len(m.records) - 1; i >= 0; i-- {
		in := m.records[i]
		if in.UserID == excludeUserID || in.Expired(now, m.retention) {
			continue
		}
		if _, ok := products[in.ProductID]; !ok {
			continue
		}
		if _, ok := seen[in.UserID]; ok {
			continue
		}
		seen[in.UserID] = struct{}{}
		out = append(out, in.UserID)
	}
	return out, nil
}

func (m *MemoryInteractionLog) ProductIDsByUsers(_ context.Context, userIDs []string, excludeProductIDs []string, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := toSet(userIDs)
	exclude := toSet(excludeProductIDs)
	now := m.now()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i := len(m.records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		in := m.records[i]
		if in.Expired(now, m.retention) {
			continue
		}
		if _, ok := users[in.UserID]; !ok {
			continue
		}
		if _, ok := exclude[in.ProductID]; ok {
			continue
		}
		if _, ok := seen[in.ProductID]; ok {
			continue
		}
		seen[in.ProductID] = struct{}{}
		out = append(out, in.ProductID)
	}
	return out, nil
}

func (m *MemoryInteractionLog) Recent(_ context.Context, userID string, typ core.InteractionType, limit int) ([]core.Interaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	out := make([]core.Interaction, 0)
	for i := len(m.records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		in := m.records[i]
		if in.UserID != userID || in.Expired(now, m.retention) {
			continue
		}
		if typ != "" && in.Type != typ {
			continue
		}
		out = append(out, in)
	}
	return out, nil
}

func (m *MemoryInteractionLog) Close() error {
	m.closeOnce.Do(func() {
		if m.clean != nil {
			m.clean.Stop()
		}
		close(m.done)
	})
	return nil
}

// Len 返回物理存储的记录数（包含尚未清理的过期记录）。
func (m *MemoryInteractionLog) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MemoryInteractionLog) cleanup() {
	for {
		select {
		case <-m.done:
			return
		case <-m.clean.C:
			m.purge()
		}
	}
}

// purge 物理删除过期记录。
func (m *MemoryInteractionLog) purge() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	kept := m.records[:0]
	for _, in := range m.records {
		if !in.Expired(now, m.retention) {
			kept = append(kept, in)
		}
	}
	m.records = kept
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

var _ core.InteractionLog = (*MemoryInteractionLog)(nil)
