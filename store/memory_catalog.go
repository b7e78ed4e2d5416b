package store

import (
	"context"
	"sort"
	"sync"

	"github.com/rushteam/cartrec/core"
)

// MemoryCatalog 是内存商品目录。
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]*core.Product
	order    []string // 插入顺序，作为排序的稳定基准
}

func NewMemoryCatalog(products ...*core.Product) *MemoryCatalog {
	c := &MemoryCatalog{products: make(map[string]*core.Product)}
	for _, p := range products {
		c.Put(p)
	}
	return c
}

func (c *MemoryCatalog) Name() string { return "memory" }

// Put 写入或替换商品。
func (c *MemoryCatalog) Put(p *core.Product) {
	if p == nil || p.ID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.products[p.ID]; !ok {
		c.order = append(c.order, p.ID)
	}
	c.products[p.ID] = p
}

// Remove 删除商品（模拟商品下架后残留的行为/订单引用）。
func (c *MemoryCatalog) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.products[id]; !ok {
		return
	}
	delete(c.products, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *MemoryCatalog) Get(_ context.Context, id string) (*core.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	return p, nil
}

func (c *MemoryCatalog) GetMany(_ context.Context, ids []string) ([]*core.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*core.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *MemoryCatalog) Find(_ context.Context, q core.ProductQuery) ([]*core.Product, error) {
	c.mu.RLock()
	out := make([]*core.Product, 0, len(c.order))
	for _, id := range c.order {
		p := c.products[id]
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if q.ExcludeID != "" && p.ID == q.ExcludeID {
			continue
		}
		out = append(out, p)
	}
	c.mu.RUnlock()

	sortProducts(out, q.Sort)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func sortProducts(ps []*core.Product, order core.SortOrder) {
	switch order {
	case core.SortPriceAsc:
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].Price < ps[j].Price })
	case core.SortPriceDesc:
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].Price > ps[j].Price })
	default:
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].CreatedAt.After(ps[j].CreatedAt) })
	}
}

// MemoryOrders 是内存订单历史。
type MemoryOrders struct {
	mu     sync.RWMutex
	orders []*core.Order
}

func NewMemoryOrders(orders ...*core.Order) *MemoryOrders {
	o := &MemoryOrders{}
	for _, order := range orders {
		o.Add(order)
	}
	return o
}

func (o *MemoryOrders) Name() string { return "memory" }

func (o *MemoryOrders) Add(order *core.Order) {
	if order == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.orders = append(o.orders, order)
}

func (o *MemoryOrders) OrdersContaining(_ context.Context, productID string, limit int) ([]*core.Order, error) {
	o.mu.RLock()
	matched := make([]*core.Order, 0)
	for _, order := range o.orders {
		if order.Contains(productID) {
			matched = append(matched, order)
		}
	}
	o.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// MemoryUsers 是内存用户目录。
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[string]struct{}
}

func NewMemoryUsers(ids ...string) *MemoryUsers {
	u := &MemoryUsers{users: make(map[string]struct{})}
	for _, id := range ids {
		u.Add(id)
	}
	return u
}

func (u *MemoryUsers) Name() string { return "memory" }

func (u *MemoryUsers) Add(id string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.users[id] = struct{}{}
}

func (u *MemoryUsers) UserExists(_ context.Context, userID string) (bool, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.users[userID]
	return ok, nil
}

var (
	_ core.Catalog       = (*MemoryCatalog)(nil)
	_ core.OrderHistory  = (*MemoryOrders)(nil)
	_ core.UserDirectory = (*MemoryUsers)(nil)
)
