package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/cartrec/core"
)

// Fixtures 是种子数据（商品、用户、订单），用于开发环境和演示。
type Fixtures struct {
	Products []*core.Product `yaml:"products"`
	Users    []string        `yaml:"users"`
	Orders   []*core.Order   `yaml:"orders"`
}

// Seeder 是可写入种子数据的后端，PostgresStore 实现了它。
type Seeder interface {
	PutProduct(ctx context.Context, p *core.Product) error
	PutUser(ctx context.Context, userID string) error
	PutOrder(ctx context.Context, o *core.Order) error
}

// LoadFixtures 从 YAML 文件加载种子数据。
// 缺失的 ID 用 UUID 补齐，缺失的 created_at 用 now 补齐。
func LoadFixtures(path string, now time.Time) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures file: %w", err)
	}
	return ParseFixtures(data, now)
}

// ParseFixtures 解析 YAML 种子数据。
func ParseFixtures(data []byte, now time.Time) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures yaml: %w", err)
	}
	for i, p := range f.Products {
		if p == nil {
			return nil, fmt.Errorf("fixtures: product #%d is empty", i)
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
	}
	for i, o := range f.Orders {
		if o == nil {
			return nil, fmt.Errorf("fixtures: order #%d is empty", i)
		}
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		if o.CreatedAt.IsZero() {
			o.CreatedAt = now
		}
	}
	return &f, nil
}

// SeedMemory 把种子数据写入内存后端，nil 参数被跳过。
func (f *Fixtures) SeedMemory(catalog *MemoryCatalog, orders *MemoryOrders, users *MemoryUsers) {
	if catalog != nil {
		for _, p := range f.Products {
			catalog.Put(p)
		}
	}
	if orders != nil {
		for _, o := range f.Orders {
			orders.Add(o)
		}
	}
	if users != nil {
		for _, id := range f.Users {
			users.Add(id)
		}
	}
}

// Seed 把种子数据写入可写后端（如 PostgresStore）。
func (f *Fixtures) Seed(ctx context.Context, s Seeder) error {
	for _, p := range f.Products {
		if err := s.PutProduct(ctx, p); err != nil {
			return err
		}
	}
	for _, id := range f.Users {
		if err := s.PutUser(ctx, id); err != nil {
			return err
		}
	}
	for _, o := range f.Orders {
		if err := s.PutOrder(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

var _ Seeder = (*PostgresStore)(nil)
