package core

import (
	"context"
	"time"
)

// 存储接口定义在领域层（core），由基础设施层（store）实现：
//   - store.MemoryCatalog / store.MemoryOrders / store.MemoryUsers 分别实现 Catalog、OrderHistory、UserDirectory
//   - store.PostgresStore 同时实现 Catalog、OrderHistory、UserDirectory
//   - store.MemoryInteractionLog / store.RedisInteractionLog 实现 InteractionLog
//
// 后端故障应返回 UNAVAILABLE（见 Unavailable），与"没有数据"区分开。

// Catalog 是只读商品目录。
type Catalog interface {
	Name() string

	// Get 按 ID 读取商品，不存在时返回 ErrStoreNotFound
	Get(ctx context.Context, id string) (*Product, error)

	// GetMany 批量读取，保持 ids 的顺序，跳过不存在的商品
	GetMany(ctx context.Context, ids []string) ([]*Product, error)

	// Find 按类目过滤、排序并截断
	Find(ctx context.Context, q ProductQuery) ([]*Product, error)
}

// OrderHistory 是只读订单历史。
type OrderHistory interface {
	Name() string

	// OrdersContaining 返回包含 productID 的订单，按创建时间倒序，最多 limit 条
	OrdersContaining(ctx context.Context, productID string, limit int) ([]*Order, error)
}

// UserDirectory 用于判断 userID 是否对应真实用户。
type UserDirectory interface {
	Name() string
	UserExists(ctx context.Context, userID string) (bool, error)
}

// ProductCount 是按商品聚合的计数。
type ProductCount struct {
	ProductID string
	Count     int
}

// InteractionLog 是只追加的行为日志，带保留窗口。
// 所有读操作都忽略超出保留窗口的记录；distinct / recent 查询按最近一次行为倒序返回。
type InteractionLog interface {
	Name() string

	// Append 追加一条行为
	Append(ctx context.Context, in Interaction) error

	// Count 返回整个日志（保留窗口内）的行为总数
	Count(ctx context.Context) (int64, error)

	// CountByProduct 统计 since 之后每个商品的行为次数，按次数倒序
	CountByProduct(ctx context.Context, since time.Time) ([]ProductCount, error)

	// DistinctProductIDs 返回用户交互过的商品（任意类型）
	DistinctProductIDs(ctx context.Context, userID string) ([]string, error)

	// DistinctUserIDs 返回与 productIDs 中任一商品交互过的其他用户
	DistinctUserIDs(ctx context.Context, productIDs []string, excludeUserID string) ([]string, error)

	// ProductIDsByUsers 返回 userIDs 交互过、且不在 excludeProductIDs 中的商品，最多 limit 个
	ProductIDsByUsers(ctx context.Context, userIDs []string, excludeProductIDs []string, limit int) ([]string, error)

	// Recent 返回用户最近的行为，typ 为空表示任意类型
	Recent(ctx context.Context, userID string, typ InteractionType, limit int) ([]Interaction, error)
}

// Store 错误定义（使用统一的 DomainError）
var (
	// ErrStoreNotFound 表示记录不存在
	ErrStoreNotFound = NewDomainError(ModuleCatalog, ErrorCodeNotFound, "store: record not found")
)

// IsStoreNotFound 检查错误是否为记录不存在
func IsStoreNotFound(err error) bool {
	return IsNotFound(err)
}
