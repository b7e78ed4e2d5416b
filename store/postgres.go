package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rushteam/cartrec/core"
)

// PostgresStore 是商品目录、订单历史、用户目录的 PostgreSQL 实现。
// 推荐引擎只读这些表；写方法只用于迁移、种子数据和测试。
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore 连接数据库，不做迁移（见 Migrate）。
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, core.Unavailable(core.ModuleCatalog, err)
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStoreWithPool 使用已有连接池。
func NewPostgresStoreWithPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Migrate 创建所需的表和索引，可重复执行。
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL DEFAULT 0,
			image TEXT NOT NULL DEFAULT '',
			stock INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_products_category_created ON products (category, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY
		);`,
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			total_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS order_items (
			order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			product_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL DEFAULT 1,
			price DOUBLE PRECISION NOT NULL DEFAULT 0,
			PRIMARY KEY (order_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items (product_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate failed on %q: %w", stmt, err)
		}
	}
	return nil
}

const productColumns = `id, name, description, category, price, image, stock, created_at`

func scanProduct(row pgx.Row) (*core.Product, error) {
	var p core.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Image, &p.Stock, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*core.Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrStoreNotFound
	}
	if err != nil {
		return nil, core.Unavailable(core.ModuleCatalog, err)
	}
	return p, nil
}

func (s *PostgresStore) GetMany(ctx context.Context, ids []string) ([]*core.Product, error) {
	if len(ids) == 0 {
		return []*core.Product{}, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, core.Unavailable(core.ModuleCatalog, err)
	}
	defer rows.Close()

	byID := make(map[string]*core.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, core.Unavailable(core.ModuleCatalog, err)
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, core.Unavailable(core.ModuleCatalog, err)
	}

	out := make([]*core.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *PostgresStore) Find(ctx context.Context, q core.ProductQuery) ([]*core.Product, error) {
	var (
		where []string
		args  []any
	)
	if q.Category != "" {
		args = append(args, q.Category)
		where = append(where, fmt.Sprintf("category=$%d", len(args)))
	}
	if q.ExcludeID != "" {
		args = append(args, q.ExcludeID)
		where = append(where, fmt.Sprintf("id<>$%d", len(args)))
	}

	sql := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	switch q.Sort {
	case core.SortPriceAsc:
		sql += ` ORDER BY price ASC, created_at DESC, id`
	case core.SortPriceDesc:
		sql += ` ORDER BY price DESC, created_at DESC, id`
	default:
		sql += ` ORDER BY created_at DESC, id`
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, core.Unavailable(core.ModuleCatalog, err)
	}
	defer rows.Close()

	out := make([]*core.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, core.Unavailable(core.ModuleCatalog, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Unavailable(core.ModuleCatalog, err)
	}
	return out, nil
}

func (s *PostgresStore) OrdersContaining(ctx context.Context, productID string, limit int) ([]*core.Order, error) {
	sql := `SELECT o.id, o.user_id, o.total_amount, o.status, o.created_at
		FROM orders o
		WHERE EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id AND i.product_id = $1)
		ORDER BY o.created_at DESC, o.id`
	args := []any{productID}
	if limit > 0 {
		sql += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, core.Unavailable(core.ModuleOrder, err)
	}
	orders := make([]*core.Order, 0)
	byID := make(map[string]*core.Order)
	for rows.Next() {
		var o core.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.CreatedAt); err != nil {
			rows.Close()
			return nil, core.Unavailable(core.ModuleOrder, err)
		}
		orders = append(orders, &o)
		byID[o.ID] = &o
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, core.Unavailable(core.ModuleOrder, err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	itemRows, err := s.pool.Query(ctx,
		`SELECT order_id, product_id, name, quantity, price FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, seq`, ids)
	if err != nil {
		return nil, core.Unavailable(core.ModuleOrder, err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var (
			orderID string
			it      core.OrderItem
		)
		if err := itemRows.Scan(&orderID, &it.ProductID, &it.Name, &it.Quantity, &it.Price); err != nil {
			return nil, core.Unavailable(core.ModuleOrder, err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, core.Unavailable(core.ModuleOrder, err)
	}
	return orders, nil
}

func (s *PostgresStore) UserExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, userID).Scan(&exists)
	if err != nil {
		return false, core.Unavailable(core.ModuleUser, err)
	}
	return exists, nil
}

// PutProduct 写入或更新商品。
func (s *PostgresStore) PutProduct(ctx context.Context, p *core.Product) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name,
			description=EXCLUDED.description,
			category=EXCLUDED.category,
			price=EXCLUDED.price,
			image=EXCLUDED.image,
			stock=EXCLUDED.stock,
			created_at=EXCLUDED.created_at`,
		p.ID, p.Name, p.Description, p.Category, p.Price, p.Image, p.Stock, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

// PutUser 登记用户。
func (s *PostgresStore) PutUser(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, userID); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// PutOrder 写入订单及其明细（整单替换）。
func (s *PostgresStore) PutOrder(ctx context.Context, o *core.Order) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO orders (id, user_id, total_amount, status, created_at) VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET
			user_id=EXCLUDED.user_id,
			total_amount=EXCLUDED.total_amount,
			status=EXCLUDED.status,
			created_at=EXCLUDED.created_at`,
		o.ID, o.UserID, o.TotalAmount, o.Status, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert order: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, o.ID); err != nil {
		return fmt.Errorf("delete prior items: %w", err)
	}
	for i, it := range o.Items {
		_, err := tx.Exec(ctx,
			`INSERT INTO order_items (order_id, seq, product_id, name, quantity, price) VALUES ($1,$2,$3,$4,$5,$6)`,
			o.ID, i, it.ProductID, it.Name, it.Quantity, it.Price,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return tx.Commit(ctx)
}

var (
	_ core.Catalog       = (*PostgresStore)(nil)
	_ core.OrderHistory  = (*PostgresStore)(nil)
	_ core.UserDirectory = (*PostgresStore)(nil)
)
