package core

import "time"

// Product 是商品目录中的一条记录。对推荐引擎只读。
type Product struct {
	ID          string    `json:"_id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description"`
	Category    string    `json:"category" yaml:"category"`
	Price       float64   `json:"price" yaml:"price"`
	Image       string    `json:"image,omitempty" yaml:"image"`
	Stock       int       `json:"stock" yaml:"stock"`
	CreatedAt   time.Time `json:"createdAt" yaml:"created_at"`
}

// OrderItem 是订单中的一行。
type OrderItem struct {
	ProductID string  `json:"productId" yaml:"product_id"`
	Name      string  `json:"name,omitempty" yaml:"name"`
	Quantity  int     `json:"quantity" yaml:"quantity"`
	Price     float64 `json:"price" yaml:"price"`
}

// Order 是历史订单，只被"一起购买"使用。
type Order struct {
	ID          string      `json:"_id" yaml:"id"`
	UserID      string      `json:"userId" yaml:"user_id"`
	Items       []OrderItem `json:"items" yaml:"items"`
	TotalAmount float64     `json:"totalAmount" yaml:"total_amount"`
	Status      string      `json:"status" yaml:"status"`
	CreatedAt   time.Time   `json:"createdAt" yaml:"created_at"`
}

// Contains 判断订单是否包含某个商品。
func (o *Order) Contains(productID string) bool {
	for _, it := range o.Items {
		if it.ProductID == productID {
			return true
		}
	}
	return false
}

// SortOrder 是商品目录的排序方式。
type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
)

// ProductQuery 是商品目录查询条件。空 Category 表示不过滤。
type ProductQuery struct {
	Category  string
	ExcludeID string
	Sort      SortOrder
	Limit     int
}
