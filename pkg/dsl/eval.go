package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/cartrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// getCELEnv 获取或创建 CEL 环境，定义变量
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译后的布尔表达式，使用 CEL (Common Expression Language) 实现。
// 编译一次，可以被多个请求并发执行。
//
// 表达式语法（CEL 标准语法）：
//   - 商品：item.product.stock <= 0 / item.product.category == "Fashion"
//   - 数值：item.score > 0.7 / item.product.price >= 1000.0
//   - 标签：label.recall_source == "popular" / has(label.fallback)
//   - 请求：rctx.user_id == "" / rctx.category == "Home"
//
// 示例：
//   - `item.product.stock <= 0` → 缺货商品
//   - `has(label.fallback) && item.product.price > 50000.0`
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式，返回类型必须是 bool。
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (p *Program) String() string { return p.expr }

// Eval 对单个推荐结果执行表达式。
// 访问不存在的 key 会报错，用 has(label.key) 检查存在性。
func (p *Program) Eval(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any, len(item.Labels))
	for k, v := range item.Labels {
		labels[k] = v.Value
	}

	product := map[string]any{}
	if p := item.Product; p != nil {
		product = map[string]any{
			"id":         p.ID,
			"name":       p.Name,
			"category":   p.Category,
			"price":      p.Price,
			"stock":      int64(p.Stock),
			"created_at": p.CreatedAt,
		}
	}

	in := map[string]any{
		"item": map[string]any{
			"id":      item.ID,
			"score":   item.Score,
			"reason":  item.Reason,
			"product": product,
			"labels":  labels,
		},
		"label": labels,
		"rctx":  map[string]any{},
	}
	if rctx != nil {
		params := rctx.Params
		if params == nil {
			params = map[string]any{}
		}
		in["rctx"] = map[string]any{
			"user_id":    rctx.UserID,
			"product_id": rctx.ProductID,
			"category":   rctx.Category,
			"limit":      int64(rctx.Limit),
			"params":     params,
		}
	}
	return in
}
