package filter

import (
	"context"

	"github.com/rushteam/cartrec/core"
	"github.com/rushteam/cartrec/pkg/dsl"
)

// ExprFilter 是表达式过滤器：表达式为 true 的物品被过滤。
//
// 示例：
//
//	f, _ := filter.NewExprFilter(`item.product.stock <= 0`) // 过滤缺货商品
type ExprFilter struct {
	prg *dsl.Program
}

// NewExprFilter 编译表达式，语法错误在启动时返回。
func NewExprFilter(expr string) (*ExprFilter, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{prg: prg}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	return f.prg.Eval(item, rctx)
}
