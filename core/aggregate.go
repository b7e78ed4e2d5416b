package core

import "sort"

// 计数聚合都是对已取回数据的纯函数：group-by -> sum -> 稳定降序。
// 同分时按在输入中第一次出现的顺序排列，保证结果确定。

// CountByProduct 按商品统计行为次数。
func CountByProduct(interactions []Interaction) []ProductCount {
	idx := make(map[string]int, len(interactions))
	out := make([]ProductCount, 0)
	for _, in := range interactions {
		if in.ProductID == "" {
			continue
		}
		if i, ok := idx[in.ProductID]; ok {
			out[i].Count++
			continue
		}
		idx[in.ProductID] = len(out)
		out = append(out, ProductCount{ProductID: in.ProductID, Count: 1})
	}
	sortCounts(out)
	return out
}

// CountCoOccurrences 统计与 productID 出现在同一订单中的其他商品次数。
// 订单按传入顺序扫描；同一订单内的每一行都计一次。
func CountCoOccurrences(orders []*Order, productID string) []ProductCount {
	idx := make(map[string]int)
	out := make([]ProductCount, 0)
	for _, o := range orders {
		if o == nil || !o.Contains(productID) {
			continue
		}
		for _, it := range o.Items {
			if it.ProductID == "" || it.ProductID == productID {
				continue
			}
			if i, ok := idx[it.ProductID]; ok {
				out[i].Count++
				continue
			}
			idx[it.ProductID] = len(out)
			out = append(out, ProductCount{ProductID: it.ProductID, Count: 1})
		}
	}
	sortCounts(out)
	return out
}

// CategoryCount 是按类目聚合的计数。
type CategoryCount struct {
	Category string
	Count    int
}

// CountCategories 统计行为涉及的类目次数，找不到商品的行为被跳过。
func CountCategories(interactions []Interaction, products map[string]*Product) []CategoryCount {
	idx := make(map[string]int)
	out := make([]CategoryCount, 0)
	for _, in := range interactions {
		p, ok := products[in.ProductID]
		if !ok || p == nil || p.Category == "" {
			continue
		}
		if i, ok := idx[p.Category]; ok {
			out[i].Count++
			continue
		}
		idx[p.Category] = len(out)
		out = append(out, CategoryCount{Category: p.Category, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// ProductIDs 取出计数结果中的商品 ID（保持顺序）。
func ProductIDs(counts []ProductCount) []string {
	ids := make([]string, 0, len(counts))
	for _, c := range counts {
		ids = append(ids, c.ProductID)
	}
	return ids
}

func sortCounts(counts []ProductCount) {
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
}
