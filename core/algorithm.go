package core

import "strings"

// Algorithm 是推荐策略选择器。
type Algorithm string

const (
	AlgorithmContent       Algorithm = "content-based"
	AlgorithmCollaborative Algorithm = "collaborative"
	AlgorithmHybrid        Algorithm = "hybrid"
)

// ParseAlgorithm 解析策略选择器：缺省为 hybrid，无法识别的值退化为 content-based。
func ParseAlgorithm(s string) Algorithm {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return AlgorithmHybrid
	case AlgorithmContent, AlgorithmCollaborative, AlgorithmHybrid:
		return a
	default:
		return AlgorithmContent
	}
}
