package utils

import "strings"

// Label 是推荐结果上的解释标签：可解释、可追踪、可透传。
// 例如 recall_source=collaborative、fallback=no_interactions。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rerank ...
}

// 累积多个值时使用的分隔符。
const (
	ValueSeparator  = "|"
	SourceSeparator = ","
)

// MergeLabel 合并同名 Label，保留历史：
//   - Value 以 '|' 累积
//   - Source 以 ',' 累积
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + ValueSeparator + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + SourceSeparator + incoming.Source
	}
	return merged
}

// Values 拆分累积的 Value，空 Label 返回 nil。
func (l Label) Values() []string {
	if l.Value == "" {
		return nil
	}
	return strings.Split(l.Value, ValueSeparator)
}

// Has 判断累积的 Value 中是否包含 v。
func (l Label) Has(v string) bool {
	for _, part := range l.Values() {
		if part == v {
			return true
		}
	}
	return false
}
