package core

import (
	"regexp"
	"strings"
)

// ID 是经过校验的标识符。只能通过 ParseID 获得。
type ID string

func (id ID) String() string { return string(id) }

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:-]{0,127}$`)

// ParseID 是每个引擎入口处唯一的一次标识符解析。
// 返回 false 表示"信号缺失"，调用方应走回退链，而不是报错。
func ParseID(raw string) (ID, bool) {
	s := strings.TrimSpace(raw)
	switch s {
	case "", "undefined", "null":
		return "", false
	}
	if !idPattern.MatchString(s) {
		return "", false
	}
	return ID(s), true
}

// ParseCategory 解析类目锚点。类目是自由文本（可能含空格），只去掉首尾空白并排除占位值。
func ParseCategory(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	switch s {
	case "", "undefined", "null":
		return "", false
	}
	return s, true
}
