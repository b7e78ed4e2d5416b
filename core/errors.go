package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 使用场景：
//   - 写路径校验失败：INVALID_INPUT（ValidationError）
//   - 存储错误：NOT_FOUND, UNAVAILABLE（StoreUnavailable）
//
// 读路径（推荐）永远不会把 DomainError 抛出引擎边界，只有写路径（埋点）会原样返回。
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "UNAVAILABLE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "catalog", "interaction"）
	Err     error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// GetDomainError 获取错误链中的 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// Unavailable 把后端错误包装为 UNAVAILABLE，用于区分"存储故障"与"没有数据"。
func Unavailable(module string, err error) error {
	if err == nil {
		return nil
	}
	if IsUnavailable(err) {
		return err
	}
	return &DomainError{
		Module:  module,
		Code:    ErrorCodeUnavailable,
		Message: module + ": store unavailable",
		Err:     err,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound     = "NOT_FOUND"     // 资源不存在
	ErrorCodeUnavailable  = "UNAVAILABLE"   // 存储不可用
	ErrorCodeInvalidInput = "INVALID_INPUT" // 输入无效
)

// 模块名称常量
const (
	ModuleCatalog     = "catalog"
	ModuleOrder       = "order"
	ModuleUser        = "user"
	ModuleInteraction = "interaction"
	ModuleEngine      = "engine"
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	return hasCode(err, ErrorCodeUnavailable)
}

// IsValidation 检查错误是否为 INVALID_INPUT（埋点请求格式错误）
func IsValidation(err error) bool {
	return hasCode(err, ErrorCodeInvalidInput)
}
