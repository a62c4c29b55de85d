package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 使用场景：
//   - 离线训练错误：UNKNOWN_EVENT_TYPE, INSUFFICIENT_DATA, DIMENSION
//   - 在线服务错误：ENTITY_NOT_FOUND, RETRIEVAL_BACKEND
//   - 通用错误：NOT_FOUND, INVALID_INPUT, NOT_SUPPORTED
type DomainError struct {
	Code    string // 错误代码（如 "ENTITY_NOT_FOUND", "DIMENSION"）
	Message string // 错误消息
	Module  string // 模块名称（如 "weight", "factorize", "service"）
	Cause   error  // 底层错误（可选，用于 RETRIEVAL_BACKEND 等包装场景）
}

func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap 返回底层错误，支持 errors.Is / errors.As 链式检查。
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*DomainError)
	return ok
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
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

// WrapDomainError 创建携带底层错误的领域错误
func WrapDomainError(module, code, message string, cause error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误

	// 离线训练错误代码
	ErrorCodeUnknownEventType = "UNKNOWN_EVENT_TYPE" // 未注册的事件类型
	ErrorCodeInsufficientData = "INSUFFICIENT_DATA"  // 交互数据量不足
	ErrorCodeDimension        = "DIMENSION"          // 向量维度配置非法

	// 在线服务错误代码
	ErrorCodeEntityNotFound   = "ENTITY_NOT_FOUND"  // ID 在任何已知空间中都不存在
	ErrorCodeRetrievalBackend = "RETRIEVAL_BACKEND" // 检索引擎不可达/超时
)

// 模块名称常量
const (
	ModuleWeight    = "weight"    // 权重变换模块
	ModuleSplit     = "split"     // 数据切分模块
	ModuleMatrix    = "matrix"    // 稀疏矩阵模块
	ModuleFactorize = "factorize" // 矩阵分解模块
	ModuleEvaluate  = "evaluate"  // 模型评估模块
	ModuleSegment   = "segment"   // 用户分群模块
	ModuleFeed      = "feed"      // 数据导出模块
	ModuleArtifact  = "artifact"  // 模型产物模块
	ModuleVector    = "vector"    // 向量检索模块
	ModuleSignal    = "signal"    // 辅助信号模块
	ModuleService   = "service"   // 推荐服务模块
)

// 通用错误检查函数

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsUnknownEventType 检查错误是否为 UNKNOWN_EVENT_TYPE
func IsUnknownEventType(err error) bool {
	return hasCode(err, ErrorCodeUnknownEventType)
}

// IsInsufficientData 检查错误是否为 INSUFFICIENT_DATA
func IsInsufficientData(err error) bool {
	return hasCode(err, ErrorCodeInsufficientData)
}

// IsDimension 检查错误是否为 DIMENSION
func IsDimension(err error) bool {
	return hasCode(err, ErrorCodeDimension)
}

// IsEntityNotFound 检查错误是否为 ENTITY_NOT_FOUND
func IsEntityNotFound(err error) bool {
	return hasCode(err, ErrorCodeEntityNotFound)
}

// IsRetrievalBackend 检查错误是否为 RETRIEVAL_BACKEND
func IsRetrievalBackend(err error) bool {
	return hasCode(err, ErrorCodeRetrievalBackend)
}

func hasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}
