// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType 定义错误类型
type ErrorType string

const (
	// 通用错误类型
	ErrorTypeValidation ErrorType = "validation_error"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeError      ErrorType = "processing_error"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeTimeout    ErrorType = "timeout"

	// 模型调用相关错误类型
	ErrorTypeMissingCredential   ErrorType = "missing_credential"
	ErrorTypeInvalidCredential   ErrorType = "invalid_credential"
	ErrorTypeQuotaExceeded       ErrorType = "quota_exceeded"
	ErrorTypeMalformedJSON       ErrorType = "malformed_json"
	ErrorTypeUnexpectedShape     ErrorType = "unexpected_response_shape"
	ErrorTypeUnexpectedPlan      ErrorType = "unexpected_plan_format"
	ErrorTypeNetworkOrService    ErrorType = "network_or_service"
)

// AppError 应用程序错误结构
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string // 用户友好的错误代码
	Excerpt string // 原始响应片段，仅用于诊断
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 实现错误链接
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError 创建新的 AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewNotFoundError 创建未找到错误
func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// NewProcessingError 创建处理错误
func NewProcessingError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeError, message, originalError)
}

// NewConflictError 创建冲突错误
func NewConflictError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeConflict, message, originalError)
}

// NewMissingCredentialError 未提供 API 密钥
func NewMissingCredentialError(message string) *AppError {
	return NewAppError(ErrorTypeMissingCredential, message, nil)
}

// NewInvalidCredentialError 服务端拒绝了 API 密钥
func NewInvalidCredentialError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeInvalidCredential, message, originalError)
}

// NewQuotaExceededError 配额耗尽
func NewQuotaExceededError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeQuotaExceeded, message, originalError)
}

// NewMalformedJSONError 创建JSON解析失败错误，excerpt 为原始输入的片段
func NewMalformedJSONError(message, excerpt string, originalError error) *AppError {
	e := NewAppError(ErrorTypeMalformedJSON, message, originalError)
	e.Excerpt = excerpt
	return e
}

// NewUnexpectedShapeError 解析成功但字段缺失或类型不符
func NewUnexpectedShapeError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeUnexpectedShape, message, originalError)
}

// NewUnexpectedPlanFormatError 计划响应格式不符
func NewUnexpectedPlanFormatError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeUnexpectedPlan, message, originalError)
}

// NewNetworkOrServiceError 网络或服务错误
func NewNetworkOrServiceError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNetworkOrService, message, originalError)
}

// TypeOf 返回错误链中第一个 AppError 的类型
func TypeOf(err error) (ErrorType, bool) {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type, true
	}
	return "", false
}

func isType(err error, t ErrorType) bool {
	got, ok := TypeOf(err)
	return ok && got == t
}

// IsValidationError 检查是否为验证错误
func IsValidationError(err error) bool { return isType(err, ErrorTypeValidation) }

// IsNotFoundError 检查是否为未找到错误
func IsNotFoundError(err error) bool { return isType(err, ErrorTypeNotFound) }

// IsConflictError 检查是否为冲突错误
func IsConflictError(err error) bool { return isType(err, ErrorTypeConflict) }

func IsMissingCredentialError(err error) bool { return isType(err, ErrorTypeMissingCredential) }

func IsInvalidCredentialError(err error) bool { return isType(err, ErrorTypeInvalidCredential) }

func IsQuotaExceededError(err error) bool { return isType(err, ErrorTypeQuotaExceeded) }

func IsMalformedJSONError(err error) bool { return isType(err, ErrorTypeMalformedJSON) }

// IsUnexpectedShapeError 同时匹配计划格式错误
func IsUnexpectedShapeError(err error) bool {
	return isType(err, ErrorTypeUnexpectedShape) || isType(err, ErrorTypeUnexpectedPlan)
}

func IsUnexpectedPlanFormatError(err error) bool { return isType(err, ErrorTypeUnexpectedPlan) }

func IsNetworkOrServiceError(err error) bool { return isType(err, ErrorTypeNetworkOrService) }

// IsCredentialError 缺失或无效的密钥
func IsCredentialError(err error) bool {
	return IsMissingCredentialError(err) || IsInvalidCredentialError(err)
}

// generateErrorCode 根据错误类型生成错误代码
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeError:
		return "PROCESSING_ERROR"
	case ErrorTypeConflict:
		return "CONFLICT"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	case ErrorTypeMissingCredential:
		return "MISSING_CREDENTIAL"
	case ErrorTypeInvalidCredential:
		return "INVALID_CREDENTIAL"
	case ErrorTypeQuotaExceeded:
		return "QUOTA_EXCEEDED"
	case ErrorTypeMalformedJSON:
		return "MALFORMED_JSON"
	case ErrorTypeUnexpectedShape:
		return "UNEXPECTED_RESPONSE_SHAPE"
	case ErrorTypeUnexpectedPlan:
		return "UNEXPECTED_PLAN_FORMAT"
	case ErrorTypeNetworkOrService:
		return "NETWORK_OR_SERVICE_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// HTTPStatus 把错误类型映射为HTTP状态码
func HTTPStatus(err error) int {
	t, ok := TypeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch t {
	case ErrorTypeValidation, ErrorTypeMissingCredential:
		return http.StatusBadRequest
	case ErrorTypeInvalidCredential:
		return http.StatusUnauthorized
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeQuotaExceeded:
		return http.StatusTooManyRequests
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypeMalformedJSON, ErrorTypeUnexpectedShape, ErrorTypeUnexpectedPlan, ErrorTypeNetworkOrService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Code 返回错误代码，非 AppError 返回 INTERNAL_ERROR
func Code(err error) string {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Code
	}
	return "INTERNAL_ERROR"
}

// WrapError 包装现有错误
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		// 如果已经是 AppError，只更新消息
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
			Excerpt: appError.Excerpt,
		}
	}

	// 否则创建新的 AppError
	return NewAppError(errType, message, err)
}
