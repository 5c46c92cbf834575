// internal/errors/classify.go
package errors

import (
	"context"
	"errors"
	"strings"
)

// 服务端拒绝密钥时响应中出现的片段
var invalidCredentialMarkers = []string{"API key not valid", "API_KEY_INVALID"}

var quotaMarkers = []string{"Quota exceeded", "RESOURCE_EXHAUSTED"}

// Classify 把模型调用返回的原始错误归入错误分类。
// 已经是 AppError 的错误保持原类型。
func Classify(err error) ErrorType {
	if err == nil {
		return ""
	}
	if t, ok := TypeOf(err); ok {
		return t
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}

	msg := err.Error()
	if MentionsInvalidCredential(msg) {
		return ErrorTypeInvalidCredential
	}
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return ErrorTypeQuotaExceeded
		}
	}
	return ErrorTypeNetworkOrService
}

// MentionsInvalidCredential 文本中是否包含密钥无效的标记
func MentionsInvalidCredential(text string) bool {
	for _, marker := range invalidCredentialMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
