// internal/services/model_errors.go
package services

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/Corphon/SlideCrafter/internal/errors"
	"github.com/Corphon/SlideCrafter/internal/llm"
	"github.com/Corphon/SlideCrafter/internal/models"
	"github.com/Corphon/SlideCrafter/internal/utils"
)

// requireCredential 在任何网络调用之前检查密钥
func requireCredential(credential string, msgs *models.Messages) error {
	if strings.TrimSpace(credential) == "" {
		return apperrors.NewMissingCredentialError(msgs.MissingCredential)
	}
	return nil
}

// openProvider 用调用方的密钥打开提供者
func openProvider(ctx context.Context, connector llm.Connector, credential string) (llm.Provider, error) {
	p, err := connector.Open(ctx, strings.TrimSpace(credential))
	if err != nil {
		return nil, apperrors.NewNetworkOrServiceError("初始化模型提供者失败", err)
	}
	return p, nil
}

// modelError 把模型调用错误转换为面向用户的分类错误。
// 密钥无效时只保留可操作的提示，原始错误写入日志。
func modelError(err error, prefix string, msgs *models.Messages, logger *utils.Logger) error {
	t := apperrors.Classify(err)
	switch t {
	case apperrors.ErrorTypeMissingCredential:
		return err
	case apperrors.ErrorTypeInvalidCredential:
		logger.Warn("模型服务拒绝了API密钥", map[string]interface{}{"error": err.Error()})
		return apperrors.NewInvalidCredentialError(msgs.InvalidCredential, nil)
	}

	wrapped := apperrors.NewAppError(t, prefix, err)
	var inner *apperrors.AppError
	if errors.As(err, &inner) {
		wrapped.Excerpt = inner.Excerpt
	}
	return wrapped
}
