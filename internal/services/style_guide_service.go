// internal/services/style_guide_service.go
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	apperrors "github.com/Corphon/SlideCrafter/internal/errors"
	"github.com/Corphon/SlideCrafter/internal/llm"
	"github.com/Corphon/SlideCrafter/internal/models"
	"github.com/Corphon/SlideCrafter/internal/prompts"
	"github.com/Corphon/SlideCrafter/internal/utils"
	"github.com/patrickmn/go-cache"
)

const (
	// DefaultStyleGuideTTL 风格指南缓存时长
	DefaultStyleGuideTTL = 30 * time.Minute
	styleGuideMaxColors  = 10
)

// StyleGuideService 从图片生成 markdown 设计风格指南
type StyleGuideService struct {
	connector llm.Connector
	prompts   *prompts.Builder
	model     string
	cache     *cache.Cache
	logger    *utils.Logger
}

// NewStyleGuideService 创建风格指南服务，ttl<=0 时使用默认值
func NewStyleGuideService(connector llm.Connector, builder *prompts.Builder, model string, ttl time.Duration) *StyleGuideService {
	if ttl <= 0 {
		ttl = DefaultStyleGuideTTL
	}
	return &StyleGuideService{
		connector: connector,
		prompts:   builder,
		model:     model,
		cache:     cache.New(ttl, 2*ttl),
		logger:    utils.GetLogger(),
	}
}

// Generate 一次非流式调用，图片段在前、文本段在后。成功结果按图片内容缓存。
func (s *StyleGuideService) Generate(ctx context.Context, image models.ImageData, credential string, lang models.Language) (string, error) {
	msgs := models.MessagesFor(lang)
	if err := requireCredential(credential, msgs); err != nil {
		return "", err
	}
	if len(image.Data) == 0 || image.MimeType == "" {
		return "", apperrors.NewValidationError("图片数据为空", nil)
	}

	key := styleGuideKey(image)
	if cached, found := s.cache.Get(key); found {
		s.logger.Debug("命中风格指南缓存", map[string]interface{}{"mime_type": image.MimeType})
		return cached.(string), nil
	}

	prompt, err := s.prompts.StyleGuide(prompts.StyleGuideData{MaxColors: styleGuideMaxColors})
	if err != nil {
		return "", apperrors.NewProcessingError("构建风格指南提示词失败", err)
	}

	provider, err := openProvider(ctx, s.connector, credential)
	if err != nil {
		return "", s.classify(err, msgs)
	}

	resp, err := provider.CompleteText(ctx, llm.CompletionRequest{
		Parts: []llm.Part{llm.InlinePart(image.Data, image.MimeType)},
		// 文本段紧跟在图片之后
		Prompt: prompt,
		Model:  s.model,
	})
	if err != nil {
		s.logger.Error("风格指南生成失败", map[string]interface{}{"error": err.Error()})
		return "", s.classify(err, msgs)
	}

	s.cache.SetDefault(key, resp.Text)
	s.logger.Info("风格指南生成完成", map[string]interface{}{
		"mime_type": image.MimeType,
		"length":    len(resp.Text),
	})
	return resp.Text, nil
}

// classify 风格指南的错误都附带原始消息，密钥无效除外
func (s *StyleGuideService) classify(err error, msgs *models.Messages) error {
	switch apperrors.Classify(err) {
	case apperrors.ErrorTypeMissingCredential:
		return err
	case apperrors.ErrorTypeInvalidCredential:
		s.logger.Warn("模型服务拒绝了API密钥", map[string]interface{}{"error": err.Error()})
		return apperrors.NewInvalidCredentialError(msgs.InvalidCredential, nil)
	case apperrors.ErrorTypeQuotaExceeded:
		return apperrors.NewQuotaExceededError(msgs.QuotaExceeded, err)
	case apperrors.ErrorTypeTimeout:
		return apperrors.NewAppError(apperrors.ErrorTypeTimeout, msgs.StyleGuideFailed, err)
	default:
		return apperrors.NewNetworkOrServiceError(msgs.StyleGuideFailed, err)
	}
}

func styleGuideKey(image models.ImageData) string {
	h := sha256.New()
	h.Write([]byte(image.MimeType))
	h.Write([]byte{0})
	h.Write(image.Data)
	return hex.EncodeToString(h.Sum(nil))
}
