// internal/services/plan_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/Corphon/SlideCrafter/internal/errors"
	"github.com/Corphon/SlideCrafter/internal/llm"
	"github.com/Corphon/SlideCrafter/internal/models"
	"github.com/Corphon/SlideCrafter/internal/prompts"
	"github.com/Corphon/SlideCrafter/internal/utils"
)

const (
	// PlanSourceLimit 计划提示词中源文本的最大字符数
	PlanSourceLimit = 8000
	// DefaultMaxSlides 单份演示文稿允许的最大页数
	DefaultMaxSlides = 20
)

// PlanRequest 生成计划的参数
type PlanRequest struct {
	SourceText     string
	Title          string
	Language       models.Language
	NumberOfSlides int
	Credential     string
}

// PlanTopic 模型返回的单个计划条目
type PlanTopic struct {
	Topic   string `json:"topic"`
	Summary string `json:"summary"`
}

// PlanService 生成演示文稿计划
type PlanService struct {
	connector llm.Connector
	prompts   *prompts.Builder
	model     string
	maxSlides int
	logger    *utils.Logger
}

// NewPlanService 创建计划服务，model 为空时使用提供者默认模型
func NewPlanService(connector llm.Connector, builder *prompts.Builder, model string, maxSlides int) *PlanService {
	if maxSlides <= 0 {
		maxSlides = DefaultMaxSlides
	}
	return &PlanService{
		connector: connector,
		prompts:   builder,
		model:     model,
		maxSlides: maxSlides,
		logger:    utils.GetLogger(),
	}
}

// MaxSlides 允许的最大页数
func (s *PlanService) MaxSlides() int {
	return s.maxSlides
}

// GeneratePlan 请求模型生成恰好 N 个条目的计划
func (s *PlanService) GeneratePlan(ctx context.Context, req PlanRequest) ([]PlanTopic, error) {
	msgs := models.MessagesFor(req.Language)
	if err := requireCredential(req.Credential, msgs); err != nil {
		return nil, err
	}
	if req.NumberOfSlides < 1 || req.NumberOfSlides > s.maxSlides {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("幻灯片数量必须在 1 到 %d 之间", s.maxSlides), nil)
	}

	langName := req.Language.Name()
	failPrefix := fmt.Sprintf(msgs.PlanFailed, langName)

	prompt, err := s.prompts.Plan(prompts.PlanData{
		Title:          req.Title,
		LanguageName:   langName,
		NumberOfSlides: req.NumberOfSlides,
		SourceText:     utils.TruncateWithEllipsis(req.SourceText, PlanSourceLimit),
		SourceLimit:    PlanSourceLimit,
	})
	if err != nil {
		return nil, apperrors.NewProcessingError("构建计划提示词失败", err)
	}

	provider, err := openProvider(ctx, s.connector, req.Credential)
	if err != nil {
		return nil, modelError(err, failPrefix, msgs, s.logger)
	}

	s.logger.Info("开始生成演示文稿计划", map[string]interface{}{
		"title":    req.Title,
		"language": string(req.Language),
		"slides":   req.NumberOfSlides,
	})

	resp, err := provider.CompleteText(ctx, llm.CompletionRequest{
		Prompt:       prompt,
		Model:        s.model,
		JSONResponse: true,
	})
	if err != nil {
		s.logger.Error("计划生成调用失败", map[string]interface{}{"error": err.Error()})
		return nil, modelError(err, failPrefix, msgs, s.logger)
	}

	value, err := utils.RecoverJSON(resp.Text)
	if err != nil {
		return nil, modelError(err, failPrefix, msgs, s.logger)
	}

	topics, err := ValidatePlanTopics(value)
	if err != nil {
		s.logger.Warn("计划格式不符合预期", map[string]interface{}{
			"error":   err.Error(),
			"excerpt": utils.TruncateRunes(resp.Text, utils.MalformedExcerptLimit),
		})
		return nil, apperrors.NewUnexpectedPlanFormatError(
			failPrefix+" "+fmt.Sprintf(msgs.UnexpectedPlanFormat, langName), err)
	}

	if len(topics) != req.NumberOfSlides {
		s.logger.Warn("计划条目数量与请求不一致，进行调整", map[string]interface{}{
			"requested": req.NumberOfSlides,
			"received":  len(topics),
		})
	}
	return ReconcilePlanLength(fillBlankTopics(topics, req.Language), req.NumberOfSlides, req.Language), nil
}

// fillBlankTopics 模型返回空白主题时换成按页码编号的占位主题
func fillBlankTopics(topics []PlanTopic, lang models.Language) []PlanTopic {
	for i := range topics {
		if strings.TrimSpace(topics[i].Topic) == "" {
			topics[i].Topic = placeholderTopic(i+1, lang.Name())
		}
	}
	return topics
}

func placeholderTopic(k int, langName string) string {
	return fmt.Sprintf("Additional Slide Topic %d (%s)", k, langName)
}

// ValidatePlanTopics 检查解析结果是否为 {topic, summary} 字符串对象数组
func ValidatePlanTopics(value interface{}) ([]PlanTopic, error) {
	items, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("期望数组，实际为 %T", value)
	}
	topics := make([]PlanTopic, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("第 %d 个元素不是对象", i+1)
		}
		topic, ok := obj["topic"].(string)
		if !ok {
			return nil, fmt.Errorf("第 %d 个元素缺少字符串字段 topic", i+1)
		}
		summary, ok := obj["summary"].(string)
		if !ok {
			return nil, fmt.Errorf("第 %d 个元素缺少字符串字段 summary", i+1)
		}
		topics = append(topics, PlanTopic{Topic: topic, Summary: summary})
	}
	return topics, nil
}

// ReconcilePlanLength 截断或填充到恰好 n 个条目，填充条目按页码编号
func ReconcilePlanLength(topics []PlanTopic, n int, lang models.Language) []PlanTopic {
	if len(topics) >= n {
		return append([]PlanTopic(nil), topics[:n]...)
	}
	out := append([]PlanTopic(nil), topics...)
	langName := lang.Name()
	for len(out) < n {
		k := len(out) + 1
		out = append(out, PlanTopic{
			Topic: placeholderTopic(k, langName),
			Summary: fmt.Sprintf("Summary for additional slide %d (%s). Please ensure content is meaningful or edit as needed.",
				k, langName),
		})
	}
	return out
}

// ToPlanItems 为条目分配 ID 和页码
func ToPlanItems(topics []PlanTopic) []models.PlanItem {
	plan := make([]models.PlanItem, len(topics))
	for i, t := range topics {
		plan[i] = models.PlanItem{
			ID:          models.NewPlanItemID(),
			SlideNumber: i + 1,
			Topic:       t.Topic,
			Summary:     t.Summary,
		}
	}
	return plan
}
