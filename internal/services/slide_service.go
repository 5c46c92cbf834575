// internal/services/slide_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/Corphon/SlideCrafter/internal/errors"
	"github.com/Corphon/SlideCrafter/internal/llm"
	"github.com/Corphon/SlideCrafter/internal/models"
	"github.com/Corphon/SlideCrafter/internal/prompts"
	"github.com/Corphon/SlideCrafter/internal/utils"
)

const (
	// SlideSourceLimit 单页提示词中源文本的最大字符数
	SlideSourceLimit = 3000
	// planOverviewSummaryLimit 计划概览中每条摘要保留的字符数
	planOverviewSummaryLimit = 100
	// shapeExcerptLimit 格式错误信息中附带的输出片段长度
	shapeExcerptLimit = 300
)

// SlideRequest 生成单页幻灯片的参数
type SlideRequest struct {
	Item       models.PlanItem
	Plan       []models.PlanItem
	SourceText string
	Title      string
	Language   models.Language
	StyleGuide string
	Credential string
}

// SlideService 流式生成单页幻灯片
type SlideService struct {
	connector llm.Connector
	prompts   *prompts.Builder
	model     string
	logger    *utils.Logger
}

// NewSlideService 创建幻灯片服务
func NewSlideService(connector llm.Connector, builder *prompts.Builder, model string) *SlideService {
	return &SlideService{
		connector: connector,
		prompts:   builder,
		model:     model,
		logger:    utils.GetLogger(),
	}
}

// Generate 开始生成一页幻灯片。
// 返回的通道先发送零个或多个中间更新，最后恰好发送一个 IsComplete 的更新，然后关闭。
// 只有缺少密钥会同步返回错误；其他失败都体现在最终更新中。
func (s *SlideService) Generate(ctx context.Context, req SlideRequest) (<-chan models.SlideUpdate, error) {
	msgs := models.MessagesFor(req.Language)
	if err := requireCredential(req.Credential, msgs); err != nil {
		return nil, err
	}

	out := make(chan models.SlideUpdate, 1)
	go func() {
		defer close(out)
		final := s.run(ctx, req, out)
		deliverTerminal(ctx, out, final)
	}()
	return out, nil
}

// deliverTerminal 发送最终更新。ctx 已取消时仍尝试投递，消费者不再接收则放弃。
func deliverTerminal(ctx context.Context, out chan<- models.SlideUpdate, final models.SlideUpdate) {
	select {
	case out <- final:
	case <-ctx.Done():
		select {
		case out <- final:
		default:
		}
	}
}

// run 执行流式调用，返回最终更新
func (s *SlideService) run(ctx context.Context, req SlideRequest, out chan<- models.SlideUpdate) models.SlideUpdate {
	item := req.Item
	prompt, err := s.buildPrompt(req)
	if err != nil {
		return s.failure(req, apperrors.NewProcessingError("构建幻灯片提示词失败", err))
	}

	provider, err := openProvider(ctx, s.connector, req.Credential)
	if err != nil {
		return s.failure(req, err)
	}

	s.logger.Debug("开始生成幻灯片", map[string]interface{}{
		"plan_id": item.ID,
		"slide":   item.SlideNumber,
		"topic":   item.Topic,
	})

	stream, err := provider.StreamCompletion(ctx, llm.CompletionRequest{
		Prompt:       prompt,
		Model:        s.model,
		JSONResponse: true,
	})
	if err != nil {
		return s.failure(req, err)
	}

	var buffer strings.Builder
	var grounding []models.GroundingReference

	for {
		select {
		case <-ctx.Done():
			return s.failure(req, ctx.Err())
		case resp, ok := <-stream:
			if !ok {
				if ctx.Err() != nil {
					return s.failure(req, ctx.Err())
				}
				return s.complete(req, buffer.String(), grounding)
			}
			if resp.Err != nil {
				return s.failure(req, resp.Err)
			}
			for _, g := range resp.Grounding {
				if g.URI == "" {
					continue
				}
				grounding = append(grounding, models.GroundingReference{URI: g.URI, Title: g.Title})
			}
			if resp.Done {
				continue
			}
			buffer.WriteString(resp.Text)

			select {
			case out <- models.SlideUpdate{PlanID: item.ID, Title: item.Topic}:
			case <-ctx.Done():
				return s.failure(req, ctx.Err())
			}
		}
	}
}

// complete 解析累积的输出
func (s *SlideService) complete(req SlideRequest, raw string, grounding []models.GroundingReference) models.SlideUpdate {
	value, err := utils.RecoverJSON(raw)
	if err != nil {
		s.logger.Warn("幻灯片输出不是有效的JSON", map[string]interface{}{
			"plan_id": req.Item.ID,
			"error":   err.Error(),
		})
		return s.failure(req, err)
	}

	fields, err := validateSlideFields(value)
	if err != nil {
		msgs := models.MessagesFor(req.Language)
		excerpt, _ := json.Marshal(value)
		return s.failure(req, apperrors.NewUnexpectedShapeError(
			fmt.Sprintf(msgs.UnexpectedSlideFormat, req.Item.Topic, req.Language.Name(),
				utils.TruncateRunes(string(excerpt), shapeExcerptLimit)), err))
	}

	if grounding == nil {
		grounding = []models.GroundingReference{}
	}
	return models.SlideUpdate{
		PlanID:         req.Item.ID,
		SlideNumber:    req.Item.SlideNumber,
		Title:          fields["title"],
		HTML:           fields["slideHtml"],
		SpeechNotes:    fields["speechMd"],
		ExportMarkdown: fields["slideMarkdownForPptx"],
		Grounding:      grounding,
		IsComplete:     true,
	}
}

var slideFieldNames = []string{"title", "slideHtml", "speechMd", "slideMarkdownForPptx"}

// validateSlideFields 四个字段都必须是字符串
func validateSlideFields(value interface{}) (map[string]string, error) {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("期望对象，实际为 %T", value)
	}
	fields := make(map[string]string, len(slideFieldNames))
	for _, name := range slideFieldNames {
		v, ok := obj[name].(string)
		if !ok {
			return nil, fmt.Errorf("缺少字符串字段 %s", name)
		}
		fields[name] = v
	}
	return fields, nil
}

// failure 把错误转换为带本地化占位内容的最终更新
func (s *SlideService) failure(req SlideRequest, err error) models.SlideUpdate {
	msgs := models.MessagesFor(req.Language)
	langName := req.Language.Name()
	topic := req.Item.Topic

	errText := err.Error()
	if apperrors.IsInvalidCredentialError(err) || apperrors.MentionsInvalidCredential(errText) {
		errText = fmt.Sprintf(msgs.InvalidCredentialDetail, errText)
	}

	s.logger.Error("幻灯片生成失败", map[string]interface{}{
		"plan_id": req.Item.ID,
		"topic":   topic,
		"error":   err.Error(),
	})

	return models.SlideUpdate{
		PlanID:      req.Item.ID,
		SlideNumber: req.Item.SlideNumber,
		Title:       topic,
		HTML: models.ErrorBlockHTML(msgs.SlideErrorHeading,
			fmt.Sprintf(msgs.SlideErrorHTML, topic, langName), errText),
		SpeechNotes:    fmt.Sprintf(msgs.SlideErrorSpeech, topic, langName, errText),
		ExportMarkdown: fmt.Sprintf(msgs.SlideErrorMarkdown, topic, langName, errText),
		Grounding:      []models.GroundingReference{},
		IsComplete:     true,
		Failed:         true,
		Err:            err,
	}
}

func (s *SlideService) buildPrompt(req SlideRequest) (string, error) {
	item := req.Item
	data := prompts.SlideData{
		Title:        req.Title,
		LanguageName: req.Language.Name(),
		SlideNumber:  item.SlideNumber,
		Topic:        item.Topic,
		Summary:      item.Summary,
		Placeholder:  models.ImagePlaceholderToken,
		PlanOverview: PlanOverview(req.Plan),
		SourceText:   utils.TruncateWithEllipsis(req.SourceText, SlideSourceLimit),
		StyleGuide:   strings.TrimSpace(req.StyleGuide),
	}
	if item.Image != nil && len(item.Image.Data) > 0 {
		data.HasImage = true
		data.ImageMimeType = item.Image.MimeType
	}
	return s.prompts.Slide(data)
}

// PlanOverview 计划概览，每条摘要截断到前100个字符
func PlanOverview(plan []models.PlanItem) string {
	lines := make([]string, 0, len(plan))
	for _, p := range plan {
		lines = append(lines, fmt.Sprintf("%d. %s: %s...",
			p.SlideNumber, p.Topic, utils.TruncateRunes(p.Summary, planOverviewSummaryLimit)))
	}
	return strings.Join(lines, "\n")
}
