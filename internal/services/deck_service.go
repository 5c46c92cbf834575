// internal/services/deck_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "github.com/Corphon/SlideCrafter/internal/errors"
	"github.com/Corphon/SlideCrafter/internal/models"
	"github.com/Corphon/SlideCrafter/internal/storage"
	"github.com/Corphon/SlideCrafter/internal/utils"
)

// DeckStore 演示文稿持久化
type DeckStore interface {
	Save(deck *models.Deck) error
	Load(id string) (*models.Deck, error)
	Delete(id string) error
	LoadAll() ([]*models.Deck, []string, error)
}

// GenerateOptions 生成过程中的回调，均可为 nil，且不能阻塞
type GenerateOptions struct {
	// OnStart 在通过前置检查、进入生成状态后调用一次
	OnStart    func()
	OnProgress func(models.GenerationProgress)
	OnSlide    func(models.SlideUpdate)
}

// DeckSettings 可修改的演示文稿设置，nil 表示不修改
type DeckSettings struct {
	Title          *string          `json:"title,omitempty"`
	Language       *models.Language `json:"language,omitempty"`
	NumberOfSlides *int             `json:"number_of_slides,omitempty"`
}

// DeckServiceConfig 默认值
type DeckServiceConfig struct {
	DefaultLanguage models.Language
	DefaultSlides   int
	MaxSlides       int
	SlideTimeout    time.Duration // 单页生成的时限，<=0 表示不限制
}

// DeckService 编排计划、风格指南和幻灯片生成，维护每份演示文稿的状态
type DeckService struct {
	plans  *PlanService
	slides *SlideService
	styles *StyleGuideService
	store  DeckStore
	locks  *LockManager
	cfg    DeckServiceConfig
	logger *utils.Logger

	mu    sync.Mutex
	decks map[string]*models.Deck
}

// NewDeckService 创建编排服务。store 为 nil 时只保存在内存中。
func NewDeckService(plans *PlanService, slides *SlideService, styles *StyleGuideService, store DeckStore, cfg DeckServiceConfig) *DeckService {
	if !cfg.DefaultLanguage.IsSupported() {
		cfg.DefaultLanguage = models.LanguageKorean
	}
	if cfg.MaxSlides <= 0 {
		cfg.MaxSlides = DefaultMaxSlides
	}
	if cfg.DefaultSlides <= 0 || cfg.DefaultSlides > cfg.MaxSlides {
		cfg.DefaultSlides = models.DefaultNumberOfSlides
	}
	return &DeckService{
		plans:  plans,
		slides: slides,
		styles: styles,
		store:  store,
		locks:  NewLockManager(),
		cfg:    cfg,
		logger: utils.GetLogger(),
		decks:  make(map[string]*models.Deck),
	}
}

// Close 停止后台清理
func (s *DeckService) Close() {
	s.locks.Stop()
}

// LoadPersisted 从存储恢复演示文稿。中断的生成状态恢复为空闲。
func (s *DeckService) LoadPersisted() (int, error) {
	if s.store == nil {
		return 0, nil
	}
	decks, skipped, err := s.store.LoadAll()
	if err != nil {
		return 0, fmt.Errorf("加载演示文稿失败: %w", err)
	}
	for _, name := range skipped {
		s.logger.Warn("跳过损坏的演示文稿文件", map[string]interface{}{"file": name})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, deck := range decks {
		if deck.State != models.StateIdle {
			deck.State = models.StateIdle
			deck.RegeneratingPlanID = ""
			if deck.Step == models.StepGeneratingContent {
				deck.Step = models.StepPlanDefinition
			}
		}
		deck.StyleGuideInFlight = false
		s.decks[deck.ID] = deck
	}
	return len(decks), nil
}

// persist 在演示文稿锁内复制最新状态并保存，保证同一份演示文稿的写入有序
func (s *DeckService) persist(deckID string) {
	if s.store == nil {
		return
	}
	err := s.locks.ExecuteWithDeckLock(deckID, func() error {
		s.mu.Lock()
		deck, ok := s.decks[deckID]
		var snapshot *models.Deck
		if ok {
			snapshot = deck.Clone()
		}
		s.mu.Unlock()
		if snapshot == nil {
			return nil
		}
		return s.store.Save(snapshot)
	})
	if err != nil {
		s.logger.Error("保存演示文稿失败", map[string]interface{}{"deck_id": deckID, "error": err.Error()})
	}
}

// mutate 在锁内修改演示文稿并保存
func (s *DeckService) mutate(deckID string, fn func(deck *models.Deck) error) (*models.Deck, error) {
	s.mu.Lock()
	deck, ok := s.decks[deckID]
	if !ok {
		s.mu.Unlock()
		return nil, apperrors.NewNotFoundError("演示文稿不存在: "+deckID, nil)
	}
	if err := fn(deck); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	deck.Touch()
	out := deck.Clone()
	s.mu.Unlock()

	s.persist(deckID)
	return out, nil
}

// requireIdle 演示文稿正在生成时拒绝修改
func requireIdle(deck *models.Deck) error {
	if deck.State != models.StateIdle {
		return apperrors.NewConflictError(models.MessagesFor(deck.Language).DeckBusy, nil)
	}
	return nil
}

func (s *DeckService) validateSlideCount(n int) error {
	if n < 1 || n > s.cfg.MaxSlides {
		return apperrors.NewValidationError(fmt.Sprintf("幻灯片数量必须在 1 到 %d 之间", s.cfg.MaxSlides), nil)
	}
	return nil
}

// CreateDeck 创建演示文稿；语言为空或页数为0时使用默认值
func (s *DeckService) CreateDeck(title string, lang models.Language, numberOfSlides int) (*models.Deck, error) {
	if lang == "" {
		lang = s.cfg.DefaultLanguage
	}
	if !lang.IsSupported() {
		return nil, apperrors.NewValidationError("不支持的语言: "+string(lang), nil)
	}
	if numberOfSlides == 0 {
		numberOfSlides = s.cfg.DefaultSlides
	}
	if err := s.validateSlideCount(numberOfSlides); err != nil {
		return nil, err
	}

	deck := models.NewDeck(strings.TrimSpace(title), lang, numberOfSlides)

	s.mu.Lock()
	s.decks[deck.ID] = deck
	out := deck.Clone()
	s.mu.Unlock()

	s.persist(deck.ID)
	s.logger.Info("创建演示文稿", map[string]interface{}{"deck_id": deck.ID, "language": string(lang)})
	return out, nil
}

// GetDeck 返回副本
func (s *DeckService) GetDeck(deckID string) (*models.Deck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deck, ok := s.decks[deckID]
	if !ok {
		return nil, apperrors.NewNotFoundError("演示文稿不存在: "+deckID, nil)
	}
	return deck.Clone(), nil
}

// ListDecks 按更新时间倒序
func (s *DeckService) ListDecks() []models.DeckSummary {
	s.mu.Lock()
	summaries := make([]models.DeckSummary, 0, len(s.decks))
	for _, deck := range s.decks {
		summaries = append(summaries, deck.Summary())
	}
	s.mu.Unlock()

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries
}

// DeleteDeck 删除空闲的演示文稿
func (s *DeckService) DeleteDeck(deckID string) error {
	s.mu.Lock()
	deck, ok := s.decks[deckID]
	if !ok {
		s.mu.Unlock()
		return apperrors.NewNotFoundError("演示文稿不存在: "+deckID, nil)
	}
	if err := requireIdle(deck); err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.decks, deckID)
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	return s.locks.ExecuteWithDeckLock(deckID, func() error {
		if err := s.store.Delete(deckID); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
			return fmt.Errorf("删除演示文稿文件失败: %w", err)
		}
		return nil
	})
}

// UpdateSettings 修改标题、语言、页数
func (s *DeckService) UpdateSettings(deckID string, settings DeckSettings) (*models.Deck, error) {
	if settings.Language != nil && !settings.Language.IsSupported() {
		return nil, apperrors.NewValidationError("不支持的语言: "+string(*settings.Language), nil)
	}
	if settings.NumberOfSlides != nil {
		if err := s.validateSlideCount(*settings.NumberOfSlides); err != nil {
			return nil, err
		}
	}
	return s.mutate(deckID, func(deck *models.Deck) error {
		if err := requireIdle(deck); err != nil {
			return err
		}
		if settings.Title != nil {
			deck.Title = strings.TrimSpace(*settings.Title)
		}
		if settings.Language != nil {
			deck.Language = *settings.Language
		}
		if settings.NumberOfSlides != nil {
			deck.NumberOfSlides = *settings.NumberOfSlides
		}
		return nil
	})
}

// SetStep 切换步骤，并清除上一次的错误
func (s *DeckService) SetStep(deckID string, step models.AppStep) (*models.Deck, error) {
	switch step {
	case models.StepUploadConfig, models.StepPlanDefinition, models.StepPreviewPresentation:
	default:
		return nil, apperrors.NewValidationError("无法切换到步骤: "+string(step), nil)
	}
	return s.mutate(deckID, func(deck *models.Deck) error {
		if err := requireIdle(deck); err != nil {
			return err
		}
		deck.Step = step
		deck.LastError = ""
		return nil
	})
}

// UploadDocument 用文本文档替换源内容，清除图片和风格指南
func (s *DeckService) UploadDocument(deckID, name, content string) (*models.Deck, error) {
	return s.mutate(deckID, func(deck *models.Deck) error {
		if err := requireIdle(deck); err != nil {
			return err
		}
		deck.SourceName = name
		deck.SourceText = content
		deck.SourceImage = nil
		deck.StyleGuide = nil
		deck.StyleGuideInFlight = false
		deck.LastError = ""
		return nil
	})
}

// SetSourceText 直接编辑源文本
func (s *DeckService) SetSourceText(deckID, text string) (*models.Deck, error) {
	return s.mutate(deckID, func(deck *models.Deck) error {
		if err := requireIdle(deck); err != nil {
			return err
		}
		deck.SourceText = text
		return nil
	})
}

// UploadImage 记录上传的图片并标记风格指南生成中。
// 调用方随后调用 GenerateStyleGuide。
func (s *DeckService) UploadImage(deckID, name string, image models.ImageData) (*models.Deck, error) {
	if len(image.Data) == 0 {
		return nil, apperrors.NewValidationError("图片数据为空", nil)
	}
	if !models.IsAcceptedImageType(image.MimeType) {
		return nil, apperrors.NewValidationError("不支持的图片类型: "+image.MimeType, nil)
	}
	return s.mutate(deckID, func(deck *models.Deck) error {
		if err := requireIdle(deck); err != nil {
			return err
		}
		msgs := models.MessagesFor(deck.Language)
		deck.SourceImage = image.Clone()
		deck.SourceName = name
		deck.SourceText = fmt.Sprintf(msgs.ImageUploaded, name)
		deck.StyleGuide = nil
		deck.StyleGuideInFlight = true
		deck.LastError = ""
		return nil
	})
}

// GenerateStyleGuide 为当前源图片生成风格指南。
// 失败时风格指南置为空串并记录可读错误；如果期间图片已被替换，结果被丢弃。
func (s *DeckService) GenerateStyleGuide(ctx context.Context, deckID, credential string) (string, error) {
	s.mu.Lock()
	deck, ok := s.decks[deckID]
	if !ok {
		s.mu.Unlock()
		return "", apperrors.NewNotFoundError("演示文稿不存在: "+deckID, nil)
	}
	if deck.SourceImage == nil {
		s.mu.Unlock()
		return "", apperrors.NewValidationError("演示文稿没有源图片", nil)
	}
	image := deck.SourceImage.Clone()
	lang := deck.Language
	deck.StyleGuideInFlight = true
	s.mu.Unlock()

	guide, genErr := s.styles.Generate(ctx, *image, credential, lang)

	_, err := s.mutate(deckID, func(deck *models.Deck) error {
		if deck.SourceImage == nil || deck.SourceImage.MimeType != image.MimeType ||
			!bytes.Equal(deck.SourceImage.Data, image.Data) {
			s.logger.Info("源图片已变更，丢弃过期的风格指南", map[string]interface{}{"deck_id": deckID})
			return nil
		}
		deck.StyleGuideInFlight = false
		if genErr != nil {
			empty := ""
			deck.StyleGuide = &empty
			deck.LastError = fmt.Sprintf(models.MessagesFor(deck.Language).StyleGuideFallback, genErr.Error())
			return nil
		}
		deck.StyleGuide = &guide
		return nil
	})
	if genErr != nil {
		s.logger.Warn("风格指南生成失败，使用默认样式", map[string]interface{}{
			"deck_id": deckID,
			"error":   genErr.Error(),
		})
		return "", genErr
	}
	if err != nil {
		return "", err
	}
	return guide, nil
}

// GeneratePlan 调用模型生成计划并替换当前计划
func (s *DeckService) GeneratePlan(ctx context.Context, deckID, credential string) ([]models.PlanItem, error) {
	var req PlanRequest
	if _, err := s.mutate(deckID, func(deck *models.Deck) error {
		if err := requireIdle(deck); err != nil {
			return err
		}
		deck.State = models.StatePlanning
		deck.LastError = ""
		req = PlanRequest{
			SourceText:     deck.SourceText,
			Title:          deck.Title,
			Language:       deck.Language,
			NumberOfSlides: deck.NumberOfSlides,
			Credential:     credential,
		}
		return nil
	}); err != nil {
		return nil, err
	}

	topics, genErr := s.plans.GeneratePlan(ctx, req)

	var plan []models.PlanItem
	if genErr == nil {
		plan = ToPlanItems(topics)
	}
	_, err := s.mutate(deckID, func(deck *models.Deck) error {
		deck.State = models.StateIdle
		if genErr != nil {
			deck.LastError = genErr.Error()
			return nil
		}
		deck.Plan = models.ClonePlan(plan)
		deck.Step = models.StepPlanDefinition
		return nil
	})
	if genErr != nil {
		return nil, genErr
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("计划生成完成", map[string]interface{}{"deck_id": deckID, "items": len(plan)})
	return plan, nil
}

// editPlan 在空闲状态下修改计划
func (s *DeckService) editPlan(deckID string, fn func(deck *models.Deck) error) (*models.Deck, error) {
	return s.mutate(deckID, func(deck *models.Deck) error {
		if err := requireIdle(deck); err != nil {
			return err
		}
		if err := fn(deck); err != nil {
			return apperrors.NewNotFoundError(err.Error(), nil)
		}
		return nil
	})
}

// ReplacePlan 整体替换计划，缺少ID的条目会分配新ID
func (s *DeckService) ReplacePlan(deckID string, items []models.PlanItem) (*models.Deck, error) {
	if len(items) > s.cfg.MaxSlides {
		return nil, apperrors.NewValidationError(fmt.Sprintf("计划最多 %d 项", s.cfg.MaxSlides), nil)
	}
	seen := make(map[string]bool, len(items))
	plan := models.ClonePlan(items)
	for i := range plan {
		if strings.TrimSpace(plan[i].Topic) == "" {
			return nil, apperrors.NewValidationError(fmt.Sprintf("第 %d 项的主题不能为空", i+1), nil)
		}
		if plan[i].ID == "" {
			plan[i].ID = models.NewPlanItemID()
		}
		if seen[plan[i].ID] {
			return nil, apperrors.NewValidationError("计划项ID重复: "+plan[i].ID, nil)
		}
		seen[plan[i].ID] = true
		if img := plan[i].Image; img != nil && !models.IsAcceptedImageType(img.MimeType) {
			return nil, apperrors.NewValidationError("不支持的图片类型: "+img.MimeType, nil)
		}
	}
	return s.editPlan(deckID, func(deck *models.Deck) error {
		deck.Plan = models.Renumber(plan)
		return nil
	})
}

// AddPlanItem 追加计划项
func (s *DeckService) AddPlanItem(deckID, topic, summary string) (*models.Deck, models.PlanItem, error) {
	var added models.PlanItem
	deck, err := s.mutate(deckID, func(deck *models.Deck) error {
		if err := requireIdle(deck); err != nil {
			return err
		}
		if len(deck.Plan) >= s.cfg.MaxSlides {
			return apperrors.NewValidationError(fmt.Sprintf("计划最多 %d 项", s.cfg.MaxSlides), nil)
		}
		deck.Plan, added = models.AddPlanItem(deck.Plan, strings.TrimSpace(topic), summary,
			models.MessagesFor(deck.Language).NewSlideTopic)
		return nil
	})
	return deck, added, err
}

// RemovePlanItem 删除计划项
func (s *DeckService) RemovePlanItem(deckID, planID string) (*models.Deck, error) {
	return s.editPlan(deckID, func(deck *models.Deck) error {
		plan, err := models.RemovePlanItem(deck.Plan, planID)
		if err != nil {
			return err
		}
		deck.Plan = plan
		return nil
	})
}

// UpdatePlanItem 修改主题或摘要，主题不能改为空
func (s *DeckService) UpdatePlanItem(deckID, planID string, topic, summary *string) (*models.Deck, error) {
	if topic != nil && strings.TrimSpace(*topic) == "" {
		return nil, apperrors.NewValidationError("计划项主题不能为空", nil)
	}
	return s.editPlan(deckID, func(deck *models.Deck) error {
		plan, err := models.UpdatePlanItem(deck.Plan, planID, topic, summary)
		if err != nil {
			return err
		}
		deck.Plan = plan
		return nil
	})
}

// MovePlanItem 移动计划项
func (s *DeckService) MovePlanItem(deckID, planID string, toIndex int) (*models.Deck, error) {
	return s.editPlan(deckID, func(deck *models.Deck) error {
		plan, err := models.MovePlanItem(deck.Plan, planID, toIndex)
		if err != nil {
			return err
		}
		deck.Plan = plan
		return nil
	})
}

// SetPlanItemImage 设置配图，image 为 nil 时清除
func (s *DeckService) SetPlanItemImage(deckID, planID string, image *models.ImageData) (*models.Deck, error) {
	if image != nil && (len(image.Data) == 0 || !models.IsAcceptedImageType(image.MimeType)) {
		return nil, apperrors.NewValidationError("不支持的图片", nil)
	}
	return s.editPlan(deckID, func(deck *models.Deck) error {
		plan, err := models.SetPlanItemImage(deck.Plan, planID, image.Clone())
		if err != nil {
			return err
		}
		deck.Plan = plan
		return nil
	})
}

// generationInput 生成开始时的演示文稿快照
type generationInput struct {
	plan       []models.PlanItem
	sourceText string
	title      string
	language   models.Language
	styleGuide string
}

func snapshotInput(deck *models.Deck) generationInput {
	return generationInput{
		plan:       models.ClonePlan(deck.Plan),
		sourceText: deck.SourceText,
		title:      deck.Title,
		language:   deck.Language,
		styleGuide: deck.StyleGuideText(),
	}
}

func (in generationInput) slideRequest(item models.PlanItem, credential string) SlideRequest {
	return SlideRequest{
		Item:       item,
		Plan:       in.plan,
		SourceText: in.sourceText,
		Title:      in.title,
		Language:   in.language,
		StyleGuide: in.styleGuide,
		Credential: credential,
	}
}

// beginGenerateAll 检查前置条件并进入整套生成状态
func (s *DeckService) beginGenerateAll(deckID string) (generationInput, error) {
	var in generationInput
	var guardErr error
	_, err := s.mutate(deckID, func(deck *models.Deck) error {
		msgs := models.MessagesFor(deck.Language)
		if len(deck.Plan) == 0 {
			// 空计划把用户带回计划步骤
			guardErr = apperrors.NewValidationError(msgs.EmptyPlan, nil)
			deck.LastError = msgs.EmptyPlan
			deck.Step = models.StepPlanDefinition
			return nil
		}
		if deck.StyleGuideInFlight {
			return apperrors.NewConflictError(msgs.StyleGuideBusy, nil)
		}
		if err := requireIdle(deck); err != nil {
			return err
		}
		deck.State = models.StateGeneratingAll
		deck.Step = models.StepGeneratingContent
		deck.LastError = ""
		deck.Outputs = []models.SlideOutput{}
		deck.Progress = models.GenerationProgress{Total: len(deck.Plan), StatusMessage: msgs.ProgressStarting}
		in = snapshotInput(deck)
		return nil
	})
	if err != nil {
		return in, err
	}
	return in, guardErr
}

// setProgress 覆盖进度并通知回调
func (s *DeckService) setProgress(deckID string, p models.GenerationProgress, opts GenerateOptions) {
	s.mu.Lock()
	if deck, ok := s.decks[deckID]; ok {
		deck.Progress = p
		deck.Touch()
	}
	s.mu.Unlock()
	if opts.OnProgress != nil {
		opts.OnProgress(p)
	}
}

// generateSlide 在单页时限内生成一页并读完所有更新
func (s *DeckService) generateSlide(ctx context.Context, req SlideRequest, onSlide func(models.SlideUpdate)) (models.SlideUpdate, bool, error) {
	if s.cfg.SlideTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SlideTimeout)
		defer cancel()
	}
	updates, err := s.slides.Generate(ctx, req)
	if err != nil {
		return models.SlideUpdate{}, false, err
	}
	final, ok := drain(updates, onSlide)
	return final, ok, nil
}

// drain 读完通道，返回最终更新
func drain(updates <-chan models.SlideUpdate, onSlide func(models.SlideUpdate)) (models.SlideUpdate, bool) {
	var final models.SlideUpdate
	found := false
	for u := range updates {
		if onSlide != nil {
			onSlide(u)
		}
		if u.IsComplete {
			final = u
			found = true
		}
	}
	return final, found
}

// GenerateAll 按顺序为计划中的每一项生成幻灯片。
// 单页失败以错误占位内容记录；缺少密钥或 ctx 取消会中止整次生成并返回错误。
func (s *DeckService) GenerateAll(ctx context.Context, deckID, credential string, opts GenerateOptions) error {
	in, err := s.beginGenerateAll(deckID)
	if err != nil {
		return err
	}
	if opts.OnStart != nil {
		opts.OnStart()
	}

	msgs := models.MessagesFor(in.language)
	total := len(in.plan)
	if opts.OnProgress != nil {
		opts.OnProgress(models.GenerationProgress{Total: total, StatusMessage: msgs.ProgressStarting})
	}
	s.logger.Info("开始生成整套幻灯片", map[string]interface{}{"deck_id": deckID, "total": total})

	for i, item := range in.plan {
		if err := ctx.Err(); err != nil {
			return s.abortGenerateAll(deckID, err)
		}
		s.setProgress(deckID, models.GenerationProgress{
			CurrentIndex:  i,
			Total:         total,
			StatusMessage: fmt.Sprintf(msgs.ProgressGenerating, i+1, item.Topic),
		}, opts)

		// 单页超时只让这一页成为错误占位内容，整次生成继续
		final, ok, err := s.generateSlide(ctx, in.slideRequest(item, credential), opts.OnSlide)
		if err != nil {
			return s.abortGenerateAll(deckID, err)
		}
		if err := ctx.Err(); err != nil {
			return s.abortGenerateAll(deckID, err)
		}

		var output models.SlideOutput
		if ok {
			output = createSlideOutput(final, item, msgs)
		} else {
			output = incompleteSlideOutput(item, msgs)
		}

		s.mu.Lock()
		if deck, exists := s.decks[deckID]; exists {
			deck.Outputs = append(deck.Outputs, output)
		}
		s.mu.Unlock()

		s.setProgress(deckID, models.GenerationProgress{
			CurrentIndex:  i + 1,
			Total:         total,
			StatusMessage: fmt.Sprintf(msgs.ProgressDone, i+1),
		}, opts)
		s.persist(deckID)
	}

	_, err = s.mutate(deckID, func(deck *models.Deck) error {
		deck.State = models.StateIdle
		deck.Step = models.StepPreviewPresentation
		return nil
	})
	s.logger.Info("整套幻灯片生成完成", map[string]interface{}{"deck_id": deckID, "total": total})
	return err
}

// abortGenerateAll 回到计划步骤，保留已生成的幻灯片和进度消息
func (s *DeckService) abortGenerateAll(deckID string, cause error) error {
	_, _ = s.mutate(deckID, func(deck *models.Deck) error {
		deck.State = models.StateIdle
		deck.Step = models.StepPlanDefinition
		deck.LastError = fmt.Sprintf(models.MessagesFor(deck.Language).DeckFailed, cause.Error())
		return nil
	})
	s.logger.Warn("整套幻灯片生成中止", map[string]interface{}{"deck_id": deckID, "error": cause.Error()})
	return cause
}

// Regenerate 重新生成一页。已有记录被整体替换，否则追加。
func (s *DeckService) Regenerate(ctx context.Context, deckID, planID, credential string, opts GenerateOptions) (*models.SlideOutput, error) {
	var in generationInput
	var item models.PlanItem
	_, err := s.mutate(deckID, func(deck *models.Deck) error {
		msgs := models.MessagesFor(deck.Language)
		if deck.StyleGuideInFlight {
			return apperrors.NewConflictError(msgs.StyleGuideBusy, nil)
		}
		idx := models.IndexOfPlanItem(deck.Plan, planID)
		if idx < 0 {
			return apperrors.NewNotFoundError(msgs.SlideNotInPlan, nil)
		}
		if err := requireIdle(deck); err != nil {
			return err
		}
		item = deck.Plan[idx]
		deck.State = models.StateRegeneratingOne
		deck.RegeneratingPlanID = planID
		deck.LastError = ""
		if o := models.IndexOfOutput(deck.Outputs, planID); o >= 0 {
			deck.Outputs[o].HTML = models.NoticeHTML("", msgs.RegeneratingHTML)
			deck.Outputs[o].SpeechNotes = msgs.RegeneratingSpeech
			deck.Outputs[o].ExportMarkdown = msgs.RegeneratingMarkdown
		}
		in = snapshotInput(deck)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if opts.OnStart != nil {
		opts.OnStart()
	}
	msgs := models.MessagesFor(in.language)

	final, ok, genErr := s.generateSlide(ctx, in.slideRequest(item, credential), opts.OnSlide)
	if genErr == nil && !ok {
		genErr = apperrors.NewProcessingError(msgs.RegenNoOutput, nil)
	}

	if genErr != nil {
		_, _ = s.mutate(deckID, func(deck *models.Deck) error {
			deck.State = models.StateIdle
			deck.RegeneratingPlanID = ""
			deck.LastError = fmt.Sprintf(msgs.RegenFailed, item.Topic, genErr.Error())
			if o := models.IndexOfOutput(deck.Outputs, planID); o >= 0 {
				deck.Outputs[o].HTML = models.ErrorBlockHTML(
					fmt.Sprintf(msgs.RegenFailedHeading, item.Topic), genErr.Error(), msgs.RegenFailedHint)
				deck.Outputs[o].SpeechNotes += msgs.RegenFailedSpeech
				deck.Outputs[o].ExportMarkdown += msgs.RegenFailedMarkdown
			}
			return nil
		})
		s.logger.Warn("幻灯片重新生成失败", map[string]interface{}{
			"deck_id": deckID,
			"plan_id": planID,
			"error":   genErr.Error(),
		})
		return nil, genErr
	}

	output := createSlideOutput(final, item, msgs)
	_, err = s.mutate(deckID, func(deck *models.Deck) error {
		deck.State = models.StateIdle
		deck.RegeneratingPlanID = ""
		if o := models.IndexOfOutput(deck.Outputs, planID); o >= 0 {
			deck.Outputs[o] = output.Clone()
		} else {
			deck.Outputs = append(deck.Outputs, output.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &output, nil
}

// createSlideOutput 规范化最终更新：空字段替换为占位内容，页码和配图取自计划项
func createSlideOutput(update models.SlideUpdate, item models.PlanItem, msgs *models.Messages) models.SlideOutput {
	html := update.HTML
	if utils.IsBlank(html) {
		html = models.NoticeHTML(msgs.ErrorLabel, msgs.EmptyHTML)
	}
	speech := update.SpeechNotes
	if utils.IsBlank(speech) {
		speech = msgs.EmptySpeech
	}
	export := update.ExportMarkdown
	if utils.IsBlank(export) {
		export = msgs.EmptyMarkdown
	}
	title := update.Title
	if title == "" {
		title = item.Topic
	}
	grounding := make([]models.GroundingReference, len(update.Grounding))
	copy(grounding, update.Grounding)
	return models.SlideOutput{
		PlanID:              item.ID,
		SlideNumber:         item.SlideNumber,
		Title:               title,
		HTML:                html,
		SpeechNotes:         speech,
		ExportMarkdown:      export,
		GroundingReferences: grounding,
		ItemImage:           item.Image.Clone(),
	}
}

// incompleteSlideOutput 生成器没有给出最终更新时的占位记录
func incompleteSlideOutput(item models.PlanItem, msgs *models.Messages) models.SlideOutput {
	return createSlideOutput(models.SlideUpdate{
		PlanID:         item.ID,
		Title:          item.Topic + msgs.IncompleteTitleSuffix,
		HTML:           models.NoticeHTML(msgs.ErrorLabel, fmt.Sprintf(msgs.IncompleteHTML, item.Topic)),
		SpeechNotes:    fmt.Sprintf(msgs.IncompleteSpeech, item.Topic),
		ExportMarkdown: fmt.Sprintf(msgs.IncompleteMarkdown, item.Topic),
	}, item, msgs)
}
