// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Corphon/SlideCrafter/internal/config"
	apperrors "github.com/Corphon/SlideCrafter/internal/errors"
	"github.com/Corphon/SlideCrafter/internal/models"
	"github.com/Corphon/SlideCrafter/internal/services"
	"github.com/Corphon/SlideCrafter/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CredentialHeader 客户端传入 Gemini 密钥的请求头
const CredentialHeader = "X-Gemini-Api-Key"

// 上传文件大小上限
const maxUploadSize = 20 << 20

// Handler 处理API请求
type Handler struct {
	Config          *config.Config
	DeckService     *services.DeckService     // 演示文稿编排
	ProgressService *services.ProgressService // 进度跟踪服务
	ExportService   *services.ExportService   // 导出服务
	UsageService    *services.UsageService    // 模型用量统计，可为 nil
	Hub             *DeckHub                  // WebSocket 连接管理
	Response        *ResponseHelper           // 响应助手

	logger *utils.Logger

	// 后台任务在 Close 时统一取消并等待
	baseCtx context.Context
	stop    context.CancelFunc
	tasks   sync.WaitGroup
}

// NewHandler 创建API处理器，并把任务进度转发到 WebSocket
func NewHandler(cfg *config.Config, decks *services.DeckService, progress *services.ProgressService, exports *services.ExportService) *Handler {
	ctx, stop := context.WithCancel(context.Background())
	h := &Handler{
		Config:          cfg,
		DeckService:     decks,
		ProgressService: progress,
		ExportService:   exports,
		Hub:             NewDeckHub(),
		Response:        NewResponseHelper(),
		logger:          utils.GetLogger(),
		baseCtx:         ctx,
		stop:            stop,
	}
	progress.AddListener(func(update services.ProgressUpdate) {
		h.Hub.Broadcast(update.DeckID, MessageProgress, update)
	})
	return h
}

// Close 取消所有后台任务并等待退出，然后断开 WebSocket
func (h *Handler) Close() {
	h.stop()
	h.tasks.Wait()
	h.Hub.Close()
}

// goTask 在后台运行，Close 会等待它结束
func (h *Handler) goTask(fn func()) {
	h.tasks.Add(1)
	go func() {
		defer h.tasks.Done()
		fn()
	}()
}

// credential 优先使用请求头中的密钥，否则使用服务器配置
func (h *Handler) credential(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader(CredentialHeader)); key != "" {
		return key
	}
	return h.Config.GeminiAPIKey
}

// broadcastDeck 推送演示文稿最新摘要
func (h *Handler) broadcastDeck(deckID string) {
	deck, err := h.DeckService.GetDeck(deckID)
	if err != nil {
		return
	}
	h.Hub.Broadcast(deckID, MessageDeck, deck.Summary())
}

// ===============================
// 请求结构
// ===============================

// CreateDeckRequest 创建演示文稿
type CreateDeckRequest struct {
	Title          string          `json:"title"`
	Language       models.Language `json:"language"`
	NumberOfSlides int             `json:"number_of_slides"`
}

// UpdateSourceRequest 修改设置和源文本，未提供的字段保持不变
type UpdateSourceRequest struct {
	services.DeckSettings
	SourceText *string `json:"source_text,omitempty"`
}

// SetStepRequest 切换步骤
type SetStepRequest struct {
	Step models.AppStep `json:"step" binding:"required"`
}

// ReplacePlanRequest 整体替换计划
type ReplacePlanRequest struct {
	Plan []models.PlanItem `json:"plan"`
}

// PlanItemRequest 新增或修改计划项
type PlanItemRequest struct {
	Topic   *string `json:"topic,omitempty"`
	Summary *string `json:"summary,omitempty"`
}

// MovePlanItemRequest 移动计划项
type MovePlanItemRequest struct {
	ToIndex *int `json:"to_index" binding:"required"`
}

// ImageRequest 以 data URI 提交图片
type ImageRequest struct {
	DataURI string `json:"data_uri" binding:"required"`
}

// ===============================
// 系统
// ===============================

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"status":    "ok",
		"decks":     len(h.DeckService.ListDecks()),
		"websocket": h.Hub.GetStatus(),
		"time":      time.Now().Format(time.RFC3339),
	})
}

// GetUsageStats 模型调用统计
func (h *Handler) GetUsageStats(c *gin.Context) {
	if h.UsageService == nil {
		h.Response.NotFound(c, "统计")
		return
	}
	h.Response.Success(c, h.UsageService.GetUsageStats())
}

// GetLanguages 支持的输出语言
func (h *Handler) GetLanguages(c *gin.Context) {
	h.Response.Success(c, models.SupportedLanguages)
}

// ===============================
// 演示文稿
// ===============================

// CreateDeck 创建演示文稿
func (h *Handler) CreateDeck(c *gin.Context) {
	var req CreateDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.Response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}

	deck, err := h.DeckService.CreateDeck(req.Title, req.Language, req.NumberOfSlides)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Created(c, deck, "演示文稿已创建")
}

// ListDecks 列出所有演示文稿
func (h *Handler) ListDecks(c *gin.Context) {
	h.Response.Success(c, h.DeckService.ListDecks())
}

// GetDeck 获取演示文稿
func (h *Handler) GetDeck(c *gin.Context) {
	deck, err := h.DeckService.GetDeck(c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, deck)
}

// DeleteDeck 删除演示文稿
func (h *Handler) DeleteDeck(c *gin.Context) {
	deckID := c.Param("id")
	if err := h.DeckService.DeleteDeck(deckID); err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"deck_id": deckID}, "演示文稿已删除")
}

// UpdateSource 修改标题、语言、页数和源文本
func (h *Handler) UpdateSource(c *gin.Context) {
	deckID := c.Param("id")
	var req UpdateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}

	if req.Title != nil || req.Language != nil || req.NumberOfSlides != nil {
		if _, err := h.DeckService.UpdateSettings(deckID, req.DeckSettings); err != nil {
			h.Response.HandleError(c, err)
			return
		}
	}
	if req.SourceText != nil {
		if _, err := h.DeckService.SetSourceText(deckID, *req.SourceText); err != nil {
			h.Response.HandleError(c, err)
			return
		}
	}

	deck, err := h.DeckService.GetDeck(deckID)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, deck)
}

// SetStep 切换演示文稿所处的步骤
func (h *Handler) SetStep(c *gin.Context) {
	var req SetStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}
	switch req.Step {
	case models.StepUploadConfig, models.StepPlanDefinition, models.StepGeneratingContent, models.StepPreviewPresentation:
	default:
		h.Response.BadRequest(c, "未知的步骤: "+string(req.Step))
		return
	}

	deck, err := h.DeckService.SetStep(c.Param("id"), req.Step)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, deck)
}

// ===============================
// 上传
// ===============================

// readUpload 读取上传文件内容
func readUpload(fileHeader *multipart.FileHeader) ([]byte, error) {
	if fileHeader.Size > maxUploadSize {
		return nil, fmt.Errorf("文件过大: %d 字节", fileHeader.Size)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, maxUploadSize+1))
}

// imageMimeType 优先使用上传时声明的类型，其次按内容识别
func imageMimeType(fileHeader *multipart.FileHeader, data []byte) string {
	declared, _, _ := strings.Cut(fileHeader.Header.Get("Content-Type"), ";")
	if models.IsAcceptedImageType(declared) {
		return strings.ToLower(strings.TrimSpace(declared))
	}
	detected, _, _ := strings.Cut(http.DetectContentType(data), ";")
	return detected
}

// isTextDocument 可作为源文本的文档
func isTextDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".markdown":
		return true
	}
	return false
}

// UploadSource 上传文本文档或风格参考图片。
// 图片也可以通过表单字段 data_uri 提交；图片上传后在后台生成风格指南。
func (h *Handler) UploadSource(c *gin.Context) {
	deckID := c.Param("id")
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize+1<<20)

	if dataURI := c.PostForm("data_uri"); dataURI != "" {
		image, err := models.ParseDataURI(dataURI)
		if err != nil {
			h.Response.Error(c, http.StatusBadRequest, ErrorFileInvalid, "无效的图片数据", err.Error())
			return
		}
		h.acceptImage(c, deckID, c.DefaultPostForm("name", "image"), *image)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorFileUploadFailed, "未找到上传的文件", err.Error())
		return
	}
	name := filepath.Base(fileHeader.Filename)
	data, err := readUpload(fileHeader)
	if err != nil {
		h.Response.Error(c, http.StatusRequestEntityTooLarge, ErrorFileTooLarge, "读取上传文件失败", err.Error())
		return
	}

	if isTextDocument(name) {
		if !utf8.Valid(data) {
			h.Response.Error(c, http.StatusBadRequest, ErrorFileInvalid, "文档必须是 UTF-8 编码的文本")
			return
		}
		if err := h.defaultTitle(deckID, name); err != nil {
			h.Response.HandleError(c, err)
			return
		}
		deck, err := h.DeckService.UploadDocument(deckID, name, string(data))
		if err != nil {
			h.Response.HandleError(c, err)
			return
		}
		h.Response.Success(c, deck, "文档已上传")
		return
	}

	mimeType := imageMimeType(fileHeader, data)
	if !models.IsAcceptedImageType(mimeType) {
		h.Response.Error(c, http.StatusBadRequest, ErrorFileInvalid,
			"仅支持 .txt/.md 文档或 JPEG/PNG/WebP 图片", "检测到的类型: "+mimeType)
		return
	}
	h.acceptImage(c, deckID, name, models.ImageData{MimeType: mimeType, Data: data})
}

// defaultTitle 标题为空时使用文件名（去掉扩展名）
func (h *Handler) defaultTitle(deckID, name string) error {
	deck, err := h.DeckService.GetDeck(deckID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(deck.Title) != "" {
		return nil
	}
	title := strings.TrimSuffix(name, filepath.Ext(name))
	_, err = h.DeckService.UpdateSettings(deckID, services.DeckSettings{Title: &title})
	return err
}

// acceptImage 保存图片并启动风格指南生成
func (h *Handler) acceptImage(c *gin.Context, deckID, name string, image models.ImageData) {
	if err := h.defaultTitle(deckID, name); err != nil {
		h.Response.HandleError(c, err)
		return
	}
	deck, err := h.DeckService.UploadImage(deckID, name, image)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}

	credential := h.credential(c)
	h.goTask(func() {
		ctx, cancel := context.WithTimeout(h.baseCtx, h.Config.RequestTimeout)
		defer cancel()

		_, err := h.DeckService.GenerateStyleGuide(ctx, deckID, credential)
		payload := gin.H{"ready": err == nil}
		if err != nil {
			payload["error"] = err.Error()
		}
		h.Hub.Broadcast(deckID, MessageStyleGuide, payload)
		h.broadcastDeck(deckID)
	})

	h.Response.Accepted(c, deck, "图片已上传，正在生成风格指南")
}

// ===============================
// 计划
// ===============================

// GeneratePlan 同步生成计划
func (h *Handler) GeneratePlan(c *gin.Context) {
	deckID := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.Config.RequestTimeout)
	defer cancel()

	if _, err := h.DeckService.GeneratePlan(ctx, deckID, h.credential(c)); err != nil {
		h.Response.HandleError(c, err)
		return
	}
	deck, err := h.DeckService.GetDeck(deckID)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.broadcastDeck(deckID)
	h.Response.Success(c, deck, "计划已生成")
}

// ReplacePlan 整体替换计划
func (h *Handler) ReplacePlan(c *gin.Context) {
	var req ReplacePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}
	deck, err := h.DeckService.ReplacePlan(c.Param("id"), req.Plan)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, deck)
}

// AddPlanItem 追加计划项
func (h *Handler) AddPlanItem(c *gin.Context) {
	var req PlanItemRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.Response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}
	var topic, summary string
	if req.Topic != nil {
		topic = *req.Topic
	}
	if req.Summary != nil {
		summary = *req.Summary
	}

	deck, item, err := h.DeckService.AddPlanItem(c.Param("id"), topic, summary)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Created(c, gin.H{"item": item, "deck": deck}, "计划项已添加")
}

// UpdatePlanItem 修改计划项主题或摘要
func (h *Handler) UpdatePlanItem(c *gin.Context) {
	var req PlanItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}
	deck, err := h.DeckService.UpdatePlanItem(c.Param("id"), c.Param("planId"), req.Topic, req.Summary)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, deck)
}

// RemovePlanItem 删除计划项
func (h *Handler) RemovePlanItem(c *gin.Context) {
	deck, err := h.DeckService.RemovePlanItem(c.Param("id"), c.Param("planId"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, deck)
}

// MovePlanItem 移动计划项到新位置
func (h *Handler) MovePlanItem(c *gin.Context) {
	var req MovePlanItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}
	deck, err := h.DeckService.MovePlanItem(c.Param("id"), c.Param("planId"), *req.ToIndex)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, deck)
}

// SetPlanItemImage 设置计划项配图，支持 multipart 文件或 JSON data URI
func (h *Handler) SetPlanItemImage(c *gin.Context) {
	var image *models.ImageData
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			h.Response.Error(c, http.StatusBadRequest, ErrorFileUploadFailed, "未找到上传的文件", err.Error())
			return
		}
		data, err := readUpload(fileHeader)
		if err != nil {
			h.Response.Error(c, http.StatusRequestEntityTooLarge, ErrorFileTooLarge, "读取上传文件失败", err.Error())
			return
		}
		image = &models.ImageData{MimeType: imageMimeType(fileHeader, data), Data: data}
	} else {
		var req ImageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.Response.BadRequest(c, "无效的请求参数", err.Error())
			return
		}
		parsed, err := models.ParseDataURI(req.DataURI)
		if err != nil {
			h.Response.Error(c, http.StatusBadRequest, ErrorFileInvalid, "无效的图片数据", err.Error())
			return
		}
		image = parsed
	}

	deck, err := h.DeckService.SetPlanItemImage(c.Param("id"), c.Param("planId"), image)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, deck)
}

// ClearPlanItemImage 清除计划项配图
func (h *Handler) ClearPlanItemImage(c *gin.Context) {
	deck, err := h.DeckService.SetPlanItemImage(c.Param("id"), c.Param("planId"), nil)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, deck)
}

// ===============================
// 生成任务
// ===============================

// slideEvent 推送给 WebSocket 的幻灯片更新，不含完整内容
func slideEvent(u models.SlideUpdate) gin.H {
	return gin.H{
		"plan_id":      u.PlanID,
		"slide_number": u.SlideNumber,
		"title":        u.Title,
		"is_complete":  u.IsComplete,
		"failed":       u.Failed,
	}
}

// finishTask 根据任务结果设置跟踪器的终止状态
func finishTask(ctx context.Context, tracker *services.ProgressTracker, err error, done string) {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		tracker.MarkCancelled("任务已取消")
	case err != nil:
		tracker.Fail(err.Error())
	default:
		tracker.Complete(done)
	}
}

// startTask 在后台运行生成任务。
// 前置检查失败时直接返回错误响应，否则返回 202 和任务ID。
// 任务本身不设总时限，时限按单页施加。
func (h *Handler) startTask(c *gin.Context, deckID string, run func(ctx context.Context, opts services.GenerateOptions) (string, error)) {
	taskID := uuid.NewString()
	ctx, cancel := context.WithCancel(h.baseCtx)
	tracker := h.ProgressService.CreateTracker(taskID, deckID, cancel)

	started := make(chan struct{})
	var once sync.Once
	result := make(chan error, 1)
	opts := services.GenerateOptions{
		OnStart: func() { once.Do(func() { close(started) }) },
		OnProgress: func(p models.GenerationProgress) {
			tracker.Update(p)
		},
		OnSlide: func(u models.SlideUpdate) {
			h.Hub.Broadcast(deckID, MessageSlide, slideEvent(u))
		},
	}

	h.goTask(func() {
		defer cancel()
		done, err := run(ctx, opts)
		finishTask(ctx, tracker, err, done)
		h.broadcastDeck(deckID)
		result <- err
	})

	select {
	case <-started:
	case err := <-result:
		select {
		case <-started:
		default:
			if err != nil {
				h.Response.HandleError(c, err)
				return
			}
		}
	}
	h.Response.Accepted(c, gin.H{"task_id": taskID, "deck_id": deckID}, "任务已开始，请订阅进度更新")
}

// GenerateDeck 为整个计划生成幻灯片
func (h *Handler) GenerateDeck(c *gin.Context) {
	deckID := c.Param("id")
	credential := h.credential(c)
	h.startTask(c, deckID, func(ctx context.Context, opts services.GenerateOptions) (string, error) {
		if err := h.DeckService.GenerateAll(ctx, deckID, credential, opts); err != nil {
			return "", err
		}
		return "幻灯片已全部生成", nil
	})
}

// RegenerateSlide 重新生成一页
func (h *Handler) RegenerateSlide(c *gin.Context) {
	deckID := c.Param("id")
	planID := c.Param("planId")
	credential := h.credential(c)
	h.startTask(c, deckID, func(ctx context.Context, opts services.GenerateOptions) (string, error) {
		output, err := h.DeckService.Regenerate(ctx, deckID, planID, credential, opts)
		if err != nil {
			return "", err
		}
		h.Hub.Broadcast(deckID, MessageSlide, gin.H{
			"plan_id":      output.PlanID,
			"slide_number": output.SlideNumber,
			"title":        output.Title,
			"is_complete":  true,
			"output":       output,
		})
		return fmt.Sprintf("第 %d 页已重新生成", output.SlideNumber), nil
	})
}

// SubscribeProgress 订阅任务进度的SSE端点
func (h *Handler) SubscribeProgress(c *gin.Context) {
	taskID := c.Param("taskID")

	tracker, exists := h.ProgressService.GetTracker(taskID)
	if !exists {
		h.Response.NotFound(c, "任务")
		return
	}

	// 设置SSE响应头
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()

	updateChan := tracker.Subscribe()
	defer tracker.Unsubscribe(updateChan)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"task_id\":%q}\n\n", taskID)
	c.Writer.Flush()

	for {
		select {
		case <-clientGone:
			return
		case update, ok := <-updateChan:
			if !ok {
				return
			}
			data, _ := json.Marshal(update)
			fmt.Fprintf(c.Writer, "event: progress\ndata: %s\n\n", string(data))
			c.Writer.Flush()

			if update.Finished() {
				return
			}
		case <-ticker.C:
			// 心跳
			fmt.Fprintf(c.Writer, "event: heartbeat\ndata: {\"time\":%d}\n\n", time.Now().Unix())
			c.Writer.Flush()
		}
	}
}

// GetTask 当前任务状态
func (h *Handler) GetTask(c *gin.Context) {
	tracker, exists := h.ProgressService.GetTracker(c.Param("taskID"))
	if !exists {
		h.Response.NotFound(c, "任务")
		return
	}
	h.Response.Success(c, tracker.Snapshot())
}

// CancelTask 取消正在运行的任务
func (h *Handler) CancelTask(c *gin.Context) {
	taskID := c.Param("taskID")

	tracker, exists := h.ProgressService.GetTracker(taskID)
	if !exists {
		h.Response.NotFound(c, "任务")
		return
	}
	if err := tracker.Cancel(); err != nil {
		h.Response.Error(c, http.StatusConflict, ErrorTaskFinished, "任务已结束", err.Error())
		return
	}
	h.Response.Success(c, gin.H{"task_id": taskID}, "已请求取消任务")
}

// ===============================
// 导出与推送
// ===============================

// ExportDeck 以附件形式下载导出结果
func (h *Handler) ExportDeck(c *gin.Context) {
	format, ok := models.ParseExportFormat(strings.ToLower(c.DefaultQuery("format", string(models.ExportHTML))))
	if !ok {
		h.Response.Error(c, http.StatusBadRequest, ErrorExportFormatInvalid,
			"不支持的导出格式", "可选: html, markdown, speech, json")
		return
	}

	result, err := h.ExportService.Export(c.Param("id"), format)
	if err != nil {
		if apperrors.IsNotFoundError(err) || apperrors.IsValidationError(err) {
			h.Response.HandleError(c, err)
			return
		}
		h.Response.Error(c, http.StatusInternalServerError, ErrorExportFailed, "导出失败", err.Error())
		return
	}
	h.Response.DownloadResponse(c, result.Content, services.ExportFileName(result), format.ContentType())
}

// DeckWebSocket 订阅演示文稿的实时事件
func (h *Handler) DeckWebSocket(c *gin.Context) {
	deck, err := h.DeckService.GetDeck(c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("❌ WebSocket 升级失败", map[string]interface{}{"error": err.Error()})
		return
	}
	h.Hub.serve(conn, deck.ID, deck.Summary())
}

// GetWebSocketStatus WebSocket 连接状态
func (h *Handler) GetWebSocketStatus(c *gin.Context) {
	h.Response.Success(c, h.Hub.GetStatus())
}
