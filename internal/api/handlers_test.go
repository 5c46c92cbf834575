package api

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Corphon/SlideCrafter/internal/config"
	"github.com/Corphon/SlideCrafter/internal/di"
	"github.com/Corphon/SlideCrafter/internal/llm"
	"github.com/Corphon/SlideCrafter/internal/llm/llmtest"
	"github.com/Corphon/SlideCrafter/internal/models"
	"github.com/Corphon/SlideCrafter/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthAndLanguages(t *testing.T) {
	s := newTestServer(t, defaultResponder)

	w := s.request(http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode(t, w).Success)

	w = s.request(http.MethodGet, "/api/languages", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var langs []models.LanguageInfo
	decodeData(t, w, &langs)
	require.Len(t, langs, 4)
	assert.Equal(t, models.LanguageKorean, langs[0].Code)

	w = s.request(http.MethodGet, "/api/stats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats services.UsageStats
	decodeData(t, w, &stats)
	assert.Zero(t, stats.TodayRequests)
}

func TestSetupRouterRequiresServices(t *testing.T) {
	c := di.NewContainer()
	_, _, err := SetupRouter(c)
	assert.Error(t, err, "缺少配置")

	c.Register(di.ServiceConfig, "not a config")
	_, _, err = SetupRouter(c)
	assert.ErrorContains(t, err, "类型不匹配")

	c.Register(di.ServiceConfig, config.Defaults())
	_, _, err = SetupRouter(c)
	assert.ErrorContains(t, err, di.ServiceDeck)
}

func TestDeckCRUD(t *testing.T) {
	s := newTestServer(t, defaultResponder)

	deck := s.createDeck(t, "Launch", 4)
	assert.Equal(t, "Launch", deck.Title)
	assert.Equal(t, models.LanguageEnglish, deck.Language, "使用服务器默认语言")
	assert.Equal(t, 4, deck.NumberOfSlides)

	w := s.request(http.MethodGet, "/api/decks", nil, nil)
	var summaries []models.DeckSummary
	decodeData(t, w, &summaries)
	require.Len(t, summaries, 1)
	assert.Equal(t, deck.ID, summaries[0].ID)

	w = s.request(http.MethodGet, "/api/decks/"+deck.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.request(http.MethodDelete, "/api/decks/"+deck.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.request(http.MethodGet, "/api/decks/"+deck.ID, nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestCreateDeckValidation(t *testing.T) {
	s := newTestServer(t, defaultResponder)

	w := s.request(http.MethodPost, "/api/decks", map[string]interface{}{"title": "x", "language": "fr"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)

	w = s.request(http.MethodPost, "/api/decks", map[string]interface{}{"number_of_slides": 99}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.request(http.MethodPost, "/api/decks", []byte("{broken"), nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrorBadRequest, decode(t, w).Error.Code)
}

func TestUpdateSourceAndStep(t *testing.T) {
	s := newTestServer(t, defaultResponder)
	deck := s.createDeck(t, "Old", 3)

	w := s.request(http.MethodPut, "/api/decks/"+deck.ID+"/source", map[string]interface{}{
		"title":            "New",
		"language":         "ja",
		"number_of_slides": 5,
		"source_text":      "本文",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	deck = deckFrom(t, w)
	assert.Equal(t, "New", deck.Title)
	assert.Equal(t, models.LanguageJapanese, deck.Language)
	assert.Equal(t, 5, deck.NumberOfSlides)
	assert.Equal(t, "本文", deck.SourceText)

	w = s.request(http.MethodPut, "/api/decks/"+deck.ID+"/step", SetStepRequest{Step: models.StepPlanDefinition}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	deck = deckFrom(t, w)
	assert.Equal(t, models.StepPlanDefinition, deck.Step)

	w = s.request(http.MethodPut, "/api/decks/"+deck.ID+"/step", SetStepRequest{Step: "DONE"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadTextDocumentDefaultsTitle(t *testing.T) {
	s := newTestServer(t, defaultResponder)
	deck := s.createDeck(t, "", 3)

	w := s.upload(t, "/api/decks/"+deck.ID+"/upload", "file", "roadmap.md", []byte("# Roadmap\nQ3 plans"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	deck = deckFrom(t, w)
	assert.Equal(t, "roadmap", deck.Title)
	assert.Equal(t, "# Roadmap\nQ3 plans", deck.SourceText)
	assert.Equal(t, "roadmap.md", deck.SourceName)
	assert.Nil(t, deck.SourceImage)
}

func TestUploadImageGeneratesStyleGuide(t *testing.T) {
	s := newTestServer(t, defaultResponder)
	deck := s.createDeck(t, "Brand", 3)

	w := s.upload(t, "/api/decks/"+deck.ID+"/upload", "file", "brand.png", testPNG)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	deck = deckFrom(t, w)
	require.NotNil(t, deck.SourceImage)
	assert.Equal(t, "image/png", deck.SourceImage.MimeType)
	assert.Contains(t, deck.SourceText, "brand.png")

	require.Eventually(t, func() bool {
		current, err := s.app.Decks.GetDeck(deck.ID)
		return err == nil && !current.StyleGuideInFlight && current.StyleGuide != nil
	}, 5*time.Second, 10*time.Millisecond)

	current, err := s.app.Decks.GetDeck(deck.ID)
	require.NoError(t, err)
	assert.Contains(t, current.StyleGuideText(), "Primary color")
}

func TestUploadImageAsDataURI(t *testing.T) {
	s := newTestServer(t, defaultResponder)
	deck := s.createDeck(t, "Brand", 3)

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPNG)
	form := url.Values{"data_uri": {uri}, "name": {"logo.png"}}
	w := s.request(http.MethodPost, "/api/decks/"+deck.ID+"/upload", []byte(form.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded", CredentialHeader: testKey})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	require.Eventually(t, func() bool {
		current, err := s.app.Decks.GetDeck(deck.ID)
		return err == nil && !current.StyleGuideInFlight
	}, 5*time.Second, 10*time.Millisecond)

	form = url.Values{"data_uri": {"data:image/png,notbase64"}}
	w = s.request(http.MethodPost, "/api/decks/"+deck.ID+"/upload", []byte(form.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrorFileInvalid, decode(t, w).Error.Code)
}

func TestUploadRejectsUnsupportedFile(t *testing.T) {
	s := newTestServer(t, defaultResponder)
	deck := s.createDeck(t, "Doc", 3)

	w := s.upload(t, "/api/decks/"+deck.ID+"/upload", "file", "report.pdf", []byte("%PDF-1.4 binary"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrorFileInvalid, decode(t, w).Error.Code)

	w = s.upload(t, "/api/decks/"+deck.ID+"/upload", "other", "notes.txt", []byte("x"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrorFileUploadFailed, decode(t, w).Error.Code)

	w = s.upload(t, "/api/decks/"+deck.ID+"/upload", "file", "bad.txt", []byte{0xff, 0xfe, 0xfd})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGeneratePlanMissingCredential(t *testing.T) {
	s := newTestServer(t, defaultResponder)
	deck := s.createDeck(t, "T", 3)

	w := s.request(http.MethodPost, "/api/decks/"+deck.ID+"/plan", nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.Equal(t, "MISSING_CREDENTIAL", env.Error.Code)
	assert.Empty(t, s.provider.Requests(), "缺少密钥时不发起模型调用")
}

func TestGeneratePlanUsesServerKeyFallback(t *testing.T) {
	s := newTestServer(t, defaultResponder)
	s.handler.Config.GeminiAPIKey = "server-key"
	deck := s.createDeck(t, "T", 3)
	_, err := s.app.Decks.SetSourceText(deck.ID, "text")
	require.NoError(t, err)

	w := s.request(http.MethodPost, "/api/decks/"+deck.ID+"/plan", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestPlanEditingEndpoints(t *testing.T) {
	s := newTestServer(t, defaultResponder)
	deck := s.plannedDeck(t)
	base := "/api/decks/" + deck.ID + "/plan"

	// 追加
	w := s.request(http.MethodPost, base+"/items", map[string]string{"topic": "Appendix"}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var added struct {
		Item models.PlanItem `json:"item"`
		Deck models.Deck     `json:"deck"`
	}
	decodeData(t, w, &added)
	assert.Equal(t, 4, added.Item.SlideNumber)
	assert.True(t, strings.HasPrefix(added.Item.ID, "plan-"))

	// 修改
	w = s.request(http.MethodPatch, base+"/items/"+added.Item.ID, map[string]string{"summary": "extra"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	deck = deckFrom(t, w)
	assert.Equal(t, "Appendix", deck.Plan[3].Topic)
	assert.Equal(t, "extra", deck.Plan[3].Summary)

	// 移动到最前
	w = s.request(http.MethodPost, base+"/items/"+added.Item.ID+"/move", map[string]int{"to_index": 0}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	deck = deckFrom(t, w)
	assert.Equal(t, added.Item.ID, deck.Plan[0].ID)
	assert.Equal(t, 1, deck.Plan[0].SlideNumber)

	w = s.request(http.MethodPost, base+"/items/"+added.Item.ID+"/move", map[string]int{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "缺少 to_index")

	// 配图
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPNG)
	w = s.request(http.MethodPut, base+"/items/"+added.Item.ID+"/image", ImageRequest{DataURI: uri}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	deck = deckFrom(t, w)
	require.NotNil(t, deck.Plan[0].Image)
	assert.Equal(t, testPNG, deck.Plan[0].Image.Data)

	w = s.request(http.MethodDelete, base+"/items/"+added.Item.ID+"/image", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	deck = deckFrom(t, w)
	assert.Nil(t, deck.Plan[0].Image)

	// 删除
	w = s.request(http.MethodDelete, base+"/items/"+added.Item.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	deck = deckFrom(t, w)
	require.Len(t, deck.Plan, 3)

	w = s.request(http.MethodDelete, base+"/items/plan-missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 整体替换
	w = s.request(http.MethodPut, base, ReplacePlanRequest{Plan: []models.PlanItem{{Topic: "Only"}}}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	deck = deckFrom(t, w)
	require.Len(t, deck.Plan, 1)
	assert.Equal(t, 1, deck.Plan[0].SlideNumber)
	assert.NotEmpty(t, deck.Plan[0].ID)
}

func TestGenerateDeckTaskCompletes(t *testing.T) {
	s := newTestServer(t, defaultResponder)
	deck := s.plannedDeck(t)

	taskID := s.startTask(t, "/api/decks/"+deck.ID+"/generate")
	final := s.waitTask(t, taskID)
	assert.Equal(t, services.TaskCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)

	current, err := s.app.Decks.GetDeck(deck.ID)
	require.NoError(t, err)
	require.Len(t, current.Outputs, 3)
	assert.Equal(t, models.StepPreviewPresentation, current.Step)
	assert.Equal(t, models.StateIdle, current.State)

	// 已结束任务的 SSE 立即返回最终状态
	w := s.request(http.MethodGet, "/api/progress/"+taskID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "event: progress")
	assert.Contains(t, w.Body.String(), `"status":"completed"`)

	w = s.request(http.MethodGet, "/api/tasks/"+taskID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.request(http.MethodGet, "/api/progress/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrorTaskNotFound, decode(t, w).Error.Code)
}

func TestGenerateDeckEmptyPlanRejectedSynchronously(t *testing.T) {
	s := newTestServer(t, defaultResponder)
	deck := s.createDeck(t, "Empty", 3)

	w := s.request(http.MethodPost, "/api/decks/"+deck.ID+"/generate", nil, withKey())
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)

	current, err := s.app.Decks.GetDeck(deck.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepPlanDefinition, current.Step)
}

func TestRegenerateSlide(t *testing.T) {
	s := newTestServer(t, defaultResponder)
	deck := s.plannedDeck(t)

	taskID := s.startTask(t, "/api/decks/"+deck.ID+"/generate")
	s.waitTask(t, taskID)

	planID := deck.Plan[1].ID
	taskID = s.startTask(t, "/api/decks/"+deck.ID+"/slides/"+planID+"/regenerate")
	final := s.waitTask(t, taskID)
	assert.Equal(t, services.TaskCompleted, final.Status)

	current, err := s.app.Decks.GetDeck(deck.ID)
	require.NoError(t, err)
	require.Len(t, current.Outputs, 3, "重新生成替换原记录")
	assert.Equal(t, planID, current.Outputs[1].PlanID)

	w := s.request(http.MethodPost, "/api/decks/"+deck.ID+"/slides/plan-missing/regenerate", nil, withKey())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelRunningTask(t *testing.T) {
	started := make(chan struct{}, 8)
	release := make(chan struct{})
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }

	s := newTestServer(t, func(req llm.CompletionRequest) llmtest.Reply {
		if isPlanPrompt(req) {
			return planReply("Intro", "Data", "Outlook")
		}
		started <- struct{}{}
		<-release
		return slideReply("Slow")
	})
	t.Cleanup(unblock)
	deck := s.plannedDeck(t)

	taskID := s.startTask(t, "/api/decks/"+deck.ID+"/generate")
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("幻灯片生成未开始")
	}

	w := s.request(http.MethodPost, "/api/cancel/"+taskID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	unblock()

	final := s.waitTask(t, taskID)
	assert.Equal(t, services.TaskCancelled, final.Status)

	current, err := s.app.Decks.GetDeck(deck.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateIdle, current.State)
	assert.Empty(t, current.Outputs)

	w = s.request(http.MethodPost, "/api/cancel/"+taskID, nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, ErrorTaskFinished, decode(t, w).Error.Code)

	w = s.request(http.MethodPost, "/api/cancel/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBusyDeckRejectsSecondTask(t *testing.T) {
	started := make(chan struct{}, 8)
	release := make(chan struct{})
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }

	s := newTestServer(t, func(req llm.CompletionRequest) llmtest.Reply {
		if isPlanPrompt(req) {
			return planReply("Intro", "Data", "Outlook")
		}
		started <- struct{}{}
		<-release
		return slideReply("Slow")
	})
	t.Cleanup(unblock)
	deck := s.plannedDeck(t)

	taskID := s.startTask(t, "/api/decks/"+deck.ID+"/generate")
	<-started

	w := s.request(http.MethodPost, "/api/decks/"+deck.ID+"/generate", nil, withKey())
	assert.Equal(t, http.StatusConflict, w.Code)
	w = s.request(http.MethodPost, "/api/decks/"+deck.ID+"/plan", nil, withKey())
	assert.Equal(t, http.StatusConflict, w.Code)
	w = s.request(http.MethodDelete, "/api/decks/"+deck.ID, nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	unblock()
	assert.Equal(t, services.TaskCompleted, s.waitTask(t, taskID).Status)
}

func TestExportDownloads(t *testing.T) {
	s := newTestServer(t, defaultResponder)
	deck := s.plannedDeck(t)
	s.waitTask(t, s.startTask(t, "/api/decks/"+deck.ID+"/generate"))

	w := s.request(http.MethodGet, "/api/decks/"+deck.ID+"/export?format=markdown", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, w.Body.String(), "# Generated")

	w = s.request(http.MethodGet, "/api/decks/"+deck.ID+"/export", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	w = s.request(http.MethodGet, "/api/decks/"+deck.ID+"/export?format=pdf", nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrorExportFormatInvalid, decode(t, w).Error.Code)

	w = s.request(http.MethodGet, "/api/decks/missing/export?format=json", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
