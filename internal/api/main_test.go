package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Corphon/SlideCrafter/internal/app"
	"github.com/Corphon/SlideCrafter/internal/config"
	"github.com/Corphon/SlideCrafter/internal/llm"
	"github.com/Corphon/SlideCrafter/internal/llm/llmtest"
	"github.com/Corphon/SlideCrafter/internal/models"
	"github.com/Corphon/SlideCrafter/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
		// genai 的依赖在 init 时启动的统计 worker
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

const testKey = "test-key"

var testPNG = append([]byte("\x89PNG\r\n\x1a\n"), 0, 0, 0, 13, 'I', 'H', 'D', 'R')

// envelope 解析 APIResponse，Data 延迟解析
type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
}

type testServer struct {
	app      *app.App
	engine   *gin.Engine
	handler  *Handler
	provider *llmtest.Provider
}

// slideReply 合法的幻灯片输出，分三段流式返回
func slideReply(title string) llmtest.Reply {
	data, _ := json.Marshal(map[string]string{
		"title":                title,
		"slideHtml":            "<div><h1>" + title + "</h1></div>",
		"speechMd":             "Speech for " + title,
		"slideMarkdownForPptx": "# " + title,
	})
	s := string(data)
	third := len(s) / 3
	return llmtest.Reply{Chunks: []string{s[:third], s[third : 2*third], s[2*third:]}}
}

func planReply(topics ...string) llmtest.Reply {
	items := make([]map[string]string, len(topics))
	for i, topic := range topics {
		items[i] = map[string]string{"topic": topic, "summary": "about " + topic}
	}
	data, _ := json.Marshal(items)
	return llmtest.Reply{Chunks: []string{string(data)}}
}

func isPlanPrompt(req llm.CompletionRequest) bool {
	return strings.Contains(req.Prompt, "expert presentation planner")
}

func isStyleGuidePrompt(req llm.CompletionRequest) bool {
	return strings.Contains(req.Prompt, "design-forensics")
}

// defaultResponder 计划返回三个主题，风格指南返回固定 markdown，其余按幻灯片处理
func defaultResponder(req llm.CompletionRequest) llmtest.Reply {
	switch {
	case isPlanPrompt(req):
		return planReply("Intro", "Data", "Outlook")
	case isStyleGuidePrompt(req):
		return llmtest.Reply{Chunks: []string{"# Style Guide\n- Primary color: #123456"}}
	default:
		return slideReply("Generated")
	}
}

func newTestServer(t *testing.T, respond func(llm.CompletionRequest) llmtest.Reply) *testServer {
	t.Helper()
	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.StaticDir = t.TempDir()
	cfg.DefaultLanguage = "en"
	cfg.ModelRatePerSec = 1000
	cfg.ModelBurst = 100
	cfg.RequestTimeout = 10 * time.Second

	provider := &llmtest.Provider{Respond: respond}
	a, err := app.New(cfg, app.Options{Connector: llmtest.NewConnector(provider)})
	require.NoError(t, err)

	engine, handler, err := SetupRouter(a.Container)
	require.NoError(t, err)
	t.Cleanup(func() {
		handler.Close()
		a.Close()
	})
	return &testServer{app: a, engine: engine, handler: handler, provider: provider}
}

// request 发送请求；body 为 []byte 时原样发送，否则编码为 JSON
func (s *testServer) request(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func withKey() map[string]string {
	return map[string]string{CredentialHeader: testKey}
}

// upload 以 multipart 上传一个文件
func (s *testServer) upload(t *testing.T, path, field, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(CredentialHeader, testKey)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	env := decode(t, w)
	require.True(t, env.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, v))
}

// deckFrom 把响应数据解析为新的 Deck
func deckFrom(t *testing.T, w *httptest.ResponseRecorder) models.Deck {
	t.Helper()
	var deck models.Deck
	decodeData(t, w, &deck)
	return deck
}

// createDeck 通过API创建演示文稿
func (s *testServer) createDeck(t *testing.T, title string, n int) models.Deck {
	t.Helper()
	w := s.request(http.MethodPost, "/api/decks", CreateDeckRequest{Title: title, NumberOfSlides: n}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return deckFrom(t, w)
}

// plannedDeck 创建演示文稿、写入源文本并生成计划
func (s *testServer) plannedDeck(t *testing.T) models.Deck {
	t.Helper()
	deck := s.createDeck(t, "Quarterly Review", 3)
	w := s.request(http.MethodPut, "/api/decks/"+deck.ID+"/source", map[string]string{"source_text": "Revenue grew 20%."}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.request(http.MethodPost, "/api/decks/"+deck.ID+"/plan", nil, withKey())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	deck = deckFrom(t, w)
	require.Len(t, deck.Plan, 3)
	return deck
}

// startTask 提交异步任务并返回任务ID
func (s *testServer) startTask(t *testing.T, path string) string {
	t.Helper()
	w := s.request(http.MethodPost, path, nil, withKey())
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var data struct {
		TaskID string `json:"task_id"`
	}
	decodeData(t, w, &data)
	require.NotEmpty(t, data.TaskID)
	return data.TaskID
}

// waitTask 等待任务结束并返回最终状态
func (s *testServer) waitTask(t *testing.T, taskID string) services.ProgressUpdate {
	t.Helper()
	tracker, ok := s.handler.ProgressService.GetTracker(taskID)
	require.True(t, ok)
	select {
	case <-tracker.Done:
	case <-time.After(5 * time.Second):
		t.Fatalf("任务 %s 未在时限内结束", taskID)
	}
	return tracker.Snapshot()
}
