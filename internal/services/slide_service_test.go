package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "github.com/Corphon/SlideCrafter/internal/errors"
	"github.com/Corphon/SlideCrafter/internal/llm"
	"github.com/Corphon/SlideCrafter/internal/llm/llmtest"
	"github.com/Corphon/SlideCrafter/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slideRequest(item models.PlanItem) SlideRequest {
	return SlideRequest{
		Item:       item,
		Plan:       []models.PlanItem{item},
		SourceText: "source",
		Title:      "Deck",
		Language:   models.LanguageEnglish,
		Credential: testKey,
	}
}

func testItem(topic string) models.PlanItem {
	return models.PlanItem{ID: models.NewPlanItemID(), SlideNumber: 1, Topic: topic, Summary: "summary of " + topic}
}

// assertSingleTerminal 最后一个更新是唯一的 IsComplete 更新
func assertSingleTerminal(t *testing.T, updates []models.SlideUpdate) models.SlideUpdate {
	t.Helper()
	require.NotEmpty(t, updates)
	complete := 0
	for _, u := range updates {
		if u.IsComplete {
			complete++
		}
	}
	require.Equal(t, 1, complete, "应恰好有一个最终更新")
	last := updates[len(updates)-1]
	require.True(t, last.IsComplete, "最终更新必须是最后一个")
	return last
}

func TestSlideGenerateStreamsThenCompletes(t *testing.T) {
	grounding := []llm.GroundingChunk{
		{URI: "https://example.com/a", Title: "A"},
		{URI: "", Title: "dropped"},
	}
	h := newHarness(t, func(llm.CompletionRequest) llmtest.Reply {
		return llmtest.Reply{Chunks: chunked(slideJSON("Intro"), 4), Grounding: grounding}
	})
	item := testItem("Intro")

	ch, err := h.slides.Generate(context.Background(), slideRequest(item))
	require.NoError(t, err)
	updates := collect(ch)

	final := assertSingleTerminal(t, updates)
	assert.Len(t, updates, 5, "4个分片对应4个中间更新加1个最终更新")
	for _, u := range updates[:len(updates)-1] {
		assert.Equal(t, item.ID, u.PlanID)
		assert.Equal(t, "Intro", u.Title)
		assert.Empty(t, u.HTML, "中间更新不携带内容")
	}

	assert.False(t, final.Failed)
	assert.Equal(t, item.ID, final.PlanID)
	assert.Equal(t, 1, final.SlideNumber)
	assert.Equal(t, "Intro", final.Title)
	assert.Equal(t, "<div><h1>Intro</h1></div>", final.HTML)
	assert.Equal(t, "Speech for Intro", final.SpeechNotes)
	assert.Equal(t, "# Intro", final.ExportMarkdown)
	assert.Equal(t, []models.GroundingReference{{URI: "https://example.com/a", Title: "A"}}, final.Grounding)
}

func TestSlideGenerateKeepsImagePlaceholder(t *testing.T) {
	body := `{"title":"Pic","slideHtml":"<img src=\"IMAGE_DATA_URI_PLACEHOLDER_FOR_SLIDE_ITEM\">","speechMd":"s","slideMarkdownForPptx":"m"}`
	h := newHarness(t, func(llm.CompletionRequest) llmtest.Reply {
		return llmtest.Reply{Chunks: []string{body}}
	})
	item := testItem("Pic")
	item.Image = &models.ImageData{MimeType: "image/png", Data: []byte{1, 2, 3}}

	ch, err := h.slides.Generate(context.Background(), slideRequest(item))
	require.NoError(t, err)
	final := assertSingleTerminal(t, collect(ch))

	assert.Contains(t, final.HTML, models.ImagePlaceholderToken)
	requests := h.provider.Requests()
	require.Len(t, requests, 1)
	assert.Contains(t, requests[0].Prompt, `src="IMAGE_DATA_URI_PLACEHOLDER_FOR_SLIDE_ITEM"`)
	assert.Contains(t, requests[0].Prompt, "image/png")
	assert.True(t, requests[0].JSONResponse)
}

func TestSlideGenerateMissingCredentialIsSynchronous(t *testing.T) {
	h := newHarness(t, func(llm.CompletionRequest) llmtest.Reply { return llmtest.Reply{} })
	req := slideRequest(testItem("Intro"))
	req.Credential = ""

	ch, err := h.slides.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Nil(t, ch)
	assert.True(t, apperrors.IsMissingCredentialError(err))
	assert.Equal(t, 0, h.connector.Opens())
}

func TestSlideGenerateFailuresBecomeTerminalUpdate(t *testing.T) {
	cases := []struct {
		name  string
		reply llmtest.Reply
		check func(error) bool
	}{
		{"流开始前出错", llmtest.Reply{Err: errors.New("connection reset")}, func(error) bool { return true }},
		{"流中出错", llmtest.Reply{Chunks: []string{`{"title":`}, StreamErr: errors.New("stream broken")}, func(error) bool { return true }},
		{"JSON无效", llmtest.Reply{Chunks: []string{"not json"}}, apperrors.IsMalformedJSONError},
		{"字段缺失", llmtest.Reply{Chunks: []string{`{"title":"x","slideHtml":"y"}`}}, apperrors.IsUnexpectedShapeError},
		{"字段类型错误", llmtest.Reply{Chunks: []string{`{"title":"x","slideHtml":1,"speechMd":"s","slideMarkdownForPptx":"m"}`}}, apperrors.IsUnexpectedShapeError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, func(llm.CompletionRequest) llmtest.Reply { return tc.reply })
			item := testItem("Budget")

			ch, err := h.slides.Generate(context.Background(), slideRequest(item))
			require.NoError(t, err)
			final := assertSingleTerminal(t, collect(ch))

			assert.True(t, final.Failed)
			require.Error(t, final.Err)
			assert.True(t, tc.check(final.Err), "错误分类: %v", final.Err)
			assert.Equal(t, item.ID, final.PlanID)
			assert.Equal(t, "Budget", final.Title)
			for _, field := range []string{final.HTML, final.SpeechNotes, final.ExportMarkdown} {
				assert.Contains(t, field, "Budget")
				assert.Contains(t, field, "English")
			}
			assert.NotNil(t, final.Grounding)
		})
	}
}

func TestSlideGenerateInvalidCredentialRewritten(t *testing.T) {
	h := newHarness(t, func(llm.CompletionRequest) llmtest.Reply {
		return llmtest.Reply{Err: errors.New("API key not valid. Please pass a valid API key.")}
	})
	ch, err := h.slides.Generate(context.Background(), slideRequest(testItem("Intro")))
	require.NoError(t, err)
	final := assertSingleTerminal(t, collect(ch))

	assert.True(t, final.Failed)
	assert.Contains(t, final.SpeechNotes, "The Gemini API key is not valid")
	assert.Contains(t, final.SpeechNotes, "(API key not valid. Please pass a valid API key.)")
}

func TestSlideGenerateErrorTextIsEscapedInHTML(t *testing.T) {
	h := newHarness(t, func(llm.CompletionRequest) llmtest.Reply {
		return llmtest.Reply{Err: errors.New("<script>alert(1)</script>")}
	})
	ch, err := h.slides.Generate(context.Background(), slideRequest(testItem("Intro")))
	require.NoError(t, err)
	final := assertSingleTerminal(t, collect(ch))

	assert.NotContains(t, final.HTML, "<script>")
	assert.Contains(t, final.HTML, "&lt;script&gt;")
}

// blockingProvider 发送一个分片后一直等到 ctx 取消
type blockingProvider struct {
	llmtest.Provider
}

func (p *blockingProvider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamResponse, error) {
	ch := make(chan llm.StreamResponse)
	go func() {
		defer close(ch)
		select {
		case ch <- llm.StreamResponse{Text: `{"title":`}:
		case <-ctx.Done():
			return
		}
		<-ctx.Done()
	}()
	return ch, nil
}

func TestSlideGenerateCancelledContext(t *testing.T) {
	h := newHarness(t, func(llm.CompletionRequest) llmtest.Reply { return llmtest.Reply{} })
	provider := &blockingProvider{}
	slides := NewSlideService(llm.ConnectorFunc(func(context.Context, string) (llm.Provider, error) {
		return provider, nil
	}), h.slides.prompts, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := slides.Generate(ctx, slideRequest(testItem("Intro")))
	require.NoError(t, err)

	// 读到第一个中间更新后取消
	first, ok := <-ch
	require.True(t, ok)
	assert.False(t, first.IsComplete)
	cancel()

	var updates []models.SlideUpdate
	done := make(chan struct{})
	go func() {
		defer close(done)
		updates = collect(ch)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("取消后通道没有关闭")
	}

	final := assertSingleTerminal(t, updates)
	assert.True(t, final.Failed)
	assert.ErrorIs(t, final.Err, context.Canceled)
}

func TestSlidePromptContext(t *testing.T) {
	h := newHarness(t, func(llm.CompletionRequest) llmtest.Reply {
		return llmtest.Reply{Chunks: []string{slideJSON("x")}}
	})
	item := testItem("Intro")
	other := models.PlanItem{ID: "plan-2", SlideNumber: 2, Topic: "Data", Summary: strings.Repeat("s", 150)}
	req := slideRequest(item)
	req.Plan = []models.PlanItem{item, other}
	req.SourceText = strings.Repeat("b", SlideSourceLimit) + "TAIL_MARKER"
	req.StyleGuide = "## Dominant Colors"

	ch, err := h.slides.Generate(context.Background(), req)
	require.NoError(t, err)
	collect(ch)

	prompt := h.provider.Requests()[0].Prompt
	assert.Contains(t, prompt, "2. Data: "+strings.Repeat("s", 100)+"...")
	assert.NotContains(t, prompt, strings.Repeat("s", 101))
	assert.NotContains(t, prompt, "TAIL_MARKER")
	assert.Contains(t, prompt, "## Dominant Colors")
	assert.NotContains(t, prompt, "No design style guide was provided")
}

func TestSlidePromptWithoutStyleGuide(t *testing.T) {
	h := newHarness(t, func(llm.CompletionRequest) llmtest.Reply {
		return llmtest.Reply{Chunks: []string{slideJSON("x")}}
	})
	ch, err := h.slides.Generate(context.Background(), slideRequest(testItem("Intro")))
	require.NoError(t, err)
	collect(ch)

	assert.Contains(t, h.provider.Requests()[0].Prompt, "No design style guide was provided")
}

func TestPlanOverviewFormat(t *testing.T) {
	overview := PlanOverview([]models.PlanItem{
		{SlideNumber: 1, Topic: "A", Summary: "first"},
		{SlideNumber: 2, Topic: "B", Summary: "second"},
	})
	assert.Equal(t, "1. A: first...\n2. B: second...", overview)
}
