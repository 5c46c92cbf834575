package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(plan []PlanItem) []string {
	out := make([]string, len(plan))
	for i, item := range plan {
		out[i] = item.ID
	}
	return out
}

func TestPlanOperationsKeepNumbering(t *testing.T) {
	plan := []PlanItem{}
	plan, a := AddPlanItem(plan, "A", "", "New slide topic %d")
	plan, b := AddPlanItem(plan, "", "", "New slide topic %d")
	plan, c := AddPlanItem(plan, "C", "", "New slide topic %d")
	assert.Equal(t, "New slide topic 2", b.Topic, "默认主题带新页码")
	assert.Equal(t, 3, c.SlideNumber)

	plan, err := MovePlanItem(plan, a.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, c.ID, a.ID}, ids(plan))

	plan, err = MovePlanItem(plan, a.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, ids(plan))

	plan, err = RemovePlanItem(plan, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, c.ID}, ids(plan))
	for i, item := range plan {
		assert.Equal(t, i+1, item.SlideNumber)
	}

	_, err = RemovePlanItem(plan, "missing")
	assert.Error(t, err)
	_, err = UpdatePlanItem(plan, "missing", nil, nil)
	assert.Error(t, err)
}

func TestClonePlanIsDeep(t *testing.T) {
	plan := []PlanItem{{ID: "p", Image: &ImageData{MimeType: "image/png", Data: []byte{1}}}}
	clone := ClonePlan(plan)
	clone[0].Image.Data[0] = 9
	assert.Equal(t, byte(1), plan[0].Image.Data[0])
	assert.Nil(t, ClonePlan(nil))
}

func TestRenderHTMLSubstitutesImage(t *testing.T) {
	slide := SlideOutput{HTML: `<img src="` + ImagePlaceholderToken + `">`}
	assert.Equal(t, slide.HTML, slide.RenderHTML(), "没有配图时原样返回")

	slide.ItemImage = &ImageData{MimeType: "image/jpeg", Data: []byte("hi")}
	assert.Equal(t, `<img src="data:image/jpeg;base64,aGk=">`, slide.RenderHTML())
}

func TestParseDataURI(t *testing.T) {
	img, err := ParseDataURI("data:image/png;base64,AQID")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, []byte{1, 2, 3}, img.Data)
	assert.Equal(t, "data:image/png;base64,AQID", img.DataURI())

	for _, bad := range []string{"image/png;base64,AQID", "data:image/png;base64,", "data:image/png,AQID", "data:image/png;base64,@@"} {
		_, err := ParseDataURI(bad)
		assert.Error(t, err, bad)
	}
	assert.True(t, IsAcceptedImageType(" IMAGE/PNG "))
	assert.False(t, IsAcceptedImageType("image/gif"))
}

func TestErrorBlockHTMLEscapes(t *testing.T) {
	block := ErrorBlockHTML("<h>", "para <b>", "hint")
	assert.Contains(t, block, "&lt;h&gt;")
	assert.Contains(t, block, "<p>para &lt;b&gt;</p>")
	assert.Contains(t, block, `<p class="text-sm">hint</p>`)

	notice := NoticeHTML("Error:", "empty")
	assert.Contains(t, notice, "<strong>Error:</strong>")
}

func TestMessagesCatalogs(t *testing.T) {
	for _, info := range SupportedLanguages {
		msgs := MessagesFor(info.Code)
		require.NotNil(t, msgs)
		assert.NotEmpty(t, msgs.MissingCredential, info.Code)
		assert.NotEmpty(t, msgs.SpeechNotesHeading, info.Code)
		assert.NotEmpty(t, msgs.NewSlideTopic, info.Code)
	}
	assert.Same(t, MessagesFor(LanguageEnglish), MessagesFor("xx"), "未知语言回退到英文")
	assert.Equal(t, "Japanese (日本語)", LanguageJapanese.Name())
	assert.Equal(t, "xx", Language("xx").Name())
}

func TestDeckCloneAndSummary(t *testing.T) {
	deck := NewDeck("T", "xx", 0)
	assert.Equal(t, LanguageKorean, deck.Language)
	assert.Equal(t, DefaultNumberOfSlides, deck.NumberOfSlides)

	guide := "g"
	deck.StyleGuide = &guide
	deck.Outputs = []SlideOutput{{PlanID: "p"}}
	clone := deck.Clone()
	*clone.StyleGuide = "changed"
	clone.Outputs[0].Title = "changed"
	assert.Equal(t, "g", deck.StyleGuideText())
	assert.Empty(t, deck.Outputs[0].Title)

	assert.Equal(t, 1, deck.Summary().SlideCount)
	assert.Equal(t, 50, GenerationProgress{CurrentIndex: 1, Total: 2}.Percent())
	assert.Equal(t, 0, GenerationProgress{}.Percent())
}

func TestSlideOutputCloneKeepsEmptyReferences(t *testing.T) {
	empty := SlideOutput{PlanID: "p", GroundingReferences: []GroundingReference{}}
	clone := empty.Clone()
	require.NotNil(t, clone.GroundingReferences, "空引用列表复制后仍是空列表")
	assert.Empty(t, clone.GroundingReferences)

	withRefs := SlideOutput{GroundingReferences: []GroundingReference{{URI: "https://a", Title: "A"}}}
	clone = withRefs.Clone()
	clone.GroundingReferences[0].Title = "changed"
	assert.Equal(t, "A", withRefs.GroundingReferences[0].Title)

	deck := NewDeck("T", LanguageEnglish, 1)
	deck.Outputs = []SlideOutput{empty}
	assert.NotNil(t, deck.Clone().Outputs[0].GroundingReferences)
}

func TestParseExportFormat(t *testing.T) {
	f, ok := ParseExportFormat("md")
	assert.True(t, ok)
	assert.Equal(t, ExportMarkdown, f)
	_, ok = ParseExportFormat("pptx")
	assert.False(t, ok)
	assert.Equal(t, ".html", ExportHTML.Extension())
}
