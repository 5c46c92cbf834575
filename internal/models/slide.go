// internal/models/slide.go
package models

import (
	"html"
	"strings"
)

// ImagePlaceholderToken 幻灯片HTML中代表计划项配图的占位符
const ImagePlaceholderToken = "IMAGE_DATA_URI_PLACEHOLDER_FOR_SLIDE_ITEM"

// GroundingReference 模型响应附带的引用来源
type GroundingReference struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// SlideOutput 单张幻灯片的生成结果，通过 PlanID 关联计划项
type SlideOutput struct {
	PlanID              string               `json:"plan_id"`
	SlideNumber         int                  `json:"slide_number"`
	Title               string               `json:"title"`
	HTML                string               `json:"slide_html"`
	SpeechNotes         string               `json:"speech_md"`
	ExportMarkdown      string               `json:"slide_markdown_for_pptx"`
	GroundingReferences []GroundingReference `json:"grounding_references"`
	ItemImage           *ImageData           `json:"item_image,omitempty"`
}

// RenderHTML 把占位符替换为配图的 data URI；没有配图时原样返回
func (s *SlideOutput) RenderHTML() string {
	if s.ItemImage == nil || len(s.ItemImage.Data) == 0 {
		return s.HTML
	}
	return strings.ReplaceAll(s.HTML, ImagePlaceholderToken, s.ItemImage.DataURI())
}

// Clone 深拷贝
func (s SlideOutput) Clone() SlideOutput {
	out := s
	out.ItemImage = s.ItemImage.Clone()
	if s.GroundingReferences != nil {
		out.GroundingReferences = make([]GroundingReference, len(s.GroundingReferences))
		copy(out.GroundingReferences, s.GroundingReferences)
	}
	return out
}

// IndexOfOutput 按 PlanID 查找，找不到返回 -1
func IndexOfOutput(outputs []SlideOutput, planID string) int {
	for i := range outputs {
		if outputs[i].PlanID == planID {
			return i
		}
	}
	return -1
}

// SlideUpdate 单张幻灯片生成过程中的一次更新。
// 中间更新只带 PlanID 和临时标题；IsComplete 为 true 的更新恰好一次，且是最后一次。
type SlideUpdate struct {
	PlanID         string               `json:"plan_id"`
	SlideNumber    int                  `json:"slide_number,omitempty"`
	Title          string               `json:"title,omitempty"`
	HTML           string               `json:"slide_html,omitempty"`
	SpeechNotes    string               `json:"speech_md,omitempty"`
	ExportMarkdown string               `json:"slide_markdown_for_pptx,omitempty"`
	Grounding      []GroundingReference `json:"grounding,omitempty"`
	IsComplete     bool                 `json:"is_complete"`
	Failed         bool                 `json:"failed,omitempty"`
	Err            error                `json:"-"`
}

// GenerationProgress 整套生成的进度，每一步覆盖
type GenerationProgress struct {
	CurrentIndex  int    `json:"current_index"`
	Total         int    `json:"total"`
	StatusMessage string `json:"status_message"`
}

// Percent 百分比，Total 为0时返回0
func (p GenerationProgress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return p.CurrentIndex * 100 / p.Total
}

// ErrorBlockHTML 生成可见的错误块，所有文本都会转义
func ErrorBlockHTML(heading string, paragraphs ...string) string {
	var b strings.Builder
	b.WriteString(`<div class='p-4 text-red-600 font-[Noto Sans KR,sans-serif]'>`)
	b.WriteString(`<h1><i class="fas fa-exclamation-triangle mr-2"></i>`)
	b.WriteString(html.EscapeString(heading))
	b.WriteString(`</h1>`)
	for i, p := range paragraphs {
		if p == "" {
			continue
		}
		if i == len(paragraphs)-1 && len(paragraphs) > 1 {
			b.WriteString(`<p class="text-sm">`)
		} else {
			b.WriteString(`<p>`)
		}
		b.WriteString(html.EscapeString(p))
		b.WriteString(`</p>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

// NoticeHTML 居中的提示块（占位、重新生成中等）
func NoticeHTML(label, text string) string {
	var b strings.Builder
	b.WriteString(`<div class='p-4 text-[#E60012] text-center font-[Noto Sans KR,sans-serif]'>`)
	if label != "" {
		b.WriteString(`<strong>`)
		b.WriteString(html.EscapeString(label))
		b.WriteString(`</strong> `)
	}
	b.WriteString(`<p>`)
	b.WriteString(html.EscapeString(text))
	b.WriteString(`</p></div>`)
	return b.String()
}
