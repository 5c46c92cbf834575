// internal/models/deck.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// AppStep 演示文稿所处的步骤
type AppStep string

const (
	StepUploadConfig        AppStep = "UPLOAD_CONFIG"
	StepPlanDefinition      AppStep = "PLAN_DEFINITION"
	StepGeneratingContent   AppStep = "GENERATING_CONTENT"
	StepPreviewPresentation AppStep = "PREVIEW_PRESENTATION"
)

// GenerationState 生成状态机
type GenerationState string

const (
	StateIdle            GenerationState = "idle"
	StatePlanning        GenerationState = "planning"
	StateGeneratingAll   GenerationState = "generating_all"
	StateRegeneratingOne GenerationState = "regenerating_one"
)

// Deck 一份演示文稿及其生成状态
type Deck struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Language       Language `json:"language"`
	NumberOfSlides int      `json:"number_of_slides"`

	SourceName  string     `json:"source_name,omitempty"`
	SourceText  string     `json:"source_text"`
	SourceImage *ImageData `json:"source_image,omitempty"`

	// nil: 未请求; "": 请求但失败; 其他: markdown
	StyleGuide         *string `json:"style_guide"`
	StyleGuideInFlight bool    `json:"style_guide_in_flight"`

	Plan    []PlanItem    `json:"plan"`
	Outputs []SlideOutput `json:"outputs"`

	Step               AppStep            `json:"step"`
	State              GenerationState    `json:"state"`
	RegeneratingPlanID string             `json:"regenerating_plan_id,omitempty"`
	Progress           GenerationProgress `json:"progress"`
	LastError          string             `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeckSummary 列表展示用
type DeckSummary struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Language   Language        `json:"language"`
	Step       AppStep         `json:"step"`
	State      GenerationState `json:"state"`
	PlanSize   int             `json:"plan_size"`
	SlideCount int             `json:"slide_count"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewDeck 创建空白演示文稿
func NewDeck(title string, lang Language, numberOfSlides int) *Deck {
	if !lang.IsSupported() {
		lang = LanguageKorean
	}
	if numberOfSlides <= 0 {
		numberOfSlides = DefaultNumberOfSlides
	}
	now := time.Now()
	return &Deck{
		ID:             uuid.NewString(),
		Title:          title,
		Language:       lang,
		NumberOfSlides: numberOfSlides,
		Plan:           []PlanItem{},
		Outputs:        []SlideOutput{},
		Step:           StepUploadConfig,
		State:          StateIdle,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Clone 深拷贝，供对外返回
func (d *Deck) Clone() *Deck {
	if d == nil {
		return nil
	}
	out := *d
	out.SourceImage = d.SourceImage.Clone()
	if d.StyleGuide != nil {
		sg := *d.StyleGuide
		out.StyleGuide = &sg
	}
	out.Plan = ClonePlan(d.Plan)
	if d.Outputs != nil {
		out.Outputs = make([]SlideOutput, len(d.Outputs))
		for i, o := range d.Outputs {
			out.Outputs[i] = o.Clone()
		}
	}
	return &out
}

// Summary 摘要
func (d *Deck) Summary() DeckSummary {
	return DeckSummary{
		ID:         d.ID,
		Title:      d.Title,
		Language:   d.Language,
		Step:       d.Step,
		State:      d.State,
		PlanSize:   len(d.Plan),
		SlideCount: len(d.Outputs),
		UpdatedAt:  d.UpdatedAt,
	}
}

// StyleGuideText 返回风格指南文本；未请求或失败时为空串
func (d *Deck) StyleGuideText() string {
	if d.StyleGuide == nil {
		return ""
	}
	return *d.StyleGuide
}

// Touch 更新修改时间
func (d *Deck) Touch() {
	d.UpdatedAt = time.Now()
}
