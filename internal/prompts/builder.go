// internal/prompts/builder.go
package prompts

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

// Mode 提示词模板名称
type Mode string

const (
	ModePlan       Mode = "plan"
	ModeSlide      Mode = "slide"
	ModeStyleGuide Mode = "style_guide"
)

//go:embed templates/*.md
var templateFS embed.FS

// PlanData 计划提示词参数
type PlanData struct {
	Title          string
	LanguageName   string
	NumberOfSlides int
	SourceText     string
	SourceLimit    int
}

// SlideData 单页幻灯片提示词参数
type SlideData struct {
	Title         string
	LanguageName  string
	SlideNumber   int
	Topic         string
	Summary       string
	HasImage      bool
	ImageMimeType string
	Placeholder   string
	PlanOverview  string
	SourceText    string
	StyleGuide    string
}

// StyleGuideData 风格指南提示词参数
type StyleGuideData struct {
	MaxColors int
}

// Builder 持有解析好的模板
type Builder struct {
	templates map[Mode]*template.Template
}

// NewBuilder 解析所有内嵌模板
func NewBuilder() (*Builder, error) {
	parsed := make(map[Mode]*template.Template)
	for _, mode := range []Mode{ModePlan, ModeSlide, ModeStyleGuide} {
		content, err := templateFS.ReadFile("templates/" + string(mode) + ".md")
		if err != nil {
			return nil, fmt.Errorf("读取提示词模板 '%s' 失败: %w", mode, err)
		}
		if len(content) == 0 {
			return nil, fmt.Errorf("提示词模板 '%s' 内容为空", mode)
		}
		tmpl, err := template.New(string(mode)).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("解析提示词模板 '%s' 失败: %w", mode, err)
		}
		parsed[mode] = tmpl
	}
	return &Builder{templates: parsed}, nil
}

// MustNewBuilder 模板是内嵌的，解析失败属于编程错误
func MustNewBuilder() *Builder {
	b, err := NewBuilder()
	if err != nil {
		panic(err)
	}
	return b
}

// Build 执行指定模板
func (b *Builder) Build(mode Mode, data interface{}) (string, error) {
	tmpl, ok := b.templates[mode]
	if !ok {
		return "", fmt.Errorf("未知的提示词模板: '%s'", mode)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("执行提示词模板 '%s' 失败: %w", mode, err)
	}
	return sb.String(), nil
}

func (b *Builder) Plan(data PlanData) (string, error) { return b.Build(ModePlan, data) }

func (b *Builder) Slide(data SlideData) (string, error) { return b.Build(ModeSlide, data) }

func (b *Builder) StyleGuide(data StyleGuideData) (string, error) {
	return b.Build(ModeStyleGuide, data)
}
