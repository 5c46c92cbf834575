// internal/models/export.go
package models

import (
	"time"
)

// ExportFormat 导出格式
type ExportFormat string

const (
	ExportHTML     ExportFormat = "html"
	ExportMarkdown ExportFormat = "markdown"
	ExportSpeech   ExportFormat = "speech"
	ExportJSON     ExportFormat = "json"
)

// ExportResult 导出结果
type ExportResult struct {
	DeckID      string       `json:"deck_id"`
	Title       string       `json:"title"`
	Format      ExportFormat `json:"format"`
	Content     string       `json:"content"`
	GeneratedAt time.Time    `json:"generated_at"`
	SlideCount  int          `json:"slide_count"`
	FilePath    string       `json:"file_path"` // 导出文件路径
	FileSize    int64        `json:"file_size"` // 文件大小
}

// ContentType 下载时使用的 Content-Type
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportHTML:
		return "text/html; charset=utf-8"
	case ExportJSON:
		return "application/json; charset=utf-8"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// Extension 文件扩展名
func (f ExportFormat) Extension() string {
	switch f {
	case ExportHTML:
		return ".html"
	case ExportJSON:
		return ".json"
	default:
		return ".md"
	}
}

// ParseExportFormat 解析导出格式，md 视为 markdown
func ParseExportFormat(s string) (ExportFormat, bool) {
	switch ExportFormat(s) {
	case ExportHTML, ExportMarkdown, ExportSpeech, ExportJSON:
		return ExportFormat(s), true
	case "md":
		return ExportMarkdown, true
	}
	return "", false
}
