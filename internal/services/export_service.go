// internal/services/export_service.go
package services

import (
	"encoding/json"
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	apperrors "github.com/Corphon/SlideCrafter/internal/errors"
	"github.com/Corphon/SlideCrafter/internal/models"
	"github.com/Corphon/SlideCrafter/internal/storage"
)

const exportsDir = "exports"

// DeckSource 导出所需的演示文稿读取接口
type DeckSource interface {
	GetDeck(deckID string) (*models.Deck, error)
}

// ExportService 把演示文稿导出为文件
type ExportService struct {
	decks DeckSource
	files *storage.FileStorage
}

// NewExportService 创建导出服务，files 为 nil 时只返回内容不落盘
func NewExportService(decks DeckSource, files *storage.FileStorage) *ExportService {
	return &ExportService{decks: decks, files: files}
}

// Export 导出并保存到 data/exports
func (s *ExportService) Export(deckID string, format models.ExportFormat) (*models.ExportResult, error) {
	if deckID == "" {
		return nil, apperrors.NewValidationError("演示文稿ID不能为空", nil)
	}
	deck, err := s.decks.GetDeck(deckID)
	if err != nil {
		return nil, err
	}
	return s.ExportDeck(deck, format)
}

// ExportDeck 导出给定的演示文稿
func (s *ExportService) ExportDeck(deck *models.Deck, format models.ExportFormat) (*models.ExportResult, error) {
	content, err := FormatDeck(deck, format)
	if err != nil {
		return nil, err
	}

	result := &models.ExportResult{
		DeckID:      deck.ID,
		Title:       deck.Title,
		Format:      format,
		Content:     content,
		GeneratedAt: time.Now(),
		SlideCount:  len(deck.Outputs),
	}

	if s.files != nil {
		path, size, err := s.saveExport(result)
		if err != nil {
			return nil, apperrors.NewProcessingError("保存导出文件失败", err)
		}
		result.FilePath = path
		result.FileSize = size
	}
	return result, nil
}

// FormatDeck 按格式生成导出内容
func FormatDeck(deck *models.Deck, format models.ExportFormat) (string, error) {
	if deck == nil {
		return "", apperrors.NewValidationError("演示文稿不能为空", nil)
	}
	switch format {
	case models.ExportHTML:
		return formatAsHTML(deck), nil
	case models.ExportMarkdown:
		return formatAsMarkdown(deck), nil
	case models.ExportSpeech:
		return formatSpeech(deck), nil
	case models.ExportJSON:
		data, err := json.MarshalIndent(deck, "", "  ")
		if err != nil {
			return "", apperrors.NewProcessingError("序列化演示文稿失败", err)
		}
		return string(data), nil
	default:
		return "", apperrors.NewValidationError("不支持的导出格式: "+string(format), nil)
	}
}

// ExportFileName 导出文件名
func ExportFileName(result *models.ExportResult) string {
	timestamp := result.GeneratedAt.Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s%s", result.DeckID, result.Format, timestamp, result.Format.Extension())
}

func (s *ExportService) saveExport(result *models.ExportResult) (string, int64, error) {
	fileName := ExportFileName(result)
	if err := s.files.SaveTextFile(exportsDir, fileName, []byte(result.Content)); err != nil {
		return "", 0, err
	}

	filePath := s.files.FilePath(exportsDir, fileName)
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return "", 0, fmt.Errorf("获取文件信息失败: %w", err)
	}
	return filePath, fileInfo.Size(), nil
}

// escapeAngles 只转义尖括号，保留 markdown 其余字符
func escapeAngles(s string) string {
	return strings.NewReplacer("<", "&lt;", ">", "&gt;").Replace(s)
}

func formatAsHTML(deck *models.Deck) string {
	msgs := models.MessagesFor(deck.Language)
	var content strings.Builder

	content.WriteString(`<!DOCTYPE html>
<html lang="`)
	content.WriteString(string(deck.Language))
	content.WriteString(`">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>`)
	content.WriteString(html.EscapeString(deck.Title))
	content.WriteString(`</title>
  <script src="https://cdn.tailwindcss.com"></script>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/@fortawesome/fontawesome-free@6.4.0/css/all.min.css">
  <link href="https://fonts.googleapis.com/css2?family=Noto+Sans+KR:wght@300;400;500;700&display=swap" rel="stylesheet">
  <style>
    body { font-family: 'Noto Sans KR', sans-serif; background-color: #F3E9DD; color: #333333; margin: 0; padding: 20px; display: flex; flex-direction: column; align-items: center; }
    #presentation { width: 100%; max-width: 860px; }
    .presentation-title { font-size: 2em; font-weight: bold; color: #E60012; margin-bottom: 10px; border-bottom: 2px solid #E60012; padding-bottom: 5px; text-align: center; }
    .slide-frame { width: 100%; aspect-ratio: 4 / 3; background: #fff; overflow: hidden; box-shadow: 0 4px 12px rgba(0,0,0,0.15); }
    .notes-container { margin-top: 16px; background: #fff; padding: 12px 16px; border-left: 4px solid #E60012; }
    .notes-container pre { white-space: pre-wrap; font-family: inherit; }
    .navigation-controls { display: flex; justify-content: center; gap: 12px; margin: 16px 0; }
    .navigation-controls button { background: #E60012; color: #fff; border: none; padding: 6px 16px; border-radius: 4px; cursor: pointer; }
  </style>
</head>
<body>
<div id="presentation">
  <div class="presentation-title">`)
	content.WriteString(html.EscapeString(deck.Title))
	content.WriteString(`</div>
  <div class="navigation-controls">
    <button id="prevBtn">&larr;</button><span id="slideCounter"></span><button id="nextBtn">&rarr;</button>
  </div>
`)

	for i := range deck.Outputs {
		slide := deck.Outputs[i]
		display := "none"
		if i == 0 {
			display = "block"
		}
		fmt.Fprintf(&content, `  <div id="slide-%d" class="slide-container" style="display: %s;">
    <div class="slide-frame">
`, i, display)
		content.WriteString(slide.RenderHTML())
		content.WriteString(`
    </div>
    <div class="notes-container">
      <h3 style="color: #E60012;">`)
		content.WriteString(html.EscapeString(fmt.Sprintf(msgs.SpeechNotesHeading, i+1, slide.Title)))
		content.WriteString(`</h3>
      <pre>`)
		content.WriteString(escapeAngles(strings.TrimSpace(slide.SpeechNotes)))
		content.WriteString(`</pre>
    </div>
  </div>
`)
	}

	fmt.Fprintf(&content, `</div>
<script>
  (function () {
    var total = %d, current = 0;
    var counter = document.getElementById('slideCounter');
    function show(i) {
      if (total === 0) { counter.textContent = '0 / 0'; return; }
      document.getElementById('slide-' + current).style.display = 'none';
      current = Math.max(0, Math.min(total - 1, i));
      document.getElementById('slide-' + current).style.display = 'block';
      counter.textContent = (current + 1) + ' / ' + total;
    }
    document.getElementById('prevBtn').onclick = function () { show(current - 1); };
    document.getElementById('nextBtn').onclick = function () { show(current + 1); };
    document.addEventListener('keydown', function (e) {
      if (e.key === 'ArrowLeft') show(current - 1);
      if (e.key === 'ArrowRight') show(current + 1);
    });
    show(0);
  })();
</script>
</body>
</html>
`, len(deck.Outputs))

	return content.String()
}

func formatAsMarkdown(deck *models.Deck) string {
	var content strings.Builder
	for i, slide := range deck.Outputs {
		if i > 0 {
			content.WriteString("\n\n---\n\n")
		}
		content.WriteString(strings.TrimSpace(slide.ExportMarkdown))
		if len(slide.GroundingReferences) > 0 {
			content.WriteString("\n\n")
			for _, ref := range slide.GroundingReferences {
				title := ref.Title
				if title == "" {
					title = ref.URI
				}
				fmt.Fprintf(&content, "- [%s](%s)\n", title, ref.URI)
			}
		}
	}
	content.WriteString("\n")
	return content.String()
}

func formatSpeech(deck *models.Deck) string {
	msgs := models.MessagesFor(deck.Language)
	var content strings.Builder
	fmt.Fprintf(&content, "# %s\n", deck.Title)
	for i, slide := range deck.Outputs {
		fmt.Fprintf(&content, "\n## %s\n\n", fmt.Sprintf(msgs.SpeechNotesHeading, i+1, slide.Title))
		content.WriteString(strings.TrimSpace(slide.SpeechNotes))
		content.WriteString("\n")
	}
	return content.String()
}
