package services

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	apperrors "github.com/Corphon/SlideCrafter/internal/errors"
	"github.com/Corphon/SlideCrafter/internal/models"
	"github.com/Corphon/SlideCrafter/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportDeck() *models.Deck {
	deck := models.NewDeck("Q3 <Review>", models.LanguageEnglish, 2)
	deck.Outputs = []models.SlideOutput{
		{
			PlanID:              "plan-1",
			SlideNumber:         1,
			Title:               "Intro",
			HTML:                `<div><img src="` + models.ImagePlaceholderToken + `"></div>`,
			SpeechNotes:         "Hello <everyone>",
			ExportMarkdown:      "# Intro",
			GroundingReferences: []models.GroundingReference{{URI: "https://example.com", Title: "Example"}},
			ItemImage:           &models.ImageData{MimeType: "image/png", Data: []byte{1, 2, 3}},
		},
		{
			PlanID:              "plan-2",
			SlideNumber:         2,
			Title:               "Data",
			HTML:                "<div>Data</div>",
			SpeechNotes:         "Numbers",
			ExportMarkdown:      "# Data",
			GroundingReferences: []models.GroundingReference{},
		},
	}
	return deck
}

func TestFormatDeckHTML(t *testing.T) {
	content, err := FormatDeck(exportDeck(), models.ExportHTML)
	require.NoError(t, err)

	assert.Contains(t, content, "<title>Q3 &lt;Review&gt;</title>")
	assert.Contains(t, content, "data:image/png;base64,AQID", "占位符替换为配图")
	assert.NotContains(t, content, models.ImagePlaceholderToken)
	assert.Contains(t, content, "Hello &lt;everyone&gt;")
	assert.Contains(t, content, "Speech notes (slide 1: Intro)")
	assert.Contains(t, content, `id="slide-1"`)
	assert.Contains(t, content, "var total = 2")
}

func TestFormatDeckMarkdownAndSpeech(t *testing.T) {
	deck := exportDeck()

	md, err := FormatDeck(deck, models.ExportMarkdown)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(md, "# Intro"))
	assert.Contains(t, md, "- [Example](https://example.com)")
	assert.Contains(t, md, "\n\n---\n\n# Data")

	speech, err := FormatDeck(deck, models.ExportSpeech)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(speech, "# Q3 <Review>\n"))
	assert.Contains(t, speech, "## Speech notes (slide 2: Data)\n\nNumbers")

	raw, err := FormatDeck(deck, models.ExportJSON)
	require.NoError(t, err)
	var decoded models.Deck
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Len(t, decoded.Outputs, 2)

	_, err = FormatDeck(deck, models.ExportFormat("pdf"))
	assert.True(t, apperrors.IsValidationError(err))
}

func TestExportSavesFile(t *testing.T) {
	h := newHarness(t, deckResponder(nil, nil))
	deck, err := h.decks.CreateDeck("Saved", models.LanguageEnglish, 2)
	require.NoError(t, err)

	files, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewExportService(h.decks, files)

	result, err := svc.Export(deck.ID, models.ExportMarkdown)
	require.NoError(t, err)
	assert.Equal(t, deck.ID, result.DeckID)
	assert.Equal(t, 0, result.SlideCount)
	require.NotEmpty(t, result.FilePath)

	data, err := os.ReadFile(result.FilePath)
	require.NoError(t, err)
	assert.Equal(t, result.Content, string(data))
	assert.Equal(t, int64(len(data)), result.FileSize)
	assert.True(t, strings.HasSuffix(result.FilePath, ".md"))

	_, err = svc.Export("missing", models.ExportMarkdown)
	assert.True(t, apperrors.IsNotFoundError(err))
}
