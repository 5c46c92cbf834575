package app

import (
	"context"
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
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
		// genai 的依赖在 init 时启动的统计 worker
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.DefaultLanguage = "en"
	cfg.ModelRatePerSec = 1000
	return cfg
}

func TestNewWiresServices(t *testing.T) {
	provider := llmtest.NewProvider(llmtest.Reply{Chunks: []string{`[{"topic":"A","summary":"a"}]`}})
	a, err := New(testConfig(t), Options{Connector: llmtest.NewConnector(provider)})
	require.NoError(t, err)
	defer a.Close()

	for _, name := range []string{di.ServiceDeck, di.ServiceProgress, di.ServiceExport, di.ServicePlan, di.ServiceUsage} {
		assert.True(t, a.Container.Has(name), name)
	}
	decks, err := di.Resolve[*services.DeckService](a.Container, di.ServiceDeck)
	require.NoError(t, err)

	deck, err := decks.CreateDeck("Wired", "", 1)
	require.NoError(t, err)
	assert.Equal(t, models.LanguageEnglish, deck.Language)

	plan, err := decks.GeneratePlan(context.Background(), deck.ID, "key")
	require.NoError(t, err)
	assert.Len(t, plan, 1)
	assert.Len(t, provider.Requests(), 1, "调用经过限速连接器到达提供者")
	assert.Equal(t, 1, a.Usage.GetUsageStats().TodayRequests, "模型调用计入用量")
}

func TestNewRestoresPersistedDecks(t *testing.T) {
	cfg := testConfig(t)
	connector := llmtest.NewConnector(llmtest.NewProvider(llmtest.Reply{}))

	first, err := New(cfg, Options{Connector: connector})
	require.NoError(t, err)
	deck, err := first.Decks.CreateDeck("Kept", models.LanguageJapanese, 2)
	require.NoError(t, err)
	first.Close()

	second, err := New(cfg, Options{Connector: connector})
	require.NoError(t, err)
	defer second.Close()
	got, err := second.Decks.GetDeck(deck.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kept", got.Title)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxSlides = 0
	_, err := New(cfg, Options{})
	assert.Error(t, err)
	_, err = New(nil, Options{})
	assert.Error(t, err)
}

func TestRunJanitorStopsWithContext(t *testing.T) {
	a, err := New(testConfig(t), Options{Connector: llm.ConnectorFunc(func(context.Context, string) (llm.Provider, error) {
		return llmtest.NewProvider(llmtest.Reply{}), nil
	})})
	require.NoError(t, err)
	defer a.Close()

	tracker := a.Progress.CreateTracker("t1", "d1", nil)
	tracker.Complete("")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunJanitor(ctx, time.Millisecond, 0) }()

	require.Eventually(t, func() bool {
		_, ok := a.Progress.GetTracker("t1")
		return !ok
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
