// cmd/slidegen/root.go
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Corphon/SlideCrafter/internal/app"
	"github.com/Corphon/SlideCrafter/internal/config"
	"github.com/Corphon/SlideCrafter/internal/models"
	"github.com/Corphon/SlideCrafter/internal/utils"
	"github.com/spf13/cobra"
)

// deckOptions plan 和 generate 共用的输入参数
type deckOptions struct {
	Input  string
	Image  string
	Title  string
	Lang   string
	Slides int
}

var apiKey string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "slidegen",
		Short:         "从文档生成演示文稿",
		Long:          "slidegen 读取文本文档（可选风格参考图片），调用 Gemini 规划并生成幻灯片，然后导出。",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gemini API 密钥（默认读取 GEMINI_API_KEY）")

	root.AddCommand(newPlanCmd(), newGenerateCmd())
	return root
}

func addDeckFlags(cmd *cobra.Command, opts *deckOptions) {
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "源文档路径（.txt / .md）")
	cmd.Flags().StringVar(&opts.Image, "image", "", "风格参考图片（jpeg / png / webp）")
	cmd.Flags().StringVarP(&opts.Title, "title", "t", "", "演示文稿标题，默认使用文件名")
	cmd.Flags().StringVarP(&opts.Lang, "lang", "l", "", "输出语言：ko / en / zh / ja")
	cmd.Flags().IntVarP(&opts.Slides, "slides", "n", 0, "幻灯片数量")
}

// resolveCredential 命令行参数优先，其次环境变量和配置
func resolveCredential(cfg *config.Config) (string, error) {
	if key := strings.TrimSpace(apiKey); key != "" {
		return key, nil
	}
	if cfg.GeminiAPIKey != "" {
		return cfg.GeminiAPIKey, nil
	}
	return "", fmt.Errorf("缺少 API 密钥：请使用 --api-key 或设置 GEMINI_API_KEY")
}

// session 一次命令运行期间的服务实例，演示文稿存放在临时目录
type session struct {
	app        *app.App
	credential string
	dataDir    string
	logger     *utils.Logger
}

func newSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	credential, err := resolveCredential(cfg)
	if err != nil {
		return nil, err
	}

	dataDir, err := os.MkdirTemp("", "slidegen-*")
	if err != nil {
		return nil, fmt.Errorf("创建临时目录失败: %w", err)
	}
	cfg.DataDir = dataDir

	a, err := app.New(cfg, app.Options{})
	if err != nil {
		os.RemoveAll(dataDir)
		return nil, err
	}
	return &session{app: a, credential: credential, dataDir: dataDir, logger: utils.GetLogger()}, nil
}

func (s *session) Close() {
	s.app.Close()
	os.RemoveAll(s.dataDir)
}

// prepareDeck 创建演示文稿并载入源文档和风格图片
func (s *session) prepareDeck(cmd *cobra.Command, opts deckOptions) (*models.Deck, error) {
	if opts.Input == "" && opts.Image == "" {
		return nil, fmt.Errorf("请通过 --input 或 --image 提供源内容")
	}

	title := opts.Title
	if title == "" {
		source := opts.Input
		if source == "" {
			source = opts.Image
		}
		base := filepath.Base(source)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	deck, err := s.app.Decks.CreateDeck(title, models.Language(opts.Lang), opts.Slides)
	if err != nil {
		return nil, err
	}

	var text string
	if opts.Input != "" {
		data, err := os.ReadFile(opts.Input)
		if err != nil {
			return nil, fmt.Errorf("读取源文档失败: %w", err)
		}
		text = string(data)
	}

	if opts.Image != "" {
		data, err := os.ReadFile(opts.Image)
		if err != nil {
			return nil, fmt.Errorf("读取图片失败: %w", err)
		}
		image := models.ImageData{MimeType: http.DetectContentType(data), Data: data}
		if _, err := s.app.Decks.UploadImage(deck.ID, filepath.Base(opts.Image), image); err != nil {
			return nil, err
		}
		s.logger.Info("🎨 正在分析风格参考图片", map[string]interface{}{"image": opts.Image})
		if _, err := s.app.Decks.GenerateStyleGuide(cmd.Context(), deck.ID, s.credential); err != nil {
			s.logger.Warn("⚠️ 风格指南生成失败，使用默认样式", map[string]interface{}{"error": err.Error()})
		}
		if text != "" {
			if _, err := s.app.Decks.SetSourceText(deck.ID, text); err != nil {
				return nil, err
			}
		}
	} else {
		if _, err := s.app.Decks.UploadDocument(deck.ID, filepath.Base(opts.Input), text); err != nil {
			return nil, err
		}
	}

	return s.app.Decks.GetDeck(deck.ID)
}
