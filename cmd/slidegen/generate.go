// cmd/slidegen/generate.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Corphon/SlideCrafter/internal/models"
	"github.com/Corphon/SlideCrafter/internal/services"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type generateOptions struct {
	deckOptions
	Out     string
	Formats []string
}

func newGenerateCmd() *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "规划并生成整套演示文稿，然后导出",
		Long: `generate 依次执行：载入源文档和风格图片、生成计划、逐页生成幻灯片、导出。
指定多个 --format 时，每种格式写入 --out 同名但扩展名不同的文件。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			formats, err := parseFormats(opts.Formats)
			if err != nil {
				return err
			}

			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			deck, err := s.prepareDeck(cmd, opts.deckOptions)
			if err != nil {
				return err
			}

			s.logger.Info("📝 正在生成演示计划", map[string]interface{}{"deck_id": deck.ID})
			plan, err := s.app.Decks.GeneratePlan(cmd.Context(), deck.ID, s.credential)
			if err != nil {
				return err
			}
			s.logger.Infof("✅ 计划完成，共 %d 页", len(plan))

			err = s.app.Decks.GenerateAll(cmd.Context(), deck.ID, s.credential, services.GenerateOptions{
				OnProgress: func(p models.GenerationProgress) {
					s.logger.Info("⏳ "+p.StatusMessage, map[string]interface{}{
						"current": p.CurrentIndex,
						"total":   p.Total,
						"percent": p.Percent(),
					})
				},
			})
			if err != nil {
				return err
			}

			deck, err = s.app.Decks.GetDeck(deck.ID)
			if err != nil {
				return err
			}
			return writeExports(deck, formats, opts.Out)
		},
	}
	addDeckFlags(cmd, &opts.deckOptions)
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "deck.html", "输出文件路径")
	cmd.Flags().StringSliceVarP(&opts.Formats, "format", "f", []string{string(models.ExportHTML)}, "导出格式：html / markdown / speech / json，可重复")
	return cmd
}

func parseFormats(values []string) ([]models.ExportFormat, error) {
	formats := make([]models.ExportFormat, 0, len(values))
	for _, v := range values {
		format, ok := models.ParseExportFormat(strings.ToLower(strings.TrimSpace(v)))
		if !ok {
			return nil, fmt.Errorf("不支持的导出格式: %s", v)
		}
		formats = append(formats, format)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("至少需要一种导出格式")
	}
	return formats, nil
}

// exportPath 单一格式直接写入 out，多种格式按格式名区分文件
func exportPath(out string, format models.ExportFormat, multiple bool) string {
	if !multiple {
		return out
	}
	base := strings.TrimSuffix(out, filepath.Ext(out))
	return base + "_" + string(format) + format.Extension()
}

// writeExports 并行渲染并写出所有格式
func writeExports(deck *models.Deck, formats []models.ExportFormat, out string) error {
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}

	var g errgroup.Group
	for _, format := range formats {
		path := exportPath(out, format, len(formats) > 1)
		g.Go(func() error {
			content, err := services.FormatDeck(deck, format)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				return fmt.Errorf("写入 %s 失败: %w", path, err)
			}
			fmt.Printf("📦 已导出 %s → %s\n", format, path)
			return nil
		})
	}
	return g.Wait()
}
