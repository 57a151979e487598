package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/diting-rss/diting/internal/application/service"
	"github.com/diting-rss/diting/internal/infrastructure/logger"
)

var outputFile string

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "执行一次每日新闻摘要流水线",
	Long: `抓取配置的RSS订阅源，对新闻内容进行清洗过滤和分类聚合，
使用大模型API生成摘要，渲染HTML报告并通过邮件发送。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := buildPipelineParams()
		if err != nil {
			return err
		}
		params.OutputFile = outputFile

		appService := service.NewDigestProcessorService()

		document, err := appService.ProcessDigest(context.Background(), params)
		if err != nil {
			logger.Error("处理每日新闻失败", "error", err)
			return fmt.Errorf("处理每日新闻失败: %w", err)
		}
		logger.Info("每日新闻处理成功")

		// 按需将最终报告保存到文件
		if outputFile != "" {
			outputDir := filepath.Dir(outputFile)
			if outputDir != "." {
				if err := os.MkdirAll(outputDir, 0755); err != nil {
					return fmt.Errorf("创建输出目录失败: %w", err)
				}
			}

			if err := os.WriteFile(outputFile, []byte(document), 0644); err != nil {
				return fmt.Errorf("写入输出文件失败: %w", err)
			}
			fmt.Printf("报告已保存到: %s\n", outputFile)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	// 本地标志
	runCmd.Flags().StringVarP(&outputFile, "output", "f", "", "将最终HTML报告另存到指定文件（可选）")
}
