package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/diting-rss/diting/internal/application/service"
	"github.com/diting-rss/diting/internal/infrastructure/logger"
)

// defaultDailyTime 未配置发送时间时的默认值
const defaultDailyTime = "08:00"

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "以常驻模式运行，每日定时生成并发送新闻摘要",
	Long: `启动后立即执行一次摘要流水线，之后按配置的每日发送时间
（schedule.daily_report，格式HH:MM）定时执行，直到收到退出信号。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dailyTime := viper.GetString("schedule.daily_report")
		if dailyTime == "" {
			dailyTime = defaultDailyTime
		}

		spec, err := cronSpecForDaily(dailyTime)
		if err != nil {
			return err
		}

		runOnce := func() {
			params, err := buildPipelineParams()
			if err != nil {
				logger.Error("组装流水线参数失败", "error", err)
				return
			}

			appService := service.NewDigestProcessorService()
			if _, err := appService.ProcessDigest(context.Background(), params); err != nil {
				logger.Error("处理每日新闻失败", "error", err)
				return
			}
			logger.Info("每日新闻处理成功")
		}

		// 启动后先执行一次
		runOnce()

		scheduler := cron.New()
		if _, err := scheduler.AddFunc(spec, runOnce); err != nil {
			return fmt.Errorf("注册定时任务失败: %w", err)
		}
		scheduler.Start()
		logger.Info("定时任务已启动", "daily_time", dailyTime)

		// 阻塞直到收到退出信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		ctx := scheduler.Stop()
		<-ctx.Done()
		logger.Info("定时任务已停止")
		return nil
	},
}

// cronSpecForDaily 将HH:MM格式的每日时间转换为cron表达式
func cronSpecForDaily(dailyTime string) (string, error) {
	t, err := time.Parse("15:04", dailyTime)
	if err != nil {
		return "", fmt.Errorf("每日发送时间格式无效（应为HH:MM）: %w", err)
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
