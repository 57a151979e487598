package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/diting-rss/diting/internal/domain/model"
	"github.com/diting-rss/diting/internal/infrastructure/logger"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "diting",
	Short: "RSS新闻摘要与邮件推送工具",
	Long: `谛听是一个基于Go语言的控制台程序，用于抓取配置的RSS订阅源，
对新闻内容进行清洗、过滤和分类聚合，使用大模型API生成每日摘要，
并以HTML邮件的形式发送每日新闻报告。`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// 设置信号处理
	setupSignalHandler()

	err := rootCmd.Execute()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	// 程序退出前同步日志
	defer logger.Sync()
}

func init() {
	cobra.OnInitialize(initConfig)

	// 全局标志
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认为 ./config.yaml)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// 加载.env文件中的环境变量，文件不存在时忽略
	if err := godotenv.Load(); err == nil {
		fmt.Println("已加载 .env 环境变量")
	}

	if cfgFile != "" {
		// 使用指定的配置文件
		viper.SetConfigFile(cfgFile)
	} else {
		// 在当前目录中查找配置文件
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// 读取配置文件
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("使用配置文件:", viper.ConfigFileUsed())

		// 初始化日志系统
		initLogger()
	} else {
		fmt.Printf("无法读取配置文件: %v\n", err)
	}

	// 读取环境变量
	viper.AutomaticEnv()
}

// initLogger 初始化日志系统
func initLogger() {
	// 从配置文件中读取日志配置
	logConfig := logger.Config{
		Level:      viper.GetString("logger.level"),
		Console:    viper.GetBool("logger.console"),
		FilePath:   viper.GetString("logger.file_path"),
		MaxSize:    viper.GetInt("logger.max_size"),
		MaxBackups: viper.GetInt("logger.max_backups"),
		MaxAge:     viper.GetInt("logger.max_age"),
		Compress:   viper.GetBool("logger.compress"),
	}

	// 初始化日志系统
	if err := logger.Init(logConfig); err != nil {
		fmt.Printf("初始化日志系统失败: %v\n", err)
	}
}

// buildPipelineParams 从配置文件组装流水线参数
func buildPipelineParams() (model.PipelineParams, error) {
	var sources []model.SourceConfig
	if err := viper.UnmarshalKey("sources", &sources); err != nil {
		return model.PipelineParams{}, fmt.Errorf("解析订阅源配置失败: %w", err)
	}

	var rules model.RulesConfig
	if err := viper.UnmarshalKey("rules", &rules); err != nil {
		return model.PipelineParams{}, fmt.Errorf("解析内容规则配置失败: %w", err)
	}

	var email model.EmailConfig
	if err := viper.UnmarshalKey("email", &email); err != nil {
		return model.PipelineParams{}, fmt.Errorf("解析邮件配置失败: %w", err)
	}

	var summarizer model.SummarizerConfig
	if err := viper.UnmarshalKey("summarizer", &summarizer); err != nil {
		return model.PipelineParams{}, fmt.Errorf("解析摘要配置失败: %w", err)
	}

	return model.PipelineParams{
		Sources:       sources,
		OpmlFile:      viper.GetString("sources_opml"),
		Rules:         rules,
		Summarizer:    summarizer,
		Email:         email,
		TemplatePath:  viper.GetString("template.path"),
		ImageStoreDir: viper.GetString("media.store_dir"),
		Database: model.DatabaseConfig{
			Enabled:  viper.GetBool("database.enabled"),
			FilePath: viper.GetString("database.file_path"),
		},
	}, nil
}

// setupSignalHandler 设置信号处理函数
func setupSignalHandler() {
	c := make(chan os.Signal, 1)
	// 监听 SIGINT (Ctrl+C) 和 SIGTERM 信号
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Println("\n接收到中断信号，正在优雅退出...")
		// 执行清理工作
		logger.Info("程序接收到中断信号，正在清理资源")
		// 同步日志
		logger.Sync()
		// 退出程序
		os.Exit(0)
	}()
}
