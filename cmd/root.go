package cmd

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/azqeurio/sequential-selecter/config"
	"github.com/azqeurio/sequential-selecter/internal"
	"github.com/azqeurio/sequential-selecter/pkg/database"
	"github.com/azqeurio/sequential-selecter/pkg/logger"
)

var (
	cfgFile  string
	logLevel string
	logFile  string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "sequential-selecter",
	Short: "按顺序挑选照片并移动到两个目标目录",
	Long: `Sequential Selecter 是一个照片挑选与整理工具。

主要功能:
- 在终端中浏览照片，选择后一键移动到目标1或目标2
- 移动不会覆盖已有文件，重名时自动追加后缀
- 支持撤销/重做，按批次还原
- RAW/JPG 同名文件和 .xmp 附属文件一起移动
- 按日期、相机、镜头等信息批量整理照片
- 星级评分，评分随文件移动`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute 由 main.main() 调用
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version),
		fang.WithoutCompletions(),
		fang.WithoutManpage(),
	); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径（默认 "+internal.DefaultConfigPath+"）")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "日志文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")
}

// setup 加载配置并初始化日志，命令行参数优先于配置文件
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	if verbose {
		level = "debug"
	}

	file := cfg.Logging.File
	if logFile != "" {
		file = logFile
	}

	// TUI 占用终端，日志只写文件
	quiet := cmd.Name() == sessionCmd.Name()

	if err := logger.Init(level, file, quiet); err != nil {
		return err
	}

	logger.Get().Debug().Msgf("配置已加载，日志级别: %s", level)
	return nil
}

// openRatings 打开评分数据库；禁用时返回 nil
func openRatings() (*database.Database, error) {
	cfg := config.Get()
	if !cfg.Database.Enabled {
		return nil, nil
	}
	return database.NewDatabase(cfg.Database.Path)
}
