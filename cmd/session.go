package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/azqeurio/sequential-selecter/config"
	"github.com/azqeurio/sequential-selecter/internal/session"
	"github.com/azqeurio/sequential-selecter/pkg/logger"
	"github.com/azqeurio/sequential-selecter/pkg/metadata"
	"github.com/azqeurio/sequential-selecter/tui"
)

var sessionCmd = &cobra.Command{
	Use:   "session [folder]",
	Short: "在终端中挑选照片",
	Long: `打开照片目录，逐张挑选并移动到目标1或目标2。

按键:
  space     选择/取消选择
  1 / 2     把选择（或当前照片）移动到目标1 / 目标2
  ctrl+z    撤销上一批移动
  ctrl+y    重做
  p         切换 RAW/JPG 配对
  + / -     调整星级
  q         退出`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSession,
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	folder := "."
	if len(args) > 0 {
		folder = args[0]
	}
	folder, err := filepath.Abs(folder)
	if err != nil {
		return err
	}
	if info, err := os.Stat(folder); err != nil || !info.IsDir() {
		return fmt.Errorf("目录不可用: %s", folder)
	}

	target1, _ := cmd.Flags().GetString("target1")
	target2, _ := cmd.Flags().GetString("target2")
	if target1 == "" {
		target1 = cfg.Session.Target1
	}
	if target2 == "" {
		target2 = cfg.Session.Target2
	}

	pairMode := cfg.Session.PairMode
	if cmd.Flags().Changed("pairs") {
		pairMode, _ = cmd.Flags().GetBool("pairs")
	}
	verify := cfg.Journal.Verify
	if cmd.Flags().Changed("verify") {
		verify, _ = cmd.Flags().GetBool("verify")
	}

	ratings, err := openRatings()
	if err != nil {
		logger.Get().Warn().Err(err).Msg("打开评分数据库失败，评分功能不可用")
		ratings = nil
	}
	if ratings != nil {
		defer ratings.Close()
	}

	opts := session.Options{
		Fs:          afero.NewOsFs(),
		MaxAttempts: cfg.Mover.MaxAttempts,
		Verify:      verify,
		PairMode:    pairMode,
	}
	if ratings != nil {
		opts.Ratings = ratings
	}
	sess := session.New(opts)

	for i, dir := range []string{target1, target2} {
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		if err := sess.SetTarget(i+1, abs); err != nil {
			return err
		}
	}

	extractor := metadata.NewExtractor(opts.Fs, false)
	defer extractor.Close()

	return tui.Run(tui.Config{
		Session:   sess,
		Folder:    folder,
		Ratings:   ratings,
		Extractor: extractor,
	})
}

func init() {
	sessionCmd.Flags().String("target1", "", "目标1 目录")
	sessionCmd.Flags().String("target2", "", "目标2 目录")
	sessionCmd.Flags().Bool("pairs", true, "RAW/JPG 同名文件一起移动")
	sessionCmd.Flags().Bool("verify", false, "撤销前校验文件内容是否被修改")

	rootCmd.AddCommand(sessionCmd)
}
