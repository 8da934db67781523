package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/azqeurio/sequential-selecter/config"
	"github.com/azqeurio/sequential-selecter/internal/session"
)

var moveCmd = &cobra.Command{
	Use:   "move <files...> <target>",
	Short: "安全地移动文件，不覆盖已有文件",
	Long: `把文件移动到目标目录。目标中已有同名文件时自动追加 _1、_2 后缀。
配对模式下同名的 RAW/JPG 文件和 .xmp 附属文件一起移动。`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMove,
}

func runMove(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	files, target := args[:len(args)-1], args[len(args)-1]

	pairMode, _ := cmd.Flags().GetBool("pairs")

	opts := session.Options{
		Fs:          afero.NewOsFs(),
		MaxAttempts: cfg.Mover.MaxAttempts,
		PairMode:    pairMode,
	}

	ratings, err := openRatings()
	if err != nil {
		return err
	}
	if ratings != nil {
		defer ratings.Close()
		opts.Ratings = ratings
	}

	sess := session.New(opts)
	if err := sess.SetTarget(1, target); err != nil {
		return err
	}

	report, err := sess.MoveFiles(files, 1)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, entry := range report.Moved {
		fmt.Fprintf(out, "%s -> %s\n", entry.SourcePath, entry.DestPath)
	}
	for _, path := range report.Skipped {
		fmt.Fprintf(out, "%s 已在目标目录中\n", path)
	}
	for _, f := range report.Failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", f.Path, f.Err)
	}

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d 个文件移动失败", len(report.Failed))
	}
	return nil
}

func init() {
	moveCmd.Flags().Bool("pairs", false, "同名的 RAW/JPG 文件一起移动")

	rootCmd.AddCommand(moveCmd)
}
