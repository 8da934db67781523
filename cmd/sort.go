package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/azqeurio/sequential-selecter/config"
	"github.com/azqeurio/sequential-selecter/pkg/logger"
	"github.com/azqeurio/sequential-selecter/pkg/metadata"
	"github.com/azqeurio/sequential-selecter/pkg/sorter"
)

var sortCmd = &cobra.Command{
	Use:   "sort [source]",
	Short: "按拍摄信息整理照片",
	Long: `扫描源目录中的照片，按拍摄日期、相机、镜头等信息复制或移动到目标目录。

目录层级可选: year, month, date, camera, lens, kind, ext
默认层级: camera/date/kind

示例:
  sequential-selecter sort ./DCIM --dest ./Sorted
  sequential-selecter sort ./DCIM --dest ./Sorted --structure year,month --action move
  sequential-selecter sort ./DCIM --dest ./Sorted --dry-run --plan-out plan.yaml
  sequential-selecter sort --plan-in plan.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSort,
}

func runSort(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	flags := cmd.Flags()

	opts := sorter.Options{
		Structure:     cfg.Sorter.Structure,
		Action:        sorter.Action(cfg.Sorter.Action),
		Policy:        sorter.Policy(cfg.Sorter.Policy),
		SkipIdentical: cfg.Sorter.SkipIdentical,
		Workers:       cfg.Performance.Workers,
	}
	opts.DestRoot, _ = flags.GetString("dest")
	if flags.Changed("structure") {
		opts.Structure, _ = flags.GetStringSlice("structure")
	}
	if flags.Changed("action") {
		action, _ := flags.GetString("action")
		opts.Action = sorter.Action(action)
	}
	if flags.Changed("policy") {
		policy, _ := flags.GetString("policy")
		opts.Policy = sorter.Policy(policy)
	}
	if flags.Changed("skip-identical") {
		opts.SkipIdentical, _ = flags.GetBool("skip-identical")
	}
	if flags.Changed("workers") {
		opts.Workers, _ = flags.GetInt("workers")
	}
	useExiftool := cfg.Sorter.Exiftool
	if flags.Changed("exiftool") {
		useExiftool, _ = flags.GetBool("exiftool")
	}
	dryRun, _ := flags.GetBool("dry-run")
	planOut, _ := flags.GetString("plan-out")
	planIn, _ := flags.GetString("plan-in")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var plan sorter.Plan
	var s *sorter.Sorter

	if planIn != "" {
		loaded, err := loadPlan(planIn)
		if err != nil {
			return err
		}
		// 分组目录在生成计划时已确定
		opts.DestRoot = loaded.DestRoot
		opts.Structure = loaded.Structure
		if !flags.Changed("action") {
			opts.Action = loaded.Action
		}
		if !flags.Changed("policy") {
			opts.Policy = loaded.Policy
		}
		if s, err = sorter.New(opts, nil, cfg.Mover.MaxAttempts); err != nil {
			return err
		}
		plan = loaded
		plan.Action = s.Options().Action
		plan.Policy = s.Options().Policy
	} else {
		if len(args) == 0 {
			return fmt.Errorf("请指定源目录或 --plan-in")
		}
		source, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		if opts.DestRoot != "" {
			if opts.DestRoot, err = filepath.Abs(opts.DestRoot); err != nil {
				return err
			}
		}

		extractor := metadata.NewExtractor(afero.NewOsFs(), useExiftool)
		defer extractor.Close()

		if s, err = sorter.New(opts, extractor, cfg.Mover.MaxAttempts); err != nil {
			return err
		}

		if plan, err = scanSource(ctx, s, source); err != nil {
			return err
		}
	}

	if planOut != "" {
		if err := savePlan(plan, planOut); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "计划已写入 %s\n", planOut)
	}

	if dryRun {
		printPlan(cmd, plan)
		return nil
	}

	bar := progressbar.Default(int64(plan.Total()), "整理")
	result, err := s.Execute(ctx, plan, func(done, total int, src, dst string, status sorter.Status) {
		_ = bar.Add(1)
		if status == sorter.StatusError {
			logger.Get().Warn().Str("src", src).Msg("处理失败")
		}
	})
	_ = bar.Finish()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, result.String())
	for _, f := range result.Failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", f.Src, f.Err)
	}

	if err != nil {
		return err
	}
	if result.Errors > 0 {
		return fmt.Errorf("%d 个文件处理失败", result.Errors)
	}
	return nil
}

func scanSource(ctx context.Context, s *sorter.Sorter, source string) (sorter.Plan, error) {
	bar := progressbar.Default(-1, "扫描")
	infos, err := s.Scan(ctx, source, func(done, total int) {
		if total > 0 && bar.GetMax() == -1 {
			bar.ChangeMax(total)
		}
		_ = bar.Set(done)
	})
	_ = bar.Finish()
	if err != nil {
		return sorter.Plan{}, fmt.Errorf("扫描失败: %w", err)
	}

	logger.Get().Info().Msgf("共找到 %d 张照片", len(infos))
	return s.Plan(infos), nil
}

func loadPlan(path string) (sorter.Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return sorter.Plan{}, fmt.Errorf("读取计划失败: %w", err)
	}
	defer f.Close()
	return sorter.ReadPlan(f)
}

func savePlan(plan sorter.Plan, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("写入计划失败: %w", err)
	}
	if err := plan.WriteYAML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printPlan(cmd *cobra.Command, plan sorter.Plan) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "目标: %s  动作: %s  冲突: %s\n", plan.DestRoot, plan.Action, plan.Policy)
	for _, g := range plan.Groups {
		fmt.Fprintf(out, "%s (%d)\n", g.Dir, len(g.Files))
		for _, file := range g.Files {
			fmt.Fprintf(out, "  %s\n", file)
		}
	}
	fmt.Fprintf(out, "共 %d 个文件\n", plan.Total())
}

func init() {
	sortCmd.Flags().StringP("dest", "d", "", "目标根目录")
	sortCmd.Flags().StringSlice("structure", nil, "目录层级，逗号分隔")
	sortCmd.Flags().String("action", "", "copy 或 move")
	sortCmd.Flags().String("policy", "", "重名时的处理: rename, skip, overwrite")
	sortCmd.Flags().Bool("skip-identical", false, "目标已有相同内容的文件时跳过")
	sortCmd.Flags().Bool("exiftool", true, "优先用 exiftool 读取元数据")
	sortCmd.Flags().IntP("workers", "w", 0, "并发扫描的协程数")
	sortCmd.Flags().Bool("dry-run", false, "只显示计划，不处理文件")
	sortCmd.Flags().String("plan-out", "", "把计划写入 YAML 文件")
	sortCmd.Flags().String("plan-in", "", "从 YAML 文件读取计划并执行")

	rootCmd.AddCommand(sortCmd)
}
