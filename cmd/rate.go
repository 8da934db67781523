package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/azqeurio/sequential-selecter/pkg/database"
	"github.com/azqeurio/sequential-selecter/pkg/metadata"
)

var rateCmd = &cobra.Command{
	Use:   "rate <file> [0-5]",
	Short: "为照片设置星级",
	Long: `为照片设置 0 到 5 星评分，0 星表示清除评分。
使用 --remove 删除评分记录。`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRate,
}

var ratingsCmd = &cobra.Command{
	Use:   "ratings [folder]",
	Short: "列出目录中的评分",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRatings,
}

func runRate(cmd *cobra.Command, args []string) error {
	db, err := requireRatings()
	if err != nil {
		return err
	}
	defer db.Close()

	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	if remove, _ := cmd.Flags().GetBool("remove"); remove {
		if err := db.RemoveRating(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "已删除评分: %s\n", path)
		return nil
	}

	if len(args) < 2 {
		stars, err := db.GetRating(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", stars2str(stars), path)
		return nil
	}

	stars, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("无效的星级 %q: %w", args[1], database.ErrInvalidRating)
	}

	fs := afero.NewOsFs()
	extractor := metadata.NewExtractor(fs, false)
	defer extractor.Close()

	info, err := extractor.Extract(path)
	if err != nil {
		return fmt.Errorf("读取照片信息失败: %w", err)
	}

	if err := db.SaveRating(path, stars, info.Date, info.Camera); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", stars2str(stars), path)
	return nil
}

func runRatings(cmd *cobra.Command, args []string) error {
	db, err := requireRatings()
	if err != nil {
		return err
	}
	defer db.Close()

	folder := "."
	if len(args) > 0 {
		folder = args[0]
	}
	folder, err = filepath.Abs(folder)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	flags := cmd.Flags()

	if clearAll, _ := flags.GetBool("clear"); clearAll {
		n, err := db.ClearFolder(folder)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "已清除 %d 条评分\n", n)
		return nil
	}

	if filters, _ := flags.GetBool("filters"); filters {
		dates, cameras, err := db.UniqueFilters(folder)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "日期: %s\n", strings.Join(dates, ", "))
		fmt.Fprintf(out, "相机: %s\n", strings.Join(cameras, ", "))
		return nil
	}

	var filter database.Filter
	filter.Date, _ = flags.GetString("date")
	filter.Camera, _ = flags.GetString("camera")
	filter.MinStars, _ = flags.GetInt("min")

	ratings, err := db.LoadRatings(folder, filter)
	if err != nil {
		return err
	}
	for _, r := range ratings {
		fmt.Fprintf(out, "%s %s\t%s\t%s\n", stars2str(r.Stars), r.Filename, r.Date, r.Camera)
	}
	if len(ratings) == 0 {
		fmt.Fprintln(out, "没有评分记录")
	}
	return nil
}

func requireRatings() (*database.Database, error) {
	db, err := openRatings()
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, errors.New("评分数据库已在配置中禁用")
	}
	return db, nil
}

func stars2str(n int) string {
	return strings.Repeat("★", n) + strings.Repeat("☆", database.MaxStars-n)
}

func init() {
	rateCmd.Flags().Bool("remove", false, "删除评分记录")

	ratingsCmd.Flags().String("date", "", "按日期过滤 (YYYY-MM-DD)")
	ratingsCmd.Flags().String("camera", "", "按相机过滤")
	ratingsCmd.Flags().Int("min", 0, "最低星级")
	ratingsCmd.Flags().Bool("filters", false, "列出可用的日期和相机")
	ratingsCmd.Flags().Bool("clear", false, "清除该目录下的全部评分")

	rootCmd.AddCommand(rateCmd, ratingsCmd)
}
