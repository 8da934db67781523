// Package sorter 按拍摄日期、相机、镜头等信息批量整理照片。
//
// 先用 Scan 提取元数据，再用 Plan 生成目标目录分组，
// 最后 Execute 按动作（复制/移动）和冲突策略执行。
package sorter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/otiai10/copy"
	"github.com/panjf2000/ants/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/azqeurio/sequential-selecter/internal"
	"github.com/azqeurio/sequential-selecter/pkg/hasher"
	"github.com/azqeurio/sequential-selecter/pkg/logger"
	"github.com/azqeurio/sequential-selecter/pkg/metadata"
	"github.com/azqeurio/sequential-selecter/pkg/mover"
	"github.com/azqeurio/sequential-selecter/pkg/progress"
	"github.com/azqeurio/sequential-selecter/pkg/scanner"
)

type Action string

const (
	ActionCopy Action = "copy"
	ActionMove Action = "move"
)

// Policy 目标文件已存在时的处理方式
type Policy string

const (
	PolicyRename    Policy = "rename"
	PolicySkip      Policy = "skip"
	PolicyOverwrite Policy = "overwrite"
)

// Tokens 支持的目录层级
var Tokens = []string{"year", "month", "date", "camera", "lens", "kind", "ext"}

// DefaultStructure 默认目录结构
var DefaultStructure = []string{"camera", "date", "kind"}

type Options struct {
	DestRoot      string
	Structure     []string
	Action        Action
	Policy        Policy
	SkipIdentical bool
	Workers       int
}

// Validate 检查并补全默认值
func (o *Options) Validate() error {
	if o.DestRoot == "" {
		return errors.New("未指定目标目录")
	}
	if len(o.Structure) == 0 {
		o.Structure = DefaultStructure
	}
	o.Structure = append([]string(nil), o.Structure...)
	for i, token := range o.Structure {
		token = strings.ToLower(strings.TrimSpace(token))
		if !validToken(token) {
			return fmt.Errorf("未知的目录层级 %q，可选: %s", token, strings.Join(Tokens, ","))
		}
		o.Structure[i] = token
	}

	switch o.Action {
	case "":
		o.Action = ActionCopy
	case ActionCopy, ActionMove:
	default:
		return fmt.Errorf("未知的动作 %q", o.Action)
	}

	switch o.Policy {
	case "":
		o.Policy = PolicyRename
	case PolicyRename, PolicySkip, PolicyOverwrite:
	default:
		return fmt.Errorf("未知的冲突策略 %q", o.Policy)
	}

	if o.Workers <= 0 {
		o.Workers = internal.DefaultWorkers
	}
	return nil
}

func validToken(token string) bool {
	for _, t := range Tokens {
		if t == token {
			return true
		}
	}
	return false
}

// Group 同一目标目录下的文件
type Group struct {
	Dir   string   `yaml:"dir"`
	Files []string `yaml:"files"`
}

// Plan 整理计划，可以导出为 YAML 供检查后再执行
type Plan struct {
	DestRoot  string   `yaml:"dest_root"`
	Structure []string `yaml:"structure"`
	Action    Action   `yaml:"action"`
	Policy    Policy   `yaml:"policy"`
	Groups    []Group  `yaml:"groups"`
}

// Total 计划中的文件总数
func (p Plan) Total() int {
	total := 0
	for _, g := range p.Groups {
		total += len(g.Files)
	}
	return total
}

func (p Plan) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("导出计划失败: %w", err)
	}
	return enc.Close()
}

func ReadPlan(r io.Reader) (Plan, error) {
	var p Plan
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		return Plan{}, fmt.Errorf("读取计划失败: %w", err)
	}
	return p, nil
}

// Status 单个文件的处理结果
type Status string

const (
	StatusDone      Status = "done"
	StatusSkipped   Status = "skipped"
	StatusIdentical Status = "identical"
	StatusError     Status = "error"
)

// Progress 每处理完一个文件回调一次
type Progress func(done, total int, src, dst string, status Status)

type Failure struct {
	Src string
	Err error
}

type Result struct {
	Success  int
	Skipped  int
	Errors   int
	Failures []Failure
}

func (r Result) String() string {
	return fmt.Sprintf("成功 %d，跳过 %d，失败 %d", r.Success, r.Skipped, r.Errors)
}

type Sorter struct {
	opts      Options
	fs        afero.Fs
	extractor *metadata.Extractor
	mover     *mover.Mover
}

// New 创建整理器。复制动作直接操作本地文件系统。
func New(opts Options, extractor *metadata.Extractor, maxAttempts int) (*Sorter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	fs := afero.NewOsFs()
	if extractor == nil {
		extractor = metadata.NewExtractor(fs, false)
	}

	return &Sorter{
		opts:      opts,
		fs:        fs,
		extractor: extractor,
		mover:     mover.New(fs, maxAttempts),
	}, nil
}

func (s *Sorter) Options() Options {
	return s.opts
}

// Scan 并发提取 root 下所有图片的元数据，结果保持遍历顺序。
// 无法读取的文件会被跳过并记录警告。
func (s *Sorter) Scan(ctx context.Context, root string, onProgress func(done, total int)) ([]metadata.Info, error) {
	walker := scanner.NewFileWalker(s.fs)
	walker.IncludeHidden = false

	var paths []string
	err := walker.WalkImages(root, func(path string, info os.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("遍历目录失败: %w", err)
	}

	logger.Get().Info().Msgf("找到 %d 张图片，开始提取元数据，工作线程数: %d", len(paths), s.opts.Workers)

	pool, err := ants.NewPool(s.opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("创建 goroutine 池失败: %w", err)
	}
	defer pool.Release()

	var (
		wg    sync.WaitGroup
		done  atomic.Int64
		infos = make([]metadata.Info, len(paths))
		oks   = make([]bool, len(paths))
	)

	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			info, err := s.extractor.Extract(path)
			if err != nil {
				logger.Get().Warn().Err(err).Msgf("提取元数据失败: %s", path)
			} else {
				infos[i] = info
				oks[i] = true
			}

			n := done.Add(1)
			if onProgress != nil {
				onProgress(int(n), len(paths))
			}
		})
		if submitErr != nil {
			wg.Done()
			logger.Get().Error().Err(submitErr).Msgf("提交任务失败: %s", path)
		}
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := make([]metadata.Info, 0, len(infos))
	for i, info := range infos {
		if oks[i] {
			result = append(result, info)
		}
	}
	return result, nil
}

// Plan 按目录结构分组，分组顺序为首次出现的顺序
func (s *Sorter) Plan(infos []metadata.Info) Plan {
	plan := Plan{
		DestRoot:  s.opts.DestRoot,
		Structure: s.opts.Structure,
		Action:    s.opts.Action,
		Policy:    s.opts.Policy,
	}

	index := make(map[string]int)
	for _, info := range infos {
		dir := s.opts.DestRoot
		for _, token := range s.opts.Structure {
			dir = filepath.Join(dir, tokenValue(info, token))
		}

		i, ok := index[dir]
		if !ok {
			i = len(plan.Groups)
			index[dir] = i
			plan.Groups = append(plan.Groups, Group{Dir: dir})
		}
		plan.Groups[i].Files = append(plan.Groups[i].Files, info.Path)
	}

	logger.Get().Info().Msgf("生成整理计划: %d 个目录，%d 个文件", len(plan.Groups), plan.Total())
	return plan
}

func tokenValue(info metadata.Info, token string) string {
	var val string
	switch token {
	case "year":
		val = info.Year
	case "month":
		val = info.Month
	case "date":
		val = info.Date
	case "camera":
		val = info.Camera
	case "lens":
		val = info.Lens
	case "kind":
		val = string(info.Kind)
	case "ext":
		val = strings.TrimPrefix(strings.ToLower(filepath.Ext(info.Path)), ".")
	}
	return metadata.Sanitize(val)
}

// Execute 执行计划。ctx 取消时返回已完成部分的结果和 ctx 的错误，
// 进度保存在目标根目录，再次执行同一计划会跳过已处理的文件。
func (s *Sorter) Execute(ctx context.Context, plan Plan, onProgress Progress) (Result, error) {
	var result Result
	total := plan.Total()
	processed := 0

	tracker, err := progress.NewTracker(s.fs, s.opts.DestRoot)
	if err != nil {
		return result, err
	}

	report := func(src, dst string, status Status) {
		processed++
		if onProgress != nil {
			onProgress(processed, total, src, dst, status)
		}
	}

	for _, group := range plan.Groups {
		if err := s.fs.MkdirAll(group.Dir, 0755); err != nil {
			logger.Get().Error().Err(err).Msgf("创建目录失败: %s", group.Dir)
			for _, src := range group.Files {
				result.Errors++
				result.Failures = append(result.Failures, Failure{Src: src, Err: err})
				report(src, "", StatusError)
			}
			continue
		}

		for _, src := range group.Files {
			if err := ctx.Err(); err != nil {
				if serr := tracker.Suspend(); serr != nil {
					logger.Get().Error().Err(serr).Msg("保存进度失败")
				}
				return result, err
			}

			if dst, ok := tracker.Lookup(src); ok {
				logger.Get().Debug().Msgf("上次已处理，跳过: %s", src)
				result.Skipped++
				report(src, dst, StatusSkipped)
				continue
			}

			dst, status, err := s.place(src, group.Dir)
			if status == StatusDone || status == StatusIdentical {
				if err := tracker.Record(src, dst); err != nil {
					logger.Get().Warn().Err(err).Msg("写入进度失败")
				}
			}
			switch status {
			case StatusDone:
				result.Success++
			case StatusSkipped, StatusIdentical:
				result.Skipped++
			default:
				result.Errors++
				result.Failures = append(result.Failures, Failure{Src: src, Err: err})
				logger.Get().Error().Err(err).Msgf("处理文件失败: %s", src)
			}
			report(src, dst, status)
		}
	}

	// 有失败时保留进度，重新执行只会重试失败的文件
	if result.Errors > 0 {
		err = tracker.Suspend()
	} else {
		err = tracker.Finish()
	}
	if err != nil {
		logger.Get().Warn().Err(err).Msg("关闭进度文件失败")
	}

	logger.Get().Info().Msgf("整理完成: %s", result)
	return result, nil
}

func (s *Sorter) place(src, dir string) (string, Status, error) {
	dst := filepath.Join(dir, filepath.Base(src))

	exists, err := afero.Exists(s.fs, dst)
	if err != nil {
		return "", StatusError, err
	}

	if exists && s.opts.SkipIdentical {
		same, err := hasher.Same(s.fs, src, dst)
		if err != nil {
			return "", StatusError, err
		}
		if same {
			logger.Get().Debug().Msgf("内容相同，跳过: %s", src)
			return dst, StatusIdentical, nil
		}
	}

	if exists {
		switch s.opts.Policy {
		case PolicySkip:
			return dst, StatusSkipped, nil
		case PolicyOverwrite:
			if filepath.Clean(src) == filepath.Clean(dst) {
				return dst, StatusSkipped, nil
			}
			if err := s.fs.Remove(dst); err != nil {
				return "", StatusError, fmt.Errorf("删除已有文件失败: %w", err)
			}
		}
	}

	if s.opts.Action == ActionMove {
		actual, err := s.mover.MoveTo(src, dst, mover.StyleCounter)
		if err != nil {
			return "", StatusError, err
		}
		return actual, StatusDone, nil
	}

	target, err := s.mover.FreeName(dst, mover.StyleCounter)
	if err != nil {
		return "", StatusError, fmt.Errorf("%w: %v", mover.ErrNameResolutionExhausted, err)
	}
	if err := copy.Copy(src, target, copy.Options{PreserveTimes: true}); err != nil {
		return "", StatusError, fmt.Errorf("复制文件失败: %w", err)
	}
	return target, StatusDone, nil
}
