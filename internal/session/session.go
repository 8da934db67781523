// Package session 持有一次交互式挑片会话的全部状态：
// 撤销日志、移动器、当前选择和两个目标目录。
package session

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/azqeurio/sequential-selecter/pkg/hasher"
	"github.com/azqeurio/sequential-selecter/pkg/journal"
	"github.com/azqeurio/sequential-selecter/pkg/logger"
	"github.com/azqeurio/sequential-selecter/pkg/mover"
	"github.com/azqeurio/sequential-selecter/pkg/scanner"
	"github.com/azqeurio/sequential-selecter/pkg/selection"
)

var (
	ErrTargetNotSet  = errors.New("目标目录未设置")
	ErrInvalidTarget = errors.New("目标编号只能是 1 或 2")
)

// RatingStore 文件移动后让评分跟随
type RatingStore interface {
	Relocate(from, to string) error
}

type Options struct {
	Fs          afero.Fs
	MaxAttempts int
	Verify      bool // 撤销前校验文件内容
	PairMode    bool // RAW/JPEG 同名文件一起移动
	Ratings     RatingStore
}

type Failure struct {
	Path string
	Err  error
}

// Report 一次移动请求的结果
type Report struct {
	BatchID string
	Moved   []journal.MoveEntry
	Skipped []string // 已经在目标目录中
	Failed  []Failure
}

type Session struct {
	fs        afero.Fs
	mover     *mover.Mover
	journal   *journal.Journal
	selection *selection.Set
	targets   [2]string
	pairMode  bool
	verify    bool
	ratings   RatingStore
}

func New(opts Options) *Session {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	m := mover.New(fs, opts.MaxAttempts)

	var jopts []journal.Option
	if opts.Verify {
		jopts = append(jopts, journal.WithChecksum(hasher.Checksummer(fs)))
	}

	return &Session{
		fs:        fs,
		mover:     m,
		journal:   journal.New(m, jopts...),
		selection: selection.New(),
		pairMode:  opts.PairMode,
		verify:    opts.Verify,
		ratings:   opts.Ratings,
	}
}

func (s *Session) Fs() afero.Fs              { return s.fs }
func (s *Session) Selection() *selection.Set { return s.selection }
func (s *Session) Journal() *journal.Journal { return s.journal }
func (s *Session) PairMode() bool            { return s.pairMode }
func (s *Session) SetPairMode(enabled bool)  { s.pairMode = enabled }
func (s *Session) UndoDepth() int            { return s.journal.UndoDepth() }
func (s *Session) RedoDepth() int            { return s.journal.RedoDepth() }

// SetTarget 设置目标目录，i 为 1 或 2
func (s *Session) SetTarget(i int, dir string) error {
	if i < 1 || i > len(s.targets) {
		return ErrInvalidTarget
	}
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("解析目标目录失败: %w", err)
		}
		dir = abs
	}
	s.targets[i-1] = dir
	return nil
}

func (s *Session) Target(i int) (string, error) {
	if i < 1 || i > len(s.targets) {
		return "", ErrInvalidTarget
	}
	if s.targets[i-1] == "" {
		return "", fmt.Errorf("目标 %d: %w", i, ErrTargetNotSet)
	}
	return s.targets[i-1], nil
}

// MoveSelected 把当前选择（含关联文件）移动到目标目录，成功移动的路径从选择中移除
func (s *Session) MoveSelected(target int) (Report, error) {
	report, err := s.MoveFiles(s.selection.Items(), target)
	if err != nil {
		return report, err
	}

	moved := make(map[string]bool, len(report.Moved))
	for _, entry := range report.Moved {
		moved[entry.SourcePath] = true
	}
	s.selection.Retain(func(path string) bool {
		return !moved[path]
	})
	return report, nil
}

// MoveFiles 把 paths 及其关联文件移动到目标目录，作为一个批次记录。
// 单个文件失败不会中断其余文件。
func (s *Session) MoveFiles(paths []string, target int) (Report, error) {
	dir, err := s.Target(target)
	if err != nil {
		return Report{}, err
	}
	if len(paths) == 0 {
		return Report{}, nil
	}

	report := Report{BatchID: uuid.NewString()}
	files := scanner.Expand(s.fs, paths, s.pairMode)

	logger.Get().Info().Msgf("移动 %d 个文件到目标 %d: %s", len(files), target, dir)

	for _, src := range files {
		requested := filepath.Join(dir, filepath.Base(src))

		actual, err := s.mover.Move(src, dir)
		if err != nil {
			logger.Get().Error().Err(err).Msgf("移动失败: %s", src)
			report.Failed = append(report.Failed, Failure{Path: src, Err: err})
			continue
		}
		if actual == src {
			report.Skipped = append(report.Skipped, src)
			continue
		}

		entry := journal.MoveEntry{
			SourcePath:        src,
			DestPath:          actual,
			RequestedDestPath: requested,
			BatchID:           report.BatchID,
		}
		if s.verify {
			sum, err := hasher.CalculateHash(s.fs, actual)
			if err != nil {
				logger.Get().Warn().Err(err).Msgf("计算校验值失败，撤销时不校验: %s", actual)
			} else {
				entry.Checksum = sum
			}
		}

		s.journal.RecordMove(entry)
		s.relocate(src, actual)
		report.Moved = append(report.Moved, entry)
	}

	logger.Get().Info().Msgf("移动完成: 成功 %d，跳过 %d，失败 %d", len(report.Moved), len(report.Skipped), len(report.Failed))
	return report, nil
}

// Undo 撤销最近一个批次
func (s *Session) Undo() ([]journal.Outcome, error) {
	outcomes, err := s.journal.UndoBatch()
	s.relocateOutcomes(outcomes)
	if err != nil {
		return outcomes, fmt.Errorf("撤销失败: %w", err)
	}
	return outcomes, nil
}

// Redo 重做最近一个被撤销的批次
func (s *Session) Redo() ([]journal.Outcome, error) {
	outcomes, err := s.journal.RedoBatch()
	s.relocateOutcomes(outcomes)
	if err != nil {
		return outcomes, fmt.Errorf("重做失败: %w", err)
	}
	return outcomes, nil
}

func (s *Session) relocateOutcomes(outcomes []journal.Outcome) {
	for _, o := range outcomes {
		s.relocate(o.Entry.DestPath, o.Inverse.DestPath)
	}
}

func (s *Session) relocate(from, to string) {
	if s.ratings == nil {
		return
	}
	if err := s.ratings.Relocate(from, to); err != nil {
		logger.Get().Warn().Err(err).Msgf("评分未能跟随文件: %s -> %s", from, to)
	}
}
