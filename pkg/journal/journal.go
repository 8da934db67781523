// Package journal 记录文件移动，支持线性的撤销/重做。
//
// 每个条目都可以反向执行：撤销把文件从 DestPath 移回 SourcePath，
// 然后把反向条目压入重做栈；重做与之对称。日志只保存在内存中。
package journal

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/azqeurio/sequential-selecter/pkg/logger"
	"github.com/azqeurio/sequential-selecter/pkg/mover"
)

// ErrContentChanged 文件在移动后被外部修改
var ErrContentChanged = errors.New("文件内容已被修改")

// Mover 执行单个文件移动
type Mover interface {
	MoveTo(src, requested string, style mover.Style) (string, error)
}

// MoveEntry 一次已完成的文件移动
type MoveEntry struct {
	SourcePath string
	DestPath   string
	// RequestedDestPath 这个方向上最初请求的路径，重名时与 DestPath 不同
	RequestedDestPath string
	// ReverseRequestedPath 反方向最初请求的路径；首次移动的条目为空，
	// 此时反方向请求的就是 SourcePath
	ReverseRequestedPath string
	BatchID              string
	Checksum             uint64 // 0 表示不校验
}

// Inverse 返回把文件移回原处后对应的条目。
// 两个方向最初请求的路径在反复撤销/重做中保持不变。
func (e MoveEntry) Inverse(actual string) MoveEntry {
	requested := e.ReverseRequestedPath
	if requested == "" {
		requested = e.SourcePath
	}
	return MoveEntry{
		SourcePath:           e.DestPath,
		DestPath:             actual,
		RequestedDestPath:    requested,
		ReverseRequestedPath: e.RequestedDestPath,
		BatchID:              e.BatchID,
		Checksum:             e.Checksum,
	}
}

// Outcome 一次 Undo/Redo 的结果
type Outcome struct {
	Applied bool      // 栈为空时为 false
	Entry   MoveEntry // 被撤销/重做的条目
	Inverse MoveEntry // 压入另一个栈的条目
}

type Option func(*Journal)

// WithChecksum 撤销/重做前校验文件内容
func WithChecksum(fn func(path string) (uint64, error)) Option {
	return func(j *Journal) {
		j.checksum = fn
	}
}

// Journal 撤销栈和重做栈。只在单个 goroutine 中使用。
type Journal struct {
	mover    Mover
	checksum func(path string) (uint64, error)
	undo     []MoveEntry
	redo     []MoveEntry
}

func New(m Mover, opts ...Option) *Journal {
	j := &Journal{mover: m}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// RecordMove 记录一次移动，并清空重做栈
func (j *Journal) RecordMove(entry MoveEntry) {
	j.undo = append(j.undo, entry)
	if len(j.redo) > 0 {
		logger.Get().Debug().Int("discarded", len(j.redo)).Msg("新的移动使重做记录失效")
	}
	j.redo = nil
}

// Undo 撤销最近一次移动。没有可撤销的内容时返回 Applied=false 且无错误。
// 失败时两个栈保持不变。
func (j *Journal) Undo() (Outcome, error) {
	return j.revert(&j.undo, &j.redo, mover.StyleRestored)
}

// Redo 重做最近一次被撤销的移动
func (j *Journal) Redo() (Outcome, error) {
	return j.revert(&j.redo, &j.undo, mover.StyleCounter)
}

// UndoBatch 撤销栈顶同一批次的全部条目，遇到第一个错误即停止
func (j *Journal) UndoBatch() ([]Outcome, error) {
	return j.batch(j.PeekUndo, j.Undo)
}

// RedoBatch 重做栈顶同一批次的全部条目
func (j *Journal) RedoBatch() ([]Outcome, error) {
	return j.batch(j.PeekRedo, j.Redo)
}

func (j *Journal) batch(peek func() (MoveEntry, bool), step func() (Outcome, error)) ([]Outcome, error) {
	first, ok := peek()
	if !ok {
		return nil, nil
	}

	var outcomes []Outcome
	for {
		top, ok := peek()
		if !ok || top.BatchID != first.BatchID {
			break
		}
		// 没有批次号的条目各自独立
		if first.BatchID == "" && len(outcomes) > 0 {
			break
		}

		outcome, err := step()
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (j *Journal) revert(from, to *[]MoveEntry, style mover.Style) (Outcome, error) {
	n := len(*from)
	if n == 0 {
		return Outcome{}, nil
	}

	entry := (*from)[n-1]

	if err := j.verify(entry); err != nil {
		return Outcome{Entry: entry}, err
	}

	actual, err := j.mover.MoveTo(entry.DestPath, entry.SourcePath, style)
	if err != nil {
		logger.Get().Warn().Err(err).Str("path", entry.DestPath).Msg("还原移动失败，日志保持不变")
		return Outcome{Entry: entry}, fmt.Errorf("还原 %s: %w", entry.DestPath, err)
	}

	inverse := entry.Inverse(actual)
	*from = (*from)[:n-1]
	*to = append(*to, inverse)

	logger.Get().Debug().
		Str("from", entry.DestPath).
		Str("to", actual).
		Int("undo_depth", len(j.undo)).
		Int("redo_depth", len(j.redo)).
		Msg("已还原移动")

	return Outcome{Applied: true, Entry: entry, Inverse: inverse}, nil
}

func (j *Journal) verify(entry MoveEntry) error {
	if j.checksum == nil || entry.Checksum == 0 {
		return nil
	}

	sum, err := j.checksum(entry.DestPath)
	if err != nil {
		// 文件不存在交给 mover 报告 ErrSourceMissing
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("校验 %s: %w", entry.DestPath, err)
	}
	if sum != entry.Checksum {
		return fmt.Errorf("%s: %w", entry.DestPath, ErrContentChanged)
	}
	return nil
}

// PeekUndo 返回下一个将被撤销的条目
func (j *Journal) PeekUndo() (MoveEntry, bool) {
	if len(j.undo) == 0 {
		return MoveEntry{}, false
	}
	return j.undo[len(j.undo)-1], true
}

// PeekRedo 返回下一个将被重做的条目
func (j *Journal) PeekRedo() (MoveEntry, bool) {
	if len(j.redo) == 0 {
		return MoveEntry{}, false
	}
	return j.redo[len(j.redo)-1], true
}

func (j *Journal) UndoDepth() int { return len(j.undo) }
func (j *Journal) RedoDepth() int { return len(j.redo) }
func (j *Journal) CanUndo() bool  { return len(j.undo) > 0 }
func (j *Journal) CanRedo() bool  { return len(j.redo) > 0 }

// Clear 丢弃全部历史，不会移动任何文件
func (j *Journal) Clear() {
	j.undo = nil
	j.redo = nil
}
