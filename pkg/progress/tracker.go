// Package progress 记录整理任务中已处理的文件，中断后重新执行时跳过它们
package progress

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/azqeurio/sequential-selecter/pkg/logger"
)

const (
	ProgressFileName = ".sequential-selecter-progress"
	flushEvery       = 100
)

// Tracker 进度文件每行一条记录: "源路径"<TAB>"目标路径"
type Tracker struct {
	fs       afero.Fs
	filePath string
	file     afero.File
	writer   *bufio.Writer
	done     map[string]string // 源路径 -> 目标路径
	pending  int
	mu       sync.RWMutex
}

// NewTracker 在 rootDir 下打开或创建进度文件，并加载已有记录
func NewTracker(fs afero.Fs, rootDir string) (*Tracker, error) {
	if err := fs.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("创建目录失败: %w", err)
	}

	t := &Tracker{
		fs:       fs,
		filePath: filepath.Join(rootDir, ProgressFileName),
		done:     make(map[string]string),
	}

	if err := t.load(); err != nil {
		logger.Get().Warn().Err(err).Msg("加载进度文件失败，将从头开始")
		t.done = make(map[string]string)
	} else if len(t.done) > 0 {
		logger.Get().Info().Msgf("从进度文件恢复了 %d 条记录", len(t.done))
	}

	file, err := fs.OpenFile(t.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("打开进度文件失败: %w", err)
	}
	t.file = file
	t.writer = bufio.NewWriter(file)

	return t, nil
}

func (t *Tracker) load() error {
	data, err := afero.ReadFile(t.fs, t.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		src, dst, ok := parseRecord(scanner.Text())
		if !ok {
			continue
		}
		t.done[src] = dst
	}
	return scanner.Err()
}

// parseRecord 解析一行记录，两个字段都是 Go 引号字符串
func parseRecord(line string) (string, string, bool) {
	quotedSrc, quotedDst, ok := strings.Cut(line, "\t")
	if !ok {
		return "", "", false
	}
	src, err := strconv.Unquote(quotedSrc)
	if err != nil || src == "" {
		return "", "", false
	}
	dst, err := strconv.Unquote(quotedDst)
	if err != nil {
		return "", "", false
	}
	return src, dst, true
}

// Lookup 返回 src 上次处理后的目标路径
func (t *Tracker) Lookup(src string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	dst, ok := t.done[src]
	return dst, ok
}

// Record 记录 src 已处理到 dst
func (t *Tracker) Record(src, dst string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.done[src]; ok {
		return nil
	}

	// 引号转义文件名中的制表符和换行
	if _, err := t.writer.WriteString(strconv.Quote(src) + "\t" + strconv.Quote(dst) + "\n"); err != nil {
		return err
	}
	t.done[src] = dst

	t.pending++
	if t.pending%flushEvery == 0 {
		if err := t.writer.Flush(); err != nil {
			logger.Get().Error().Err(err).Msg("刷新进度文件失败")
		}
	}
	return nil
}

func (t *Tracker) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writer.Flush()
}

func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.done)
}

// Suspend 写入缓冲并关闭文件，保留进度供下次继续
func (t *Tracker) Suspend() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.writer.Flush(); err != nil {
		t.file.Close()
		return err
	}
	logger.Get().Info().Msgf("任务中断，进度已保存: %s", t.filePath)
	return t.file.Close()
}

// Finish 关闭并删除进度文件
func (t *Tracker) Finish() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.file.Close(); err != nil {
		return err
	}
	if err := t.fs.Remove(t.filePath); err != nil && !os.IsNotExist(err) {
		logger.Get().Error().Err(err).Msgf("删除进度文件失败: %s", t.filePath)
		return err
	}

	logger.Get().Debug().Msgf("进度文件已删除: %s", t.filePath)
	return nil
}

// Exists 检查 rootDir 下是否有未完成的进度
func Exists(fs afero.Fs, rootDir string) bool {
	ok, _ := afero.Exists(fs, filepath.Join(rootDir, ProgressFileName))
	return ok
}
