package mover

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/afero"

	"github.com/azqeurio/sequential-selecter/internal"
	"github.com/azqeurio/sequential-selecter/pkg/logger"
)

// Style 文件名冲突时追加后缀的方式
type Style int

const (
	// StyleCounter name.ext -> name_1.ext -> name_2.ext
	StyleCounter Style = iota
	// StyleRestored name.ext -> name_restored.ext -> name_restored_1.ext，撤销时使用
	StyleRestored
)

func (s Style) String() string {
	if s == StyleRestored {
		return "restored"
	}
	return "counter"
}

// Mover 安全移动文件：不会覆盖已有文件
type Mover struct {
	Fs          afero.Fs
	MaxAttempts int
}

func New(fs afero.Fs, maxAttempts int) *Mover {
	if maxAttempts <= 0 {
		maxAttempts = internal.DefaultMaxAttempts
	}
	return &Mover{
		Fs:          fs,
		MaxAttempts: maxAttempts,
	}
}

// Move 将 src 移动到 destDir 目录下，保留原文件名；重名时追加 _N 后缀。
// 返回实际使用的路径。
func (m *Mover) Move(src, destDir string) (string, error) {
	return m.MoveTo(src, filepath.Join(destDir, filepath.Base(src)), StyleCounter)
}

// MoveTo 将 src 移动到 requested；requested 已存在时按 style 生成新文件名。
// 如果 requested 就是 src 本身，不做任何操作。
func (m *Mover) MoveTo(src, requested string, style Style) (string, error) {
	src = filepath.Clean(src)
	requested = filepath.Clean(requested)

	info, err := m.Fs.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", newMoveError(ErrSourceMissing, src, requested, err)
		}
		return "", newMoveError(ErrFilesystemMoveFailed, src, requested, err)
	}
	if info.IsDir() {
		return "", newMoveError(ErrFilesystemMoveFailed, src, requested, fmt.Errorf("%s 是目录", src))
	}

	if samePath(src, requested) {
		return src, nil
	}

	if err := m.ensureDir(filepath.Dir(requested)); err != nil {
		return "", newMoveError(ErrDestinationNotWritable, src, requested, err)
	}

	target, err := m.FreeName(requested, style)
	if err != nil {
		return "", newMoveError(ErrNameResolutionExhausted, src, requested, err)
	}

	if target != requested {
		logger.Get().Debug().
			Str("requested", requested).
			Str("target", target).
			Msg("文件名冲突，自动重命名")
	}

	if err := m.rename(src, target, info); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return "", newMoveError(ErrDestinationNotWritable, src, target, err)
		}
		return "", newMoveError(ErrFilesystemMoveFailed, src, target, err)
	}

	logger.Get().Debug().Str("source", src).Str("destination", target).Msg("文件已移动")
	return target, nil
}

// samePath 比较绝对路径，相对路径按当前工作目录解析
func samePath(a, b string) bool {
	if a == b {
		return true
	}
	absA, err := filepath.Abs(a)
	if err != nil {
		return false
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false
	}
	return absA == absB
}

// FreeName 返回 requested 或第一个不存在的候选文件名
func (m *Mover) FreeName(requested string, style Style) (string, error) {
	for n := 0; n < m.MaxAttempts; n++ {
		candidate := Candidate(requested, style, n)
		exists, err := afero.Exists(m.Fs, candidate)
		if err != nil {
			return "", fmt.Errorf("检查文件是否存在失败: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("已尝试 %d 次", m.MaxAttempts)
}

// Candidate 返回第 n 个候选路径，n 为 0 时返回原路径
func Candidate(path string, style Style, n int) string {
	if n <= 0 {
		return path
	}

	dir, name := filepath.Split(path)
	base, ext := splitExt(name)

	var suffix string
	switch style {
	case StyleRestored:
		if n == 1 {
			suffix = "_restored"
		} else {
			suffix = fmt.Sprintf("_restored_%d", n-1)
		}
	default:
		suffix = fmt.Sprintf("_%d", n)
	}

	return filepath.Join(dir, base+suffix+ext)
}

// splitExt 分离文件名和扩展名，.xmp 这类隐藏文件整体视为文件名
func splitExt(name string) (string, string) {
	ext := filepath.Ext(name)
	if ext == name {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}

func (m *Mover) ensureDir(dir string) error {
	info, err := m.Fs.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s 不是目录", dir)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return m.Fs.MkdirAll(dir, 0755)
}

// rename 优先使用单次 rename；跨设备时回退为复制后删除
func (m *Mover) rename(src, dst string, info os.FileInfo) error {
	err := m.Fs.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	logger.Get().Debug().
		Err(err).
		Str("source", src).
		Str("destination", dst).
		Msg("直接重命名失败，尝试复制后删除")

	if err := m.copyFile(src, dst, info); err != nil {
		if rmErr := m.Fs.Remove(dst); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			logger.Get().Warn().Err(rmErr).Str("path", dst).Msg("清理未完成的副本失败")
		}
		return err
	}

	if err := m.Fs.Remove(src); err != nil {
		// 源文件删不掉时撤回副本，保证只有一份
		if rmErr := m.Fs.Remove(dst); rmErr != nil {
			logger.Get().Warn().Err(rmErr).Str("path", dst).Msg("撤回副本失败")
		}
		return fmt.Errorf("删除原文件失败: %w", err)
	}
	return nil
}

func (m *Mover) copyFile(src, dst string, info os.FileInfo) error {
	sourceFile, err := m.Fs.Open(src)
	if err != nil {
		return fmt.Errorf("打开源文件失败: %w", err)
	}
	defer sourceFile.Close()

	destFile, err := m.Fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("创建目标文件失败: %w", err)
	}

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		return fmt.Errorf("复制文件内容失败: %w", err)
	}
	if err := destFile.Close(); err != nil {
		return fmt.Errorf("关闭目标文件失败: %w", err)
	}

	if err := m.Fs.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		logger.Get().Debug().Err(err).Str("path", dst).Msg("保留修改时间失败")
	}
	return nil
}
