package scanner

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/h2non/filetype"
	"github.com/spf13/afero"

	"github.com/azqeurio/sequential-selecter/pkg/logger"
	"github.com/azqeurio/sequential-selecter/pkg/metadata"
)

const headerSize = 261

// extraImageExt 除原始格式和常见处理格式外也视为图片的扩展名
var extraImageExt = map[string]bool{
	".gif": true, ".bmp": true, ".webp": true, ".avif": true,
}

// sidecarExt 跟随照片一起移动的附属文件
var sidecarExt = map[string]bool{
	".xmp": true, ".xml": true,
}

type FileWalker struct {
	Fs            afero.Fs
	IncludeHidden bool
}

func NewFileWalker(fs afero.Fs) *FileWalker {
	return &FileWalker{
		Fs:            fs,
		IncludeHidden: true,
	}
}

// Walk 遍历 root 下的所有文件，无法读取的条目直接跳过
func (w *FileWalker) Walk(root string, callback func(path string, info os.FileInfo) error) error {
	return afero.Walk(w.Fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}

		if !w.IncludeHidden && path != root && isHidden(info.Name()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			return nil
		}

		return callback(path, info)
	})
}

// WalkImages 只回调图片文件
func (w *FileWalker) WalkImages(root string, callback func(path string, info os.FileInfo) error) error {
	return w.Walk(root, func(path string, info os.FileInfo) error {
		if !IsImage(w.Fs, path) {
			return nil
		}
		return callback(path, info)
	})
}

// ListImages 列出目录下（不递归）的图片，按文件名排序
func (w *FileWalker) ListImages(dir string) ([]string, error) {
	entries, err := afero.ReadDir(w.Fs, dir)
	if err != nil {
		return nil, err
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !w.IncludeHidden && isHidden(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if IsImage(w.Fs, path) {
			images = append(images, path)
		}
	}

	sort.Strings(images)
	logger.Get().Debug().Msgf("目录 %s 中共有 %d 张图片", dir, len(images))
	return images, nil
}

func (w *FileWalker) CountFiles(dirs []string) (int, error) {
	logger.Get().Info().Msgf("开始统计文件数量，共 %d 个目录", len(dirs))

	count := 0
	for _, dir := range dirs {
		logger.Get().Debug().Msgf("扫描目录: %s", dir)
		err := w.Walk(dir, func(path string, info os.FileInfo) error {
			count++
			return nil
		})
		if err != nil {
			logger.Get().Error().Err(err).Msgf("扫描目录失败: %s", dir)
			return 0, err
		}
	}

	logger.Get().Info().Msgf("文件统计完成，共找到 %d 个文件", count)
	return count, nil
}

// IsImage 先按扩展名判断；扩展名未知时读取文件头识别
func IsImage(fs afero.Fs, path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if metadata.KindOf(path) != metadata.KindOther || extraImageExt[ext] {
		return true
	}
	if sidecarExt[ext] {
		return false
	}

	head, err := readHeader(fs, path)
	if err != nil {
		return false
	}
	return filetype.IsImage(head)
}

func readHeader(fs afero.Fs, path string) ([]byte, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	head := make([]byte, headerSize)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return head[:n], nil
}

// IsSidecar 是否为 .xmp/.xml 附属文件
func IsSidecar(path string) bool {
	return sidecarExt[strings.ToLower(filepath.Ext(path))]
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
