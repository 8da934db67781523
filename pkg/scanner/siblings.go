package scanner

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/azqeurio/sequential-selecter/pkg/logger"
)

// Stem 去掉扩展名后的文件名
func Stem(path string) string {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	if ext == name {
		return name
	}
	return strings.TrimSuffix(name, ext)
}

// Siblings 返回与 path 同目录、应一起移动的文件，不包含 path 本身。
//
// 附属文件总会被包含：IMG_001.xmp 以及 IMG_001.CR2.xmp 这样的形式。
// pairs 为 true 时，同名的其他图片（RAW/JPEG 对）也会被包含。
// 结果中图片在前，附属文件在后，各自按文件名排序。
func Siblings(fs afero.Fs, path string, pairs bool) []string {
	dir := filepath.Dir(path)
	self := filepath.Base(path)
	stem := Stem(path)

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		logger.Get().Debug().Err(err).Msgf("读取目录失败，忽略关联文件: %s", dir)
		return nil
	}

	var images, sidecars []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == self {
			continue
		}

		candidate := filepath.Join(dir, name)
		switch {
		case IsSidecar(name):
			if Stem(name) == stem || strings.HasPrefix(name, stem+".") {
				sidecars = append(sidecars, candidate)
			}
		case pairs && Stem(name) == stem && IsImage(fs, candidate):
			images = append(images, candidate)
		}
	}

	sort.Strings(images)
	sort.Strings(sidecars)
	return append(images, sidecars...)
}

// Expand 为每个路径追加其关联文件并去重，保持原有顺序
func Expand(fs afero.Fs, paths []string, pairs bool) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(p string) {
		p = filepath.Clean(p)
		if seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}

	for _, p := range paths {
		add(p)
		for _, sibling := range Siblings(fs, p, pairs) {
			add(sibling)
		}
	}
	return out
}
