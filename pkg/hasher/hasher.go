package hasher

import (
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"

	"github.com/azqeurio/sequential-selecter/pkg/logger"
)

// CalculateHash 计算文件内容的 xxHash64
func CalculateHash(fs afero.Fs, filePath string) (uint64, error) {
	logger.Get().Trace().Msgf("计算文件哈希: %s", filePath)

	file, err := fs.Open(filePath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	hash := xxhash.New()
	if _, err := io.Copy(hash, file); err != nil {
		logger.Get().Error().Err(err).Msgf("计算哈希失败: %s", filePath)
		return 0, err
	}

	return hash.Sum64(), nil
}

// Same 判断两个文件内容是否一致
func Same(fs afero.Fs, a, b string) (bool, error) {
	ha, err := CalculateHash(fs, a)
	if err != nil {
		return false, err
	}
	hb, err := CalculateHash(fs, b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}

// Format 格式化为 16 位十六进制字符串
func Format(hash uint64) string {
	return fmt.Sprintf("%016x", hash)
}

// Checksummer 绑定文件系统，供撤销日志校验内容使用
func Checksummer(fs afero.Fs) func(string) (uint64, error) {
	return func(path string) (uint64, error) {
		return CalculateHash(fs, path)
	}
}
