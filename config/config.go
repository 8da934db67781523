package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/azqeurio/sequential-selecter/internal"
)

type Config struct {
	Database struct {
		Path    string
		Enabled bool
	}
	Performance struct {
		Workers int
	}
	Logging struct {
		Level string
		File  string
	}
	Mover struct {
		MaxAttempts int `mapstructure:"max_attempts"`
	}
	Journal struct {
		Verify bool
	}
	Session struct {
		PairMode bool `mapstructure:"pair_mode"`
		Target1  string
		Target2  string
	}
	Sorter struct {
		Structure     []string
		Action        string
		Policy        string
		SkipIdentical bool `mapstructure:"skip_identical"`
		Exiftool      bool
	}
}

var cfg Config

// Load 读取配置。path 非空时只读取该文件，否则按默认路径查找；
// 找不到配置文件时使用默认值。环境变量前缀为 SEQSEL，例如 SEQSEL_LOGGING_LEVEL。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("$HOME/.sequential-selecter")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/sequential-selecter")
	}

	v.SetEnvPrefix("SEQSEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var loaded Config
	if err := v.Unmarshal(&loaded); err != nil {
		return nil, err
	}

	cfg = loaded
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", internal.DefaultDatabasePath)
	v.SetDefault("database.enabled", true)
	v.SetDefault("performance.workers", internal.DefaultWorkers)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("mover.max_attempts", internal.DefaultMaxAttempts)
	v.SetDefault("journal.verify", false)
	v.SetDefault("session.pair_mode", true)
	v.SetDefault("session.target1", "")
	v.SetDefault("session.target2", "")
	v.SetDefault("sorter.structure", []string{"camera", "date", "kind"})
	v.SetDefault("sorter.action", "copy")
	v.SetDefault("sorter.policy", "rename")
	v.SetDefault("sorter.skip_identical", false)
	v.SetDefault("sorter.exiftool", true)
}

func Get() *Config {
	return &cfg
}
