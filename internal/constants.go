package internal

const (
	// 数据库默认路径
	DefaultDatabasePath = "~/.sequential-selecter/ratings.db"

	// 配置文件默认路径
	DefaultConfigPath = "~/.sequential-selecter/config.yaml"

	// 元数据扫描的默认工作线程数
	DefaultWorkers = 4

	// 生成不冲突文件名时的最大尝试次数
	DefaultMaxAttempts = 10000
)
