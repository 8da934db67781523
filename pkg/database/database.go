package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	_ "modernc.org/sqlite"

	"github.com/azqeurio/sequential-selecter/pkg/logger"
)

const (
	MinStars = 0
	MaxStars = 5
)

// ErrInvalidRating 评分超出 0..5
var ErrInvalidRating = errors.New("评分必须在 0 到 5 之间")

// Rating 单个文件的星级评分，按 (folder, filename) 唯一
type Rating struct {
	ID        int64     `gorm:"primaryKey"`
	Folder    string    `gorm:"uniqueIndex:idx_folder_filename;not null"`
	Filename  string    `gorm:"uniqueIndex:idx_folder_filename;not null"`
	Stars     int       `gorm:"not null"`
	Date      string    `gorm:"index"`
	Camera    string    `gorm:"index"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Rating) TableName() string {
	return "ratings"
}

// Path 评分对应的完整路径
func (r Rating) Path() string {
	return filepath.Join(r.Folder, r.Filename)
}

// Filter LoadRatings 的筛选条件，零值表示不筛选
type Filter struct {
	Date     string
	Camera   string
	MinStars int
}

type Database struct {
	db *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	expandedPath, err := expandPath(dbPath)
	if err != nil {
		logger.Get().Error().Err(err).Msg("扩展数据库路径失败")
		return nil, err
	}

	logger.Get().Info().Msgf("初始化数据库，路径: %s", expandedPath)

	if err := os.MkdirAll(filepath.Dir(expandedPath), 0755); err != nil {
		logger.Get().Error().Err(err).Msgf("创建数据库目录失败: %s", filepath.Dir(expandedPath))
		return nil, err
	}

	// 使用纯 Go 的 modernc 驱动，不依赖 cgo
	dsn := expandedPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{})
	if err != nil {
		logger.Get().Error().Err(err).Msg("打开数据库连接失败")
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Get().Error().Err(err).Msg("获取数据库连接失败")
		return nil, err
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		logger.Get().Error().Err(err).Msg("创建数据库表失败")
		return nil, err
	}

	logger.Get().Info().Msg("数据库初始化完成")
	return &Database{db: db}, nil
}

func expandPath(path string) (string, error) {
	if len(path) >= 2 && path[0] == '~' && (path[1] == '/' || path[1] == '\\') {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

func createSchema(db *gorm.DB) error {
	return db.AutoMigrate(&Rating{})
}

func splitPath(path string) (string, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", fmt.Errorf("解析路径失败: %w", err)
	}
	return filepath.Dir(abs), filepath.Base(abs), nil
}

// SaveRating 保存或更新评分
func (d *Database) SaveRating(path string, stars int, date, camera string) error {
	if stars < MinStars || stars > MaxStars {
		return fmt.Errorf("%s: %d: %w", path, stars, ErrInvalidRating)
	}

	folder, name, err := splitPath(path)
	if err != nil {
		return err
	}

	record := &Rating{
		Folder:    folder,
		Filename:  name,
		Stars:     stars,
		Date:      date,
		Camera:    camera,
		UpdatedAt: time.Now(),
	}

	err = d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "folder"}, {Name: "filename"}},
		DoUpdates: clause.AssignmentColumns([]string{"stars", "date", "camera", "updated_at"}),
	}).Create(record).Error
	if err != nil {
		logger.Get().Error().Err(err).Msgf("保存评分失败: %s", path)
		return err
	}

	logger.Get().Debug().Msgf("保存评分成功: %s -> %d", path, stars)
	return nil
}

// GetRating 返回评分，未评分时为 0
func (d *Database) GetRating(path string) (int, error) {
	folder, name, err := splitPath(path)
	if err != nil {
		return 0, err
	}

	var record Rating
	err = d.db.Where("folder = ? AND filename = ?", folder, name).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		logger.Get().Error().Err(err).Msgf("查询评分失败: %s", path)
		return 0, err
	}
	return record.Stars, nil
}

func (d *Database) RemoveRating(path string) error {
	folder, name, err := splitPath(path)
	if err != nil {
		return err
	}
	return d.db.Where("folder = ? AND filename = ?", folder, name).Delete(&Rating{}).Error
}

// ClearFolder 删除目录下的全部评分，返回删除的条数
func (d *Database) ClearFolder(folder string) (int64, error) {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return 0, err
	}
	result := d.db.Where("folder = ?", abs).Delete(&Rating{})
	if result.Error != nil {
		return 0, result.Error
	}
	logger.Get().Info().Msgf("已清除 %s 的 %d 条评分", abs, result.RowsAffected)
	return result.RowsAffected, nil
}

// LoadRatings 按文件名顺序返回目录下符合条件的评分
func (d *Database) LoadRatings(folder string, filter Filter) ([]Rating, error) {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return nil, err
	}

	query := d.db.Where("folder = ?", abs)
	if filter.Date != "" {
		query = query.Where("date = ?", filter.Date)
	}
	if filter.Camera != "" {
		query = query.Where("camera = ?", filter.Camera)
	}
	if filter.MinStars > 0 {
		query = query.Where("stars >= ?", filter.MinStars)
	}

	var ratings []Rating
	if err := query.Order("filename").Find(&ratings).Error; err != nil {
		logger.Get().Error().Err(err).Msgf("读取评分失败: %s", abs)
		return nil, err
	}
	return ratings, nil
}

// UniqueFilters 返回目录下出现过的日期和相机，均已排序且不含空值
func (d *Database) UniqueFilters(folder string) ([]string, []string, error) {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return nil, nil, err
	}

	var dates, cameras []string
	if err := d.db.Model(&Rating{}).
		Where("folder = ? AND date <> ''", abs).
		Distinct().Order("date").Pluck("date", &dates).Error; err != nil {
		return nil, nil, err
	}
	if err := d.db.Model(&Rating{}).
		Where("folder = ? AND camera <> ''", abs).
		Distinct().Order("camera").Pluck("camera", &cameras).Error; err != nil {
		return nil, nil, err
	}
	return dates, cameras, nil
}

// Relocate 文件移动后让评分跟随；from 没有评分时什么也不做
func (d *Database) Relocate(from, to string) error {
	fromFolder, fromName, err := splitPath(from)
	if err != nil {
		return err
	}
	toFolder, toName, err := splitPath(to)
	if err != nil {
		return err
	}
	if fromFolder == toFolder && fromName == toName {
		return nil
	}

	return d.db.Transaction(func(tx *gorm.DB) error {
		var record Rating
		err := tx.Where("folder = ? AND filename = ?", fromFolder, fromName).Take(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		// 目标位置的旧评分属于已经不存在的文件
		if err := tx.Where("folder = ? AND filename = ?", toFolder, toName).Delete(&Rating{}).Error; err != nil {
			return err
		}

		err = tx.Model(&record).Updates(map[string]any{
			"folder":     toFolder,
			"filename":   toName,
			"updated_at": time.Now(),
		}).Error
		if err != nil {
			return err
		}

		logger.Get().Debug().Msgf("评分已跟随文件移动: %s -> %s", from, to)
		return nil
	})
}

func (d *Database) Close() error {
	logger.Get().Info().Msg("关闭数据库连接")
	sqlDB, err := d.db.DB()
	if err != nil {
		logger.Get().Error().Err(err).Msg("获取数据库连接失败")
		return err
	}
	return sqlDB.Close()
}
