// Package metadata 提取照片的拍摄时间、相机、镜头和类型。
//
// 依次尝试内置的 EXIF 解析、外部 exiftool 和文件修改时间，
// 前一个来源缺失的字段由后一个补齐。
package metadata

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/barasher/go-exiftool"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/spf13/afero"

	"github.com/azqeurio/sequential-selecter/pkg/logger"
)

// Kind 文件类别
type Kind string

const (
	KindRaw   Kind = "raw"
	KindJPG   Kind = "jpg"
	KindOther Kind = "other"
)

const (
	UnknownCamera = "Unknown Camera"
	UnknownLens   = "Unknown Lens"
	maxNameLength = 120
)

// RawExt 相机原始格式
var RawExt = map[string]bool{
	".arw": true, ".cr2": true, ".cr3": true, ".nef": true, ".orf": true, ".rw2": true,
	".raf": true, ".dng": true, ".srw": true, ".pef": true, ".tif": true, ".tiff": true,
}

// ProcExt 处理后的图片格式
var ProcExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".heic": true, ".heif": true, ".png": true,
}

// KindOf 按扩展名判断类别
func KindOf(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case RawExt[ext]:
		return KindRaw
	case ProcExt[ext]:
		return KindJPG
	default:
		return KindOther
	}
}

// Info 单个文件的元数据
type Info struct {
	Path   string    `yaml:"path"`
	Time   time.Time `yaml:"time"`
	Year   string    `yaml:"year"`
	Month  string    `yaml:"month"`
	Date   string    `yaml:"date"`
	Camera string    `yaml:"camera"`
	Lens   string    `yaml:"lens"`
	Kind   Kind      `yaml:"kind"`
	Source string    `yaml:"source"` // exif / exiftool / mtime
}

// Extractor 元数据提取器。exiftool 进程不是并发安全的，由互斥锁保护。
type Extractor struct {
	fs afero.Fs
	mu sync.Mutex
	et *exiftool.Exiftool
}

// NewExtractor 创建提取器。useExiftool 为 true 但系统中没有 exiftool 时只记录警告。
func NewExtractor(fs afero.Fs, useExiftool bool) *Extractor {
	e := &Extractor{fs: fs}
	if !useExiftool {
		return e
	}

	et, err := exiftool.NewExiftool()
	if err != nil {
		logger.Get().Warn().Err(err).Msg("exiftool 不可用，仅使用内置 EXIF 解析")
		return e
	}
	e.et = et
	return e
}

// HasExiftool 是否启用了 exiftool
func (e *Extractor) HasExiftool() bool {
	return e.et != nil
}

func (e *Extractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.et == nil {
		return nil
	}
	err := e.et.Close()
	e.et = nil
	return err
}

// Extract 提取元数据，只有文件不可访问时返回错误
func (e *Extractor) Extract(path string) (Info, error) {
	stat, err := e.fs.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("读取文件信息失败: %w", err)
	}

	var (
		dt     time.Time
		camera string
		lens   string
		source = "mtime"
	)

	if d, c, l, ok := e.fromExif(path); ok {
		dt, camera, lens = d, c, l
		if !dt.IsZero() {
			source = "exif"
		}
	}

	if e.et != nil && (dt.IsZero() || camera == "" || lens == "") {
		d, c, l := e.fromExiftool(path)
		if dt.IsZero() && !d.IsZero() {
			dt = d
			source = "exiftool"
		}
		if camera == "" {
			camera = c
		}
		if lens == "" {
			lens = l
		}
	}

	if dt.IsZero() {
		dt = stat.ModTime()
	}

	return Info{
		Path:   path,
		Time:   dt,
		Year:   dt.Format("2006"),
		Month:  dt.Format("2006-01"),
		Date:   dt.Format("2006-01-02"),
		Camera: Sanitize(orDefault(camera, UnknownCamera)),
		Lens:   Sanitize(orDefault(lens, UnknownLens)),
		Kind:   KindOf(path),
		Source: source,
	}, nil
}

func (e *Extractor) fromExif(path string) (time.Time, string, string, bool) {
	f, err := e.fs.Open(path)
	if err != nil {
		return time.Time{}, "", "", false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		logger.Get().Trace().Err(err).Msgf("没有可用的 EXIF: %s", path)
		return time.Time{}, "", "", false
	}

	dt, err := x.DateTime()
	if err != nil {
		dt = time.Time{}
	}
	model := exifString(x, exif.Model)
	lens := exifString(x, exif.LensModel)
	return dt, model, lens, true
}

func exifString(x *exif.Exif, field exif.FieldName) string {
	tag, err := x.Get(field)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

func (e *Extractor) fromExiftool(path string) (time.Time, string, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.et == nil {
		return time.Time{}, "", ""
	}

	results := e.et.ExtractMetadata(path)
	if len(results) == 0 || results[0].Err != nil {
		if len(results) > 0 {
			logger.Get().Debug().Err(results[0].Err).Msgf("exiftool 读取失败: %s", path)
		}
		return time.Time{}, "", ""
	}
	fm := results[0]

	var dt time.Time
	if s, err := fm.GetString("DateTimeOriginal"); err == nil {
		dt, _ = ParseDateTime(s)
	}

	model, _ := fm.GetString("Model")
	maker, _ := fm.GetString("Make")
	model = strings.TrimSpace(model)
	maker = strings.TrimSpace(maker)
	if maker != "" && model != "" && !strings.Contains(model, maker) {
		model = maker + " " + model
	}

	lens, _ := fm.GetString("LensModel")
	if lens == "" {
		lens, _ = fm.GetString("Lens")
	}
	return dt, model, strings.TrimSpace(lens)
}

var dateLayouts = []string{
	"2006:01:02 15:04:05",
	"2006-01-02 15:04:05",
	"2006:01:02 15:04:05-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006:01:02 15:04:05-0700",
	"2006-01-02 15:04:05-0700",
}

// ParseDateTime 解析 EXIF 日期字符串，丢弃时区，按本地时间返回
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.Local), nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析日期: %q", s)
}

// Sanitize 生成可以作为目录名的字符串
func Sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(" ._-()+[]#", r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	s := strings.Join(strings.Fields(b.String()), " ")
	if r := []rune(s); len(r) > maxNameLength {
		s = strings.TrimSpace(string(r[:maxNameLength]))
	}
	// "." 和 ".." 会让路径跳出目标目录
	if strings.Trim(s, ".") == "" {
		return "Unknown"
	}
	return s
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
