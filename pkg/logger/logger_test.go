package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"trace", zerolog.TraceLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			if got := ParseLevel(tc.input); got != tc.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestGet_Uninitialized(t *testing.T) {
	Logger = nil
	if Get() == nil {
		t.Fatal("Get() returned nil")
	}
}

func TestInit_QuietWritesFileOnly(t *testing.T) {
	t.Cleanup(func() { Logger = nil })

	logFile := filepath.Join(t.TempDir(), "app.log")
	if err := Init("info", logFile, true); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	Get().Info().Str("path", "/a/b.jpg").Msg("moved")
	Get().Debug().Msg("hidden")

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("读取日志文件失败: %v", err)
	}

	content := string(data)
	if !strings.Contains(content, "moved") {
		t.Errorf("Expected info message in log file, got %q", content)
	}
	if strings.Contains(content, "hidden") {
		t.Errorf("Debug message should be filtered at info level, got %q", content)
	}
}
