package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wfunc/gem-cascade/internal/config"
)

func fileConfig(dir string) *config.LogConfig {
	return &config.LogConfig{
		Level:  "info",
		Format: "json",
		Output: "file",
		File: config.LogFileConfig{
			Path:       dir,
			Filename:   "test.log",
			MaxSize:    1,
			MaxAge:     1,
			MaxBackups: 1,
		},
		Modules: map[string]string{"match": "warn"},
	}
}

func TestNew_WritesToRotatedFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(fileConfig(dir))
	require.NoError(t, err)

	l.Info("棋盘已替换", zap.Int("width", 8))
	l.Error("已提交的交换没有产生组合")
	_ = l.Sync()

	content, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "棋盘已替换")
	assert.Contains(t, string(content), `"width":8`)

	errContent, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)
	assert.Contains(t, string(errContent), "已提交的交换没有产生组合")
	assert.NotContains(t, string(errContent), "棋盘已替换")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestInit_ModuleLoggersAndLevel(t *testing.T) {
	require.NoError(t, Init(fileConfig(t.TempDir())))

	match := GetModuleLogger("match")
	assert.False(t, match.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, match.Core().Enabled(zapcore.WarnLevel))

	assert.NotNil(t, WithModule("api"))
	assert.True(t, GetLogger().Core().Enabled(zapcore.InfoLevel))

	SetLevel("error")
	assert.False(t, GetLogger().Core().Enabled(zapcore.WarnLevel))
	SetLevel("info")
	assert.True(t, GetLogger().Core().Enabled(zapcore.InfoLevel))

	Cleanup()
}
