package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetLevel(LevelWarn)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	reset(t)

	SetVerbose(false)
	assert.False(t, IsVerbose())
	assert.Equal(t, LevelWarn, GetLevel())

	SetVerbose(true)
	assert.True(t, IsVerbose())
	assert.Equal(t, LevelDebug, GetLevel())
}

func TestDebug_WhenVerbose(t *testing.T) {
	buf := reset(t)
	SetVerbose(true)

	Debug("test message %s", "arg")

	assert.Equal(t, "[DEBUG] test message arg\n", buf.String())
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	buf := reset(t)
	SetVerbose(false)

	Debug("test message")
	Info("info message")

	assert.Zero(t, buf.Len())
}

func TestLevels(t *testing.T) {
	buf := reset(t)
	SetLevel(LevelInfo)

	Debug("hidden")
	Info("loaded %d documents", 3)
	Warn("slow")
	Error("failed")

	assert.Equal(t, "[INFO] loaded 3 documents\n[WARN] slow\n[ERROR] failed\n", buf.String())
}

func TestSection(t *testing.T) {
	buf := reset(t)
	SetVerbose(true)

	Section("Load")

	assert.Equal(t, "\n=== Load ===\n", buf.String())
}

func TestParseLevel(t *testing.T) {
	for in, expected := range map[string]Level{
		"debug": LevelDebug, "INFO": LevelInfo, "warning": LevelWarn, "error": LevelError,
	} {
		l, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, expected, l)
		assert.NotEmpty(t, l.String())
	}

	_, err := ParseLevel("trace")
	assert.Error(t, err)
}
