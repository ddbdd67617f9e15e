package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetLevel(LevelInfo)

	SetLevel(LevelWarn)
	Debug("d %d", 1)
	Info("i %d", 2)
	Warn("w %d", 3)
	Error("e %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "[DEBUG] d 1")
	assert.NotContains(t, out, "[INFO] i 2")
	assert.Contains(t, out, "[WARN] w 3")
	assert.Contains(t, out, "[ERROR] e 4")
}

func TestSetLevelFromString(t *testing.T) {
	defer SetLevel(LevelInfo)

	SetLevelFromString("debug")
	assert.True(t, IsDebugEnabled())

	SetLevelFromString("warning")
	assert.False(t, IsDebugEnabled())

	// Unknown names fall back to info.
	SetLevelFromString("verbose")
	assert.False(t, IsDebugEnabled())
}
