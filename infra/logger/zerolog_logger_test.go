package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	assert.NoError(t, os.Setenv("APP_ENV", "dev"))
	defer assert.NoError(t, os.Unsetenv("APP_ENV"))
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestZerologLogger_ComponentAndLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)

	var buf bytes.Buffer
	l := NewWithWriter("optimiser", &buf)
	require.NoError(t, SetLevel("warn"))
	l.Infof("dropped")
	l.Warnf("kept %d", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "optimiser", rec["component"])
	assert.Equal(t, "warn", rec["level"])
	assert.Equal(t, "kept 2", rec["message"])

	require.NoError(t, SetLevel("debug"))
	buf.Reset()
	l.Debugw("model built", map[string]any{"binaries": 12})
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.EqualValues(t, 12, rec["binaries"])

	assert.Error(t, SetLevel("loud"))
	assert.NoError(t, SetLevel(""))
}

func TestSetFormat(t *testing.T) {
	outMu.RLock()
	prev := out
	outMu.RUnlock()
	defer func() {
		outMu.Lock()
		out = prev
		outMu.Unlock()
	}()

	require.NoError(t, SetFormat(""))
	require.NoError(t, SetFormat("console"))
	_, console := out.(zerolog.ConsoleWriter)
	assert.True(t, console)
	require.NoError(t, SetFormat("JSON"))
	assert.Equal(t, os.Stderr, out)
	assert.Error(t, SetFormat("xml"))
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l.Infof("nothing")
}
