package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorLog_Record(t *testing.T) {
	var buf bytes.Buffer
	el := NewErrorLog(&buf, "run-1")

	el.Record(KindUnmatched).Str("language", "en").Int("batch", 2).Str("word", "pity").Msg("no response item")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "unmatched_item", entry["kind"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "en", entry["language"])
	assert.Equal(t, float64(2), entry["batch"])
	assert.Equal(t, "warn", entry["level"])
	assert.NotEmpty(t, entry["time"])
}

func TestErrorLog_FatalKindsAreErrors(t *testing.T) {
	var buf bytes.Buffer
	NewErrorLog(&buf, "").Record(KindQuotaExceeded).Msg("quota")
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.NotContains(t, buf.String(), "run_id")
}

func TestErrorLog_NilAndNop(t *testing.T) {
	var el *ErrorLog
	el.Record(KindValidation).Msg("ignored")
	assert.NoError(t, el.Close())

	NopErrorLog().Record(KindValidation).Msg("ignored")
}

func TestOpenErrorLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "errors.log")
	el, err := OpenErrorLog(path, "run-2")
	require.NoError(t, err)

	el.Record(KindParseFailure).Msg("bad json")
	require.NoError(t, el.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "annotation_parse_failure")
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsole(&buf, "warn", "json")
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, `"message":"shown"`))

	buf.Reset()
	plain := NewConsole(&buf, "bogus", "console")
	plain.Info().Msg("plain")
	assert.Contains(t, buf.String(), "plain")
}
