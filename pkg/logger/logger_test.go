package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", &buf)

	log.Info().Msg("should be suppressed")
	assert.Empty(t, buf.String())

	log.Warn().Msg("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestParseLevel_DefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("nonsense", &buf)

	log.Debug().Msg("suppressed")
	assert.Empty(t, buf.String())

	log.Info().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestComponent_TagsEntries(t *testing.T) {
	var buf bytes.Buffer
	log := Component(NewWithWriter("info", &buf), "hold-engine")

	log.Info().Msg("created")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hold-engine", entry["component"])
}
