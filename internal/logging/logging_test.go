package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("debug", "json", &buf)
	require.NoError(t, err)

	log.Debug().Str("key", "search_a").Msg("saved results to cache")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "search_a", line["key"])
	assert.Equal(t, "marketcache", line["service"])
	assert.Contains(t, line, "time")
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("WARN", "json", &buf)
	require.NoError(t, err)

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())
	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("", "console", &buf)
	require.NoError(t, err)

	log.Info().Msg("cleaned expired cache entries")
	assert.Contains(t, buf.String(), "INF")
	assert.Contains(t, buf.String(), "cleaned expired cache entries")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud", "json", &bytes.Buffer{})
	assert.Error(t, err)
}
