package logging

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevelDefaultsToInfo(t *testing.T) {
	assert.Equal(t, log.InfoLevel, ParseLevel(false, false))
}

func TestParseLevelVerboseWinsOverDefault(t *testing.T) {
	assert.Equal(t, log.DebugLevel, ParseLevel(true, false))
}

func TestParseLevelQuietWinsOverVerbose(t *testing.T) {
	assert.Equal(t, log.WarnLevel, ParseLevel(true, true))
}

func TestNewWritesToProvidedWriterAtRequestedLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("scanner", log.WarnLevel, &buf)
	require.NotNil(t, logger)

	logger.Info("should not appear")
	assert.Empty(t, buf.String())

	logger.Warn("boundary hit", "count", 3)
	assert.Contains(t, buf.String(), "boundary hit")
	assert.Contains(t, buf.String(), "scanner")
}

func TestNewDefaultsToStderrWhenWriterNil(t *testing.T) {
	logger := New("worker", log.InfoLevel, nil)
	require.NotNil(t, logger)
}
