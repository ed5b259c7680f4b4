package logging

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"", zerolog.InfoLevel},
		{" info ", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestSetupWritesRotatedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "navigator.log")
	logger, closer, err := Setup(Options{Level: "debug", File: file})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = closer.Close()
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	})

	logger.Info().Msg("hello")
	assert.FileExists(t, file)
}

func TestComponentTagsLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	l := Component(base, "agent")
	l.Info().Msg("x")
	assert.Contains(t, buf.String(), `"component":"agent"`)
}
