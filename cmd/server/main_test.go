package main

import (
	"testing"

	"github.com/landsduel/duel-server-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"loud", zapcore.InfoLevel},
		{"fatal", zapcore.InfoLevel},
	}
	for _, format := range []string{"json", "console"} {
		for _, tt := range tests {
			logger, err := initLogger(config.LoggingConfig{Level: tt.level, Format: format})
			require.NoError(t, err)
			assert.Equal(t, tt.want, logger.Level(), "%s/%s", format, tt.level)
		}
	}
}
