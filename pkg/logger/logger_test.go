package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"wallet-ledger/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_StructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Info().Str("wallet_id", "w-1").Msg("wallet funded")

	var output map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &output)
	require.NoError(t, err, "logger output should be valid JSON")

	assert.Equal(t, "wallet funded", output["message"])
	assert.Equal(t, "w-1", output["wallet_id"])
	assert.Equal(t, "info", output["level"])
	assert.Contains(t, output, "time", "should include timestamp")
}

func TestNewWithWriter_Levels(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		debugSeen bool
		infoSeen  bool
	}{
		{"debug", "debug", true, true},
		{"info", "info", false, true},
		{"warn", "warn", false, false},
		{"error", "error", false, false},
		{"invalid defaults to info", "invalid", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var debugBuf, infoBuf bytes.Buffer
			debugLog := NewWithWriter(tt.level, &debugBuf)
			debugLog.Debug().Msg("d")
			infoLog := NewWithWriter(tt.level, &infoBuf)
			infoLog.Info().Msg("i")

			assert.Equal(t, tt.debugSeen, debugBuf.Len() > 0)
			assert.Equal(t, tt.infoSeen, infoBuf.Len() > 0)
		})
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(NewWithWriter("info", &buf), "transfer-engine")

	log.Info().Msg("ready")

	var output map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))
	assert.Equal(t, "transfer-engine", output["component"])
}

func TestNew_PrettyMode(t *testing.T) {
	log := New(config.LogConfig{Level: "info", Pretty: true})
	log.Info().Msg("pretty mode test")
}
