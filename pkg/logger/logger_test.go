package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("hr-service", &buf).WithComponent("attendance").WithUsername("alice")

	log.Info().Msg("checked in")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hr-service", entry["service"])
	assert.Equal(t, "attendance", entry["component"])
	assert.Equal(t, "alice", entry["username"])
	assert.Equal(t, "checked in", entry["message"])
}

func TestNop_Discards(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().WithRequestID("r-1").Error().Msg("ignored")
	})
}
