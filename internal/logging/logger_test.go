package logging

import (
	"bytes"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
)

func TestNewWithOutputHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("cinema", "warn", &buf)

	log.Info("hidden")
	log.Warn("shown", "schedule_id", 7)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "schedule_id=7")
	assert.Contains(t, out, "cinema")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	log := NewWithOutput("cinema", "loud", &bytes.Buffer{})
	assert.Equal(t, hclog.Info, log.GetLevel())
}
