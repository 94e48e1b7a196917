package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
)

func TestConfig_WithDefaults(t *testing.T) {
	tests := []struct {
		name      string
		in        Config
		wantFetch int
		wantGate  time.Duration
	}{
		{"zero values", Config{}, output.MaxUnreadResults, time.Hour},
		{"within cap", Config{FetchLimit: 10, GateTimeout: time.Minute}, 10, time.Minute},
		{"above cap", Config{FetchLimit: 500}, output.MaxUnreadResults, time.Hour},
		{"negative", Config{FetchLimit: -3, GateTimeout: -time.Second}, output.MaxUnreadResults, time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.withDefaults()
			assert.Equal(t, tt.wantFetch, got.FetchLimit)
			assert.Equal(t, tt.wantGate, got.GateTimeout)
		})
	}
}
