package slackdm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type warnRecorder struct {
	NoopLogger
	warnings []string
}

func (w *warnRecorder) Warnf(format string, v ...any) {
	w.warnings = append(w.warnings, fmt.Sprintf(format, v...))
}

func TestParseDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected float64
		warns    bool
	}{
		{"100ms", 100, false},
		{"250", 250, false},
		{"1s", 1000, false},
		{"1.5s", 1500, false},
		{"2m", 120000, false},
		{"1h", 3600000, false},
		{"3MS", 3, false},
		{"2S", 2000, false},
		{" 5s ", 100, true},
		{"1s ", 100, true},
		{"0", 0, false},
		{"", 100, true},
		{"bogus", 100, true},
		{"-1s", 100, true},
		{"1d", 100, true},
		{"1.s", 100, true},
		{"s", 100, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			t.Parallel()

			logger := &warnRecorder{}
			assert.InDelta(t, tt.expected, ParseDelay(tt.input, logger), 1e-9)

			if tt.warns {
				assert.Len(t, logger.warnings, 1)
			} else {
				assert.Empty(t, logger.warnings)
			}
		})
	}
}

func TestParseDelay_NilLogger(t *testing.T) {
	t.Parallel()

	assert.Equal(t, float64(DefaultDelayMillis), ParseDelay("nope", nil))
}
