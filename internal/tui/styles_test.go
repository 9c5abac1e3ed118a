package tui

import (
	"strings"
	"testing"

	"cyclecoach/internal/analysis"
)

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		percent float64
		filled  int
	}{
		{0, 0},
		{0.5, 10},
		{1, 20},
		{1.7, 20},
		{-0.3, 0},
	}

	for _, tt := range tests {
		bar := RenderProgressBar(tt.percent, 20)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("RenderProgressBar(%v) filled = %d, want %d", tt.percent, got, tt.filled)
		}
		if got := strings.Count(bar, "░"); got != 20-tt.filled {
			t.Errorf("RenderProgressBar(%v) empty = %d, want %d", tt.percent, got, 20-tt.filled)
		}
	}
}

func TestRenderTier(t *testing.T) {
	for tier := range tierColors {
		if got := RenderTier(tier); !strings.Contains(got, tier.Label()) {
			t.Errorf("RenderTier(%v) = %q, missing label %q", tier, got, tier.Label())
		}
	}
	if got := RenderTier(analysis.TierOvertraining); !strings.Contains(got, "Overtraining") {
		t.Errorf("RenderTier(overtraining) = %q", got)
	}
}
