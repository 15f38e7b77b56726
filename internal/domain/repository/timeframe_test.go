package repository

import (
	"testing"
	"time"
)

func TestNormalizeTimeframe(t *testing.T) {
	tests := []struct {
		in   string
		want Timeframe
	}{
		{"", TF1m},
		{"1s", TF1s},
		{"1h", TF1h},
		{"1d", TF1d},
		{"7m", TF1m},
	}
	for _, tt := range tests {
		if got := NormalizeTimeframe(tt.in); got != tt.want {
			t.Errorf("NormalizeTimeframe(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestTimeframeDuration(t *testing.T) {
	if TF5m.Duration() != 5*time.Minute || TF1d.Duration() != 24*time.Hour {
		t.Fatalf("unexpected durations")
	}
}
