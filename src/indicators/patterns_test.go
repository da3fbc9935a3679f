package indicators

import (
	"math"
	"testing"
)

type bar struct{ o, h, l, c float64 }

func split(bars ...bar) (opens, highs, lows, closes []float64) {
	for _, b := range bars {
		opens = append(opens, b.o)
		highs = append(highs, b.h)
		lows = append(lows, b.l)
		closes = append(closes, b.c)
	}
	return
}

func TestSingleBarPatterns(t *testing.T) {
	tests := []struct {
		name         string
		bar          bar
		doji, hammer float64
	}{
		{"doji", bar{10, 11, 9, 10.05}, 100, 0},
		{"long body", bar{10, 11, 9.5, 11}, 0, 0},
		{"hammer", bar{10, 10.6, 8, 10.5}, 0, 100},
		{"upper shadow too long", bar{10, 11.5, 8, 10.5}, 0, 0},
		{"no range", bar{5, 5, 5, 5}, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, h, l, c := split(tt.bar)
			if got := Doji(o, h, l, c)[0]; got != tt.doji {
				t.Errorf("Doji = %v, want %v", got, tt.doji)
			}
			if got := Hammer(o, h, l, c)[0]; got != tt.hammer {
				t.Errorf("Hammer = %v, want %v", got, tt.hammer)
			}
		})
	}
}

func TestEngulfing(t *testing.T) {
	tests := []struct {
		name      string
		prev, cur bar
		want      float64
	}{
		{"bullish", bar{10, 10, 9, 9}, bar{8.8, 10.5, 8.8, 10.5}, 100},
		{"bearish", bar{9, 10, 9, 10}, bar{10.2, 10.2, 8.5, 8.5}, -100},
		{"inside body", bar{10, 10, 9, 9}, bar{9.5, 9.8, 9.5, 9.8}, 0},
		{"same direction", bar{9, 10, 9, 10}, bar{8.5, 10.5, 8.5, 10.5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, _, _, c := split(tt.prev, tt.cur)
			got := Engulfing(o, c)
			if !math.IsNaN(got[0]) {
				t.Errorf("first bar = %v, want NaN", got[0])
			}
			if got[1] != tt.want {
				t.Errorf("Engulfing = %v, want %v", got[1], tt.want)
			}
		})
	}
}

func TestPatternsMismatchedInput(t *testing.T) {
	out := Doji([]float64{1, 2}, []float64{1}, []float64{1, 2}, []float64{1, 2})
	if len(out) != 2 || !math.IsNaN(out[0]) || !math.IsNaN(out[1]) {
		t.Errorf("mismatched input = %v", out)
	}
	if out := Engulfing([]float64{1}, []float64{1, 2}); !math.IsNaN(out[1]) {
		t.Errorf("mismatched engulfing = %v", out)
	}
}
