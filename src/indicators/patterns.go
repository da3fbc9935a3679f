package indicators

import "math"

// Candlestick pattern flags: 100 bullish, -100 bearish, 0 no pattern.
// Bars without enough history are NaN.

const (
	dojiBodyRatio     = 0.1
	hammerBodyRatio   = 0.3
	hammerShadowRatio = 0.1
)

// Doji flags bars whose body is at most a tenth of the range. A bar with no
// range at all counts as a doji.
func Doji(opens, highs, lows, closes []float64) []float64 {
	out := nanSlice(len(closes))
	if !sameLen(opens, highs, lows, closes) {
		return out
	}
	for i := range closes {
		body := math.Abs(closes[i] - opens[i])
		rng := highs[i] - lows[i]
		if body <= dojiBodyRatio*rng {
			out[i] = 100
		} else {
			out[i] = 0
		}
	}
	return out
}

// Hammer flags a small body at the top of the range with a lower shadow at
// least twice the body and next to no upper shadow.
func Hammer(opens, highs, lows, closes []float64) []float64 {
	out := nanSlice(len(closes))
	if !sameLen(opens, highs, lows, closes) {
		return out
	}
	for i := range closes {
		out[i] = 0
		rng := highs[i] - lows[i]
		if rng <= 0 {
			continue
		}
		body := math.Abs(closes[i] - opens[i])
		lower := math.Min(opens[i], closes[i]) - lows[i]
		upper := highs[i] - math.Max(opens[i], closes[i])
		if body <= hammerBodyRatio*rng && lower > 0 && lower >= 2*body && upper <= hammerShadowRatio*rng {
			out[i] = 100
		}
	}
	return out
}

// Engulfing compares each bar with the one before: a bullish body covering a
// bearish one is 100, the mirror case -100.
func Engulfing(opens, closes []float64) []float64 {
	out := nanSlice(len(closes))
	if len(opens) != len(closes) {
		return out
	}
	for i := 1; i < len(closes); i++ {
		po, pc, o, c := opens[i-1], closes[i-1], opens[i], closes[i]
		switch {
		case pc < po && c > o && o <= pc && c >= po:
			out[i] = 100
		case pc > po && c < o && o >= pc && c <= po:
			out[i] = -100
		default:
			out[i] = 0
		}
	}
	return out
}

func sameLen(a, b, c, d []float64) bool {
	return len(a) == len(b) && len(b) == len(c) && len(c) == len(d)
}
