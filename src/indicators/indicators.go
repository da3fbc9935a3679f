package indicators

import (
	"math"

	"quote-broadcaster/src/models"
)

// Point is one defined value of an indicator series.
type Point struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// Levels are pivot based support and resistance of the last bar.
type Levels struct {
	Pivot       float64 `json:"pivot"`
	Resistance1 float64 `json:"resistance1"`
	Support1    float64 `json:"support1"`
}

// Report bundles every indicator computed for one quote payload.
// Warm-up samples (where an indicator is undefined) are omitted.
type Report struct {
	Symbol     string  `json:"symbol"`
	Duration   string  `json:"duration"`
	SMA20      []Point `json:"sma_20"`
	EMA20      []Point `json:"ema_20"`
	SMA50      []Point `json:"sma_50"`
	RSI14      []Point `json:"rsi"`
	MACD       []Point `json:"macd"`
	MACDSignal []Point `json:"macd_signal"`
	MACDHist   []Point `json:"macd_hist"`
	BBUpper    []Point `json:"bb_upper"`
	BBMiddle   []Point `json:"bb_middle"`
	BBLower    []Point `json:"bb_lower"`
	OBV        []Point `json:"obv"`
	MOM        []Point `json:"mom"`
	ROC        []Point `json:"roc"`
	Levels     *Levels `json:"levels,omitempty"`

	CDLDoji      []Point `json:"cdl_doji"`
	CDLHammer    []Point `json:"cdl_hammer"`
	CDLEngulfing []Point `json:"cdl_engulfing"`

	// last close against the trailing 20 closes
	ZScore      float64 `json:"zscore"`
	VolumeRatio float64 `json:"volume_ratio"`
}

// -----------------------------------------------------------------------------

// Compute derives the indicator report from the bars of a payload.
func Compute(p models.MQuotePayload) Report {
	n := len(p.Historical)
	times := make([]int64, n)
	opens := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, h := range p.Historical {
		times[i] = h.Time
		opens[i] = h.Open
		highs[i] = h.High
		lows[i] = h.Low
		closes[i] = h.Close
		volumes[i] = float64(h.Volume)
	}

	macd, signal, hist := MACD(closes, 12, 26, 9)
	upper, middle, lower := Bollinger(closes, 20, 2)

	r := Report{
		Symbol:     p.Symbol,
		Duration:   p.Duration,
		SMA20:      series(times, SMA(closes, 20)),
		EMA20:      series(times, EMA(closes, 20)),
		SMA50:      series(times, SMA(closes, 50)),
		RSI14:      series(times, RSI(closes, 14)),
		MACD:       series(times, macd),
		MACDSignal: series(times, signal),
		MACDHist:   series(times, hist),
		BBUpper:    series(times, upper),
		BBMiddle:   series(times, middle),
		BBLower:    series(times, lower),
		OBV:        series(times, OBV(closes, volumes)),
		MOM:        series(times, Momentum(closes, 10)),
		ROC:        series(times, ROC(closes, 10)),

		CDLDoji:      series(times, Doji(opens, highs, lows, closes)),
		CDLHammer:    series(times, Hammer(opens, highs, lows, closes)),
		CDLEngulfing: series(times, Engulfing(opens, closes)),
	}

	r.VolumeRatio = VolumeRatio(volumes)
	if n > 0 {
		window := closes[max(0, n-20):]
		mean, sd := MeanStd(window)
		r.ZScore = ZScore(closes[n-1], mean, sd)

		last := p.Historical[n-1]
		lv := PivotLevels(last.High, last.Low, last.Close)
		r.Levels = &lv
	}
	return r
}

// -----------------------------------------------------------------------------
// Series functions. Inputs are oldest first; undefined outputs are NaN.
// -----------------------------------------------------------------------------

func SMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA seeds with the SMA of the first period values.
func EMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	out[period-1] = seed / float64(period)

	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		out[i] = (values[i]-out[i-1])*k + out[i-1]
	}
	return out
}

// RSI uses Wilder's smoothing.
func RSI(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		g, l := gainLoss(values[i] - values[i-1])
		avgGain += g
		avgLoss += l
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		g, l := gainLoss(values[i] - values[i-1])
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func gainLoss(change float64) (float64, float64) {
	if change > 0 {
		return change, 0
	}
	return 0, -change
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// -----------------------------------------------------------------------------

func MACD(values []float64, fast, slow, signalPeriod int) (macd, signal, hist []float64) {
	n := len(values)
	macd, signal, hist = nanSlice(n), nanSlice(n), nanSlice(n)

	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)
	start := -1
	for i := 0; i < n; i++ {
		if math.IsNaN(fastEMA[i]) || math.IsNaN(slowEMA[i]) {
			continue
		}
		macd[i] = fastEMA[i] - slowEMA[i]
		if start < 0 {
			start = i
		}
	}
	if start < 0 {
		return
	}

	sig := EMA(macd[start:], signalPeriod)
	for i, v := range sig {
		signal[start+i] = v
		if !math.IsNaN(v) {
			hist[start+i] = macd[start+i] - v
		}
	}
	return
}

// Bollinger returns bands at k population standard deviations around the SMA.
func Bollinger(values []float64, period int, k float64) (upper, middle, lower []float64) {
	n := len(values)
	upper, lower = nanSlice(n), nanSlice(n)
	middle = SMA(values, period)
	for i := period - 1; i < n && period > 0; i++ {
		mean, sd := MeanStd(values[i-period+1 : i+1])
		upper[i] = mean + k*sd
		lower[i] = mean - k*sd
	}
	return
}

// -----------------------------------------------------------------------------

func OBV(closes, volumes []float64) []float64 {
	out := nanSlice(len(closes))
	if len(closes) == 0 || len(volumes) != len(closes) {
		return out
	}
	out[0] = 0
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			out[i] = out[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			out[i] = out[i-1] - volumes[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

func Momentum(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	for i := period; i < len(values) && period > 0; i++ {
		out[i] = values[i] - values[i-period]
	}
	return out
}

// ROC is the percent change over period bars.
func ROC(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	for i := period; i < len(values) && period > 0; i++ {
		if values[i-period] != 0 {
			out[i] = (values[i] - values[i-period]) / values[i-period] * 100
		}
	}
	return out
}

func PivotLevels(high, low, close float64) Levels {
	pivot := (high + low + close) / 3
	return Levels{
		Pivot:       pivot,
		Resistance1: 2*pivot - low,
		Support1:    2*pivot - high,
	}
}

// -----------------------------------------------------------------------------

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func series(times []int64, values []float64) []Point {
	out := make([]Point, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, Point{Time: times[i], Value: v})
	}
	return out
}
