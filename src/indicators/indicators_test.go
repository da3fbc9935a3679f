package indicators

import (
	"encoding/json"
	"math"
	"testing"

	"quote-broadcaster/src/models"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Errorf("warm-up must be NaN: %v", got)
	}
	for i, want := range map[int]float64{2: 2, 3: 3, 4: 4} {
		if !near(got[i], want) {
			t.Errorf("SMA[%d] = %v, want %v", i, got[i], want)
		}
	}
	if out := SMA([]float64{1}, 3); len(out) != 1 || !math.IsNaN(out[0]) {
		t.Errorf("short input = %v", out)
	}
}

func TestEMASeedsWithSMA(t *testing.T) {
	got := EMA([]float64{2, 4, 6, 8}, 3)
	if !near(got[2], 4) {
		t.Errorf("seed = %v, want 4", got[2])
	}
	// k = 0.5
	if !near(got[3], 6) {
		t.Errorf("EMA[3] = %v, want 6", got[3])
	}
}

func TestRSIBounds(t *testing.T) {
	rising := []float64{1, 2, 3, 4, 5, 6}
	if got := RSI(rising, 3); !near(got[5], 100) {
		t.Errorf("monotonic rise RSI = %v", got[5])
	}
	flat := []float64{5, 5, 5, 5, 5}
	if got := RSI(flat, 3); !near(got[4], 50) {
		t.Errorf("flat RSI = %v", got[4])
	}
	mixed := RSI([]float64{10, 11, 10, 12, 11, 13, 12}, 3)
	for _, v := range mixed[3:] {
		if v < 0 || v > 100 {
			t.Errorf("RSI out of range: %v", v)
		}
	}
}

func TestBollingerFlatSeries(t *testing.T) {
	upper, middle, lower := Bollinger([]float64{3, 3, 3, 3}, 2, 2)
	if !near(upper[3], 3) || !near(middle[3], 3) || !near(lower[3], 3) {
		t.Errorf("bands = %v %v %v", upper[3], middle[3], lower[3])
	}
}

func TestOBVAndMomentum(t *testing.T) {
	obv := OBV([]float64{1, 2, 1, 1}, []float64{10, 20, 5, 7})
	want := []float64{0, 20, 15, 15}
	for i := range want {
		if !near(obv[i], want[i]) {
			t.Errorf("OBV[%d] = %v, want %v", i, obv[i], want[i])
		}
	}
	if mom := Momentum([]float64{1, 4, 9}, 2); !near(mom[2], 8) {
		t.Errorf("MOM = %v", mom)
	}
	if roc := ROC([]float64{10, 11, 12}, 2); !near(roc[2], 20) {
		t.Errorf("ROC = %v", roc)
	}
}

func TestMACDWarmUp(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = float64(i)
	}
	macd, signal, hist := MACD(values, 12, 26, 9)
	if !math.IsNaN(macd[24]) || math.IsNaN(macd[25]) {
		t.Errorf("macd defined from index 25, got %v %v", macd[24], macd[25])
	}
	if !math.IsNaN(signal[32]) || math.IsNaN(signal[33]) {
		t.Errorf("signal defined from index 33, got %v %v", signal[32], signal[33])
	}
	if !near(hist[39], macd[39]-signal[39]) {
		t.Errorf("hist mismatch")
	}
}

func TestComputeOmitsUndefinedAndEncodes(t *testing.T) {
	p := models.MQuotePayload{Symbol: "X", Duration: "1d"}
	for i := 0; i < 30; i++ {
		c := 100 + float64(i%5)
		p.Historical = append(p.Historical, models.MHistoricalPoint{
			Time: int64(i) * 1000, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10, Price: c,
		})
	}

	r := Compute(p)
	if len(r.SMA20) != 11 || len(r.SMA50) != 0 || len(r.OBV) != 30 {
		t.Errorf("lengths sma20=%d sma50=%d obv=%d", len(r.SMA20), len(r.SMA50), len(r.OBV))
	}
	if r.Levels == nil || !near(r.Levels.Pivot, p.Historical[29].Close) {
		t.Errorf("levels = %+v", r.Levels)
	}
	// open equals close on every bar
	if len(r.CDLDoji) != 30 || r.CDLDoji[0].Value != 100 || len(r.CDLEngulfing) != 29 {
		t.Errorf("pattern lengths doji=%d engulfing=%d", len(r.CDLDoji), len(r.CDLEngulfing))
	}
	if _, err := json.Marshal(r); err != nil {
		t.Errorf("report must encode: %v", err)
	}

	empty := Compute(models.MQuotePayload{Symbol: "Y", Historical: []models.MHistoricalPoint{}})
	if empty.Levels != nil || len(empty.RSI14) != 0 {
		t.Errorf("empty report = %+v", empty)
	}
}

func TestMeanStdAndZScore(t *testing.T) {
	mean, sd := MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if !near(mean, 5) || !near(sd, 2) {
		t.Errorf("MeanStd = %v, %v", mean, sd)
	}
	if m, s := MeanStd(nil); m != 0 || s != 0 {
		t.Errorf("empty = %v, %v", m, s)
	}
	if z := ZScore(9, 5, 2); !near(z, 2) {
		t.Errorf("ZScore = %v", z)
	}
	if z := ZScore(9, 5, 0); z != 0 {
		t.Errorf("flat ZScore = %v", z)
	}
}

func TestVolumeRatio(t *testing.T) {
	tests := []struct {
		name    string
		volumes []float64
		want    float64
	}{
		{"spike", []float64{10, 10, 30}, 3},
		{"single", []float64{10}, 1},
		{"no history volume", []float64{0, 0, 0}, 1},
		{"volume from nothing", []float64{0, 0, 4}, 4},
	}
	for _, tt := range tests {
		if got := VolumeRatio(tt.volumes); !near(got, tt.want) {
			t.Errorf("%s: VolumeRatio = %v, want %v", tt.name, got, tt.want)
		}
	}
}
