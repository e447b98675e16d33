package ta

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixtureCloses = []float64{
	44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10, 45.42, 45.84, 46.08,
	45.89, 46.03, 45.61, 46.28, 46.28, 46.00, 46.03, 46.41, 46.22, 45.64,
	46.21, 46.25, 45.71, 46.45, 45.78, 45.35, 44.03, 44.18, 44.22, 44.57,
}

// wilderReference 独立的逐步计算，只用于对照
func wilderReference(closes []float64, period int) []float64 {
	gains := make([]float64, 0, len(closes))
	losses := make([]float64, 0, len(closes))
	for i := 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains = append(gains, d)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -d)
		}
	}

	out := make([]float64, len(closes))
	out[0] = math.NaN()
	g, l := gains[0], losses[0]
	for j := range gains {
		if j > 0 {
			g = (g*float64(period-1) + gains[j]) / float64(period)
			l = (l*float64(period-1) + losses[j]) / float64(period)
		}
		if j+1 < period {
			out[j+1] = math.NaN()
			continue
		}
		out[j+1] = 100 - 100/(1+g/l)
	}
	return out
}

func TestRSI_MatchesWilderReference(t *testing.T) {
	got := RSI(fixtureCloses, 14)
	want := wilderReference(fixtureCloses, 14)
	require.Len(t, got, len(want))

	for i := range want {
		if math.IsNaN(want[i]) {
			assert.True(t, math.IsNaN(got[i]), "index %d should be indeterminate", i)
			continue
		}
		assert.InDelta(t, want[i], got[i], 1e-6, "index %d", i)
	}
}

func TestRSI_Bounds(t *testing.T) {
	rising := make([]float64, 30)
	for i := range rising {
		rising[i] = float64(100 + i)
	}
	assert.Equal(t, 100.0, Last(RSI(rising, 14), 0))

	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 10
	}
	assert.True(t, math.IsNaN(Last(RSI(flat, 14), 0)))

	assert.True(t, math.IsNaN(Last(RSI([]float64{1, 2, 3}, 14), 0)))
}

func TestSMA(t *testing.T) {
	sma := SMA([]float64{1, 2, 3, 4, 5}, 3)
	assert.True(t, math.IsNaN(sma[0]))
	assert.True(t, math.IsNaN(sma[1]))
	assert.InDelta(t, 2.0, sma[2], 1e-9)
	assert.InDelta(t, 3.0, sma[3], 1e-9)
	assert.InDelta(t, 4.0, sma[4], 1e-9)
}

func TestSMA_SkipsLeadingNaN(t *testing.T) {
	nan := math.NaN()
	sma := SMA([]float64{nan, nan, 2, 4, 6, 8}, 2)
	assert.True(t, math.IsNaN(sma[2]))
	assert.InDelta(t, 3.0, sma[3], 1e-9)
	assert.InDelta(t, 5.0, sma[4], 1e-9)
	assert.InDelta(t, 7.0, sma[5], 1e-9)
}

func TestSMA_ShortInput(t *testing.T) {
	sma := SMA([]float64{1, 2}, 7)
	for _, v := range sma {
		assert.True(t, math.IsNaN(v))
	}
}

func TestBollingerBands(t *testing.T) {
	closes := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	upper, middle, lower := BollingerBands(closes, 8, 2)

	for i := 0; i < 7; i++ {
		assert.True(t, math.IsNaN(middle[i]))
	}
	// 总体标准差为 2
	assert.InDelta(t, 5.0, middle[7], 1e-9)
	assert.InDelta(t, 9.0, upper[7], 1e-9)
	assert.InDelta(t, 1.0, lower[7], 1e-9)
}

func TestBollingerBands_ScaleInvariant(t *testing.T) {
	width := func(scale float64) float64 {
		closes := make([]float64, len(fixtureCloses))
		for i, c := range fixtureCloses {
			closes[i] = c * scale
		}
		upper, middle, _ := BollingerBands(closes, 20, 2)
		last := len(closes) - 1
		return (upper[last] - middle[last]) / middle[last]
	}

	unit := width(1)
	require.Greater(t, unit, 0.0)
	assert.InDelta(t, unit, width(1e-5), 1e-9)
	assert.InDelta(t, unit, width(1e-8), 1e-9)
	assert.InDelta(t, unit, width(1e4), 1e-9)
}

func TestClosePercentile(t *testing.T) {
	closes := []float64{1, 5, 3, 2, 4}

	// 前4个中 1,3,2 低于 4
	assert.Equal(t, 0.75, ClosePercentile(closes, 4, 4))
	// 窗口 2：3,2 都低于 4
	assert.Equal(t, 1.0, ClosePercentile(closes, 4, 2))
	// 历史不足窗口时分母仍为窗口
	assert.Equal(t, 0.3333, ClosePercentile(closes, 2, 3))
	assert.Equal(t, 0.0, ClosePercentile(closes, 0, 30))
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 2.0, Ratio(4, 2))
	assert.True(t, math.IsNaN(Ratio(4, 0)))
	assert.True(t, math.IsNaN(Ratio(4, math.NaN())))
}
