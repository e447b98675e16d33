package ta

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// RSI Wilder RSI。平均涨跌幅以第一个差值为种子，之后按 avg = avg*(1-1/n) + v/n 平滑。
// 前 period 个位置不足一个完整周期，返回 NaN。
func RSI(closes []float64, period int) []float64 {
	out := NaNs(len(closes))
	if period <= 0 || len(closes) < 2 {
		return out
	}

	alpha := 1.0 / float64(period)
	var avgGain, avgLoss float64
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain := math.Max(delta, 0)
		loss := math.Max(-delta, 0)
		if i == 1 {
			avgGain, avgLoss = gain, loss
		} else {
			avgGain = avgGain*(1-alpha) + gain*alpha
			avgLoss = avgLoss*(1-alpha) + loss*alpha
		}
		if i < period {
			continue
		}
		// avgLoss 为 0 时 rs=+Inf，RSI=100；涨跌均为 0 时保持 NaN
		if avgGain == 0 && avgLoss == 0 {
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// SMA 简单移动平均。输入开头的 NaN 会被跳过，不足一个窗口的位置为 NaN。
func SMA(values []float64, period int) []float64 {
	out := NaNs(len(values))
	start := firstValid(values)
	if period <= 0 || start < 0 || len(values)-start < period {
		return out
	}

	sma := talib.Sma(values[start:], period)
	for i := period - 1; i < len(sma); i++ {
		out[start+i] = sma[i]
	}
	return out
}

// BollingerBands 布林带，中轨为 SMA，上下轨为中轨 ± multiplier × 总体标准差。
// 标准差按窗口直接计算，带宽与价格量级无关。
func BollingerBands(closes []float64, period int, multiplier float64) (upper, middle, lower []float64) {
	upper, lower = NaNs(len(closes)), NaNs(len(closes))
	if period <= 1 || len(closes) < period {
		return upper, NaNs(len(closes)), lower
	}

	middle = SMA(closes, period)
	for i := period - 1; i < len(closes); i++ {
		mean := middle[i]
		if math.IsNaN(mean) {
			continue
		}
		var sum float64
		for _, c := range closes[i-period+1 : i+1] {
			d := c - mean
			sum += d * d
		}
		sd := math.Sqrt(sum / float64(period))
		upper[i] = mean + multiplier*sd
		lower[i] = mean - multiplier*sd
	}
	return upper, middle, lower
}

// ClosePercentile 下标 i 之前 window 个收盘价中严格低于 closes[i] 的比例，保留4位小数。
// 之前不足 window 个时使用全部已有数据，分母仍为 window。
func ClosePercentile(closes []float64, i, window int) float64 {
	if i < 0 || i >= len(closes) || window <= 0 {
		return math.NaN()
	}
	start := i - window
	if start < 0 {
		start = 0
	}
	lower := 0
	for _, c := range closes[start:i] {
		if c < closes[i] {
			lower++
		}
	}
	return Round(float64(lower)/float64(window), 4)
}

// Ratio a/b，b 不可用或为 0 时返回 NaN
func Ratio(a, b float64) float64 {
	if !Valid(a) || !Valid(b) || b == 0 {
		return math.NaN()
	}
	return a / b
}

// Round 四舍五入到 places 位小数
func Round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func firstValid(values []float64) int {
	for i, v := range values {
		if !math.IsNaN(v) {
			return i
		}
	}
	return -1
}
