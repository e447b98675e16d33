package ta

import "math"

// Last 返回倒数第 position+1 个值，越界返回 NaN
func Last(s []float64, position int) float64 {
	return At(s, len(s)-1-position)
}

// At 返回下标 i 的值，越界返回 NaN
func At(s []float64, i int) float64 {
	if i < 0 || i >= len(s) {
		return math.NaN()
	}
	return s[i]
}

// Rising s[i] > s[i-1]，任一值不确定时为 false
func Rising(s []float64, i int) bool {
	return At(s, i) > At(s, i-1)
}

// Falling s[i] < s[i-1]，任一值不确定时为 false
func Falling(s []float64, i int) bool {
	return At(s, i) < At(s, i-1)
}

// HighestIndex 返回最近 n 个值中最大值的下标（相同取最早），空切片返回 -1
func HighestIndex(values []float64, period int) int {
	if len(values) == 0 {
		return -1
	}
	start := len(values) - period
	if start < 0 {
		start = 0
	}
	idx := start
	for i := start + 1; i < len(values); i++ {
		if values[i] > values[idx] {
			idx = i
		}
	}
	return idx
}

// NaNs 返回长度为 n 的 NaN 序列
func NaNs(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Valid 值是否可用于比较
func Valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
