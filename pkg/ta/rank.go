package ta

import (
	"math"
	"sort"
)

// DenseRank 密集排名：相同值共享名次，下一个不同值名次+1，不跳号。
// descending 为 true 时最大值排名为 1。NaN 不参与排名，名次为 0。
func DenseRank(values []float64, descending bool) []int {
	distinct := make([]float64, 0, len(values))
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		distinct = append(distinct, v)
	}

	if descending {
		sort.Sort(sort.Reverse(sort.Float64Slice(distinct)))
	} else {
		sort.Float64s(distinct)
	}

	rankOf := make(map[float64]int, len(distinct))
	for i, v := range distinct {
		rankOf[v] = i + 1
	}

	ranks := make([]int, len(values))
	for i, v := range values {
		ranks[i] = rankOf[v]
	}
	return ranks
}
