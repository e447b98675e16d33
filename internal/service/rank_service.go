package service

import (
	"math"

	"github.com/dushixiang/athscan/pkg/ta"
)

// RankInfo 单个交易对在本周期的 RSI 排名
type RankInfo struct {
	Symbol      string  `json:"symbol"`
	Seq         int     `json:"seq"`
	RSI         float64 `json:"rsi"`
	Rank        int     `json:"rank"`         // 降序密集排名，RSI 最大为 1
	RankAsc     int     `json:"rank_asc"`     // 升序密集排名，RSI 最小为 1
	Quantile    float64 `json:"quantile"`     // Rank / count
	QuantileAsc float64 `json:"quantile_asc"` // RankAsc / count
}

// Ranking 按处理顺序排列的排名结果
type Ranking []RankInfo

// BySymbol 按交易对索引
func (r Ranking) BySymbol() map[string]RankInfo {
	m := make(map[string]RankInfo, len(r))
	for _, info := range r {
		m[info.Symbol] = info
	}
	return m
}

// RankService 跨交易对的 RSI 排名
type RankService struct{}

func NewRankService() *RankService {
	return &RankService{}
}

// Rank 必须在本周期全部快照收集完成后调用。RSI 不确定的交易对名次为 0，分位数为 NaN。
func (s *RankService) Rank(snapshots []*Snapshot) Ranking {
	values := make([]float64, len(snapshots))
	for i, snap := range snapshots {
		values[i] = snap.RSI
	}

	desc := ta.DenseRank(values, true)
	asc := ta.DenseRank(values, false)
	count := float64(len(snapshots))

	ranking := make(Ranking, len(snapshots))
	for i, snap := range snapshots {
		info := RankInfo{
			Symbol:      snap.Symbol,
			Seq:         snap.Seq,
			RSI:         snap.RSI,
			Rank:        desc[i],
			RankAsc:     asc[i],
			Quantile:    math.NaN(),
			QuantileAsc: math.NaN(),
		}
		if info.Rank > 0 {
			info.Quantile = float64(info.Rank) / count
			info.QuantileAsc = float64(info.RankAsc) / count
		}
		ranking[i] = info
	}
	return ranking
}
