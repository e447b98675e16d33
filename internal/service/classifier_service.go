package service

import (
	"math"
	"sort"
)

// BucketName setup 名称
type BucketName string

const (
	BucketL15ST1  BucketName = "L_15_ST1"
	BucketL15ST2  BucketName = "L_15_ST2"
	BucketL5ST1   BucketName = "L_5_ST1"
	BucketL5ST2   BucketName = "L_5_ST2"
	BucketS15     BucketName = "S_15"
	BucketS5      BucketName = "S_5"
	BucketD1W     BucketName = "D1_W"
	BucketD1D     BucketName = "D1_D"
	BucketD1L1    BucketName = "D1_L1"
	BucketD1L2    BucketName = "D1_L2"
	BucketD1L4    BucketName = "D1_L4"
	BucketD1L5    BucketName = "D1_L5"
	BucketD1N1    BucketName = "D1_N1"
	BucketD1N2BB1 BucketName = "D1_N2_BB1"
	BucketD1N2BB2 BucketName = "D1_N2_BB2"
	BucketD1N2BB3 BucketName = "D1_N2_BB3"
	BucketD1N3    BucketName = "D1_N3"
	BucketD1B1    BucketName = "D1_B1"
	BucketD1B2    BucketName = "D1_B2"
	BucketD1B3    BucketName = "D1_B3"
)

// Pool 按 RSI 降序排列后的切片 [Offset, Offset+Limit)，Limit 为 0 表示到末尾
type Pool struct {
	Offset int
	Limit  int
}

// All 全部交易对
var All = Pool{}

// Top 前 n 个
func Top(n int) Pool {
	return Pool{Limit: n}
}

func (p Pool) slice(sorted []*Snapshot) []*Snapshot {
	if p.Offset >= len(sorted) {
		return nil
	}
	end := len(sorted)
	if p.Limit > 0 && p.Offset+p.Limit < end {
		end = p.Offset + p.Limit
	}
	return sorted[p.Offset:end]
}

// Candidate 规则的输入
type Candidate struct {
	*Snapshot
	Rank RankInfo
}

// Rule 一个 setup 的筛选规则
type Rule struct {
	Name  BucketName
	Pool  Pool
	Match func(c Candidate) bool
}

// Buckets setup 名称到交易对列表
type Buckets map[BucketName][]string

// Rules 全部 setup 规则，顺序即输出顺序
var Rules = []Rule{
	{BucketL15ST1, Top(5), func(c Candidate) bool {
		return c.Close < 0.09 && c.RSI < 80 && c.SMA50.Up
	}},
	{BucketL15ST2, Top(5), func(c Candidate) bool {
		return c.Close < 0.09 && c.RSI < 80 && c.SMARSI < 70 && c.SMA50.Up && c.SMA200.Up
	}},
	{BucketL5ST1, Top(5), func(c Candidate) bool {
		return between(c.Close, -0.08, 0.06) && c.RSI < 65 && c.SMA50.Up
	}},
	{BucketL5ST2, Top(10), func(c Candidate) bool {
		return between(c.Close, -0.08, 0.06) && c.RSI > 65 &&
			c.SMA50.Up && c.SMA100.Up && c.SMA200.Up && c.MAStackUp
	}},
	{BucketS15, Top(30), func(c Candidate) bool {
		return c.Close < -0.03 && between(c.RSI, 25, 40) &&
			c.SMA50.Down && c.SMA100.Down && c.MAStackDown
	}},
	{BucketS5, Top(20), func(c Candidate) bool {
		return between(c.RSI, 25, 40) && c.SMA50.Down && c.SMA100.Down
	}},
	{BucketD1W, Top(20), func(c Candidate) bool {
		return c.RSI > 80 && c.SMARSI < 75 && c.RSI-c.SMARSI > 15 &&
			c.SMA50.Down && between(c.Close, 0.03, 0.6)
	}},
	{BucketD1D, Top(10), func(c Candidate) bool {
		return c.RSI > 80 && c.SMARSI < 75 && between(c.RSI-c.SMARSI, 0, 20) &&
			c.SMA50.Down && between(c.Close, 0.03, 0.6)
	}},
	{BucketD1L1, All, func(c Candidate) bool {
		return between(c.RSI, 65, 95) && between(c.SMARSI, 60, 70)
	}},
	{BucketD1L2, All, func(c Candidate) bool {
		return between(c.RSI, 65, 75) && between(c.Rank.Quantile, 0.06, 0.45)
	}},
	{BucketD1L4, All, func(c Candidate) bool {
		return between(c.RSI, 65, 95) && (between(c.SMARSI, 75, 80) || c.SMARSI < 60) && c.DiffATH > -0.25
	}},
	{BucketD1L5, All, func(c Candidate) bool {
		return between(c.RSI, 70, 90) && c.DaysSinceATH != nil && *c.DaysSinceATH < 5
	}},
	{BucketD1N1, All, func(c Candidate) bool {
		return between(c.RSI, 55, 65) &&
			c.SMA7.Up && c.SMA20.Up && c.SMA50.Up && c.SMA100.Up && !c.SMA200.Up
	}},
	{BucketD1N2BB1, All, func(c Candidate) bool {
		return between(c.RSI, 55, 65) && c.BB10.LowerHalf && c.BB20.UpperHalf && c.BB50.AboveMiddle
	}},
	{BucketD1N2BB2, All, func(c Candidate) bool {
		return between(c.RSI, 57, 65) && c.BB10.AboveUpper && c.BB20.UpperHalf && c.BB50.AboveMiddle
	}},
	{BucketD1N2BB3, All, func(c Candidate) bool {
		return between(c.RSI, 30, 65) && c.BB10.LowerHalf && c.BB20.LowerHalf && c.BB50.AboveMiddle
	}},
	{BucketD1N3, All, func(c Candidate) bool {
		return between(c.RSI, 60, 65) && c.DiffATH > -0.08
	}},
	{BucketD1B1, All, func(c Candidate) bool {
		return c.RSI < 28 && c.SMARSI > 30
	}},
	{BucketD1B2, All, func(c Candidate) bool {
		return c.RSI < 28 && c.BB10.BelowLower && c.BB20.BelowLower && c.BB50.BelowLower
	}},
	{BucketD1B3, All, func(c Candidate) bool {
		return c.RSI < 28 && c.Rank.QuantileAsc > 0.12
	}},
}

// BucketNames 全部 setup 名称，按输出顺序
func BucketNames() []BucketName {
	names := make([]BucketName, len(Rules))
	for i, rule := range Rules {
		names[i] = rule.Name
	}
	return names
}

// ClassifierService setup 分类
type ClassifierService struct {
	rules []Rule
}

func NewClassifierService() *ClassifierService {
	return &ClassifierService{rules: Rules}
}

// Classify 对本周期全部快照逐条规则筛选。每个 setup 都会出现在结果中，没有命中时为空列表。
// 同一输入多次调用结果完全一致。
func (s *ClassifierService) Classify(snapshots []*Snapshot, ranking Ranking) Buckets {
	ranks := ranking.BySymbol()
	sorted := SortByRSI(snapshots)

	buckets := make(Buckets, len(s.rules))
	for _, rule := range s.rules {
		members := make([]string, 0)
		for _, snap := range rule.Pool.slice(sorted) {
			if rule.Match(Candidate{Snapshot: snap, Rank: ranks[snap.Symbol]}) {
				members = append(members, snap.Symbol)
			}
		}
		buckets[rule.Name] = members
	}
	return buckets
}

// SortByRSI 按 RSI 降序稳定排序，RSI 相同保持处理顺序，RSI 不确定的排在最后
func SortByRSI(snapshots []*Snapshot) []*Snapshot {
	sorted := make([]*Snapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].RSI, sorted[j].RSI
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		return a > b
	})
	return sorted
}

func between(v, low, high float64) bool {
	return v > low && v < high
}
