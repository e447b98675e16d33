package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dushixiang/athscan/internal/config"
	"github.com/dushixiang/athscan/pkg/exchange"
	"github.com/dushixiang/athscan/pkg/ta"
)

// ErrInsufficientHistory K线数量不足，按 scan.insufficient_history 处理
var ErrInsufficientHistory = errors.New("insufficient kline history")

const (
	rsiPeriod    = 14
	smaRSIPeriod = 14
)

var (
	trendWindows      = []int{7, 20, 50, 100, 200}
	volumeWindows     = []int{7, 14, 20}
	closeRankWindows  = []int{30, 90, 150}
	bollingerSettings = []struct {
		window     int
		multiplier float64
	}{
		{10, 1.5},
		{20, 2.0},
		{50, 2.5},
	}
)

// IndicatorService 技术指标计算服务
type IndicatorService struct {
	highService *HighService
	minKlines   int
}

// NewIndicatorService 创建技术指标服务
func NewIndicatorService(conf *config.Config, highService *HighService) *IndicatorService {
	minKlines := conf.Scan.MinKlines
	if minKlines < 3 {
		minKlines = 15
	}
	return &IndicatorService{
		highService: highService,
		minKlines:   minKlines,
	}
}

// TrendSMA 均线及其方向
type TrendSMA struct {
	Window int     `json:"window"`
	Value  float64 `json:"value"`
	Up     bool    `json:"up"`
	Down   bool    `json:"down"`
}

// BandPosition 收盘价相对布林带的位置
type BandPosition struct {
	Window      int     `json:"window"`
	Multiplier  float64 `json:"multiplier"`
	Upper       float64 `json:"upper"`
	Middle      float64 `json:"middle"`
	Lower       float64 `json:"lower"`
	AboveUpper  bool    `json:"above_upper"`  // close > upper
	AboveMiddle bool    `json:"above_middle"` // close > middle
	UpperHalf   bool    `json:"upper_half"`   // middle < close < upper
	LowerHalf   bool    `json:"lower_half"`   // close < middle
	BelowLower  bool    `json:"below_lower"`  // close < lower
}

// ATH 计算 Diff_ATH% 时使用的历史最高价
type ATH struct {
	MaxHigh float64
	Date    time.Time
}

// Snapshot 单个交易对在一个扫描周期的指标快照，基于最后一根已收盘K线
type Snapshot struct {
	Symbol string    `json:"symbol"`
	Seq    int       `json:"seq"`  // 处理顺序
	Date   time.Time `json:"date"` // 评估K线的日期
	Price  float64   `json:"price"`
	Close  float64   `json:"close"` // (close-open)/open

	RSI    float64 `json:"rsi"`
	SMARSI float64 `json:"sma_rsi"`

	SMA7   TrendSMA `json:"sma7"`
	SMA20  TrendSMA `json:"sma20"`
	SMA50  TrendSMA `json:"sma50"`
	SMA100 TrendSMA `json:"sma100"`
	SMA200 TrendSMA `json:"sma200"`

	MAStackUp   bool `json:"ma_stack_up"`   // SMA50 > SMA100 > SMA200
	MAStackDown bool `json:"ma_stack_down"` // SMA50 < SMA100 < SMA200

	BB10 BandPosition `json:"bb10"`
	BB20 BandPosition `json:"bb20"`
	BB50 BandPosition `json:"bb50"`

	VolumeRatios map[int]float64 `json:"volume_ratios"`
	VolumeFlag   bool            `json:"volume_flag"`
	CloseRanks   map[int]float64 `json:"close_ranks"`

	MaxHigh      float64    `json:"max_high"`
	ATHDate      *time.Time `json:"ath_date"`
	DiffATH      float64    `json:"diff_ath"`
	DaysSinceATH *int       `json:"days_since_ath"`
	NewHigh      bool       `json:"new_high"`
}

// Evaluate 更新ATH后计算指标快照。klines 最后一根视为未收盘，不参与任何计算。
func (s *IndicatorService) Evaluate(ctx context.Context, symbol string, klines []*exchange.Kline) (*Snapshot, error) {
	if len(klines) < s.minKlines {
		return nil, fmt.Errorf("%w: %s has %d klines, need %d", ErrInsufficientHistory, symbol, len(klines), s.minKlines)
	}

	closed := klines[:len(klines)-1]
	evaluated := closed[len(closed)-1]

	record, raised, err := s.highService.UpsertMax(ctx, symbol, evaluated.High, evaluated.Day(), closed)
	if err != nil {
		return nil, err
	}

	snapshot := s.Calculate(klines, &ATH{MaxHigh: record.MaxHigh, Date: record.ATHDate})
	snapshot.Symbol = symbol
	snapshot.NewHigh = raised
	return snapshot, nil
}

// Calculate 计算指标快照，不访问存储。ath 为 nil 时 ATH 相关字段不确定。
func (s *IndicatorService) Calculate(klines []*exchange.Kline, ath *ATH) *Snapshot {
	closed := klines
	if len(closed) > 0 {
		closed = closed[:len(closed)-1]
	}
	snapshot := &Snapshot{
		RSI:          math.NaN(),
		SMARSI:       math.NaN(),
		Close:        math.NaN(),
		Price:        math.NaN(),
		MaxHigh:      math.NaN(),
		DiffATH:      math.NaN(),
		VolumeRatios: make(map[int]float64, len(volumeWindows)),
		CloseRanks:   make(map[int]float64, len(closeRankWindows)),
	}
	if len(closed) == 0 {
		return snapshot
	}

	t := len(closed) - 1
	evaluated := closed[t]
	closes := exchange.Closes(closed)
	volumes := exchange.Volumes(closed)

	snapshot.Date = evaluated.Day()
	snapshot.Price = evaluated.Close
	snapshot.Close = ta.Ratio(evaluated.Close-evaluated.Open, evaluated.Open)

	rsi := ta.RSI(closes, rsiPeriod)
	snapshot.RSI = ta.At(rsi, t)
	snapshot.SMARSI = ta.At(ta.SMA(rsi, smaRSIPeriod), t)

	trends := make(map[int]TrendSMA, len(trendWindows))
	for _, w := range trendWindows {
		sma := ta.SMA(closes, w)
		trends[w] = TrendSMA{
			Window: w,
			Value:  ta.At(sma, t),
			Up:     ta.Rising(sma, t),
			Down:   ta.Falling(sma, t),
		}
	}
	snapshot.SMA7 = trends[7]
	snapshot.SMA20 = trends[20]
	snapshot.SMA50 = trends[50]
	snapshot.SMA100 = trends[100]
	snapshot.SMA200 = trends[200]
	snapshot.MAStackUp = snapshot.SMA50.Value > snapshot.SMA100.Value && snapshot.SMA100.Value > snapshot.SMA200.Value
	snapshot.MAStackDown = snapshot.SMA50.Value < snapshot.SMA100.Value && snapshot.SMA100.Value < snapshot.SMA200.Value

	bands := make([]BandPosition, len(bollingerSettings))
	for i, b := range bollingerSettings {
		upper, middle, lower := ta.BollingerBands(closes, b.window, b.multiplier)
		bands[i] = bandPosition(evaluated.Close, b.window, b.multiplier,
			ta.At(upper, t), ta.At(middle, t), ta.At(lower, t))
	}
	snapshot.BB10, snapshot.BB20, snapshot.BB50 = bands[0], bands[1], bands[2]

	snapshot.VolumeFlag = true
	for _, w := range volumeWindows {
		ratio := ta.Ratio(volumes[t], ta.At(ta.SMA(volumes, w), t))
		snapshot.VolumeRatios[w] = ratio
		if !(ratio > 1) {
			snapshot.VolumeFlag = false
		}
	}

	for _, w := range closeRankWindows {
		snapshot.CloseRanks[w] = ta.ClosePercentile(closes, t, w)
	}

	if ath != nil && ta.Valid(ath.MaxHigh) && ath.MaxHigh > 0 {
		athDate := exchange.TruncateDay(ath.Date)
		days := int(snapshot.Date.Sub(athDate).Hours() / 24)
		snapshot.MaxHigh = ath.MaxHigh
		snapshot.ATHDate = &athDate
		snapshot.DiffATH = ta.Ratio(evaluated.Close-ath.MaxHigh, ath.MaxHigh)
		snapshot.DaysSinceATH = &days
	}

	return snapshot
}

func bandPosition(price float64, window int, multiplier, upper, middle, lower float64) BandPosition {
	return BandPosition{
		Window:      window,
		Multiplier:  multiplier,
		Upper:       upper,
		Middle:      middle,
		Lower:       lower,
		AboveUpper:  price > upper,
		AboveMiddle: price > middle,
		UpperHalf:   price > middle && price < upper,
		LowerHalf:   price < middle,
		BelowLower:  price < lower,
	}
}
