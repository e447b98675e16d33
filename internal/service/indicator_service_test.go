package service

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestIndicatorService(t *testing.T) *IndicatorService {
	conf := newTestConfig()
	return NewIndicatorService(conf, NewHighService(newTestDB(t), conf, zap.NewNop()))
}

func TestCalculate_IgnoresProvisionalCandle(t *testing.T) {
	s := &IndicatorService{minKlines: 15}
	closes := zigzagCloses(120, 100, 3, 0.2)

	base := s.Calculate(buildKlines(closes), nil)

	changed := buildKlines(closes)
	last := changed[len(changed)-1]
	last.Close *= 3
	last.High *= 3
	last.Volume *= 50
	other := s.Calculate(changed, nil)

	assert.Equal(t, base.Date, other.Date)
	assert.Equal(t, base.Price, other.Price)
	assert.Equal(t, base.Close, other.Close)
	assert.Equal(t, base.RSI, other.RSI)
	assert.Equal(t, base.SMARSI, other.SMARSI)
	assert.Equal(t, base.SMA50, other.SMA50)
	assert.Equal(t, base.SMA100, other.SMA100)
	assert.Equal(t, base.BB20, other.BB20)
	assert.Equal(t, base.VolumeRatios[7], other.VolumeRatios[7])
	assert.Equal(t, base.CloseRanks[90], other.CloseRanks[90])

	// 评估的是倒数第二根
	assert.Equal(t, closes[len(closes)-2], base.Price)
	assert.True(t, day0.AddDate(0, 0, len(closes)-2).Equal(base.Date))
}

func TestCalculate_RisingSeries(t *testing.T) {
	s := &IndicatorService{minKlines: 15}
	closes := linearCloses(230, 100, 1)

	snap := s.Calculate(buildKlines(closes), nil)

	assert.Equal(t, 100.0, snap.RSI)
	for _, trend := range []TrendSMA{snap.SMA7, snap.SMA20, snap.SMA50, snap.SMA100, snap.SMA200} {
		assert.True(t, trend.Up, "sma%d", trend.Window)
		assert.False(t, trend.Down, "sma%d", trend.Window)
	}
	assert.True(t, snap.MAStackUp)
	assert.False(t, snap.MAStackDown)

	// 收盘价高于所有中轨
	assert.True(t, snap.BB10.AboveMiddle)
	assert.True(t, snap.BB50.AboveMiddle)
	assert.False(t, snap.BB20.LowerHalf)

	// 之前的收盘价都更低
	assert.Equal(t, 1.0, snap.CloseRanks[30])
	assert.Equal(t, 1.0, snap.CloseRanks[150])

	price := closes[len(closes)-2]
	open := closes[len(closes)-3]
	assert.InDelta(t, (price-open)/open, snap.Close, 1e-12)

	assert.Nil(t, snap.DaysSinceATH)
	assert.True(t, math.IsNaN(snap.DiffATH))
}

func TestCalculate_FallingSeries(t *testing.T) {
	s := &IndicatorService{minKlines: 15}
	closes := linearCloses(230, 400, -1)

	snap := s.Calculate(buildKlines(closes), nil)

	assert.Equal(t, 0.0, snap.RSI)
	assert.True(t, snap.SMA50.Down)
	assert.True(t, snap.SMA100.Down)
	assert.False(t, snap.SMA50.Up)
	assert.True(t, snap.MAStackDown)
	assert.False(t, snap.MAStackUp)
	assert.True(t, snap.BB20.LowerHalf)
	assert.Equal(t, 0.0, snap.CloseRanks[30])
	assert.Less(t, snap.Close, 0.0)
}

func TestCalculate_ShortHistoryIsIndeterminate(t *testing.T) {
	s := &IndicatorService{minKlines: 15}
	closes := linearCloses(40, 100, 1)

	snap := s.Calculate(buildKlines(closes), nil)

	assert.True(t, math.IsNaN(snap.SMA50.Value))
	assert.False(t, snap.SMA50.Up)
	assert.False(t, snap.SMA50.Down)
	assert.True(t, math.IsNaN(snap.SMA200.Value))
	assert.False(t, snap.MAStackUp)
	assert.False(t, snap.MAStackDown)

	assert.False(t, snap.BB50.AboveMiddle)
	assert.False(t, snap.BB50.BelowLower)
	assert.True(t, snap.BB20.AboveMiddle)

	// 39根已收盘，之前只有38根，分母仍为窗口大小
	assert.Equal(t, 1.0, snap.CloseRanks[30])
	assert.Equal(t, 0.4222, snap.CloseRanks[90])
}

func TestCalculate_VolumeFlag(t *testing.T) {
	s := &IndicatorService{minKlines: 15}
	klines := buildKlines(zigzagCloses(60, 100, 2, 0))
	for _, k := range klines {
		k.Volume = 100
	}
	klines[len(klines)-2].Volume = 500

	snap := s.Calculate(klines, nil)
	assert.True(t, snap.VolumeFlag)
	assert.InDelta(t, 500/((100*6+500)/7.0), snap.VolumeRatios[7], 1e-9)

	klines[len(klines)-2].Volume = 100
	snap = s.Calculate(klines, nil)
	assert.False(t, snap.VolumeFlag)
	assert.InDelta(t, 1.0, snap.VolumeRatios[20], 1e-9)
}

func TestCalculate_ATHFields(t *testing.T) {
	s := &IndicatorService{minKlines: 15}
	klines := buildKlines(linearCloses(50, 100, 1))
	evaluated := klines[len(klines)-2]

	snap := s.Calculate(klines, &ATH{MaxHigh: 200, Date: evaluated.Day().AddDate(0, 0, -10)})

	require.NotNil(t, snap.DaysSinceATH)
	assert.Equal(t, 10, *snap.DaysSinceATH)
	assert.InDelta(t, (evaluated.Close-200)/200, snap.DiffATH, 1e-12)
	assert.Equal(t, 200.0, snap.MaxHigh)
}

func TestEvaluate_InsufficientHistory(t *testing.T) {
	s := newTestIndicatorService(t)

	_, err := s.Evaluate(context.Background(), "SHORTUSDT", buildKlines(linearCloses(10, 1, 0.1)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	record, err := s.highService.Get(context.Background(), "SHORTUSDT")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestEvaluate_UpdatesATHBeforeSnapshot(t *testing.T) {
	s := newTestIndicatorService(t)
	ctx := context.Background()
	closes := linearCloses(70, 100, 1)

	// 首次：用已收盘K线初始化，评估K线本身就是最高点
	first, err := s.Evaluate(ctx, "ATHUSDT", buildKlines(closes))
	require.NoError(t, err)
	assert.False(t, first.NewHigh)
	require.NotNil(t, first.DaysSinceATH)
	assert.Equal(t, 0, *first.DaysSinceATH)
	assert.InDelta(t, (first.Price-first.MaxHigh)/first.MaxHigh, first.DiffATH, 1e-12)

	// 新的一天创出新高
	closes = append(closes, closes[len(closes)-1]+5)
	second, err := s.Evaluate(ctx, "ATHUSDT", buildKlines(closes))
	require.NoError(t, err)
	assert.True(t, second.NewHigh)
	assert.Equal(t, 0, *second.DaysSinceATH)
	assert.Greater(t, second.MaxHigh, first.MaxHigh)

	// 回落后最高价和日期不变，中间未评估过的K线不计入
	closes = append(closes, 50, 50, 50)
	third, err := s.Evaluate(ctx, "ATHUSDT", buildKlines(closes))
	require.NoError(t, err)
	assert.False(t, third.NewHigh)
	assert.Equal(t, second.MaxHigh, third.MaxHigh)
	assert.Equal(t, 3, *third.DaysSinceATH)
	assert.Less(t, third.DiffATH, -0.5)
}

func TestEvaluate_SnapshotMatchesCalculate(t *testing.T) {
	s := newTestIndicatorService(t)
	klines := buildKlines(zigzagCloses(205, 50, 1.5, 0.05))

	snap, err := s.Evaluate(context.Background(), "MATCHUSDT", klines)
	require.NoError(t, err)

	pure := s.Calculate(klines, &ATH{MaxHigh: snap.MaxHigh, Date: *snap.ATHDate})
	assert.Equal(t, pure.RSI, snap.RSI)
	assert.Equal(t, pure.SMA200, snap.SMA200)
	assert.Equal(t, pure.DiffATH, snap.DiffATH)
	assert.Equal(t, *pure.DaysSinceATH, *snap.DaysSinceATH)
	assert.Equal(t, "MATCHUSDT", snap.Symbol)
}
