package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dushixiang/athscan/internal/config"
	"github.com/dushixiang/athscan/internal/models"
	"github.com/dushixiang/athscan/internal/repo"
	"github.com/dushixiang/athscan/pkg/exchange"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	return openTestDB(t, ":memory:")
}

// newFileTestDB 与运行时一样使用文件数据库
func newFileTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return openTestDB(t, filepath.Join(t.TempDir(), "athscan.db"))
}

func openTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repo.PrepareDB(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		models.HistoricalHigh{}, models.ScanRun{}, models.SetupList{}, models.RSIReading{},
	))
	return db
}

func newTestConfig() *config.Config {
	conf := &config.Config{}
	conf.Normalize()
	return conf
}

// buildKlines 按收盘价序列生成日K，开盘价为前一根收盘价，最高价比收盘价高1%
func buildKlines(closes []float64) []*exchange.Kline {
	klines := make([]*exchange.Kline, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		openTime := day0.AddDate(0, 0, i)
		klines[i] = &exchange.Kline{
			OpenTime:  openTime,
			Open:      open,
			High:      max(open, c) * 1.01,
			Low:       min(open, c) * 0.99,
			Close:     c,
			Volume:    1000 + float64(i%7)*10,
			CloseTime: openTime.Add(24*time.Hour - time.Millisecond),
		}
	}
	return klines
}

func linearCloses(n int, start, step float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + step*float64(i)
	}
	return closes
}

// zigzagCloses 围绕 base 上下波动，带一点趋势
func zigzagCloses(n int, base, amplitude, drift float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		swing := amplitude
		if i%2 == 1 {
			swing = -amplitude * 0.8
		}
		closes[i] = base + drift*float64(i) + swing
	}
	return closes
}

type fakeMarket struct {
	mu      sync.Mutex
	klines  map[string][]*exchange.Kline
	errs    map[string]error
	symbols []string
	fetched []string
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		klines: make(map[string][]*exchange.Kline),
		errs:   make(map[string]error),
	}
}

func (f *fakeMarket) add(symbol string, klines []*exchange.Kline) {
	f.klines[symbol] = klines
	f.symbols = append(f.symbols, symbol)
}

func (f *fakeMarket) GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*exchange.Kline, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, symbol)
	f.mu.Unlock()

	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	klines, ok := f.klines[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %s", symbol)
	}
	if len(klines) > limit {
		klines = klines[len(klines)-limit:]
	}
	return klines, nil
}

func (f *fakeMarket) GetPerpetualSymbols(ctx context.Context) ([]string, error) {
	return f.symbols, nil
}

func (f *fakeMarket) wasFetched(symbol string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.fetched {
		if s == symbol {
			return true
		}
	}
	return false
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(chatId, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

type testStack struct {
	db         *gorm.DB
	market     *fakeMarket
	notifier   *recordingNotifier
	highs      *HighService
	indicators *IndicatorService
	publisher  *PublishService
	scan       *ScanService
}

func newTestStack(t *testing.T, conf *config.Config) *testStack {
	t.Helper()
	return newTestStackWithDB(t, conf, newTestDB(t))
}

func newTestStackWithDB(t *testing.T, conf *config.Config, db *gorm.DB) *testStack {
	t.Helper()

	logger := zap.NewNop()
	market := newFakeMarket()
	notifier := &recordingNotifier{}

	highs := NewHighService(db, conf, logger)
	indicators := NewIndicatorService(conf, highs)
	publisher := NewPublishService(db, conf, notifier, logger)
	scan := NewScanService(db, conf,
		NewMarketService(market, conf, logger),
		indicators,
		NewRankService(),
		NewClassifierService(),
		publisher,
		NewMetrics(),
		logger,
	)

	return &testStack{
		db:         db,
		market:     market,
		notifier:   notifier,
		highs:      highs,
		indicators: indicators,
		publisher:  publisher,
		scan:       scan,
	}
}
