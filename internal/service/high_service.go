package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dushixiang/athscan/internal/config"
	"github.com/dushixiang/athscan/internal/models"
	"github.com/dushixiang/athscan/internal/repo"
	"github.com/dushixiang/athscan/pkg/exchange"
	"github.com/dushixiang/athscan/pkg/ta"
	"github.com/go-orz/orz"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrStoreFailure ATH存储读写失败，对整个扫描周期是致命错误
var ErrStoreFailure = errors.New("historical high store failure")

// HighService 历史最高价（ATH）存储服务
type HighService struct {
	logger *zap.Logger

	*orz.Service
	*repo.HistoricalHighRepo

	lookback int
	locks    sync.Map // symbol -> *sync.Mutex
}

// NewHighService 创建ATH存储服务
func NewHighService(db *gorm.DB, conf *config.Config, logger *zap.Logger) *HighService {
	lookback := conf.Scan.BootstrapLookback
	if lookback <= 0 {
		lookback = 60
	}
	return &HighService{
		logger:             logger,
		Service:            orz.NewService(db),
		HistoricalHighRepo: repo.NewHistoricalHighRepo(db),
		lookback:           lookback,
	}
}

// Get 查询ATH，未记录过的交易对返回 nil
func (s *HighService) Get(ctx context.Context, symbol string) (*models.HistoricalHigh, error) {
	m, err := s.HistoricalHighRepo.FindBySymbol(ctx, symbol)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get %s: %w", ErrStoreFailure, symbol, err)
	}
	return &m, nil
}

// List 全部ATH记录，按交易对排序
func (s *HighService) List(ctx context.Context) ([]models.HistoricalHigh, error) {
	highs, err := s.HistoricalHighRepo.FindAllOrderBySymbol(ctx)
	if err != nil {
		return nil, err
	}
	if highs == nil {
		highs = []models.HistoricalHigh{}
	}
	return highs, nil
}

// Bootstrap 首次记录交易对：取最近 lookback 根已收盘K线的最高价及其日期。
// 已存在记录时不做修改，返回已存储的记录。
func (s *HighService) Bootstrap(ctx context.Context, symbol string, closed []*exchange.Kline) (*models.HistoricalHigh, error) {
	if len(closed) == 0 {
		return nil, fmt.Errorf("no closed klines to bootstrap %s", symbol)
	}

	unlock := s.lock(symbol)
	defer unlock()

	var record models.HistoricalHigh
	err := s.Transaction(ctx, func(ctx context.Context) error {
		m, err := s.bootstrap(ctx, symbol, closed)
		if err != nil {
			return err
		}
		record = m
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(symbol, err)
	}
	return &record, nil
}

// UpsertMax 合并候选最高价：未记录过的交易对先用 closed 初始化（closed 为空时用候选值），之后 max_high 取较大值。
// 只有候选值严格大于已记录值时才更新 ath_date，返回候选值是否刷新了最高价。
func (s *HighService) UpsertMax(ctx context.Context, symbol string, high float64, date time.Time,
	closed []*exchange.Kline) (models.HistoricalHigh, bool, error) {

	if len(closed) == 0 {
		closed = []*exchange.Kline{{OpenTime: date, High: high}}
	}

	unlock := s.lock(symbol)
	defer unlock()

	var (
		record models.HistoricalHigh
		raised bool
	)
	err := s.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.bootstrap(ctx, symbol, closed); err != nil {
			return err
		}

		ok, err := s.HistoricalHighRepo.RaiseMax(ctx, symbol, high, exchange.TruncateDay(date))
		if err != nil {
			return fmt.Errorf("raise max: %w", err)
		}
		raised = ok

		record, err = s.HistoricalHighRepo.FindBySymbol(ctx, symbol)
		if err != nil {
			return fmt.Errorf("reload: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.HistoricalHigh{}, false, wrapStoreErr(symbol, err)
	}

	if raised {
		s.logger.Info("new all-time high",
			zap.String("symbol", symbol),
			zap.Float64("max_high", record.MaxHigh),
			zap.Time("ath_date", record.ATHDate))
	}
	return record, raised, nil
}

// bootstrap 必须在事务内调用
func (s *HighService) bootstrap(ctx context.Context, symbol string, closed []*exchange.Kline) (models.HistoricalHigh, error) {
	m, err := s.HistoricalHighRepo.FindBySymbol(ctx, symbol)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return m, fmt.Errorf("find: %w", err)
	}

	peak := highestKline(closed, s.lookback)
	if peak == nil {
		return m, fmt.Errorf("no closed klines to bootstrap %s", symbol)
	}

	m = models.HistoricalHigh{
		Symbol:  symbol,
		MaxHigh: peak.High,
		ATHDate: peak.Day(),
	}
	created, err := s.HistoricalHighRepo.CreateIfAbsent(ctx, &m)
	if err != nil {
		return m, fmt.Errorf("create: %w", err)
	}
	if !created {
		// 其他进程已写入
		return s.HistoricalHighRepo.FindBySymbol(ctx, symbol)
	}

	s.logger.Info("registered historical high",
		zap.String("symbol", symbol),
		zap.Float64("max_high", m.MaxHigh),
		zap.Time("ath_date", m.ATHDate),
		zap.Int("lookback", min(len(closed), s.lookback)))
	return m, nil
}

func (s *HighService) lock(symbol string) func() {
	v, _ := s.locks.LoadOrStore(symbol, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// highestKline 最近 lookback 根K线中最高价最大的一根（相同取最早）
func highestKline(klines []*exchange.Kline, lookback int) *exchange.Kline {
	idx := ta.HighestIndex(exchange.Highs(klines), lookback)
	if idx < 0 {
		return nil
	}
	return klines[idx]
}

func wrapStoreErr(symbol string, err error) error {
	if errors.Is(err, ErrStoreFailure) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreFailure, symbol, err)
}
