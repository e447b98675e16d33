package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dushixiang/athscan/internal/config"
	"github.com/dushixiang/athscan/internal/models"
	"github.com/dushixiang/athscan/internal/repo"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ErrCycleInProgress 已有扫描在执行
var ErrCycleInProgress = errors.New("scan cycle already in progress")

type symbolOutcome int

const (
	outcomeSkipped symbolOutcome = iota // 未处理
	outcomeAnalyzed
	outcomeExcluded
	outcomeInsufficient
)

// CycleResult 一次扫描的结果
type CycleResult struct {
	RunID     string      `json:"run_id"`
	Status    string      `json:"status"`
	Snapshots []*Snapshot `json:"-"`
	Ranking   Ranking     `json:"-"`
	Buckets   Buckets     `json:"buckets"`
	Analyzed  int         `json:"analyzed"`
	Excluded  int         `json:"excluded"`
	NewHighs  int         `json:"new_highs"`
}

// ScanService 扫描周期编排：并发计算指标，全部完成后排名、分类、发布
type ScanService struct {
	logger *zap.Logger
	conf   config.ScanConf

	scanRunRepo       *repo.ScanRunRepo
	marketService     *MarketService
	indicatorService  *IndicatorService
	rankService       *RankService
	classifierService *ClassifierService
	publishService    *PublishService
	metrics           *Metrics

	running sync.Mutex
}

// NewScanService 创建扫描服务
func NewScanService(
	db *gorm.DB,
	conf *config.Config,
	marketService *MarketService,
	indicatorService *IndicatorService,
	rankService *RankService,
	classifierService *ClassifierService,
	publishService *PublishService,
	metrics *Metrics,
	logger *zap.Logger,
) *ScanService {
	return &ScanService{
		logger:            logger,
		conf:              conf.Scan,
		scanRunRepo:       repo.NewScanRunRepo(db),
		marketService:     marketService,
		indicatorService:  indicatorService,
		rankService:       rankService,
		classifierService: classifierService,
		publishService:    publishService,
		metrics:           metrics,
	}
}

// RunCycle 执行一次完整扫描。ATH 存储失败时整个周期失败，不发布任何结果。
func (s *ScanService) RunCycle(ctx context.Context) (*CycleResult, error) {
	if !s.running.TryLock() {
		return nil, ErrCycleInProgress
	}
	defer s.running.Unlock()

	run := &models.ScanRun{
		ID:        ulid.Make().String(),
		Status:    models.ScanRunStatusRunning,
		Interval:  s.conf.Interval,
		StartedAt: time.Now(),
	}
	if err := s.scanRunRepo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create scan run: %w", err)
	}

	logger := s.logger.With(zap.String("run_id", run.ID))
	logger.Info("========== SCAN CYCLE START ==========",
		zap.String("interval", s.conf.Interval),
		zap.String("insufficient_history", string(s.conf.InsufficientHistory)))

	result, err := s.runCycle(ctx, logger, run)
	if err != nil {
		now := time.Now()
		run.Status = models.ScanRunStatusFailed
		run.Error = err.Error()
		run.FinishedAt = &now
		// 原 ctx 可能已取消
		if finishErr := s.scanRunRepo.Finish(context.WithoutCancel(ctx), run); finishErr != nil {
			logger.Error("failed to mark scan run failed", zap.Error(finishErr))
		}
		s.metrics.ObserveCycle(string(run.Status), run.Duration(), run.Analyzed, run.Excluded, run.Insufficient, run.NewHighs)
		logger.Error("========== SCAN CYCLE FAILED ==========", zap.Error(err))
		return nil, err
	}

	s.metrics.ObserveCycle(string(run.Status), run.Duration(), run.Analyzed, run.Excluded, run.Insufficient, run.NewHighs)
	s.metrics.ObserveBuckets(result.Buckets)

	logger.Info("========== SCAN CYCLE END ==========",
		zap.String("status", string(run.Status)),
		zap.Duration("duration", run.Duration()),
		zap.Int("universe", run.UniverseSize),
		zap.Int("analyzed", run.Analyzed),
		zap.Int("excluded", run.Excluded),
		zap.Int("insufficient", run.Insufficient),
		zap.Int("new_highs", run.NewHighs))
	return result, nil
}

func (s *ScanService) runCycle(ctx context.Context, logger *zap.Logger, run *models.ScanRun) (*CycleResult, error) {
	logger.Info("[STEP 1/5] Resolving symbol universe...")
	universe, err := s.marketService.Universe(ctx)
	if err != nil {
		return nil, fmt.Errorf("step 1 failed - resolve universe: %w", err)
	}
	run.UniverseSize = len(universe)

	logger.Info("[STEP 2/5] Evaluating symbols...",
		zap.Int("symbols", len(universe)),
		zap.Int("workers", s.conf.Workers))
	snapshots, aborted, err := s.evaluate(ctx, logger, run, universe)
	if err != nil {
		return nil, fmt.Errorf("step 2 failed - evaluate symbols: %w", err)
	}
	if aborted {
		run.Status = models.ScanRunStatusAborted
	} else {
		run.Status = models.ScanRunStatusCompleted
	}

	logger.Info("[STEP 3/5] Ranking RSI...", zap.Int("snapshots", len(snapshots)))
	ranking := s.rankService.Rank(snapshots)

	logger.Info("[STEP 4/5] Classifying setups...")
	buckets := s.publishService.Correct(s.classifierService.Classify(snapshots, ranking))

	logger.Info("[STEP 5/5] Publishing setups...")
	if err := s.publishService.Publish(ctx, run, buckets, ranking); err != nil {
		return nil, fmt.Errorf("step 5 failed - publish: %w", err)
	}

	return &CycleResult{
		RunID:     run.ID,
		Status:    string(run.Status),
		Snapshots: snapshots,
		Ranking:   ranking,
		Buckets:   buckets,
		Analyzed:  run.Analyzed,
		Excluded:  run.Excluded,
		NewHighs:  run.NewHighs,
	}, nil
}

// evaluate 并发计算每个交易对的快照，返回按处理顺序排列的结果。
// abort 策略下，第一个历史不足的交易对（按处理顺序）及之后的交易对全部排除。
func (s *ScanService) evaluate(ctx context.Context, logger *zap.Logger, run *models.ScanRun,
	universe []string) ([]*Snapshot, bool, error) {

	snapshots := make([]*Snapshot, len(universe))
	outcomes := make([]symbolOutcome, len(universe))
	abortPolicy := s.conf.InsufficientHistory == config.PolicyAbort

	var abortAt atomic.Int64
	abortAt.Store(math.MaxInt64)

	workers := s.conf.Workers
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, symbol := range universe {
		if int64(i) > abortAt.Load() {
			break
		}
		g.Go(func() error {
			if int64(i) > abortAt.Load() {
				return nil
			}

			snapshot, err := s.evaluateSymbol(gctx, symbol)
			switch {
			case err == nil:
				snapshot.Seq = i
				snapshots[i] = snapshot
				outcomes[i] = outcomeAnalyzed
			case errors.Is(err, ErrStoreFailure):
				logger.Error("historical high store failed", zap.String("symbol", symbol), zap.Error(err))
				return err
			case errors.Is(err, ErrInsufficientHistory):
				outcomes[i] = outcomeInsufficient
				logger.Warn("insufficient kline history", zap.String("symbol", symbol), zap.Error(err))
				if abortPolicy {
					lowerTo(&abortAt, int64(i))
				}
			default:
				outcomes[i] = outcomeExcluded
				logger.Warn("symbol excluded from cycle", zap.String("symbol", symbol), zap.Error(err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	cut := abortAt.Load()
	aborted := cut != math.MaxInt64
	result := make([]*Snapshot, 0, len(universe))
	for i, snapshot := range snapshots {
		if int64(i) >= cut {
			if outcomes[i] == outcomeInsufficient && int64(i) == cut {
				run.Insufficient++
			}
			continue
		}
		switch outcomes[i] {
		case outcomeAnalyzed:
			result = append(result, snapshot)
			run.Analyzed++
			if snapshot.NewHigh {
				run.NewHighs++
			}
		case outcomeInsufficient:
			run.Insufficient++
		}
	}
	run.Excluded = len(universe) - run.Analyzed - run.Insufficient

	if aborted {
		logger.Warn("cycle cut short by insufficient history",
			zap.String("symbol", universe[cut]),
			zap.Int("skipped", len(universe)-int(cut)-1))
	}
	return result, aborted, nil
}

func (s *ScanService) evaluateSymbol(ctx context.Context, symbol string) (*Snapshot, error) {
	klines, err := s.marketService.FetchKlines(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return s.indicatorService.Evaluate(ctx, symbol, klines)
}

func lowerTo(v *atomic.Int64, n int64) {
	for {
		cur := v.Load()
		if n >= cur || v.CompareAndSwap(cur, n) {
			return
		}
	}
}
