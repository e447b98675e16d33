package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dushixiang/athscan/internal/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ScanLoop 定时扫描调度器
type ScanLoop struct {
	config      config.ScanConf
	scanService *ScanService
	logger      *zap.Logger

	mu         sync.RWMutex
	startTime  time.Time
	iteration  int
	isRunning  bool
	lastResult *CycleResult
	lastError  string
	lastRunAt  time.Time
	stopChan   chan struct{}
	cron       *cron.Cron
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewScanLoop 创建扫描调度器
func NewScanLoop(config *config.Config, scanService *ScanService, logger *zap.Logger) *ScanLoop {
	return &ScanLoop{
		config:      config.Scan,
		scanService: scanService,
		logger:      logger,
		startTime:   time.Now(),
	}
}

// Start 启动定时扫描，阻塞直到 Stop 或 ctx 结束
func (t *ScanLoop) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return fmt.Errorf("scan loop is already running")
	}
	t.isRunning = true
	t.startTime = time.Now()
	t.ctx, t.cancel = context.WithCancel(ctx)
	t.cron = cron.New(cron.WithLocation(time.UTC))
	t.stopChan = make(chan struct{})
	loopCtx, scheduler, stopChan := t.ctx, t.cron, t.stopChan
	t.mu.Unlock()

	t.logger.Info("scan loop started",
		zap.String("cron_expression", t.config.Cron),
		zap.String("interval", t.config.Interval),
		zap.Int("workers", t.config.Workers))

	_, err := scheduler.AddFunc(t.config.Cron, func() {
		if _, err := t.RunNow(loopCtx); err != nil && !errors.Is(err, ErrCycleInProgress) {
			t.logger.Error("scheduled scan failed", zap.Error(err))
		}
	})
	if err != nil {
		t.mu.Lock()
		t.isRunning = false
		t.cancel()
		t.mu.Unlock()
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	scheduler.Start()

	if t.config.RunOnStart {
		go func() {
			if _, err := t.RunNow(loopCtx); err != nil {
				t.logger.Error("first scan failed", zap.Error(err))
			}
		}()
	}

	select {
	case <-stopChan:
		t.logger.Info("scan loop stopped by user")
		return nil
	case <-ctx.Done():
		t.logger.Info("scan loop stopped by context")
		t.Stop()
		return ctx.Err()
	}
}

// Stop 停止定时扫描，等待正在执行的扫描结束
func (t *ScanLoop) Stop() {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return
	}
	t.isRunning = false
	scheduler, cancel, stopChan := t.cron, t.cancel, t.stopChan
	t.mu.Unlock()

	t.logger.Info("stopping scan loop...")

	if scheduler != nil {
		<-scheduler.Stop().Done()
		t.logger.Info("cron scheduler stopped")
	}
	if cancel != nil {
		cancel()
	}

	close(stopChan)
	t.logger.Info("scan loop stopped")
}

// RunNow 立即执行一次扫描
func (t *ScanLoop) RunNow(ctx context.Context) (*CycleResult, error) {
	result, err := t.scanService.RunCycle(ctx)
	if errors.Is(err, ErrCycleInProgress) {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.iteration++
	t.lastRunAt = time.Now()
	if err != nil {
		t.lastError = err.Error()
		return nil, err
	}
	t.lastError = ""
	t.lastResult = result
	return result, nil
}

// IsRunning 检查定时扫描是否启动
func (t *ScanLoop) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.isRunning
}

// GetStatus 获取状态信息
func (t *ScanLoop) GetStatus() map[string]interface{} {
	t.mu.RLock()
	defer t.mu.RUnlock()

	status := map[string]interface{}{
		"is_running":      t.isRunning,
		"iteration":       t.iteration,
		"start_time":      t.startTime,
		"cron_expression": t.config.Cron,
		"interval":        t.config.Interval,
		"last_error":      t.lastError,
	}
	if !t.lastRunAt.IsZero() {
		status["last_run_at"] = t.lastRunAt
	}
	if t.lastResult != nil {
		status["last_run_id"] = t.lastResult.RunID
		status["last_status"] = t.lastResult.Status
		status["last_analyzed"] = t.lastResult.Analyzed
	}
	if t.cron != nil {
		if entries := t.cron.Entries(); len(entries) > 0 {
			status["next_run_at"] = entries[0].Next
		}
	}
	return status
}

// StatusText telegram /status 命令
func (t *ScanLoop) StatusText() (string, error) {
	status := t.GetStatus()
	msg := fmt.Sprintf("running: %v\niterations: %v\ncron: `%v`", status["is_running"], status["iteration"], status["cron_expression"])
	if v, ok := status["last_run_id"]; ok {
		msg += fmt.Sprintf("\nlast run: %v (%v, %v analyzed)", v, status["last_status"], status["last_analyzed"])
	}
	if v, ok := status["next_run_at"]; ok {
		msg += fmt.Sprintf("\nnext run: %v", v)
	}
	if e := status["last_error"]; e != "" {
		msg += fmt.Sprintf("\nlast error: %v", e)
	}
	return msg, nil
}
