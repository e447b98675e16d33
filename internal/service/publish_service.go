package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dushixiang/athscan/internal/config"
	"github.com/dushixiang/athscan/internal/models"
	"github.com/dushixiang/athscan/internal/repo"
	"github.com/dushixiang/athscan/internal/telegram"
	"github.com/dushixiang/athscan/pkg/ta"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"github.com/valyala/fasttemplate"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const summaryTemplate = `*RSI analysis completed.* {{analyzed}} symbols analyzed.
run: {{run_id}} ({{status}})
{{buckets}}`

// Notifier 消息通知
type Notifier interface {
	Notify(chatId, msg string) error
}

// Setup 已发布的 setup
type Setup struct {
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
}

// Publication 一次扫描的发布结果
type Publication struct {
	Run     models.ScanRun      `json:"run"`
	Setups  []Setup             `json:"setups"`
	Reading []models.RSIReading `json:"rsi"`
}

// PublishService 交易对名称修正和结果发布
type PublishService struct {
	logger *zap.Logger

	*orz.Service
	scanRunRepo    *repo.ScanRunRepo
	setupListRepo  *repo.SetupListRepo
	rsiReadingRepo *repo.RSIReadingRepo

	corrections map[string]string
	published   map[BucketName]bool

	notifier Notifier
	chatID   string
	template *fasttemplate.Template
}

// NewPublishService 创建发布服务
func NewPublishService(db *gorm.DB, conf *config.Config, notifier Notifier, logger *zap.Logger) *PublishService {
	var published map[BucketName]bool
	if len(conf.Scan.PublishBuckets) > 0 {
		published = make(map[BucketName]bool, len(conf.Scan.PublishBuckets))
		for _, name := range conf.Scan.PublishBuckets {
			published[BucketName(strings.TrimSpace(name))] = true
		}
	}

	return &PublishService{
		logger:         logger,
		Service:        orz.NewService(db),
		scanRunRepo:    repo.NewScanRunRepo(db),
		setupListRepo:  repo.NewSetupListRepo(db),
		rsiReadingRepo: repo.NewRSIReadingRepo(db),
		corrections:    conf.Scan.SymbolCorrections,
		published:      published,
		notifier:       notifier,
		chatID:         conf.Telegram.ChatID,
		template:       fasttemplate.New(summaryTemplate, "{{", "}}"),
	}
}

// Correct 按修正表替换交易对名称，保持顺序，不修改入参
func (s *PublishService) Correct(buckets Buckets) Buckets {
	corrected := make(Buckets, len(buckets))
	for name, symbols := range buckets {
		out := make([]string, len(symbols))
		for i, symbol := range symbols {
			if replacement, ok := s.corrections[symbol]; ok {
				out[i] = replacement
			} else {
				out[i] = symbol
			}
		}
		corrected[name] = out
	}
	return corrected
}

// Publish 在一个事务中写入 setup 列表、RSI 列表和扫描状态，提交后发送通知
func (s *PublishService) Publish(ctx context.Context, run *models.ScanRun, buckets Buckets, ranking Ranking) error {
	now := time.Now()
	run.FinishedAt = &now

	lists := make([]models.SetupList, 0, len(buckets))
	for position, name := range BucketNames() {
		if s.published != nil && !s.published[name] {
			continue
		}
		symbols := buckets[name]
		if symbols == nil {
			symbols = []string{}
		}
		lists = append(lists, models.SetupList{
			ID:        ulid.Make().String(),
			RunID:     run.ID,
			Name:      string(name),
			Position:  position,
			Symbols:   datatypes.NewJSONSlice(symbols),
			CreatedAt: now,
		})
	}

	readings := make([]models.RSIReading, 0, len(ranking))
	for _, info := range ranking {
		readings = append(readings, models.RSIReading{
			ID:          ulid.Make().String(),
			RunID:       run.ID,
			Symbol:      info.Symbol,
			Seq:         info.Seq,
			RSI:         nullable(info.RSI),
			Rank:        info.Rank,
			RankAsc:     info.RankAsc,
			Quantile:    nullable(info.Quantile),
			QuantileAsc: nullable(info.QuantileAsc),
			CreatedAt:   now,
		})
	}

	err := s.Transaction(ctx, func(ctx context.Context) error {
		if err := s.setupListRepo.CreateBatch(ctx, lists); err != nil {
			return fmt.Errorf("save setup lists: %w", err)
		}
		if err := s.rsiReadingRepo.CreateBatch(ctx, readings); err != nil {
			return fmt.Errorf("save rsi readings: %w", err)
		}
		if err := s.scanRunRepo.Finish(ctx, run); err != nil {
			return fmt.Errorf("finish run: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("setups published",
		zap.String("run_id", run.ID),
		zap.Int("setups", len(lists)),
		zap.Int("rsi_readings", len(readings)))

	if s.notifier != nil && s.chatID != "" {
		msg := s.Summary(run, lists)
		if err := s.notifier.Notify(s.chatID, msg); err != nil {
			s.logger.Warn("failed to send telegram notification", zap.String("run_id", run.ID), zap.Error(err))
		}
	}
	return nil
}

// Summary 渲染通知消息，只列出非空的 setup
func (s *PublishService) Summary(run *models.ScanRun, lists []models.SetupList) string {
	var sb strings.Builder
	for _, list := range lists {
		if len(list.Symbols) == 0 {
			continue
		}
		escaped := make([]string, len(list.Symbols))
		for i, symbol := range list.Symbols {
			escaped[i] = telegram.EscapeMarkdown(symbol)
		}
		sb.WriteString(fmt.Sprintf("`%s`: %s\n", list.Name, strings.Join(escaped, ", ")))
	}
	if sb.Len() == 0 {
		sb.WriteString("no setups matched\n")
	}

	return s.template.ExecuteString(map[string]interface{}{
		"analyzed": fmt.Sprintf("%d", run.Analyzed),
		"run_id":   run.ID,
		"status":   string(run.Status),
		"buckets":  sb.String(),
	})
}

// Latest 最近一次发布的结果，没有时返回 nil
func (s *PublishService) Latest(ctx context.Context) (*Publication, error) {
	run, err := s.scanRunRepo.FindLatestPublished(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.load(ctx, run)
}

// FindRun 获取指定扫描的结果，不存在时返回 nil
func (s *PublishService) FindRun(ctx context.Context, id string) (*Publication, error) {
	run, err := s.scanRunRepo.FindRun(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.load(ctx, run)
}

// Recent 最近的扫描记录
func (s *PublishService) Recent(ctx context.Context, limit int) ([]models.ScanRun, error) {
	runs, err := s.scanRunRepo.FindRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []models.ScanRun{}
	}
	return runs, nil
}

// LatestSummary telegram /setups 命令
func (s *PublishService) LatestSummary() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pub, err := s.Latest(ctx)
	if err != nil {
		return "", err
	}
	if pub == nil {
		return "no scan has been published yet", nil
	}
	lists := make([]models.SetupList, len(pub.Setups))
	for i, setup := range pub.Setups {
		lists[i] = models.SetupList{Name: setup.Name, Symbols: datatypes.NewJSONSlice(setup.Symbols)}
	}
	return s.Summary(&pub.Run, lists), nil
}

func (s *PublishService) load(ctx context.Context, run models.ScanRun) (*Publication, error) {
	lists, err := s.setupListRepo.FindByRunID(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	readings, err := s.rsiReadingRepo.FindByRunID(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	setups := make([]Setup, len(lists))
	for i, list := range lists {
		symbols := []string(list.Symbols)
		if symbols == nil {
			symbols = []string{}
		}
		setups[i] = Setup{Name: list.Name, Symbols: symbols}
	}
	return &Publication{Run: run, Setups: setups, Reading: readings}, nil
}

func nullable(v float64) *float64 {
	if !ta.Valid(v) {
		return nil
	}
	return &v
}
