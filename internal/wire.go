//go:build wireinject
// +build wireinject

package internal

import (
	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dushixiang/athscan/internal/config"
	"github.com/dushixiang/athscan/internal/handler"
	"github.com/dushixiang/athscan/internal/service"
)

var (
	handlerSet = wire.NewSet(
		handler.NewScanHandler,
	)

	scanSet = wire.NewSet(
		provideMarketData,
		provideNotifier,
		service.NewMetrics,
		service.NewHighService,
		service.NewIndicatorService,
		service.NewMarketService,
		service.NewRankService,
		service.NewClassifierService,
		service.NewPublishService,
		service.NewScanService,
		service.NewScanLoop,
	)
)

// InitializeApp 初始化应用
func InitializeApp(logger *zap.Logger, db *gorm.DB, conf *config.Config) (*AppComponents, error) {
	wire.Build(
		handlerSet,
		scanSet,
		provideTelegram,
		wire.Struct(new(AppComponents), "*"),
	)
	return nil, nil
}
