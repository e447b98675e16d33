package internal

import (
	"net/http"
	"time"

	"github.com/dushixiang/athscan/internal/config"
	"github.com/dushixiang/athscan/internal/service"
	"github.com/dushixiang/athscan/internal/telegram"
	"github.com/dushixiang/athscan/pkg/exchange"
	"go.uber.org/zap"
)

const telegramHTTPTimeout = 10 * time.Second

// provideTelegram provides telegram instance
func provideTelegram(logger *zap.Logger, conf *config.Config) *telegram.Telegram {
	if !conf.Telegram.Enabled {
		return nil
	}

	httpClient := &http.Client{Timeout: telegramHTTPTimeout}

	tg, err := telegram.NewTelegram(logger, telegram.Settings{
		Token:  conf.Telegram.Token,
		Client: httpClient,
	})
	if err != nil {
		logger.Error("failed to init telegram", zap.Error(err))
		return nil
	}

	return tg
}

// provideNotifier 未启用 telegram 时不发送通知
func provideNotifier(tg *telegram.Telegram) service.Notifier {
	if tg == nil {
		return nil
	}
	return tg
}

// provideMarketData provides Binance client
func provideMarketData(conf *config.Config, logger *zap.Logger) exchange.MarketData {
	client := exchange.NewBinanceClient(
		conf.Binance.APIKey,
		conf.Binance.Secret,
		conf.Binance.ProxyURL,
		conf.Binance.Testnet,
		conf.Binance.RequestsPerSecond,
	)

	logger.Info("Binance client initialized",
		zap.Bool("testnet", conf.Binance.Testnet),
		zap.Float64("requests_per_second", conf.Binance.RequestsPerSecond),
	)
	return client
}
