package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dushixiang/athscan/internal/config"
	"github.com/dushixiang/athscan/pkg/exchange"
	"go.uber.org/zap"
)

// MarketService 行情数据收集服务
type MarketService struct {
	logger *zap.Logger

	marketData exchange.MarketData
	conf       config.ScanConf
}

// NewMarketService 创建行情数据服务
func NewMarketService(marketData exchange.MarketData, conf *config.Config, logger *zap.Logger) *MarketService {
	return &MarketService{
		logger:     logger,
		marketData: marketData,
		conf:       conf.Scan,
	}
}

// Universe 本周期需要处理的交易对，顺序即处理顺序。
// 配置了 symbols 时按配置顺序，否则使用交易所全部USDT永续合约（按名称排序），再去掉 exclude_symbols。
func (s *MarketService) Universe(ctx context.Context) ([]string, error) {
	var symbols []string
	if len(s.conf.Symbols) > 0 {
		symbols = s.conf.Symbols
	} else {
		all, err := s.marketData.GetPerpetualSymbols(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get perpetual symbols: %w", err)
		}
		symbols = make([]string, len(all))
		copy(symbols, all)
		sort.Strings(symbols)
	}

	excluded := make(map[string]struct{}, len(s.conf.ExcludeSymbols))
	for _, symbol := range s.conf.ExcludeSymbols {
		excluded[normalizeSymbol(symbol)] = struct{}{}
	}

	seen := make(map[string]struct{}, len(symbols))
	universe := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		symbol = normalizeSymbol(symbol)
		if symbol == "" {
			continue
		}
		if _, ok := excluded[symbol]; ok {
			continue
		}
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		universe = append(universe, symbol)
	}

	s.logger.Info("resolved scan universe",
		zap.Int("symbols", len(universe)),
		zap.Int("excluded", len(symbols)-len(universe)))
	return universe, nil
}

// FetchKlines 获取单个交易对的K线，最后一根为未收盘K线
func (s *MarketService) FetchKlines(ctx context.Context, symbol string) ([]*exchange.Kline, error) {
	klines, err := s.marketData.GetKlines(ctx, symbol, s.conf.Interval, s.conf.KlineLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines for %s: %w", symbol, err)
	}
	return klines, nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
