package exchange

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"golang.org/x/time/rate"
)

const (
	contractTypePerpetual = "PERPETUAL"
	quoteAssetUSDT        = "USDT"
	symbolStatusTrading   = "TRADING"
	symbolsCacheTTL       = 30 * time.Minute
)

var _ MarketData = (*BinanceClient)(nil)

// BinanceClient Binance期货行情客户端
type BinanceClient struct {
	client  *futures.Client
	limiter *rate.Limiter

	symbols        []string
	symbolsUpdated time.Time
	symbolsLock    sync.RWMutex
}

// NewBinanceClient 创建Binance客户端，requestsPerSecond<=0 时不限速
func NewBinanceClient(apiKey, secretKey, proxyURL string, testnet bool, requestsPerSecond float64) *BinanceClient {
	var client *futures.Client
	if proxyURL != "" {
		client = futures.NewProxiedClient(apiKey, secretKey, proxyURL)
	} else {
		client = futures.NewClient(apiKey, secretKey)
	}

	if testnet {
		// 测试网URL
		futures.UseTestnet = true
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}

	return &BinanceClient{
		client:  client,
		limiter: limiter,
	}
}

// GetKlines 获取K线数据
func (b *BinanceClient) GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*Kline, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	klines, err := b.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get klines: %w", err)
	}

	result := make([]*Kline, 0, len(klines))
	for _, k := range klines {
		open, err := strconv.ParseFloat(k.Open, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid open price %q: %w", k.Open, err)
		}
		high, err := strconv.ParseFloat(k.High, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid high price %q: %w", k.High, err)
		}
		low, err := strconv.ParseFloat(k.Low, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid low price %q: %w", k.Low, err)
		}
		close, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid close price %q: %w", k.Close, err)
		}
		volume, err := strconv.ParseFloat(k.Volume, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid volume %q: %w", k.Volume, err)
		}

		result = append(result, &Kline{
			OpenTime:  time.Unix(k.OpenTime/1000, 0).UTC(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
			CloseTime: time.Unix(k.CloseTime/1000, 0).UTC(),
		})
	}

	return result, nil
}

// GetPerpetualSymbols 获取USDT永续合约交易对（缓存30分钟）
func (b *BinanceClient) GetPerpetualSymbols(ctx context.Context) ([]string, error) {
	b.symbolsLock.RLock()
	if len(b.symbols) > 0 && time.Since(b.symbolsUpdated) < symbolsCacheTTL {
		cached := append([]string(nil), b.symbols...)
		b.symbolsLock.RUnlock()
		return cached, nil
	}
	b.symbolsLock.RUnlock()

	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	exchangeInfo, err := b.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange info: %w", err)
	}

	symbols := make([]string, 0, len(exchangeInfo.Symbols))
	for _, s := range exchangeInfo.Symbols {
		if string(s.ContractType) != contractTypePerpetual {
			continue
		}
		if !strings.HasSuffix(s.Symbol, quoteAssetUSDT) {
			continue
		}
		// 下架或交割中的合约没有新K线
		if s.Status != symbolStatusTrading {
			continue
		}
		symbols = append(symbols, s.Symbol)
	}

	b.symbolsLock.Lock()
	b.symbols = symbols
	b.symbolsUpdated = time.Now()
	b.symbolsLock.Unlock()

	return append([]string(nil), symbols...), nil
}
