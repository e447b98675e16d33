package exchange

import "context"

// MarketData 行情数据接口，扫描只依赖K线和交易对列表
// 使用通用类型，便于支持多个交易所（币安、OKX、Bybit等）
type MarketData interface {
	// GetKlines 按时间升序返回K线，最后一根为未收盘K线
	GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*Kline, error)
	// GetPerpetualSymbols 返回所有USDT永续合约交易对
	GetPerpetualSymbols(ctx context.Context) ([]string, error)
}
