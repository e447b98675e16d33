package config

import "strings"

type Config struct {
	Telegram TelegramConf `json:"telegram"`
	Binance  BinanceConf  `json:"binance"`
	Scan     ScanConf     `json:"scan"`
}

type TelegramConf struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  string `json:"chat_id"`
}

type BinanceConf struct {
	APIKey            string  `json:"api_key"`
	Secret            string  `json:"secret"`
	ProxyURL          string  `json:"proxy_url"`           // 代理地址，例如: http://127.0.0.1:7890
	Testnet           bool    `json:"testnet"`             // 是否使用测试网
	RequestsPerSecond float64 `json:"requests_per_second"` // 请求限速，默认10
}

// InsufficientHistoryPolicy 交易对历史K线不足时的处理方式
type InsufficientHistoryPolicy string

const (
	// PolicySkip 跳过该交易对，继续处理其余交易对
	PolicySkip InsufficientHistoryPolicy = "skip"
	// PolicyAbort 按处理顺序，该交易对及之后的交易对都不再处理
	PolicyAbort InsufficientHistoryPolicy = "abort"
)

type ScanConf struct {
	Enabled             bool                      `json:"enabled"`              // 是否启动定时扫描
	Cron                string                    `json:"cron"`                 // 定时表达式，默认 "5 0 * * *"
	RunOnStart          bool                      `json:"run_on_start"`         // 启动后立即执行一次
	Interval            string                    `json:"interval"`             // K线周期，默认 1d
	KlineLimit          int                       `json:"kline_limit"`          // 每个交易对获取的K线数，默认205
	MinKlines           int                       `json:"min_klines"`           // 最少K线数，默认15
	BootstrapLookback   int                       `json:"bootstrap_lookback"`   // 首次记录ATH时回看的已收盘K线数，默认60
	Workers             int                       `json:"workers"`              // 并发数，默认8
	InsufficientHistory InsufficientHistoryPolicy `json:"insufficient_history"` // skip/abort，默认 skip
	Symbols             []string                  `json:"symbols"`              // 指定交易对，为空时使用全部USDT永续合约
	ExcludeSymbols      []string                  `json:"exclude_symbols"`      // 排除的交易对
	SymbolCorrections   map[string]string         `json:"symbol_corrections"`   // 发布前的交易对名称修正
	PublishBuckets      []string                  `json:"publish_buckets"`      // 只发布指定的 setup，为空时全部发布
}

// Normalize 填充默认值，返回被修正的无效配置项
func (c *Config) Normalize() []string {
	var invalid []string

	if c.Binance.RequestsPerSecond <= 0 {
		c.Binance.RequestsPerSecond = 10
	}

	s := &c.Scan
	if s.Cron == "" {
		s.Cron = "5 0 * * *"
	}
	if s.Interval == "" {
		s.Interval = "1d"
	}
	if s.KlineLimit <= 0 {
		s.KlineLimit = 205
	}
	if s.MinKlines < 3 {
		s.MinKlines = 15
	}
	if s.BootstrapLookback <= 0 {
		s.BootstrapLookback = 60
	}
	if s.Workers <= 0 {
		s.Workers = 8
	}

	s.InsufficientHistory = InsufficientHistoryPolicy(strings.ToLower(string(s.InsufficientHistory)))
	switch s.InsufficientHistory {
	case PolicySkip, PolicyAbort:
	case "":
		s.InsufficientHistory = PolicySkip
	default:
		invalid = append(invalid, "scan.insufficient_history="+string(s.InsufficientHistory))
		s.InsufficientHistory = PolicySkip
	}

	return invalid
}
