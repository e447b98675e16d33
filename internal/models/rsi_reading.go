package models

import (
	"time"
)

// RSIReading 某次扫描中单个交易对的 RSI 及排名
type RSIReading struct {
	ID          string    `gorm:"primaryKey;type:varchar(26)" json:"id"`
	RunID       string    `gorm:"type:varchar(26);not null;index" json:"run_id"`
	Symbol      string    `gorm:"type:varchar(32);not null" json:"symbol"`
	Seq         int       `gorm:"not null" json:"seq"` // 处理顺序
	RSI         *float64  `json:"rsi"`                 // 不确定时为空
	Rank        int       `json:"rank"`
	RankAsc     int       `json:"rank_asc"`
	Quantile    *float64  `json:"quantile"`
	QuantileAsc *float64  `json:"quantile_asc"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (RSIReading) TableName() string {
	return "rsi_readings"
}
