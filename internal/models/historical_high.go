package models

import (
	"time"
)

// HistoricalHigh 交易对历史最高价（ATH）记录，max_high 只增不减
type HistoricalHigh struct {
	Symbol    string    `gorm:"primaryKey;type:varchar(32)" json:"symbol"` // 交易对
	MaxHigh   float64   `gorm:"not null" json:"max_high"`                  // 记录到的最高价
	ATHDate   time.Time `gorm:"column:ath_date;not null" json:"ath_date"`  // 最高价出现的日期（UTC零点）
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (HistoricalHigh) TableName() string {
	return "historical_highs"
}
