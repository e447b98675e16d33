package models

import (
	"time"
)

// ScanRunStatus 扫描周期状态
type ScanRunStatus string

const (
	ScanRunStatusRunning   ScanRunStatus = "running"
	ScanRunStatusCompleted ScanRunStatus = "completed"
	ScanRunStatusAborted   ScanRunStatus = "aborted" // 遇到历史不足的交易对后提前结束
	ScanRunStatusFailed    ScanRunStatus = "failed"
)

// ScanRun 一次扫描周期
type ScanRun struct {
	ID           string        `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Status       ScanRunStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	Interval     string        `gorm:"type:varchar(8)" json:"interval"`
	UniverseSize int           `json:"universe_size"` // 待处理交易对数
	Analyzed     int           `json:"analyzed"`      // 成功计算指标的交易对数
	Excluded     int           `json:"excluded"`      // 获取或计算失败被排除的数量
	Insufficient int           `json:"insufficient"`  // 历史K线不足的数量
	NewHighs     int           `json:"new_highs"`     // 本周期刷新ATH的数量
	Error        string        `gorm:"type:text" json:"error,omitempty"`
	StartedAt    time.Time     `gorm:"not null;index" json:"started_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
	CreatedAt    time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (ScanRun) TableName() string {
	return "scan_runs"
}

// Duration 周期耗时
func (r *ScanRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
