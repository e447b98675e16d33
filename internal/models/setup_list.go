package models

import (
	"time"

	"gorm.io/datatypes"
)

// SetupList 某次扫描中一个 setup 的交易对列表（已做交易所名称修正）
type SetupList struct {
	ID        string                      `gorm:"primaryKey;type:varchar(26)" json:"id"`
	RunID     string                      `gorm:"type:varchar(26);not null;uniqueIndex:idx_run_name" json:"run_id"`
	Name      string                      `gorm:"type:varchar(32);not null;uniqueIndex:idx_run_name" json:"name"`
	Position  int                         `gorm:"not null" json:"position"` // 输出顺序
	Symbols   datatypes.JSONSlice[string] `gorm:"type:json" json:"symbols"`
	CreatedAt time.Time                   `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (SetupList) TableName() string {
	return "setup_lists"
}
