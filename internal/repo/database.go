package repo

import (
	"fmt"

	"gorm.io/gorm"
)

const sqliteBusyTimeoutMillis = 5000

// PrepareDB 调整连接池。SQLite 整库只有一把写锁，多个连接同时开写事务会直接返回 SQLITE_BUSY，
// 所以 SQLite 下只保留一个连接，事务在连接池上排队执行。
func PrepareDB(db *gorm.DB) error {
	if db.Dialector.Name() != "sqlite" {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	// 其他进程持有写锁时等待而不是立即失败
	return db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", sqliteBusyTimeoutMillis)).Error
}
