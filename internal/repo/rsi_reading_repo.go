package repo

import (
	"context"

	"github.com/dushixiang/athscan/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewRSIReadingRepo(db *gorm.DB) *RSIReadingRepo {
	return &RSIReadingRepo{
		Repository: orz.NewRepository[models.RSIReading, string](db),
	}
}

type RSIReadingRepo struct {
	orz.Repository[models.RSIReading, string]
}

// CreateBatch 批量写入
func (r RSIReadingRepo) CreateBatch(ctx context.Context, readings []models.RSIReading) error {
	if len(readings) == 0 {
		return nil
	}
	return r.GetDB(ctx).WithContext(ctx).CreateInBatches(&readings, 200).Error
}

// FindByRunID 按处理顺序获取某次扫描的 RSI 列表
func (r RSIReadingRepo) FindByRunID(ctx context.Context, runID string) ([]models.RSIReading, error) {
	var readings []models.RSIReading
	db := r.GetDB(ctx).WithContext(ctx)
	err := db.Table(r.GetTableName()).
		Where("run_id = ?", runID).
		Order("seq ASC").
		Find(&readings).Error
	return readings, err
}
