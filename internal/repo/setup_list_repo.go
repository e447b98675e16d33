package repo

import (
	"context"

	"github.com/dushixiang/athscan/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewSetupListRepo(db *gorm.DB) *SetupListRepo {
	return &SetupListRepo{
		Repository: orz.NewRepository[models.SetupList, string](db),
	}
}

type SetupListRepo struct {
	orz.Repository[models.SetupList, string]
}

// CreateBatch 批量写入
func (r SetupListRepo) CreateBatch(ctx context.Context, lists []models.SetupList) error {
	if len(lists) == 0 {
		return nil
	}
	return r.GetDB(ctx).WithContext(ctx).Create(&lists).Error
}

// FindByRunID 按输出顺序获取某次扫描的全部列表
func (r SetupListRepo) FindByRunID(ctx context.Context, runID string) ([]models.SetupList, error) {
	var lists []models.SetupList
	db := r.GetDB(ctx).WithContext(ctx)
	err := db.Table(r.GetTableName()).
		Where("run_id = ?", runID).
		Order("position ASC").
		Find(&lists).Error
	return lists, err
}
