package repo

import (
	"context"

	"github.com/dushixiang/athscan/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewScanRunRepo(db *gorm.DB) *ScanRunRepo {
	return &ScanRunRepo{
		Repository: orz.NewRepository[models.ScanRun, string](db),
	}
}

type ScanRunRepo struct {
	orz.Repository[models.ScanRun, string]
}

// FindLatestPublished 获取最近一次已发布（完成或提前结束）的扫描
func (r ScanRunRepo) FindLatestPublished(ctx context.Context) (m models.ScanRun, err error) {
	db := r.GetDB(ctx).WithContext(ctx)
	err = db.Table(r.GetTableName()).
		Where("status IN ?", []models.ScanRunStatus{models.ScanRunStatusCompleted, models.ScanRunStatusAborted}).
		Order("started_at DESC").
		First(&m).Error
	return m, err
}

// FindRun 按ID获取扫描，不存在时返回 gorm.ErrRecordNotFound
func (r ScanRunRepo) FindRun(ctx context.Context, id string) (m models.ScanRun, err error) {
	db := r.GetDB(ctx).WithContext(ctx)
	err = db.Table(r.GetTableName()).
		Where("id = ?", id).
		First(&m).Error
	return m, err
}

// FindRecent 按开始时间倒序获取最近的扫描
func (r ScanRunRepo) FindRecent(ctx context.Context, limit int) ([]models.ScanRun, error) {
	var runs []models.ScanRun
	db := r.GetDB(ctx).WithContext(ctx)
	err := db.Table(r.GetTableName()).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

// Finish 更新扫描结果
func (r ScanRunRepo) Finish(ctx context.Context, run *models.ScanRun) error {
	db := r.GetDB(ctx).WithContext(ctx)
	return db.Table(r.GetTableName()).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"status":        run.Status,
			"universe_size": run.UniverseSize,
			"analyzed":      run.Analyzed,
			"excluded":      run.Excluded,
			"insufficient":  run.Insufficient,
			"new_highs":     run.NewHighs,
			"error":         run.Error,
			"finished_at":   run.FinishedAt,
		}).Error
}
