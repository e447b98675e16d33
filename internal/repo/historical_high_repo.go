package repo

import (
	"context"
	"time"

	"github.com/dushixiang/athscan/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func NewHistoricalHighRepo(db *gorm.DB) *HistoricalHighRepo {
	return &HistoricalHighRepo{
		Repository: orz.NewRepository[models.HistoricalHigh, string](db),
	}
}

type HistoricalHighRepo struct {
	orz.Repository[models.HistoricalHigh, string]
}

// FindBySymbol 查询交易对的ATH记录，不存在时返回 gorm.ErrRecordNotFound
func (r HistoricalHighRepo) FindBySymbol(ctx context.Context, symbol string) (m models.HistoricalHigh, err error) {
	db := r.GetDB(ctx).WithContext(ctx)
	err = db.Table(r.GetTableName()).
		Where("symbol = ?", symbol).
		First(&m).Error
	return m, err
}

// CreateIfAbsent 首次写入，已存在时不做任何修改
func (r HistoricalHighRepo) CreateIfAbsent(ctx context.Context, m *models.HistoricalHigh) (bool, error) {
	db := r.GetDB(ctx).WithContext(ctx)
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoNothing: true,
	}).Create(m)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RaiseMax 仅当 high 严格大于已记录的最高价时更新最高价和日期，返回是否更新
func (r HistoricalHighRepo) RaiseMax(ctx context.Context, symbol string, high float64, athDate time.Time) (bool, error) {
	db := r.GetDB(ctx).WithContext(ctx)
	result := db.Table(r.GetTableName()).
		Where("symbol = ? AND max_high < ?", symbol, high).
		Updates(map[string]interface{}{
			"max_high":   high,
			"ath_date":   athDate,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindAllOrderBySymbol 获取全部ATH记录
func (r HistoricalHighRepo) FindAllOrderBySymbol(ctx context.Context) ([]models.HistoricalHigh, error) {
	var highs []models.HistoricalHigh
	db := r.GetDB(ctx).WithContext(ctx)
	err := db.Table(r.GetTableName()).
		Order("symbol ASC").
		Find(&highs).Error
	return highs, err
}
