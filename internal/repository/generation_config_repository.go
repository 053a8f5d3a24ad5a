package repository

import (
	"errors"
	"fmt"
	"time"

	"unistudy_backend/internal/model"
	"unistudy_backend/internal/util"

	"gorm.io/gorm"
)

// GenerationConfigRepository 配置快照的读写适配器。
// 激活唯一性由 active_key 唯一索引兜底：事务内先停用旧记录再插入新记录，
// 并发写者中的失败方会在插入时撞唯一索引，翻译为 util.ErrConfigConflict。
type GenerationConfigRepository struct {
	DB *gorm.DB
}

func NewGenerationConfigRepository(db *gorm.DB) *GenerationConfigRepository {
	return &GenerationConfigRepository{DB: db}
}

func activeKeyFor(source model.ConfigSource, scopeKey string) string {
	return fmt.Sprintf("%s|%s", source, scopeKey)
}

// GetActive 取某来源在某作用域下的生效记录。
// adaptive_algorithm 是只增日志，取 applied_at 最新的一条；其余来源取激活行。
// 无匹配记录返回 util.ErrConfigNotFound，调用方落到下一优先级来源。
func (r *GenerationConfigRepository) GetActive(source model.ConfigSource, scope model.ConfigScope) (*model.GenerationConfigRecord, error) {
	var record model.GenerationConfigRecord

	query := r.DB.Where("source = ? AND scope_key = ?", source, scope.Key())
	if source == model.SourceAdaptiveAlgorithm {
		query = query.Order("applied_at DESC, id DESC")
	} else {
		query = query.Where("is_active = ?", true)
	}

	err := query.First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrConfigNotFound
		}
		return nil, err
	}
	return &record, nil
}

// SaveActive 原子的“停用旧记录 + 插入新记录”。
// adaptive_algorithm 走只增路径：不停用任何记录，active_key 恒为 NULL。
func (r *GenerationConfigRepository) SaveActive(record *model.GenerationConfigRecord) error {
	if record.ScopeKey == "" {
		record.ScopeKey = record.Scope().Key()
	}
	if record.AppliedAt.IsZero() {
		record.AppliedAt = time.Now()
	}
	record.IsActive = true

	if record.Source == model.SourceAdaptiveAlgorithm {
		record.ActiveKey = nil
		return r.DB.Create(record).Error
	}

	key := activeKeyFor(record.Source, record.ScopeKey)
	record.ActiveKey = &key

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.GenerationConfigRecord{}).
			Where("source = ? AND scope_key = ? AND is_active = ?", record.Source, record.ScopeKey, true).
			Updates(map[string]interface{}{"is_active": false, "active_key": nil}).Error; err != nil {
			return err
		}
		return tx.Create(record).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return util.ErrConfigConflict
		}
		return err
	}
	return nil
}

// History 某来源在某作用域下的历史快照，审计用
func (r *GenerationConfigRepository) History(source model.ConfigSource, scope model.ConfigScope, limit int) ([]model.GenerationConfigRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []model.GenerationConfigRecord
	err := r.DB.Where("source = ? AND scope_key = ?", source, scope.Key()).
		Order("applied_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
