package repository

import (
	"errors"

	"unistudy_backend/internal/model"

	"gorm.io/gorm"
)

type GapRepository struct {
	DB *gorm.DB
}

func NewGapRepository(db *gorm.DB) *GapRepository {
	return &GapRepository{DB: db}
}

const (
	gapInitialSeverity = 3
	gapEscalationStep  = 2
	gapSeverityCeiling = 10
)

// ActiveByUser 某用户课程内的全部活跃薄弱点
func (r *GapRepository) ActiveByUser(userID, courseID uint) ([]model.LearningGap, error) {
	var gaps []model.LearningGap
	err := r.DB.Where("user_id = ? AND course_id = ? AND is_active = ?", userID, courseID, true).
		Find(&gaps).Error
	return gaps, err
}

// EscalateOrCreate 答错时登记薄弱点：已有记录升级 severity 并重新激活，
// 没有则按初始 severity 创建。
func (r *GapRepository) EscalateOrCreate(userID uint, item *model.StudyItem) (*model.LearningGap, error) {
	var gap model.LearningGap
	err := r.DB.Where("user_id = ? AND content_type = ? AND item_id = ?",
		userID, item.ContentType, item.ID).First(&gap).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		gap = model.LearningGap{
			UserID:      userID,
			ContentType: item.ContentType,
			ItemID:      item.ID,
			CourseID:    item.CourseID,
			Severity:    gapInitialSeverity,
			IsActive:    true,
		}
		if err := r.DB.Create(&gap).Error; err != nil {
			return nil, err
		}
		return &gap, nil
	}
	if err != nil {
		return nil, err
	}

	gap.Severity += gapEscalationStep
	if gap.Severity > gapSeverityCeiling {
		gap.Severity = gapSeverityCeiling
	}
	gap.IsActive = true
	if err := r.DB.Save(&gap).Error; err != nil {
		return nil, err
	}
	return &gap, nil
}

// DeactivateForItem 用户在该练习项上证明掌握后关闭薄弱点
func (r *GapRepository) DeactivateForItem(userID, itemID uint) error {
	return r.DB.Model(&model.LearningGap{}).
		Where("user_id = ? AND item_id = ? AND is_active = ?", userID, itemID, true).
		Update("is_active", false).Error
}
