package repository

import (
	"time"

	"unistudy_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScheduleRepository struct {
	DB *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{DB: db}
}

func (r *ScheduleRepository) Get(userID, itemID uint) (*model.ItemSchedule, error) {
	var schedule model.ItemSchedule
	err := r.DB.Where("user_id = ? AND item_id = ?", userID, itemID).
		First(&schedule).Error
	return &schedule, err
}

// Upsert 按 (user_id, item_id) 写入排程。首答惰性建行，之后整行覆盖更新。
// 主键不进 INSERT，冲突只可能落在业务唯一键上
func (r *ScheduleRepository) Upsert(schedule *model.ItemSchedule) error {
	return r.DB.Omit("id").Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"ease_factor", "interval_days", "next_review_at",
			"consecutive_correct", "times_correct", "times_incorrect",
			"last_seen_at", "updated_at",
		}),
	}).Create(schedule).Error
}

// ListByUser 某用户在一批练习项上的全部排程，选题分类用
func (r *ScheduleRepository) ListByUser(userID uint, itemIDs []uint) ([]model.ItemSchedule, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var schedules []model.ItemSchedule
	err := r.DB.Where("user_id = ? AND item_id IN ?", userID, itemIDs).
		Find(&schedules).Error
	return schedules, err
}

// DueForUser 某用户课程内已到期的排程
func (r *ScheduleRepository) DueForUser(userID, courseID uint, now time.Time) ([]model.ItemSchedule, error) {
	var schedules []model.ItemSchedule
	err := r.DB.Where("user_id = ? AND course_id = ? AND next_review_at <= ?", userID, courseID, now).
		Find(&schedules).Error
	return schedules, err
}
