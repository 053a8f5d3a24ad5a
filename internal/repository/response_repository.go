package repository

import (
	"unistudy_backend/internal/model"

	"gorm.io/gorm"
)

type ResponseRepository struct {
	DB *gorm.DB
}

func NewResponseRepository(db *gorm.DB) *ResponseRepository {
	return &ResponseRepository{DB: db}
}

func (r *ResponseRepository) Create(response *model.StudyResponse) error {
	return r.DB.Create(response).Error
}

// History 用户在课程内的作答历史，按时间升序（最后一条即最近作答）
func (r *ResponseRepository) History(userID, courseID uint) ([]model.StudyResponse, error) {
	var responses []model.StudyResponse
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("created_at, id").
		Find(&responses).Error
	return responses, err
}

func (r *ResponseRepository) CountBySession(sessionID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.StudyResponse{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}

// AttemptedItemIDs 用户做过的练习项集合，选题时用来判定“新题”
func (r *ResponseRepository) AttemptedItemIDs(userID, courseID uint) (map[uint]bool, error) {
	var ids []uint
	err := r.DB.Model(&model.StudyResponse{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Distinct("item_id").
		Pluck("item_id", &ids).Error
	if err != nil {
		return nil, err
	}
	attempted := make(map[uint]bool, len(ids))
	for _, id := range ids {
		attempted[id] = true
	}
	return attempted, nil
}
