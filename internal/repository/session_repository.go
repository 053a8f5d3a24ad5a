package repository

import (
	"time"

	"unistudy_backend/internal/model"

	"gorm.io/gorm"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

func (r *SessionRepository) Create(session *model.StudySession) error {
	return r.DB.Create(session).Error
}

func (r *SessionRepository) FindByID(id uint) (*model.StudySession, error) {
	var session model.StudySession
	err := r.DB.First(&session, id).Error
	return &session, err
}

func (r *SessionRepository) Update(session *model.StudySession) error {
	return r.DB.Save(session).Error
}

func (r *SessionRepository) ListByUser(userID uint, limit int) ([]model.StudySession, error) {
	if limit <= 0 {
		limit = 20
	}
	var sessions []model.StudySession
	err := r.DB.Where("user_id = ?", userID).
		Order("started_at DESC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

// MarkStale 把长时间未完成的会话置为 abandoned，后台定时任务调用
func (r *SessionRepository) MarkStale(olderThan time.Time) (int64, error) {
	result := r.DB.Model(&model.StudySession{}).
		Where("status = ? AND started_at < ?", model.SessionActive, olderThan).
		Update("status", model.SessionAbandoned)
	return result.RowsAffected, result.Error
}
