package repository

import (
	"unistudy_backend/internal/model"

	"gorm.io/gorm"
)

type GenerationJobRepository struct {
	DB *gorm.DB
}

func NewGenerationJobRepository(db *gorm.DB) *GenerationJobRepository {
	return &GenerationJobRepository{DB: db}
}

func (r *GenerationJobRepository) Create(job *model.GenerationJob) error {
	return r.DB.Create(job).Error
}

func (r *GenerationJobRepository) FindByHandle(handle string) (*model.GenerationJob, error) {
	var job model.GenerationJob
	err := r.DB.Where("handle = ?", handle).First(&job).Error
	return &job, err
}

func (r *GenerationJobRepository) UpdateStatus(handle string, status model.JobStatus) error {
	return r.DB.Model(&model.GenerationJob{}).
		Where("handle = ?", handle).
		Update("status", status).Error
}

func (r *GenerationJobRepository) ListByUnit(unitID uint) ([]model.GenerationJob, error) {
	var jobs []model.GenerationJob
	err := r.DB.Where("unit_id = ?", unitID).
		Order("submitted_at DESC").
		Find(&jobs).Error
	return jobs, err
}
