package repository

import (
	"unistudy_backend/internal/model"

	"gorm.io/gorm"
)

type StudyItemRepository struct {
	DB *gorm.DB
}

func NewStudyItemRepository(db *gorm.DB) *StudyItemRepository {
	return &StudyItemRepository{DB: db}
}

func (r *StudyItemRepository) Create(item *model.StudyItem) error {
	return r.DB.Create(item).Error
}

func (r *StudyItemRepository) CreateBatch(items []model.StudyItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.DB.Create(&items).Error
}

func (r *StudyItemRepository) FindByID(id uint) (*model.StudyItem, error) {
	var item model.StudyItem
	err := r.DB.First(&item, id).Error
	return &item, err
}

// Pool 候选池查询：限定课程，可进一步限定单元集合。
// 选题器的作用域隔离以这里的过滤为第一道关口。
func (r *StudyItemRepository) Pool(courseID uint, unitIDs []uint) ([]model.StudyItem, error) {
	var items []model.StudyItem
	query := r.DB.Where("course_id = ?", courseID)
	if len(unitIDs) > 0 {
		query = query.Where("unit_id IN ?", unitIDs)
	}
	err := query.Order("id").Find(&items).Error
	return items, err
}

func (r *StudyItemRepository) ListByUnit(unitID uint) ([]model.StudyItem, error) {
	var items []model.StudyItem
	err := r.DB.Where("unit_id = ?", unitID).Order("id").Find(&items).Error
	return items, err
}

// ListByIDs 按 id 集合取练习项，返回顺序不保证，调用方自行按需排序
func (r *StudyItemRepository) ListByIDs(ids []uint) ([]model.StudyItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []model.StudyItem
	err := r.DB.Where("id IN ?", ids).Find(&items).Error
	return items, err
}
