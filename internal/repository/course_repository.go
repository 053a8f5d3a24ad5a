package repository

import (
	"unistudy_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.First(&course, id).Error
	return &course, err
}

func (r *CourseRepository) List(institutionID *uint) ([]model.Course, error) {
	var courses []model.Course
	query := r.DB.Order("id")
	if institutionID != nil {
		query = query.Where("institution_id = ?", *institutionID)
	}
	err := query.Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) CreateUnit(unit *model.CourseUnit) error {
	return r.DB.Create(unit).Error
}

func (r *CourseRepository) FindUnit(id uint) (*model.CourseUnit, error) {
	var unit model.CourseUnit
	err := r.DB.First(&unit, id).Error
	return &unit, err
}

func (r *CourseRepository) ListUnits(courseID uint) ([]model.CourseUnit, error) {
	var units []model.CourseUnit
	err := r.DB.Where("course_id = ?", courseID).
		Order("position, id").
		Find(&units).Error
	return units, err
}

type InstitutionRepository struct {
	DB *gorm.DB
}

func NewInstitutionRepository(db *gorm.DB) *InstitutionRepository {
	return &InstitutionRepository{DB: db}
}

func (r *InstitutionRepository) FindByID(id uint) (*model.Institution, error) {
	var inst model.Institution
	err := r.DB.First(&inst, id).Error
	return &inst, err
}

func (r *InstitutionRepository) List() ([]model.Institution, error) {
	var insts []model.Institution
	err := r.DB.Order("id").Find(&insts).Error
	return insts, err
}
