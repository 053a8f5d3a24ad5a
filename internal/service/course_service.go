package service

import (
	"errors"

	"unistudy_backend/internal/model"
	"unistudy_backend/internal/repository"
	"unistudy_backend/internal/util"

	"gorm.io/gorm"
)

// CourseService 课程、单元与练习项的管理
type CourseService struct {
	CourseRepo      *repository.CourseRepository
	InstitutionRepo *repository.InstitutionRepository
	ItemRepo        *repository.StudyItemRepository
}

func NewCourseService(courseRepo *repository.CourseRepository, institutionRepo *repository.InstitutionRepository, itemRepo *repository.StudyItemRepository) *CourseService {
	return &CourseService{
		CourseRepo:      courseRepo,
		InstitutionRepo: institutionRepo,
		ItemRepo:        itemRepo,
	}
}

func (s *CourseService) CreateCourse(course *model.Course) error {
	if course.InstitutionID != nil {
		if _, err := s.InstitutionRepo.FindByID(*course.InstitutionID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("机构不存在")
			}
			return err
		}
	}
	return s.CourseRepo.Create(course)
}

func (s *CourseService) GetCourse(id uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}

func (s *CourseService) ListCourses(institutionID *uint) ([]model.Course, error) {
	return s.CourseRepo.List(institutionID)
}

func (s *CourseService) CreateUnit(unit *model.CourseUnit) error {
	if _, err := s.GetCourse(unit.CourseID); err != nil {
		return err
	}
	return s.CourseRepo.CreateUnit(unit)
}

func (s *CourseService) GetUnit(id uint) (*model.CourseUnit, error) {
	unit, err := s.CourseRepo.FindUnit(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUnitNotFound
		}
		return nil, err
	}
	return unit, nil
}

func (s *CourseService) ListUnits(courseID uint) ([]model.CourseUnit, error) {
	if _, err := s.GetCourse(courseID); err != nil {
		return nil, err
	}
	return s.CourseRepo.ListUnits(courseID)
}

// AddItem 手工添加练习项（教师操作，区别于生成作业的批量导入）。
// 单元必须存在且练习项的课程归属必须与单元一致。
func (s *CourseService) AddItem(item *model.StudyItem) error {
	unit, err := s.GetUnit(item.UnitID)
	if err != nil {
		return err
	}
	if item.CourseID != unit.CourseID {
		return errors.New("练习项课程与单元课程不一致")
	}
	return s.ItemRepo.Create(item)
}

func (s *CourseService) ListUnitItems(unitID uint) ([]model.StudyItem, error) {
	if _, err := s.GetUnit(unitID); err != nil {
		return nil, err
	}
	return s.ItemRepo.ListByUnit(unitID)
}

func (s *CourseService) ListInstitutions() ([]model.Institution, error) {
	return s.InstitutionRepo.List()
}
