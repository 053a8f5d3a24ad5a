package service

import (
	"testing"

	"unistudy_backend/internal/model"
	"unistudy_backend/internal/repository"
	"unistudy_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCourseService(t *testing.T) (*CourseService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewCourseService(
		repository.NewCourseRepository(db),
		repository.NewInstitutionRepository(db),
		repository.NewStudyItemRepository(db),
	)
	return svc, db
}

func TestCreateCourseValidatesInstitution(t *testing.T) {
	svc, db := newCourseService(t)

	missing := uint(404)
	err := svc.CreateCourse(&model.Course{Title: "数据结构", InstitutionID: &missing})
	assert.Error(t, err)

	inst := model.Institution{Name: "演示大学", Code: "demo"}
	require.NoError(t, db.Create(&inst).Error)

	course := model.Course{Title: "数据结构", InstitutionID: &inst.ID}
	require.NoError(t, svc.CreateCourse(&course))
	assert.NotZero(t, course.ID)

	// 无机构归属的课程同样允许
	require.NoError(t, svc.CreateCourse(&model.Course{Title: "自由课程"}))
}

func TestCreateUnitRequiresCourse(t *testing.T) {
	svc, _ := newCourseService(t)

	err := svc.CreateUnit(&model.CourseUnit{CourseID: 404, Title: "孤儿单元"})

	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestListUnitsOrderedByPosition(t *testing.T) {
	svc, _ := newCourseService(t)

	course := model.Course{Title: "数据结构"}
	require.NoError(t, svc.CreateCourse(&course))
	require.NoError(t, svc.CreateUnit(&model.CourseUnit{CourseID: course.ID, Title: "二叉树", Position: 2}))
	require.NoError(t, svc.CreateUnit(&model.CourseUnit{CourseID: course.ID, Title: "栈与队列", Position: 1}))

	units, err := svc.ListUnits(course.ID)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "栈与队列", units[0].Title)
	assert.Equal(t, "二叉树", units[1].Title)
}

func TestAddItemChecksUnitAlignment(t *testing.T) {
	svc, _ := newCourseService(t)

	course := model.Course{Title: "数据结构"}
	require.NoError(t, svc.CreateCourse(&course))
	other := model.Course{Title: "操作系统"}
	require.NoError(t, svc.CreateCourse(&other))
	unit := model.CourseUnit{CourseID: course.ID, Title: "栈与队列"}
	require.NoError(t, svc.CreateUnit(&unit))

	err := svc.AddItem(&model.StudyItem{
		CourseID: other.ID, UnitID: unit.ID,
		ContentType: model.ContentCuecards, Front: "f", Back: "b",
	})
	assert.Error(t, err, "练习项不能挂到别的课程的单元下")

	item := model.StudyItem{
		CourseID: course.ID, UnitID: unit.ID,
		ContentType: model.ContentCuecards, Front: "f", Back: "b",
	}
	require.NoError(t, svc.AddItem(&item))

	items, err := svc.ListUnitItems(unit.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)
}

func TestListUnitItemsUnknownUnit(t *testing.T) {
	svc, _ := newCourseService(t)

	_, err := svc.ListUnitItems(404)

	assert.ErrorIs(t, err, util.ErrUnitNotFound)
}
