package controller

import (
	"errors"

	"unistudy_backend/internal/model"
	"unistudy_backend/internal/service"
	"unistudy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// swagger:model CreateCourseRequest
type CreateCourseRequest struct {
	Title         string `json:"title" binding:"required"`
	Code          string `json:"code" binding:"required"`
	Description   string `json:"description"`
	InstitutionID *uint  `json:"institutionId"`
}

// CreateCourse godoc
// @Summary 创建课程
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body CreateCourseRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Course} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/instructor/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CreateCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course := &model.Course{
		Title:         req.Title,
		Code:          req.Code,
		Description:   req.Description,
		InstitutionID: req.InstitutionID,
		CreatedBy:     claims.UserID,
	}
	if err := c.CourseService.CreateCourse(course); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, course)
}

// GetCourse godoc
// @Summary 课程详情
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	course, err := c.CourseService.GetCourse(util.MustParseUint(ctx.Param("id")))
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, course)
}

// ListCourses godoc
// @Summary 课程列表
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   institutionId query int false "按机构过滤"
// @Success 200 {object} util.Response{data=[]model.Course} "成功"
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	courses, err := c.CourseService.ListCourses(util.ParseUintQuery(ctx.Query("institutionId")))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// swagger:model CreateUnitRequest
type CreateUnitRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Position    int    `json:"position"`
}

// CreateUnit godoc
// @Summary 创建课程单元
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   body body CreateUnitRequest true "单元信息"
// @Success 201 {object} util.Response{data=model.CourseUnit} "创建成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/instructor/courses/{id}/units [post]
func (c *CourseController) CreateUnit(ctx *gin.Context) {
	var req CreateUnitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	unit := &model.CourseUnit{
		CourseID:    util.MustParseUint(ctx.Param("id")),
		Title:       req.Title,
		Description: req.Description,
		Position:    req.Position,
	}
	if err := c.CourseService.CreateUnit(unit); err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, unit)
}

// ListUnits godoc
// @Summary 课程单元列表
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.CourseUnit} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id}/units [get]
func (c *CourseController) ListUnits(ctx *gin.Context) {
	units, err := c.CourseService.ListUnits(util.MustParseUint(ctx.Param("id")))
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, units)
}

// swagger:model CreateItemRequest
type CreateItemRequest struct {
	CourseID       uint     `json:"courseId" binding:"required"`
	ContentType    string   `json:"contentType" binding:"required,oneof=cuecards quizzes notes exam_exercises"`
	Front          string   `json:"front"`
	Back           string   `json:"back"`
	Question       string   `json:"question"`
	Answer         string   `json:"answer"`
	Difficulty     float64  `json:"difficulty" binding:"omitempty,min=0,max=10"`
	DifficultyTier string   `json:"difficultyTier" binding:"omitempty,oneof=easy medium hard"`
	Options        []string `json:"options"`
}

// AddItem godoc
// @Summary 添加练习项
// @Description 教师在单元下手工添加卡片或测验题
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "单元ID"
// @Param   body body CreateItemRequest true "练习项内容"
// @Success 201 {object} util.Response{data=model.StudyItem} "创建成功"
// @Failure 404 {object} util.Response "单元不存在"
// @Router /api/instructor/units/{id}/items [post]
func (c *CourseController) AddItem(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CreateItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	item := &model.StudyItem{
		CourseID:       req.CourseID,
		UnitID:         util.MustParseUint(ctx.Param("id")),
		ContentType:    model.ContentType(req.ContentType),
		Front:          req.Front,
		Back:           req.Back,
		Question:       req.Question,
		Answer:         req.Answer,
		Difficulty:     req.Difficulty,
		DifficultyTier: model.DifficultyTier(req.DifficultyTier),
		CreatedBy:      claims.UserID,
	}
	if len(req.Options) > 0 {
		if err := item.SetOptions(req.Options); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	if err := c.CourseService.AddItem(item); err != nil {
		if errors.Is(err, util.ErrUnitNotFound) {
			util.NotFound(ctx)
		} else {
			util.BadRequest(ctx, err.Error())
		}
		return
	}

	util.Created(ctx, item)
}

// ListItems godoc
// @Summary 单元练习项列表
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "单元ID"
// @Success 200 {object} util.Response{data=[]model.StudyItem} "成功"
// @Failure 404 {object} util.Response "单元不存在"
// @Router /api/units/{id}/items [get]
func (c *CourseController) ListItems(ctx *gin.Context) {
	items, err := c.CourseService.ListUnitItems(util.MustParseUint(ctx.Param("id")))
	if err != nil {
		if errors.Is(err, util.ErrUnitNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, items)
}

// ListInstitutions godoc
// @Summary 机构列表
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Institution} "成功"
// @Router /api/institutions [get]
func (c *CourseController) ListInstitutions(ctx *gin.Context) {
	institutions, err := c.CourseService.ListInstitutions()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, institutions)
}
