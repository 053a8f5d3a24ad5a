package controller

import (
	"errors"

	"unistudy_backend/internal/model"
	"unistudy_backend/internal/service"
	"unistudy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ConfigController struct {
	ConfigService *service.ConfigService
	StudyService  *service.StudyService
}

func NewConfigController(configService *service.ConfigService, studyService *service.StudyService) *ConfigController {
	return &ConfigController{
		ConfigService: configService,
		StudyService:  studyService,
	}
}

// SettingsPayload 生成设置的写入载荷。全部字段可省略，省略即不覆盖下层来源。
// swagger:model SettingsPayload
type SettingsPayload struct {
	CuecardsCount      *int    `json:"cuecardsCount" binding:"omitempty,min=0,max=50"`
	QuizzesCount       *int    `json:"quizzesCount" binding:"omitempty,min=0,max=50"`
	NotesCount         *int    `json:"notesCount" binding:"omitempty,min=0,max=50"`
	ExamExercisesCount *int    `json:"examExercisesCount" binding:"omitempty,min=0,max=50"`
	Difficulty         *string `json:"difficulty" binding:"omitempty,oneof=beginner intermediate advanced"`
	Focus              *string `json:"focus" binding:"omitempty,oneof=conceptual practical balanced"`
	QuizQuestionType   *string `json:"quizQuestionType" binding:"omitempty,oneof=multiple_choice open_ended mixed"`
	NotesStyle         *string `json:"notesStyle" binding:"omitempty,oneof=outline detailed summary"`
	ExamDurationMin    *int    `json:"examDurationMinutes" binding:"omitempty,min=5,max=180"`
}

func (p SettingsPayload) toSettings() model.GenerationSettings {
	s := model.GenerationSettings{
		CuecardsCount:      p.CuecardsCount,
		QuizzesCount:       p.QuizzesCount,
		NotesCount:         p.NotesCount,
		ExamExercisesCount: p.ExamExercisesCount,
		QuizQuestionType:   p.QuizQuestionType,
		NotesStyle:         p.NotesStyle,
		ExamDurationMin:    p.ExamDurationMin,
	}
	if p.Difficulty != nil {
		d := model.Difficulty(*p.Difficulty)
		s.Difficulty = &d
	}
	if p.Focus != nil {
		f := model.FocusArea(*p.Focus)
		s.Focus = &f
	}
	return s
}

// GetEffective godoc
// @Summary 有效生成配置
// @Description 当前用户在课程/单元上的有效配置（含自适应调整与原因链）
// @Tags 生成配置
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId query int true "课程ID"
// @Param   unitId query int false "单元ID"
// @Success 200 {object} util.Response{data=model.AdaptiveGenerationConfig} "成功"
// @Failure 400 {object} util.Response "缺少课程ID"
// @Router /api/config/effective [get]
func (c *ConfigController) GetEffective(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID := util.MustParseUint(ctx.Query("courseId"))
	if courseID == 0 {
		util.BadRequest(ctx, "courseId is required")
		return
	}
	unitID := util.ParseUintQuery(ctx.Query("unitId"))

	adapted, err := c.StudyService.AdaptiveConfigFor(claims.UserID, courseID, unitID)
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, adapted)
}

// SavePreference godoc
// @Summary 保存个人生成偏好
// @Description 保存当前用户的生成偏好，courseId 非空时为课程级偏好
// @Tags 生成配置
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId query int false "课程ID"
// @Param   body body SettingsPayload true "生成设置"
// @Success 201 {object} util.Response{data=model.GenerationConfigRecord} "保存成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "并发写入冲突"
// @Router /api/config/preferences [put]
func (c *ConfigController) SavePreference(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var payload SettingsPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	courseID := util.ParseUintQuery(ctx.Query("courseId"))
	record, err := c.ConfigService.SaveUserPreference(claims.UserID, courseID, payload.toSettings(), claims.UserID)
	c.respondSaved(ctx, record, err)
}

// SaveCourseDefault godoc
// @Summary 保存课程默认配置
// @Description 教师为课程设置默认生成配置
// @Tags 生成配置
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path int true "课程ID"
// @Param   body body SettingsPayload true "生成设置"
// @Success 201 {object} util.Response{data=model.GenerationConfigRecord} "保存成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "并发写入冲突"
// @Router /api/instructor/config/courses/{courseId} [put]
func (c *ConfigController) SaveCourseDefault(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var payload SettingsPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	courseID := util.MustParseUint(ctx.Param("courseId"))
	record, err := c.ConfigService.SaveCourseDefault(courseID, payload.toSettings(), claims.UserID)
	c.respondSaved(ctx, record, err)
}

// SaveUnitOverride godoc
// @Summary 保存单元覆盖配置
// @Description 教师为某课程单元设置覆盖配置，优先级高于课程默认与个人偏好
// @Tags 生成配置
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path int true "课程ID"
// @Param   unitId path int true "单元ID"
// @Param   body body SettingsPayload true "生成设置"
// @Success 201 {object} util.Response{data=model.GenerationConfigRecord} "保存成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "并发写入冲突"
// @Router /api/instructor/config/courses/{courseId}/units/{unitId} [put]
func (c *ConfigController) SaveUnitOverride(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var payload SettingsPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	courseID := util.MustParseUint(ctx.Param("courseId"))
	unitID := util.MustParseUint(ctx.Param("unitId"))
	record, err := c.ConfigService.SaveUnitOverride(courseID, unitID, payload.toSettings(), claims.UserID)
	c.respondSaved(ctx, record, err)
}

// SaveInstitutionDefault godoc
// @Summary 保存机构默认配置
// @Description 管理员为机构设置默认生成配置
// @Tags 生成配置
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   institutionId path int true "机构ID"
// @Param   body body SettingsPayload true "生成设置"
// @Success 201 {object} util.Response{data=model.GenerationConfigRecord} "保存成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "并发写入冲突"
// @Router /api/admin/config/institutions/{institutionId} [put]
func (c *ConfigController) SaveInstitutionDefault(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var payload SettingsPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	institutionID := util.MustParseUint(ctx.Param("institutionId"))
	record, err := c.ConfigService.SaveInstitutionDefault(institutionID, payload.toSettings(), claims.UserID)
	c.respondSaved(ctx, record, err)
}

// History godoc
// @Summary 配置历史
// @Description 某来源某作用域的历史配置快照，审计用
// @Tags 生成配置
// @Produce  json
// @Security ApiKeyAuth
// @Param   source query string true "配置来源"
// @Param   institutionId query int false "机构ID"
// @Param   courseId query int false "课程ID"
// @Param   unitId query int false "单元ID"
// @Param   userId query int false "用户ID"
// @Param   limit query int false "数量上限，默认20"
// @Success 200 {object} util.Response{data=[]model.GenerationConfigRecord} "成功"
// @Failure 400 {object} util.Response "来源无效"
// @Router /api/instructor/config/history [get]
func (c *ConfigController) History(ctx *gin.Context) {
	source := model.ConfigSource(ctx.Query("source"))
	switch source {
	case model.SourceSystemDefault, model.SourceInstitutionDefault, model.SourceCourseDefault,
		model.SourceUserPreference, model.SourceUnitOverride, model.SourceAdaptiveAlgorithm:
	default:
		util.BadRequest(ctx, "invalid source")
		return
	}

	scope := model.ConfigScope{
		InstitutionID: util.ParseUintQuery(ctx.Query("institutionId")),
		CourseID:      util.ParseUintQuery(ctx.Query("courseId")),
		UnitID:        util.ParseUintQuery(ctx.Query("unitId")),
		UserID:        util.ParseUintQuery(ctx.Query("userId")),
	}
	limit := int(util.MustParseUint(ctx.Query("limit")))

	records, err := c.ConfigService.History(source, scope, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, records)
}

func (c *ConfigController) respondSaved(ctx *gin.Context, record *model.GenerationConfigRecord, err error) {
	if err != nil {
		if errors.Is(err, util.ErrConfigConflict) {
			util.Conflict(ctx, "配置保存冲突，请稍后重试")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, record)
}
