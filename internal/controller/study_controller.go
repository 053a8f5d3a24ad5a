package controller

import (
	"errors"

	"unistudy_backend/internal/service"
	"unistudy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StudyController struct {
	StudyService *service.StudyService
}

func NewStudyController(studyService *service.StudyService) *StudyController {
	return &StudyController{StudyService: studyService}
}

// StartSession godoc
// @Summary 开始学习会话
// @Description 按有效配置与表现画像选题，创建一次学习会话
// @Tags 学习会话
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.StartSessionRequest true "会话参数"
// @Success 201 {object} util.Response{data=service.SessionPlan} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 404 {object} util.Response "课程不存在"
// @Failure 409 {object} util.Response "会话创建中"
// @Router /api/study/sessions [post]
func (c *StudyController) StartSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.StartSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	plan, err := c.StudyService.StartSession(claims.UserID, req)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrSessionInProgress):
			util.Conflict(ctx, err.Error())
		case errors.Is(err, util.ErrCourseNotFound), errors.Is(err, util.ErrUserNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, plan)
}

// GetSession godoc
// @Summary 查看学习会话
// @Description 获取会话及其有序练习项
// @Tags 学习会话
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "会话ID"
// @Success 200 {object} util.Response{data=service.SessionPlan} "成功"
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/study/sessions/{id} [get]
func (c *StudyController) GetSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	sessionID := util.MustParseUint(ctx.Param("id"))
	plan, err := c.StudyService.GetSession(claims.UserID, sessionID)
	if err != nil {
		if errors.Is(err, util.ErrSessionNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, plan)
}

// ListSessions godoc
// @Summary 会话列表
// @Description 当前用户最近的学习会话
// @Tags 学习会话
// @Produce  json
// @Security ApiKeyAuth
// @Param   limit query int false "数量上限，默认20"
// @Success 200 {object} util.Response{data=[]model.StudySession} "成功"
// @Router /api/study/sessions [get]
func (c *StudyController) ListSessions(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	limit := int(util.MustParseUint(ctx.Query("limit")))
	sessions, err := c.StudyService.ListSessions(claims.UserID, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, sessions)
}

// RecordResponse godoc
// @Summary 提交一次作答
// @Description 记录作答并更新间隔重复排程与薄弱点
// @Tags 学习会话
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "会话ID"
// @Param   body body service.ResponseInput true "作答内容"
// @Success 200 {object} util.Response{data=model.ItemSchedule} "成功"
// @Failure 400 {object} util.Response "会话已结束或参数错误"
// @Failure 404 {object} util.Response "会话或练习项不存在"
// @Router /api/study/sessions/{id}/responses [post]
func (c *StudyController) RecordResponse(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ResponseInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sessionID := util.MustParseUint(ctx.Param("id"))
	schedule, err := c.StudyService.RecordResponse(claims.UserID, sessionID, req)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrSessionNotFound), errors.Is(err, util.ErrItemNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrSessionNotActive):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, schedule)
}

// swagger:model FinishSessionRequest
type FinishSessionRequest struct {
	Responses []service.ResponseInput `json:"responses"`
}

// FinishSession godoc
// @Summary 结束学习会话
// @Description 可携带未提交的作答批量处理后，把会话标记为完成
// @Tags 学习会话
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "会话ID"
// @Param   body body FinishSessionRequest false "收尾批量作答"
// @Success 200 {object} util.Response{data=model.StudySession} "成功"
// @Failure 400 {object} util.Response "会话已结束"
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/study/sessions/{id}/finish [post]
func (c *StudyController) FinishSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req FinishSessionRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	sessionID := util.MustParseUint(ctx.Param("id"))
	session, err := c.StudyService.FinishSession(claims.UserID, sessionID, req.Responses)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrSessionNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrSessionNotActive):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, session)
}

// GetPerformance godoc
// @Summary 表现画像
// @Description 当前用户在某课程下的表现画像，分析失败时返回中性画像
// @Tags 学习会话
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId query int true "课程ID"
// @Success 200 {object} util.Response{data=model.PerformanceProfile} "成功"
// @Failure 400 {object} util.Response "缺少课程ID"
// @Router /api/study/performance [get]
func (c *StudyController) GetPerformance(ctx *gin.Context) {
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

	util.Success(ctx, c.StudyService.Profile(claims.UserID, courseID))
}
