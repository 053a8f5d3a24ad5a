package controller

import (
	"errors"

	"unistudy_backend/internal/model"
	"unistudy_backend/internal/service"
	"unistudy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GenerationController struct {
	GenerationService *service.GenerationService
	StudyService      *service.StudyService
}

func NewGenerationController(generationService *service.GenerationService, studyService *service.StudyService) *GenerationController {
	return &GenerationController{
		GenerationService: generationService,
		StudyService:      studyService,
	}
}

// swagger:model SubmitJobRequest
type SubmitJobRequest struct {
	CourseID     uint     `json:"courseId" binding:"required"`
	UnitID       uint     `json:"unitId" binding:"required"`
	MaterialRefs []string `json:"materialRefs"`
}

// SubmitJob godoc
// @Summary 提交生成作业
// @Description 以当前用户的自适应有效配置向生成服务提交作业，立即返回句柄
// @Tags 内容生成
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body SubmitJobRequest true "作业参数"
// @Success 201 {object} util.Response{data=model.GenerationJob} "提交成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 502 {object} util.Response "生成服务不可用"
// @Router /api/instructor/generation/jobs [post]
func (c *GenerationController) SubmitJob(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SubmitJobRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	effective, err := c.StudyService.AdaptiveConfigFor(claims.UserID, req.CourseID, &req.UnitID)
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	job, err := c.GenerationService.SubmitJob(claims.UserID, req.CourseID, req.UnitID, req.MaterialRefs, effective)
	if err != nil {
		util.Error(ctx, 502, "生成服务不可用: "+err.Error())
		return
	}

	util.Created(ctx, job)
}

// GetJob godoc
// @Summary 查询生成作业
// @Description 按句柄查询作业，未到终态时顺带刷新一次外部状态
// @Tags 内容生成
// @Produce  json
// @Security ApiKeyAuth
// @Param   handle path string true "作业句柄"
// @Success 200 {object} util.Response{data=model.GenerationJob} "成功"
// @Failure 404 {object} util.Response "作业不存在"
// @Router /api/instructor/generation/jobs/{handle} [get]
func (c *GenerationController) GetJob(ctx *gin.Context) {
	job, err := c.GenerationService.GetJob(ctx.Param("handle"))
	if err != nil {
		if errors.Is(err, util.ErrJobNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, job)
}

// ListUnitJobs godoc
// @Summary 单元作业列表
// @Tags 内容生成
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "单元ID"
// @Success 200 {object} util.Response{data=[]model.GenerationJob} "成功"
// @Router /api/instructor/generation/units/{id}/jobs [get]
func (c *GenerationController) ListUnitJobs(ctx *gin.Context) {
	jobs, err := c.GenerationService.ListByUnit(util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, jobs)
}

// swagger:model GeneratedItemPayload
type GeneratedItemPayload struct {
	ContentType    string   `json:"contentType" binding:"required,oneof=cuecards quizzes notes exam_exercises"`
	Front          string   `json:"front"`
	Back           string   `json:"back"`
	Question       string   `json:"question"`
	Answer         string   `json:"answer"`
	Difficulty     float64  `json:"difficulty" binding:"omitempty,min=0,max=10"`
	DifficultyTier string   `json:"difficultyTier" binding:"omitempty,oneof=easy medium hard"`
	Options        []string `json:"options"`
}

// swagger:model ImportItemsRequest
type ImportItemsRequest struct {
	Items []GeneratedItemPayload `json:"items" binding:"required,dive"`
}

// ImportItems godoc
// @Summary 导入生成内容
// @Description 生成服务回调：把生成完成的练习项批量落库并标记作业完成
// @Tags 内容生成
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   handle path string true "作业句柄"
// @Param   body body ImportItemsRequest true "生成的练习项"
// @Success 200 {object} util.Response{data=model.GenerationJob} "导入成功"
// @Failure 404 {object} util.Response "作业不存在"
// @Router /api/instructor/generation/jobs/{handle}/items [post]
func (c *GenerationController) ImportItems(ctx *gin.Context) {
	var req ImportItemsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	items := make([]model.StudyItem, 0, len(req.Items))
	for _, p := range req.Items {
		item := model.StudyItem{
			ContentType:    model.ContentType(p.ContentType),
			Front:          p.Front,
			Back:           p.Back,
			Question:       p.Question,
			Answer:         p.Answer,
			Difficulty:     p.Difficulty,
			DifficultyTier: model.DifficultyTier(p.DifficultyTier),
		}
		if len(p.Options) > 0 {
			if err := item.SetOptions(p.Options); err != nil {
				util.BadRequest(ctx, err.Error())
				return
			}
		}
		items = append(items, item)
	}

	job, err := c.GenerationService.ImportGeneratedItems(ctx.Param("handle"), items)
	if err != nil {
		if errors.Is(err, util.ErrJobNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, job)
}
