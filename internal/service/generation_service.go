package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"unistudy_backend/internal/config"
	"unistudy_backend/internal/model"
	"unistudy_backend/internal/repository"
	"unistudy_backend/internal/util"
	"unistudy_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GenerationService 外部内容生成服务的客户端与作业登记。
// 提交即返回句柄，不阻塞等待生成完成；完成与否通过作业状态另行观察。
type GenerationService struct {
	JobRepo  *repository.GenerationJobRepository
	ItemRepo *repository.StudyItemRepository
	cfg      config.GenerationAPIConfig
	client   *http.Client
}

func NewGenerationService(jobRepo *repository.GenerationJobRepository, itemRepo *repository.StudyItemRepository, cfg config.GenerationAPIConfig) *GenerationService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if cfg.TimeoutSeconds <= 0 {
		timeout = 30 * time.Second
	}
	return &GenerationService{
		JobRepo:  jobRepo,
		ItemRepo: itemRepo,
		cfg:      cfg,
		client:   &http.Client{Timeout: timeout},
	}
}

type generationJobRequest struct {
	JobID        string                         `json:"jobId"`
	CourseID     uint                           `json:"courseId"`
	UnitID       uint                           `json:"unitId"`
	MaterialRefs []string                       `json:"materialRefs"`
	Config       model.AdaptiveGenerationConfig `json:"config"`
}

type generationJobResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// SubmitJob 提交一个生成作业：携带调用方算好的有效配置快照，
// 外部服务受理后登记作业记录并返回句柄。
func (s *GenerationService) SubmitJob(requestedBy, courseID, unitID uint, materialRefs []string, effective model.AdaptiveGenerationConfig) (*model.GenerationJob, error) {
	handle := model.GenerateUUID()

	reqBody := generationJobRequest{
		JobID:        handle,
		CourseID:     courseID,
		UnitID:       unitID,
		MaterialRefs: materialRefs,
		Config:       effective,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", s.cfg.BaseURL+"/v1/generation/jobs", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("generation API error (status %d): %s", resp.StatusCode, string(body))
	}

	job := &model.GenerationJob{
		Handle:      handle,
		CourseID:    courseID,
		UnitID:      unitID,
		Status:      model.JobSubmitted,
		RequestedBy: requestedBy,
		SubmittedAt: time.Now(),
	}
	if err := job.SetMaterialRefs(materialRefs); err != nil {
		return nil, err
	}
	if err := job.SetConfig(effective); err != nil {
		return nil, err
	}
	if err := s.JobRepo.Create(job); err != nil {
		return nil, err
	}

	logger.Log.Info("生成作业已提交",
		zap.String("handle", handle),
		zap.Uint("courseId", courseID),
		zap.Uint("unitId", unitID))

	return job, nil
}

// GetJob 取作业记录；未到终态时顺带向外部服务刷新一次状态（尽力而为）
func (s *GenerationService) GetJob(handle string) (*model.GenerationJob, error) {
	job, err := s.JobRepo.FindByHandle(handle)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrJobNotFound
		}
		return nil, err
	}

	if job.Status == model.JobSubmitted || job.Status == model.JobProcessing {
		if refreshed := s.refreshStatus(job); refreshed != job.Status {
			job.Status = refreshed
			if err := s.JobRepo.UpdateStatus(job.Handle, refreshed); err != nil {
				logger.Log.Warn("作业状态更新失败", zap.String("handle", job.Handle), zap.Error(err))
			}
		}
	}

	return job, nil
}

// ListByUnit 某单元下的作业记录
func (s *GenerationService) ListByUnit(unitID uint) ([]model.GenerationJob, error) {
	return s.JobRepo.ListByUnit(unitID)
}

// ImportGeneratedItems 生成服务回调入口：按句柄批量落地生成的练习项，
// 全部入库后把作业置为 completed。练习项统一挂到作业所属的课程与单元。
func (s *GenerationService) ImportGeneratedItems(handle string, items []model.StudyItem) (*model.GenerationJob, error) {
	job, err := s.JobRepo.FindByHandle(handle)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrJobNotFound
		}
		return nil, err
	}

	for i := range items {
		items[i].CourseID = job.CourseID
		items[i].UnitID = job.UnitID
		items[i].SourceJobID = &job.ID
		items[i].CreatedBy = job.RequestedBy
	}
	if err := s.ItemRepo.CreateBatch(items); err != nil {
		return nil, err
	}

	if err := s.JobRepo.UpdateStatus(handle, model.JobCompleted); err != nil {
		return nil, err
	}
	job.Status = model.JobCompleted

	logger.Log.Info("生成内容已导入",
		zap.String("handle", handle),
		zap.Int("items", len(items)))

	return job, nil
}

// refreshStatus 向外部服务查询作业状态。查询失败保持原状态不变
func (s *GenerationService) refreshStatus(job *model.GenerationJob) model.JobStatus {
	req, err := http.NewRequest("GET", s.cfg.BaseURL+"/v1/generation/jobs/"+job.Handle, nil)
	if err != nil {
		return job.Status
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		logger.Log.Warn("作业状态查询失败", zap.String("handle", job.Handle), zap.Error(err))
		return job.Status
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return job.Status
	}

	var result generationJobResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return job.Status
	}

	switch model.JobStatus(result.Status) {
	case model.JobProcessing, model.JobCompleted, model.JobFailed:
		return model.JobStatus(result.Status)
	default:
		return job.Status
	}
}
