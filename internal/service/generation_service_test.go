package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"unistudy_backend/internal/config"
	"unistudy_backend/internal/model"
	"unistudy_backend/internal/repository"
	"unistudy_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeGenerationAPI 替身生成服务：记录收到的提交请求，按配置应答状态查询
type fakeGenerationAPI struct {
	server       *httptest.Server
	submitStatus int
	queryStatus  model.JobStatus
	lastSubmit   generationJobRequest
	lastAuth     string
	queryCalls   int
}

func newFakeGenerationAPI(t *testing.T) *fakeGenerationAPI {
	t.Helper()
	f := &fakeGenerationAPI{submitStatus: http.StatusAccepted, queryStatus: model.JobSubmitted}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/generation/jobs":
			json.NewDecoder(r.Body).Decode(&f.lastSubmit)
			w.WriteHeader(f.submitStatus)
			json.NewEncoder(w).Encode(generationJobResponse{JobID: f.lastSubmit.JobID, Status: "submitted"})
		case r.Method == http.MethodGet:
			f.queryCalls++
			json.NewEncoder(w).Encode(generationJobResponse{Status: string(f.queryStatus)})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func newGenerationEnv(t *testing.T) (*GenerationService, *fakeGenerationAPI, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	api := newFakeGenerationAPI(t)
	svc := NewGenerationService(
		repository.NewGenerationJobRepository(db),
		repository.NewStudyItemRepository(db),
		config.GenerationAPIConfig{BaseURL: api.server.URL, APIKey: "test-key", TimeoutSeconds: 5},
	)
	return svc, api, db
}

func submittedConfig() model.AdaptiveGenerationConfig {
	return model.AdaptiveGenerationConfig{
		GenerationConfig:  model.DefaultGenerationConfig(),
		Profile:           model.DefaultPerformanceProfile(),
		AdaptationReasons: []string{},
	}
}

func TestSubmitJobRegistersHandle(t *testing.T) {
	svc, api, _ := newGenerationEnv(t)

	job, err := svc.SubmitJob(9, 5, 3, []string{"ref://slides-week1"}, submittedConfig())
	require.NoError(t, err)

	assert.NotEmpty(t, job.Handle)
	assert.Equal(t, model.JobSubmitted, job.Status)
	assert.Equal(t, uint(9), job.RequestedBy)
	assert.Equal(t, []string{"ref://slides-week1"}, job.MaterialRefList())

	// 外部请求必须带句柄、作用域和鉴权
	assert.Equal(t, job.Handle, api.lastSubmit.JobID)
	assert.Equal(t, uint(5), api.lastSubmit.CourseID)
	assert.Equal(t, uint(3), api.lastSubmit.UnitID)
	assert.Equal(t, "Bearer test-key", api.lastAuth)

	// 落库记录可按句柄取回
	stored, err := svc.GetJob(job.Handle)
	require.NoError(t, err)
	assert.Equal(t, job.ID, stored.ID)
}

func TestSubmitJobUpstreamRejection(t *testing.T) {
	svc, api, db := newGenerationEnv(t)
	api.submitStatus = http.StatusBadRequest

	_, err := svc.SubmitJob(9, 5, 3, nil, submittedConfig())

	require.Error(t, err)
	var count int64
	require.NoError(t, db.Model(&model.GenerationJob{}).Count(&count).Error)
	assert.Zero(t, count, "上游拒绝时不登记作业")
}

func TestGetJobRefreshesNonTerminalStatus(t *testing.T) {
	svc, api, _ := newGenerationEnv(t)

	job, err := svc.SubmitJob(9, 5, 3, nil, submittedConfig())
	require.NoError(t, err)

	api.queryStatus = model.JobProcessing
	refreshed, err := svc.GetJob(job.Handle)
	require.NoError(t, err)
	assert.Equal(t, model.JobProcessing, refreshed.Status)

	// 刷新结果已持久化
	again, err := svc.JobRepo.FindByHandle(job.Handle)
	require.NoError(t, err)
	assert.Equal(t, model.JobProcessing, again.Status)
}

func TestGetJobSkipsRefreshForTerminalStatus(t *testing.T) {
	svc, api, _ := newGenerationEnv(t)

	job, err := svc.SubmitJob(9, 5, 3, nil, submittedConfig())
	require.NoError(t, err)
	require.NoError(t, svc.JobRepo.UpdateStatus(job.Handle, model.JobFailed))

	api.queryCalls = 0
	got, err := svc.GetJob(job.Handle)
	require.NoError(t, err)

	assert.Equal(t, model.JobFailed, got.Status)
	assert.Zero(t, api.queryCalls, "终态作业不再查询外部服务")
}

func TestGetJobUnknownHandle(t *testing.T) {
	svc, _, _ := newGenerationEnv(t)

	_, err := svc.GetJob("no-such-handle")

	assert.ErrorIs(t, err, util.ErrJobNotFound)
}

func TestImportGeneratedItems(t *testing.T) {
	svc, _, db := newGenerationEnv(t)

	job, err := svc.SubmitJob(9, 5, 3, nil, submittedConfig())
	require.NoError(t, err)

	items := []model.StudyItem{
		{ContentType: model.ContentCuecards, Front: "正面", Back: "背面"},
		{ContentType: model.ContentQuizzes, Question: "题干", Answer: "答案", DifficultyTier: model.TierMedium},
	}
	done, err := svc.ImportGeneratedItems(job.Handle, items)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, done.Status)

	var stored []model.StudyItem
	require.NoError(t, db.Where("source_job_id = ?", job.ID).Order("id").Find(&stored).Error)
	require.Len(t, stored, 2)
	for _, item := range stored {
		assert.Equal(t, uint(5), item.CourseID, "生成项统一挂到作业所属课程")
		assert.Equal(t, uint(3), item.UnitID)
		assert.Equal(t, uint(9), item.CreatedBy)
	}

	jobs, err := svc.ListByUnit(3)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, model.JobCompleted, jobs[0].Status)
}
