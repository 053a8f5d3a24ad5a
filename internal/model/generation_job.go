package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type JobStatus string

const (
	JobSubmitted  JobStatus = "submitted"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// GenerationJob 一次外部内容生成请求。提交后只持有句柄，
// 不阻塞等待完成；状态按需向生成服务刷新。
// swagger:model GenerationJob
type GenerationJob struct {
	BaseModel
	Handle       string         `gorm:"size:36;uniqueIndex;not null" json:"handle"`
	CourseID     uint           `gorm:"index;not null" json:"courseId"`
	UnitID       uint           `gorm:"index;not null" json:"unitId"`
	MaterialRefs datatypes.JSON `json:"materialRefs"`
	Config       datatypes.JSON `gorm:"not null" json:"config"` // 提交时的有效配置快照
	Status       JobStatus      `gorm:"size:20;default:'submitted';index" json:"status"`
	RequestedBy  uint           `gorm:"index" json:"requestedBy"`
	SubmittedAt  time.Time      `json:"submittedAt"`
}

func (GenerationJob) TableName() string {
	return "generation_jobs"
}

func (j *GenerationJob) SetMaterialRefs(refs []string) error {
	data, err := json.Marshal(refs)
	if err != nil {
		return err
	}
	j.MaterialRefs = datatypes.JSON(data)
	return nil
}

func (j *GenerationJob) MaterialRefList() []string {
	var refs []string
	if len(j.MaterialRefs) > 0 {
		json.Unmarshal(j.MaterialRefs, &refs)
	}
	return refs
}

func (j *GenerationJob) SetConfig(cfg AdaptiveGenerationConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	j.Config = datatypes.JSON(data)
	return nil
}
