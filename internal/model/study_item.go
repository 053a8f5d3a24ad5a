package model

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// DifficultyTier 测验题的离散难度档
type DifficultyTier string

const (
	TierEasy   DifficultyTier = "easy"
	TierMedium DifficultyTier = "medium"
	TierHard   DifficultyTier = "hard"
)

// StudyItem 题库中的一条练习项（卡片或测验题）。
// Difficulty 为 0-10 连续值，测验题另带离散档 DifficultyTier。
// swagger:model StudyItem
type StudyItem struct {
	BaseModel
	CourseID       uint           `gorm:"index:idx_item_course_unit;not null" json:"courseId"`
	UnitID         uint           `gorm:"index:idx_item_course_unit;not null" json:"unitId"`
	ContentType    ContentType    `gorm:"size:30;index;not null" json:"contentType"`
	Front          string         `gorm:"type:text" json:"front,omitempty"`    // 卡片正面
	Back           string         `gorm:"type:text" json:"back,omitempty"`     // 卡片背面
	Question       string         `gorm:"type:text" json:"question,omitempty"` // 测验题干
	Answer         string         `gorm:"type:text" json:"answer,omitempty"`
	Options        datatypes.JSON `json:"options,omitempty"` // 测验选项数组
	Difficulty     float64        `gorm:"default:5" json:"difficulty"`
	DifficultyTier DifficultyTier `gorm:"size:10" json:"difficultyTier,omitempty"`
	SourceJobID    *uint          `gorm:"index" json:"sourceJobId,omitempty"`
	CreatedBy      uint           `json:"createdBy"`
}

func (StudyItem) TableName() string {
	return "study_items"
}

func (i *StudyItem) SetOptions(options []string) error {
	data, err := json.Marshal(options)
	if err != nil {
		return err
	}
	i.Options = datatypes.JSON(data)
	return nil
}

func (i *StudyItem) OptionList() []string {
	var options []string
	if len(i.Options) > 0 {
		json.Unmarshal(i.Options, &options)
	}
	return options
}
