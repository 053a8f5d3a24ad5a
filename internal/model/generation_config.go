package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// ConfigSource 配置来源，六个固定来源按优先级参与合并
type ConfigSource string

const (
	SourceSystemDefault      ConfigSource = "system_default"
	SourceInstitutionDefault ConfigSource = "institution_default"
	SourceCourseDefault      ConfigSource = "course_default"
	SourceUserPreference     ConfigSource = "user_preference"
	SourceUnitOverride       ConfigSource = "unit_override"
	SourceAdaptiveAlgorithm  ConfigSource = "adaptive_algorithm"
)

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

type FocusArea string

const (
	FocusConceptual FocusArea = "conceptual"
	FocusPractical  FocusArea = "practical"
	FocusBalanced   FocusArea = "balanced"
)

// ContentType 生成内容类型，同时是练习项的类型标识
type ContentType string

const (
	ContentCuecards      ContentType = "cuecards"
	ContentQuizzes       ContentType = "quizzes"
	ContentNotes         ContentType = "notes"
	ContentExamExercises ContentType = "exam_exercises"
)

// AllContentTypes 固定枚举顺序，聚合与测试依赖稳定遍历顺序
var AllContentTypes = []ContentType{ContentCuecards, ContentQuizzes, ContentNotes, ContentExamExercises}

// ConfigScope 配置作用域。不同来源只填充各自需要的字段：
// institution_default 填 InstitutionID，course_default 填 CourseID，
// user_preference 填 UserID（可带 CourseID），unit_override 填 CourseID+UnitID，
// adaptive_algorithm 填 UserID+CourseID+UnitID，system_default 全空。
type ConfigScope struct {
	InstitutionID *uint `json:"institutionId,omitempty"`
	CourseID      *uint `json:"courseId,omitempty"`
	UnitID        *uint `json:"unitId,omitempty"`
	UserID        *uint `json:"userId,omitempty"`
}

// Key 规范化作用域键，缺失的部分记 0，保证同一作用域生成同一键
func (s ConfigScope) Key() string {
	v := func(p *uint) uint {
		if p == nil {
			return 0
		}
		return *p
	}
	return fmt.Sprintf("i:%d|c:%d|u:%d|usr:%d", v(s.InstitutionID), v(s.CourseID), v(s.UnitID), v(s.UserID))
}

// GenerationSettings 稀疏配置载荷。指针字段区分“未设置”和“设为零值”，
// 合并时只有非 nil 字段参与覆盖。
type GenerationSettings struct {
	CuecardsCount      *int        `json:"cuecardsCount,omitempty"`
	QuizzesCount       *int        `json:"quizzesCount,omitempty"`
	NotesCount         *int        `json:"notesCount,omitempty"`
	ExamExercisesCount *int        `json:"examExercisesCount,omitempty"`
	Difficulty         *Difficulty `json:"difficulty,omitempty"`
	Focus              *FocusArea  `json:"focus,omitempty"`
	QuizQuestionType   *string     `json:"quizQuestionType,omitempty"`
	NotesStyle         *string     `json:"notesStyle,omitempty"`
	ExamDurationMin    *int        `json:"examDurationMinutes,omitempty"`
}

// GenerationConfig 合并后的有效配置，所有字段已填充
// swagger:model GenerationConfig
type GenerationConfig struct {
	CuecardsCount      int        `json:"cuecardsCount"`
	QuizzesCount       int        `json:"quizzesCount"`
	NotesCount         int        `json:"notesCount"`
	ExamExercisesCount int        `json:"examExercisesCount"`
	Difficulty         Difficulty `json:"difficulty"`
	Focus              FocusArea  `json:"focus"`
	QuizQuestionType   string     `json:"quizQuestionType"`
	NotesStyle         string     `json:"notesStyle"`
	ExamDurationMin    int        `json:"examDurationMinutes"`
}

// DefaultGenerationConfig 系统默认基线，合并引擎的起点
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		CuecardsCount:      10,
		QuizzesCount:       5,
		NotesCount:         3,
		ExamExercisesCount: 5,
		Difficulty:         DifficultyIntermediate,
		Focus:              FocusBalanced,
		QuizQuestionType:   "multiple_choice",
		NotesStyle:         "outline",
		ExamDurationMin:    30,
	}
}

func (c *GenerationConfig) CountFor(ct ContentType) int {
	switch ct {
	case ContentCuecards:
		return c.CuecardsCount
	case ContentQuizzes:
		return c.QuizzesCount
	case ContentNotes:
		return c.NotesCount
	case ContentExamExercises:
		return c.ExamExercisesCount
	}
	return 0
}

func (c *GenerationConfig) SetCount(ct ContentType, n int) {
	switch ct {
	case ContentCuecards:
		c.CuecardsCount = n
	case ContentQuizzes:
		c.QuizzesCount = n
	case ContentNotes:
		c.NotesCount = n
	case ContentExamExercises:
		c.ExamExercisesCount = n
	}
}

// AsSettings 把已填满的配置转成稀疏载荷（全字段非 nil），落库快照用
func (c GenerationConfig) AsSettings() GenerationSettings {
	return GenerationSettings{
		CuecardsCount:      &c.CuecardsCount,
		QuizzesCount:       &c.QuizzesCount,
		NotesCount:         &c.NotesCount,
		ExamExercisesCount: &c.ExamExercisesCount,
		Difficulty:         &c.Difficulty,
		Focus:              &c.Focus,
		QuizQuestionType:   &c.QuizQuestionType,
		NotesStyle:         &c.NotesStyle,
		ExamDurationMin:    &c.ExamDurationMin,
	}
}

// AdaptiveGenerationConfig 自适应调整结果：有效配置 + 画像 + 调整原因链
// swagger:model AdaptiveGenerationConfig
type AdaptiveGenerationConfig struct {
	GenerationConfig
	Profile           PerformanceProfile `json:"profile"`
	AdaptationReasons []string           `json:"adaptationReasons"`
}

// GenerationConfigRecord 一次配置快照。
// 激活约束：除 adaptive_algorithm 外，每个 (source, scope_key) 最多一条激活记录，
// 由 active_key 唯一索引保证（激活时 active_key = source|scope_key，停用时置 NULL）。
// adaptive_algorithm 为只增日志：active_key 恒为 NULL，读取按 applied_at 取最新。
type GenerationConfigRecord struct {
	BaseModel
	Source            ConfigSource   `gorm:"size:40;not null;index:idx_source_scope" json:"source"`
	InstitutionID     *uint          `json:"institutionId,omitempty"`
	CourseID          *uint          `gorm:"index" json:"courseId,omitempty"`
	UnitID            *uint          `gorm:"index" json:"unitId,omitempty"`
	UserID            *uint          `gorm:"index" json:"userId,omitempty"`
	ScopeKey          string         `gorm:"size:120;not null;index:idx_source_scope" json:"-"`
	ActiveKey         *string        `gorm:"size:170;uniqueIndex" json:"-"`
	Payload           datatypes.JSON `gorm:"not null" json:"payload"`
	IsActive          bool           `gorm:"default:true;index" json:"isActive"`
	AppliedAt         time.Time      `gorm:"index" json:"appliedAt"`
	CreatedBy         uint           `json:"createdBy"`
	AdaptationReasons datatypes.JSON `json:"adaptationReasons,omitempty"`
}

func (GenerationConfigRecord) TableName() string {
	return "generation_config_records"
}

func (r *GenerationConfigRecord) Scope() ConfigScope {
	return ConfigScope{
		InstitutionID: r.InstitutionID,
		CourseID:      r.CourseID,
		UnitID:        r.UnitID,
		UserID:        r.UserID,
	}
}

func (r *GenerationConfigRecord) Settings() (GenerationSettings, error) {
	var s GenerationSettings
	if len(r.Payload) == 0 {
		return s, nil
	}
	err := json.Unmarshal(r.Payload, &s)
	return s, err
}

func (r *GenerationConfigRecord) SetSettings(s GenerationSettings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	r.Payload = datatypes.JSON(data)
	return nil
}

func (r *GenerationConfigRecord) SetReasons(reasons []string) error {
	data, err := json.Marshal(reasons)
	if err != nil {
		return err
	}
	r.AdaptationReasons = datatypes.JSON(data)
	return nil
}
