package service

import (
	"sort"

	"unistudy_backend/internal/model"
)

// DefaultSourcePriorities 六个配置来源的固定优先级，数值大者胜出。
// 启动时构建一次并注入合并引擎，之后不可变。
func DefaultSourcePriorities() map[model.ConfigSource]int {
	return map[model.ConfigSource]int{
		model.SourceAdaptiveAlgorithm:  100,
		model.SourceUnitOverride:       80,
		model.SourceUserPreference:     60,
		model.SourceCourseDefault:      40,
		model.SourceInstitutionDefault: 30,
		model.SourceSystemDefault:      20,
	}
}

// MergeEngine 把零到多条配置快照合并成一份完整的有效配置。
// 纯函数引擎：除构造时注入的优先级表外不依赖任何外部状态。
type MergeEngine struct {
	priorities map[model.ConfigSource]int
}

func NewMergeEngine(priorities map[model.ConfigSource]int) *MergeEngine {
	copied := make(map[model.ConfigSource]int, len(priorities))
	for source, p := range priorities {
		copied[source] = p
	}
	return &MergeEngine{priorities: copied}
}

func (e *MergeEngine) Priority(source model.ConfigSource) int {
	return e.priorities[source]
}

// Merge 从系统默认基线出发，按优先级从低到高逐层覆盖：
// 高优先级来源中出现的字段总是胜出，缺失字段向低优先级穿透，
// 最终每个字段都有值（基线兜底）。载荷损坏的快照按“来源缺席”处理。
func (e *MergeEngine) Merge(records []model.GenerationConfigRecord) model.GenerationConfig {
	merged := model.DefaultGenerationConfig()

	sorted := make([]model.GenerationConfigRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return e.Priority(sorted[i].Source) < e.Priority(sorted[j].Source)
	})

	for i := range sorted {
		settings, err := sorted[i].Settings()
		if err != nil {
			continue
		}
		overlaySettings(&merged, settings)
	}
	return merged
}

// overlaySettings 字段级覆盖：载荷里非 nil 的字段写入累加器
func overlaySettings(cfg *model.GenerationConfig, s model.GenerationSettings) {
	if s.CuecardsCount != nil {
		cfg.CuecardsCount = *s.CuecardsCount
	}
	if s.QuizzesCount != nil {
		cfg.QuizzesCount = *s.QuizzesCount
	}
	if s.NotesCount != nil {
		cfg.NotesCount = *s.NotesCount
	}
	if s.ExamExercisesCount != nil {
		cfg.ExamExercisesCount = *s.ExamExercisesCount
	}
	if s.Difficulty != nil {
		cfg.Difficulty = *s.Difficulty
	}
	if s.Focus != nil {
		cfg.Focus = *s.Focus
	}
	if s.QuizQuestionType != nil {
		cfg.QuizQuestionType = *s.QuizQuestionType
	}
	if s.NotesStyle != nil {
		cfg.NotesStyle = *s.NotesStyle
	}
	if s.ExamDurationMin != nil {
		cfg.ExamDurationMin = *s.ExamDurationMin
	}
}
