package service

import (
	"testing"

	"unistudy_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func intPtr(v int) *int                            { return &v }
func difficultyPtr(v model.Difficulty) *model.Difficulty { return &v }
func focusPtr(v model.FocusArea) *model.FocusArea  { return &v }

func recordWith(t *testing.T, source model.ConfigSource, settings model.GenerationSettings) model.GenerationConfigRecord {
	t.Helper()
	record := model.GenerationConfigRecord{Source: source}
	require.NoError(t, record.SetSettings(settings))
	return record
}

func TestMergeNoRecordsReturnsBaseline(t *testing.T) {
	engine := NewMergeEngine(DefaultSourcePriorities())

	merged := engine.Merge(nil)

	assert.Equal(t, model.DefaultGenerationConfig(), merged)
}

func TestMergeHigherPriorityWinsPerField(t *testing.T) {
	engine := NewMergeEngine(DefaultSourcePriorities())

	records := []model.GenerationConfigRecord{
		recordWith(t, model.SourceInstitutionDefault, model.GenerationSettings{CuecardsCount: intPtr(20)}),
		recordWith(t, model.SourceCourseDefault, model.GenerationSettings{CuecardsCount: intPtr(15)}),
		recordWith(t, model.SourceUserPreference, model.GenerationSettings{CuecardsCount: intPtr(12)}),
		recordWith(t, model.SourceUnitOverride, model.GenerationSettings{CuecardsCount: intPtr(8)}),
		recordWith(t, model.SourceAdaptiveAlgorithm, model.GenerationSettings{CuecardsCount: intPtr(30)}),
	}
	merged := engine.Merge(records)

	assert.Equal(t, 30, merged.CuecardsCount, "adaptive_algorithm outranks every other source")
}

func TestMergeMissingFieldsFallThrough(t *testing.T) {
	engine := NewMergeEngine(DefaultSourcePriorities())

	// 课程默认只设卡片数，用户偏好只设难度：互不遮蔽，其余字段落到基线
	records := []model.GenerationConfigRecord{
		recordWith(t, model.SourceCourseDefault, model.GenerationSettings{CuecardsCount: intPtr(15)}),
		recordWith(t, model.SourceUserPreference, model.GenerationSettings{Difficulty: difficultyPtr(model.DifficultyAdvanced)}),
	}
	merged := engine.Merge(records)

	assert.Equal(t, 15, merged.CuecardsCount)
	assert.Equal(t, model.DifficultyAdvanced, merged.Difficulty)
	base := model.DefaultGenerationConfig()
	assert.Equal(t, base.QuizzesCount, merged.QuizzesCount)
	assert.Equal(t, base.Focus, merged.Focus)
	assert.Equal(t, base.ExamDurationMin, merged.ExamDurationMin)
}

func TestMergeInputOrderDoesNotMatter(t *testing.T) {
	engine := NewMergeEngine(DefaultSourcePriorities())

	a := recordWith(t, model.SourceUnitOverride, model.GenerationSettings{
		QuizzesCount: intPtr(9),
		Focus:        focusPtr(model.FocusPractical),
	})
	b := recordWith(t, model.SourceCourseDefault, model.GenerationSettings{
		QuizzesCount: intPtr(4),
		NotesCount:   intPtr(7),
	})

	forward := engine.Merge([]model.GenerationConfigRecord{a, b})
	backward := engine.Merge([]model.GenerationConfigRecord{b, a})

	assert.Equal(t, forward, backward)
	assert.Equal(t, 9, forward.QuizzesCount, "unit_override wins")
	assert.Equal(t, 7, forward.NotesCount, "course_default fills the field the override left unset")
}

func TestMergeSkipsCorruptPayload(t *testing.T) {
	engine := NewMergeEngine(DefaultSourcePriorities())

	corrupt := model.GenerationConfigRecord{Source: model.SourceUnitOverride}
	corrupt.Payload = datatypes.JSON([]byte("{broken"))

	records := []model.GenerationConfigRecord{
		recordWith(t, model.SourceCourseDefault, model.GenerationSettings{CuecardsCount: intPtr(15)}),
		corrupt,
	}
	merged := engine.Merge(records)

	assert.Equal(t, 15, merged.CuecardsCount, "corrupt snapshot behaves like an absent source")
}

func TestMergeZeroValueIsAnExplicitSetting(t *testing.T) {
	engine := NewMergeEngine(DefaultSourcePriorities())

	records := []model.GenerationConfigRecord{
		recordWith(t, model.SourceUserPreference, model.GenerationSettings{NotesCount: intPtr(0)}),
	}
	merged := engine.Merge(records)

	assert.Equal(t, 0, merged.NotesCount, "explicit zero must not fall through to the baseline")
}
