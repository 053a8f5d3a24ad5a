package repository

import (
	"testing"
	"time"

	"unistudy_backend/internal/model"
	"unistudy_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func courseScope(courseID uint) model.ConfigScope {
	return model.ConfigScope{CourseID: &courseID}
}

func newRecord(t *testing.T, source model.ConfigSource, scope model.ConfigScope, cuecards int) *model.GenerationConfigRecord {
	t.Helper()
	record := &model.GenerationConfigRecord{
		Source:        source,
		InstitutionID: scope.InstitutionID,
		CourseID:      scope.CourseID,
		UnitID:        scope.UnitID,
		UserID:        scope.UserID,
	}
	require.NoError(t, record.SetSettings(model.GenerationSettings{CuecardsCount: &cuecards}))
	return record
}

func TestSaveActiveFillsDerivedFields(t *testing.T) {
	repo := NewGenerationConfigRepository(newTestDB(t))
	scope := courseScope(5)

	record := newRecord(t, model.SourceCourseDefault, scope, 15)
	require.NoError(t, repo.SaveActive(record))

	assert.Equal(t, scope.Key(), record.ScopeKey)
	assert.False(t, record.AppliedAt.IsZero())
	assert.True(t, record.IsActive)
	require.NotNil(t, record.ActiveKey)
	assert.Equal(t, "course_default|"+scope.Key(), *record.ActiveKey)
}

func TestSaveActiveDeactivatesPrevious(t *testing.T) {
	db := newTestDB(t)
	repo := NewGenerationConfigRepository(db)
	scope := courseScope(5)

	require.NoError(t, repo.SaveActive(newRecord(t, model.SourceCourseDefault, scope, 15)))
	require.NoError(t, repo.SaveActive(newRecord(t, model.SourceCourseDefault, scope, 18)))

	active, err := repo.GetActive(model.SourceCourseDefault, scope)
	require.NoError(t, err)
	settings, err := active.Settings()
	require.NoError(t, err)
	assert.Equal(t, 18, *settings.CuecardsCount)

	var activeCount int64
	require.NoError(t, db.Model(&model.GenerationConfigRecord{}).
		Where("source = ? AND scope_key = ? AND is_active = ?", model.SourceCourseDefault, scope.Key(), true).
		Count(&activeCount).Error)
	assert.EqualValues(t, 1, activeCount, "任何时刻至多一条激活记录")

	history, err := repo.History(model.SourceCourseDefault, scope, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2, "停用的记录保留在历史里")
}

func TestGetActiveScopeIsolation(t *testing.T) {
	repo := NewGenerationConfigRepository(newTestDB(t))

	require.NoError(t, repo.SaveActive(newRecord(t, model.SourceCourseDefault, courseScope(1), 11)))
	require.NoError(t, repo.SaveActive(newRecord(t, model.SourceCourseDefault, courseScope(2), 22)))

	record, err := repo.GetActive(model.SourceCourseDefault, courseScope(1))
	require.NoError(t, err)
	settings, err := record.Settings()
	require.NoError(t, err)
	assert.Equal(t, 11, *settings.CuecardsCount)

	// 同作用域键、不同来源互不干扰
	_, err = repo.GetActive(model.SourceUnitOverride, courseScope(1))
	assert.ErrorIs(t, err, util.ErrConfigNotFound)
}

func TestGetActiveMissingRecord(t *testing.T) {
	repo := NewGenerationConfigRepository(newTestDB(t))

	_, err := repo.GetActive(model.SourceCourseDefault, courseScope(404))

	assert.ErrorIs(t, err, util.ErrConfigNotFound)
}

func TestAdaptiveSnapshotsAreAppendOnly(t *testing.T) {
	db := newTestDB(t)
	repo := NewGenerationConfigRepository(db)
	scope := model.ConfigScope{UserID: uintp(42), CourseID: uintp(5), UnitID: uintp(3)}

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	// 乱序写入：最新 applied_at 的记录先落库
	newest := newRecord(t, model.SourceAdaptiveAlgorithm, scope, 30)
	newest.AppliedAt = base.Add(2 * time.Hour)
	older := newRecord(t, model.SourceAdaptiveAlgorithm, scope, 20)
	older.AppliedAt = base

	require.NoError(t, repo.SaveActive(newest))
	require.NoError(t, repo.SaveActive(older))

	active, err := repo.GetActive(model.SourceAdaptiveAlgorithm, scope)
	require.NoError(t, err)
	settings, err := active.Settings()
	require.NoError(t, err)
	assert.Equal(t, 30, *settings.CuecardsCount, "按 applied_at 取最新快照，与写入顺序无关")

	var keys []*string
	require.NoError(t, db.Model(&model.GenerationConfigRecord{}).
		Where("source = ?", model.SourceAdaptiveAlgorithm).
		Pluck("active_key", &keys).Error)
	require.Len(t, keys, 2)
	for _, key := range keys {
		assert.Nil(t, key, "自适应快照不占激活键")
	}
}

func TestSaveActiveTornStateConflict(t *testing.T) {
	db := newTestDB(t)
	repo := NewGenerationConfigRepository(db)
	scope := courseScope(5)

	// active_key 被一条 is_active=false 的记录占着：停用扫描看不到它，插入必撞唯一索引。
	// is_active 带默认值，零值写入会被建库默认顶掉，这里建行后单列改写
	key := "course_default|" + scope.Key()
	torn := newRecord(t, model.SourceCourseDefault, scope, 15)
	torn.ScopeKey = scope.Key()
	torn.ActiveKey = &key
	torn.AppliedAt = time.Now()
	require.NoError(t, db.Create(torn).Error)
	require.NoError(t, db.Model(torn).Update("is_active", false).Error)

	err := repo.SaveActive(newRecord(t, model.SourceCourseDefault, scope, 18))

	assert.ErrorIs(t, err, util.ErrConfigConflict)
}

func uintp(v uint) *uint { return &v }
