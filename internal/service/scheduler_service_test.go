package service

import (
	"testing"
	"time"

	"unistudy_backend/internal/model"
	"unistudy_backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualityForFeedback(t *testing.T) {
	assert.Equal(t, 5, QualityForFeedback(model.FeedbackGotIt))
	assert.Equal(t, 3, QualityForFeedback(model.FeedbackUnsure))
	assert.Equal(t, 0, QualityForFeedback(model.FeedbackMissed))
	assert.Equal(t, 0, QualityForFeedback(model.ResponseFeedback("garbage")))
}

func TestNextScheduleBootstrapSequence(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	state := model.ItemSchedule{EaseFactor: model.EaseFactorInitial}

	// 连续答对四次：间隔 1 → 6 → round(6×2.7)=16 → round(16×2.8)=45
	wantIntervals := []int{1, 6, 16, 45}
	wantEase := []float64{2.6, 2.7, 2.8, 2.9}

	for i := range wantIntervals {
		state = NextSchedule(state, 5, now)
		assert.Equal(t, wantIntervals[i], state.IntervalDays, "step %d interval", i+1)
		assert.InDelta(t, wantEase[i], state.EaseFactor, 1e-9, "step %d ease", i+1)
		assert.Equal(t, i+1, state.ConsecutiveCorrect)
		assert.Equal(t, i+1, state.TimesCorrect)
		assert.Equal(t, now.Add(time.Duration(wantIntervals[i])*24*time.Hour), state.NextReviewAt)
		now = state.NextReviewAt
	}
}

func TestNextScheduleUnsureSlidesEaseDown(t *testing.T) {
	now := time.Now()
	prev := model.ItemSchedule{IntervalDays: 1, EaseFactor: 2.5, ConsecutiveCorrect: 1, TimesCorrect: 1}

	next := NextSchedule(prev, 3, now)

	// q=3 仍算答对，但 ease 按 0.1-2*(0.08+2*0.02) = -0.14 下滑
	assert.Equal(t, 6, next.IntervalDays)
	assert.InDelta(t, 2.36, next.EaseFactor, 1e-9)
	assert.Equal(t, 2, next.ConsecutiveCorrect)
	assert.Equal(t, 2, next.TimesCorrect)
	assert.Equal(t, prev.TimesIncorrect, next.TimesIncorrect)
}

func TestNextScheduleEaseFactorFloor(t *testing.T) {
	now := time.Now()
	prev := model.ItemSchedule{IntervalDays: 6, EaseFactor: model.EaseFactorFloor}

	next := NextSchedule(prev, 3, now)

	assert.InDelta(t, model.EaseFactorFloor, next.EaseFactor, 1e-9, "ease never drops below the floor")
	assert.Equal(t, 8, next.IntervalDays, "round(6 × 1.3)")
}

func TestNextScheduleIncorrectResets(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	prev := model.ItemSchedule{
		IntervalDays:       16,
		EaseFactor:         2.7,
		ConsecutiveCorrect: 3,
		TimesCorrect:       3,
		TimesIncorrect:     1,
	}

	next := NextSchedule(prev, 0, now)

	assert.Equal(t, 1, next.IntervalDays, "failure resets the interval")
	assert.InDelta(t, 2.7, next.EaseFactor, 1e-9, "failure leaves ease untouched")
	assert.Equal(t, 0, next.ConsecutiveCorrect)
	assert.Equal(t, 3, next.TimesCorrect)
	assert.Equal(t, 2, next.TimesIncorrect)
	assert.Equal(t, now.Add(24*time.Hour), next.NextReviewAt)
	assert.Equal(t, now, next.LastSeenAt)
}

func TestApplyResponseLazyCreatesSchedule(t *testing.T) {
	db := newTestDB(t)
	scheduleRepo := repository.NewScheduleRepository(db)
	scheduler := NewSchedulerService(scheduleRepo)

	item := &model.StudyItem{CourseID: 7, UnitID: 3, ContentType: model.ContentCuecards, Front: "栈", Back: "LIFO"}
	require.NoError(t, db.Create(item).Error)

	now := time.Now()
	updated, err := scheduler.ApplyResponse(42, item, 5, now)
	require.NoError(t, err)

	assert.Equal(t, 1, updated.IntervalDays)
	assert.InDelta(t, 2.6, updated.EaseFactor, 1e-9)
	assert.Equal(t, uint(7), updated.CourseID, "course copied from the item on first contact")

	persisted, err := scheduleRepo.Get(42, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, persisted.IntervalDays)
	assert.Equal(t, 1, persisted.TimesCorrect)
}

func TestApplyResponseUpdatesExistingSchedule(t *testing.T) {
	db := newTestDB(t)
	scheduleRepo := repository.NewScheduleRepository(db)
	scheduler := NewSchedulerService(scheduleRepo)

	item := &model.StudyItem{CourseID: 7, UnitID: 3, ContentType: model.ContentQuizzes, Question: "q"}
	require.NoError(t, db.Create(item).Error)

	now := time.Now()
	_, err := scheduler.ApplyResponse(42, item, 5, now)
	require.NoError(t, err)
	second, err := scheduler.ApplyResponse(42, item, 0, now.Add(24*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 1, second.IntervalDays)
	assert.Equal(t, 0, second.ConsecutiveCorrect)
	assert.Equal(t, 1, second.TimesIncorrect)

	var count int64
	require.NoError(t, db.Model(&model.ItemSchedule{}).Where("user_id = ? AND item_id = ?", 42, item.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count, "upsert keeps one row per (user, item)")
}
