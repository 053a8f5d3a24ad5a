package service

import (
	"testing"
	"time"

	"unistudy_backend/internal/model"
	"unistudy_backend/internal/repository"
	"unistudy_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// studyEnv 学习会话编排的全链路测试环境：真实仓储 + SQLite，Redis 关闭
type studyEnv struct {
	db         *gorm.DB
	study      *StudyService
	configRepo *repository.GenerationConfigRepository
	gapRepo    *repository.GapRepository
	schedRepo  *repository.ScheduleRepository
}

func newStudyEnv(t *testing.T) *studyEnv {
	t.Helper()
	db := newTestDB(t)

	responseRepo := repository.NewResponseRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	configRepo := repository.NewGenerationConfigRepository(db)

	study := &StudyService{
		SessionRepo:  repository.NewSessionRepository(db),
		ResponseRepo: responseRepo,
		ItemRepo:     repository.NewStudyItemRepository(db),
		ScheduleRepo: scheduleRepo,
		GapRepo:      repository.NewGapRepository(db),
		UserRepo:     repository.NewUserRepository(db),
		CourseRepo:   repository.NewCourseRepository(db),
		Config:       NewConfigService(configRepo, NewMergeEngine(DefaultSourcePriorities())),
		Performance:  NewPerformanceService(responseRepo, nil, 0),
		Adaptive:     NewAdaptiveService(),
		Selector:     NewSelectorService(42),
		Scheduler:    NewSchedulerService(scheduleRepo),
		LockTTL:      10 * time.Second,
	}

	return &studyEnv{
		db:         db,
		study:      study,
		configRepo: configRepo,
		gapRepo:    repository.NewGapRepository(db),
		schedRepo:  scheduleRepo,
	}
}

func (e *studyEnv) seedLearner(t *testing.T, itemCount int) (user model.User, course model.Course, unit model.CourseUnit, items []model.StudyItem) {
	t.Helper()

	user = model.User{Name: "学习者", Email: "learner@test.local", Password: "x", Role: model.Student}
	require.NoError(t, e.db.Create(&user).Error)

	course = model.Course{Title: "数据结构", Code: "CS201", CreatedBy: user.ID}
	require.NoError(t, e.db.Create(&course).Error)

	unit = model.CourseUnit{CourseID: course.ID, Title: "栈与队列", Position: 1}
	require.NoError(t, e.db.Create(&unit).Error)

	for i := 0; i < itemCount; i++ {
		item := model.StudyItem{
			CourseID:    course.ID,
			UnitID:      unit.ID,
			ContentType: model.ContentCuecards,
			Front:       "卡片",
			Back:        "答案",
		}
		require.NoError(t, e.db.Create(&item).Error)
		items = append(items, item)
	}
	return user, course, unit, items
}

func TestStartSessionFreshLearner(t *testing.T) {
	env := newStudyEnv(t)
	user, course, unit, items := env.seedLearner(t, 5)

	plan, err := env.study.StartSession(user.ID, StartSessionRequest{
		CourseID: course.ID,
		UnitIDs:  []uint{unit.ID},
		MaxItems: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, model.SessionActive, plan.Session.Status)
	assert.Equal(t, model.PriorityNew, plan.Session.PriorityMode, "零历史用户的会话全是新题")
	assert.Equal(t, 5, plan.Session.NewCount)
	assert.Zero(t, plan.Session.GapCount)
	assert.Zero(t, plan.Session.ReviewCount)
	assert.Len(t, plan.Items, 5)

	wantIDs := make([]uint, len(items))
	for i, item := range items {
		wantIDs[i] = item.ID
	}
	assert.ElementsMatch(t, wantIDs, plan.Session.ItemIDList())

	// 取回会话时练习项顺序与落库顺序一致
	fetched, err := env.study.GetSession(user.ID, plan.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.Session.ItemIDList(), itemIDs(fetched.Items))
}

func TestStartSessionPersistsAdaptiveSnapshot(t *testing.T) {
	env := newStudyEnv(t)
	user, course, unit, _ := env.seedLearner(t, 3)

	// 三次全错的历史 → struggling 画像，快照难度应为 beginner
	for i := 0; i < 3; i++ {
		resp := model.StudyResponse{
			SessionID: 999, UserID: user.ID, CourseID: course.ID, ItemID: uint(i + 1),
			ContentType: model.ContentCuecards, Feedback: model.FeedbackMissed, Quality: 0, Score: 0,
		}
		require.NoError(t, env.db.Create(&resp).Error)
	}

	_, err := env.study.StartSession(user.ID, StartSessionRequest{
		CourseID: course.ID,
		UnitIDs:  []uint{unit.ID},
	})
	require.NoError(t, err)

	scope := model.ConfigScope{UserID: &user.ID, CourseID: &course.ID, UnitID: &unit.ID}
	snapshot, err := env.configRepo.GetActive(model.SourceAdaptiveAlgorithm, scope)
	require.NoError(t, err, "单单元会话必须落一条自适应快照")

	settings, err := snapshot.Settings()
	require.NoError(t, err)
	require.NotNil(t, settings.Difficulty)
	assert.Equal(t, model.DifficultyBeginner, *settings.Difficulty)
	assert.NotEmpty(t, snapshot.AdaptationReasons)
}

func TestStartSessionMultiUnitSkipsSnapshot(t *testing.T) {
	env := newStudyEnv(t)
	user, course, unit, _ := env.seedLearner(t, 2)

	second := model.CourseUnit{CourseID: course.ID, Title: "二叉树", Position: 2}
	require.NoError(t, env.db.Create(&second).Error)

	plan, err := env.study.StartSession(user.ID, StartSessionRequest{
		CourseID: course.ID,
		UnitIDs:  []uint{unit.ID, second.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{unit.ID, second.ID}, plan.Session.UnitIDList())

	// 多单元会话没有明确的快照作用域，不落快照
	scope := model.ConfigScope{UserID: &user.ID, CourseID: &course.ID, UnitID: &unit.ID}
	_, err = env.configRepo.GetActive(model.SourceAdaptiveAlgorithm, scope)
	assert.ErrorIs(t, err, util.ErrConfigNotFound)
}

func TestStartSessionUnknownCourse(t *testing.T) {
	env := newStudyEnv(t)
	user, _, _, _ := env.seedLearner(t, 1)

	_, err := env.study.StartSession(user.ID, StartSessionRequest{CourseID: 9999})

	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestStartSessionUnknownUser(t *testing.T) {
	env := newStudyEnv(t)
	_, course, _, _ := env.seedLearner(t, 1)

	_, err := env.study.StartSession(9999, StartSessionRequest{CourseID: course.ID})

	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestStartSessionMaxItemsBounds(t *testing.T) {
	env := newStudyEnv(t)
	user, course, _, _ := env.seedLearner(t, 1)

	plan, err := env.study.StartSession(user.ID, StartSessionRequest{CourseID: course.ID})
	require.NoError(t, err)
	assert.Equal(t, util.DefaultMaxItems, plan.Session.MaxItems, "未指定时取默认规模")

	plan, err = env.study.StartSession(user.ID, StartSessionRequest{CourseID: course.ID, MaxItems: 100000})
	require.NoError(t, err)
	assert.Equal(t, util.MaxSessionItems, plan.Session.MaxItems, "超限请求截断到上限")
}

func TestStartSessionMixedTiers(t *testing.T) {
	env := newStudyEnv(t)
	user, course, _, items := env.seedLearner(t, 3)
	gapItem, dueItem, freshItem := items[0], items[1], items[2]

	// gapItem 挂一个活跃薄弱点；dueItem 有已逾期 2 天的排程；freshItem 从未作答
	_, err := env.gapRepo.EscalateOrCreate(user.ID, &gapItem)
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, env.schedRepo.Upsert(&model.ItemSchedule{
		UserID:       user.ID,
		ItemID:       dueItem.ID,
		CourseID:     course.ID,
		EaseFactor:   model.EaseFactorInitial,
		IntervalDays: 1,
		NextReviewAt: now.Add(-48 * time.Hour),
		LastSeenAt:   now.Add(-72 * time.Hour),
	}))

	plan, err := env.study.StartSession(user.ID, StartSessionRequest{CourseID: course.ID, MaxItems: 3})
	require.NoError(t, err)

	assert.Equal(t, []uint{gapItem.ID, dueItem.ID, freshItem.ID}, itemIDs(plan.Items), "薄弱 > 复习 > 新题")
	assert.Equal(t, 1, plan.Session.GapCount)
	assert.Equal(t, 1, plan.Session.ReviewCount)
	assert.Equal(t, 1, plan.Session.NewCount)
	assert.Equal(t, model.PriorityMixed, plan.Session.PriorityMode)
}

func TestRecordResponseLifecycle(t *testing.T) {
	env := newStudyEnv(t)
	user, course, unit, items := env.seedLearner(t, 3)
	target := items[0]

	plan, err := env.study.StartSession(user.ID, StartSessionRequest{
		CourseID: course.ID,
		UnitIDs:  []uint{unit.ID},
	})
	require.NoError(t, err)
	sessionID := plan.Session.ID

	// 第一次答错：排程重置到 1 天，薄弱点以初始 severity 建档
	schedule, err := env.study.RecordResponse(user.ID, sessionID, ResponseInput{
		ItemID: target.ID, Feedback: model.FeedbackMissed,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, schedule.IntervalDays)
	assert.InDelta(t, model.EaseFactorInitial, schedule.EaseFactor, 1e-9, "答错不动难度系数")
	assert.Equal(t, 1, schedule.TimesIncorrect)

	gaps, err := env.gapRepo.ActiveByUser(user.ID, course.ID)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, 3, gaps[0].Severity)

	// 再答错：薄弱点升级
	_, err = env.study.RecordResponse(user.ID, sessionID, ResponseInput{
		ItemID: target.ID, Feedback: model.FeedbackMissed,
	})
	require.NoError(t, err)
	gaps, err = env.gapRepo.ActiveByUser(user.ID, course.ID)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, 5, gaps[0].Severity)

	// 三连对后薄弱点关闭
	for i := 0; i < 3; i++ {
		schedule, err = env.study.RecordResponse(user.ID, sessionID, ResponseInput{
			ItemID: target.ID, Feedback: model.FeedbackGotIt,
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, schedule.ConsecutiveCorrect)
	gaps, err = env.gapRepo.ActiveByUser(user.ID, course.ID)
	require.NoError(t, err)
	assert.Empty(t, gaps, "连续答对达到阈值后薄弱点停用")

	count, err := env.study.ResponseRepo.CountBySession(sessionID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, count, "每次作答都要留痕")
}

func TestRecordResponseOwnershipAndState(t *testing.T) {
	env := newStudyEnv(t)
	user, course, unit, items := env.seedLearner(t, 1)

	intruder := model.User{Name: "别人", Email: "other@test.local", Password: "x"}
	require.NoError(t, env.db.Create(&intruder).Error)

	plan, err := env.study.StartSession(user.ID, StartSessionRequest{
		CourseID: course.ID,
		UnitIDs:  []uint{unit.ID},
	})
	require.NoError(t, err)

	// 非会话属主视同不存在，不泄露会话是否存在
	_, err = env.study.RecordResponse(intruder.ID, plan.Session.ID, ResponseInput{
		ItemID: items[0].ID, Feedback: model.FeedbackGotIt,
	})
	assert.ErrorIs(t, err, util.ErrSessionNotFound)

	_, err = env.study.RecordResponse(user.ID, plan.Session.ID, ResponseInput{
		ItemID: 9999, Feedback: model.FeedbackGotIt,
	})
	assert.ErrorIs(t, err, util.ErrItemNotFound)

	_, err = env.study.FinishSession(user.ID, plan.Session.ID, nil)
	require.NoError(t, err)

	_, err = env.study.RecordResponse(user.ID, plan.Session.ID, ResponseInput{
		ItemID: items[0].ID, Feedback: model.FeedbackGotIt,
	})
	assert.ErrorIs(t, err, util.ErrSessionNotActive)

	_, err = env.study.FinishSession(user.ID, plan.Session.ID, nil)
	assert.ErrorIs(t, err, util.ErrSessionNotActive, "会话不允许重复完结")
}

func TestFinishSessionAppliesBatch(t *testing.T) {
	env := newStudyEnv(t)
	user, course, unit, items := env.seedLearner(t, 2)

	plan, err := env.study.StartSession(user.ID, StartSessionRequest{
		CourseID: course.ID,
		UnitIDs:  []uint{unit.ID},
	})
	require.NoError(t, err)

	session, err := env.study.FinishSession(user.ID, plan.Session.ID, []ResponseInput{
		{ItemID: items[0].ID, Feedback: model.FeedbackGotIt, TimeSpentMs: 4000},
		{ItemID: items[1].ID, Feedback: model.FeedbackMissed, TimeSpentMs: 9000},
	})
	require.NoError(t, err)

	assert.Equal(t, model.SessionCompleted, session.Status)
	require.NotNil(t, session.CompletedAt)

	count, err := env.study.ResponseRepo.CountBySession(session.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	correct, err := env.schedRepo.Get(user.ID, items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, correct.TimesCorrect)

	gaps, err := env.gapRepo.ActiveByUser(user.ID, course.ID)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, items[1].ID, gaps[0].ItemID, "批量提交里的错题同样登记薄弱点")
}

func TestProfileReflectsRecordedResponses(t *testing.T) {
	env := newStudyEnv(t)
	user, course, unit, items := env.seedLearner(t, 1)

	plan, err := env.study.StartSession(user.ID, StartSessionRequest{
		CourseID: course.ID,
		UnitIDs:  []uint{unit.ID},
	})
	require.NoError(t, err)

	profile := env.study.Profile(user.ID, course.ID)
	assert.Equal(t, model.DefaultPerformanceProfile(), profile, "无历史时返回中性画像")

	_, err = env.study.RecordResponse(user.ID, plan.Session.ID, ResponseInput{
		ItemID: items[0].ID, Feedback: model.FeedbackGotIt,
	})
	require.NoError(t, err)

	profile = env.study.Profile(user.ID, course.ID)
	assert.Equal(t, model.LevelExcelling, profile.PerformanceLevel)
	assert.InDelta(t, 100, profile.LastScore, 1e-9)
	assert.Equal(t, 1, profile.StreakCount)
}

func TestMarkStaleSessions(t *testing.T) {
	env := newStudyEnv(t)
	user, course, unit, _ := env.seedLearner(t, 1)

	stale, err := env.study.StartSession(user.ID, StartSessionRequest{
		CourseID: course.ID,
		UnitIDs:  []uint{unit.ID},
	})
	require.NoError(t, err)
	active, err := env.study.StartSession(user.ID, StartSessionRequest{
		CourseID: course.ID,
		UnitIDs:  []uint{unit.ID},
	})
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&model.StudySession{}).
		Where("id = ?", stale.Session.ID).
		Update("started_at", time.Now().Add(-48*time.Hour)).Error)

	count, err := env.study.MarkStaleSessions(24 * time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	refetched, err := env.study.SessionRepo.FindByID(stale.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionAbandoned, refetched.Status)

	refetched, err = env.study.SessionRepo.FindByID(active.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, refetched.Status, "未超时的会话不受影响")
}

func TestListSessionsMostRecentFirst(t *testing.T) {
	env := newStudyEnv(t)
	user, course, unit, _ := env.seedLearner(t, 1)

	first, err := env.study.StartSession(user.ID, StartSessionRequest{
		CourseID: course.ID, UnitIDs: []uint{unit.ID},
	})
	require.NoError(t, err)
	require.NoError(t, env.db.Model(&model.StudySession{}).
		Where("id = ?", first.Session.ID).
		Update("started_at", time.Now().Add(-time.Hour)).Error)

	second, err := env.study.StartSession(user.ID, StartSessionRequest{
		CourseID: course.ID, UnitIDs: []uint{unit.ID},
	})
	require.NoError(t, err)

	sessions, err := env.study.ListSessions(user.ID, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.Session.ID, sessions[0].ID)
	assert.Equal(t, first.Session.ID, sessions[1].ID)
}
