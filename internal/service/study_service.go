package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"unistudy_backend/internal/model"
	"unistudy_backend/internal/repository"
	"unistudy_backend/internal/util"
	"unistudy_backend/pkg/logger"
	"unistudy_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// gapClearStreak 连续答对多少次后关闭薄弱点。
	// 原始行为未定义薄弱点的关闭时机，这里显式采用“三连对即掌握”。
	gapClearStreak = 3
	// batchWorkers 会话收尾批量排程更新的并发上限
	batchWorkers = 8
)

// StartSessionRequest 开始会话的参数。MaxItems 为 0 时取默认值
type StartSessionRequest struct {
	CourseID uint   `json:"courseId" binding:"required"`
	UnitIDs  []uint `json:"unitIds"`
	MaxItems int    `json:"maxItems"`
}

// ResponseInput 一次作答。会话内单次提交与收尾批量提交共用
type ResponseInput struct {
	ItemID      uint                   `json:"itemId" binding:"required"`
	Feedback    model.ResponseFeedback `json:"feedback" binding:"required,oneof=got_it unsure missed"`
	TimeSpentMs int                    `json:"timeSpentMs"`
}

// SessionPlan 会话计划：会话记录 + 有序练习项
type SessionPlan struct {
	Session *model.StudySession `json:"session"`
	Items   []model.StudyItem   `json:"items"`
}

// StudyService 学习会话编排：配置合并 → 表现画像 → 自适应调整 →
// 候选分类 → 选题 → 会话落库，以及作答后的排程与薄弱点维护。
type StudyService struct {
	SessionRepo  *repository.SessionRepository
	ResponseRepo *repository.ResponseRepository
	ItemRepo     *repository.StudyItemRepository
	ScheduleRepo *repository.ScheduleRepository
	GapRepo      *repository.GapRepository
	UserRepo     *repository.UserRepository
	CourseRepo   *repository.CourseRepository
	Config       *ConfigService
	Performance  *PerformanceService
	Adaptive     *AdaptiveService
	Selector     *SelectorService
	Scheduler    *SchedulerService
	Redis        *redis.Client
	LockTTL      time.Duration
}

// StartSession 为学习者编排一次练习会话。
// 任何自适应环节的失败都降级处理，不阻塞会话创建；
// 只有硬性存储错误和同 (用户, 课程) 的并发开启会失败返回。
func (s *StudyService) StartSession(userID uint, req StartSessionRequest) (*SessionPlan, error) {
	maxItems := req.MaxItems
	if maxItems <= 0 {
		maxItems = util.DefaultMaxItems
	}
	if maxItems > util.MaxSessionItems {
		maxItems = util.MaxSessionItems
	}

	// 1. 会话锁：同一 (用户, 课程) 不允许并行开启，避免落下两份分叉的自适应配置
	release, err := s.acquireSessionLock(userID, req.CourseID)
	if err != nil {
		return nil, err
	}
	defer release()

	// 2. 校验课程
	if _, err := s.CourseRepo.FindByID(req.CourseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	var unitID *uint
	if len(req.UnitIDs) == 1 {
		unitID = &req.UnitIDs[0]
	}

	// 3-4. 配置合并 + 表现自适应
	adapted, err := s.AdaptiveConfigFor(userID, req.CourseID, unitID)
	if err != nil {
		return nil, err
	}

	// 5. 落自适应快照（仅单单元会话有明确的快照作用域）
	if unitID != nil {
		if _, err := s.Config.SaveAdaptiveSnapshot(userID, req.CourseID, *unitID, adapted); err != nil {
			logger.Log.Warn("自适应配置快照写入失败，忽略",
				zap.Uint("userId", userID), zap.Uint("unitId", *unitID), zap.Error(err))
		}
	}

	// 6. 候选池与三档分类
	pIn, err := s.buildSelectionInput(userID, req.CourseID, req.UnitIDs, maxItems)
	if err != nil {
		return nil, err
	}

	// 7. 选题
	selected := s.Selector.Select(*pIn)

	// 8. 会话落库
	now := time.Now()
	session := &model.StudySession{
		UserID:       userID,
		CourseID:     req.CourseID,
		Status:       model.SessionActive,
		MaxItems:     maxItems,
		GapCount:     selected.GapCount,
		ReviewCount:  selected.ReviewCount,
		NewCount:     selected.NewCount,
		PriorityMode: selected.Priority,
		StartedAt:    now,
	}
	if err := session.SetUnitIDs(req.UnitIDs); err != nil {
		return nil, err
	}
	itemIDs := make([]uint, len(selected.Items))
	for i, item := range selected.Items {
		itemIDs[i] = item.ID
	}
	if err := session.SetItemIDs(itemIDs); err != nil {
		return nil, err
	}
	if err := s.SessionRepo.Create(session); err != nil {
		return nil, err
	}

	monitoring.SessionsStarted.WithLabelValues(string(selected.Priority)).Inc()
	monitoring.SessionItemsSelected.Observe(float64(len(selected.Items)))

	logger.Log.Info("学习会话已创建",
		zap.Uint("userId", userID),
		zap.Uint("courseId", req.CourseID),
		zap.Uint("sessionId", session.ID),
		zap.Int("items", len(selected.Items)),
		zap.String("priority", string(selected.Priority)))

	return &SessionPlan{Session: session, Items: selected.Items}, nil
}

// AdaptiveConfigFor 计算某用户在课程（及可选单元）上的自适应有效配置。
// 只读：不落任何快照。表现分析失败在此处显式坍缩为中性画像。
func (s *StudyService) AdaptiveConfigFor(userID, courseID uint, unitID *uint) (model.AdaptiveGenerationConfig, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.AdaptiveGenerationConfig{}, util.ErrUserNotFound
		}
		return model.AdaptiveGenerationConfig{}, err
	}

	scope := model.ConfigScope{
		InstitutionID: user.InstitutionID,
		CourseID:      &courseID,
		UnitID:        unitID,
		UserID:        &userID,
	}
	merged, _, err := s.Config.EffectiveConfig(scope)
	if err != nil {
		return model.AdaptiveGenerationConfig{}, err
	}

	profile, err := s.Performance.Analyze(userID, courseID)
	if err != nil {
		logger.Log.Warn("表现分析失败，使用中性画像继续",
			zap.Uint("userId", userID), zap.Error(err))
	}

	return s.Adaptive.Adapt(merged, profile), nil
}

// buildSelectionInput 从持久化状态构建选题输入：
// 薄弱集合来自活跃薄弱点，复习集合来自已到期排程，
// 新题集合 = 候选池中没有任何排程记录的练习项（排程随首答惰性创建）。
func (s *StudyService) buildSelectionInput(userID, courseID uint, unitIDs []uint, maxItems int) (*SelectionInput, error) {
	items, err := s.ItemRepo.Pool(courseID, unitIDs)
	if err != nil {
		return nil, err
	}

	itemIDs := make([]uint, len(items))
	for i, item := range items {
		itemIDs[i] = item.ID
	}

	gapRecords, err := s.GapRepo.ActiveByUser(userID, courseID)
	if err != nil {
		return nil, err
	}
	gaps := make(map[uint]int, len(gapRecords))
	for _, g := range gapRecords {
		gaps[g.ItemID] = g.Severity
	}

	schedules, err := s.ScheduleRepo.ListByUser(userID, itemIDs)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	scheduled := make(map[uint]bool, len(schedules))
	due := make(map[uint]int, len(schedules))
	for _, sched := range schedules {
		scheduled[sched.ItemID] = true
		if !now.Before(sched.NextReviewAt) {
			due[sched.ItemID] = sched.DaysOverdue(now)
		}
	}

	fresh := make(map[uint]bool, len(items))
	for _, item := range items {
		if !scheduled[item.ID] {
			fresh[item.ID] = true
		}
	}

	return &SelectionInput{
		CourseID: courseID,
		UnitIDs:  unitIDs,
		Pool:     items,
		Gaps:     gaps,
		Due:      due,
		Fresh:    fresh,
		MaxItems: maxItems,
	}, nil
}

// RecordResponse 记录一次作答并更新排程与薄弱点
func (s *StudyService) RecordResponse(userID, sessionID uint, in ResponseInput) (*model.ItemSchedule, error) {
	session, err := s.ownedActiveSession(userID, sessionID)
	if err != nil {
		return nil, err
	}

	schedule, err := s.applyResponse(session, userID, in)
	if err != nil {
		return nil, err
	}

	s.Performance.InvalidateProfile(userID, session.CourseID)
	return schedule, nil
}

// applyResponse 单次作答的完整处理：作答落库 → SM-2 排程更新 → 薄弱点升降。
// 薄弱点维护失败只记日志，作答与排程是主链路。
func (s *StudyService) applyResponse(session *model.StudySession, userID uint, in ResponseInput) (*model.ItemSchedule, error) {
	item, err := s.ItemRepo.FindByID(in.ItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrItemNotFound
		}
		return nil, err
	}

	quality := QualityForFeedback(in.Feedback)
	response := &model.StudyResponse{
		SessionID:   session.ID,
		UserID:      userID,
		CourseID:    item.CourseID,
		ItemID:      item.ID,
		ContentType: item.ContentType,
		Feedback:    in.Feedback,
		Quality:     quality,
		Score:       float64(quality) * 20,
		TimeSpentMs: in.TimeSpentMs,
	}
	if err := s.ResponseRepo.Create(response); err != nil {
		return nil, err
	}

	schedule, err := s.Scheduler.ApplyResponse(userID, item, quality, time.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrScheduleUpdateFailed, err)
	}

	if quality < QualityCorrectThreshold {
		if _, err := s.GapRepo.EscalateOrCreate(userID, item); err != nil {
			logger.Log.Warn("薄弱点登记失败",
				zap.Uint("userId", userID), zap.Uint("itemId", item.ID), zap.Error(err))
		}
	} else if schedule.ConsecutiveCorrect >= gapClearStreak {
		if err := s.GapRepo.DeactivateForItem(userID, item.ID); err != nil {
			logger.Log.Warn("薄弱点关闭失败",
				zap.Uint("userId", userID), zap.Uint("itemId", item.ID), zap.Error(err))
		}
	}

	return schedule, nil
}

// FinishSession 结束会话。batch 携带客户端攒着未提交的作答，
// 逐项独立并行处理，单项失败记日志计数后继续，不影响其余项，
// 也不影响会话完结。
func (s *StudyService) FinishSession(userID, sessionID uint, batch []ResponseInput) (*model.StudySession, error) {
	session, err := s.ownedActiveSession(userID, sessionID)
	if err != nil {
		return nil, err
	}

	if len(batch) > 0 {
		p := pool.New().WithMaxGoroutines(batchWorkers)
		for _, in := range batch {
			p.Go(func() {
				if _, err := s.applyResponse(session, userID, in); err != nil {
					monitoring.ScheduleUpdateFailures.Inc()
					logger.Log.Error("批量作答处理失败，跳过该项",
						zap.Uint("sessionId", session.ID),
						zap.Uint("itemId", in.ItemID),
						zap.Error(err))
				}
			})
		}
		p.Wait()
	}

	now := time.Now()
	session.Status = model.SessionCompleted
	session.CompletedAt = &now
	if err := s.SessionRepo.Update(session); err != nil {
		return nil, err
	}

	s.Performance.InvalidateProfile(userID, session.CourseID)
	return session, nil
}

// GetSession 取会话及其有序练习项
func (s *StudyService) GetSession(userID, sessionID uint) (*SessionPlan, error) {
	session, err := s.ownedSession(userID, sessionID)
	if err != nil {
		return nil, err
	}

	ids := session.ItemIDList()
	items, err := s.ItemRepo.ListByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]model.StudyItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	ordered := make([]model.StudyItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			ordered = append(ordered, item)
		}
	}

	return &SessionPlan{Session: session, Items: ordered}, nil
}

// ListSessions 用户最近的会话
func (s *StudyService) ListSessions(userID uint, limit int) ([]model.StudySession, error) {
	return s.SessionRepo.ListByUser(userID, limit)
}

// Profile 当前表现画像；分析失败坍缩为中性画像
func (s *StudyService) Profile(userID, courseID uint) model.PerformanceProfile {
	profile, err := s.Performance.Analyze(userID, courseID)
	if err != nil {
		logger.Log.Warn("表现分析失败，返回中性画像",
			zap.Uint("userId", userID), zap.Uint("courseId", courseID), zap.Error(err))
	}
	return profile
}

// MarkStaleSessions 把滞留超时的活跃会话置为 abandoned，后台任务调用
func (s *StudyService) MarkStaleSessions(staleAfter time.Duration) (int64, error) {
	count, err := s.SessionRepo.MarkStale(time.Now().Add(-staleAfter))
	if err != nil {
		return 0, err
	}
	if count > 0 {
		logger.Log.Info("滞留会话已标记为放弃", zap.Int64("count", count))
	}
	return count, nil
}

func (s *StudyService) ownedSession(userID, sessionID uint) (*model.StudySession, error) {
	session, err := s.SessionRepo.FindByID(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSessionNotFound
		}
		return nil, err
	}
	if session.UserID != userID {
		return nil, util.ErrSessionNotFound
	}
	return session, nil
}

func (s *StudyService) ownedActiveSession(userID, sessionID uint) (*model.StudySession, error) {
	session, err := s.ownedSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionActive {
		return nil, util.ErrSessionNotActive
	}
	return session, nil
}

// acquireSessionLock 基于 Redis SetNX 的会话开启锁。
// Redis 未启用或不可用时降级为无锁，学习流程不因锁失败而中断。
func (s *StudyService) acquireSessionLock(userID, courseID uint) (func(), error) {
	if s.Redis == nil {
		return func() {}, nil
	}

	key := fmt.Sprintf("session:lock:%d:%d", userID, courseID)
	ok, err := s.Redis.SetNX(context.Background(), key, 1, s.LockTTL).Result()
	if err != nil {
		logger.Log.Warn("会话锁获取异常，降级为无锁", zap.Error(err))
		return func() {}, nil
	}
	if !ok {
		return nil, util.ErrSessionInProgress
	}
	return func() {
		s.Redis.Del(context.Background(), key)
	}, nil
}
