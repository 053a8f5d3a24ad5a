package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"unistudy_backend/internal/model"
	"unistudy_backend/internal/repository"
	"unistudy_backend/internal/util"

	"github.com/go-redis/redis/v8"
)

// 表现画像的固定阈值
const (
	strugglingBelow = 60.0 // 总均分低于此值为 struggling
	excellingFrom   = 80.0 // 总均分达到此值为 excelling
	gapScoreBelow   = 70.0 // 内容类型均分低于此值记为薄弱项
	beginnerBelow   = 50.0
	advancedFrom    = 85.0
	neutralScore    = 75.0 // 无历史时的 lastScore 默认值
)

// PerformanceService 把作答历史聚合成表现画像。
// 非致命子系统：出错时返回 (中性画像, err)，由调用方显式折叠成默认值。
type PerformanceService struct {
	ResponseRepo *repository.ResponseRepository
	Redis        *redis.Client
	CacheTTL     time.Duration
}

func NewPerformanceService(responseRepo *repository.ResponseRepository, rdb *redis.Client, cacheTTL time.Duration) *PerformanceService {
	return &PerformanceService{
		ResponseRepo: responseRepo,
		Redis:        rdb,
		CacheTTL:     cacheTTL,
	}
}

func profileCacheKey(userID, courseID uint) string {
	return fmt.Sprintf("profile:%d:%d", userID, courseID)
}

// Analyze 计算用户在课程内的表现画像。
// 无作答历史直接返回中性画像；聚合失败返回 (中性画像, ErrAnalysisFailure 包装)，
// 画像永远有值，错误只用于让降级在调用方代码里可见。
func (s *PerformanceService) Analyze(userID, courseID uint) (model.PerformanceProfile, error) {
	if cached, ok := s.cachedProfile(userID, courseID); ok {
		return cached, nil
	}

	history, err := s.ResponseRepo.History(userID, courseID)
	if err != nil {
		return model.DefaultPerformanceProfile(), fmt.Errorf("%w: %v", util.ErrAnalysisFailure, err)
	}
	if len(history) == 0 {
		return model.DefaultPerformanceProfile(), nil
	}

	profile := buildProfile(history)
	s.cacheProfile(userID, courseID, profile)
	return profile, nil
}

// InvalidateProfile 作答后使缓存失效，下一次分析看到新历史
func (s *PerformanceService) InvalidateProfile(userID, courseID uint) {
	if s.Redis == nil {
		return
	}
	s.Redis.Del(context.Background(), profileCacheKey(userID, courseID))
}

func buildProfile(history []model.StudyResponse) model.PerformanceProfile {
	type typeStats struct {
		sum   float64
		count int
	}

	var overallSum float64
	stats := map[model.ContentType]*typeStats{}

	for i := range history {
		resp := &history[i]
		overallSum += resp.Score
		st := stats[resp.ContentType]
		if st == nil {
			st = &typeStats{}
			stats[resp.ContentType] = st
		}
		st.sum += resp.Score
		st.count++
	}

	overallMean := overallSum / float64(len(history))

	level := model.LevelExcelling
	switch {
	case overallMean < strugglingBelow:
		level = model.LevelStruggling
	case overallMean < excellingFrom:
		level = model.LevelAverage
	}

	preferred := model.DifficultyAdvanced
	switch {
	case overallMean < beginnerBelow:
		preferred = model.DifficultyBeginner
	case overallMean < advancedFrom:
		preferred = model.DifficultyIntermediate
	}

	// 遍历固定枚举顺序，薄弱项列表保持稳定
	gaps := []model.ContentType{}
	engagement := map[model.ContentType]float64{}
	for _, ct := range model.AllContentTypes {
		st := stats[ct]
		if st == nil || st.count == 0 {
			continue
		}
		mean := st.sum / float64(st.count)
		if mean < gapScoreBelow {
			gaps = append(gaps, ct)
		}
		// 同时奖励准确率和练习量
		engagement[ct] = (mean + float64(st.count)*10) / 2
	}

	// history 按时间升序，末尾即最近一次作答
	lastScore := history[len(history)-1].Score

	streak := 0
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Quality < QualityCorrectThreshold {
			break
		}
		streak++
	}

	return model.PerformanceProfile{
		PerformanceLevel:      level,
		LearningGaps:          gaps,
		PreferredDifficulty:   preferred,
		ContentTypeEngagement: engagement,
		LastScore:             lastScore,
		StreakCount:           streak,
	}
}

func (s *PerformanceService) cachedProfile(userID, courseID uint) (model.PerformanceProfile, bool) {
	if s.Redis == nil {
		return model.PerformanceProfile{}, false
	}
	data, err := s.Redis.Get(context.Background(), profileCacheKey(userID, courseID)).Bytes()
	if err != nil {
		return model.PerformanceProfile{}, false
	}
	var profile model.PerformanceProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return model.PerformanceProfile{}, false
	}
	return profile, true
}

func (s *PerformanceService) cacheProfile(userID, courseID uint, profile model.PerformanceProfile) {
	if s.Redis == nil {
		return
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return
	}
	s.Redis.Set(context.Background(), profileCacheKey(userID, courseID), data, s.CacheTTL)
}
