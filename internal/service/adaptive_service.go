package service

import (
	"fmt"

	"unistudy_backend/internal/model"
	"unistudy_backend/pkg/monitoring"
)

// 自适应调整的增量与上限。上限在持久化之前生效，任何档位不允许无界增长。
const (
	strugglingIncrement = 5  // 规则 1：吃力学习者加练卡片/测验
	strugglingCountCap  = 25 //
	excellingIncrement  = 3  // 规则 2：优秀学习者加练考试题
	excellingCountCap   = 10 //
	gapIncrement        = 8  // 规则 3：薄弱类型加量优先于整体调整
	gapCountCap         = 35 //
)

// AdaptiveService 按表现画像调整合并后的生成配置
type AdaptiveService struct{}

func NewAdaptiveService() *AdaptiveService {
	return &AdaptiveService{}
}

// Adapt 生成自适应配置：输入配置按值拷贝，规则按固定顺序应用，
// 每条生效规则追加一条人类可读的调整原因。相同输入必得相同输出。
// 规则顺序：
// 1. struggling → 难度 beginner、卡片/测验加量（封顶）、focus=conceptual
// 2. excelling → 难度 advanced、考试题加量（封顶）、focus=practical
// 3. 每个薄弱类型单独加量（更高封顶）
// 4. 画像偏好难度与当前难度不一致时以偏好为准
func (s *AdaptiveService) Adapt(base model.GenerationConfig, profile model.PerformanceProfile) model.AdaptiveGenerationConfig {
	adapted := model.AdaptiveGenerationConfig{
		GenerationConfig:  base,
		Profile:           profile,
		AdaptationReasons: []string{},
	}

	switch profile.PerformanceLevel {
	case model.LevelStruggling:
		adapted.Difficulty = model.DifficultyBeginner
		adapted.CuecardsCount = raiseCapped(adapted.CuecardsCount, strugglingIncrement, strugglingCountCap)
		adapted.QuizzesCount = raiseCapped(adapted.QuizzesCount, strugglingIncrement, strugglingCountCap)
		adapted.Focus = model.FocusConceptual
		adapted.AdaptationReasons = append(adapted.AdaptationReasons,
			"整体表现吃力(struggling)：难度降为 beginner，卡片与测验数量上调，聚焦概念理解")
		monitoring.AdaptiveAdjustments.WithLabelValues("struggling").Inc()
	case model.LevelExcelling:
		adapted.Difficulty = model.DifficultyAdvanced
		adapted.ExamExercisesCount = raiseCapped(adapted.ExamExercisesCount, excellingIncrement, excellingCountCap)
		adapted.Focus = model.FocusPractical
		adapted.AdaptationReasons = append(adapted.AdaptationReasons,
			"整体表现优秀(excelling)：难度升为 advanced，考试题数量上调，聚焦实战应用")
		monitoring.AdaptiveAdjustments.WithLabelValues("excelling").Inc()
	}

	for _, ct := range model.AllContentTypes {
		if !profile.HasGap(ct) {
			continue
		}
		before := adapted.CountFor(ct)
		adapted.SetCount(ct, raiseCapped(before, gapIncrement, gapCountCap))
		adapted.AdaptationReasons = append(adapted.AdaptationReasons,
			fmt.Sprintf("检测到薄弱类型(gap) %s：数量 %d → %d 加强补弱", ct, before, adapted.CountFor(ct)))
		monitoring.AdaptiveAdjustments.WithLabelValues("gap").Inc()
	}

	if profile.PreferredDifficulty != "" && profile.PreferredDifficulty != adapted.Difficulty {
		adapted.AdaptationReasons = append(adapted.AdaptationReasons,
			fmt.Sprintf("偏好难度 %s 与当前 %s 不一致，以偏好为准", profile.PreferredDifficulty, adapted.Difficulty))
		adapted.Difficulty = profile.PreferredDifficulty
		monitoring.AdaptiveAdjustments.WithLabelValues("preferred_difficulty").Inc()
	}

	return adapted
}

// raiseCapped 加量但不超过上限；已超上限的值保持不变，不回退
func raiseCapped(current, increment, limit int) int {
	if current >= limit {
		return current
	}
	raised := current + increment
	if raised > limit {
		return limit
	}
	return raised
}
