package service

import (
	"errors"
	"math"
	"time"

	"unistudy_backend/internal/model"
	"unistudy_backend/internal/repository"

	"gorm.io/gorm"
)

// QualityCorrectThreshold SM-2 质量分的正确线：quality >= 3 视为答对
const QualityCorrectThreshold = 3

// QualityForFeedback 三档反馈映射到 0-5 质量分。
// 算法本身支持全量程，界面只暴露三档。
func QualityForFeedback(feedback model.ResponseFeedback) int {
	switch feedback {
	case model.FeedbackGotIt:
		return 5
	case model.FeedbackUnsure:
		return 3
	default:
		return 0
	}
}

// NextSchedule SM-2 状态转移，必须与标准算法严格一致：
// 答对时前两步固定为 1 天、6 天，之后 round(间隔 × 难度系数)，
// 难度系数按 ease += 0.1 - (5-q)*(0.08 + (5-q)*0.02) 更新、1.3 封底；
// 答错时间隔重置为 1 天，难度系数不动（本系统不因失败惩罚 ease）。
func NextSchedule(prev model.ItemSchedule, quality int, now time.Time) model.ItemSchedule {
	next := prev

	if quality >= QualityCorrectThreshold {
		switch prev.IntervalDays {
		case 0:
			next.IntervalDays = 1
		case 1:
			next.IntervalDays = 6
		default:
			next.IntervalDays = int(math.Round(float64(prev.IntervalDays) * prev.EaseFactor))
		}

		q := float64(quality)
		ease := prev.EaseFactor + 0.1 - (5-q)*(0.08+(5-q)*0.02)
		if ease < model.EaseFactorFloor {
			ease = model.EaseFactorFloor
		}
		next.EaseFactor = ease
		next.ConsecutiveCorrect = prev.ConsecutiveCorrect + 1
		next.TimesCorrect = prev.TimesCorrect + 1
	} else {
		next.IntervalDays = 1
		next.ConsecutiveCorrect = 0
		next.TimesIncorrect = prev.TimesIncorrect + 1
	}

	next.NextReviewAt = now.Add(time.Duration(next.IntervalDays) * 24 * time.Hour)
	next.LastSeenAt = now
	return next
}

// SchedulerService 间隔重复排程的读改写入口
type SchedulerService struct {
	ScheduleRepo *repository.ScheduleRepository
}

func NewSchedulerService(scheduleRepo *repository.ScheduleRepository) *SchedulerService {
	return &SchedulerService{ScheduleRepo: scheduleRepo}
}

// ApplyResponse 对一次作答执行排程更新。
// 无排程记录时惰性创建（首答），返回更新后的排程。
func (s *SchedulerService) ApplyResponse(userID uint, item *model.StudyItem, quality int, now time.Time) (*model.ItemSchedule, error) {
	prev, err := s.ScheduleRepo.Get(userID, item.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		prev = &model.ItemSchedule{
			UserID:     userID,
			ItemID:     item.ID,
			CourseID:   item.CourseID,
			EaseFactor: model.EaseFactorInitial,
		}
	}

	next := NextSchedule(*prev, quality, now)
	if err := s.ScheduleRepo.Upsert(&next); err != nil {
		return nil, err
	}
	return &next, nil
}
