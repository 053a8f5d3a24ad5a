package model

import "time"

const (
	// EaseFactorFloor SM-2 难度系数下限
	EaseFactorFloor = 1.3
	// EaseFactorInitial 新建排程的初始难度系数
	EaseFactorInitial = 2.5
)

// ItemSchedule 每个 (用户, 练习项) 的间隔重复排程状态。
// 首次作答时惰性创建，之后每次作答更新，练习项存在期间不删除。
// swagger:model ItemSchedule
type ItemSchedule struct {
	BaseModel
	UserID             uint      `gorm:"uniqueIndex:idx_schedule_user_item;not null" json:"userId"`
	ItemID             uint      `gorm:"uniqueIndex:idx_schedule_user_item;not null" json:"itemId"`
	CourseID           uint      `gorm:"index" json:"courseId"`
	EaseFactor         float64   `gorm:"default:2.5" json:"easeFactor"`
	IntervalDays       int       `gorm:"default:0" json:"intervalDays"`
	NextReviewAt       time.Time `gorm:"index" json:"nextReviewAt"`
	ConsecutiveCorrect int       `gorm:"default:0" json:"consecutiveCorrect"`
	TimesCorrect       int       `gorm:"default:0" json:"timesCorrect"`
	TimesIncorrect     int       `gorm:"default:0" json:"timesIncorrect"`
	LastSeenAt         time.Time `json:"lastSeenAt"`
}

func (ItemSchedule) TableName() string {
	return "item_schedules"
}

// DaysOverdue 相对 now 已逾期的天数，不足一天按 0 计
func (s *ItemSchedule) DaysOverdue(now time.Time) int {
	if s.NextReviewAt.IsZero() || now.Before(s.NextReviewAt) {
		return 0
	}
	return int(now.Sub(s.NextReviewAt).Hours() / 24)
}
