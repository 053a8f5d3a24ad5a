package model

type PerformanceLevel string

const (
	LevelStruggling PerformanceLevel = "struggling"
	LevelAverage    PerformanceLevel = "average"
	LevelExcelling  PerformanceLevel = "excelling"
)

// PerformanceProfile 学习者表现画像。按请求从作答历史现算，不落库。
// swagger:model PerformanceProfile
type PerformanceProfile struct {
	PerformanceLevel      PerformanceLevel        `json:"performanceLevel"`
	LearningGaps          []ContentType           `json:"learningGaps"`
	PreferredDifficulty   Difficulty              `json:"preferredDifficulty"`
	ContentTypeEngagement map[ContentType]float64 `json:"contentTypeEngagement"`
	LastScore             float64                 `json:"lastScore"`
	StreakCount           int                     `json:"streakCount"`
}

// DefaultPerformanceProfile 中性画像，聚合失败或无历史时的回退值
func DefaultPerformanceProfile() PerformanceProfile {
	return PerformanceProfile{
		PerformanceLevel:      LevelAverage,
		LearningGaps:          []ContentType{},
		PreferredDifficulty:   DifficultyIntermediate,
		ContentTypeEngagement: map[ContentType]float64{},
		LastScore:             75,
		StreakCount:           0,
	}
}

// HasGap 判断某内容类型是否在薄弱项里
func (p *PerformanceProfile) HasGap(ct ContentType) bool {
	for _, g := range p.LearningGaps {
		if g == ct {
			return true
		}
	}
	return false
}
