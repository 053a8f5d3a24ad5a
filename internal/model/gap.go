package model

// LearningGap 每个 (用户, 内容类型, 练习项) 的薄弱点标记。
// 首次答错创建，重复答错升级 severity，连续答对达到阈值后停用。
// swagger:model LearningGap
type LearningGap struct {
	BaseModel
	UserID      uint        `gorm:"uniqueIndex:idx_gap_user_type_item;not null" json:"userId"`
	ContentType ContentType `gorm:"size:30;uniqueIndex:idx_gap_user_type_item;not null" json:"contentType"`
	ItemID      uint        `gorm:"uniqueIndex:idx_gap_user_type_item;not null" json:"itemId"`
	CourseID    uint        `gorm:"index" json:"courseId"`
	Severity    int         `gorm:"default:3" json:"severity"` // 1-10
	IsActive    bool        `gorm:"default:true;index" json:"isActive"`
}

func (LearningGap) TableName() string {
	return "learning_gaps"
}
