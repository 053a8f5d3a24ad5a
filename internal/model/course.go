package model

// swagger:model Course
type Course struct {
	BaseModel
	Title         string `gorm:"size:200;not null" json:"title"`
	Code          string `gorm:"size:50;index" json:"code"`
	Description   string `gorm:"type:text" json:"description"`
	InstitutionID *uint  `gorm:"index" json:"institutionId,omitempty"`
	CreatedBy     uint   `gorm:"index" json:"createdBy"`
}

// CourseUnit 课程单元（周/模块）
// swagger:model CourseUnit
type CourseUnit struct {
	BaseModel
	CourseID    uint   `gorm:"index;not null" json:"courseId"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Position    int    `gorm:"default:0" json:"position"` // 课程内顺序
}
