package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// SessionPriority 选题结果的粗粒度分类：哪一档主导了本次会话
type SessionPriority string

const (
	PriorityGaps    SessionPriority = "gaps"
	PriorityReviews SessionPriority = "reviews"
	PriorityMixed   SessionPriority = "mixed"
	PriorityNew     SessionPriority = "new"
)

// ResponseFeedback 学习者作答反馈的三个档位
type ResponseFeedback string

const (
	FeedbackGotIt  ResponseFeedback = "got_it"
	FeedbackUnsure ResponseFeedback = "unsure"
	FeedbackMissed ResponseFeedback = "missed"
)

// StudySession 一次练习会话：选出的有序练习项及分档统计
// swagger:model StudySession
type StudySession struct {
	BaseModel
	UserID       uint            `gorm:"index;not null" json:"userId"`
	CourseID     uint            `gorm:"index;not null" json:"courseId"`
	UnitIDs      datatypes.JSON  `json:"unitIds"`
	Status       SessionStatus   `gorm:"size:20;default:'active';index" json:"status"`
	MaxItems     int             `json:"maxItems"`
	ItemIDs      datatypes.JSON  `json:"itemIds"` // 有序
	GapCount     int             `json:"gapCount"`
	ReviewCount  int             `json:"reviewCount"`
	NewCount     int             `json:"newCount"`
	PriorityMode SessionPriority `gorm:"size:20" json:"priorityMode"`
	StartedAt    time.Time       `json:"startedAt"`
	CompletedAt  *time.Time      `json:"completedAt,omitempty"`
}

func (StudySession) TableName() string {
	return "study_sessions"
}

func (s *StudySession) SetUnitIDs(ids []uint) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	s.UnitIDs = datatypes.JSON(data)
	return nil
}

func (s *StudySession) UnitIDList() []uint {
	var ids []uint
	if len(s.UnitIDs) > 0 {
		json.Unmarshal(s.UnitIDs, &ids)
	}
	return ids
}

func (s *StudySession) SetItemIDs(ids []uint) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	s.ItemIDs = datatypes.JSON(data)
	return nil
}

func (s *StudySession) ItemIDList() []uint {
	var ids []uint
	if len(s.ItemIDs) > 0 {
		json.Unmarshal(s.ItemIDs, &ids)
	}
	return ids
}

// StudyResponse 一次作答事件。Score = Quality × 20，供表现分析聚合。
// swagger:model StudyResponse
type StudyResponse struct {
	BaseModel
	SessionID   uint             `gorm:"index;not null" json:"sessionId"`
	UserID      uint             `gorm:"index:idx_response_user_course;not null" json:"userId"`
	CourseID    uint             `gorm:"index:idx_response_user_course;not null" json:"courseId"`
	ItemID      uint             `gorm:"index;not null" json:"itemId"`
	ContentType ContentType      `gorm:"size:30;not null" json:"contentType"`
	Feedback    ResponseFeedback `gorm:"size:20;not null" json:"feedback"`
	Quality     int              `gorm:"not null" json:"quality"` // 0-5
	Score       float64          `gorm:"not null" json:"score"`   // 0-100
	TimeSpentMs int              `json:"timeSpentMs"`
}

func (StudyResponse) TableName() string {
	return "study_responses"
}
