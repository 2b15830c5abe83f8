package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CourseMessage is a single message in a channel. Messages with a nil
// ThreadID are root messages and the only ones returned by channel-level
// pagination; thread replies are visible via thread lookup only.
// AuthorCourseMemberID is nil for system messages.
type CourseMessage struct {
	ID                   string    `gorm:"type:uuid;primaryKey" json:"id"`
	ChannelID            string    `gorm:"type:uuid;not null;index:idx_messages_channel_created" json:"channelId"`
	ThreadID             *string   `gorm:"type:uuid;index" json:"threadId"`
	AuthorCourseMemberID *string   `gorm:"type:uuid" json:"authorCourseMemberId"`
	Text                 string    `gorm:"type:text;not null" json:"text"`
	IsEmergency          bool      `gorm:"not null;default:false" json:"isEmergency"`
	CreatedAt            time.Time `gorm:"index:idx_messages_channel_created" json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func (m *CourseMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

/** -------------------- DTOs -------------------- */

type SendMessageRequest struct {
	Text        string  `json:"text" binding:"required"`
	ThreadID    *string `json:"threadId"`
	IsEmergency bool    `json:"isEmergency"`
}

type UpdateMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

type MessageResponse struct {
	ID                   string    `json:"id"`
	ChannelID            string    `json:"channelId"`
	ThreadID             *string   `json:"threadId"`
	AuthorCourseMemberID *string   `json:"authorCourseMemberId"`
	Text                 string    `json:"text"`
	IsEmergency          bool      `json:"isEmergency"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

type MessageListResponse struct {
	Messages []*MessageResponse `json:"messages"`
	HasMore  bool               `json:"hasMore"`
}

// ToResponse converts the gorm model to its API shape.
func (m *CourseMessage) ToResponse() *MessageResponse {
	return &MessageResponse{
		ID:                   m.ID,
		ChannelID:            m.ChannelID,
		ThreadID:             m.ThreadID,
		AuthorCourseMemberID: m.AuthorCourseMemberID,
		Text:                 m.Text,
		IsEmergency:          m.IsEmergency,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}
