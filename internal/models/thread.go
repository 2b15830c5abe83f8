package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Thread type constants
const (
	ThreadTypeSubmission    = "submission"
	ThreadTypeMessageThread = "message_thread"
)

// CourseThread is a sub-conversation anchored to a channel and optionally
// to a root message.
type CourseThread struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	ChannelID     string    `gorm:"type:uuid;not null;index" json:"channelId"`
	RootMessageID *string   `gorm:"type:uuid;uniqueIndex" json:"rootMessageId"`
	Type          string    `gorm:"type:varchar(20);not null;default:'message_thread'" json:"type"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (t *CourseThread) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

/** -------------------- DTOs -------------------- */

type CreateThreadRequest struct {
	RootMessageID *string `json:"rootMessageId"`
	Type          string  `json:"type" binding:"omitempty,oneof=submission message_thread"`
}

type ThreadResponse struct {
	ID            string    `json:"id"`
	ChannelID     string    `json:"channelId"`
	RootMessageID *string   `json:"rootMessageId"`
	Type          string    `json:"type"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ToResponse converts the gorm model to its API shape.
func (t *CourseThread) ToResponse() *ThreadResponse {
	return &ThreadResponse{
		ID:            t.ID,
		ChannelID:     t.ChannelID,
		RootMessageID: t.RootMessageID,
		Type:          t.Type,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}
