package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Channel type constants
const (
	ChannelTypeAssignment   = "assignment"
	ChannelTypeOneOnOne     = "one_on_one"
	ChannelTypeAnnouncement = "announcement"
	ChannelTypeGeneral      = "general"
)

// Posting mode constants
const (
	PostingModeMixed       = "mixed"
	PostingModeThreadsOnly = "threads_only"
)

// Visibility constants
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Channel member status constants
const (
	MemberStatusInvited  = "invited"
	MemberStatusJoined   = "joined"
	MemberStatusDeclined = "declined"
)

// CourseChannel is a scoped messaging stream within a course. Channels are
// never hard-deleted; freezing is the deletion surrogate and a frozen
// channel accepts no new messages or membership changes.
type CourseChannel struct {
	ID             string     `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID       string     `gorm:"type:uuid;not null;index" json:"courseId"`
	Type           string     `gorm:"type:varchar(20);not null" json:"type"`
	PostingMode    string     `gorm:"type:varchar(20);not null;default:'mixed'" json:"postingMode"`
	Visibility     string     `gorm:"type:varchar(20);not null;default:'public'" json:"visibility"`
	Name           *string    `json:"name"`
	IsFrozen       bool       `gorm:"not null;default:false" json:"isFrozen"`
	FrozenAt       *time.Time `json:"frozenAt"`
	FrozenByUserID *string    `json:"frozenByUserId"`
	FreezeReason   *string    `json:"freezeReason"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (c *CourseChannel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// CourseChannelMember tracks join/invite/decline state per
// (channel, course member) pair. Distinct from course membership.
type CourseChannelMember struct {
	ID             string     `gorm:"type:uuid;primaryKey" json:"id"`
	ChannelID      string     `gorm:"type:uuid;not null;index:idx_channel_members_pair,unique" json:"channelId"`
	CourseMemberID string     `gorm:"type:uuid;not null;index:idx_channel_members_pair,unique" json:"courseMemberId"`
	Status         string     `gorm:"type:varchar(20);not null;default:'joined'" json:"status"`
	JoinedAt       *time.Time `json:"joinedAt"`
	InvitedAt      *time.Time `json:"invitedAt"`
	DeclinedAt     *time.Time `json:"declinedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (m *CourseChannelMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

/** -------------------- DTOs -------------------- */

type CreateChannelRequest struct {
	Type        string  `json:"type" binding:"required,oneof=assignment one_on_one announcement general"`
	PostingMode string  `json:"postingMode" binding:"omitempty,oneof=mixed threads_only"`
	Visibility  string  `json:"visibility" binding:"omitempty,oneof=public private"`
	Name        *string `json:"name"`
}

type UpdateChannelRequest struct {
	Name        *string `json:"name"`
	PostingMode *string `json:"postingMode" binding:"omitempty,oneof=mixed threads_only"`
	Visibility  *string `json:"visibility" binding:"omitempty,oneof=public private"`
}

type AddChannelMemberRequest struct {
	CourseMemberID string `json:"courseMemberId" binding:"required"`
	Status         string `json:"status" binding:"omitempty,oneof=invited joined"`
}

type UpdateChannelMemberStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=joined declined"`
}

type ChannelResponse struct {
	ID             string     `json:"id"`
	CourseID       string     `json:"courseId"`
	Type           string     `json:"type"`
	PostingMode    string     `json:"postingMode"`
	Visibility     string     `json:"visibility"`
	Name           *string    `json:"name"`
	IsFrozen       bool       `json:"isFrozen"`
	FrozenAt       *time.Time `json:"frozenAt"`
	FrozenByUserID *string    `json:"frozenByUserId"`
	FreezeReason   *string    `json:"freezeReason"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// ToResponse converts the gorm model to its API shape.
func (c *CourseChannel) ToResponse() *ChannelResponse {
	return &ChannelResponse{
		ID:             c.ID,
		CourseID:       c.CourseID,
		Type:           c.Type,
		PostingMode:    c.PostingMode,
		Visibility:     c.Visibility,
		Name:           c.Name,
		IsFrozen:       c.IsFrozen,
		FrozenAt:       c.FrozenAt,
		FrozenByUserID: c.FrozenByUserID,
		FreezeReason:   c.FreezeReason,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
