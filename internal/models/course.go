package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Course member role constants. Role drives message-level permissions:
// instructor-level roles may delete any message and manage channels.
// Assistants and learners hold no such privileges.
const (
	RoleInstructorOwner = "instructor_owner"
	RoleInstructor      = "instructor"
	RoleAssistant       = "assistant"
	RoleLearner         = "learner"
)

// Course is the tenant boundary for every channel and message. Identity
// lives in the external provider; courses reference users by their
// provider subject.
type Course struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	IsFrozen  bool      `gorm:"not null;default:false" json:"isFrozen"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// CourseMember binds an external user to a course with a role. Messages
// are authored by course members, not users, so the same person posting
// in two courses leaves two distinct author identities.
type CourseMember struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  string    `gorm:"type:uuid;not null;index:idx_course_members_pair,unique" json:"courseId"`
	UserID    string    `gorm:"type:varchar(255);not null;index:idx_course_members_pair,unique" json:"userId"`
	Role      string    `gorm:"type:varchar(30);not null;default:'learner'" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *CourseMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// IsInstructor reports whether the member holds an instructor-level role.
// Assistants are deliberately excluded.
func (m *CourseMember) IsInstructor() bool {
	return m.Role == RoleInstructorOwner || m.Role == RoleInstructor
}
