package services

import (
	"context"

	"course-chat-service/internal/models"
)

// Store interfaces consumed by the services. The gorm implementations live
// in internal/repositories/postgres; tests substitute in-memory fakes.

type ChannelStore interface {
	FindByID(ctx context.Context, id string) (*models.CourseChannel, error)
	FindByCourse(ctx context.Context, courseID string) ([]*models.CourseChannel, error)
	Create(ctx context.Context, channel *models.CourseChannel) error
	Update(ctx context.Context, channel *models.CourseChannel) error
	FindMember(ctx context.Context, channelID, courseMemberID string) (*models.CourseChannelMember, error)
	FindMemberByID(ctx context.Context, id string) (*models.CourseChannelMember, error)
	FindMembers(ctx context.Context, channelID string) ([]*models.CourseChannelMember, error)
	AddMember(ctx context.Context, channelID, courseMemberID, status string) (*models.CourseChannelMember, error)
	UpdateMemberStatus(ctx context.Context, id, status string) (*models.CourseChannelMember, error)
}

type MessageStore interface {
	FindByID(ctx context.Context, id string) (*models.CourseMessage, error)
	FindByChannel(ctx context.Context, channelID string, limit int, cursor string) ([]*models.CourseMessage, error)
	FindByThread(ctx context.Context, threadID string) ([]*models.CourseMessage, error)
	Create(ctx context.Context, msg *models.CourseMessage) error
	UpdateText(ctx context.Context, id, text string) (*models.CourseMessage, error)
	CountByChannel(ctx context.Context, channelID string) (int64, error)
}

type ThreadStore interface {
	FindByID(ctx context.Context, id string) (*models.CourseThread, error)
	FindByChannel(ctx context.Context, channelID string) ([]*models.CourseThread, error)
	FindByRootMessage(ctx context.Context, rootMessageID string) (*models.CourseThread, error)
	Create(ctx context.Context, thread *models.CourseThread) error
	CountMessages(ctx context.Context, threadID string) (int64, error)
}

type CourseStore interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type CourseMemberStore interface {
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.CourseMember, error)
}

// EventPublisher receives domain events after successful persistence.
// Implementations must not block the request path on broker failures.
type EventPublisher interface {
	PublishMessageCreated(ctx context.Context, msg *models.MessageResponse) error
}
