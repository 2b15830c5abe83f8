package postgres

import (
	"context"
	"errors"

	"course-chat-service/internal/models"

	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) FindByID(ctx context.Context, id string) (*models.CourseMessage, error) {
	var msg models.CourseMessage
	err := r.db.WithContext(ctx).First(&msg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindByChannel returns root messages (thread replies excluded) newest-first.
// The cursor is the id of the last message of the previous page and is
// consumed exclusively: rows strictly after it in (created_at, id) descending
// order are returned.
func (r *MessageRepository) FindByChannel(ctx context.Context, channelID string, limit int, cursor string) ([]*models.CourseMessage, error) {
	q := r.db.WithContext(ctx).
		Where("channel_id = ? AND thread_id IS NULL", channelID).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if cursor != "" {
		var at models.CourseMessage
		if err := r.db.WithContext(ctx).Select("id", "created_at").First(&at, "id = ?", cursor).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, gorm.ErrRecordNotFound
			}
			return nil, err
		}
		q = q.Where("(created_at, id) < (?, ?)", at.CreatedAt, at.ID)
	}

	var messages []*models.CourseMessage
	err := q.Find(&messages).Error
	return messages, err
}

func (r *MessageRepository) FindByThread(ctx context.Context, threadID string) ([]*models.CourseMessage, error) {
	var messages []*models.CourseMessage
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

func (r *MessageRepository) Create(ctx context.Context, msg *models.CourseMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// UpdateText replaces the message body. Logical deletion goes through here
// as well, with the tombstone text as the new body.
func (r *MessageRepository) UpdateText(ctx context.Context, id, text string) (*models.CourseMessage, error) {
	var msg models.CourseMessage
	if err := r.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	msg.Text = text
	if err := r.db.WithContext(ctx).Save(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepository) CountByChannel(ctx context.Context, channelID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CourseMessage{}).
		Where("channel_id = ?", channelID).
		Count(&count).Error
	return count, err
}
