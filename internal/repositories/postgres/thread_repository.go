package postgres

import (
	"context"
	"errors"

	"course-chat-service/internal/models"

	"gorm.io/gorm"
)

type ThreadRepository struct {
	db *gorm.DB
}

func NewThreadRepository(db *gorm.DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

func (r *ThreadRepository) FindByID(ctx context.Context, id string) (*models.CourseThread, error) {
	var thread models.CourseThread
	err := r.db.WithContext(ctx).First(&thread, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

func (r *ThreadRepository) FindByChannel(ctx context.Context, channelID string) ([]*models.CourseThread, error) {
	var threads []*models.CourseThread
	err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("created_at DESC").
		Find(&threads).Error
	return threads, err
}

func (r *ThreadRepository) FindByRootMessage(ctx context.Context, rootMessageID string) (*models.CourseThread, error) {
	var thread models.CourseThread
	err := r.db.WithContext(ctx).
		Where("root_message_id = ?", rootMessageID).
		First(&thread).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

func (r *ThreadRepository) Create(ctx context.Context, thread *models.CourseThread) error {
	return r.db.WithContext(ctx).Create(thread).Error
}

func (r *ThreadRepository) CountMessages(ctx context.Context, threadID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CourseMessage{}).
		Where("thread_id = ?", threadID).
		Count(&count).Error
	return count, err
}
