package postgres

import (
	"context"
	"errors"
	"time"

	"course-chat-service/internal/models"

	"gorm.io/gorm"
)

type ChannelRepository struct {
	db *gorm.DB
}

func NewChannelRepository(db *gorm.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

func (r *ChannelRepository) FindByID(ctx context.Context, id string) (*models.CourseChannel, error) {
	var channel models.CourseChannel
	err := r.db.WithContext(ctx).First(&channel, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

func (r *ChannelRepository) FindByCourse(ctx context.Context, courseID string) ([]*models.CourseChannel, error) {
	var channels []*models.CourseChannel
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&channels).Error
	return channels, err
}

func (r *ChannelRepository) Create(ctx context.Context, channel *models.CourseChannel) error {
	return r.db.WithContext(ctx).Create(channel).Error
}

func (r *ChannelRepository) Update(ctx context.Context, channel *models.CourseChannel) error {
	return r.db.WithContext(ctx).Save(channel).Error
}

func (r *ChannelRepository) FindMember(ctx context.Context, channelID, courseMemberID string) (*models.CourseChannelMember, error) {
	var member models.CourseChannelMember
	err := r.db.WithContext(ctx).
		Where("channel_id = ? AND course_member_id = ?", channelID, courseMemberID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *ChannelRepository) FindMemberByID(ctx context.Context, id string) (*models.CourseChannelMember, error) {
	var member models.CourseChannelMember
	err := r.db.WithContext(ctx).First(&member, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *ChannelRepository) FindMembers(ctx context.Context, channelID string) ([]*models.CourseChannelMember, error) {
	var members []*models.CourseChannelMember
	err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

func (r *ChannelRepository) AddMember(ctx context.Context, channelID, courseMemberID, status string) (*models.CourseChannelMember, error) {
	now := time.Now()
	member := &models.CourseChannelMember{
		ChannelID:      channelID,
		CourseMemberID: courseMemberID,
		Status:         status,
	}
	switch status {
	case models.MemberStatusJoined:
		member.JoinedAt = &now
	case models.MemberStatusInvited:
		member.InvitedAt = &now
	}
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

func (r *ChannelRepository) UpdateMemberStatus(ctx context.Context, id, status string) (*models.CourseChannelMember, error) {
	var member models.CourseChannelMember
	if err := r.db.WithContext(ctx).First(&member, "id = ?", id).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	member.Status = status
	switch status {
	case models.MemberStatusJoined:
		member.JoinedAt = &now
	case models.MemberStatusDeclined:
		member.DeclinedAt = &now
	}

	if err := r.db.WithContext(ctx).Save(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}
