package postgres

import (
	"context"
	"errors"

	"course-chat-service/internal/models"

	"gorm.io/gorm"
)

type CourseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	err := r.db.WithContext(ctx).First(&course, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

type CourseMemberRepository struct {
	db *gorm.DB
}

func NewCourseMemberRepository(db *gorm.DB) *CourseMemberRepository {
	return &CourseMemberRepository{db: db}
}

// FindByUserAndCourse resolves a raw user id to the role-bearing course
// member identity, or nil when the user is not enrolled.
func (r *CourseMemberRepository) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.CourseMember, error) {
	var member models.CourseMember
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}
