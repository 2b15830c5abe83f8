package services

import (
	"context"
	"log/slog"
	"time"

	"course-chat-service/internal/models"
)

const channelDeletedReason = "Channel deleted by instructor"

// ChannelService holds channel CRUD, freeze lifecycle, channel membership
// and thread management. Channels are only ever frozen, never removed.
type ChannelService struct {
	channels ChannelStore
	threads  ThreadStore
	courses  CourseStore
	members  CourseMemberStore
	logger   *slog.Logger
}

func NewChannelService(
	channels ChannelStore,
	threads ThreadStore,
	courses CourseStore,
	members CourseMemberStore,
	logger *slog.Logger,
) *ChannelService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelService{
		channels: channels,
		threads:  threads,
		courses:  courses,
		members:  members,
		logger:   logger,
	}
}

// GetChannel returns a single channel after a course membership check.
func (s *ChannelService) GetChannel(ctx context.Context, userID, channelID string) (*models.ChannelResponse, error) {
	channel, err := s.requireChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourseMember(ctx, userID, channel.CourseID); err != nil {
		return nil, err
	}
	return channel.ToResponse(), nil
}

// ListChannels returns every channel of a course the caller belongs to.
func (s *ChannelService) ListChannels(ctx context.Context, userID, courseID string) ([]*models.ChannelResponse, error) {
	if _, err := s.requireCourse(ctx, courseID); err != nil {
		return nil, err
	}
	if _, err := s.requireCourseMember(ctx, userID, courseID); err != nil {
		return nil, err
	}

	channels, err := s.channels.FindByCourse(ctx, courseID)
	if err != nil {
		return nil, s.storeFailure("list channels", err)
	}

	out := make([]*models.ChannelResponse, 0, len(channels))
	for _, channel := range channels {
		out = append(out, channel.ToResponse())
	}
	return out, nil
}

// CreateChannel creates a channel in a course. Instructor-level roles only;
// frozen courses reject channel creation.
func (s *ChannelService) CreateChannel(ctx context.Context, userID, courseID string, req *models.CreateChannelRequest) (*models.ChannelResponse, error) {
	course, err := s.requireCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.IsFrozen {
		return nil, Frozen("Course is frozen and cannot be modified")
	}
	if err := s.requireInstructor(ctx, userID, courseID); err != nil {
		return nil, err
	}

	channel := &models.CourseChannel{
		CourseID:    courseID,
		Type:        req.Type,
		PostingMode: req.PostingMode,
		Visibility:  req.Visibility,
		Name:        req.Name,
	}
	if channel.PostingMode == "" {
		channel.PostingMode = models.PostingModeMixed
	}
	if channel.Visibility == "" {
		channel.Visibility = models.VisibilityPublic
	}

	if err := s.channels.Create(ctx, channel); err != nil {
		return nil, s.storeFailure("create channel", err)
	}

	s.logger.Info("channel created", "channelID", channel.ID, "courseID", courseID)
	return channel.ToResponse(), nil
}

// UpdateChannel applies a partial update. Instructor-level roles only;
// frozen channels reject updates.
func (s *ChannelService) UpdateChannel(ctx context.Context, userID, channelID string, req *models.UpdateChannelRequest) (*models.ChannelResponse, error) {
	channel, err := s.requireChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if channel.IsFrozen {
		return nil, Frozen("Channel is frozen and cannot be modified")
	}
	if err := s.requireInstructor(ctx, userID, channel.CourseID); err != nil {
		return nil, err
	}

	if req.Name != nil {
		channel.Name = req.Name
	}
	if req.PostingMode != nil {
		channel.PostingMode = *req.PostingMode
	}
	if req.Visibility != nil {
		channel.Visibility = *req.Visibility
	}

	if err := s.channels.Update(ctx, channel); err != nil {
		return nil, s.storeFailure("update channel", err)
	}

	s.logger.Info("channel updated", "channelID", channelID)
	return channel.ToResponse(), nil
}

// DeleteChannel freezes the channel as the deletion surrogate. Only the
// course owner may do this; the row is never removed.
func (s *ChannelService) DeleteChannel(ctx context.Context, userID, channelID string) error {
	channel, err := s.requireChannel(ctx, channelID)
	if err != nil {
		return err
	}

	member, err := s.requireCourseMember(ctx, userID, channel.CourseID)
	if err != nil {
		return err
	}
	if member.Role != models.RoleInstructorOwner {
		return Forbidden("Only the course owner can delete channels")
	}

	now := time.Now()
	reason := channelDeletedReason
	channel.IsFrozen = true
	channel.FrozenAt = &now
	channel.FrozenByUserID = &userID
	channel.FreezeReason = &reason

	if err := s.channels.Update(ctx, channel); err != nil {
		return s.storeFailure("delete channel", err)
	}

	s.logger.Info("channel frozen", "channelID", channelID, "userID", userID)
	return nil
}

// ListMembers returns channel membership rows.
func (s *ChannelService) ListMembers(ctx context.Context, userID, channelID string) ([]*models.CourseChannelMember, error) {
	channel, err := s.requireChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourseMember(ctx, userID, channel.CourseID); err != nil {
		return nil, err
	}
	members, err := s.channels.FindMembers(ctx, channelID)
	if err != nil {
		return nil, s.storeFailure("list channel members", err)
	}
	return members, nil
}

// AddMember adds a course member to a channel in joined or invited state.
// Frozen channels accept no membership changes.
func (s *ChannelService) AddMember(ctx context.Context, userID, channelID string, req *models.AddChannelMemberRequest) (*models.CourseChannelMember, error) {
	channel, err := s.requireChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if channel.IsFrozen {
		return nil, Frozen("Channel is frozen and cannot accept membership changes")
	}
	if err := s.requireInstructor(ctx, userID, channel.CourseID); err != nil {
		return nil, err
	}

	existing, err := s.channels.FindMember(ctx, channelID, req.CourseMemberID)
	if err != nil {
		return nil, s.storeFailure("add channel member", err)
	}
	if existing != nil {
		return nil, InvalidState("Member already belongs to this channel")
	}

	status := req.Status
	if status == "" {
		status = models.MemberStatusJoined
	}

	member, err := s.channels.AddMember(ctx, channelID, req.CourseMemberID, status)
	if err != nil {
		return nil, s.storeFailure("add channel member", err)
	}

	s.logger.Info("channel member added", "channelID", channelID, "courseMemberID", req.CourseMemberID)
	return member, nil
}

// UpdateMemberStatus resolves a pending invitation to joined or declined.
// The invited member answers their own invite; instructor-level roles may
// answer on anyone's behalf. Frozen channels accept no membership changes.
func (s *ChannelService) UpdateMemberStatus(ctx context.Context, userID, channelID, memberID, status string) (*models.CourseChannelMember, error) {
	channel, err := s.requireChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if channel.IsFrozen {
		return nil, Frozen("Channel is frozen and cannot accept membership changes")
	}

	caller, err := s.requireCourseMember(ctx, userID, channel.CourseID)
	if err != nil {
		return nil, err
	}

	row, err := s.channels.FindMemberByID(ctx, memberID)
	if err != nil {
		return nil, s.storeFailure("update channel member", err)
	}
	if row == nil || row.ChannelID != channelID {
		return nil, NotFound("Channel member not found")
	}

	if row.CourseMemberID != caller.ID && !caller.IsInstructor() {
		return nil, Forbidden("You can only update your own membership")
	}
	if row.Status != models.MemberStatusInvited {
		return nil, InvalidState("Only pending invitations can change status")
	}

	updated, err := s.channels.UpdateMemberStatus(ctx, memberID, status)
	if err != nil {
		return nil, s.storeFailure("update channel member", err)
	}

	s.logger.Info("channel member status updated", "channelID", channelID, "memberID", memberID, "status", status)
	return updated, nil
}

// CreateThread opens a thread in a channel, optionally anchored to a root
// message. A root message can anchor at most one thread.
func (s *ChannelService) CreateThread(ctx context.Context, userID, channelID string, req *models.CreateThreadRequest) (*models.ThreadResponse, error) {
	channel, err := s.requireChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if channel.IsFrozen {
		return nil, Frozen("Channel is frozen and cannot accept new threads")
	}
	if _, err := s.requireCourseMember(ctx, userID, channel.CourseID); err != nil {
		return nil, err
	}

	if req.RootMessageID != nil {
		existing, err := s.threads.FindByRootMessage(ctx, *req.RootMessageID)
		if err != nil {
			return nil, s.storeFailure("create thread", err)
		}
		if existing != nil {
			return nil, InvalidState("A thread already exists for this message")
		}
	}

	thread := &models.CourseThread{
		ChannelID:     channelID,
		RootMessageID: req.RootMessageID,
		Type:          req.Type,
	}
	if thread.Type == "" {
		thread.Type = models.ThreadTypeMessageThread
	}

	if err := s.threads.Create(ctx, thread); err != nil {
		return nil, s.storeFailure("create thread", err)
	}

	s.logger.Info("thread created", "threadID", thread.ID, "channelID", channelID)
	return thread.ToResponse(), nil
}

// ListThreads returns every thread of a channel, newest-first.
func (s *ChannelService) ListThreads(ctx context.Context, userID, channelID string) ([]*models.ThreadResponse, error) {
	channel, err := s.requireChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireCourseMember(ctx, userID, channel.CourseID); err != nil {
		return nil, err
	}

	threads, err := s.threads.FindByChannel(ctx, channelID)
	if err != nil {
		return nil, s.storeFailure("list threads", err)
	}

	out := make([]*models.ThreadResponse, 0, len(threads))
	for _, thread := range threads {
		out = append(out, thread.ToResponse())
	}
	return out, nil
}

// ResolveCourseID returns the owning course of a channel. The gateway uses
// it for the optional join-time membership policy.
func (s *ChannelService) ResolveCourseID(ctx context.Context, channelID string) (string, error) {
	channel, err := s.requireChannel(ctx, channelID)
	if err != nil {
		return "", err
	}
	return channel.CourseID, nil
}

// IsCourseMember reports whether the user resolves to a member of the course.
func (s *ChannelService) IsCourseMember(ctx context.Context, userID, courseID string) (bool, error) {
	member, err := s.members.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return false, s.storeFailure("resolve course member", err)
	}
	return member != nil, nil
}

func (s *ChannelService) requireChannel(ctx context.Context, channelID string) (*models.CourseChannel, error) {
	channel, err := s.channels.FindByID(ctx, channelID)
	if err != nil {
		return nil, s.storeFailure("find channel", err)
	}
	if channel == nil {
		return nil, NotFound("Channel not found")
	}
	return channel, nil
}

func (s *ChannelService) requireCourse(ctx context.Context, courseID string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, s.storeFailure("find course", err)
	}
	if course == nil {
		return nil, NotFound("Course not found")
	}
	return course, nil
}

func (s *ChannelService) requireCourseMember(ctx context.Context, userID, courseID string) (*models.CourseMember, error) {
	member, err := s.members.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return nil, s.storeFailure("resolve course member", err)
	}
	if member == nil {
		return nil, Forbidden("You are not a member of this course")
	}
	return member, nil
}

func (s *ChannelService) requireInstructor(ctx context.Context, userID, courseID string) error {
	member, err := s.requireCourseMember(ctx, userID, courseID)
	if err != nil {
		return err
	}
	if !member.IsInstructor() {
		return Forbidden("Only instructors can perform this action")
	}
	return nil
}

func (s *ChannelService) storeFailure(op string, err error) error {
	s.logger.Error("store operation failed", "op", op, "error", err)
	return Transient("A temporary error occurred, please retry")
}
