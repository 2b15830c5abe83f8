package services

import (
	"context"
	"log/slog"

	"course-chat-service/internal/models"
)

const (
	// DefaultPageSize is the channel feed page size when the client
	// does not request one.
	DefaultPageSize = 20

	// MaxPageSize caps the channel feed page size.
	MaxPageSize = 100

	// TombstoneText replaces the body of logically deleted messages.
	// The row is retained for ordering and audit continuity.
	TombstoneText = "[deleted]"
)

// SendMessageData carries the caller-supplied fields of a new message.
type SendMessageData struct {
	Text        string
	ThreadID    *string
	IsEmergency bool
}

// MessageService holds the transport-agnostic authorization and business
// rules for messages. Both the REST handlers and the websocket gateway
// delegate here, which is what keeps socket-originated and HTTP-originated
// writes consistent.
type MessageService struct {
	messages  MessageStore
	threads   ThreadStore
	channels  ChannelStore
	members   CourseMemberStore
	publisher EventPublisher
	logger    *slog.Logger
}

func NewMessageService(
	messages MessageStore,
	threads ThreadStore,
	channels ChannelStore,
	members CourseMemberStore,
	publisher EventPublisher,
	logger *slog.Logger,
) *MessageService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageService{
		messages:  messages,
		threads:   threads,
		channels:  channels,
		members:   members,
		publisher: publisher,
		logger:    logger,
	}
}

// ListMessages returns one page of a channel's root messages, newest-first.
// hasMore is computed by overshooting the limit by one row and trimming.
func (s *MessageService) ListMessages(ctx context.Context, userID, channelID string, limit int, cursor string) (*models.MessageListResponse, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	channel, err := s.channels.FindByID(ctx, channelID)
	if err != nil {
		return nil, s.storeFailure("list messages", err)
	}
	if channel == nil {
		return nil, NotFound("Channel not found")
	}

	if _, err := s.requireCourseMember(ctx, userID, channel.CourseID); err != nil {
		return nil, err
	}

	rows, err := s.messages.FindByChannel(ctx, channelID, limit+1, cursor)
	if err != nil {
		return nil, s.storeFailure("list messages", err)
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	out := make([]*models.MessageResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToResponse())
	}

	return &models.MessageListResponse{Messages: out, HasMore: hasMore}, nil
}

// ListThreadMessages returns every message of a thread, oldest-first.
func (s *MessageService) ListThreadMessages(ctx context.Context, userID, threadID string) ([]*models.MessageResponse, error) {
	thread, err := s.threads.FindByID(ctx, threadID)
	if err != nil {
		return nil, s.storeFailure("list thread messages", err)
	}
	if thread == nil {
		return nil, NotFound("Thread not found")
	}

	channel, err := s.channels.FindByID(ctx, thread.ChannelID)
	if err != nil {
		return nil, s.storeFailure("list thread messages", err)
	}
	if channel == nil {
		return nil, NotFound("Channel not found")
	}

	if _, err := s.requireCourseMember(ctx, userID, channel.CourseID); err != nil {
		return nil, err
	}

	rows, err := s.messages.FindByThread(ctx, threadID)
	if err != nil {
		return nil, s.storeFailure("list thread messages", err)
	}

	out := make([]*models.MessageResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToResponse())
	}
	return out, nil
}

// SendMessage validates channel state and caller membership, persists the
// message keyed by the resolved course member id, and returns the DTO.
func (s *MessageService) SendMessage(ctx context.Context, userID, channelID string, data SendMessageData) (*models.MessageResponse, error) {
	channel, err := s.channels.FindByID(ctx, channelID)
	if err != nil {
		return nil, s.storeFailure("send message", err)
	}
	if channel == nil {
		return nil, NotFound("Channel not found")
	}

	if channel.IsFrozen {
		return nil, Frozen("Channel is frozen and cannot accept messages")
	}

	member, err := s.requireCourseMember(ctx, userID, channel.CourseID)
	if err != nil {
		return nil, err
	}

	// Threads-only channels reject root-level messages; replies inside an
	// existing thread remain allowed.
	if channel.PostingMode == models.PostingModeThreadsOnly && data.ThreadID == nil {
		return nil, Forbidden("This channel only allows messages within threads")
	}

	if data.ThreadID != nil {
		thread, err := s.threads.FindByID(ctx, *data.ThreadID)
		if err != nil {
			return nil, s.storeFailure("send message", err)
		}
		if thread == nil {
			return nil, NotFound("Thread not found")
		}
	}

	msg := &models.CourseMessage{
		ChannelID:            channelID,
		ThreadID:             data.ThreadID,
		AuthorCourseMemberID: &member.ID,
		Text:                 data.Text,
		IsEmergency:          data.IsEmergency,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, s.storeFailure("send message", err)
	}

	s.logger.Info("message sent",
		"messageID", msg.ID, "channelID", channelID, "memberID", member.ID)

	response := msg.ToResponse()

	if s.publisher != nil {
		if err := s.publisher.PublishMessageCreated(ctx, response); err != nil {
			s.logger.Warn("message event publish failed", "messageID", msg.ID, "error", err)
		}
	}

	return response, nil
}

// UpdateMessage replaces a message body. Only the author may edit, and
// only while the channel is not frozen.
func (s *MessageService) UpdateMessage(ctx context.Context, userID, messageID, text string) (*models.MessageResponse, error) {
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, s.storeFailure("update message", err)
	}
	if msg == nil {
		return nil, NotFound("Message not found")
	}

	channel, err := s.channels.FindByID(ctx, msg.ChannelID)
	if err != nil {
		return nil, s.storeFailure("update message", err)
	}
	if channel == nil {
		return nil, NotFound("Channel not found")
	}
	if channel.IsFrozen {
		return nil, Frozen("Channel is frozen and messages cannot be modified")
	}

	if err := s.requireAuthor(ctx, userID, channel.CourseID, msg); err != nil {
		return nil, err
	}

	updated, err := s.messages.UpdateText(ctx, messageID, text)
	if err != nil {
		return nil, s.storeFailure("update message", err)
	}

	s.logger.Info("message updated", "messageID", messageID)
	return updated.ToResponse(), nil
}

// DeleteMessage logically deletes a message: the body is replaced with the
// tombstone text and the row is kept so channel ordering is unchanged.
// Allowed for the author and for instructor-level course members.
func (s *MessageService) DeleteMessage(ctx context.Context, userID, messageID string) error {
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return s.storeFailure("delete message", err)
	}
	if msg == nil {
		return NotFound("Message not found")
	}

	channel, err := s.channels.FindByID(ctx, msg.ChannelID)
	if err != nil {
		return s.storeFailure("delete message", err)
	}
	if channel == nil {
		return NotFound("Channel not found")
	}

	member, err := s.requireCourseMember(ctx, userID, channel.CourseID)
	if err != nil {
		return err
	}

	isAuthor := msg.AuthorCourseMemberID != nil && *msg.AuthorCourseMemberID == member.ID
	if !isAuthor && !member.IsInstructor() {
		return Forbidden("You can only delete your own messages or be an instructor")
	}

	if _, err := s.messages.UpdateText(ctx, messageID, TombstoneText); err != nil {
		return s.storeFailure("delete message", err)
	}

	s.logger.Info("message deleted", "messageID", messageID, "userID", userID)
	return nil
}

func (s *MessageService) requireCourseMember(ctx context.Context, userID, courseID string) (*models.CourseMember, error) {
	member, err := s.members.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return nil, s.storeFailure("resolve course member", err)
	}
	if member == nil {
		return nil, Forbidden("You are not a member of this course")
	}
	return member, nil
}

func (s *MessageService) requireAuthor(ctx context.Context, userID, courseID string, msg *models.CourseMessage) error {
	if msg.AuthorCourseMemberID == nil {
		return Forbidden("System messages cannot be modified")
	}
	member, err := s.requireCourseMember(ctx, userID, courseID)
	if err != nil {
		return err
	}
	if member.ID != *msg.AuthorCourseMemberID {
		return Forbidden("You can only edit your own messages")
	}
	return nil
}

func (s *MessageService) storeFailure(op string, err error) error {
	s.logger.Error("store operation failed", "op", op, "error", err)
	return Transient("A temporary error occurred, please retry")
}
