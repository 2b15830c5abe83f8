package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"course-chat-service/internal/models"
)

// fakeStore is an in-memory implementation of every store interface the
// services consume. It mirrors the repository contracts: lookups return
// (nil, nil) on a miss, channel pagination is cursor-based newest-first,
// and thread listing is oldest-first.
type fakeStore struct {
	mu       sync.Mutex
	courses  map[string]*models.Course
	members  map[string]*models.CourseMember
	channels map[string]*models.CourseChannel
	chanMems map[string]*models.CourseChannelMember
	threads  map[string]*models.CourseThread
	messages map[string]*models.CourseMessage

	clock time.Time

	failNext error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		courses:  make(map[string]*models.Course),
		members:  make(map[string]*models.CourseMember),
		channels: make(map[string]*models.CourseChannel),
		chanMems: make(map[string]*models.CourseChannelMember),
		threads:  make(map[string]*models.CourseThread),
		messages: make(map[string]*models.CourseMessage),
		clock:    time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

// tick advances the fake clock so inserted rows get distinct timestamps.
func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

/** -------------------- seed helpers -------------------- */

func (f *fakeStore) seedCourse(frozen bool) *models.Course {
	f.mu.Lock()
	defer f.mu.Unlock()
	course := &models.Course{ID: uuid.New().String(), Name: "Test Course", IsFrozen: frozen}
	f.courses[course.ID] = course
	return course
}

func (f *fakeStore) seedMember(courseID, userID, role string) *models.CourseMember {
	f.mu.Lock()
	defer f.mu.Unlock()
	member := &models.CourseMember{ID: uuid.New().String(), CourseID: courseID, UserID: userID, Role: role}
	f.members[member.ID] = member
	return member
}

func (f *fakeStore) seedChannel(courseID, postingMode string, frozen bool) *models.CourseChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	channel := &models.CourseChannel{
		ID:          uuid.New().String(),
		CourseID:    courseID,
		Type:        models.ChannelTypeGeneral,
		PostingMode: postingMode,
		Visibility:  models.VisibilityPublic,
		IsFrozen:    frozen,
	}
	f.channels[channel.ID] = channel
	return channel
}

func (f *fakeStore) seedThread(channelID string, rootMessageID *string) *models.CourseThread {
	f.mu.Lock()
	defer f.mu.Unlock()
	thread := &models.CourseThread{
		ID:            uuid.New().String(),
		ChannelID:     channelID,
		RootMessageID: rootMessageID,
		Type:          models.ThreadTypeMessageThread,
		CreatedAt:     f.tick(),
	}
	f.threads[thread.ID] = thread
	return thread
}

func (f *fakeStore) seedMessage(channelID string, threadID *string, authorMemberID *string, text string) *models.CourseMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	msg := &models.CourseMessage{
		ID:                   uuid.New().String(),
		ChannelID:            channelID,
		ThreadID:             threadID,
		AuthorCourseMemberID: authorMemberID,
		Text:                 text,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	f.messages[msg.ID] = msg
	return msg
}

/** -------------------- CourseStore / CourseMemberStore -------------------- */

func (f *fakeStore) FindByID(ctx context.Context, id string) (*models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	return f.courses[id], nil
}

func (f *fakeStore) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.CourseMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	for _, member := range f.members {
		if member.UserID == userID && member.CourseID == courseID {
			return member, nil
		}
	}
	return nil, nil
}

/** -------------------- ChannelStore -------------------- */

type fakeChannelStore struct{ *fakeStore }

func (f fakeChannelStore) FindByID(ctx context.Context, id string) (*models.CourseChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	return f.channels[id], nil
}

func (f fakeChannelStore) FindByCourse(ctx context.Context, courseID string) ([]*models.CourseChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.CourseChannel
	for _, channel := range f.channels {
		if channel.CourseID == courseID {
			out = append(out, channel)
		}
	}
	return out, nil
}

func (f fakeChannelStore) Create(ctx context.Context, channel *models.CourseChannel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	if channel.ID == "" {
		channel.ID = uuid.New().String()
	}
	channel.CreatedAt = f.tick()
	f.channels[channel.ID] = channel
	return nil
}

func (f fakeChannelStore) Update(ctx context.Context, channel *models.CourseChannel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	f.channels[channel.ID] = channel
	return nil
}

func (f fakeChannelStore) FindMember(ctx context.Context, channelID, courseMemberID string) (*models.CourseChannelMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, member := range f.chanMems {
		if member.ChannelID == channelID && member.CourseMemberID == courseMemberID {
			return member, nil
		}
	}
	return nil, nil
}

func (f fakeChannelStore) FindMemberByID(ctx context.Context, id string) (*models.CourseChannelMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	return f.chanMems[id], nil
}

func (f fakeChannelStore) FindMembers(ctx context.Context, channelID string) ([]*models.CourseChannelMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.CourseChannelMember
	for _, member := range f.chanMems {
		if member.ChannelID == channelID {
			out = append(out, member)
		}
	}
	return out, nil
}

func (f fakeChannelStore) AddMember(ctx context.Context, channelID, courseMemberID, status string) (*models.CourseChannelMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	member := &models.CourseChannelMember{
		ID:             uuid.New().String(),
		ChannelID:      channelID,
		CourseMemberID: courseMemberID,
		Status:         status,
		CreatedAt:      now,
	}
	switch status {
	case models.MemberStatusJoined:
		member.JoinedAt = &now
	case models.MemberStatusInvited:
		member.InvitedAt = &now
	}
	f.chanMems[member.ID] = member
	return member, nil
}

func (f fakeChannelStore) UpdateMemberStatus(ctx context.Context, id, status string) (*models.CourseChannelMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	member, ok := f.chanMems[id]
	if !ok {
		return nil, nil
	}
	now := f.tick()
	member.Status = status
	switch status {
	case models.MemberStatusJoined:
		member.JoinedAt = &now
	case models.MemberStatusDeclined:
		member.DeclinedAt = &now
	}
	return member, nil
}

/** -------------------- MessageStore -------------------- */

type fakeMessageStore struct{ *fakeStore }

func (f fakeMessageStore) FindByID(ctx context.Context, id string) (*models.CourseMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	return f.messages[id], nil
}

func (f fakeMessageStore) FindByChannel(ctx context.Context, channelID string, limit int, cursor string) ([]*models.CourseMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}

	var rows []*models.CourseMessage
	for _, msg := range f.messages {
		if msg.ChannelID == channelID && msg.ThreadID == nil {
			rows = append(rows, msg)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})

	if cursor != "" {
		anchor, ok := f.messages[cursor]
		if !ok {
			return nil, nil
		}
		var after []*models.CourseMessage
		for _, msg := range rows {
			older := msg.CreatedAt.Before(anchor.CreatedAt) ||
				(msg.CreatedAt.Equal(anchor.CreatedAt) && msg.ID < anchor.ID)
			if older {
				after = append(after, msg)
			}
		}
		rows = after
	}

	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f fakeMessageStore) FindByThread(ctx context.Context, threadID string) ([]*models.CourseMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []*models.CourseMessage
	for _, msg := range f.messages {
		if msg.ThreadID != nil && *msg.ThreadID == threadID {
			rows = append(rows, msg)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	return rows, nil
}

func (f fakeMessageStore) Create(ctx context.Context, msg *models.CourseMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	now := f.tick()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	f.messages[msg.ID] = msg
	return nil
}

func (f fakeMessageStore) UpdateText(ctx context.Context, id, text string) (*models.CourseMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	msg, ok := f.messages[id]
	if !ok {
		return nil, nil
	}
	msg.Text = text
	msg.UpdatedAt = f.tick()
	return msg, nil
}

func (f fakeMessageStore) CountByChannel(ctx context.Context, channelID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, msg := range f.messages {
		if msg.ChannelID == channelID {
			n++
		}
	}
	return n, nil
}

/** -------------------- ThreadStore -------------------- */

type fakeThreadStore struct{ *fakeStore }

func (f fakeThreadStore) FindByID(ctx context.Context, id string) (*models.CourseThread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	return f.threads[id], nil
}

func (f fakeThreadStore) FindByChannel(ctx context.Context, channelID string) ([]*models.CourseThread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.CourseThread
	for _, thread := range f.threads {
		if thread.ChannelID == channelID {
			out = append(out, thread)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f fakeThreadStore) FindByRootMessage(ctx context.Context, rootMessageID string) (*models.CourseThread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, thread := range f.threads {
		if thread.RootMessageID != nil && *thread.RootMessageID == rootMessageID {
			return thread, nil
		}
	}
	return nil, nil
}

func (f fakeThreadStore) Create(ctx context.Context, thread *models.CourseThread) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	if thread.ID == "" {
		thread.ID = uuid.New().String()
	}
	thread.CreatedAt = f.tick()
	f.threads[thread.ID] = thread
	return nil
}

func (f fakeThreadStore) CountMessages(ctx context.Context, threadID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, msg := range f.messages {
		if msg.ThreadID != nil && *msg.ThreadID == threadID {
			n++
		}
	}
	return n, nil
}

/** -------------------- EventPublisher -------------------- */

type recordingPublisher struct {
	mu        sync.Mutex
	published []*models.MessageResponse
	err       error
}

func (p *recordingPublisher) PublishMessageCreated(ctx context.Context, msg *models.MessageResponse) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}
