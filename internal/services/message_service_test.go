package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-chat-service/internal/models"
)

type messageServiceFixture struct {
	store      *fakeStore
	publisher  *recordingPublisher
	service    *MessageService
	course     *models.Course
	channel    *models.CourseChannel
	instructor *models.CourseMember
	learner    *models.CourseMember
}

func newMessageServiceFixture(t *testing.T) *messageServiceFixture {
	t.Helper()

	store := newFakeStore()
	publisher := &recordingPublisher{}
	service := NewMessageService(
		fakeMessageStore{store},
		fakeThreadStore{store},
		fakeChannelStore{store},
		store,
		publisher,
		nil,
	)

	course := store.seedCourse(false)
	return &messageServiceFixture{
		store:      store,
		publisher:  publisher,
		service:    service,
		course:     course,
		channel:    store.seedChannel(course.ID, models.PostingModeMixed, false),
		instructor: store.seedMember(course.ID, "instructor-1", models.RoleInstructorOwner),
		learner:    store.seedMember(course.ID, "learner-1", models.RoleLearner),
	}
}

func assertCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	require.Error(t, err)
	svcErr := AsError(err)
	assert.Equal(t, code, svcErr.Code)
}

func TestSendMessagePersistsWithMemberAuthor(t *testing.T) {
	f := newMessageServiceFixture(t)

	msg, err := f.service.SendMessage(context.Background(), f.learner.UserID, f.channel.ID, SendMessageData{Text: "hello"})
	require.NoError(t, err)
	require.NotNil(t, msg)

	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, f.channel.ID, msg.ChannelID)
	require.NotNil(t, msg.AuthorCourseMemberID)
	assert.Equal(t, f.learner.ID, *msg.AuthorCourseMemberID,
		"messages are authored by the course member, not the raw user id")
	assert.Nil(t, msg.ThreadID)
	assert.Equal(t, 1, f.publisher.count())
}

func TestSendMessageUnknownChannel(t *testing.T) {
	f := newMessageServiceFixture(t)

	_, err := f.service.SendMessage(context.Background(), f.learner.UserID, "no-such-channel", SendMessageData{Text: "hi"})
	assertCode(t, err, CodeNotFound)
}

func TestSendMessageNonMemberForbidden(t *testing.T) {
	f := newMessageServiceFixture(t)

	_, err := f.service.SendMessage(context.Background(), "stranger", f.channel.ID, SendMessageData{Text: "hi"})
	assertCode(t, err, CodeForbidden)
}

func TestSendMessageFrozenChannel(t *testing.T) {
	f := newMessageServiceFixture(t)
	frozen := f.store.seedChannel(f.course.ID, models.PostingModeMixed, true)

	// The freeze gate applies before role checks, so instructors are
	// rejected the same way learners are.
	for _, userID := range []string{f.learner.UserID, f.instructor.UserID} {
		_, err := f.service.SendMessage(context.Background(), userID, frozen.ID, SendMessageData{Text: "hello"})
		assertCode(t, err, CodeFrozen)
		assert.Equal(t, "Channel is frozen and cannot accept messages", err.Error())
	}

	count, err := fakeMessageStore{f.store}.CountByChannel(context.Background(), frozen.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSendMessageThreadsOnlyChannel(t *testing.T) {
	f := newMessageServiceFixture(t)
	threadsOnly := f.store.seedChannel(f.course.ID, models.PostingModeThreadsOnly, false)

	_, err := f.service.SendMessage(context.Background(), f.learner.UserID, threadsOnly.ID, SendMessageData{Text: "root post"})
	assertCode(t, err, CodeForbidden)

	// A reply into an existing thread is still allowed.
	thread := f.store.seedThread(threadsOnly.ID, nil)
	msg, err := f.service.SendMessage(context.Background(), f.learner.UserID, threadsOnly.ID, SendMessageData{Text: "reply", ThreadID: &thread.ID})
	require.NoError(t, err)
	require.NotNil(t, msg.ThreadID)
	assert.Equal(t, thread.ID, *msg.ThreadID)
}

func TestSendMessageUnknownThread(t *testing.T) {
	f := newMessageServiceFixture(t)

	missing := "missing-thread"
	_, err := f.service.SendMessage(context.Background(), f.learner.UserID, f.channel.ID, SendMessageData{Text: "reply", ThreadID: &missing})
	assertCode(t, err, CodeNotFound)
}

func TestSendMessagePublisherFailureDoesNotFailSend(t *testing.T) {
	f := newMessageServiceFixture(t)
	f.publisher.err = errors.New("broker down")

	msg, err := f.service.SendMessage(context.Background(), f.learner.UserID, f.channel.ID, SendMessageData{Text: "hello"})
	require.NoError(t, err)
	assert.NotNil(t, msg)
}

func TestSendMessageStoreFailureIsTransient(t *testing.T) {
	f := newMessageServiceFixture(t)
	f.store.failNext = errors.New("connection reset by peer")

	_, err := f.service.SendMessage(context.Background(), f.learner.UserID, f.channel.ID, SendMessageData{Text: "hello"})
	assertCode(t, err, CodeTransient)
	assert.NotContains(t, err.Error(), "connection reset",
		"raw store errors must not leak to clients")
}

func TestListMessagesPaginatesWithoutGapsOrDuplicates(t *testing.T) {
	f := newMessageServiceFixture(t)

	const total = 25
	for i := 0; i < total; i++ {
		f.store.seedMessage(f.channel.ID, nil, &f.learner.ID, fmt.Sprintf("message %d", i))
	}

	seen := make(map[string]int)
	cursor := ""
	pages := 0
	for {
		page, err := f.service.ListMessages(context.Background(), f.learner.UserID, f.channel.ID, 10, cursor)
		require.NoError(t, err)
		pages++

		for _, msg := range page.Messages {
			seen[msg.ID]++
		}
		if !page.HasMore {
			assert.LessOrEqual(t, len(page.Messages), 10)
			break
		}
		require.NotEmpty(t, page.Messages)
		cursor = page.Messages[len(page.Messages)-1].ID
	}

	assert.Equal(t, 3, pages)
	assert.Len(t, seen, total, "every message appears in exactly one page")
	for id, n := range seen {
		assert.Equal(t, 1, n, "message %s returned more than once", id)
	}
}

func TestListMessagesNewestFirst(t *testing.T) {
	f := newMessageServiceFixture(t)

	first := f.store.seedMessage(f.channel.ID, nil, &f.learner.ID, "first")
	second := f.store.seedMessage(f.channel.ID, nil, &f.learner.ID, "second")

	page, err := f.service.ListMessages(context.Background(), f.learner.UserID, f.channel.ID, 10, "")
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, second.ID, page.Messages[0].ID)
	assert.Equal(t, first.ID, page.Messages[1].ID)
	assert.False(t, page.HasMore)
}

func TestListMessagesExcludesThreadReplies(t *testing.T) {
	f := newMessageServiceFixture(t)

	root := f.store.seedMessage(f.channel.ID, nil, &f.learner.ID, "root")
	thread := f.store.seedThread(f.channel.ID, &root.ID)
	f.store.seedMessage(f.channel.ID, &thread.ID, &f.instructor.ID, "reply one")
	f.store.seedMessage(f.channel.ID, &thread.ID, &f.learner.ID, "reply two")

	page, err := f.service.ListMessages(context.Background(), f.learner.UserID, f.channel.ID, 10, "")
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, root.ID, page.Messages[0].ID)

	replies, err := f.service.ListThreadMessages(context.Background(), f.learner.UserID, thread.ID)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, "reply one", replies[0].Text)
	assert.Equal(t, "reply two", replies[1].Text)
}

func TestListMessagesNonMemberForbidden(t *testing.T) {
	f := newMessageServiceFixture(t)

	_, err := f.service.ListMessages(context.Background(), "stranger", f.channel.ID, 10, "")
	assertCode(t, err, CodeForbidden)
}

func TestListMessagesCapsPageSize(t *testing.T) {
	f := newMessageServiceFixture(t)

	for i := 0; i < MaxPageSize+5; i++ {
		f.store.seedMessage(f.channel.ID, nil, &f.learner.ID, "m")
	}

	page, err := f.service.ListMessages(context.Background(), f.learner.UserID, f.channel.ID, 1000, "")
	require.NoError(t, err)
	assert.Len(t, page.Messages, MaxPageSize)
	assert.True(t, page.HasMore)
}

func TestUpdateMessageAuthorOnly(t *testing.T) {
	f := newMessageServiceFixture(t)
	msg := f.store.seedMessage(f.channel.ID, nil, &f.learner.ID, "typo here")

	updated, err := f.service.UpdateMessage(context.Background(), f.learner.UserID, msg.ID, "fixed")
	require.NoError(t, err)
	assert.Equal(t, "fixed", updated.Text)

	// Even instructors cannot edit someone else's words.
	_, err = f.service.UpdateMessage(context.Background(), f.instructor.UserID, msg.ID, "rewritten")
	assertCode(t, err, CodeForbidden)
}

func TestUpdateMessageFrozenChannel(t *testing.T) {
	f := newMessageServiceFixture(t)
	frozen := f.store.seedChannel(f.course.ID, models.PostingModeMixed, true)
	msg := f.store.seedMessage(frozen.ID, nil, &f.learner.ID, "old")

	_, err := f.service.UpdateMessage(context.Background(), f.learner.UserID, msg.ID, "new")
	assertCode(t, err, CodeFrozen)
}

func TestUpdateSystemMessageForbidden(t *testing.T) {
	f := newMessageServiceFixture(t)
	msg := f.store.seedMessage(f.channel.ID, nil, nil, "Assignment due Friday")

	_, err := f.service.UpdateMessage(context.Background(), f.instructor.UserID, msg.ID, "edited")
	assertCode(t, err, CodeForbidden)
}

func TestDeleteMessagePermissionMatrix(t *testing.T) {
	f := newMessageServiceFixture(t)
	instructor := f.store.seedMember(f.course.ID, "instructor-2", models.RoleInstructor)
	assistant := f.store.seedMember(f.course.ID, "assistant-1", models.RoleAssistant)
	other := f.store.seedMember(f.course.ID, "learner-2", models.RoleLearner)

	cases := []struct {
		name    string
		caller  string
		allowed bool
	}{
		{"author may delete", f.learner.UserID, true},
		{"course owner may delete any message", f.instructor.UserID, true},
		{"instructor may delete any message", instructor.UserID, true},
		{"assistant may not delete others' messages", assistant.UserID, false},
		{"other learner may not", other.UserID, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := f.store.seedMessage(f.channel.ID, nil, &f.learner.ID, "target")
			err := f.service.DeleteMessage(context.Background(), tc.caller, msg.ID)
			if tc.allowed {
				require.NoError(t, err)
				assert.Equal(t, TombstoneText, f.store.messages[msg.ID].Text)
			} else {
				assertCode(t, err, CodeForbidden)
				assert.Equal(t, "target", f.store.messages[msg.ID].Text)
			}
		})
	}
}

func TestDeleteMessageKeepsOrdering(t *testing.T) {
	f := newMessageServiceFixture(t)

	a := f.store.seedMessage(f.channel.ID, nil, &f.learner.ID, "a")
	b := f.store.seedMessage(f.channel.ID, nil, &f.learner.ID, "b")
	c := f.store.seedMessage(f.channel.ID, nil, &f.learner.ID, "c")

	require.NoError(t, f.service.DeleteMessage(context.Background(), f.learner.UserID, b.ID))

	page, err := f.service.ListMessages(context.Background(), f.learner.UserID, f.channel.ID, 10, "")
	require.NoError(t, err)
	require.Len(t, page.Messages, 3, "deleted messages stay in the feed as tombstones")
	assert.Equal(t, []string{c.ID, b.ID, a.ID}, []string{page.Messages[0].ID, page.Messages[1].ID, page.Messages[2].ID})
	assert.Equal(t, TombstoneText, page.Messages[1].Text)
}

func TestListThreadMessagesUnknownThread(t *testing.T) {
	f := newMessageServiceFixture(t)

	_, err := f.service.ListThreadMessages(context.Background(), f.learner.UserID, "missing")
	assertCode(t, err, CodeNotFound)
}
