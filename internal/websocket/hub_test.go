package websocket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-chat-service/internal/auth"
)

type fakePresence struct {
	mu      sync.Mutex
	online  []string
	offline []string
}

func (p *fakePresence) SetUserOnline(ctx context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = append(p.online, userID)
	return nil
}

func (p *fakePresence) SetUserOffline(ctx context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offline = append(p.offline, userID)
	return nil
}

func (p *fakePresence) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.online), len(p.offline)
}

func newHubClient(hub *Hub, userID string) *Client {
	return NewClient(hub, nil, nil, auth.Identity{UserID: userID})
}

func TestHubRegisterAndUnregister(t *testing.T) {
	presence := &fakePresence{}
	hub := NewHub(presence, nil)
	go hub.Run()
	defer hub.Stop()

	client := newHubClient(hub, "user-1")
	hub.register <- client

	require.Eventually(t, func() bool {
		online, _ := presence.counts()
		return online == 1
	}, time.Second, 5*time.Millisecond)

	hub.JoinRoom(client, RoomName("ch-1"))
	hub.JoinRoom(client, RoomName("ch-2"))
	assert.Equal(t, 1, hub.RoomSize(RoomName("ch-1")))

	hub.unregister <- client

	require.Eventually(t, func() bool {
		_, offline := presence.counts()
		return offline == 1
	}, time.Second, 5*time.Millisecond)

	// A dropped connection leaves every room implicitly.
	assert.Zero(t, hub.RoomSize(RoomName("ch-1")))
	assert.Zero(t, hub.RoomSize(RoomName("ch-2")))

	// The client is cancelled and refuses further payloads; the send
	// channel itself stays open.
	assert.True(t, client.isClosed())
	assert.ErrorIs(t, client.enqueue([]byte("late")), ErrClientDisconnected)
}

func TestHubOfflineOnlyAfterLastConnection(t *testing.T) {
	presence := &fakePresence{}
	hub := NewHub(presence, nil)
	go hub.Run()
	defer hub.Stop()

	first := newHubClient(hub, "user-1")
	second := newHubClient(hub, "user-1")
	hub.register <- first
	hub.register <- second

	require.Eventually(t, func() bool {
		online, _ := presence.counts()
		return online == 2
	}, time.Second, 5*time.Millisecond)

	hub.unregister <- first
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return !hub.clients[first]
	}, time.Second, 5*time.Millisecond)

	_, offline := presence.counts()
	assert.Zero(t, offline, "user still holds one live connection")

	hub.unregister <- second
	require.Eventually(t, func() bool {
		_, offline := presence.counts()
		return offline == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHubUnregisterUnknownClientIsNoop(t *testing.T) {
	hub := NewHub(nil, nil)
	go hub.Run()
	defer hub.Stop()

	stranger := newHubClient(hub, "user-1")
	hub.unregister <- stranger

	// Processing another request proves the loop did not wedge.
	known := newHubClient(hub, "user-2")
	hub.register <- known
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return hub.clients[known]
	}, time.Second, 5*time.Millisecond)
}

func TestBroadcastToRoomExcludesClient(t *testing.T) {
	hub := NewHub(nil, nil)

	a := newHubClient(hub, "a")
	b := newHubClient(hub, "b")
	hub.JoinRoom(a, "room")
	hub.JoinRoom(b, "room")

	hub.BroadcastToRoom("room", []byte("payload"), a)

	select {
	case got := <-b.send:
		assert.Equal(t, "payload", string(got))
	default:
		t.Fatal("excluded broadcast never reached the other member")
	}

	select {
	case <-a.send:
		t.Fatal("excluded client received its own broadcast")
	default:
	}
}

func TestBroadcastDropsClientWithFullBuffer(t *testing.T) {
	hub := NewHub(nil, nil)

	slow := newHubClient(hub, "slow")
	hub.JoinRoom(slow, "room")
	for i := 0; i < sendBufferSize; i++ {
		require.NoError(t, slow.enqueue([]byte("backlog")))
	}

	hub.BroadcastToRoom("room", []byte("one too many"), nil)

	assert.True(t, slow.isClosed(), "a client that stops draining is cut off")
}

func TestBroadcastDuringUnregisterDoesNotPanic(t *testing.T) {
	presence := &fakePresence{}
	hub := NewHub(presence, nil)
	go hub.Run()
	defer hub.Stop()

	const rounds = 50
	for i := 0; i < rounds; i++ {
		client := newHubClient(hub, "user-1")
		hub.register <- client
		hub.JoinRoom(client, "room")

		done := make(chan struct{})
		go func() {
			for j := 0; j < 100; j++ {
				hub.BroadcastToRoom("room", []byte("payload"), nil)
			}
			close(done)
		}()

		hub.unregister <- client
		<-done
	}

	require.Eventually(t, func() bool {
		_, offline := presence.counts()
		return offline == rounds
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRefreshPresenceReArmsOnlineKey(t *testing.T) {
	presence := &fakePresence{}
	hub := NewHub(presence, nil)

	hub.refreshPresence("user-1")
	hub.refreshPresence("user-1")

	online, _ := presence.counts()
	assert.Equal(t, 2, online)

	// A hub without a tracker must tolerate refresh calls.
	bare := NewHub(nil, nil)
	bare.refreshPresence("user-1")
}

func TestJoinRoomIsIdempotent(t *testing.T) {
	hub := NewHub(nil, nil)
	client := newHubClient(hub, "user-1")

	hub.JoinRoom(client, "room")
	hub.JoinRoom(client, "room")
	assert.Equal(t, 1, hub.RoomSize("room"))

	hub.LeaveRoom(client, "room")
	assert.Zero(t, hub.RoomSize("room"))

	hub.LeaveRoom(client, "room")
	assert.Zero(t, hub.RoomSize("room"))
}
