package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeHandle struct {
	mu     sync.Mutex
	events []Event
	full   bool
	closed bool
}

func (f *fakeHandle) Deliver(ev Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full || f.closed {
		return false
	}
	f.events = append(f.events, ev)
	return true
}

func (f *fakeHandle) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeHandle) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeHandle) received(name string) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Event
	for _, ev := range f.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func TestHubPresence(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar())
	alice, bob := &fakeHandle{}, &fakeHandle{}

	hub.Connect("u-alice", alice)
	hub.Connect("u-bob", bob)
	assert.Equal(t, []string{"u-alice", "u-bob"}, hub.ListOnline())

	online := alice.received(EventOnlineUsers)
	require.Len(t, online, 2)
	assert.Equal(t, []string{"u-alice", "u-bob"}, online[1].Data)

	assert.True(t, hub.SendToUser("u-bob", EventNotification, "payload"))
	got := bob.received(EventNotification)
	require.Len(t, got, 1)
	assert.Equal(t, "payload", got[0].Data)

	assert.False(t, hub.SendToUser("u-carol", EventNotification, "payload"))

	hub.Disconnect(bob)
	assert.Equal(t, []string{"u-alice"}, hub.ListOnline())
	online = alice.received(EventOnlineUsers)
	assert.Equal(t, []string{"u-alice"}, online[len(online)-1].Data)
	assert.False(t, hub.SendToUser("u-bob", EventNotification, "payload"))
}

func TestHubReconnectKeepsNewestHandle(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar())
	old, fresh := &fakeHandle{}, &fakeHandle{}

	hub.Connect("u-1", old)
	hub.Connect("u-1", fresh)
	hub.Disconnect(old)

	assert.Equal(t, []string{"u-1"}, hub.ListOnline())
	assert.True(t, hub.SendToUser("u-1", EventMessage, "hi"))
	assert.Len(t, fresh.received(EventMessage), 1)
	assert.Empty(t, old.received(EventMessage))
	assert.True(t, old.isClosed())
	assert.False(t, fresh.isClosed())
}

func TestHubConcurrentConnectsEndWithCurrentList(t *testing.T) {
	for run := 0; run < 200; run++ {
		hub := NewHub(zap.NewNop().Sugar())
		watcher := &fakeHandle{}
		hub.Connect("watcher", watcher)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				userId := fmt.Sprintf("u-%d", i)
				h := &fakeHandle{}
				hub.Connect(userId, h)
				if i%2 == 0 {
					hub.Disconnect(h)
				}
			}(i)
		}
		wg.Wait()

		online := watcher.received(EventOnlineUsers)
		require.NotEmpty(t, online)
		require.Equal(t, hub.ListOnline(), online[len(online)-1].Data)
	}
}

func TestHubDropsWhenQueueFull(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar())
	slow := &fakeHandle{full: true}
	hub.Connect("u-slow", slow)

	assert.False(t, hub.SendToUser("u-slow", EventNotification, 1))
	assert.Equal(t, []string{"u-slow"}, hub.ListOnline())
}

func TestHubClose(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar())
	a, b := &fakeHandle{}, &fakeHandle{}
	hub.Connect("a", a)
	hub.Connect("b", b)

	hub.Close()
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.Empty(t, hub.ListOnline())

	late := &fakeHandle{}
	hub.Connect("c", late)
	assert.True(t, late.closed)
	assert.Empty(t, hub.ListOnline())
}

type wireEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

func dial(t *testing.T, srv *httptest.Server, userId string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user=" + userId
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn, name string) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var ev wireEvent
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Name == name {
			return ev
		}
	}
}

func TestServeDeliversInOrder(t *testing.T) {
	log := zap.NewNop().Sugar()
	hub := NewHub(log)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = Serve(w, r, hub, r.URL.Query().Get("user"), 16, log)
	}))
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv, "u-provider")
	ev := readEvent(t, conn, EventOnlineUsers)
	var online []string
	require.NoError(t, json.Unmarshal(ev.Data, &online))
	assert.Equal(t, []string{"u-provider"}, online)

	for _, text := range []string{"one", "two", "three"} {
		require.True(t, hub.SendToUser("u-provider", EventMessage, map[string]string{"content": text}))
	}
	for _, want := range []string{"one", "two", "three"} {
		ev := readEvent(t, conn, EventMessage)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(ev.Data, &payload))
		assert.Equal(t, want, payload["content"])
	}

	require.NoError(t, conn.WriteJSON(map[string]any{"event": EventJoinRoom, "data": "u-provider"}))
	readEvent(t, conn, EventOnlineUsers)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return len(hub.ListOnline()) == 0 }, 3*time.Second, 10*time.Millisecond)
}
