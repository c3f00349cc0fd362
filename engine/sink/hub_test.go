package sink

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/strata/engine/containers"
	"github.com/spaghettifunk/strata/engine/core"
	"github.com/spaghettifunk/strata/engine/hierarchy"
	"github.com/spaghettifunk/strata/engine/layout"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) (int, []byte) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return kind, data
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	kind, data := readFrame(t, conn)
	require.Equal(t, websocket.TextMessage, kind)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubReplaysSessionToLateClients(t *testing.T) {
	hub := NewHub(0, 0)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	session := core.NewSessionID()
	hub.StartSession(session)
	hub.Log("loading", 0.25)
	hub.CellBounds("top", layout.Point{X: -1, Y: 0}, layout.Point{X: 4, Y: 2}, true)
	hub.Mesh("top", "top_met1", layout.MakeTag(68, 20), testMesh())

	conn := dial(t, srv)

	msg := readJSON(t, conn)
	assert.Equal(t, TypeLog, msg["type"])
	assert.Equal(t, session.String(), msg["session"])
	assert.Equal(t, "loading", msg["text"])
	assert.Equal(t, 0.25, msg["elapsed"])

	msg = readJSON(t, conn)
	assert.Equal(t, TypeAddCell, msg["type"])
	assert.Equal(t, []interface{}{-1.0, 0.0}, msg["min"])
	assert.Equal(t, true, msg["top"])

	kind, data := readFrame(t, conn)
	require.Equal(t, websocket.BinaryMessage, kind)
	header, positions, indices, err := DecodeMeshFrame(data)
	require.NoError(t, err)
	assert.Equal(t, TypeAddMesh, header.Type)
	assert.Equal(t, session, header.Session)
	assert.Equal(t, "top_met1", header.Name)
	assert.Len(t, positions, 9)
	assert.Equal(t, []uint32{0, 1, 2}, indices)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	hub.ReferencePlacement(hierarchy.Placement{Parent: "top", Child: "leaf", Instance: "x1", Origin: layout.Point{X: 3, Y: 4}})
	hub.ReferencesComplete()
	hub.Progress(42)
	hub.Ended()

	msg = readJSON(t, conn)
	assert.Equal(t, TypeAddReference, msg["type"])
	assert.Equal(t, "x1", msg["instance"])
	assert.Equal(t, []interface{}{3.0, 4.0}, msg["origin"])
	matrix, ok := msg["matrix"].([]interface{})
	require.True(t, ok)
	assert.Len(t, matrix, 16)
	assert.Equal(t, 3.0, matrix[12])
	assert.Equal(t, 4.0, matrix[13])

	assert.Equal(t, TypeFinishedReferences, readJSON(t, conn)["type"])
	msg = readJSON(t, conn)
	assert.Equal(t, TypeProgress, msg["type"])
	assert.Equal(t, 42.0, msg["progress"])
	assert.Equal(t, TypeEnded, readJSON(t, conn)["type"])
}

func TestHubNewSessionDropsHistory(t *testing.T) {
	hub := NewHub(0, 0)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	hub.Log("old run", 0)
	next := core.NewSessionID()
	hub.StartSession(next)
	assert.Equal(t, next, hub.Session())
	hub.Stats("top", layout.LibraryInfo{CellNames: []string{"top", "leaf"}, NumPolygons: 3, Unit: 1e-6})

	conn := dial(t, srv)
	msg := readJSON(t, conn)
	assert.Equal(t, TypeStats, msg["type"])
	assert.Equal(t, next.String(), msg["session"])
	assert.Equal(t, "top", msg["top_cell"])
	assert.Equal(t, []interface{}{"top", "leaf"}, msg["cells"])
	assert.Equal(t, 3.0, msg["num_polygons"])
}

func TestHubStampsHistoryWithCurrentSession(t *testing.T) {
	hub := NewHub(0, 0)
	defer hub.Close()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					hub.Progress(50)
				}
			}
		}()
	}
	for i := 0; i < 200; i++ {
		hub.StartSession(core.NewSessionID())
	}
	close(stop)
	wg.Wait()

	hub.mu.Lock()
	defer hub.mu.Unlock()
	for _, f := range hub.history {
		var env Envelope
		require.NoError(t, json.Unmarshal(f.data, &env))
		assert.Equal(t, hub.session, env.Session)
	}
}

func TestHubHistoryBudget(t *testing.T) {
	session := core.NewSessionID()
	one, err := json.Marshal(LogMessage{Envelope: Envelope{Type: TypeLog, Session: session}, Text: "step", Elapsed: 1})
	require.NoError(t, err)

	hub := NewHub(0, 2*len(one)+len(one)/2)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	hub.StartSession(session)
	for i := 0; i < 3; i++ {
		hub.Log("step", 1)
	}
	frames, size := hub.History()
	assert.Equal(t, 2, frames)
	assert.Equal(t, 2*len(one), size)

	// a smaller message still fits but the history stays closed for the session
	hub.Ended()
	frames, _ = hub.History()
	assert.Equal(t, 2, frames)

	conn := dial(t, srv)
	assert.Equal(t, TypeLog, readJSON(t, conn)["type"])
	assert.Equal(t, TypeLog, readJSON(t, conn)["type"])

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)
	hub.Progress(10)
	msg := readJSON(t, conn)
	assert.Equal(t, TypeProgress, msg["type"])

	hub.StartSession(core.NewSessionID())
	hub.Log("step", 1)
	frames, _ = hub.History()
	assert.Equal(t, 1, frames)
}

func TestHubClose(t *testing.T) {
	hub := NewHub(0, 0)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Close())
	assert.Zero(t, hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	assert.Error(t, err)
	if resp != nil {
		assert.Equal(t, 503, resp.StatusCode)
	}
}

func TestClientPushReportsFullQueue(t *testing.T) {
	c := &client{
		queue: containers.NewRingQueue[frame](2),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	assert.True(t, c.push(frame{kind: websocket.TextMessage, data: []byte("a")}))
	assert.True(t, c.push(frame{kind: websocket.TextMessage, data: []byte("b")}))
	assert.False(t, c.push(frame{kind: websocket.TextMessage, data: []byte("c")}))

	f, ok := c.pop()
	require.True(t, ok)
	assert.Equal(t, "a", string(f.data))
	assert.Len(t, c.wake, 1)
}
