package sink

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/spaghettifunk/strata/engine/containers"
	"github.com/spaghettifunk/strata/engine/core"
	"github.com/spaghettifunk/strata/engine/hierarchy"
	"github.com/spaghettifunk/strata/engine/layout"
	"github.com/spaghettifunk/strata/engine/mesh"
)

const (
	// DefaultQueueSize is the number of frames a client may lag behind
	// before it is disconnected.
	DefaultQueueSize = 4096
	// DefaultHistoryBytes bounds the frames kept for replay per session.
	DefaultHistoryBytes = 512 << 20

	writeWait = 10 * time.Second
)

type frame struct {
	kind int
	data []byte
}

/**
 * @brief Hub streams the events of the current session to every connected
 * viewer over websockets. Frames of the session are kept, up to a byte
 * budget, so a viewer connecting late receives what was sent before it
 * joined. Once the budget is spent later frames still reach connected
 * viewers but are no longer recorded, and late viewers get a partial replay.
 */
type Hub struct {
	upgrader     websocket.Upgrader
	queueSize    int
	historyLimit int

	mu          sync.Mutex
	session     core.SessionID
	history     []frame
	historySize int
	truncated   bool
	clients     map[*client]struct{}
	closed      bool
}

// NewHub creates a hub. Non-positive sizes select DefaultQueueSize and
// DefaultHistoryBytes.
func NewHub(queueSize, historyBytes int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if historyBytes <= 0 {
		historyBytes = DefaultHistoryBytes
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// the viewer is served from anywhere during development
				return true
			},
		},
		queueSize:    queueSize,
		historyLimit: historyBytes,
		session:      core.NewSessionID(),
		clients:      make(map[*client]struct{}),
	}
}

// StartSession drops the history of the previous run. Connected clients
// stay connected and tell runs apart by the session stamped on each message.
func (h *Hub) StartSession(id core.SessionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session = id
	h.history = nil
	h.historySize = 0
	h.truncated = false
	core.LogDebug("hub session %s started with %d clients", id, len(h.clients))
}

// History returns how many frames and bytes are kept for replay.
func (h *Hub) History() (frames, bytes int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.history), h.historySize
}

func (h *Hub) Session() core.SessionID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, "hub closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		core.LogWarn("websocket upgrade from %s failed: %s", r.RemoteAddr, err.Error())
		return
	}

	c := &client{
		hub:   h,
		conn:  conn,
		queue: containers.NewRingQueue[frame](h.queueSize),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	backlog := make([]frame, len(h.history))
	copy(backlog, h.history)
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	core.LogInfo("viewer %s connected, replaying %d messages", r.RemoteAddr, len(backlog))
	go c.writeLoop(backlog)
	c.readLoop()
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	return nil
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// publish stamps the message with the current session, records it and
// queues it for every client, all under one lock so a concurrent
// StartSession cannot split the stamp from the history it lands in.
func (h *Hub) publish(kind string, encode func(env Envelope) (frame, error)) {
	var slow []*client

	h.mu.Lock()
	f, err := encode(Envelope{Type: kind, Session: h.session})
	if err != nil {
		h.mu.Unlock()
		core.LogError("cannot encode viewer message %s: %s", kind, err.Error())
		return
	}
	h.record(f)
	for c := range h.clients {
		if !c.push(f) {
			delete(h.clients, c)
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		core.LogWarn("viewer %s is too slow, disconnecting", c.conn.RemoteAddr())
		c.close()
	}
}

// record appends f to the replay history unless the byte budget is spent.
// Callers hold h.mu.
func (h *Hub) record(f frame) {
	if h.truncated {
		return
	}
	if h.historySize+len(f.data) > h.historyLimit {
		h.truncated = true
		core.LogWarn("replay history of session %s is full at %d bytes, late viewers get a partial replay", h.session, h.historySize)
		return
	}
	h.history = append(h.history, f)
	h.historySize += len(f.data)
}

func (h *Hub) sendJSON(kind string, build func(env Envelope) interface{}) {
	h.publish(kind, func(env Envelope) (frame, error) {
		data, err := json.Marshal(build(env))
		return frame{kind: websocket.TextMessage, data: data}, err
	})
}

func (h *Hub) Log(text string, elapsed float64) {
	h.sendJSON(TypeLog, func(env Envelope) interface{} {
		return LogMessage{Envelope: env, Text: text, Elapsed: elapsed}
	})
}

func (h *Hub) Stats(top string, info layout.LibraryInfo) {
	h.sendJSON(TypeStats, func(env Envelope) interface{} {
		return StatsMessage{
			Envelope:      env,
			TopCell:       top,
			Cells:         info.CellNames,
			ShapeTags:     info.ShapeTags,
			LabelTags:     info.LabelTags,
			NumPolygons:   info.NumPolygons,
			NumReferences: info.NumReferences,
			NumLabels:     info.NumLabels,
			Unit:          info.Unit,
			Precision:     info.Precision,
		}
	})
}

func (h *Hub) CellBounds(cell string, min, max layout.Point, top bool) {
	h.sendJSON(TypeAddCell, func(env Envelope) interface{} {
		return CellMessage{
			Envelope: env,
			Cell:     cell,
			Min:      [2]float64{min.X, min.Y},
			Max:      [2]float64{max.X, max.Y},
			Top:      top,
		}
	})
}

func (h *Hub) Mesh(cell, name string, tag layout.Tag, m *mesh.Mesh) {
	h.sendMesh(TypeAddMesh, cell, name, tag, m)
}

func (h *Hub) Lines(cell, name string, tag layout.Tag, m *mesh.Mesh) {
	h.sendMesh(TypeAddLines, cell, name, tag, m)
}

func (h *Hub) sendMesh(kind, cell, name string, tag layout.Tag, m *mesh.Mesh) {
	h.publish(kind, func(env Envelope) (frame, error) {
		data, err := EncodeMeshFrame(MeshHeader{
			Envelope: env,
			Cell:     cell,
			Name:     name,
			Layer:    tag.Layer,
			Datatype: tag.Datatype,
		}, m)
		return frame{kind: websocket.BinaryMessage, data: data}, err
	})
}

func (h *Hub) Label(cell string, tag layout.Tag, text string, x, y, z float64) {
	h.sendJSON(TypeAddLabel, func(env Envelope) interface{} {
		return LabelMessage{
			Envelope: env,
			Cell:     cell,
			Layer:    tag.Layer,
			Datatype: tag.Datatype,
			Text:     text,
			Position: [3]float64{x, y, z},
		}
	})
}

func (h *Hub) ReferencePlacement(p hierarchy.Placement) {
	h.sendJSON(TypeAddReference, func(env Envelope) interface{} {
		return ReferenceMessage{
			Envelope:    env,
			Parent:      p.Parent,
			Child:       p.Child,
			Instance:    p.Instance,
			Origin:      [2]float64{p.Origin.X, p.Origin.Y},
			Rotation:    p.Rotation,
			XReflection: p.XReflection,
			Matrix:      p.Matrix().Data,
		}
	})
}

func (h *Hub) ReferencesComplete() {
	h.sendJSON(TypeFinishedReferences, func(env Envelope) interface{} { return env })
}

func (h *Hub) Progress(percent float64) {
	h.sendJSON(TypeProgress, func(env Envelope) interface{} {
		return ProgressMessage{Envelope: env, Progress: percent}
	})
}

func (h *Hub) Ended() {
	h.sendJSON(TypeEnded, func(env Envelope) interface{} { return env })
}

// client owns one websocket connection. Frames wait in a bounded queue
// drained by the write loop; a full queue means the viewer fell behind.
type client struct {
	hub  *Hub
	conn *websocket.Conn

	mu    sync.Mutex
	queue *containers.RingQueue[frame]

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// push enqueues f and reports false when the queue is full.
func (c *client) push(f frame) bool {
	c.mu.Lock()
	err := c.queue.Enqueue(f)
	c.mu.Unlock()
	if err != nil {
		return false
	}
	select {
	case c.wake <- struct{}{}:
	default:
	}
	return true
}

func (c *client) pop() (frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := c.queue.Dequeue()
	return f, err == nil
}

func (c *client) write(f frame) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(f.kind, f.data)
}

func (c *client) writeLoop(backlog []frame) {
	defer c.close()
	for _, f := range backlog {
		if err := c.write(f); err != nil {
			return
		}
	}
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}
		for {
			f, ok := c.pop()
			if !ok {
				break
			}
			if err := c.write(f); err != nil {
				core.LogDebug("write to viewer failed: %s", err.Error())
				return
			}
		}
	}
}

// readLoop discards incoming messages; it keeps control frames flowing and
// notices when the viewer goes away.
func (c *client) readLoop() {
	defer c.close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.hub.remove(c)
		c.conn.Close()
	})
}
