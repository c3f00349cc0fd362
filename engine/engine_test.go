package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/strata/engine/hierarchy"
	"github.com/spaghettifunk/strata/engine/layout"
	"github.com/spaghettifunk/strata/engine/sink"
)

const chipJSON = `{"cells": [
	{"name": "top", "polygons": [{"layer": 68, "datatype": 20, "points": [[0,0],[2,0],[2,2],[0,2]]}]}
]}`

func writeLayout(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chip.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// endedSink signals every finished run.
type endedSink struct {
	sink.Discard
	ended chan struct{}
}

func (s *endedSink) Ended() { s.ended <- struct{}{} }

func TestLoadApplicationConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strata.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
layout = "chip.json"
lines = true
depth = -1
workers = 4
log_level = "debug"
listen = "127.0.0.1:0"
instance_attribute = 61
history_bytes = 1048576
`), 0o644))

	config, err := LoadApplicationConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "strata", config.Name)
	assert.Equal(t, "chip.json", config.LayoutPath)
	assert.True(t, config.Lines)
	assert.Equal(t, -1, config.Depth)
	assert.Equal(t, 4, config.Workers)
	assert.Equal(t, "127.0.0.1:0", config.ListenAddr)
	assert.Equal(t, uint64(61), config.InstanceAttribute)
	assert.Equal(t, 1<<20, config.HistoryBytes)
	require.NoError(t, config.Validate())

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte(`colour = "red"`), 0o644))
	_, err = LoadApplicationConfig(bad)
	assert.Error(t, err)
}

func TestApplicationConfigValidate(t *testing.T) {
	config := DefaultApplicationConfig()
	assert.ErrorIs(t, config.Validate(), ErrInvalidConfig)

	config.LayoutPath = "chip.json"
	config.Workers = -1
	assert.ErrorIs(t, config.Validate(), ErrInvalidConfig)

	config.Workers = 0
	config.HistoryBytes = -1
	assert.ErrorIs(t, config.Validate(), ErrInvalidConfig)

	config.HistoryBytes = 0
	config.LogLevel = "loud"
	assert.ErrorIs(t, config.Validate(), ErrInvalidConfig)
}

func TestApplicationConfigNamer(t *testing.T) {
	props := []layout.Property{
		{Name: hierarchy.GDSPropertyName, Values: []layout.PropertyValue{
			{Type: layout.PropertyUnsignedInteger, Unsigned: 1},
			{Type: layout.PropertyString, String: "first"},
		}},
		{Name: hierarchy.GDSPropertyName, Values: []layout.PropertyValue{
			{Type: layout.PropertyUnsignedInteger, Unsigned: 61},
			{Type: layout.PropertyString, String: "x61"},
		}},
	}

	config := DefaultApplicationConfig()
	name, _ := config.Namer().InstanceName(props)
	assert.Equal(t, "first", name)

	config.InstanceAttribute = 61
	name, _ = config.Namer().InstanceName(props)
	assert.Equal(t, "x61", name)

	config.InstanceAttribute = 99
	name, _ = config.Namer().InstanceName(props)
	assert.Equal(t, "first", name)
}

func TestEngineRunOnce(t *testing.T) {
	config := DefaultApplicationConfig()
	config.LayoutPath = writeLayout(t, chipJSON)

	rec := sink.NewRecorder()
	e, err := New(config, rec)
	require.NoError(t, err)
	assert.Equal(t, EngineStageUninitialized, e.Stage())

	require.NoError(t, e.Initialize())
	assert.ErrorIs(t, e.Initialize(), ErrWrongStage)
	assert.Nil(t, e.Addr())

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, EngineStageRunning, e.Stage())
	require.NoError(t, e.Shutdown())
	assert.Equal(t, EngineStageShutdown, e.Stage())

	_, ok := rec.Find("top_met1")
	assert.True(t, ok)
	assert.Equal(t, 1, rec.EndedCount)
}

func TestEngineRunReportsProcessingErrors(t *testing.T) {
	config := DefaultApplicationConfig()
	config.LayoutPath = writeLayout(t, `{"cells": [{"name": "a", "references": [{"cell": "missing", "origin": [0, 0]}]}]}`)

	e, err := New(config)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()
	assert.ErrorIs(t, e.Run(context.Background()), layout.ErrUnknownCell)
}

func TestEngineServesViewer(t *testing.T) {
	config := DefaultApplicationConfig()
	config.LayoutPath = writeLayout(t, chipJSON)
	config.ListenAddr = "127.0.0.1:0"

	done := &endedSink{ended: make(chan struct{}, 1)}
	e, err := New(config, done)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	require.NotNil(t, e.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- e.Run(ctx) }()

	select {
	case <-done.ended:
	case <-time.After(5 * time.Second):
		t.Fatal("processing did not finish")
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+e.Addr().String()+ViewerPath, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, kind)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, sink.TypeLog, msg["type"])

	cancel()
	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
	require.NoError(t, e.Shutdown())
}

func TestEngineWatchReprocesses(t *testing.T) {
	config := DefaultApplicationConfig()
	config.LayoutPath = writeLayout(t, chipJSON)
	config.Watch = true

	done := &endedSink{ended: make(chan struct{}, 4)}
	e, err := New(config, done)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.Run(ctx) }()

	waitEnded := func() {
		t.Helper()
		select {
		case <-done.ended:
		case <-time.After(10 * time.Second):
			t.Fatal("processing did not finish")
		}
	}
	waitEnded()

	require.NoError(t, os.WriteFile(config.LayoutPath, []byte(chipJSON), 0o644))
	waitEnded()
}
