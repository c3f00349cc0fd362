package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/spaghettifunk/strata/engine/assets"
	"github.com/spaghettifunk/strata/engine/core"
	"github.com/spaghettifunk/strata/engine/sink"
	"github.com/spaghettifunk/strata/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released every resource
	EngineStageShutdown
)

var ErrWrongStage = errors.New("engine is not in the expected stage")

// ViewerPath is where the websocket hub is mounted.
const ViewerPath = "/ws"

type Engine struct {
	mu           sync.Mutex
	currentStage Stage

	config        *ApplicationConfig
	extraSinks    []sink.Sink
	out           sink.Sink
	hub           *sink.Hub
	systemManager *systems.SystemManager
	assetManager  *assets.AssetManager
	listener      net.Listener
	server        *http.Server
}

// New prepares an engine for config. Events go to the viewer hub when a
// listen address is configured and to every extra sink.
func New(config *ApplicationConfig, extra ...sink.Sink) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       config,
		extraSinks:   extra,
	}, nil
}

func (e *Engine) Stage() Stage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentStage
}

func (e *Engine) setStage(s Stage) {
	e.mu.Lock()
	e.currentStage = s
	e.mu.Unlock()
}

// Addr returns the address the viewer hub listens on, nil without one.
func (e *Engine) Addr() net.Addr {
	if e.listener == nil {
		return nil
	}
	return e.listener.Addr()
}

func (e *Engine) Initialize() error {
	if e.Stage() != EngineStageUninitialized {
		return ErrWrongStage
	}
	e.setStage(EngineStageInitializing)

	level, err := core.ParseLogLevel(e.config.LogLevel)
	if err != nil {
		return err
	}
	core.SetLogLevel(level)

	sinks := append([]sink.Sink{}, e.extraSinks...)
	if e.config.ListenAddr != "" {
		e.hub = sink.NewHub(e.config.QueueSize, e.config.HistoryBytes)
		sinks = append(sinks, e.hub)
	}
	switch len(sinks) {
	case 0:
		e.out = sink.Discard{}
	case 1:
		e.out = sinks[0]
	default:
		e.out = sink.Multi(sinks)
	}

	sm, err := systems.NewSystemManager(e.config.systemManagerConfig(), e.out)
	if err != nil {
		return err
	}
	e.systemManager = sm

	if e.config.Watch {
		am, err := assets.NewAssetManager(assets.DefaultDebounce)
		if err != nil {
			return err
		}
		e.assetManager = am
		if err := am.Watch(e.config.LayoutPath, assets.AssetTypeLayout); err != nil {
			return err
		}
		if e.config.LayerStackPath != "" {
			if err := am.Watch(e.config.LayerStackPath, assets.AssetTypeLayerStack); err != nil {
				return err
			}
		}
	}

	if e.hub != nil {
		if err := e.listen(); err != nil {
			return err
		}
	}

	e.setStage(EngineStageInitialized)
	core.LogInfo("%s initialized (layers: %d, workers: %d, lines: %t)",
		e.config.Name, sm.LayerStack.Len(), e.config.Workers, e.config.Lines)
	return nil
}

func (e *Engine) listen() error {
	l, err := net.Listen("tcp", e.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", e.config.ListenAddr, err)
	}
	mux := http.NewServeMux()
	mux.Handle(ViewerPath, e.hub)
	e.listener = l
	e.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := e.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			core.LogError("viewer server stopped: %s", err.Error())
		}
	}()
	core.LogInfo("viewer websocket on ws://%s%s", l.Addr(), ViewerPath)
	return nil
}

// Run processes the layout once. With watching enabled it processes again
// on every change; with a viewer hub it keeps serving until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	if e.Stage() != EngineStageInitialized {
		return ErrWrongStage
	}
	e.setStage(EngineStageRunning)

	err := e.process(ctx)
	if e.assetManager == nil && e.hub == nil {
		return err
	}
	if err != nil {
		if e.assetManager == nil {
			return err
		}
		core.LogError("processing %s failed: %s", e.config.LayoutPath, err.Error())
	}

	var changes <-chan assets.Change
	if e.assetManager != nil {
		changes = e.assetManager.Changes()
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			core.LogInfo("%s changed: %s", c.Type, c.Path)
			if c.Type == assets.AssetTypeLayerStack {
				if err := e.reloadSystems(); err != nil {
					core.LogError("reloading layer stack failed: %s", err.Error())
					continue
				}
			}
			if err := e.process(ctx); err != nil {
				core.LogError("processing %s failed: %s", e.config.LayoutPath, err.Error())
			}
		}
	}
}

func (e *Engine) process(ctx context.Context) error {
	if e.hub != nil {
		e.hub.StartSession(core.NewSessionID())
	}
	start := time.Now()
	if err := e.systemManager.Processor.Process(ctx, e.config.LayoutPath); err != nil {
		return err
	}
	stats := e.systemManager.Processor.Metrics()
	core.LogInfo("processed %s in %s: %d cells, %d meshes, %d lines, %d labels, %d placements, %d skipped polygons",
		e.config.LayoutPath, time.Since(start).Round(time.Millisecond),
		stats.Cells, stats.Meshes, stats.Lines, stats.Labels, stats.Placements, stats.Skipped)
	return nil
}

func (e *Engine) reloadSystems() error {
	sm, err := systems.NewSystemManager(e.config.systemManagerConfig(), e.out)
	if err != nil {
		return err
	}
	old := e.systemManager
	e.systemManager = sm
	return old.Shutdown()
}

func (e *Engine) Shutdown() error {
	e.setStage(EngineStageShuttingDown)

	var errs []error
	if e.assetManager != nil {
		errs = append(errs, e.assetManager.Close())
	}
	if e.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, e.server.Shutdown(ctx))
		cancel()
	}
	if e.hub != nil {
		errs = append(errs, e.hub.Close())
	}
	if e.systemManager != nil {
		errs = append(errs, e.systemManager.Shutdown())
	}

	e.setStage(EngineStageShutdown)
	return errors.Join(errs...)
}
