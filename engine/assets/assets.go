package assets

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/strata/engine/core"
)

type AssetType int

const (
	AssetTypeNone AssetType = iota
	AssetTypeLayout
	AssetTypeLayerStack
)

func (t AssetType) String() string {
	switch t {
	case AssetTypeLayout:
		return "layout"
	case AssetTypeLayerStack:
		return "layer stack"
	default:
		return "none"
	}
}

type AssetInfo struct {
	Path        string
	Type        AssetType
	LastChanged time.Time
}

// Change reports that a watched file was written, created or replaced.
type Change struct {
	Path string
	Type AssetType
}

// DefaultDebounce groups the burst of events a single save produces.
const DefaultDebounce = 200 * time.Millisecond

var ErrClosed = errors.New("asset manager already closed")

/**
 * @brief AssetManager watches the input files of a processing run and
 * reports changes on a channel. Directories are watched rather than the
 * files themselves so that editors replacing a file on save are noticed.
 */
type AssetManager struct {
	assets map[string]AssetInfo
	dirs   map[string]bool
	mutex  sync.RWMutex

	debounce time.Duration
	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	changes  chan Change
}

func NewAssetManager(debounce time.Duration) (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	am := &AssetManager{
		assets:   make(map[string]AssetInfo),
		dirs:     make(map[string]bool),
		debounce: debounce,
		fsnotify: fsWatch,
		changes:  make(chan Change, 16),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go am.start()
	return am, nil
}

// Watch starts tracking the file at path as an asset of type t.
func (am *AssetManager) Watch(path string, t AssetType) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	if am.isClosed {
		return ErrClosed
	}

	dir := filepath.Dir(abs)
	if !am.dirs[dir] {
		if err := am.fsnotify.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		am.dirs[dir] = true
	}
	am.assets[abs] = AssetInfo{Path: abs, Type: t}
	core.LogDebug("watching %s %s", t, abs)
	return nil
}

// Assets returns the tracked files.
func (am *AssetManager) Assets() []AssetInfo {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	out := make([]AssetInfo, 0, len(am.assets))
	for _, a := range am.assets {
		out = append(out, a)
	}
	return out
}

// Changes delivers one Change per tracked file per burst of events. It is
// closed by Close.
func (am *AssetManager) Changes() <-chan Change {
	return am.changes
}

func (am *AssetManager) Close() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	<-am.stopped
	return nil
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	defer close(am.changes)
	defer am.fsnotify.Close()

	pending := make(map[string]AssetType)
	timer := time.NewTimer(am.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			path, t, tracked := am.handleFileEvent(e.Name)
			if !tracked {
				continue
			}
			pending[path] = t
			timer.Reset(am.debounce)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("file watcher: %s", err.Error())

		case <-timer.C:
			for path, t := range pending {
				select {
				case am.changes <- Change{Path: path, Type: t}:
				case <-am.done:
					return
				}
			}
			pending = make(map[string]AssetType)

		case <-am.done:
			return
		}
	}
}

// handleFileEvent stamps a tracked asset and returns its path and type.
func (am *AssetManager) handleFileEvent(name string) (string, AssetType, bool) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", AssetTypeNone, false
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()

	asset, ok := am.assets[abs]
	if !ok {
		return "", AssetTypeNone, false
	}
	asset.LastChanged = time.Now()
	am.assets[abs] = asset
	return abs, asset.Type, true
}
