package systems

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/strata/engine/core"
	"github.com/spaghettifunk/strata/engine/sink"
)

func TestSystemManagerDefaults(t *testing.T) {
	sm, err := NewSystemManager(&SystemManagerConfig{Workers: 2}, sink.NewRecorder())
	require.NoError(t, err)
	assert.Equal(t, 21, sm.LayerStack.Len())
	require.NotNil(t, sm.jobSystem)
	assert.Equal(t, 2, sm.jobSystem.Workers())
	require.NoError(t, sm.Shutdown())
}

func TestSystemManagerLayerStackFile(t *testing.T) {
	dir := t.TempDir()
	stackPath := filepath.Join(dir, "stack.toml")
	require.NoError(t, os.WriteFile(stackPath, []byte(`
[[layers]]
layer = 1
datatype = 0
name = "m1"
zmin = 0.0
zmax = 1.0
`), 0o644))

	layoutPath := filepath.Join(dir, "chip.yaml")
	require.NoError(t, os.WriteFile(layoutPath, []byte(`
cells:
  - name: top
    polygons:
      - layer: 1
        datatype: 0
        points: [[0, 0], [1, 0], [1, 1], [0, 1]]
`), 0o644))

	rec := sink.NewRecorder()
	sm, err := NewSystemManager(&SystemManagerConfig{LayerStackPath: stackPath}, rec)
	require.NoError(t, err)
	defer sm.Shutdown()
	assert.Nil(t, sm.jobSystem)
	assert.Equal(t, 1, sm.LayerStack.Len())

	require.NoError(t, sm.Processor.Process(context.Background(), layoutPath))
	assert.Equal(t, []string{"top_m1"}, meshNames(rec.Meshes))
}

func TestSystemManagerBadStack(t *testing.T) {
	_, err := NewSystemManager(&SystemManagerConfig{LayerStackPath: "stack.ini"}, nil)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}
