package layers

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/strata/engine/core"
	"github.com/spaghettifunk/strata/engine/layout"
)

func TestStackAppendOrder(t *testing.T) {
	s := NewStack()
	require.NoError(t, s.Add(layout.MakeTag(68, 20), "met1", 1.376, 1.736))
	require.NoError(t, s.Add(layout.MakeTag(66, 20), "poly", 0, 0.18))

	specs := s.Specs()
	require.Len(t, specs, 2)
	assert.Equal(t, "met1", specs[0].Name)
	assert.Equal(t, "poly", specs[1].Name)

	// the returned slice is a copy
	specs[0].Name = "changed"
	assert.Equal(t, "met1", s.Specs()[0].Name)

	sp, ok := s.Lookup(layout.MakeTag(66, 20))
	require.True(t, ok)
	assert.Equal(t, 0.18, sp.ZMax)
	_, ok = s.Lookup(layout.MakeTag(1, 1))
	assert.False(t, ok)
}

func TestStackRejectsInvertedSlab(t *testing.T) {
	s := NewStack()
	assert.Error(t, s.Add(layout.MakeTag(1, 0), "bad", 2, 1))
	assert.Equal(t, 0, s.Len())
	assert.NoError(t, s.Add(layout.MakeTag(1, 0), "flat", 1, 1))
}

func TestDefaultStack(t *testing.T) {
	s := Default()
	assert.Equal(t, 21, s.Len())
	met5, ok := s.Lookup(layout.MakeTag(72, 20))
	require.True(t, ok)
	assert.Equal(t, "met5", met5.Name)
	assert.InDelta(t, 6.6311, met5.ZMax, 1e-9)

	labels := s.LabelLayers()
	require.Len(t, labels, 6)
	assert.Equal(t, layout.MakeTag(67, 5), labels[0].Tag)
	assert.InDelta(t, 1.166, labels[0].Z, 1e-9)
	assert.InDelta(t, 6.6611, labels[5].Z, 1e-9)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	tomlPath := filepath.Join(dir, "stack.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`
[[layers]]
name = "met1"
layer = 68
datatype = 20
zmin = 1.376
zmax = 1.736

[[labels]]
layer = 68
datatype = 5
z = 1.766
`), 0o644))

	yamlPath := filepath.Join(dir, "stack.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
layers:
  - name: met1
    layer: 68
    datatype: 20
    zmin: 1.376
    zmax: 1.736
labels:
  - layer: 68
    datatype: 5
    z: 1.766
`), 0o644))

	for _, path := range []string{tomlPath, yamlPath} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			s, err := Load(path)
			require.NoError(t, err)
			specs := s.Specs()
			require.Len(t, specs, 1)
			assert.Equal(t, Spec{Tag: layout.MakeTag(68, 20), Name: "met1", ZMin: 1.376, ZMax: 1.736}, specs[0])
			assert.Equal(t, []LabelLayer{{Tag: layout.MakeTag(68, 5), Z: 1.766}}, s.LabelLayers())
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.toml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	jsonPath := filepath.Join(dir, "stack.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{}`), 0o644))
	_, err = Load(jsonPath)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)

	emptyPath := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(emptyPath, nil, 0o644))
	_, err = Load(emptyPath)
	assert.ErrorIs(t, err, core.ErrEmptyLayerStack)

	unknownPath := filepath.Join(dir, "unknown.toml")
	require.NoError(t, os.WriteFile(unknownPath, []byte("colour = \"red\"\n"), 0o644))
	_, err = Load(unknownPath)
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Default().Encode(&buf))

	var file File
	require.NoError(t, DecodeTOML(&buf, &file))
	s, err := file.Stack()
	require.NoError(t, err)
	assert.Equal(t, Default().Specs(), s.Specs())
	assert.Equal(t, Default().LabelLayers(), s.LabelLayers())
}
