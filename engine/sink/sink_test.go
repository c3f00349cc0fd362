package sink

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/strata/engine/hierarchy"
	"github.com/spaghettifunk/strata/engine/layout"
	"github.com/spaghettifunk/strata/engine/mesh"
)

func testMesh() *mesh.Mesh {
	m := mesh.NewMesh(64)
	m.Positions.InsertMany(0, 0, 0, 2, 0, 1, 0, 3, -1)
	m.Indices.InsertMany(0, 1, 2)
	return m
}

func TestRecorderCopiesBuffers(t *testing.T) {
	rec := NewRecorder()
	m := testMesh()
	tag := layout.MakeTag(68, 20)

	rec.Mesh("top", "top_met1", tag, m)
	m.Reset()
	m.Positions.InsertMany(9, 9, 9)

	got, ok := rec.Find("top_met1")
	require.True(t, ok)
	assert.Equal(t, "top", got.Cell)
	assert.Equal(t, tag, got.Tag)
	assert.Equal(t, []float32{0, 0, 0, 2, 0, 1, 0, 3, -1}, got.Positions)
	assert.Equal(t, []uint32{0, 1, 2}, got.Indices)

	_, ok = rec.Find("missing")
	assert.False(t, ok)
}

func TestMultiFansOut(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	s := Multi{a, b, Discard{}}

	s.Log("hello", 1.5)
	s.Stats("top", layout.LibraryInfo{CellNames: []string{"top"}})
	s.CellBounds("top", layout.Point{X: -1, Y: -2}, layout.Point{X: 3, Y: 4}, true)
	s.Mesh("top", "top_met1", layout.MakeTag(68, 20), testMesh())
	s.Lines("top", "top_met2", layout.MakeTag(69, 20), testMesh())
	s.Label("top", layout.MakeTag(68, 5), "VDD", 1, 2, 3)
	s.ReferencePlacement(hierarchy.Placement{Parent: "top", Child: "leaf"})
	s.ReferencesComplete()
	s.Progress(50)
	s.Ended()

	for _, rec := range []*Recorder{a, b} {
		assert.Equal(t, []LogRecord{{Text: "hello", Elapsed: 1.5}}, rec.Logs)
		require.Len(t, rec.Summaries, 1)
		assert.Equal(t, "top", rec.Summaries[0].Top)
		assert.Equal(t, []CellRecord{{Cell: "top", Min: layout.Point{X: -1, Y: -2}, Max: layout.Point{X: 3, Y: 4}, Top: true}}, rec.Cells)
		assert.Len(t, rec.Meshes, 1)
		assert.Len(t, rec.Wireframes, 1)
		assert.Equal(t, []LabelRecord{{Cell: "top", Tag: layout.MakeTag(68, 5), Text: "VDD", X: 1, Y: 2, Z: 3}}, rec.Labels)
		assert.Len(t, rec.Placements, 1)
		assert.Equal(t, 1, rec.Completed)
		assert.Equal(t, []float64{50}, rec.Progresses)
		assert.Equal(t, 1, rec.EndedCount)
	}
}

func TestSynchronizedSerializesCalls(t *testing.T) {
	rec := NewRecorder()
	s := Synchronize(rec)
	assert.Same(t, s, Synchronize(s))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Progress(float64(j))
				s.ReferencePlacement(hierarchy.Placement{})
			}
		}()
	}
	wg.Wait()
	assert.Len(t, rec.Progresses, 800)
	assert.Len(t, rec.Placements, 800)
}

func TestMeshFrameRoundTrip(t *testing.T) {
	m := testMesh()
	data, err := EncodeMeshFrame(MeshHeader{
		Envelope: Envelope{Type: TypeAddMesh, Session: "s1"},
		Cell:     "top",
		Name:     "top_met1",
		Layer:    68,
		Datatype: 20,
	}, m)
	require.NoError(t, err)

	header, positions, indices, err := DecodeMeshFrame(data)
	require.NoError(t, err)
	assert.Equal(t, TypeAddMesh, header.Type)
	assert.Equal(t, "top_met1", header.Name)
	assert.Equal(t, uint32(68), header.Layer)
	assert.Equal(t, 9, header.Positions)
	assert.Equal(t, 3, header.Indices)
	assert.Equal(t, [3]float32{0, 0, -1}, header.Min)
	assert.Equal(t, [3]float32{2, 3, 1}, header.Max)
	assert.Equal(t, m.Positions.Data(), positions)
	assert.Equal(t, m.Indices.Data(), indices)
}

func TestDecodeMeshFrameRejectsGarbage(t *testing.T) {
	_, _, _, err := DecodeMeshFrame([]byte{1, 2})
	assert.ErrorIs(t, err, ErrMalformedFrame)

	_, _, _, err = DecodeMeshFrame([]byte{200, 0, 0, 0, '{'})
	assert.ErrorIs(t, err, ErrMalformedFrame)

	data, err := EncodeMeshFrame(MeshHeader{Envelope: Envelope{Type: TypeAddMesh}}, testMesh())
	require.NoError(t, err)
	_, _, _, err = DecodeMeshFrame(data[:len(data)-4])
	assert.ErrorIs(t, err, ErrMalformedFrame)
}
