package sink

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/spaghettifunk/strata/engine/core"
	"github.com/spaghettifunk/strata/engine/layout"
	"github.com/spaghettifunk/strata/engine/mesh"
)

// Message types understood by the viewer.
const (
	TypeLog                = "log"
	TypeStats              = "stats"
	TypeAddCell            = "add_cell"
	TypeAddMesh            = "add_mesh"
	TypeAddLines           = "add_lines"
	TypeAddLabel           = "add_label"
	TypeAddReference       = "add_reference"
	TypeFinishedReferences = "finished_references"
	TypeProgress           = "process_progress"
	TypeEnded              = "process_ended"
)

var ErrMalformedFrame = errors.New("malformed mesh frame")

// Envelope is the part shared by every message.
type Envelope struct {
	Type    string         `json:"type"`
	Session core.SessionID `json:"session"`
}

type LogMessage struct {
	Envelope
	Text    string  `json:"text"`
	Elapsed float64 `json:"elapsed"`
}

type StatsMessage struct {
	Envelope
	TopCell       string       `json:"top_cell"`
	Cells         []string     `json:"cells"`
	ShapeTags     []layout.Tag `json:"shape_tags"`
	LabelTags     []layout.Tag `json:"label_tags"`
	NumPolygons   uint64       `json:"num_polygons"`
	NumReferences uint64       `json:"num_references"`
	NumLabels     uint64       `json:"num_labels"`
	Unit          float64      `json:"unit"`
	Precision     float64      `json:"precision"`
}

type CellMessage struct {
	Envelope
	Cell string     `json:"cell"`
	Min  [2]float64 `json:"min"`
	Max  [2]float64 `json:"max"`
	Top  bool       `json:"top"`
}

// MeshHeader describes the buffers that follow it in a binary frame.
type MeshHeader struct {
	Envelope
	Cell      string     `json:"cell"`
	Name      string     `json:"name"`
	Layer     uint32     `json:"layer"`
	Datatype  uint32     `json:"datatype"`
	Positions int        `json:"positions"`
	Indices   int        `json:"indices"`
	Min       [3]float32 `json:"min"`
	Max       [3]float32 `json:"max"`
}

type LabelMessage struct {
	Envelope
	Cell     string     `json:"cell"`
	Layer    uint32     `json:"layer"`
	Datatype uint32     `json:"datatype"`
	Text     string     `json:"text"`
	Position [3]float64 `json:"position"`
}

type ReferenceMessage struct {
	Envelope
	Parent      string      `json:"parent"`
	Child       string      `json:"child"`
	Instance    string      `json:"instance"`
	Origin      [2]float64  `json:"origin"`
	Rotation    float64     `json:"rotation"`
	XReflection bool        `json:"x_reflection"`
	Matrix      [16]float32 `json:"matrix"`
}

type ProgressMessage struct {
	Envelope
	Progress float64 `json:"progress"`
}

// EncodeMeshFrame lays out a binary mesh message: the uint32 little-endian
// length of the JSON header, the header, the float32 positions and the
// uint32 indices.
func EncodeMeshFrame(header MeshHeader, m *mesh.Mesh) ([]byte, error) {
	header.Positions = m.Positions.Size()
	header.Indices = m.Indices.Size()
	ext := m.Extents()
	header.Min = [3]float32{ext.Min.X, ext.Min.Y, ext.Min.Z}
	header.Max = [3]float32{ext.Max.X, ext.Max.Y, ext.Max.Z}

	head, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 4+len(head)+m.Positions.ByteSize()+m.Indices.ByteSize())
	out = binary.LittleEndian.AppendUint32(out, uint32(len(head)))
	out = append(out, head...)
	out = m.Positions.AppendBytes(out)
	out = m.Indices.AppendBytes(out)
	return out, nil
}

// DecodeMeshFrame splits a frame produced by EncodeMeshFrame.
func DecodeMeshFrame(frame []byte) (MeshHeader, []float32, []uint32, error) {
	var header MeshHeader
	if len(frame) < 4 {
		return header, nil, nil, fmt.Errorf("%w: %d bytes", ErrMalformedFrame, len(frame))
	}
	n := int(binary.LittleEndian.Uint32(frame))
	frame = frame[4:]
	if n > len(frame) {
		return header, nil, nil, fmt.Errorf("%w: header length %d exceeds frame", ErrMalformedFrame, n)
	}
	if err := json.Unmarshal(frame[:n], &header); err != nil {
		return header, nil, nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	frame = frame[n:]
	if len(frame) != 4*(header.Positions+header.Indices) {
		return header, nil, nil, fmt.Errorf("%w: payload is %d bytes, header announces %d positions and %d indices",
			ErrMalformedFrame, len(frame), header.Positions, header.Indices)
	}

	positions := make([]float32, header.Positions)
	for i := range positions {
		positions[i] = math.Float32frombits(binary.LittleEndian.Uint32(frame[4*i:]))
	}
	frame = frame[4*header.Positions:]
	indices := make([]uint32, header.Indices)
	for i := range indices {
		indices[i] = binary.LittleEndian.Uint32(frame[4*i:])
	}
	return header, positions, indices, nil
}
