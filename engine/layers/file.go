package layers

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/spaghettifunk/strata/engine/core"
	"github.com/spaghettifunk/strata/engine/layout"
)

// File is the on-disk layer stack description:
//
//	[[layers]]
//	name = "met1"
//	layer = 68
//	datatype = 20
//	zmin = 1.376
//	zmax = 1.736
//
//	[[labels]]
//	layer = 68
//	datatype = 5
//	z = 1.766
type File struct {
	Layers []LayerEntry `toml:"layers" yaml:"layers"`
	Labels []LabelEntry `toml:"labels" yaml:"labels"`
}

type LayerEntry struct {
	Name     string  `toml:"name" yaml:"name"`
	Layer    uint32  `toml:"layer" yaml:"layer"`
	Datatype uint32  `toml:"datatype" yaml:"datatype"`
	ZMin     float64 `toml:"zmin" yaml:"zmin"`
	ZMax     float64 `toml:"zmax" yaml:"zmax"`
}

type LabelEntry struct {
	Layer    uint32  `toml:"layer" yaml:"layer"`
	Datatype uint32  `toml:"datatype" yaml:"datatype"`
	Z        float64 `toml:"z" yaml:"z"`
}

// Load reads a layer stack from a .toml, .yaml or .yml file. Other
// extensions fail before the file is opened.
func Load(path string) (*Stack, error) {
	var decode func(io.Reader, *File) error
	switch ext := layout.Extension(path); ext {
	case "toml":
		decode = DecodeTOML
	case "yaml", "yml":
		decode = DecodeYAML
	default:
		return nil, fmt.Errorf("%w: layer stack %q (extension %q)", core.ErrUnsupportedFormat, path, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var file File
	if err := decode(f, &file); err != nil {
		return nil, fmt.Errorf("reading layer stack %s: %w", path, err)
	}
	return file.Stack()
}

func DecodeTOML(r io.Reader, file *File) error {
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(file)
}

func DecodeYAML(r io.Reader, file *File) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(file); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Stack builds the registry described by the file. A file without layers
// is rejected with core.ErrEmptyLayerStack.
func (file *File) Stack() (*Stack, error) {
	if len(file.Layers) == 0 {
		return nil, core.ErrEmptyLayerStack
	}
	s := NewStack()
	for _, l := range file.Layers {
		if err := s.Add(layout.MakeTag(l.Layer, l.Datatype), l.Name, l.ZMin, l.ZMax); err != nil {
			return nil, err
		}
	}
	for _, l := range file.Labels {
		s.AddLabelLayer(layout.MakeTag(l.Layer, l.Datatype), l.Z)
	}
	return s, nil
}

// Encode writes the stack back as TOML.
func (s *Stack) Encode(w io.Writer) error {
	var file File
	for _, sp := range s.Specs() {
		file.Layers = append(file.Layers, LayerEntry{
			Name:     sp.Name,
			Layer:    sp.Tag.Layer,
			Datatype: sp.Tag.Datatype,
			ZMin:     sp.ZMin,
			ZMax:     sp.ZMax,
		})
	}
	for _, l := range s.LabelLayers() {
		file.Labels = append(file.Labels, LabelEntry{Layer: l.Tag.Layer, Datatype: l.Tag.Datatype, Z: l.Z})
	}
	return toml.NewEncoder(w).Encode(file)
}
