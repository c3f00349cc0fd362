package layers

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/strata/engine/core"
	"github.com/spaghettifunk/strata/engine/layout"
)

/**
 * @brief Describes which layer gets rendered and the vertical slab
 * its polygons are extruded into.
 */
type Spec struct {
	Tag  layout.Tag
	Name string
	ZMin float64
	ZMax float64
}

/** @brief Height at which the labels of a tag are placed. */
type LabelLayer struct {
	Tag layout.Tag
	Z   float64
}

// Stack is the ordered, append-only list of layers to process. It is
// filled at configuration time and read by the processor afterwards.
type Stack struct {
	mu     sync.RWMutex
	specs  []Spec
	labels []LabelLayer
}

func NewStack() *Stack {
	return &Stack{}
}

// Add appends a layer. zmax must not be below zmin.
func (s *Stack) Add(tag layout.Tag, name string, zmin, zmax float64) error {
	if zmax < zmin {
		return fmt.Errorf("layer %s (%s): zmax %f below zmin %f", name, tag, zmax, zmin)
	}
	s.mu.Lock()
	s.specs = append(s.specs, Spec{Tag: tag, Name: name, ZMin: zmin, ZMax: zmax})
	s.mu.Unlock()
	core.LogDebug("Add process layer %s - %s (zmin:%f zmax:%f)", tag, name, zmin, zmax)
	return nil
}

// AddLabelLayer registers a label tag and the height of its labels.
func (s *Stack) AddLabelLayer(tag layout.Tag, z float64) {
	s.mu.Lock()
	s.labels = append(s.labels, LabelLayer{Tag: tag, Z: z})
	s.mu.Unlock()
}

// Specs returns a copy of the layers in registration order.
func (s *Stack) Specs() []Spec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Spec, len(s.specs))
	copy(out, s.specs)
	return out
}

// LabelLayers returns a copy of the label layers in registration order.
func (s *Stack) LabelLayers() []LabelLayer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]LabelLayer, len(s.labels))
	copy(out, s.labels)
	return out
}

func (s *Stack) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.specs)
}

// Lookup returns the first layer registered for tag.
func (s *Stack) Lookup(tag layout.Tag) (Spec, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sp := range s.specs {
		if sp.Tag == tag {
			return sp, true
		}
	}
	return Spec{}, false
}
