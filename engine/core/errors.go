package core

import (
	"errors"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported layout file format")
	ErrReferenceCycle    = errors.New("reference cycle in cell hierarchy")
	ErrNoTopCell         = errors.New("layout has no top-level cell")
	ErrEmptyLayerStack   = errors.New("layer stack is empty")
	ErrNotLoaded         = errors.New("no layout loaded, process a library first")
)
