package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/spaghettifunk/strata/engine/core"
)

var (
	ErrUnknownCell   = errors.New("reference to unknown cell")
	ErrDuplicateCell = errors.New("duplicate cell name")
	ErrInvalidValue  = errors.New("invalid layout value")
)

// Reader decodes one layout file format into a Library.
type Reader interface {
	Read(r io.Reader) (*Library, error)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(r io.Reader) (*Library, error)

func (f ReaderFunc) Read(r io.Reader) (*Library, error) {
	return f(r)
}

var (
	readersMu sync.RWMutex
	readers   = map[string]Reader{
		"json": ReaderFunc(readJSON),
		"yaml": ReaderFunc(readYAML),
		"yml":  ReaderFunc(readYAML),
	}
)

// RegisterReader makes a reader available for files with the given
// extension (without the dot, case insensitive). Binary formats such as
// gds or oas are plugged in this way.
func RegisterReader(ext string, r Reader) {
	readersMu.Lock()
	defer readersMu.Unlock()
	readers[strings.ToLower(ext)] = r
}

// Extension returns the lower-cased extension of path without the dot. A
// name made only of an extension (".gds") has none.
func Extension(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if len(ext) < 2 || len(base) == len(ext) {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// ReaderFor returns the reader registered for path's extension or an error
// wrapping core.ErrUnsupportedFormat.
func ReaderFor(path string) (Reader, error) {
	ext := Extension(path)
	readersMu.RLock()
	r, ok := readers[ext]
	readersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (extension %q)", core.ErrUnsupportedFormat, path, ext)
	}
	return r, nil
}

// Open reads the layout at path with the reader registered for its
// extension. Unsupported extensions fail before the file is opened.
func Open(path string) (*Library, error) {
	r, err := ReaderFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lib, err := r.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if lib.Name == "" {
		lib.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return lib, nil
}

func readJSON(r io.Reader) (*Library, error) {
	var doc Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc.Build()
}

func readYAML(r io.Reader) (*Library, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc.Build()
}
