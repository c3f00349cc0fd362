package systems

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spaghettifunk/strata/engine/core"
	"github.com/spaghettifunk/strata/engine/hierarchy"
	"github.com/spaghettifunk/strata/engine/layers"
	"github.com/spaghettifunk/strata/engine/layout"
	"github.com/spaghettifunk/strata/engine/math"
	"github.com/spaghettifunk/strata/engine/mesh"
	"github.com/spaghettifunk/strata/engine/sink"
)

// ProcessorConfig tunes a Processor.
type ProcessorConfig struct {
	// Lines emits wireframes instead of extruded solids.
	Lines bool
	// Depth is the number of reference levels flattened into each cell's
	// geometry. 0 keeps only the cell's own shapes, negative is unlimited.
	Depth int
	// BufferBytes is the initial reservation and growth step of each mesh
	// buffer.
	BufferBytes int
	Namer       hierarchy.Namer
	Triangulate mesh.TriangulateFunc
}

/**
 * @brief Processor turns a layout library into sink events. A run is
 * ProcessFile (or ProcessLibrary) followed by ProcessCells. Cells are
 * processed on the JobSystem when one is given, sequentially otherwise.
 */
type Processor struct {
	config    ProcessorConfig
	stack     *layers.Stack
	extruder  *mesh.Extruder
	flattener *hierarchy.Flattener
	jobs      *JobSystem
	out       sink.Sink
	metrics   *core.Metrics

	logMu sync.Mutex
	clock *core.Clock

	meshes  sync.Pool
	library *layout.Library
}

func NewProcessor(config ProcessorConfig, stack *layers.Stack, out sink.Sink, jobs *JobSystem) (*Processor, error) {
	if stack == nil || stack.Len() == 0 {
		return nil, core.ErrEmptyLayerStack
	}
	if out == nil {
		out = sink.Discard{}
	}
	if jobs != nil {
		out = sink.Synchronize(out)
	}

	extruder := mesh.NewExtruder()
	if config.Triangulate != nil {
		extruder.Triangulate = config.Triangulate
	}

	p := &Processor{
		config:    config,
		stack:     stack,
		extruder:  extruder,
		flattener: hierarchy.NewFlattener(config.Namer),
		jobs:      jobs,
		out:       out,
		metrics:   core.NewMetrics(),
		clock:     core.NewClock(),
	}
	p.meshes.New = func() interface{} {
		return mesh.NewMesh(config.BufferBytes)
	}
	return p, nil
}

// MeshName is the name a cell's mesh for one layer is published under.
func MeshName(cell, layer string) string {
	return cell + "_" + layer
}

func (p *Processor) Metrics() core.MetricsSnapshot {
	return p.metrics.Snapshot()
}

// Library returns the library of the current run, nil before one is loaded.
func (p *Processor) Library() *layout.Library {
	return p.library
}

// Process runs a complete pass over the layout file at path.
func (p *Processor) Process(ctx context.Context, path string) error {
	if err := p.ProcessFile(ctx, path); err != nil {
		return err
	}
	return p.ProcessCells(ctx)
}

// ProcessFile reads the layout at path and emits its statistics, cell
// bounds and reference placements.
func (p *Processor) ProcessFile(ctx context.Context, path string) error {
	p.begin(path)
	lib, err := layout.Open(path)
	if err != nil {
		p.log("Failed to read %s: %s", path, err.Error())
		return err
	}
	return p.load(ctx, lib)
}

// ProcessLibrary is ProcessFile for a library that is already in memory.
func (p *Processor) ProcessLibrary(ctx context.Context, lib *layout.Library) error {
	p.begin(lib.Name)
	return p.load(ctx, lib)
}

func (p *Processor) begin(source string) {
	p.library = nil
	p.metrics.Reset()
	p.logMu.Lock()
	p.clock.Start()
	p.logMu.Unlock()

	p.log("Starting process: %s", source)
	p.log("\topt_just_lines: %t", p.config.Lines)
	p.out.Progress(0)
}

func (p *Processor) load(ctx context.Context, lib *layout.Library) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info := lib.Info()
	p.logInfo(info)
	p.out.Progress(1)

	if err := hierarchy.CheckCycles(lib); err != nil {
		p.log("Invalid hierarchy: %s", err.Error())
		return err
	}
	top := lib.TopLevel()
	if len(top) == 0 {
		return fmt.Errorf("%w: %s", core.ErrNoTopCell, lib.Name)
	}
	p.out.Progress(5)

	topCell := top[0]
	p.out.Stats(topCell.Name, info)
	p.log("TOP_CELL: %s", topCell.Name)
	p.log("references: %d", len(topCell.References))

	p.log("Start boundingbox calculation")
	boxes, err := lib.BoundingBoxes()
	if err != nil {
		return err
	}
	isTop := make(map[*layout.Cell]bool, len(top))
	for _, c := range top {
		isTop[c] = true
	}
	for _, c := range lib.Cells {
		box := boxes[c]
		if box.Empty {
			box = layout.Box{}
		}
		p.out.CellBounds(c.Name, box.Min, box.Max, isTop[c])
	}
	p.log("Finished boundingbox calculation")

	if err := ctx.Err(); err != nil {
		return err
	}

	p.log("Start processing references")
	n, err := p.flattener.Flatten(lib, p.out)
	if err != nil {
		return err
	}
	p.metrics.PlacementsEmitted(uint64(n))
	p.log("Finished processing references")

	p.library = lib
	return nil
}

func (p *Processor) logInfo(info layout.LibraryInfo) {
	p.log("Info:")
	p.log("\tdesigns: %d", len(info.CellNames))
	p.log("\tshape_tags #: %d", len(info.ShapeTags))
	p.log("\tlabel_tags #: %d", len(info.LabelTags))
	p.log("\tnum_polygons: %d", info.NumPolygons)
	p.log("\tnum_references: %d", info.NumReferences)
	p.log("\tnum_labels: %d", info.NumLabels)
	p.log("\tunit: %.10e", info.Unit)
	p.log("\tprecision: %e", info.Precision)
}

// ProcessCells emits the meshes and labels of every cell of the loaded
// library, then progress 100 and Ended. Cancelling ctx stops before the
// next cell.
func (p *Processor) ProcessCells(ctx context.Context) error {
	lib := p.library
	if lib == nil {
		return core.ErrNotLoaded
	}

	p.log("Start processing cell")
	var err error
	if p.jobs != nil {
		err = p.processParallel(ctx, lib.Cells)
	} else {
		err = p.processSequential(ctx, lib.Cells)
	}
	if err != nil {
		return err
	}
	p.log("Finished processing cell")

	stats := p.metrics.Snapshot()
	p.log("Triangulation stats: total_vertices: %d total_triangles: %d", stats.Vertices, stats.Triangles)
	if stats.Skipped > 0 {
		p.log("Skipped polygons: %d", stats.Skipped)
	}

	p.out.Progress(100)
	p.out.Ended()
	return nil
}

func cellProgress(done, total int) float64 {
	return math.Lerp(5.0, 100.0, float64(done)/float64(total))
}

func (p *Processor) processSequential(ctx context.Context, cells []*layout.Cell) error {
	m := p.meshes.Get().(*mesh.Mesh)
	defer p.meshes.Put(m)

	for i, cell := range cells {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.processCell(cell, m); err != nil {
			return err
		}
		p.out.Progress(cellProgress(i+1, len(cells)))
	}
	return nil
}

func (p *Processor) processParallel(ctx context.Context, cells []*layout.Cell) error {
	var (
		mu       sync.Mutex
		done     int
		firstErr error
		wg       sync.WaitGroup
	)

	for _, cell := range cells {
		cell := cell
		wg.Add(1)
		p.jobs.Submit(JobTask{
			Name: "cell " + cell.Name,
			OnStart: func() error {
				if ctx.Err() != nil {
					return nil
				}
				m := p.meshes.Get().(*mesh.Mesh)
				defer p.meshes.Put(m)
				return p.processCell(cell, m)
			},
			OnFailure: func(err error) {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			},
			OnCompletionCallback: func() {
				defer wg.Done()
				// the counter and the event share the lock so progress never
				// goes backwards
				mu.Lock()
				defer mu.Unlock()
				done++
				p.out.Progress(cellProgress(done, len(cells)))
			},
		})
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// processCell emits one mesh (or wireframe) per stack layer the cell has
// shapes on, followed by the cell's labels. m is reset before every layer.
func (p *Processor) processCell(cell *layout.Cell, m *mesh.Mesh) error {
	p.log("Cell: %s", cell.Name)
	p.log("\trefs: %d", len(cell.References))

	for _, spec := range p.stack.Specs() {
		polys, err := cell.GetPolygons(spec.Tag, p.config.Depth)
		if err != nil {
			return fmt.Errorf("cell %s layer %s: %w", cell.Name, spec.Name, err)
		}
		if len(polys) == 0 {
			continue
		}
		p.log("\t\tLayer: %s", spec.Tag)
		p.log("\t\t\tpolygons: %d", len(polys))

		m.Reset()
		name := MeshName(cell.Name, spec.Name)
		var stats mesh.BatchStats
		if p.config.Lines {
			stats = mesh.BuildLines(polys, spec.ZMin, spec.ZMax, m)
		} else {
			stats = p.extruder.Extrude(polys, spec.ZMin, spec.ZMax, m)
			p.log("\t\t\tvertices: %d triangles: %d", stats.Vertices, stats.Triangles)
		}
		p.metrics.Triangulation(stats.Polygons, stats.Skipped, stats.Vertices, stats.Triangles)

		if m.Empty() {
			core.LogDebug("nothing to emit for %s", name)
			continue
		}
		if p.config.Lines {
			p.out.Lines(cell.Name, name, spec.Tag, m)
			p.metrics.LinesEmitted()
		} else {
			p.out.Mesh(cell.Name, name, spec.Tag, m)
			p.metrics.MeshEmitted()
		}
	}

	for _, ll := range p.stack.LabelLayers() {
		labels, err := cell.GetLabels(ll.Tag, p.config.Depth)
		if err != nil {
			return fmt.Errorf("cell %s labels %s: %w", cell.Name, ll.Tag, err)
		}
		for _, l := range labels {
			p.out.Label(cell.Name, l.Tag, l.Text, l.Origin.X, l.Origin.Y, ll.Z)
			p.metrics.LabelEmitted()
		}
	}

	p.metrics.CellProcessed()
	return nil
}

// log writes to the process logger and forwards the line, stamped with the
// run's elapsed time, to the sink.
func (p *Processor) log(format string, args ...interface{}) {
	text := fmt.Sprintf(format, args...)
	core.LogDebug("%s", strings.TrimSpace(text))

	p.logMu.Lock()
	p.clock.Update()
	elapsed := p.clock.Elapsed()
	p.logMu.Unlock()

	p.out.Log(text, elapsed)
}
