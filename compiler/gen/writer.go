package gen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dave/jennifer/jen"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"
)

// Writer renders the files of a graph in parallel and writes them to the
// target directory.
type Writer struct {
	graph *Graph

	mu      sync.Mutex
	metrics WriterMetrics
}

// WriterMetrics tracks generation output.
type WriterMetrics struct {
	FilesGenerated int
	TotalBytes     int64
}

// NewWriter creates a writer for g.
func NewWriter(g *Graph) *Writer {
	return &Writer{graph: g}
}

// Metrics returns the generation metrics.
func (w *Writer) Metrics() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// fileTask is a single file of the output.
type fileTask struct {
	name   string
	render func() ([]byte, error)
	goFile bool
}

// Generate writes one Go file per type, the registration file, schema.cql
// and the Go file embedding it.
func (w *Writer) Generate(ctx context.Context) error {
	g := w.graph
	if g.Target == "" {
		return NewConfigError("Target", nil, "missing target directory in config")
	}
	if err := os.MkdirAll(g.Target, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	var files []fileTask
	for _, t := range g.Nodes {
		files = append(files, fileTask{
			name: fileName(t),
			render: func() ([]byte, error) {
				f, err := g.typeFile(t)
				if err != nil {
					return nil, err
				}
				return renderFile(f)
			},
			goFile: true,
		})
	}
	files = append(files,
		fileTask{name: "cassava.go", render: func() ([]byte, error) { return renderFile(g.registerFile()) }, goFile: true},
		fileTask{name: "schema.go", render: func() ([]byte, error) { return renderFile(g.schemaFile()) }, goFile: true},
		fileTask{name: schemaCQL, render: func() ([]byte, error) { return []byte(g.DDL()), nil }},
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(g.Workers, 1))
	for _, f := range files {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return w.generateFile(f)
			}
		})
	}
	return eg.Wait()
}

func renderFile(f *jen.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// generateFile renders, formats and writes a single file.
func (w *Writer) generateFile(f fileTask) error {
	b, err := f.render()
	if err != nil {
		return NewGenerationError(f.name, StageRender, err)
	}
	fullPath := filepath.Join(w.graph.Target, f.name)
	if f.goFile {
		formatted, err := imports.Process(fullPath, b, nil)
		if err != nil {
			// Keep the unformatted output for debugging.
			gerr := NewGenerationError(f.name, StageFormat, err)
			if os.WriteFile(fullPath+".error", b, 0o644) == nil {
				gerr.DebugFile = fullPath + ".error"
			}
			return gerr
		}
		b = formatted
	}
	if err := os.WriteFile(fullPath, b, 0o644); err != nil {
		return NewGenerationError(f.name, StageWrite, err)
	}

	w.mu.Lock()
	w.metrics.FilesGenerated++
	w.metrics.TotalBytes += int64(len(b))
	w.mu.Unlock()
	return nil
}

// Generate writes the generated package of g to its target directory.
func Generate(ctx context.Context, g *Graph) error {
	return NewWriter(g).Generate(ctx)
}
