package export

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/layer"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/system"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/timeline"
)

// Exporter writes the key, segment and baked tables of every layer of a
// project, plus optional curve previews, into OutputDir.
type Exporter struct {
	OutputDir string
	Workers   int

	// Preview enables one curve image per bone.
	Preview bool
	Format  ImageFormat
	Width   int
	Height  int

	// BakeStep is the frame step of the baked table, 1 when zero.
	BakeStep int

	Logger *log.Logger
}

// Result is the outcome of exporting one layer.
type Result struct {
	Layer string
	Files []string
	Err   error
}

func (e *Exporter) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

// Run exports every layer of p. A layer that fails IsValidData or cannot be
// written gets its Result.Err set and does not stop the others; the
// returned error is only set when ctx is cancelled or the output directory
// cannot be created.
func (e *Exporter) Run(ctx context.Context, p *timeline.Project) ([]Result, error) {
	if err := os.MkdirAll(e.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("export: create %s: %w", e.OutputDir, err)
	}

	layers := p.Layers()
	results := make([]Result, len(layers))
	var done atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	workers := e.Workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, l := range layers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = e.exportLayer(ctx, l)
			if results[i].Err != nil {
				e.logger().Printf("[!] Export failed for layer %s: %v", l.Name(), results[i].Err)
			}
			fmt.Printf("[>] Ready: %d/%d\n", done.Add(1), len(layers))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (e *Exporter) exportLayer(ctx context.Context, l *layer.Layer) Result {
	res := Result{Layer: l.Name()}
	if err := l.IsValidData(); err != nil {
		res.Err = err
		return res
	}

	base := SanitizeName(l.Name())
	tables := []struct {
		suffix string
		write  func(io.Writer) error
	}{
		{"keys", func(w io.Writer) error { return WriteKeysCSV(w, l) }},
		{"motion", func(w io.Writer) error { return WriteMotionCSV(w, l) }},
		{"baked", func(w io.Writer) error { return WriteBakedCSV(w, l, e.BakeStep) }},
	}
	for _, t := range tables {
		path := filepath.Join(e.OutputDir, base+"_"+t.suffix+".csv")
		if err := writeFile(path, t.write); err != nil {
			res.Err = err
			return res
		}
		res.Files = append(res.Files, path)
	}

	if !e.Preview {
		return res
	}
	format := e.Format
	if format == "" {
		format = PNG
	}
	opts := PreviewOptions{Width: e.Width, Height: e.Height}
	for _, bone := range l.GetExistBoneNames() {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		img, err := RenderCurves(l, bone, opts)
		if err != nil {
			res.Err = err
			return res
		}
		path := filepath.Join(e.OutputDir, base+"_"+SanitizeName(bone)+"."+string(format))
		err = writeFile(path, func(w io.Writer) error { return EncodeImage(w, img, format) })
		system.Release(img)
		if err != nil {
			res.Err = err
			return res
		}
		res.Files = append(res.Files, path)
	}
	return res
}

// writeFile writes through a temp file so a failed export never leaves a
// truncated file behind.
func writeFile(path string, write func(io.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("export: close %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

// SanitizeName makes s usable as a file name component.
func SanitizeName(s string) string {
	if s == "" {
		return "unnamed"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, s)
}
