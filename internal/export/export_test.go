package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/easing"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/keyframe"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/layer"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/timeline"
)

var quiet = log.New(io.Discard, "", 0)

func newLayer(t *testing.T, name string, keys map[int]float64) *layer.Layer {
	t.Helper()
	opts := layer.DefaultOptions()
	opts.Name = name
	opts.Logger = quiet
	l := layer.New(nil, opts)
	for frame, v := range keys {
		if err := l.SetBone(frame, keyframe.NewBone("w", keyframe.NewTransform(keyframe.FloatValue{Value: v}, easing.Linear))); err != nil {
			t.Fatal(err)
		}
	}
	return l
}

func TestWriteCSV(t *testing.T) {
	l := newLayer(t, "body", map[int]float64{0: 0, 30: 10})

	tests := []struct {
		name  string
		write func(io.Writer) error
		want  []string
	}{
		{
			"keys",
			func(w io.Writer) error { return WriteKeysCSV(w, l) },
			[]string{"bone,frame,type,easing,values", "w,0,Float,Linear,0", "w,30,Float,Linear,10"},
		},
		{
			"motion",
			func(w io.Writer) error { return WriteMotionCSV(w, l) },
			[]string{"bone,start,end,easing,seconds", "w,0,30,Linear,1.0000"},
		},
		{
			"baked",
			func(w io.Writer) error { return WriteBakedCSV(w, l, 15) },
			[]string{"frame,bone,values", "0,w,0", "15,w,5", "30,w,10"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.write(&buf); err != nil {
				t.Fatalf("write failed: %v", err)
			}
			got := strings.Split(strings.TrimSpace(buf.String()), "\n")
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderCurves(t *testing.T) {
	l := newLayer(t, "body", map[int]float64{0: 0, 10: 4, 30: 1})

	img, err := RenderCurves(l, "w", PreviewOptions{Width: 200, Height: 100})
	if err != nil {
		t.Fatalf("RenderCurves failed: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 200, 100) {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	painted := 0
	bg := previewBackground
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			if img.RGBAAt(x, y) != bg {
				painted++
			}
		}
	}
	if painted == 0 {
		t.Error("nothing drawn")
	}

	if _, err := RenderCurves(l, "missing", PreviewOptions{Width: 200, Height: 100}); err == nil {
		t.Error("expected error for unknown bone")
	}
	if _, err := RenderCurves(l, "w", PreviewOptions{Width: 10, Height: 10}); err == nil {
		t.Error("expected error for tiny canvas")
	}
}

func TestEncodeImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	tests := []struct {
		format ImageFormat
		magic  string
	}{
		{PNG, "\x89PNG"},
		{WebP, "RIFF"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := EncodeImage(&buf, img, tt.format); err != nil {
				t.Fatalf("EncodeImage failed: %v", err)
			}
			if !bytes.HasPrefix(buf.Bytes(), []byte(tt.magic)) {
				t.Errorf("unexpected header % x", buf.Bytes()[:4])
			}
		})
	}
}

func TestParseImageFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ImageFormat
		wantErr bool
	}{
		{"", PNG, false},
		{"PNG", PNG, false},
		{"webp", WebP, false},
		{"gif", PNG, true},
	}
	for _, tt := range tests {
		got, err := ParseImageFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseImageFormat(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"":          "unnamed",
		"Hip":       "Hip",
		"a/b c":     "a_b_c",
		`x:y*?"<>|`: "x_y______",
	}
	for in, want := range tests {
		if got := SanitizeName(in); got != want {
			t.Errorf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExporterRun(t *testing.T) {
	doc := timeline.NewDocument()
	doc.Layers = append(doc.Layers,
		*newLayer(t, "body", map[int]float64{0: 0, 30: 10}).ToXml(),
		*newLayer(t, "broken", map[int]float64{5: 1}).ToXml(),
	)
	opts := layer.DefaultOptions()
	opts.Logger = quiet
	p, err := timeline.NewProject(doc, opts, nil)
	if err != nil {
		t.Fatalf("NewProject failed: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "out")
	e := &Exporter{OutputDir: dir, Workers: 2, Preview: true, Width: 160, Height: 80, Logger: quiet}
	results, err := e.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}

	body, broken := results[0], results[1]
	if body.Err != nil || len(body.Files) != 4 {
		t.Errorf("body result = %+v", body)
	}
	for _, f := range body.Files {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("missing output %s", f)
		}
	}
	var serr *layer.StructuralError
	if !errors.As(broken.Err, &serr) {
		t.Errorf("broken layer err = %v", broken.Err)
	}
	if _, err := os.Stat(filepath.Join(dir, "broken_keys.csv")); !os.IsNotExist(err) {
		t.Error("invalid layer was exported")
	}
}

func TestExporterCancelled(t *testing.T) {
	doc := timeline.NewDocument()
	doc.Layers = append(doc.Layers, *newLayer(t, "body", map[int]float64{0: 0}).ToXml())
	p, err := timeline.NewProject(doc, layer.Options{Logger: quiet}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := &Exporter{OutputDir: t.TempDir(), Logger: quiet}
	if _, err := e.Run(ctx, p); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}
