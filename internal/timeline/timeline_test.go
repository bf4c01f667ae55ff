package timeline

import (
	"errors"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/easing"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/keyframe"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/layer"
)

func quietOptions() layer.Options {
	opts := layer.DefaultOptions()
	opts.Logger = log.New(io.Discard, "", 0)
	return opts
}

func sampleDocument(t *testing.T) *Document {
	t.Helper()
	opts := quietOptions()
	opts.Name = "body"
	opts.Class = "bone"
	l := layer.New(nil, opts)
	for _, k := range []struct {
		frame int
		value float64
	}{{0, 0}, {30, 10}} {
		if err := l.SetBone(k.frame, keyframe.NewBone("w", keyframe.NewTransform(keyframe.FloatValue{Value: k.value}, easing.Linear))); err != nil {
			t.Fatal(err)
		}
	}
	mv := keyframe.IdentityMove()
	mv.Position[0] = 1
	if err := l.SetBone(0, keyframe.NewBone("Hip", keyframe.NewTransform(mv, easing.SineInOut))); err != nil {
		t.Fatal(err)
	}

	doc := NewDocument()
	doc.FrameRate = 30
	doc.Layers = append(doc.Layers, *l.ToXml())
	return doc
}

func floatValue(t *testing.T, td *keyframe.TransformData) float64 {
	t.Helper()
	if td == nil {
		t.Fatal("missing value")
	}
	v, err := td.Float()
	if err != nil {
		t.Fatal(err)
	}
	return v.Value
}

func TestDocumentRoundTrip(t *testing.T) {
	for _, name := range []string{"doc.yaml", "doc.xml"} {
		t.Run(name, func(t *testing.T) {
			doc := sampleDocument(t)
			path := filepath.Join(t.TempDir(), name)
			if err := WriteDocument(doc, path); err != nil {
				t.Fatalf("WriteDocument failed: %v", err)
			}

			got, err := ReadDocument(path)
			if err != nil {
				t.Fatalf("ReadDocument failed: %v", err)
			}
			if got.ID != doc.ID || got.Version != Version || got.FrameRate != 30 {
				t.Errorf("metadata = %+v", got)
			}
			lx := got.Layer("body")
			if lx == nil || lx.Class != "bone" || len(lx.Frames) != 2 {
				t.Fatalf("layer tree = %+v", lx)
			}

			p, err := NewProject(got, quietOptions(), nil)
			if err != nil {
				t.Fatalf("NewProject failed: %v", err)
			}
			l := p.Layer("body")
			if v := floatValue(t, l.GetBone(30, "w").Transform); v != 10 {
				t.Errorf("w at 30 = %v", v)
			}
			if e := l.GetBone(0, "Hip").Transform.Easing; e != easing.SineInOut {
				t.Errorf("Hip easing = %v", e)
			}
		})
	}
}

func TestReadDocumentErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	tests := []struct {
		name   string
		path   string
		wantOp string
	}{
		{"missing", filepath.Join(dir, "none.yaml"), "read"},
		{"bad yaml", write("bad.yaml", "layers: [oops"), "parse"},
		{"bad xml", write("bad.xml", "<Timeline><Layer>"), "parse"},
		{"bad id", write("id.yaml", "id: not-a-uuid\n"), "parse"},
		{"duplicate layer", write("dup.yaml", "layers:\n  - name: a\n  - name: a\n"), "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDocument(tt.path)
			var ioErr *IOError
			if !errors.As(err, &ioErr) {
				t.Fatalf("expected IOError, got %v", err)
			}
			if ioErr.Op != tt.wantOp {
				t.Errorf("op = %s, want %s", ioErr.Op, tt.wantOp)
			}
		})
	}
}

func TestDecodeFillsDefaults(t *testing.T) {
	doc, err := Decode([]byte("layers: []\n"), FormatYAML)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if doc.Version != Version || doc.ID == "" {
		t.Errorf("defaults not filled: %+v", doc)
	}
}

func TestProjectPlayback(t *testing.T) {
	p, err := NewProject(sampleDocument(t), quietOptions(), SceneBinding)
	if err != nil {
		t.Fatalf("NewProject failed: %v", err)
	}
	l := p.Layer("body")
	if SceneOf(l) == nil {
		t.Fatal("layer has no scene")
	}

	for _, r := range p.Seek(15) {
		if r.Skipped() != 0 {
			t.Fatalf("seek skipped bones: %v", r.Err())
		}
	}
	if v := floatValue(t, Values(l)["w"]); v != 5 {
		t.Errorf("w at 15 = %v, want 5", v)
	}

	p.Play()
	p.Tick(250 * time.Millisecond)
	if v := floatValue(t, Values(l)["w"]); v < 7.49 || v > 7.51 {
		t.Errorf("w after tick = %v, want 7.5", v)
	}
	if p.Length() != 30 {
		t.Errorf("Length = %d", p.Length())
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestProjectReload(t *testing.T) {
	p, err := NewProject(sampleDocument(t), quietOptions(), SceneBinding)
	if err != nil {
		t.Fatal(err)
	}
	p.Seek(12)
	old := p.Layer("body")

	bad := sampleDocument(t)
	bad.Layers[0].Frames = append(bad.Layers[0].Frames, bad.Layers[0].Frames[0])
	if err := p.Reload(bad); !errors.Is(err, layer.ErrFrameExists) {
		t.Fatalf("Reload(bad) = %v", err)
	}
	if p.Layer("body") != old {
		t.Error("failed reload replaced the layers")
	}

	good := sampleDocument(t)
	good.Layers[0].Frames[1].Bones[0].Transform.Values[0] = 20
	if err := p.Reload(good); err != nil {
		t.Fatalf("Reload(good) failed: %v", err)
	}
	l := p.Layer("body")
	if l == old || math.Abs(l.PlayingFrame()-12) > 1e-9 {
		t.Errorf("reload lost position: %v", l.PlayingFrame())
	}
	if v := floatValue(t, l.GetBone(30, "w").Transform); v != 20 {
		t.Errorf("reloaded w = %v", v)
	}
}

func TestSnapshotAndSave(t *testing.T) {
	doc := sampleDocument(t)
	p, err := NewProject(doc, quietOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	l := p.Layer("body")
	if err := l.SetBone(15, keyframe.NewBone("w", keyframe.NewTransform(keyframe.FloatValue{Value: 5}, 0))); err != nil {
		t.Fatal(err)
	}
	if n := p.Clean(); n != 1 {
		t.Errorf("Clean removed %d keys, want 1", n)
	}

	snap := p.Snapshot()
	if snap.ID != doc.ID || len(snap.Layers[0].Frames) != 2 {
		t.Errorf("snapshot = %+v", snap)
	}

	path := filepath.Join(t.TempDir(), "saved.xml")
	if err := p.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "<?xml") || !strings.Contains(string(data), `name="body"`) {
		t.Errorf("unexpected xml:\n%s", data)
	}
}

func TestSnapshotFollowsFrameEdits(t *testing.T) {
	tests := []struct {
		name string
		edit func(l *layer.Layer) error
		want int
	}{
		{"insert", func(l *layer.Layer) error { return l.InsertFrames(10, 20) }, 50},
		{"delete", func(l *layer.Layer) error { return l.DeleteFrames(10, 15) }, 35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := sampleDocument(t)
			doc.MaxFrameNo = 40
			doc.Loop = true
			p, err := NewProject(doc, quietOptions(), nil)
			if err != nil {
				t.Fatal(err)
			}
			if err := tt.edit(p.Layer("body")); err != nil {
				t.Fatal(err)
			}
			snap := p.Snapshot()
			if snap.MaxFrameNo != tt.want {
				t.Errorf("MaxFrameNo = %d, want %d", snap.MaxFrameNo, tt.want)
			}

			q, err := NewProject(snap, quietOptions(), nil)
			if err != nil {
				t.Fatal(err)
			}
			if got := q.Layer("body").Length(); got != tt.want {
				t.Errorf("reloaded Length = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFindLatestDocument(t *testing.T) {
	dir := t.TempDir()
	names := []string{"timeline_a.yaml", "timeline_b.xml", "notes.txt"}
	for i, name := range names {
		path := filepath.Join(dir, name)
		os.WriteFile(path, []byte("x"), 0644)
		mod := time.Now().Add(time.Duration(i) * time.Hour)
		os.Chtimes(path, mod, mod)
	}

	latest, err := FindLatestDocument(dir)
	if err != nil {
		t.Fatalf("FindLatestDocument failed: %v", err)
	}
	if filepath.Base(latest) != "timeline_b.xml" {
		t.Errorf("latest = %s", latest)
	}

	if _, err := FindLatestDocument(t.TempDir()); err == nil {
		t.Error("expected error for empty dir")
	}

	path := GenerateDocumentPath(dir)
	if filepath.Dir(path) != dir || !strings.HasPrefix(filepath.Base(path), "timeline_") || FormatOf(path) != FormatYAML {
		t.Errorf("generated path = %s", path)
	}
}
