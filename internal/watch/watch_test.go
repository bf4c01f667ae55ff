package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path   string
		want   Kind
		wantOK bool
	}{
		{"a/timeline.yaml", Document, true},
		{"timeline.YML", Document, true},
		{"timeline.xml", Document, true},
		{"bounce.tengo", Script, true},
		{"notes.txt", Document, false},
	}
	for _, tt := range tests {
		got, ok := Classify(tt.path)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("Classify(%s) = %v, %v", tt.path, got, ok)
		}
	}
}

func waitEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev := <-w.Events:
		return ev
	case err := <-w.Errors:
		t.Fatalf("watcher error: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("no event")
	}
	return Event{}
}

func TestWatchDirectory(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)
	path := filepath.Join(dir, "ease.tengo")
	if err := os.WriteFile(path, []byte("ease := func(t) { return t }"), 0644); err != nil {
		t.Fatal(err)
	}

	ev := waitEvent(t, w)
	if ev.Path != path || ev.Kind != Script {
		t.Errorf("event = %+v", ev)
	}
}

func TestWatchSingleFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "timeline.yaml")
	os.WriteFile(target, []byte("layers: []\n"), 0644)

	w, err := New(target)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("layers: []\n"), 0644)
	os.WriteFile(target, []byte("layers: []\nloop: true\n"), 0644)

	ev := waitEvent(t, w)
	if ev.Path != target || ev.Kind != Document {
		t.Errorf("event = %+v", ev)
	}
}

func TestCloseClosesChannels(t *testing.T) {
	w, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if _, ok := <-w.Events; ok {
		t.Error("Events still open")
	}
	w.Close()
}
