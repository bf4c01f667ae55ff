package layer

import (
	"encoding/xml"
	"errors"
	"io"
	"log"
	"math"
	"reflect"
	"testing"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/easing"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/keyframe"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/motion"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/scene"
)

// fakeBinding is a scene that can be told to fail or panic for some bones.
type fakeBinding struct {
	*scene.Scene
	fail   map[string]error
	panics map[string]bool
}

func newFakeBinding() *fakeBinding {
	return &fakeBinding{
		Scene:  scene.New(),
		fail:   make(map[string]error),
		panics: make(map[string]bool),
	}
}

func (f *fakeBinding) ApplyMotion(m *motion.MotionData, t float64, indexUpdated bool) error {
	if err := f.fail[m.Name]; err != nil {
		return err
	}
	if f.panics[m.Name] {
		panic("binding exploded")
	}
	return f.Scene.ApplyMotion(m, t, indexUpdated)
}

func quietOptions() Options {
	opts := DefaultOptions()
	opts.Name = "test"
	opts.Logger = log.New(io.Discard, "", 0)
	return opts
}

func newTestLayer(opts Options) (*Layer, *fakeBinding) {
	b := newFakeBinding()
	return New(b, opts), b
}

func floatT(v float64) *keyframe.TransformData {
	return keyframe.NewTransform(keyframe.FloatValue{Value: v}, easing.Linear)
}

func setFloats(t *testing.T, l *Layer, name string, frames []int, values []float64) {
	t.Helper()
	for i, no := range frames {
		if err := l.SetBone(no, keyframe.NewBone(name, floatT(values[i]))); err != nil {
			t.Fatalf("SetBone(%d) failed: %v", no, err)
		}
	}
}

func keyValue(t *testing.T, l *Layer, frameNo int, name string) float64 {
	t.Helper()
	b := l.GetBone(frameNo, name)
	if b == nil {
		t.Fatalf("no key %s at frame %d", name, frameNo)
	}
	v, err := b.Transform.Float()
	if err != nil {
		t.Fatalf("key %s at %d: %v", name, frameNo, err)
	}
	return v.Value
}

func frameNos(l *Layer) []int {
	var out []int
	for _, f := range l.Frames() {
		out = append(out, f.FrameNo)
	}
	return out
}

func TestCreateFrameErrors(t *testing.T) {
	l, _ := newTestLayer(quietOptions())
	if _, err := l.CreateFrame(-1); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("CreateFrame(-1) = %v, want ErrInvalidRange", err)
	}
	if _, err := l.CreateFrame(3); err != nil {
		t.Fatalf("CreateFrame(3) failed: %v", err)
	}
	if _, err := l.CreateFrame(3); !errors.Is(err, ErrFrameExists) {
		t.Errorf("second CreateFrame(3) = %v, want ErrFrameExists", err)
	}
	if _, err := l.CreateFrame(1); err != nil {
		t.Fatalf("CreateFrame(1) failed: %v", err)
	}
	if got := frameNos(l); !reflect.DeepEqual(got, []int{1, 3}) {
		t.Errorf("frames = %v, want [1 3]", got)
	}
}

func TestSetBoneMaintainsRows(t *testing.T) {
	l, _ := newTestLayer(quietOptions())
	setFloats(t, l, "w", []int{20, 0, 10}, []float64{2, 0, 1})
	setFloats(t, l, "a", []int{5}, []float64{7})

	if got := l.GetExistBoneNames(); !reflect.DeepEqual(got, []string{"a", "w"}) {
		t.Errorf("GetExistBoneNames = %v", got)
	}
	if l.MaxExistFrameNo() != 20 {
		t.Errorf("MaxExistFrameNo = %d, want 20", l.MaxExistFrameNo())
	}
	if pd := l.PlayData("w"); pd == nil || len(pd.Motions) != 2 {
		t.Fatalf("play data for w not rebuilt: %+v", pd)
	}

	if l.RemoveAllBones([]string{"w"}) != 3 {
		t.Error("RemoveAllBones did not report 3 keys")
	}
	if l.PlayData("w") != nil || l.MaxExistFrameNo() != 5 {
		t.Errorf("w still derived: max=%d", l.MaxExistFrameNo())
	}
}

func TestUpdateBonesReportsKindMismatch(t *testing.T) {
	l, _ := newTestLayer(quietOptions())
	setFloats(t, l, "w", []int{0}, []float64{1})

	err := l.UpdateBones(0, []*keyframe.BoneData{
		keyframe.NewBone("w", keyframe.NewTransform(keyframe.ColorValue{R: 1}, 0)),
		keyframe.NewBone("v", floatT(4)),
	})
	var km *keyframe.KindMismatchError
	if !errors.As(err, &km) || km.Bone != "w" {
		t.Fatalf("expected KindMismatchError for w, got %v", err)
	}
	if keyValue(t, l, 0, "w") != 1 {
		t.Error("mismatched update changed w")
	}
	if keyValue(t, l, 0, "v") != 4 {
		t.Error("valid sibling was not applied")
	}
}

func TestLoopSearch(t *testing.T) {
	opts := quietOptions()
	opts.Loop = true
	l, _ := newTestLayer(opts)
	setFloats(t, l, "w", []int{0, 10}, []float64{0, 1})

	tests := []struct {
		name   string
		next   bool
		frame  int
		loop   bool
		want   int
		wantOK bool
	}{
		{"next wraps", true, 15, true, 0, true},
		{"next without loop", true, 15, false, 0, false},
		{"next inside", true, 3, false, 10, true},
		{"prev wraps", false, 0, true, 10, true},
		{"prev without loop", false, 0, false, 0, false},
		{"prev strict", false, 10, false, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b *keyframe.BoneData
			if tt.next {
				b = l.GetNextBone(tt.frame, "w", tt.loop)
			} else {
				b = l.GetPrevBone(tt.frame, "w", tt.loop)
			}
			if (b != nil) != tt.wantOK {
				t.Fatalf("found = %v, want %v", b != nil, tt.wantOK)
			}
			if b != nil && b.FrameNo() != tt.want {
				t.Errorf("frame = %d, want %d", b.FrameNo(), tt.want)
			}
		})
	}
}

func TestStartEndFrameNo(t *testing.T) {
	l, _ := newTestLayer(quietOptions())
	setFloats(t, l, "a", []int{0, 20}, []float64{0, 1})
	setFloats(t, l, "b", []int{0, 10}, []float64{0, 1})

	if got := l.GetStartFrameNo(15); got != 10 {
		t.Errorf("GetStartFrameNo(15) = %d, want 10", got)
	}
	if got := l.GetStartFrameNo(10); got != 10 {
		t.Errorf("GetStartFrameNo(10) = %d, want 10", got)
	}
	if got := l.GetEndFrameNo(5); got != 10 {
		t.Errorf("GetEndFrameNo(5) = %d, want 10", got)
	}
	if got := l.GetEndFrameNo(15); got != 20 {
		t.Errorf("GetEndFrameNo(15) = %d, want 20", got)
	}
	if got := l.GetEndFrameNo(20); got != 20 {
		t.Errorf("GetEndFrameNo(20) = %d, want layer length 20", got)
	}
	if f := l.GetActiveFrame(12.5); f == nil || f.FrameNo != 10 {
		t.Errorf("GetActiveFrame(12.5) = %v", f)
	}
	if f := l.GetNextFrame(10); f == nil || f.FrameNo != 20 {
		t.Errorf("GetNextFrame(10) = %v", f)
	}
	if f := l.GetPrevFrame(10); f == nil || f.FrameNo != 0 {
		t.Errorf("GetPrevFrame(10) = %v", f)
	}
}

func TestDeleteThenInsertFrames(t *testing.T) {
	opts := quietOptions()
	opts.MaxFrameNo = 40
	l, _ := newTestLayer(opts)
	setFloats(t, l, "w", []int{0, 10, 20, 30}, []float64{0, 1, 2, 3})

	if err := l.DeleteFrames(10, 20); err != nil {
		t.Fatalf("DeleteFrames failed: %v", err)
	}
	if got := frameNos(l); !reflect.DeepEqual(got, []int{0, 10, 20}) {
		t.Fatalf("after delete frames = %v", got)
	}
	if keyValue(t, l, 10, "w") != 2 || l.MaxFrameNo() != 30 {
		t.Errorf("after delete: value %v max %d", keyValue(t, l, 10, "w"), l.MaxFrameNo())
	}

	if err := l.InsertFrames(10, 20); err != nil {
		t.Fatalf("InsertFrames failed: %v", err)
	}
	if got := frameNos(l); !reflect.DeepEqual(got, []int{0, 20, 30}) {
		t.Fatalf("after insert frames = %v", got)
	}
	if keyValue(t, l, 20, "w") != 2 || keyValue(t, l, 30, "w") != 3 || l.MaxFrameNo() != 40 {
		t.Errorf("after insert: max %d", l.MaxFrameNo())
	}
	if pd := l.PlayData("w"); pd.Motions[0].EdFrame != 20 {
		t.Errorf("segment not rebuilt: %d", pd.Motions[0].EdFrame)
	}

	for _, r := range [][2]int{{5, 5}, {-1, 3}, {8, 2}} {
		if err := l.InsertFrames(r[0], r[1]); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("InsertFrames(%d,%d) = %v, want ErrInvalidRange", r[0], r[1], err)
		}
	}
}

func TestDuplicateFrames(t *testing.T) {
	l, _ := newTestLayer(quietOptions())
	setFloats(t, l, "w", []int{0, 10, 20}, []float64{0, 1, 2})

	if err := l.DuplicateFrames(0, 10); err != nil {
		t.Fatalf("DuplicateFrames failed: %v", err)
	}
	if got := frameNos(l); !reflect.DeepEqual(got, []int{0, 10, 20, 30}) {
		t.Fatalf("frames = %v", got)
	}
	want := []float64{0, 0, 1, 2}
	for i, no := range []int{0, 10, 20, 30} {
		if got := keyValue(t, l, no, "w"); got != want[i] {
			t.Errorf("frame %d = %v, want %v", no, got, want[i])
		}
	}
	if l.GetBone(0, "w") == l.GetBone(10, "w") {
		t.Error("duplicate shares the bone with its source")
	}
}

func TestCleanFramesRemovesCollinearKeys(t *testing.T) {
	l, _ := newTestLayer(quietOptions())
	setFloats(t, l, "w", []int{0, 10, 20, 30}, []float64{0, 1, 2, 0})

	if n := l.CleanFrames(); n != 1 {
		t.Fatalf("CleanFrames removed %d keys, want 1", n)
	}
	if got := frameNos(l); !reflect.DeepEqual(got, []int{0, 20, 30}) {
		t.Errorf("frames = %v", got)
	}
	if n := l.CleanFrames(); n != 0 {
		t.Errorf("second CleanFrames removed %d keys", n)
	}
}

func TestCleanFramesKeepsNonLinearKeys(t *testing.T) {
	l, _ := newTestLayer(quietOptions())
	setFloats(t, l, "w", []int{0, 10, 20}, []float64{0, 1, 2})
	l.GetBone(0, "w").Transform.Easing = easing.QuadIn

	if n := l.CleanFrames(); n != 0 {
		t.Errorf("eased key removed: %d", n)
	}
}

func TestCleanFramesDiscrete(t *testing.T) {
	l, _ := newTestLayer(quietOptions())
	for i, vis := range []bool{true, true, false} {
		v := keyframe.NewTransform(keyframe.VisibleValue{Visible: vis}, 0)
		if err := l.SetBone(i*10, keyframe.NewBone("v", v)); err != nil {
			t.Fatal(err)
		}
	}
	if n := l.CleanFrames(); n != 1 {
		t.Errorf("CleanFrames removed %d, want 1", n)
	}
	if l.GetBone(10, "v") != nil {
		t.Error("repeated visible key kept")
	}
}

func TestCleanFramesBaseFrame(t *testing.T) {
	tests := []struct {
		name     string
		required bool
		want     []int
	}{
		{"required", true, []int{0, 10}},
		{"optional", false, []int{10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := quietOptions()
			opts.RequireBaseFrame = tt.required
			l, _ := newTestLayer(opts)
			setFloats(t, l, "w", []int{0, 10}, []float64{0, 1})
			l.RemoveBone(0, "w")
			l.CleanFrames()
			if got := frameNos(l); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("frames = %v, want %v", got, tt.want)
			}
		})
	}
}

func sampleFloats(t *testing.T, l *Layer, name string, end int) []float64 {
	t.Helper()
	out := make([]float64, end+1)
	for f := range out {
		v, err := l.ValueAt(name, float64(f))
		if err != nil || v == nil {
			t.Fatalf("ValueAt(%d) = %v, %v", f, v, err)
		}
		fv, err := v.Float()
		if err != nil {
			t.Fatal(err)
		}
		out[f] = fv.Value
	}
	return out
}

func TestCleanFramesTangentKeepsPlayback(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		removed []int
	}{
		{"plateau", []float64{0, 5, 5, 5, 0}, nil},
		{"line", []float64{0, 1, 2, 3, 4}, []int{20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := quietOptions()
			opts.UseTangent = true
			l, _ := newTestLayer(opts)
			setFloats(t, l, "w", []int{0, 10, 20, 30, 40}, tt.values)
			before := sampleFloats(t, l, "w", 40)

			l.CleanFrames()
			after := sampleFloats(t, l, "w", 40)
			for f := range before {
				if math.Abs(before[f]-after[f]) > opts.Tolerance {
					t.Errorf("frame %d moved from %v to %v", f, before[f], after[f])
				}
			}
			for _, no := range tt.removed {
				if l.GetBone(no, "w") != nil {
					t.Errorf("key at %d kept", no)
				}
			}
			if l.GetBone(0, "w") == nil || l.GetBone(40, "w") == nil {
				t.Error("end keys removed")
			}
			if n := l.CleanFrames(); n != 0 {
				t.Errorf("second CleanFrames removed %d keys", n)
			}
		})
	}
}

func TestDeleteInsertRestoresLaterKeys(t *testing.T) {
	opts := quietOptions()
	opts.MaxFrameNo = 50
	l, _ := newTestLayer(opts)
	setFloats(t, l, "w", []int{0, 5, 25, 35}, []float64{0, 1, 2, 3})

	if err := l.DeleteFrames(10, 20); err != nil {
		t.Fatal(err)
	}
	if err := l.InsertFrames(10, 20); err != nil {
		t.Fatal(err)
	}
	if got := frameNos(l); !reflect.DeepEqual(got, []int{0, 5, 25, 35}) {
		t.Fatalf("frames = %v", got)
	}
	for i, no := range []int{0, 5, 25, 35} {
		if got := keyValue(t, l, no, "w"); got != float64(i) {
			t.Errorf("frame %d = %v, want %d", no, got, i)
		}
	}
	if l.MaxFrameNo() != 50 {
		t.Errorf("MaxFrameNo = %d, want 50", l.MaxFrameNo())
	}
}

func TestLoopSearchWithoutLoopOption(t *testing.T) {
	l, _ := newTestLayer(quietOptions())
	setFloats(t, l, "w", []int{0, 10}, []float64{0, 1})

	if b := l.GetNextBone(15, "w", true); b == nil || b.FrameNo() != 0 {
		t.Errorf("GetNextBone(15, loop) = %v, want frame 0", b)
	}
	if b := l.GetPrevBone(0, "w", true); b == nil || b.FrameNo() != 10 {
		t.Errorf("GetPrevBone(0, loop) = %v, want frame 10", b)
	}
	if b := l.GetNextBone(15, "w", false); b != nil {
		t.Errorf("GetNextBone(15) = %v, want nil", b.FrameNo())
	}
}

func TestIsValidData(t *testing.T) {
	l, b := newTestLayer(quietOptions())
	var serr *StructuralError
	if err := l.IsValidData(); !errors.As(err, &serr) {
		t.Fatalf("empty layer: expected StructuralError, got %v", err)
	}

	setFloats(t, l, "w", []int{5}, []float64{1})
	if err := l.IsValidData(); err == nil {
		t.Error("layer without frame 0 accepted")
	}

	setFloats(t, l, "w", []int{0}, []float64{0})
	if err := l.IsValidData(); err != nil {
		t.Errorf("valid layer rejected: %v", err)
	}

	b.Define("w", keyframe.NewTransform(keyframe.ColorValue{}, 0))
	if err := l.IsValidData(); !errors.As(err, &serr) {
		t.Errorf("kind mismatch accepted: %v", err)
	}
}

func TestTreeRoundTrip(t *testing.T) {
	opts := quietOptions()
	opts.Class = "bone"
	l, _ := newTestLayer(opts)
	setFloats(t, l, "w", []int{0, 15}, []float64{0.5, 1})
	l.GetBone(0, "w").Transform.Easing = easing.CubicOut
	mv := keyframe.IdentityMove()
	mv.Position[1] = 2
	if err := l.SetBone(15, keyframe.NewBone("Hip", keyframe.NewTransform(mv, 0))); err != nil {
		t.Fatal(err)
	}

	data, err := xml.Marshal(l.ToXml())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var x LayerXml
	if err := xml.Unmarshal(data, &x); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	r, _ := newTestLayer(quietOptions())
	if err := r.FromXml(&x); err != nil {
		t.Fatalf("FromXml failed: %v", err)
	}
	if r.Name() != "test" || r.Class() != "bone" {
		t.Errorf("name/class = %q/%q", r.Name(), r.Class())
	}
	if got := frameNos(r); !reflect.DeepEqual(got, []int{0, 15}) {
		t.Fatalf("frames = %v", got)
	}
	for _, f := range l.Frames() {
		for _, b := range f.Bones() {
			got := r.GetBone(f.FrameNo, b.Name)
			if got == nil || !keyframe.Equal(got.Transform, b.Transform, 1e-9) {
				t.Errorf("%s at %d did not survive", b.Name, f.FrameNo)
			}
		}
	}
	if r.GetBone(0, "w").Transform.Easing != easing.CubicOut {
		t.Error("easing lost")
	}
}

func TestFromXmlFailureLeavesLayer(t *testing.T) {
	l, _ := newTestLayer(quietOptions())
	setFloats(t, l, "w", []int{0, 10}, []float64{0, 1})

	bad := l.ToXml()
	bad.Frames = append(bad.Frames, bad.Frames[0])
	if err := l.FromXml(bad); !errors.Is(err, ErrFrameExists) {
		t.Fatalf("duplicate frames: got %v", err)
	}
	neg := l.ToXml()
	neg.Frames[0].FrameNo = -4
	if err := l.FromXml(neg); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("negative frame: got %v", err)
	}
	if got := frameNos(l); !reflect.DeepEqual(got, []int{0, 10}) {
		t.Errorf("frames changed to %v", got)
	}
}

func TestTangentsAreContinuous(t *testing.T) {
	opts := quietOptions()
	opts.UseTangent = true
	l, _ := newTestLayer(opts)
	setFloats(t, l, "w", []int{0, 10, 20}, []float64{0, 2, 10})

	mid := l.GetBone(10, "w").Transform
	if !mid.TangentsReady() {
		t.Fatal("tangents not computed")
	}
	// (10-0) over 20 frames at 30 fps
	const want = 15.0
	if math.Abs(mid.InTangents[0].Value-want) > 1e-9 || math.Abs(mid.OutTangents[0].Value-want) > 1e-9 {
		t.Errorf("tangents = %v/%v, want %v", mid.InTangents[0].Value, mid.OutTangents[0].Value, want)
	}

	const h = 1e-2
	at := func(frame float64) float64 {
		v, err := l.ValueAt("w", frame)
		if err != nil {
			t.Fatalf("ValueAt(%v): %v", frame, err)
		}
		f, _ := v.Float()
		return f.Value
	}
	fd := l.FrameDuration()
	left := (at(10) - at(10-h)) / (h * fd)
	right := (at(10+h) - at(10)) / (h * fd)
	if math.Abs(left-right) > 0.5 {
		t.Errorf("slope jumps at key: %v vs %v", left, right)
	}
}

func TestInitTangentAppliesPreset(t *testing.T) {
	opts := quietOptions()
	opts.UseTangent = true
	opts.DefaultTangent = TangentEaseInOut
	l, _ := newTestLayer(opts)
	setFloats(t, l, "w", []int{0, 10}, []float64{0, 3})
	l.InitTangent()

	// zero weights give a smoothstep from 0 to 3
	for _, tc := range []struct{ frame, want float64 }{{0, 0}, {2.5, 0.46875}, {5, 1.5}, {10, 3}} {
		v, err := l.ValueAt("w", tc.frame)
		if err != nil {
			t.Fatal(err)
		}
		if f, _ := v.Float(); math.Abs(f.Value-tc.want) > 1e-9 {
			t.Errorf("w at %v = %v, want %v", tc.frame, f.Value, tc.want)
		}
	}
	if b := l.GetBone(0, "w").Transform; b.OutTangents[0].Value != 0 {
		t.Errorf("ease-in-out out tangent = %v, want 0", b.OutTangents[0].Value)
	}
}
