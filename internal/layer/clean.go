package layer

import (
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/keyframe"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/motion"
)

// CleanFrames removes keys that do not change playback and then drops empty
// keyframes. Frame 0 is kept when the layer requires a base keyframe.
// Running it twice removes nothing the second time. It returns the number
// of removed bone keys.
func (l *Layer) CleanFrames() int {
	removed := 0
	touched := make(map[string]struct{})
	for _, name := range l.boneNames {
		n := l.cleanBone(name)
		if n > 0 {
			removed += n
			touched[name] = struct{}{}
		}
	}

	kept := l.frames[:0]
	dropped := 0
	for _, f := range l.frames {
		if f.HasBones() || (f.FrameNo == 0 && l.opts.RequireBaseFrame) {
			kept = append(kept, f)
			continue
		}
		dropped++
	}
	for i := len(kept); i < len(l.frames); i++ {
		l.frames[i] = nil
	}
	l.frames = kept

	if len(touched) > 0 {
		l.rebuildTouched(touched)
	} else if dropped > 0 {
		l.rebuild()
	}
	return removed
}

// cleanBone repeats passes over one bone's keys until no interior key can
// be dropped.
func (l *Layer) cleanBone(name string) int {
	if row := l.rows[name]; l.opts.UseTangent && len(row) > 0 && row[0].Transform.HasTangent() {
		return l.cleanTangentBone(name)
	}
	keys := append([]*keyframe.BoneData(nil), l.rows[name]...)
	removed := 0
	for {
		pass := 0
		for i := 1; i+1 < len(keys); {
			if !l.redundant(keys[i-1], keys[i], keys[i+1]) {
				i++
				continue
			}
			keys[i].Frame().RemoveBone(name)
			keys = append(keys[:i], keys[i+1:]...)
			pass++
		}
		if pass == 0 {
			return removed
		}
		removed += pass
	}
}

// redundant reports whether dropping cand leaves the value of the bone
// unchanged at every frame between prev and next.
func (l *Layer) redundant(prev, cand, next *keyframe.BoneData) bool {
	tol := l.opts.Tolerance
	pt, ct, nt := prev.Transform, cand.Transform, next.Transform
	if pt.Type() != ct.Type() || ct.Type() != nt.Type() {
		return false
	}
	if keyframe.Discrete(ct) {
		return keyframe.Equal(pt, ct, tol)
	}
	if !keyframe.SameLayout(pt, ct) || !keyframe.SameLayout(ct, nt) {
		return false
	}

	merged := motion.New(prev, next, l.curve)
	before := motion.New(prev, cand, l.curve)
	after := motion.New(cand, next, l.curve)

	for f := prev.FrameNo() + 1; f < next.FrameNo(); f++ {
		want := ct
		if f != cand.FrameNo() {
			seg := after
			if f < cand.FrameNo() {
				seg = before
			}
			v, err := seg.Value(seg.Lerp(float64(f)))
			if err != nil {
				return false
			}
			want = v
		}
		got, err := merged.Value(merged.Lerp(float64(f)))
		if err != nil || !keyframe.Equal(got, want, tol) {
			return false
		}
	}
	return true
}

// cleanTangentBone removes one interior key at a time, recomputes the
// slopes of the remaining keys and keeps the removal only when the curve
// still matches the original at every frame. Dropping a key changes the
// tangents of its neighbours, so no segment can be judged on its own.
func (l *Layer) cleanTangentBone(name string) int {
	want, ok := l.sampleBone(name)
	if !ok {
		return 0
	}
	removed := 0
	for {
		pass := 0
		for i := 1; i+1 < len(l.rows[name]); {
			row := l.rows[name]
			cand := row[i]
			if keyframe.Discrete(cand.Transform) ||
				!keyframe.SameLayout(row[i-1].Transform, cand.Transform) ||
				!keyframe.SameLayout(cand.Transform, row[i+1].Transform) {
				i++
				continue
			}

			saved := saveTangents(row)
			f := cand.Frame()
			f.RemoveBone(name)
			l.rows[name] = append(append([]*keyframe.BoneData(nil), row[:i]...), row[i+1:]...)
			l.updateTangents(name, false)
			l.buildPlayData(name)
			if l.matchesSamples(name, want) {
				pass++
				continue
			}

			f.SetBone(cand)
			l.rows[name] = row
			restoreTangents(row, saved)
			l.buildPlayData(name)
			i++
		}
		if pass == 0 {
			return removed
		}
		removed += pass
	}
}

// sampleBone evaluates name at every integer frame up to the end of the
// layer, or of the bone when its keys run past MaxFrameNo.
func (l *Layer) sampleBone(name string) ([]*keyframe.TransformData, bool) {
	row := l.rows[name]
	if len(row) == 0 {
		return nil, false
	}
	end := l.Length()
	if last := row[len(row)-1].FrameNo(); last > end {
		end = last
	}
	out := make([]*keyframe.TransformData, end+1)
	for f := range out {
		v, err := l.ValueAt(name, float64(f))
		if err != nil || v == nil {
			return nil, false
		}
		out[f] = v
	}
	return out, true
}

func (l *Layer) matchesSamples(name string, want []*keyframe.TransformData) bool {
	for f, w := range want {
		got, err := l.ValueAt(name, float64(f))
		if err != nil || got == nil || !keyframe.Equal(got, w, l.opts.Tolerance) {
			return false
		}
	}
	return true
}

type tangentPair struct {
	in, out []keyframe.Tangent
}

func saveTangents(row []*keyframe.BoneData) []tangentPair {
	saved := make([]tangentPair, len(row))
	for i, b := range row {
		saved[i] = tangentPair{
			in:  append([]keyframe.Tangent(nil), b.Transform.InTangents...),
			out: append([]keyframe.Tangent(nil), b.Transform.OutTangents...),
		}
	}
	return saved
}

func restoreTangents(row []*keyframe.BoneData, saved []tangentPair) {
	for i, b := range row {
		b.Transform.InTangents = saved[i].in
		b.Transform.OutTangents = saved[i].out
	}
}
