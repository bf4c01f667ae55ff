package layer

import (
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/keyframe"
)

// InitTangent resets every key's tangents to the layer default preset and
// recomputes their slopes from the neighbouring keys.
func (l *Layer) InitTangent() {
	for _, name := range l.boneNames {
		l.updateTangents(name, true)
	}
	l.rebuild()
}

// updateTangents recomputes the tangent slopes of every key of name. Smooth
// tangents take the Catmull-Rom slope (x2-x0)/(t2-t0), so the incoming and
// outgoing slopes agree and the curve is C1 at the key. Other tangents
// scale the slope of their own segment by the normalized weight.
func (l *Layer) updateTangents(name string, reset bool) {
	row := l.rows[name]
	fd := l.FrameDuration()
	in, out, smooth := l.opts.DefaultTangent.Values()

	for _, cur := range row {
		t := cur.Transform
		if !t.HasTangent() {
			continue
		}
		if reset || !t.TangentsReady() {
			t.ResetTangents(in, out, smooth)
		}

		frameNo := cur.FrameNo()
		x1 := t.Channels()

		x0, f0 := x1, frameNo-1
		if prev, no := l.prevBone(name, frameNo, l.opts.Loop); prev != nil && no != frameNo &&
			keyframe.SameLayout(prev.Transform, t) {
			x0, f0 = prev.Transform.Channels(), no
		}
		x2, f2 := x1, frameNo+1
		if next, no := l.nextBone(name, frameNo, l.opts.Loop); next != nil && no != frameNo &&
			keyframe.SameLayout(next.Transform, t) {
			x2, f2 = next.Transform.Channels(), no
		}
		if t.Type() == keyframe.TypeMove {
			alignRotation(x1, x0)
			alignRotation(x1, x2)
		}

		dt0 := float64(frameNo-f0) * fd
		dt1 := float64(f2-frameNo) * fd
		for i := range x1 {
			v0 := (x1[i] - x0[i]) / dt0
			v1 := (x2[i] - x1[i]) / dt1
			tan := (x2[i] - x0[i]) / (dt0 + dt1)

			it, ot := &t.InTangents[i], &t.OutTangents[i]
			if it.Smooth {
				it.Value = tan
				it.Normalized = ratio(tan, v0)
			} else {
				it.Value = it.Normalized * v0
			}
			if ot.Smooth {
				ot.Value = tan
				ot.Normalized = ratio(tan, v1)
			} else {
				ot.Value = ot.Normalized * v1
			}
		}
	}
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// alignRotation flips the quaternion channels of other onto the same
// hemisphere as ref so slopes follow the shortest arc.
func alignRotation(ref, other []float64) {
	dot := ref[3]*other[3] + ref[4]*other[4] + ref[5]*other[5] + ref[6]*other[6]
	if dot >= 0 {
		return
	}
	for i := 3; i <= 6; i++ {
		other[i] = -other[i]
	}
}
