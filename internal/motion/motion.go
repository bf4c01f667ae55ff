package motion

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/easing"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/keyframe"
)

// Curve carries the layer settings a segment needs to evaluate itself.
// Segments of one layer share a single Curve.
type Curve struct {
	UseTangent    bool
	FrameDuration float64
	Ease          func(t float64, e easing.Type) float64
}

// DefaultFrameDuration is 30 frames per second.
const DefaultFrameDuration = 1.0 / 30.0

func (c *Curve) frameDuration() float64 {
	if c == nil || c.FrameDuration <= 0 {
		return DefaultFrameDuration
	}
	return c.FrameDuration
}

func (c *Curve) ease(t float64, e easing.Type) float64 {
	if c == nil || c.Ease == nil {
		return easing.Calc(t, e)
	}
	return c.Ease(t, e)
}

// MotionData is the interpolation segment of one bone between two
// consecutive keyframes. StFrame < EdFrame, except for the hold of a bone
// keyed once, where both are that key's frame.
type MotionData struct {
	Name    string
	Start   *keyframe.BoneData
	End     *keyframe.BoneData
	StFrame int
	EdFrame int

	curve *Curve
}

// New builds the segment from start to end. Both bones must be owned by
// frames with start before end.
func New(start, end *keyframe.BoneData, curve *Curve) *MotionData {
	return &MotionData{
		Name:    start.Name,
		Start:   start,
		End:     end,
		StFrame: start.FrameNo(),
		EdFrame: end.FrameNo(),
		curve:   curve,
	}
}

// Easing is the easing of the segment, taken from its start key.
func (m *MotionData) Easing() easing.Type {
	return m.Start.Transform.Easing
}

// Duration returns the segment length in seconds.
func (m *MotionData) Duration() float64 {
	return float64(m.EdFrame-m.StFrame) * m.curve.frameDuration()
}

// Contains reports whether frame lies in [StFrame, EdFrame].
func (m *MotionData) Contains(frame float64) bool {
	return frame >= float64(m.StFrame) && frame <= float64(m.EdFrame)
}

// Lerp maps a frame position to the normalized segment time in [0,1].
func (m *MotionData) Lerp(frame float64) float64 {
	span := float64(m.EdFrame - m.StFrame)
	if span <= 0 {
		return 1
	}
	return mgl64.Clamp((frame-float64(m.StFrame))/span, 0, 1)
}

// Value evaluates the segment at normalized time t.
func (m *MotionData) Value(t float64) (*keyframe.TransformData, error) {
	return m.curve.Eval(m, t)
}

// Eval interpolates the start and end keys of m at normalized time t.
// Discrete kinds and mismatched layouts hold the start value until t
// reaches 1. In tangent mode numeric channels follow a cubic Hermite
// curve, otherwise they are eased and blended linearly with quaternion
// rotations slerped along the shortest arc.
func (c *Curve) Eval(m *MotionData, t float64) (*keyframe.TransformData, error) {
	s, e := m.Start.Transform, m.End.Transform
	if s.Type() != e.Type() {
		return nil, &keyframe.KindMismatchError{Bone: m.Name, Want: s.Type(), Got: e.Type()}
	}
	if t <= 0 {
		return s.Clone(), nil
	}
	if t >= 1 {
		return e.Clone(), nil
	}
	if keyframe.Discrete(s) || !keyframe.SameLayout(s, e) {
		return s.Clone(), nil
	}

	p0, p1 := s.Channels(), e.Channels()
	out := make([]float64, len(p0))

	if c != nil && c.UseTangent && s.TangentsReady() && e.TangentsReady() {
		dt := m.Duration()
		if s.Type() == keyframe.TypeMove && p0[3]*p1[3]+p0[4]*p1[4]+p0[5]*p1[5]+p0[6]*p1[6] < 0 {
			for i := 3; i <= 6; i++ {
				p1[i] = -p1[i]
			}
		}
		for i := range out {
			out[i] = easing.HermiteValue(t, p0[i], s.OutTangents[i].Value, p1[i], e.InTangents[i].Value, dt)
		}
		if s.Type() == keyframe.TypeMove {
			normalizeRotation(out)
		}
		return s.WithChannels(out)
	}

	w := c.ease(t, s.Easing)
	for i := range out {
		out[i] = p0[i] + (p1[i]-p0[i])*w
	}
	if s.Type() == keyframe.TypeMove {
		a, _ := s.Move()
		b, _ := e.Move()
		q := Slerp(a.Rotation, b.Rotation, w)
		out[3], out[4], out[5], out[6] = q.V[0], q.V[1], q.V[2], q.W
	}
	return s.WithChannels(out)
}

// Slerp interpolates along the shortest arc between a and b.
func Slerp(a, b mgl64.Quat, t float64) mgl64.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, t).Normalize()
}

func normalizeRotation(ch []float64) {
	q := mgl64.Quat{V: mgl64.Vec3{ch[3], ch[4], ch[5]}, W: ch[6]}
	if l := q.Len(); l > 0 && !math.IsNaN(l) {
		q = q.Scale(1 / l)
	} else {
		q = mgl64.QuatIdent()
	}
	ch[3], ch[4], ch[5], ch[6] = q.V[0], q.V[1], q.V[2], q.W
}
