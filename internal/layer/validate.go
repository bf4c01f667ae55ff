package layer

import (
	"fmt"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/keyframe"
)

// IsValidData checks that the layer can be played and exported. It returns
// a *StructuralError describing the first problem found, nil when valid.
func (l *Layer) IsValidData() error {
	fail := func(format string, args ...any) error {
		return &StructuralError{Layer: l.opts.Name, Reason: fmt.Sprintf(format, args...)}
	}

	if l.opts.RequireBaseFrame {
		first := l.FirstFrame()
		if first == nil || first.FrameNo != 0 || !first.HasBones() {
			return fail("a keyframe at frame 0 is required")
		}
	}

	for i, f := range l.frames {
		if f.FrameNo < 0 {
			return fail("frame %d is negative", f.FrameNo)
		}
		if i > 0 && l.frames[i-1].FrameNo >= f.FrameNo {
			return fail("frames %d and %d are out of order", l.frames[i-1].FrameNo, f.FrameNo)
		}
	}

	if l.binding == nil {
		return nil
	}
	for _, name := range l.boneNames {
		want := l.binding.GetTransformType(name)
		if want == keyframe.TypeNone {
			continue
		}
		for _, b := range l.rows[name] {
			if got := b.Type(); got != want {
				return fail("bone %s at frame %d holds %s, want %s", name, b.FrameNo(), got, want)
			}
		}
	}
	return nil
}
