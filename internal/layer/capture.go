package layer

import (
	"fmt"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/keyframe"
)

// snapshot asks the binding for the current scene state, restricted to
// names.
func (l *Layer) snapshot(frameNo int, names []string) (*keyframe.FrameData, error) {
	if l.binding == nil {
		return nil, ErrBindingMissing
	}
	if frameNo < 0 {
		return nil, fmt.Errorf("%w: frame %d", ErrInvalidRange, frameNo)
	}
	tmp := keyframe.NewFrame(frameNo)
	if err := l.binding.UpdateFrame(tmp); err != nil {
		return nil, fmt.Errorf("layer %s: capture frame %d: %w", l.opts.Name, frameNo, err)
	}
	tmp.KeepBones(names)
	return tmp, nil
}

// prepare gives a captured bone the easing and tangent weights of the key
// it replaces or follows, so capturing never resets curve shapes.
func (l *Layer) prepare(frameNo int, b *keyframe.BoneData) {
	b.Transform.Easing = l.GetEasing(frameNo, b.Name)

	ref := l.GetBone(frameNo, b.Name)
	if ref == nil {
		ref = l.GetPrevBone(frameNo, b.Name, false)
	}
	if ref != nil && keyframe.SameLayout(ref.Transform, b.Transform) && ref.Transform.TangentsReady() {
		b.Transform.InTangents = append([]keyframe.Tangent(nil), ref.Transform.InTangents...)
		b.Transform.OutTangents = append([]keyframe.Tangent(nil), ref.Transform.OutTangents...)
		return
	}
	if l.opts.UseTangent {
		in, out, smooth := l.opts.DefaultTangent.Values()
		b.Transform.ResetTangents(in, out, smooth)
	}
}

// commit stores captured bones at frameNo. A captured bone whose kind
// differs from the stored key replaces it and is logged.
func (l *Layer) commit(frameNo int, bones []*keyframe.BoneData) error {
	if len(bones) == 0 {
		return nil
	}
	f, err := l.GetOrCreateFrame(frameNo)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(bones))
	for _, b := range bones {
		l.prepare(frameNo, b)
		if _, err := f.UpdateBone(b); err != nil {
			l.logf("frame %d: %v, replacing key", frameNo, err)
			f.SetBone(b)
		}
		names = append(names, b.Name)
	}
	l.rebuild(names...)
	return nil
}

// AddKeyFrameAll captures every bone the binding exposes into frameNo.
func (l *Layer) AddKeyFrameAll(frameNo int) error {
	if l.binding == nil {
		return ErrBindingMissing
	}
	tmp, err := l.snapshot(frameNo, l.binding.AllBoneNames())
	if err != nil {
		return err
	}
	return l.commit(frameNo, tmp.Bones())
}

// AddKeyFrames captures only names into frameNo.
func (l *Layer) AddKeyFrames(frameNo int, names []string) error {
	tmp, err := l.snapshot(frameNo, names)
	if err != nil {
		return err
	}
	return l.commit(frameNo, tmp.Bones())
}

// AddKeyFrameDiff captures into frameNo only the bones whose scene value
// differs, beyond the layer tolerance, from the value the existing keys
// produce at frameNo. It returns the names that were keyed.
func (l *Layer) AddKeyFrameDiff(frameNo int) ([]string, error) {
	if l.binding == nil {
		return nil, ErrBindingMissing
	}
	tmp, err := l.snapshot(frameNo, l.binding.AllBoneNames())
	if err != nil {
		return nil, err
	}

	var changed []*keyframe.BoneData
	var names []string
	for _, b := range tmp.Bones() {
		implied, err := l.ValueAt(b.Name, float64(frameNo))
		if err != nil {
			l.logf("diff %s at frame %d: %v", b.Name, frameNo, err)
		}
		if implied != nil && keyframe.Equal(implied, b.Transform, l.opts.Tolerance) {
			continue
		}
		changed = append(changed, b)
		names = append(names, b.Name)
	}
	return names, l.commit(frameNo, changed)
}

// RemoveKeyFrames drops the keys of names at frameNo.
func (l *Layer) RemoveKeyFrames(frameNo int, names []string) int {
	return l.RemoveBones(frameNo, names)
}

// AddFirstBones keys every bone of names that has no key at frame 0 from
// the current scene state.
func (l *Layer) AddFirstBones(names []string) error {
	var missing []string
	for _, name := range names {
		if l.GetBone(0, name) == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	tmp, err := l.snapshot(0, missing)
	if err != nil {
		return err
	}
	return l.commit(0, tmp.Bones())
}
