package keyframe

import (
	"fmt"
	"sort"
)

// KindMismatchError reports access to a TransformData through the wrong
// variant, or a merge between two different variants.
type KindMismatchError struct {
	Bone string
	Want TransformType
	Got  TransformType
}

func (e *KindMismatchError) Error() string {
	if e.Bone != "" {
		return fmt.Sprintf("bone %s: transform kind %s, want %s", e.Bone, e.Got, e.Want)
	}
	return fmt.Sprintf("transform kind %s, want %s", e.Got, e.Want)
}

// BoneData is the keyed value of one bone at one frame. A bone belongs to
// at most one FrameData at a time.
type BoneData struct {
	Name      string
	Transform *TransformData

	frame *FrameData
}

func NewBone(name string, t *TransformData) *BoneData {
	if t == nil {
		t = NewTransform(nil, 0)
	}
	return &BoneData{Name: name, Transform: t}
}

// Frame returns the owning frame, nil when detached.
func (b *BoneData) Frame() *FrameData { return b.frame }

// FrameNo returns the owning frame number, -1 when detached.
func (b *BoneData) FrameNo() int {
	if b.frame == nil {
		return -1
	}
	return b.frame.FrameNo
}

func (b *BoneData) Type() TransformType { return b.Transform.Type() }

// Clone returns a detached deep copy.
func (b *BoneData) Clone() *BoneData {
	return &BoneData{Name: b.Name, Transform: b.Transform.Clone()}
}

// FrameData is the set of bones keyed at one frame number.
type FrameData struct {
	FrameNo int
	bones   map[string]*BoneData
}

func NewFrame(frameNo int) *FrameData {
	return &FrameData{FrameNo: frameNo, bones: make(map[string]*BoneData)}
}

func (f *FrameData) Bone(name string) *BoneData {
	return f.bones[name]
}

func (f *FrameData) HasBone(name string) bool {
	_, ok := f.bones[name]
	return ok
}

func (f *FrameData) Len() int { return len(f.bones) }

func (f *FrameData) HasBones() bool { return len(f.bones) > 0 }

// SetBone stores b, replacing any bone of the same name. A bone already
// owned by another frame is copied first.
func (f *FrameData) SetBone(b *BoneData) *BoneData {
	if b == nil {
		return nil
	}
	if b.frame != nil && b.frame != f {
		b = b.Clone()
	}
	if old := f.bones[b.Name]; old != nil && old != b {
		old.frame = nil
	}
	b.frame = f
	f.bones[b.Name] = b
	return b
}

// UpdateBone merges b into the existing bone of the same name, or inserts a
// copy when there is none. Merging two different kinds fails.
func (f *FrameData) UpdateBone(b *BoneData) (*BoneData, error) {
	if b == nil {
		return nil, nil
	}
	old := f.bones[b.Name]
	if old == nil {
		return f.SetBone(b.Clone()), nil
	}
	if old.Type() == TypeNone {
		old.Transform = b.Transform.Clone()
		return old, nil
	}
	if err := old.Transform.CopyFrom(b.Transform); err != nil {
		if km, ok := err.(*KindMismatchError); ok {
			km.Bone = b.Name
		}
		return old, err
	}
	return old, nil
}

func (f *FrameData) RemoveBone(name string) bool {
	b, ok := f.bones[name]
	if !ok {
		return false
	}
	b.frame = nil
	delete(f.bones, name)
	return true
}

// BoneNames returns the bone names in ascending order.
func (f *FrameData) BoneNames() []string {
	names := make([]string, 0, len(f.bones))
	for name := range f.bones {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bones returns the bones ordered by name.
func (f *FrameData) Bones() []*BoneData {
	names := f.BoneNames()
	out := make([]*BoneData, len(names))
	for i, name := range names {
		out[i] = f.bones[name]
	}
	return out
}

// KeepBones drops every bone whose name is not in names and returns the
// names that were dropped.
func (f *FrameData) KeepBones(names []string) []string {
	keep := make(map[string]struct{}, len(names))
	for _, n := range names {
		keep[n] = struct{}{}
	}
	var dropped []string
	for _, name := range f.BoneNames() {
		if _, ok := keep[name]; !ok {
			f.RemoveBone(name)
			dropped = append(dropped, name)
		}
	}
	return dropped
}

// Clone returns a deep copy with the same frame number.
func (f *FrameData) Clone() *FrameData {
	c := NewFrame(f.FrameNo)
	for _, b := range f.bones {
		c.SetBone(b.Clone())
	}
	return c
}

// Equal reports whether a and b hold the same variant with values within tol.
// Easing and tangents are not compared.
func Equal(a, b *TransformData, tol float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Type() == b.Type() && a.Payload().equal(b.Payload(), tol)
}

// SameLayout reports whether a and b can be interpolated channel by channel.
func SameLayout(a, b *TransformData) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Payload().sameLayout(b.Payload())
}

// Discrete reports whether t switches value at keys instead of interpolating.
func Discrete(t *TransformData) bool {
	return t.Payload().discrete()
}
