package scene

import (
	"fmt"
	"sort"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/keyframe"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/motion"
)

// Scene is an in-memory set of animated properties. It implements the
// layer binding: playback writes into it and capture reads from it.
type Scene struct {
	kinds  map[string]keyframe.TransformType
	values map[string]*keyframe.TransformData
	names  []string

	// Entered counts, per bone, the ticks on which a new segment started.
	Entered map[string]int
}

func New() *Scene {
	return &Scene{
		kinds:   make(map[string]keyframe.TransformType),
		values:  make(map[string]*keyframe.TransformData),
		Entered: make(map[string]int),
	}
}

// Define registers a property with its kind and initial value.
func (s *Scene) Define(name string, initial *keyframe.TransformData) {
	if _, ok := s.kinds[name]; !ok {
		s.names = append(s.names, name)
		sort.Strings(s.names)
	}
	s.kinds[name] = initial.Type()
	s.values[name] = initial.Clone()
}

// Set overwrites the current value of a defined property.
func (s *Scene) Set(name string, v *keyframe.TransformData) error {
	want, ok := s.kinds[name]
	if !ok {
		return fmt.Errorf("scene: unknown property %s", name)
	}
	if v.Type() != want {
		return &keyframe.KindMismatchError{Bone: name, Want: want, Got: v.Type()}
	}
	s.values[name] = v.Clone()
	return nil
}

// Get returns the current value of name, nil when undefined.
func (s *Scene) Get(name string) *keyframe.TransformData {
	return s.values[name]
}

// Names lists the defined properties in name order.
func (s *Scene) Names() []string {
	return append([]string(nil), s.names...)
}

// Snapshot copies every current value.
func (s *Scene) Snapshot() map[string]*keyframe.TransformData {
	out := make(map[string]*keyframe.TransformData, len(s.values))
	for name, v := range s.values {
		out[name] = v.Clone()
	}
	return out
}

// FromFrame defines one property per bone of f, typed after its key.
func FromFrame(f *keyframe.FrameData) *Scene {
	s := New()
	if f == nil {
		return s
	}
	for _, b := range f.Bones() {
		s.Define(b.Name, b.Transform)
	}
	return s
}

func (s *Scene) ApplyMotion(m *motion.MotionData, t float64, indexUpdated bool) error {
	v, err := m.Value(t)
	if err != nil {
		return err
	}
	if indexUpdated {
		s.Entered[m.Name]++
	}
	if _, ok := s.kinds[m.Name]; !ok {
		// keys for a property the scene never declared still play
		s.Define(m.Name, v)
		return nil
	}
	return s.Set(m.Name, v)
}

func (s *Scene) UpdateFrame(frame *keyframe.FrameData) error {
	for _, name := range s.names {
		frame.SetBone(keyframe.NewBone(name, s.values[name].Clone()))
	}
	return nil
}

func (s *Scene) GetTransformType(name string) keyframe.TransformType {
	return s.kinds[name]
}

func (s *Scene) AllBoneNames() []string {
	return s.Names()
}
