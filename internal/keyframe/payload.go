package keyframe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tiendc/go-deepcopy"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// Payload is the closed set of values a TransformData can hold. The
// unexported methods keep the set sealed to this package.
type Payload interface {
	Type() TransformType
	channels() []float64
	withChannels(ch []float64) (Payload, error)
	clone() Payload
	discrete() bool
	sameLayout(o Payload) bool
	equal(o Payload, tol float64) bool
	encode() (values []float64, strs []string)
}

func channelCountError(t TransformType, want, got int) error {
	return fmt.Errorf("%s: want %d channels, got %d", t, want, got)
}

func boolChannel(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clampRange(v, lo, hi float64) float64 {
	if hi <= lo {
		return v
	}
	return mgl64.Clamp(v, lo, hi)
}

// NoneValue is the empty variant of a freshly created TransformData.
type NoneValue struct{}

func (NoneValue) Type() TransformType { return TypeNone }
func (NoneValue) channels() []float64 { return nil }
func (NoneValue) clone() Payload { return NoneValue{} }
func (NoneValue) discrete() bool { return true }
func (NoneValue) encode() ([]float64, []string) { return nil, nil }

func (NoneValue) withChannels(ch []float64) (Payload, error) {
	if len(ch) != 0 {
		return nil, channelCountError(TypeNone, 0, len(ch))
	}
	return NoneValue{}, nil
}

func (NoneValue) sameLayout(o Payload) bool { return o.Type() == TypeNone }

func (NoneValue) equal(o Payload, _ float64) bool { return o.Type() == TypeNone }

// MoveValue is a position/rotation/scale triple.
type MoveValue struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
}

// IdentityMove is the rest pose: origin, no rotation, unit scale.
func IdentityMove() MoveValue {
	return MoveValue{Rotation: mgl64.QuatIdent(), Scale: mgl64.Vec3{1, 1, 1}}
}

func (m MoveValue) Type() TransformType { return TypeMove }
func (m MoveValue) discrete() bool { return false }
func (m MoveValue) clone() Payload { return m }

func (m MoveValue) channels() []float64 {
	return []float64{
		m.Position[0], m.Position[1], m.Position[2],
		m.Rotation.V[0], m.Rotation.V[1], m.Rotation.V[2], m.Rotation.W,
		m.Scale[0], m.Scale[1], m.Scale[2],
	}
}

func (m MoveValue) withChannels(ch []float64) (Payload, error) {
	if len(ch) != 10 {
		return nil, channelCountError(TypeMove, 10, len(ch))
	}
	return MoveValue{
		Position: mgl64.Vec3{ch[0], ch[1], ch[2]},
		Rotation: mgl64.Quat{V: mgl64.Vec3{ch[3], ch[4], ch[5]}, W: ch[6]},
		Scale:    mgl64.Vec3{ch[7], ch[8], ch[9]},
	}, nil
}

func (m MoveValue) sameLayout(o Payload) bool { return o.Type() == TypeMove }

func (m MoveValue) equal(o Payload, tol float64) bool {
	n, ok := o.(MoveValue)
	if !ok {
		return false
	}
	if !floats.EqualApprox(m.Position[:], n.Position[:], tol) || !floats.EqualApprox(m.Scale[:], n.Scale[:], tol) {
		return false
	}
	// q and -q describe the same orientation
	d := m.Rotation.Dot(n.Rotation)
	if d < 0 {
		d = -d
	}
	return scalar.EqualWithinAbs(d, 1, tol)
}

func (m MoveValue) encode() ([]float64, []string) { return m.channels(), nil }

// ColorValue is an RGB triple.
type ColorValue struct {
	R, G, B float64
}

func (c ColorValue) Type() TransformType { return TypeColor }
func (c ColorValue) discrete() bool { return false }
func (c ColorValue) clone() Payload { return c }
func (c ColorValue) channels() []float64 { return []float64{c.R, c.G, c.B} }

func (c ColorValue) withChannels(ch []float64) (Payload, error) {
	if len(ch) != 3 {
		return nil, channelCountError(TypeColor, 3, len(ch))
	}
	return ColorValue{R: ch[0], G: ch[1], B: ch[2]}, nil
}

func (c ColorValue) sameLayout(o Payload) bool { return o.Type() == TypeColor }

func (c ColorValue) equal(o Payload, tol float64) bool {
	n, ok := o.(ColorValue)
	return ok && floats.EqualApprox(c.channels(), n.channels(), tol)
}

func (c ColorValue) encode() ([]float64, []string) { return c.channels(), nil }

// FloatValue is a single scalar kept within [Min, Max] when Max > Min.
type FloatValue struct {
	Value    float64
	Min, Max float64
}

func (f FloatValue) Type() TransformType { return TypeFloat }
func (f FloatValue) discrete() bool { return false }
func (f FloatValue) clone() Payload { return f }
func (f FloatValue) channels() []float64 { return []float64{f.Value} }

func (f FloatValue) withChannels(ch []float64) (Payload, error) {
	if len(ch) != 1 {
		return nil, channelCountError(TypeFloat, 1, len(ch))
	}
	f.Value = clampRange(ch[0], f.Min, f.Max)
	return f, nil
}

func (f FloatValue) sameLayout(o Payload) bool { return o.Type() == TypeFloat }

func (f FloatValue) equal(o Payload, tol float64) bool {
	n, ok := o.(FloatValue)
	return ok && scalar.EqualWithinAbs(f.Value, n.Value, tol)
}

func (f FloatValue) encode() ([]float64, []string) { return []float64{f.Value, f.Min, f.Max}, nil }

// VisibleValue toggles an object, optionally naming the file it shows.
type VisibleValue struct {
	Visible bool
	File    string
}

func (v VisibleValue) Type() TransformType { return TypeVisible }
func (v VisibleValue) discrete() bool { return true }
func (v VisibleValue) clone() Payload { return v }
func (v VisibleValue) channels() []float64 { return []float64{boolChannel(v.Visible)} }

func (v VisibleValue) withChannels(ch []float64) (Payload, error) {
	if len(ch) != 1 {
		return nil, channelCountError(TypeVisible, 1, len(ch))
	}
	v.Visible = ch[0] >= 0.5
	return v, nil
}

func (v VisibleValue) sameLayout(o Payload) bool { return o.Type() == TypeVisible }

func (v VisibleValue) equal(o Payload, _ float64) bool {
	n, ok := o.(VisibleValue)
	return ok && n == v
}

func (v VisibleValue) encode() ([]float64, []string) {
	if v.File == "" {
		return v.channels(), nil
	}
	return v.channels(), []string{v.File}
}

// BlendShapeValue is the weight of one named shape key, in [0,1].
type BlendShapeValue struct {
	Shape  string
	Weight float64
}

func (b BlendShapeValue) Type() TransformType { return TypeBlendShape }
func (b BlendShapeValue) discrete() bool { return false }
func (b BlendShapeValue) clone() Payload { return b }
func (b BlendShapeValue) channels() []float64 { return []float64{b.Weight} }

func (b BlendShapeValue) withChannels(ch []float64) (Payload, error) {
	if len(ch) != 1 {
		return nil, channelCountError(TypeBlendShape, 1, len(ch))
	}
	b.Weight = mgl64.Clamp(ch[0], 0, 1)
	return b, nil
}

func (b BlendShapeValue) sameLayout(o Payload) bool {
	n, ok := o.(BlendShapeValue)
	return ok && n.Shape == b.Shape
}

func (b BlendShapeValue) equal(o Payload, tol float64) bool {
	n, ok := o.(BlendShapeValue)
	return ok && n.Shape == b.Shape && scalar.EqualWithinAbs(b.Weight, n.Weight, tol)
}

func (b BlendShapeValue) encode() ([]float64, []string) {
	return b.channels(), []string{b.Shape}
}

// RGBA is a material color property.
type RGBA struct {
	R, G, B, A float64
}

// MaterialValue is a bag of named float and color properties.
type MaterialValue struct {
	Floats map[string]float64
	Colors map[string]RGBA
}

func (m MaterialValue) Type() TransformType { return TypeMaterial }
func (m MaterialValue) discrete() bool { return false }

func (m MaterialValue) floatKeys() []string {
	keys := make([]string, 0, len(m.Floats))
	for k := range m.Floats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m MaterialValue) colorKeys() []string {
	keys := make([]string, 0, len(m.Colors))
	for k := range m.Colors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m MaterialValue) clone() Payload {
	var c MaterialValue
	if err := deepcopy.Copy(&c, m); err != nil {
		// maps of plain values always copy; keep a shallow copy otherwise
		return m
	}
	return c
}

func (m MaterialValue) channels() []float64 {
	ch := make([]float64, 0, len(m.Floats)+4*len(m.Colors))
	for _, k := range m.floatKeys() {
		ch = append(ch, m.Floats[k])
	}
	for _, k := range m.colorKeys() {
		c := m.Colors[k]
		ch = append(ch, c.R, c.G, c.B, c.A)
	}
	return ch
}

func (m MaterialValue) withChannels(ch []float64) (Payload, error) {
	want := len(m.Floats) + 4*len(m.Colors)
	if len(ch) != want {
		return nil, channelCountError(TypeMaterial, want, len(ch))
	}
	out := MaterialValue{
		Floats: make(map[string]float64, len(m.Floats)),
		Colors: make(map[string]RGBA, len(m.Colors)),
	}
	i := 0
	for _, k := range m.floatKeys() {
		out.Floats[k] = ch[i]
		i++
	}
	for _, k := range m.colorKeys() {
		out.Colors[k] = RGBA{R: ch[i], G: ch[i+1], B: ch[i+2], A: ch[i+3]}
		i += 4
	}
	return out, nil
}

func (m MaterialValue) sameLayout(o Payload) bool {
	n, ok := o.(MaterialValue)
	if !ok || len(n.Floats) != len(m.Floats) || len(n.Colors) != len(m.Colors) {
		return false
	}
	for k := range m.Floats {
		if _, ok := n.Floats[k]; !ok {
			return false
		}
	}
	for k := range m.Colors {
		if _, ok := n.Colors[k]; !ok {
			return false
		}
	}
	return true
}

func (m MaterialValue) equal(o Payload, tol float64) bool {
	return m.sameLayout(o) && floats.EqualApprox(m.channels(), o.channels(), tol)
}

func (m MaterialValue) encode() ([]float64, []string) {
	strs := make([]string, 0, len(m.Floats)+len(m.Colors))
	for _, k := range m.floatKeys() {
		strs = append(strs, "f:"+k)
	}
	for _, k := range m.colorKeys() {
		strs = append(strs, "c:"+k)
	}
	return m.channels(), strs
}

// DressValue is the state of one dress slot.
type DressValue struct {
	Slot string
	Worn bool
	Item string
}

func (d DressValue) Type() TransformType { return TypeDress }
func (d DressValue) discrete() bool { return true }
func (d DressValue) clone() Payload { return d }
func (d DressValue) channels() []float64 { return []float64{boolChannel(d.Worn)} }

func (d DressValue) withChannels(ch []float64) (Payload, error) {
	if len(ch) != 1 {
		return nil, channelCountError(TypeDress, 1, len(ch))
	}
	d.Worn = ch[0] >= 0.5
	return d, nil
}

func (d DressValue) sameLayout(o Payload) bool {
	n, ok := o.(DressValue)
	return ok && n.Slot == d.Slot
}

func (d DressValue) equal(o Payload, _ float64) bool {
	n, ok := o.(DressValue)
	return ok && n == d
}

func (d DressValue) encode() ([]float64, []string) {
	return d.channels(), []string{d.Slot, d.Item}
}

// decodePayload rebuilds a variant from its persisted value and string lists.
func decodePayload(t TransformType, values []float64, strs []string) (Payload, error) {
	str := func(i int) string {
		if i < len(strs) {
			return strs[i]
		}
		return ""
	}
	need := func(n int) error {
		if len(values) != n {
			return channelCountError(t, n, len(values))
		}
		return nil
	}

	switch t {
	case TypeNone:
		return NoneValue{}, nil
	case TypeMove:
		return MoveValue{}.withChannels(values)
	case TypeColor:
		return ColorValue{}.withChannels(values)
	case TypeFloat:
		if err := need(3); err != nil {
			return nil, err
		}
		return FloatValue{Value: values[0], Min: values[1], Max: values[2]}, nil
	case TypeVisible:
		if err := need(1); err != nil {
			return nil, err
		}
		return VisibleValue{Visible: values[0] >= 0.5, File: str(0)}, nil
	case TypeBlendShape:
		if err := need(1); err != nil {
			return nil, err
		}
		return BlendShapeValue{Shape: str(0), Weight: values[0]}, nil
	case TypeMaterial:
		m := MaterialValue{Floats: map[string]float64{}, Colors: map[string]RGBA{}}
		want := 0
		for _, s := range strs {
			switch {
			case strings.HasPrefix(s, "f:"):
				want++
			case strings.HasPrefix(s, "c:"):
				want += 4
			default:
				return nil, fmt.Errorf("%s: bad property descriptor %q", t, s)
			}
		}
		if err := need(want); err != nil {
			return nil, err
		}
		// descriptors are written in channel order: floats then colors, each sorted
		i := 0
		for _, s := range strs {
			if strings.HasPrefix(s, "f:") {
				m.Floats[s[2:]] = values[i]
				i++
			}
		}
		for _, s := range strs {
			if strings.HasPrefix(s, "c:") {
				m.Colors[s[2:]] = RGBA{R: values[i], G: values[i+1], B: values[i+2], A: values[i+3]}
				i += 4
			}
		}
		return m, nil
	case TypeDress:
		if err := need(1); err != nil {
			return nil, err
		}
		return DressValue{Slot: str(0), Worn: values[0] >= 0.5, Item: str(1)}, nil
	}
	return nil, fmt.Errorf("unsupported transform type: %s", t)
}
