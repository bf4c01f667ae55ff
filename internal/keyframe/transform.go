package keyframe

import (
	"fmt"
	"log"
	"maps"
	"strings"

	"github.com/tiendc/go-deepcopy"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/easing"
)

// TransformType names the variant held by a TransformData.
type TransformType int

const (
	TypeNone TransformType = iota
	TypeMove
	TypeColor
	TypeFloat
	TypeVisible
	TypeBlendShape
	TypeMaterial
	TypeDress
)

var typeNames = [...]string{
	TypeNone:       "None",
	TypeMove:       "Move",
	TypeColor:      "Color",
	TypeFloat:      "Float",
	TypeVisible:    "Visible",
	TypeBlendShape: "BlendShape",
	TypeMaterial:   "Material",
	TypeDress:      "Dress",
}

func (t TransformType) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("TransformType(%d)", int(t))
}

// ParseTransformType is the inverse of String.
func ParseTransformType(s string) (TransformType, error) {
	for i, n := range typeNames {
		if strings.EqualFold(n, s) {
			return TransformType(i), nil
		}
	}
	return TypeNone, fmt.Errorf("unknown transform type: %s", s)
}

// Tangent is one channel's tangent at a keyframe. Value is the slope in
// units per second derived from neighbouring keys, Normalized is the
// user-facing weight it was derived from.
type Tangent struct {
	Value      float64
	Normalized float64
	Smooth     bool
}

// TransformData is a single keyed value of one bone. It holds exactly one
// Payload variant; use the checked accessors or Match to read it.
type TransformData struct {
	payload     Payload
	Easing      easing.Type
	InTangents  []Tangent
	OutTangents []Tangent

	// fields read from a document that this version does not understand
	extra []RawElement
	rest  map[string]any
}

// NewTransform wraps p with the given easing.
func NewTransform(p Payload, e easing.Type) *TransformData {
	if p == nil {
		p = NoneValue{}
	}
	return &TransformData{payload: p, Easing: e}
}

func (t *TransformData) Type() TransformType {
	if t == nil || t.payload == nil {
		return TypeNone
	}
	return t.payload.Type()
}

// Payload returns the held variant.
func (t *TransformData) Payload() Payload {
	if t.payload == nil {
		return NoneValue{}
	}
	return t.payload
}

// SetPayload replaces the held variant. Tangents are dropped when the
// channel layout changes.
func (t *TransformData) SetPayload(p Payload) {
	if p == nil {
		p = NoneValue{}
	}
	if len(p.channels()) != len(t.Payload().channels()) || p.Type() != t.Type() {
		t.InTangents = nil
		t.OutTangents = nil
	}
	t.payload = p
}

// Channels returns a copy of the numeric channel vector.
func (t *TransformData) Channels() []float64 {
	return t.Payload().channels()
}

// HasTangent reports whether the variant interpolates numerically and so
// carries tangents in tangent mode.
func (t *TransformData) HasTangent() bool {
	p := t.Payload()
	return !p.discrete() && len(p.channels()) > 0
}

// ResetTangents allocates one tangent pair per channel set to the given
// normalized weights.
func (t *TransformData) ResetTangents(in, out float64, smooth bool) {
	if !t.HasTangent() {
		t.InTangents = nil
		t.OutTangents = nil
		return
	}
	n := len(t.Payload().channels())
	t.InTangents = make([]Tangent, n)
	t.OutTangents = make([]Tangent, n)
	for i := 0; i < n; i++ {
		t.InTangents[i] = Tangent{Normalized: in, Smooth: smooth}
		t.OutTangents[i] = Tangent{Normalized: out, Smooth: smooth}
	}
}

// TangentsReady reports whether tangents are allocated for every channel.
func (t *TransformData) TangentsReady() bool {
	n := len(t.Payload().channels())
	return n > 0 && len(t.InTangents) == n && len(t.OutTangents) == n
}

// WithChannels returns a copy of t whose numeric channels are replaced.
func (t *TransformData) WithChannels(ch []float64) (*TransformData, error) {
	p, err := t.Payload().withChannels(ch)
	if err != nil {
		return nil, err
	}
	c := t.Clone()
	c.payload = p
	return c, nil
}

// Clone returns a deep copy.
func (t *TransformData) Clone() *TransformData {
	if t == nil {
		return nil
	}
	c := &TransformData{
		payload: t.Payload().clone(),
		Easing:  t.Easing,
	}
	if t.InTangents != nil {
		c.InTangents = append([]Tangent(nil), t.InTangents...)
	}
	if t.OutTangents != nil {
		c.OutTangents = append([]Tangent(nil), t.OutTangents...)
	}
	if t.extra != nil {
		c.extra = append([]RawElement(nil), t.extra...)
	}
	if t.rest != nil {
		c.rest = copyRest(t.rest)
	}
	return c
}

// copyRest deep copies the YAML keys kept for round trips. When deepcopy
// refuses a value the copy falls back to sharing the nested values.
func copyRest(src map[string]any) map[string]any {
	var dst map[string]any
	if err := deepcopy.Copy(&dst, src); err != nil {
		log.Printf("[!] Sharing unmodelled YAML fields: %v", err)
		return maps.Clone(src)
	}
	return dst
}

// CopyFrom overwrites the value, easing and tangents of t with src.
func (t *TransformData) CopyFrom(src *TransformData) error {
	if src.Type() != t.Type() {
		return &KindMismatchError{Want: t.Type(), Got: src.Type()}
	}
	c := src.Clone()
	*t = *c
	return nil
}

func (t *TransformData) mismatch(want TransformType) error {
	return &KindMismatchError{Want: want, Got: t.Type()}
}

func (t *TransformData) Move() (MoveValue, error) {
	if v, ok := t.Payload().(MoveValue); ok {
		return v, nil
	}
	return MoveValue{}, t.mismatch(TypeMove)
}

func (t *TransformData) Color() (ColorValue, error) {
	if v, ok := t.Payload().(ColorValue); ok {
		return v, nil
	}
	return ColorValue{}, t.mismatch(TypeColor)
}

func (t *TransformData) Float() (FloatValue, error) {
	if v, ok := t.Payload().(FloatValue); ok {
		return v, nil
	}
	return FloatValue{}, t.mismatch(TypeFloat)
}

func (t *TransformData) Visible() (VisibleValue, error) {
	if v, ok := t.Payload().(VisibleValue); ok {
		return v, nil
	}
	return VisibleValue{}, t.mismatch(TypeVisible)
}

func (t *TransformData) BlendShape() (BlendShapeValue, error) {
	if v, ok := t.Payload().(BlendShapeValue); ok {
		return v, nil
	}
	return BlendShapeValue{}, t.mismatch(TypeBlendShape)
}

func (t *TransformData) Material() (MaterialValue, error) {
	if v, ok := t.Payload().(MaterialValue); ok {
		return v, nil
	}
	return MaterialValue{}, t.mismatch(TypeMaterial)
}

func (t *TransformData) Dress() (DressValue, error) {
	if v, ok := t.Payload().(DressValue); ok {
		return v, nil
	}
	return DressValue{}, t.mismatch(TypeDress)
}

// Visitor receives the concrete variant from Match. Exactly one method is
// called per Match.
type Visitor interface {
	VisitMove(MoveValue) error
	VisitColor(ColorValue) error
	VisitFloat(FloatValue) error
	VisitVisible(VisibleValue) error
	VisitBlendShape(BlendShapeValue) error
	VisitMaterial(MaterialValue) error
	VisitDress(DressValue) error
}

// Match dispatches on the held variant. A TypeNone value is reported as a
// KindMismatchError.
func (t *TransformData) Match(v Visitor) error {
	switch p := t.Payload().(type) {
	case MoveValue:
		return v.VisitMove(p)
	case ColorValue:
		return v.VisitColor(p)
	case FloatValue:
		return v.VisitFloat(p)
	case VisibleValue:
		return v.VisitVisible(p)
	case BlendShapeValue:
		return v.VisitBlendShape(p)
	case MaterialValue:
		return v.VisitMaterial(p)
	case DressValue:
		return v.VisitDress(p)
	}
	return &KindMismatchError{Want: TypeNone, Got: t.Type()}
}
