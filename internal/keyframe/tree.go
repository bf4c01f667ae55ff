package keyframe

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/tiendc/go-deepcopy"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/easing"
)

// RawElement keeps an XML element this version does not model so that it
// is written back unchanged.
type RawElement struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   string     `xml:",innerxml"`
}

// TransformXml is the persisted form of a TransformData. The same node is
// used for the XML and YAML documents.
type TransformXml struct {
	Type        string    `xml:"Type" yaml:"type"`
	Values      []float64 `xml:"Value" yaml:"values,flow"`
	Easing      string    `xml:"Easing,omitempty" yaml:"easing,omitempty"`
	InTangents  TangentList `xml:"InTangents" yaml:"in_tangents,flow,omitempty"`
	OutTangents TangentList `xml:"OutTangents" yaml:"out_tangents,flow,omitempty"`
	InSmooth    string      `xml:"InSmoothBit,omitempty" yaml:"in_smooth,omitempty"`
	OutSmooth   string      `xml:"OutSmoothBit,omitempty" yaml:"out_smooth,omitempty"`
	StrValues   []string    `xml:"StrValue" yaml:"str_values,omitempty"`

	Unknown []RawElement   `xml:",any" yaml:"-"`
	Rest    map[string]any `xml:"-" yaml:",inline"`
}

// TangentList holds the normalized weights of one tangent side, written as
// one Value child per channel. An empty list writes no element at all.
type TangentList []float64

type tangentValues struct {
	Values []float64 `xml:"Value"`
}

func (l TangentList) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if len(l) == 0 {
		return nil
	}
	return e.EncodeElement(tangentValues{Values: l}, start)
}

func (l *TangentList) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var v tangentValues
	if err := d.DecodeElement(&v, &start); err != nil {
		return err
	}
	*l = v.Values
	return nil
}

// BoneXml is the persisted form of a BoneData.
type BoneXml struct {
	Name      string       `xml:"Name" yaml:"name"`
	Transform TransformXml `xml:"Transform" yaml:"transform"`
}

// FrameXml is the persisted form of a FrameData.
type FrameXml struct {
	FrameNo int       `xml:"FrameNo" yaml:"frame"`
	Bones   []BoneXml `xml:"Bone" yaml:"bones"`
}

func smoothMask(ts []Tangent) string {
	var sb strings.Builder
	set := false
	for _, t := range ts {
		if t.Smooth {
			sb.WriteByte('1')
			set = true
		} else {
			sb.WriteByte('0')
		}
	}
	if !set {
		return ""
	}
	return sb.String()
}

// ToXml converts t to its persisted form.
func (t *TransformData) ToXml() TransformXml {
	values, strs := t.Payload().encode()
	x := TransformXml{
		Type:      t.Type().String(),
		Values:    values,
		StrValues: strs,
	}
	if t.Easing != easing.Linear {
		x.Easing = t.Easing.String()
	}
	if t.TangentsReady() {
		x.InTangents = make(TangentList, len(t.InTangents))
		x.OutTangents = make(TangentList, len(t.OutTangents))
		for i := range t.InTangents {
			x.InTangents[i] = t.InTangents[i].Normalized
			x.OutTangents[i] = t.OutTangents[i].Normalized
		}
		x.InSmooth = smoothMask(t.InTangents)
		x.OutSmooth = smoothMask(t.OutTangents)
	}
	if len(t.extra) > 0 {
		x.Unknown = append([]RawElement(nil), t.extra...)
	}
	if t.rest != nil {
		x.Rest = copyRest(t.rest)
	}
	return x
}

func decodeTangents(norm []float64, mask string) []Tangent {
	out := make([]Tangent, len(norm))
	for i, v := range norm {
		out[i] = Tangent{Normalized: v, Smooth: i < len(mask) && mask[i] == '1'}
	}
	return out
}

// ToTransform rebuilds a TransformData from its persisted form.
func (x *TransformXml) ToTransform() (*TransformData, error) {
	typ, err := ParseTransformType(x.Type)
	if err != nil {
		return nil, err
	}
	p, err := decodePayload(typ, x.Values, x.StrValues)
	if err != nil {
		return nil, err
	}
	e := easing.Linear
	if x.Easing != "" {
		if e, err = easing.Parse(x.Easing); err != nil {
			return nil, err
		}
	}
	t := NewTransform(p, e)

	n := len(p.channels())
	if len(x.InTangents) > 0 || len(x.OutTangents) > 0 {
		if len(x.InTangents) != n || len(x.OutTangents) != n {
			return nil, fmt.Errorf("%s: tangent count %d/%d does not match %d channels",
				typ, len(x.InTangents), len(x.OutTangents), n)
		}
		t.InTangents = decodeTangents(x.InTangents, x.InSmooth)
		t.OutTangents = decodeTangents(x.OutTangents, x.OutSmooth)
	}
	if len(x.Unknown) > 0 {
		t.extra = append([]RawElement(nil), x.Unknown...)
	}
	if len(x.Rest) > 0 {
		if err := deepcopy.Copy(&t.rest, x.Rest); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ToXml converts f and its bones, in name order.
func (f *FrameData) ToXml() FrameXml {
	x := FrameXml{FrameNo: f.FrameNo, Bones: make([]BoneXml, 0, len(f.bones))}
	for _, b := range f.Bones() {
		x.Bones = append(x.Bones, BoneXml{Name: b.Name, Transform: b.Transform.ToXml()})
	}
	return x
}

// ToFrame rebuilds a FrameData. Duplicate bone names are rejected.
func (x *FrameXml) ToFrame() (*FrameData, error) {
	f := NewFrame(x.FrameNo)
	for i := range x.Bones {
		bx := &x.Bones[i]
		if bx.Name == "" {
			return nil, fmt.Errorf("frame %d: bone %d has no name", x.FrameNo, i)
		}
		if f.HasBone(bx.Name) {
			return nil, fmt.Errorf("frame %d: duplicate bone %s", x.FrameNo, bx.Name)
		}
		t, err := bx.Transform.ToTransform()
		if err != nil {
			return nil, fmt.Errorf("frame %d: bone %s: %w", x.FrameNo, bx.Name, err)
		}
		f.SetBone(NewBone(bx.Name, t))
	}
	return f, nil
}
