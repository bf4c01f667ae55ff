package layer

import (
	"encoding/xml"
	"fmt"
	"sort"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/keyframe"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/motion"
)

// LayerXml is the persisted form of a layer's keyframes.
type LayerXml struct {
	XMLName xml.Name            `xml:"Layer" yaml:"-"`
	Name    string              `xml:"name,attr" yaml:"name"`
	Class   string              `xml:"class,attr,omitempty" yaml:"class,omitempty"`
	Frames  []keyframe.FrameXml `xml:"Frame" yaml:"frames"`
}

// ToXml converts the layer's keyframes, in frame order, to the tree form.
func (l *Layer) ToXml() *LayerXml {
	x := &LayerXml{
		Name:   l.opts.Name,
		Class:  l.opts.Class,
		Frames: make([]keyframe.FrameXml, 0, len(l.frames)),
	}
	for _, f := range l.frames {
		x.Frames = append(x.Frames, f.ToXml())
	}
	return x
}

// FromXml replaces the layer's keyframes with the content of x. Nothing is
// changed when x is malformed.
func (l *Layer) FromXml(x *LayerXml) error {
	if x == nil {
		return fmt.Errorf("layer %s: nil tree", l.opts.Name)
	}
	frames := make([]*keyframe.FrameData, 0, len(x.Frames))
	for i := range x.Frames {
		f, err := x.Frames[i].ToFrame()
		if err != nil {
			return fmt.Errorf("layer %s: %w", l.opts.Name, err)
		}
		if f.FrameNo < 0 {
			return fmt.Errorf("layer %s: %w: frame %d", l.opts.Name, ErrInvalidRange, f.FrameNo)
		}
		frames = append(frames, f)
	}
	sort.SliceStable(frames, func(i, j int) bool { return frames[i].FrameNo < frames[j].FrameNo })
	for i := 1; i < len(frames); i++ {
		if frames[i-1].FrameNo == frames[i].FrameNo {
			return fmt.Errorf("layer %s: %w: %d", l.opts.Name, ErrFrameExists, frames[i].FrameNo)
		}
	}

	if x.Name != "" {
		l.opts.Name = x.Name
	}
	if x.Class != "" {
		l.opts.Class = x.Class
	}
	l.frames = frames
	l.rows = make(map[string][]*keyframe.BoneData)
	l.playData = make(map[string]*motion.MotionPlayData)
	l.rebuild()
	return nil
}
