package timeline

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/keyframe"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/layer"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/scene"
)

// BindingFactory supplies the scene binding of a layer being loaded.
type BindingFactory func(x *layer.LayerXml) layer.Binding

// Project is a loaded document: one live layer per layer tree, driven
// together by a shared clock.
type Project struct {
	Doc *Document

	opts    layer.Options
	factory BindingFactory
	layers  []*layer.Layer
}

// NewProject builds the layers of doc. opts supplies every setting the
// document does not carry; factory may be nil for edit-only projects.
func NewProject(doc *Document, opts layer.Options, factory BindingFactory) (*Project, error) {
	p := &Project{opts: opts, factory: factory}
	layers, err := p.build(doc)
	if err != nil {
		return nil, err
	}
	p.Doc = doc
	p.layers = layers
	return p, nil
}

// LoadProject reads the document at path and builds its layers.
func LoadProject(path string, opts layer.Options, factory BindingFactory) (*Project, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	p, err := NewProject(doc, opts, factory)
	if err != nil {
		return nil, &IOError{Op: "load", Path: path, Err: err}
	}
	return p, nil
}

func (p *Project) layerOptions(doc *Document, x *layer.LayerXml) layer.Options {
	o := p.opts
	o.Name = x.Name
	o.Class = x.Class
	if doc.FrameRate > 0 {
		o.FrameRate = doc.FrameRate
	}
	if doc.MaxFrameNo > 0 {
		o.MaxFrameNo = doc.MaxFrameNo
	}
	o.Loop = o.Loop || doc.Loop
	o.UseTangent = o.UseTangent || doc.UseTangent
	return o
}

func (p *Project) build(doc *Document) ([]*layer.Layer, error) {
	layers := make([]*layer.Layer, 0, len(doc.Layers))
	for i := range doc.Layers {
		x := &doc.Layers[i]
		var b layer.Binding
		if p.factory != nil {
			b = p.factory(x)
		}
		l := layer.New(b, p.layerOptions(doc, x))
		if err := l.FromXml(x); err != nil {
			return nil, err
		}
		layers = append(layers, l)
	}
	return layers, nil
}

// Reload replaces the layers with the content of doc, keeping the
// playback position. On error the project is left as it was.
func (p *Project) Reload(doc *Document) error {
	layers, err := p.build(doc)
	if err != nil {
		return err
	}
	frame, playing := 0.0, false
	if len(p.layers) > 0 {
		frame = p.layers[0].PlayingFrame()
		playing = p.layers[0].IsPlaying()
	}
	for _, l := range layers {
		l.Seek(frame)
		if playing {
			l.Play()
		}
	}
	p.Doc = doc
	p.layers = layers
	return nil
}

func (p *Project) Layers() []*layer.Layer {
	return append([]*layer.Layer(nil), p.layers...)
}

// Layer returns the layer named name, nil when absent.
func (p *Project) Layer(name string) *layer.Layer {
	for _, l := range p.layers {
		if l.Name() == name {
			return l
		}
	}
	return nil
}

// Length is the longest layer length in frames.
func (p *Project) Length() int {
	n := 0
	for _, l := range p.layers {
		if ln := l.Length(); ln > n {
			n = ln
		}
	}
	return n
}

func (p *Project) Play() {
	for _, l := range p.layers {
		l.Play()
	}
}

func (p *Project) Stop() {
	for _, l := range p.layers {
		l.Stop()
	}
}

func (p *Project) IsPlaying() bool {
	for _, l := range p.layers {
		if l.IsPlaying() {
			return true
		}
	}
	return false
}

func (p *Project) SetSpeed(s float64) {
	for _, l := range p.layers {
		l.SetSpeed(s)
	}
}

// Seek moves every layer to frame and applies it.
func (p *Project) Seek(frame float64) []*layer.TickReport {
	reports := make([]*layer.TickReport, 0, len(p.layers))
	for _, l := range p.layers {
		l.Seek(frame)
		reports = append(reports, l.LateUpdate())
	}
	return reports
}

// Tick advances every layer by dt and applies the result.
func (p *Project) Tick(dt time.Duration) []*layer.TickReport {
	reports := make([]*layer.TickReport, 0, len(p.layers))
	for _, l := range p.layers {
		reports = append(reports, l.Tick(dt))
	}
	return reports
}

// Validate runs IsValidData on every layer and joins the failures.
func (p *Project) Validate() error {
	var errs []error
	for _, l := range p.layers {
		if err := l.IsValidData(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clean runs CleanFrames on every layer and returns the removed key count.
func (p *Project) Clean() int {
	n := 0
	for _, l := range p.layers {
		n += l.CleanFrames()
	}
	return n
}

// Snapshot returns a document holding the current keyframes of every
// layer and the metadata of the loaded document. MaxFrameNo follows the
// layers, since frame range edits move it.
func (p *Project) Snapshot() *Document {
	doc := &Document{Version: Version, ID: p.Doc.ID}
	doc.FrameRate = p.Doc.FrameRate
	doc.MaxFrameNo = p.Doc.MaxFrameNo
	if len(p.layers) > 0 {
		doc.MaxFrameNo = 0
		for _, l := range p.layers {
			doc.MaxFrameNo = max(doc.MaxFrameNo, l.MaxFrameNo())
		}
	}
	doc.Loop = p.Doc.Loop
	doc.UseTangent = p.Doc.UseTangent
	for _, l := range p.layers {
		doc.Layers = append(doc.Layers, *l.ToXml())
	}
	return doc
}

// Save writes a snapshot to path.
func (p *Project) Save(path string) error {
	if err := WriteDocument(p.Snapshot(), path); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

// SceneBinding is a BindingFactory that gives each layer its own
// in-memory scene, seeded with the earliest key of every bone.
func SceneBinding(x *layer.LayerXml) layer.Binding {
	s := scene.New()
	order := make([]int, len(x.Frames))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return x.Frames[order[i]].FrameNo < x.Frames[order[j]].FrameNo
	})
	for _, i := range order {
		for _, bx := range x.Frames[i].Bones {
			if s.Get(bx.Name) != nil {
				continue
			}
			t, err := bx.Transform.ToTransform()
			if err != nil {
				continue
			}
			s.Define(bx.Name, t)
		}
	}
	return s
}

// SceneOf returns the scene behind a layer built with SceneBinding.
func SceneOf(l *layer.Layer) *scene.Scene {
	s, _ := l.Binding().(*scene.Scene)
	return s
}

// Values returns the current scene value of every bone of a layer built
// with SceneBinding, keyed by bone name.
func Values(l *layer.Layer) map[string]*keyframe.TransformData {
	if s := SceneOf(l); s != nil {
		return s.Snapshot()
	}
	return nil
}
