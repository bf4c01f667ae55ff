package layer

import (
	"fmt"
	"log"
	"strings"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/easing"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/keyframe"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/motion"
)

// Binding connects a layer to the scene it animates.
type Binding interface {
	// ApplyMotion pushes the value of segment m at normalized time t into
	// the scene. indexUpdated is true on the tick the cursor entered m.
	ApplyMotion(m *motion.MotionData, t float64, indexUpdated bool) error
	// UpdateFrame writes the current scene state of every bone into frame.
	UpdateFrame(frame *keyframe.FrameData) error
	// GetTransformType reports the kind a bone is expected to hold.
	GetTransformType(name string) keyframe.TransformType
	// AllBoneNames lists the bones captured by AddKeyFrameAll.
	AllBoneNames() []string
}

// TangentPreset is a named pair of normalized in/out tangents.
type TangentPreset int

const (
	TangentEaseInOut TangentPreset = iota
	TangentEaseIn
	TangentEaseOut
	TangentLinear
	TangentSmooth
)

var tangentPresetNames = [...]string{"EaseInOut", "EaseIn", "EaseOut", "Linear", "Smooth"}

func (p TangentPreset) String() string {
	if p >= 0 && int(p) < len(tangentPresetNames) {
		return tangentPresetNames[p]
	}
	return "Smooth"
}

// ParseTangentPreset looks a preset up by name, ignoring case.
func ParseTangentPreset(name string) (TangentPreset, error) {
	for i, n := range tangentPresetNames {
		if strings.EqualFold(n, name) {
			return TangentPreset(i), nil
		}
	}
	return TangentSmooth, fmt.Errorf("unknown tangent preset: %s", name)
}

// Values returns the normalized in and out tangents and the smooth flag.
func (p TangentPreset) Values() (in, out float64, smooth bool) {
	switch p {
	case TangentEaseInOut:
		return 0, 0, false
	case TangentEaseIn:
		return 0, 1, false
	case TangentEaseOut:
		return 1, 0, false
	case TangentLinear:
		return 1, 1, false
	}
	return 1, 1, true
}

// Options configures a Layer.
type Options struct {
	Name  string
	Class string

	FrameRate  float64
	MaxFrameNo int
	Loop       bool
	UseTangent bool

	DefaultEasing  easing.Type
	DefaultTangent TangentPreset

	// Tolerance is the absolute difference under which two values are
	// considered equal by CleanFrames and AddKeyFrameDiff.
	Tolerance float64

	// RequireBaseFrame makes frame 0 mandatory for IsValidData and keeps it
	// through CleanFrames.
	RequireBaseFrame bool

	Logger *log.Logger
}

const (
	DefaultFrameRate = 30.0
	DefaultTolerance = 1e-4
)

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		FrameRate:        DefaultFrameRate,
		DefaultTangent:   TangentSmooth,
		Tolerance:        DefaultTolerance,
		RequireBaseFrame: true,
	}
}

// Layer is an ordered keyframe timeline for one category of animated
// properties, with its derived per-bone playback data.
type Layer struct {
	opts    Options
	binding Binding
	logger  *log.Logger
	curve   *motion.Curve

	frames []*keyframe.FrameData

	// derived, rebuilt by rebuild
	rows            map[string][]*keyframe.BoneData
	playData        map[string]*motion.MotionPlayData
	boneNames       []string
	maxExistFrameNo int

	playingTime float64
	playing     bool
	speed       float64
}

// New creates an empty layer driven by binding. binding may be nil for
// layers that are only edited and serialized.
func New(binding Binding, opts Options) *Layer {
	if opts.FrameRate <= 0 {
		opts.FrameRate = DefaultFrameRate
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	l := &Layer{
		opts:     opts,
		binding:  binding,
		logger:   opts.Logger,
		rows:     make(map[string][]*keyframe.BoneData),
		playData: make(map[string]*motion.MotionPlayData),
		speed:    1,
	}
	l.curve = &motion.Curve{
		UseTangent:    opts.UseTangent,
		FrameDuration: 1 / opts.FrameRate,
		Ease:          l.CalcEasingValue,
	}
	return l
}

func (l *Layer) Name() string { return l.opts.Name }

func (l *Layer) Class() string { return l.opts.Class }

func (l *Layer) Options() Options { return l.opts }

func (l *Layer) Binding() Binding { return l.binding }

// SetBinding swaps the scene binding and rewinds every playback cursor.
func (l *Layer) SetBinding(b Binding) {
	l.binding = b
	l.resetCursors()
}

// FrameDuration is the length of one frame in seconds.
func (l *Layer) FrameDuration() float64 { return 1 / l.opts.FrameRate }

func (l *Layer) UseTangent() bool { return l.opts.UseTangent }

// SetUseTangent switches tangent mode. Turning it on computes tangents for
// every bone that has none yet.
func (l *Layer) SetUseTangent(on bool) {
	if l.opts.UseTangent == on {
		return
	}
	l.opts.UseTangent = on
	l.curve.UseTangent = on
	l.rebuild()
}

func (l *Layer) Loop() bool { return l.opts.Loop }

// SetLoop switches loop playback. Tangents at the first and last keys
// depend on it.
func (l *Layer) SetLoop(on bool) {
	if l.opts.Loop == on {
		return
	}
	l.opts.Loop = on
	l.rebuild()
}

// MaxFrameNo is the configured timeline length in frames.
func (l *Layer) MaxFrameNo() int { return l.opts.MaxFrameNo }

func (l *Layer) SetMaxFrameNo(n int) {
	if n < 0 {
		n = 0
	}
	l.opts.MaxFrameNo = n
	if l.opts.Loop {
		l.rebuild()
	}
}

// MaxExistFrameNo is the largest frame number holding a key, 0 when empty.
func (l *Layer) MaxExistFrameNo() int { return l.maxExistFrameNo }

// Length is the playable length in frames: the configured length, or the
// last key when that is further.
func (l *Layer) Length() int {
	if l.opts.MaxFrameNo > l.maxExistFrameNo {
		return l.opts.MaxFrameNo
	}
	return l.maxExistFrameNo
}

// CalcEasingValue maps t in [0,1] through easing e.
func (l *Layer) CalcEasingValue(t float64, e easing.Type) float64 {
	return easing.Default.Calc(t, e)
}

func (l *Layer) logf(format string, args ...any) {
	l.logger.Printf("[!] layer %s: "+format, append([]any{l.opts.Name}, args...)...)
}
