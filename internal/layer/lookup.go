package layer

import (
	"sort"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/easing"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/keyframe"
)

// loopPeriod is the distance in frames between a key and its wrapped copy.
func (l *Layer) loopPeriod() int {
	return l.Length()
}

// prevBone finds the last key of name strictly before frameNo. With loop it
// wraps to the last key of the row, reported at its frame minus the period.
func (l *Layer) prevBone(name string, frameNo int, loop bool) (*keyframe.BoneData, int) {
	row := l.rows[name]
	if len(row) == 0 {
		return nil, 0
	}
	i := sort.Search(len(row), func(i int) bool { return row[i].FrameNo() >= frameNo }) - 1
	if i >= 0 {
		return row[i], row[i].FrameNo()
	}
	if !loop {
		return nil, 0
	}
	last := row[len(row)-1]
	return last, last.FrameNo() - l.loopPeriod()
}

// nextBone finds the first key of name strictly after frameNo. With loop it
// wraps to the first key of the row, reported at its frame plus the period.
func (l *Layer) nextBone(name string, frameNo int, loop bool) (*keyframe.BoneData, int) {
	row := l.rows[name]
	if len(row) == 0 {
		return nil, 0
	}
	i := sort.Search(len(row), func(i int) bool { return row[i].FrameNo() > frameNo })
	if i < len(row) {
		return row[i], row[i].FrameNo()
	}
	if !loop {
		return nil, 0
	}
	first := row[0]
	return first, first.FrameNo() + l.loopPeriod()
}

// GetPrevBone returns the nearest key of name strictly before frameNo.
// When none exists and loopSearch is set, it wraps to the row's last key.
func (l *Layer) GetPrevBone(frameNo int, name string, loopSearch bool) *keyframe.BoneData {
	b, _ := l.prevBone(name, frameNo, loopSearch)
	return b
}

// GetNextBone returns the nearest key of name strictly after frameNo.
// When none exists and loopSearch is set, it wraps to the row's first key.
func (l *Layer) GetNextBone(frameNo int, name string, loopSearch bool) *keyframe.BoneData {
	b, _ := l.nextBone(name, frameNo, loopSearch)
	return b
}

// GetPrevFrame returns the nearest keyframe strictly before frameNo.
func (l *Layer) GetPrevFrame(frameNo int) *keyframe.FrameData {
	i, _ := l.frameIndex(frameNo)
	if i == 0 {
		return nil
	}
	return l.frames[i-1]
}

// GetNextFrame returns the nearest keyframe strictly after frameNo.
func (l *Layer) GetNextFrame(frameNo int) *keyframe.FrameData {
	i := sort.Search(len(l.frames), func(i int) bool { return l.frames[i].FrameNo > frameNo })
	if i >= len(l.frames) {
		return nil
	}
	return l.frames[i]
}

// GetActiveFrame returns the last keyframe at or before frameNo, nil when
// frameNo precedes every keyframe.
func (l *Layer) GetActiveFrame(frameNo float64) *keyframe.FrameData {
	i := sort.Search(len(l.frames), func(i int) bool {
		return float64(l.frames[i].FrameNo) > frameNo
	})
	if i == 0 {
		return nil
	}
	return l.frames[i-1]
}

// GetStartFrameNo returns the frame at which the segment playing at frameNo
// starts: the latest key at or before frameNo over all bones, 0 when none.
func (l *Layer) GetStartFrameNo(frameNo int) int {
	start := 0
	for _, name := range l.boneNames {
		if b, no := l.prevBone(name, frameNo+1, false); b != nil && no > start {
			start = no
		}
	}
	return start
}

// GetEndFrameNo returns the frame at which the segment playing at frameNo
// ends: the earliest key strictly after frameNo over all bones, or the
// layer length when no bone has one.
func (l *Layer) GetEndFrameNo(frameNo int) int {
	end := -1
	for _, name := range l.boneNames {
		if b, no := l.nextBone(name, frameNo, false); b != nil && (end < 0 || no < end) {
			end = no
		}
	}
	if end < 0 {
		end = l.Length()
		if end < frameNo {
			end = frameNo
		}
	}
	return end
}

// GetEasing returns the easing a new key of name at frameNo should use:
// the existing key's, else the previous key's, else the layer default.
func (l *Layer) GetEasing(frameNo int, name string) easing.Type {
	if b := l.GetBone(frameNo, name); b != nil {
		return b.Transform.Easing
	}
	if b := l.GetPrevBone(frameNo, name, false); b != nil {
		return b.Transform.Easing
	}
	return l.opts.DefaultEasing
}

// ValueAt returns the value bone name would have at frame according to the
// current keys, nil when the bone has none. It follows playback: frames
// outside the keyed range hold the nearest key, or in loop mode follow the
// segment wrapping from the last key to the first.
func (l *Layer) ValueAt(name string, frame float64) (*keyframe.TransformData, error) {
	pd := l.playData[name]
	if pd == nil {
		return nil, nil
	}
	m, t := pd.At(frame)
	if m == nil {
		return nil, nil
	}
	return m.Value(t)
}
