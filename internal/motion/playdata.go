package motion

import (
	"sort"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/keyframe"
)

// FrameTolerance absorbs float drift when the playing frame lands on a key.
const FrameTolerance = 0.001

// seekWindow is how many segments the cursor walks before it falls back
// to a binary search.
const seekWindow = 4

// MotionPlayData is the ordered segment list of one bone plus the playback
// cursor into it.
type MotionPlayData struct {
	BoneName string
	Motions  []*MotionData

	// hold is the zero-length segment of a bone keyed exactly once
	hold  *MotionData
	index int
	// period is the loop length in frames, 0 when the bone does not loop
	period int
}

// Build creates the play data for a bone from its keys in frame order.
// Consecutive keys form one segment each. A single key yields no segment;
// Update then reports a hold of that key.
func Build(name string, bones []*keyframe.BoneData, curve *Curve) *MotionPlayData {
	return BuildLoop(name, bones, curve, 0)
}

// BuildLoop is Build for a looping layer of period frames. A bone with at
// least two keys gets one more segment running from its last key to its
// first key shifted by period, so playback is continuous across the seam.
func BuildLoop(name string, bones []*keyframe.BoneData, curve *Curve, period int) *MotionPlayData {
	p := &MotionPlayData{BoneName: name, index: -1}
	if len(bones) == 1 {
		p.hold = New(bones[0], bones[0], curve)
	}
	if len(bones) > 1 {
		p.Motions = make([]*MotionData, 0, len(bones))
	}
	for i := 0; i+1 < len(bones); i++ {
		if bones[i].FrameNo() >= bones[i+1].FrameNo() {
			continue
		}
		p.Motions = append(p.Motions, New(bones[i], bones[i+1], curve))
	}
	if period > 0 && len(p.Motions) > 0 {
		first, last := bones[0], bones[len(bones)-1]
		if ed := first.FrameNo() + period; ed > last.FrameNo() {
			wrap := New(last, first, curve)
			wrap.StFrame = last.FrameNo()
			wrap.EdFrame = ed
			p.Motions = append(p.Motions, wrap)
			p.period = period
		}
	}
	return p
}

// Period returns the loop length the play data wraps at, 0 when it does
// not wrap.
func (p *MotionPlayData) Period() int { return p.period }

// local maps frame into the span covered by the segments. Frames before the
// first key of a looping bone belong to the wrap segment.
func (p *MotionPlayData) local(frame float64) float64 {
	if p.period > 0 && len(p.Motions) > 0 && frame < float64(p.Motions[0].StFrame)-FrameTolerance {
		return frame + float64(p.period)
	}
	return frame
}

// At returns the segment and normalized time for frame without moving the
// cursor.
func (p *MotionPlayData) At(frame float64) (*MotionData, float64) {
	if len(p.Motions) == 0 {
		return p.hold, 0
	}
	frame = p.local(frame)
	m := p.Motions[p.Find(frame)]
	return m, m.Lerp(frame)
}

// Reset moves the cursor before the first segment.
func (p *MotionPlayData) Reset() { p.index = -1 }

// Index returns the cursor position, -1 before the first Update.
func (p *MotionPlayData) Index() int { return p.index }

// Current returns the segment under the cursor.
func (p *MotionPlayData) Current() *MotionData {
	if p.hold != nil && p.index == 0 {
		return p.hold
	}
	if p.index < 0 || p.index >= len(p.Motions) {
		return nil
	}
	return p.Motions[p.index]
}

// Find returns the index of the segment covering frame. Frames before the
// first segment map to 0 and frames after the last map to the last.
func (p *MotionPlayData) Find(frame float64) int {
	n := len(p.Motions)
	if n == 0 {
		return -1
	}
	i := sort.Search(n, func(i int) bool {
		return frame < float64(p.Motions[i].StFrame)-FrameTolerance
	}) - 1
	if i < 0 {
		i = 0
	}
	return i
}

// Update advances the cursor to the segment covering frame and returns it
// with its normalized time. indexUpdated is true only when the cursor
// moved to a different segment.
func (p *MotionPlayData) Update(frame float64) (m *MotionData, t float64, indexUpdated bool) {
	n := len(p.Motions)
	if n == 0 {
		if p.hold == nil {
			return nil, 0, false
		}
		indexUpdated = p.index != 0
		p.index = 0
		return p.hold, 0, indexUpdated
	}

	frame = p.local(frame)
	idx := p.index
	if idx < 0 || idx >= n {
		idx = p.Find(frame)
	} else {
		steps := 0
		for idx+1 < n && frame >= float64(p.Motions[idx+1].StFrame)-FrameTolerance {
			idx++
			if steps++; steps > seekWindow {
				idx = p.Find(frame)
				break
			}
		}
		for idx > 0 && frame < float64(p.Motions[idx].StFrame)-FrameTolerance {
			idx--
			if steps++; steps > seekWindow {
				idx = p.Find(frame)
				break
			}
		}
	}

	indexUpdated = idx != p.index
	p.index = idx
	m = p.Motions[idx]
	return m, m.Lerp(frame), indexUpdated
}
