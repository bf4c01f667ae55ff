package layer

import (
	"fmt"
	"sort"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/keyframe"
)

func checkRange(start, end int) error {
	if start < 0 || end <= start {
		return fmt.Errorf("%w: [%d, %d)", ErrInvalidRange, start, end)
	}
	return nil
}

func collectNames(dst map[string]struct{}, f *keyframe.FrameData) {
	for _, name := range f.BoneNames() {
		dst[name] = struct{}{}
	}
}

func nameList(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (l *Layer) rebuildTouched(touched map[string]struct{}) {
	if len(touched) == 0 {
		return
	}
	l.rebuild(nameList(touched)...)
}

// InsertFrames opens a gap of end-start frames at start: every keyframe at
// or after start moves later by that amount.
func (l *Layer) InsertFrames(start, end int) error {
	if err := checkRange(start, end); err != nil {
		return err
	}
	n := end - start
	touched := make(map[string]struct{})
	for _, f := range l.frames {
		if f.FrameNo >= start {
			f.FrameNo += n
			collectNames(touched, f)
		}
	}
	if l.opts.MaxFrameNo > 0 {
		l.opts.MaxFrameNo += n
	}
	l.rebuildTouched(touched)
	return nil
}

// DuplicateFrames copies the keyframes in [start, end) to [end, 2*end-start),
// moving everything at or after end later to make room.
func (l *Layer) DuplicateFrames(start, end int) error {
	if err := checkRange(start, end); err != nil {
		return err
	}
	n := end - start
	touched := make(map[string]struct{})

	var copies []*keyframe.FrameData
	for _, f := range l.frames {
		switch {
		case f.FrameNo >= end:
			f.FrameNo += n
			collectNames(touched, f)
		case f.FrameNo >= start:
			c := f.Clone()
			c.FrameNo += n
			copies = append(copies, c)
			collectNames(touched, f)
		}
	}
	for _, c := range copies {
		l.insertFrame(c)
	}
	if l.opts.MaxFrameNo > 0 {
		l.opts.MaxFrameNo += n
	}
	l.rebuildTouched(touched)
	return nil
}

// DeleteFrames removes the keyframes in [start, end) and moves everything
// at or after end earlier by end-start.
func (l *Layer) DeleteFrames(start, end int) error {
	if err := checkRange(start, end); err != nil {
		return err
	}
	n := end - start
	touched := make(map[string]struct{})

	kept := l.frames[:0]
	for _, f := range l.frames {
		switch {
		case f.FrameNo >= end:
			f.FrameNo -= n
			collectNames(touched, f)
		case f.FrameNo >= start:
			collectNames(touched, f)
			for _, name := range f.BoneNames() {
				f.RemoveBone(name)
			}
			continue
		}
		kept = append(kept, f)
	}
	for i := len(kept); i < len(l.frames); i++ {
		l.frames[i] = nil
	}
	l.frames = kept

	if l.opts.MaxFrameNo > 0 {
		l.opts.MaxFrameNo -= n
		if l.opts.MaxFrameNo < 0 {
			l.opts.MaxFrameNo = 0
		}
	}
	l.rebuildTouched(touched)
	return nil
}
