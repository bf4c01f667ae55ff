package layer

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/keyframe"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/motion"
)

// Frames returns the keyframes in ascending frame order. The slice is a
// copy; the frames are not.
func (l *Layer) Frames() []*keyframe.FrameData {
	return append([]*keyframe.FrameData(nil), l.frames...)
}

func (l *Layer) FrameCount() int { return len(l.frames) }

// FirstFrame returns the earliest keyframe, nil when empty.
func (l *Layer) FirstFrame() *keyframe.FrameData {
	if len(l.frames) == 0 {
		return nil
	}
	return l.frames[0]
}

func (l *Layer) frameIndex(frameNo int) (int, bool) {
	i := sort.Search(len(l.frames), func(i int) bool { return l.frames[i].FrameNo >= frameNo })
	return i, i < len(l.frames) && l.frames[i].FrameNo == frameNo
}

// GetFrame returns the keyframe at frameNo, nil when there is none.
func (l *Layer) GetFrame(frameNo int) *keyframe.FrameData {
	if i, ok := l.frameIndex(frameNo); ok {
		return l.frames[i]
	}
	return nil
}

func (l *Layer) insertFrame(f *keyframe.FrameData) {
	i, _ := l.frameIndex(f.FrameNo)
	l.frames = append(l.frames, nil)
	copy(l.frames[i+1:], l.frames[i:])
	l.frames[i] = f
}

// CreateFrame inserts an empty keyframe at frameNo.
func (l *Layer) CreateFrame(frameNo int) (*keyframe.FrameData, error) {
	if frameNo < 0 {
		return nil, fmt.Errorf("%w: frame %d", ErrInvalidRange, frameNo)
	}
	if _, ok := l.frameIndex(frameNo); ok {
		return nil, fmt.Errorf("%w: %d", ErrFrameExists, frameNo)
	}
	f := keyframe.NewFrame(frameNo)
	l.insertFrame(f)
	return f, nil
}

// GetOrCreateFrame returns the keyframe at frameNo, inserting it if needed.
func (l *Layer) GetOrCreateFrame(frameNo int) (*keyframe.FrameData, error) {
	if f := l.GetFrame(frameNo); f != nil {
		return f, nil
	}
	return l.CreateFrame(frameNo)
}

// GetBone returns the key of bone name at frameNo.
func (l *Layer) GetBone(frameNo int, name string) *keyframe.BoneData {
	if f := l.GetFrame(frameNo); f != nil {
		return f.Bone(name)
	}
	return nil
}

// SetBone stores bone at frameNo, replacing any key of the same name.
func (l *Layer) SetBone(frameNo int, bone *keyframe.BoneData) error {
	return l.SetBones(frameNo, []*keyframe.BoneData{bone})
}

func (l *Layer) SetBones(frameNo int, bones []*keyframe.BoneData) error {
	f, err := l.GetOrCreateFrame(frameNo)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(bones))
	for _, b := range bones {
		if b == nil {
			continue
		}
		f.SetBone(b)
		names = append(names, b.Name)
	}
	l.rebuild(names...)
	return nil
}

// UpdateBone merges bone into the key at frameNo, or inserts it.
func (l *Layer) UpdateBone(frameNo int, bone *keyframe.BoneData) error {
	return l.UpdateBones(frameNo, []*keyframe.BoneData{bone})
}

// UpdateBones merges every bone into frameNo. Bones whose kind differs
// from the stored key are skipped and reported; the rest are applied.
func (l *Layer) UpdateBones(frameNo int, bones []*keyframe.BoneData) error {
	f, err := l.GetOrCreateFrame(frameNo)
	if err != nil {
		return err
	}
	var errs []error
	names := make([]string, 0, len(bones))
	for _, b := range bones {
		if b == nil {
			continue
		}
		if _, err := f.UpdateBone(b); err != nil {
			l.logf("update frame %d: %v", frameNo, err)
			errs = append(errs, err)
			continue
		}
		names = append(names, b.Name)
	}
	l.rebuild(names...)
	return errors.Join(errs...)
}

// RemoveBone drops the key of bone name at frameNo.
func (l *Layer) RemoveBone(frameNo int, name string) bool {
	return l.RemoveBones(frameNo, []string{name}) > 0
}

// RemoveBones drops the keys of names at frameNo and returns how many
// existed. The frame itself stays until CleanFrames.
func (l *Layer) RemoveBones(frameNo int, names []string) int {
	f := l.GetFrame(frameNo)
	if f == nil {
		return 0
	}
	n := 0
	for _, name := range names {
		if f.RemoveBone(name) {
			n++
		}
	}
	if n > 0 {
		l.rebuild(names...)
	}
	return n
}

// RemoveAllBones drops every key of names from the whole timeline.
func (l *Layer) RemoveAllBones(names []string) int {
	n := 0
	for _, f := range l.frames {
		for _, name := range names {
			if f.RemoveBone(name) {
				n++
			}
		}
	}
	if n > 0 {
		l.rebuild(names...)
	}
	return n
}

// GetExistBoneNames lists, in name order, every bone with at least one key.
func (l *Layer) GetExistBoneNames() []string {
	return append([]string(nil), l.boneNames...)
}

// BoneKeys returns the keys of bone name in frame order.
func (l *Layer) BoneKeys(name string) []*keyframe.BoneData {
	return append([]*keyframe.BoneData(nil), l.rows[name]...)
}

// PlayData returns the segment list of bone name, nil when it has no key.
func (l *Layer) PlayData(name string) *motion.MotionPlayData {
	return l.playData[name]
}

// rebuild refreshes the derived rows, tangents and play data of names, or
// of every bone when names is empty. Each mutating entry point calls it
// exactly once before returning.
func (l *Layer) rebuild(names ...string) {
	touched := make(map[string]struct{}, len(names))
	if len(names) == 0 {
		for name := range l.rows {
			touched[name] = struct{}{}
		}
		for _, f := range l.frames {
			for _, name := range f.BoneNames() {
				touched[name] = struct{}{}
			}
		}
	} else {
		for _, name := range names {
			touched[name] = struct{}{}
		}
	}

	for name := range touched {
		var row []*keyframe.BoneData
		for _, f := range l.frames {
			if b := f.Bone(name); b != nil {
				row = append(row, b)
			}
		}
		if len(row) == 0 {
			delete(l.rows, name)
			delete(l.playData, name)
			continue
		}
		l.rows[name] = row
	}

	l.boneNames = l.boneNames[:0]
	for name := range l.rows {
		l.boneNames = append(l.boneNames, name)
	}
	sort.Strings(l.boneNames)

	l.maxExistFrameNo = 0
	for _, row := range l.rows {
		if no := row[len(row)-1].FrameNo(); no > l.maxExistFrameNo {
			l.maxExistFrameNo = no
		}
	}

	// tangents at the ends of a row and the wrap segment depend on the loop
	// period, which follows the last key of the whole layer
	if len(names) > 0 && l.opts.Loop {
		touched = make(map[string]struct{}, len(l.rows))
		for name := range l.rows {
			touched[name] = struct{}{}
		}
	}
	if l.opts.UseTangent {
		for name := range touched {
			l.updateTangents(name, false)
		}
	}

	for name := range touched {
		if _, ok := l.rows[name]; ok {
			l.buildPlayData(name)
		}
	}
}

func (l *Layer) buildPlayData(name string) {
	period := 0
	if l.opts.Loop {
		period = l.loopPeriod()
	}
	l.playData[name] = motion.BuildLoop(name, l.rows[name], l.curve, period)
}

func (l *Layer) resetCursors() {
	for _, p := range l.playData {
		p.Reset()
	}
}
