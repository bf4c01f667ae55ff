package layer

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/motion"
)

// TickReport summarizes one LateUpdate.
type TickReport struct {
	Frame   float64
	Applied int
	Errors  []error
}

// Skipped is the number of bones whose apply failed.
func (r *TickReport) Skipped() int { return len(r.Errors) }

// Err joins the apply errors of the tick, nil when every bone applied.
func (r *TickReport) Err() error { return errors.Join(r.Errors...) }

func (l *Layer) IsPlaying() bool { return l.playing }

// Play starts advancing the playing time on Update.
func (l *Layer) Play() {
	if !l.playing && !l.opts.Loop && l.PlayingFrame() >= float64(l.Length()) {
		l.playingTime = 0
	}
	l.playing = true
}

func (l *Layer) Stop() { l.playing = false }

// Speed is the playback rate multiplier.
func (l *Layer) Speed() float64 { return l.speed }

func (l *Layer) SetSpeed(s float64) { l.speed = s }

// PlayingTime is the playback position in seconds.
func (l *Layer) PlayingTime() float64 { return l.playingTime }

// PlayingFrame is the playback position in fractional frames.
func (l *Layer) PlayingFrame() float64 { return l.playingTime / l.FrameDuration() }

// PlayingFrameNo is the integer frame under the playback position.
func (l *Layer) PlayingFrameNo() int {
	return int(math.Floor(l.PlayingFrame() + motion.FrameTolerance))
}

// Seek moves the playback position to frame. Negative frames clamp to 0.
func (l *Layer) Seek(frame float64) {
	if frame < 0 {
		frame = 0
	}
	l.playingTime = frame * l.FrameDuration()
}

// Update advances the playing time by dt scaled by the playback speed.
// Looping layers wrap at Length; others stop there.
func (l *Layer) Update(dt time.Duration) {
	if !l.playing {
		return
	}
	l.playingTime += dt.Seconds() * l.speed

	end := float64(l.Length()) * l.FrameDuration()
	if end <= 0 {
		l.playingTime = 0
		return
	}
	switch {
	case l.opts.Loop:
		l.playingTime = math.Mod(l.playingTime, end)
		if l.playingTime < 0 {
			l.playingTime += end
		}
	case l.playingTime >= end:
		l.playingTime = end
		l.playing = false
	case l.playingTime < 0:
		l.playingTime = 0
		l.playing = false
	}
}

// LateUpdate applies every bone's segment at the playing time through the
// binding. A bone whose apply fails or panics is logged and skipped; the
// other bones still apply.
func (l *Layer) LateUpdate() *TickReport {
	frame := l.PlayingFrame()
	report := &TickReport{Frame: frame}
	if l.binding == nil {
		return report
	}

	for _, name := range l.boneNames {
		pd := l.playData[name]
		if pd == nil {
			continue
		}
		m, t, indexUpdated := pd.Update(frame)
		if m == nil {
			continue
		}
		if err := l.apply(m, t, indexUpdated); err != nil {
			aerr := &ApplyError{Layer: l.opts.Name, Bone: name, Frame: frame, Err: err}
			l.logf("apply %s at frame %.2f: %v", name, frame, err)
			report.Errors = append(report.Errors, aerr)
			continue
		}
		report.Applied++
	}
	return report
}

// Tick runs Update then LateUpdate.
func (l *Layer) Tick(dt time.Duration) *TickReport {
	l.Update(dt)
	return l.LateUpdate()
}

func (l *Layer) apply(m *motion.MotionData, t float64, indexUpdated bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return l.binding.ApplyMotion(m, t, indexUpdated)
}
