package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/easing"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/layer"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/timeline"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/watch"
)

var (
	playWatch    bool
	playRealtime bool
	playPrint    int
	playSpeed    float64
	playSeek     float64
	playFrames   int

	playCmd = &cobra.Command{
		Use:   "play [document]",
		Short: "Play a document against an in-memory scene",
		Long: strings.Join([]string{
			"Plays every layer of the document with a fixed frame clock and prints the scene values.",
			"Without --loop playback stops at the end of the longest layer.",
			"With --watch the document and the configured easing scripts are reloaded on change and playback keeps going until interrupted.",
		}, "\n"),
		Args: cobra.MaximumNArgs(1),
		RunE: runPlay,
	}
)

func init() {
	f := playCmd.Flags()
	f.BoolVar(&playWatch, "watch", false, "Reload the document and easing scripts when they change")
	f.BoolVar(&playRealtime, "realtime", false, "Advance the clock in real time instead of as fast as possible")
	f.IntVar(&playPrint, "print-every", 0, "Print scene values every N frames (0: only at the end)")
	f.Float64Var(&playSpeed, "speed", 0, "Playback speed multiplier (default from config)")
	f.Float64Var(&playSeek, "seek", 0, "Frame to start from")
	f.IntVar(&playFrames, "frames", 0, "Stop after this many frames (default: one pass when looping)")
}

func runPlay(cmd *cobra.Command, args []string) error {
	p, path, err := loadProject(args, timeline.SceneBinding)
	if err != nil {
		reportError(err)
		return err
	}
	if err := p.Validate(); err != nil {
		reportError(err)
		return err
	}

	speed := cfg.Speed
	if playSpeed != 0 {
		speed = playSpeed
	}
	p.SetSpeed(speed)
	p.Seek(playSeek)
	p.Play()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var w *watch.Watcher
	if playWatch {
		w, err = watch.New(append([]string{path}, cfg.EasingScripts...)...)
		if err != nil {
			reportError(err)
			return err
		}
		defer w.Close()
		fmt.Printf("[*] Watching %s\n", path)
	}

	frameDur := time.Duration(float64(time.Second) / cfg.FrameRate)
	var ticker *time.Ticker
	if playRealtime || playWatch {
		ticker = time.NewTicker(frameDur)
		defer ticker.Stop()
	}

	limit := playFrames
	if limit == 0 && looping(p) && !playWatch {
		limit = p.Length()
	}

	var events <-chan watch.Event
	var errs <-chan error
	if w != nil {
		events, errs = w.Events, w.Errors
	}

	stop := stats.Mark("Play")
	frames, skipped := 0, 0
	for {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return finishPlay(p, stop, frames, skipped)
			case ev, ok := <-events:
				if !ok {
					events = nil
				} else {
					reload(p, ev)
				}
				continue
			case err, ok := <-errs:
				if !ok {
					errs = nil
				} else {
					color.Yellow("[!] Watcher: %v", err)
				}
				continue
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return finishPlay(p, stop, frames, skipped)
		}

		for _, r := range p.Tick(frameDur) {
			skipped += reportTick(r)
		}
		frames++
		if playPrint > 0 && frames%playPrint == 0 {
			printValues(p)
		}
		if limit > 0 && frames >= limit {
			return finishPlay(p, stop, frames, skipped)
		}
		if !p.IsPlaying() && !playWatch {
			return finishPlay(p, stop, frames, skipped)
		}
	}
}

// reload applies one watcher event. A document that fails to load leaves
// the running layers in place.
func reload(p *timeline.Project, ev watch.Event) {
	switch ev.Kind {
	case watch.Script:
		if _, err := easing.Default.LoadScriptFile(ev.Path); err != nil {
			color.Yellow("[!] Easing script not reloaded: %v", err)
			return
		}
		fmt.Printf("[*] Reloaded easing script %s\n", ev.Path)
	case watch.Document:
		doc, err := timeline.ReadDocument(ev.Path)
		if err == nil {
			err = p.Reload(doc)
		}
		if err != nil {
			color.Yellow("[!] Document not reloaded: %v", err)
			return
		}
		p.SetSpeed(cfg.Speed)
		if playSpeed != 0 {
			p.SetSpeed(playSpeed)
		}
		fmt.Printf("[*] Reloaded %s (%d layers)\n", ev.Path, len(p.Layers()))
	}
}

func looping(p *timeline.Project) bool {
	for _, l := range p.Layers() {
		if l.Loop() {
			return true
		}
	}
	return false
}

func reportTick(r *layer.TickReport) int {
	if r.Skipped() == 0 {
		return 0
	}
	color.Yellow("[!] %v", r.Err())
	return r.Skipped()
}

func printValues(p *timeline.Project) {
	for _, l := range p.Layers() {
		values := timeline.Values(l)
		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		sort.Strings(names)

		var b strings.Builder
		fmt.Fprintf(&b, "[>] %s @ %.2f:", l.Name(), l.PlayingFrame())
		for _, name := range names {
			fmt.Fprintf(&b, " %s=%v", name, formatChannels(values[name].Channels()))
		}
		fmt.Println(b.String())
	}
}

func formatChannels(ch []float64) string {
	if len(ch) == 1 {
		return fmt.Sprintf("%.4g", ch[0])
	}
	parts := make([]string, len(ch))
	for i, v := range ch {
		parts[i] = fmt.Sprintf("%.4g", v)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func finishPlay(p *timeline.Project, stop func(), frames, skipped int) error {
	stop()
	printValues(p)
	finish("play", frames)
	if skipped > 0 {
		color.Yellow("[!] %d bone updates skipped", skipped)
	}
	color.Green("[+++] Played %d frames", frames)
	return nil
}
