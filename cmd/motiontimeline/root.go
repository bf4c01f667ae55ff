package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/config"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/easing"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/layer"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/system"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/timeline"
)

const defaultConfigFile = "motiontimeline.yaml"

var (
	configPath string
	flags      config.Flags

	cfg       config.Config
	layerOpts layer.Options
	stats     *system.Stats

	rootCmd = &cobra.Command{
		Use:           "motiontimeline",
		Version:       buildVersion,
		Short:         "Edit, play and export keyframe animation timelines.",
		Long:          "motiontimeline edits keyframe timeline documents (YAML or XML), plays them against an in-memory scene and exports their keys and curves.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Path to the YAML config file (default: ./"+defaultConfigFile+" when present)")
	pf.Float64Var(&flags.FrameRate, "fps", 0, "Frame rate of layers whose document sets none")
	pf.IntVar(&flags.MaxFrameNo, "max-frame", 0, "Timeline length in frames")
	pf.BoolVar(&flags.Loop, "loop", false, "Loop playback and tangents")
	pf.BoolVar(&flags.UseTangent, "use-tangent", false, "Interpolate with per-key tangents instead of easing curves")
	pf.StringVar(&flags.Easing, "easing", "", "Default easing of new keys (e.g. Linear, QuadInOut, or a script name)")
	pf.StringVar(&flags.Tangent, "tangent", "", "Default tangent preset: EaseInOut, EaseIn, EaseOut, Linear, Smooth")
	pf.Float64Var(&flags.Tolerance, "tolerance", 0, "Absolute tolerance for clean and diff capture")
	pf.IntVarP(&flags.Workers, "workers", "w", 0, "Export workers (default: number of CPUs)")
	pf.BoolVar(&flags.ShowStats, "stats", false, "Print a performance report when done")

	rootCmd.AddCommand(validateCmd, cleanCmd, convertCmd, editCmd, playCmd, exportCmd)
}

// setup loads the config file, applies the flags and registers the
// configured easing scripts.
func setup() error {
	var err error
	path := configPath
	if path == "" {
		if _, statErr := os.Stat(defaultConfigFile); statErr == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		if cfg, err = config.Load(path); err != nil {
			return err
		}
		fmt.Printf("[*] Config: %s\n", path)
	} else {
		cfg = config.Default()
	}
	cfg.Resolve(flags)
	cfg.BuildVersion = buildVersion

	if err := cfg.LoadScripts(easing.Default); err != nil {
		return err
	}
	if layerOpts, err = cfg.LayerOptions(log.Default()); err != nil {
		return err
	}
	stats = system.NewStats(buildVersion)
	return nil
}

// documentPath returns the document named on the command line, or the
// newest one in the timelines directory.
func documentPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	latest, err := timeline.FindLatestDocument(timeline.DocumentDir)
	if err != nil {
		return "", fmt.Errorf("%w. Put a timeline document in %s/", err, timeline.DocumentDir)
	}
	fmt.Printf("[*] Selected document: %s\n", latest)
	return latest, nil
}

func loadProject(args []string, factory timeline.BindingFactory) (*timeline.Project, string, error) {
	path, err := documentPath(args)
	if err != nil {
		return nil, "", err
	}
	stop := stats.Mark("Load")
	p, err := timeline.LoadProject(path, layerOpts, factory)
	stop()
	if err != nil {
		return nil, path, err
	}
	return p, path, nil
}

// finish prints the performance report when --stats is set and appends the
// run to benchmark.log.
func finish(label string, items int) {
	if !cfg.ShowStats {
		return
	}
	fmt.Print("\n" + stats.Report(items))
	if err := stats.AppendLog("benchmark.log", label, items); err != nil {
		log.Printf("[!] Could not write benchmark.log: %v", err)
	}
}

func reportError(err error) {
	var serr *layer.StructuralError
	var ioErr *timeline.IOError
	switch {
	case errors.As(err, &serr):
		color.Red("[-] Invalid layer %s: %s", serr.Layer, serr.Reason)
	case errors.As(err, &ioErr):
		color.Red("[-] %s %s: %v", ioErr.Op, ioErr.Path, ioErr.Err)
	default:
		color.Red("[-] %v", err)
	}
}
