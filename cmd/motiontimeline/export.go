package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/export"
)

var (
	exportOutput  string
	exportPreview bool
	exportFormat  string
	exportStep    int

	exportCmd = &cobra.Command{
		Use:   "export [document]",
		Short: "Export keys, segments, baked values and curve previews",
		Long:  "Writes per-layer CSV tables and, with --preview, one curve image per bone. Layers that fail validation are reported and skipped.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseImageFormat(exportFormat)
			if err != nil {
				reportError(err)
				return err
			}
			p, _, err := loadProject(args, nil)
			if err != nil {
				reportError(err)
				return err
			}

			out := cfg.OutputDir
			if exportOutput != "" {
				out = exportOutput
			}
			e := &export.Exporter{
				OutputDir: out,
				Workers:   cfg.Workers,
				Preview:   exportPreview,
				Format:    format,
				Width:     cfg.PreviewWidth,
				Height:    cfg.PreviewHeight,
				BakeStep:  exportStep,
			}
			fmt.Printf("[*] Exporting %d layers to %s (%d workers)\n", len(p.Layers()), out, cfg.Workers)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			stop := stats.Mark("Export")
			results, err := e.Run(ctx, p)
			stop()
			if err != nil {
				reportError(err)
				return err
			}

			files, failed := 0, 0
			for _, r := range results {
				if r.Err != nil {
					reportError(r.Err)
					failed++
					continue
				}
				files += len(r.Files)
			}
			finish("export", files)
			if failed > 0 {
				color.Yellow("[!] %d of %d layers not exported", failed, len(results))
			}
			color.Green("[+++] Wrote %d files to %s", files, out)
			return nil
		},
	}
)

func init() {
	f := exportCmd.Flags()
	f.StringVarP(&exportOutput, "output", "o", "", "Output directory (default from config)")
	f.BoolVar(&exportPreview, "preview", false, "Render one curve image per bone")
	f.StringVar(&exportFormat, "format", "png", "Preview format: png or webp")
	f.IntVar(&exportStep, "bake-step", 1, "Frame step of the baked table")
}
