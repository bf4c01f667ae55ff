package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/layer"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/timeline"
)

var (
	editLayer  string
	editStart  int
	editEnd    int
	editBones  []string
	editOutput string

	editCmd = &cobra.Command{
		Use:   "edit",
		Short: "Apply a range or key edit to a document",
	}
	insertCmd = &cobra.Command{
		Use:   "insert [document]",
		Short: "Open a gap of end-start frames at start, shifting later keys right",
		Args:  cobra.MaximumNArgs(1),
		RunE: rangeEdit("insert", func(l *layer.Layer) error {
			return l.InsertFrames(editStart, editEnd)
		}),
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [document]",
		Short: "Delete frames in [start, end), shifting later keys left",
		Args:  cobra.MaximumNArgs(1),
		RunE: rangeEdit("delete", func(l *layer.Layer) error {
			return l.DeleteFrames(editStart, editEnd)
		}),
	}
	duplicateCmd = &cobra.Command{
		Use:   "duplicate [document]",
		Short: "Copy the keys in [start, end) right after end",
		Args:  cobra.MaximumNArgs(1),
		RunE: rangeEdit("duplicate", func(l *layer.Layer) error {
			return l.DuplicateFrames(editStart, editEnd)
		}),
	}
	initTangentCmd = &cobra.Command{
		Use:   "init-tangent [document]",
		Short: "Reset every tangent to the default preset",
		Args:  cobra.MaximumNArgs(1),
		RunE: rangeEdit("init-tangent", func(l *layer.Layer) error {
			l.InitTangent()
			return nil
		}),
	}
	addFirstCmd = &cobra.Command{
		Use:   "add-first [document]",
		Short: "Make sure frame 0 holds a key for each bone",
		Args:  cobra.MaximumNArgs(1),
		RunE: rangeEdit("add-first", func(l *layer.Layer) error {
			return l.AddFirstBones(editBones)
		}),
	}
	removeBonesCmd = &cobra.Command{
		Use:   "remove-bones [document]",
		Short: "Drop bones from every frame",
		Args:  cobra.MaximumNArgs(1),
		RunE: rangeEdit("remove-bones", func(l *layer.Layer) error {
			n := l.RemoveAllBones(editBones)
			fmt.Printf("[*] %s: removed %d keys\n", l.Name(), n)
			return nil
		}),
	}
)

// rangeEdit loads the document with scene bindings, applies edit to the
// selected layers and saves the result.
func rangeEdit(name string, edit func(l *layer.Layer) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		p, path, err := loadProject(args, timeline.SceneBinding)
		if err != nil {
			reportError(err)
			return err
		}

		edited := 0
		stop := stats.Mark("Edit")
		for _, l := range p.Layers() {
			if editLayer != "" && l.Name() != editLayer {
				continue
			}
			if err := edit(l); err != nil {
				stop()
				err = fmt.Errorf("%s %s: %w", name, l.Name(), err)
				reportError(err)
				return err
			}
			edited++
		}
		stop()
		if edited == 0 {
			err := fmt.Errorf("no layer named %s", editLayer)
			reportError(err)
			return err
		}

		out := editOutput
		if out == "" {
			out = path
		}
		if err := p.Save(out); err != nil {
			reportError(err)
			return err
		}
		finish(name, edited)
		color.Green("[+++] %s applied to %d layers, saved %s", name, edited, out)
		return nil
	}
}

func init() {
	ef := editCmd.PersistentFlags()
	ef.StringVarP(&editLayer, "layer", "l", "", "Only edit this layer (default: all)")
	ef.StringVarP(&editOutput, "output", "o", "", "Write the result here instead of overwriting the input")

	for _, c := range []*cobra.Command{insertCmd, deleteCmd, duplicateCmd} {
		c.Flags().IntVar(&editStart, "start", 0, "First frame of the range")
		c.Flags().IntVar(&editEnd, "end", 0, "End of the range (exclusive)")
		c.MarkFlagRequired("start")
		c.MarkFlagRequired("end")
	}
	for _, c := range []*cobra.Command{addFirstCmd, removeBonesCmd} {
		c.Flags().StringSliceVarP(&editBones, "bones", "b", nil, "Comma-separated bone names")
		c.MarkFlagRequired("bones")
	}

	editCmd.AddCommand(insertCmd, deleteCmd, duplicateCmd, initTangentCmd, addFirstCmd, removeBonesCmd)
}
