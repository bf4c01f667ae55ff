package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/timeline"
)

var convertCmd = &cobra.Command{
	Use:   "convert <input> <output>",
	Short: "Convert a document between YAML and XML",
	Long:  "Reads a document and writes it in the format picked by the output extension (.xml for XML, anything else for YAML).",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := timeline.ReadDocument(args[0])
		if err != nil {
			reportError(err)
			return err
		}
		// Building the layers rejects documents that would not load.
		if _, err := timeline.NewProject(doc, layerOpts, nil); err != nil {
			reportError(err)
			return err
		}
		if err := timeline.WriteDocument(doc, args[1]); err != nil {
			reportError(err)
			return err
		}
		color.Green("[+++] %s -> %s", args[0], args[1])
		return nil
	},
}
