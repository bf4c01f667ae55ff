package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [document]",
	Short: "Check every layer of a document",
	Long:  "Loads the document and runs the structural checks every layer must pass before it can be played or exported.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, path, err := loadProject(args, nil)
		if err != nil {
			reportError(err)
			return err
		}

		failed := 0
		for _, l := range p.Layers() {
			if err := l.IsValidData(); err != nil {
				reportError(err)
				failed++
				continue
			}
			fmt.Printf("[*] %s: %d frames, %d bones, length %d\n",
				l.Name(), l.FrameCount(), len(l.GetExistBoneNames()), l.Length())
		}
		finish("validate", len(p.Layers()))

		if failed > 0 {
			return errors.New("validation failed")
		}
		color.Green("[+++] %s is valid", path)
		return nil
	},
}
