package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	cleanOutput string
	cleanCmd    = &cobra.Command{
		Use:   "clean [document]",
		Short: "Remove redundant keys",
		Long:  "Drops every key the surrounding keys already reproduce within the configured tolerance and writes the document back.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, path, err := loadProject(args, nil)
			if err != nil {
				reportError(err)
				return err
			}

			stop := stats.Mark("Clean")
			removed := p.Clean()
			stop()
			fmt.Printf("[*] Removed %d keys\n", removed)

			out := cleanOutput
			if out == "" {
				out = path
			}
			if err := p.Save(out); err != nil {
				reportError(err)
				return err
			}
			finish("clean", removed)
			color.Green("[+++] Saved %s", out)
			return nil
		},
	}
)

func init() {
	cleanCmd.Flags().StringVarP(&cleanOutput, "output", "o", "", "Write the cleaned document here instead of overwriting the input")
}
