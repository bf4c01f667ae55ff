package main

import (
	"os"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/system"
)

// buildVersion is set with -ldflags "-X main.buildVersion=...".
var buildVersion = "dev"

func main() {
	system.InitResourceLimits()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
