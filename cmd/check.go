package main

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
)

var requiredTools = []string{"ffmpeg", "ffprobe", "gifsicle"}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the required external tools are installed",
	RunE: func(cmd *cobra.Command, args []string) error {
		var missing error
		for _, tool := range requiredTools {
			if _, err := exec.LookPath(tool); err != nil {
				fmt.Printf("%-9s MISSING\n", tool)
				if missing == nil {
					missing = &toolError{tool: tool}
				}
				continue
			}
			fmt.Printf("%-9s %s\n", tool, toolVersion(tool))
		}
		return missing
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// checkTools verifies every required tool is on PATH before any work
// starts. Returns a toolError for the first missing tool.
func checkTools() error {
	for _, tool := range requiredTools {
		if _, err := exec.LookPath(tool); err != nil {
			return &toolError{tool: tool}
		}
	}
	return nil
}

// toolVersion returns the first line of the tool's version output.
// ffmpeg and ffprobe use a single-dash flag, gifsicle a double-dash one.
func toolVersion(tool string) string {
	flag := "-version"
	if tool == "gifsicle" {
		flag = "--version"
	}
	out, err := exec.Command(tool, flag).Output()
	if err != nil {
		return "found (version unknown)"
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return line
}
