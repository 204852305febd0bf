// Package printer provides colored terminal output for the presencectl CLI.
package printer

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/burrowhq/presence/pkg/directory"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Success prints a success message in green with a checkmark prefix.
func Success(format string, a ...any) {
	green.Printf("✓ %s", fmt.Sprintf(format, a...))
}

// Info prints an informational message in the default color.
func Info(format string, a ...any) {
	fmt.Printf(format, a...)
}

// Step prints a step message with emphasis (used in multi-step operations).
func Step(format string, a ...any) {
	cyan.Printf("→ %s", fmt.Sprintf(format, a...))
}

// Error prints a red error title to stderr and returns a simple error for
// Cobra (not re-printed thanks to SilenceErrors).
func Error(format string, a ...any) error {
	msg := fmt.Sprintf(format, a...)
	red.Fprintf(os.Stderr, "%s\n", msg)
	return fmt.Errorf("%s", msg)
}

// Record prints one status record as a directory line, with the status
// colored by availability.
func Record(r *directory.StatusRecord) {
	statusColor(r.Status).Printf("%-10s", string(r.Status))
	fmt.Printf("  %-16s [%s]", r.Username, r.Icon)
	if r.Message != "" {
		fmt.Printf("  %s", r.Message)
	}
	if r.Location != nil {
		yellow.Printf("  (%.4f, %.4f)", r.Location.Longitude, r.Location.Latitude)
	}
	fmt.Println()
}

func statusColor(s directory.Status) *color.Color {
	switch s {
	case directory.StatusAvailable:
		return green
	case directory.StatusBusy:
		return red
	default:
		return yellow
	}
}
