// Package ui holds small terminal-formatting helpers shared by the CLI
// commands. It is reconstructed from call-site usage: the teacher repo
// imports an equivalent "internal/ui" package throughout its run and
// login commands, but the package itself was not present in the
// retrieved pack.
package ui

import "github.com/fatih/color"

// ERROR_PREFIX and WARNING_PREFIX are prepended to CLI error/warning lines.
var (
	ERROR_PREFIX   = color.RedString("✗")
	WARNING_PREFIX = color.YellowString("!")
)

// Dim renders a string in a muted gray, used for secondary status lines.
func Dim(s string) string {
	return color.New(color.FgHiBlack).Sprint(s)
}

// Bold renders a string in bold, used for emphasis inside a status line.
func Bold(s string) string {
	return color.New(color.Bold).Sprint(s)
}
