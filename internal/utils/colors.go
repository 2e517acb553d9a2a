package utils

import (
	"os"

	"github.com/mattn/go-isatty"
)

// Terminal color codes using ANSI escape sequences
const (
	ResetColor   = "\033[0m"
	RedColor     = "\033[31m" // errors
	GreenColor   = "\033[32m" // success
	YellowColor  = "\033[33m" // warnings and degraded stages
	BlueColor    = "\033[34m" // stage progress
	MagentaColor = "\033[35m"
	CyanColor    = "\033[36m"
)

// colorEnabled is false when stdout is not a terminal or NO_COLOR is set.
var colorEnabled = detectColor()

func detectColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// SetColorEnabled forces colored output on or off.
func SetColorEnabled(enabled bool) {
	colorEnabled = enabled
}

// ColoredText wraps text with color codes and reset at the end
func ColoredText(text string, color string) string {
	if !colorEnabled {
		return text
	}
	return color + text + ResetColor
}

// Info returns blue-colored text for stage progress messages
func Info(text string) string {
	return ColoredText(text, BlueColor)
}

// Success returns green-colored text for success messages
func Success(text string) string {
	return ColoredText(text, GreenColor)
}

// Warning returns yellow-colored text for warning messages
func Warning(text string) string {
	return ColoredText(text, YellowColor)
}

// Error returns red-colored text for error messages
func Error(text string) string {
	return ColoredText(text, RedColor)
}

// Highlight returns magenta-colored text for emphasized content
func Highlight(text string) string {
	return ColoredText(text, MagentaColor)
}

// Debug returns cyan-colored text for debug info
func Debug(text string) string {
	return ColoredText(text, CyanColor)
}
