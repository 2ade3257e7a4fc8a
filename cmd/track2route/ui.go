package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6"))

	subtitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BE9FD"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	labelStyle = lipgloss.NewStyle().
			Bold(true)

	statStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))
)

var (
	// out receives the human readable summaries
	out io.Writer = os.Stdout
	// plain disables styling when stdout is not a terminal
	plain bool
)

func init() {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		plain = true
	}
}

func render(style lipgloss.Style, s string) string {
	if plain {
		return s
	}
	return style.Render(s)
}

func printTitle(title string) {
	fmt.Fprintf(out, "\n%s\n", render(titleStyle, title))
	fmt.Fprintln(out, strings.Repeat("=", 60))
}

func printSubtitle(subtitle string) {
	fmt.Fprintf(out, "\n%s\n", render(subtitleStyle, subtitle))
}

func printSuccess(message string) {
	fmt.Fprintln(out, render(successStyle, "✓ "+message))
}

func printInfo(message string) {
	fmt.Fprintln(out, render(infoStyle, "• "+message))
}

func printWarn(message string) {
	fmt.Fprintln(out, render(warnStyle, "! "+message))
}

func printStat(label string, value interface{}) {
	fmt.Fprintf(out, "  %s %s\n", render(labelStyle, label+":"), render(statStyle, fmt.Sprint(value)))
}
