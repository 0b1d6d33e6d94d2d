package render

import (
	"io"
	"strings"

	"github.com/capybara-io/capydeploy/internal/domain"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// FormatWarning formats a warning message with the warning icon
func FormatWarning(message string) string {
	return color.New(color.FgYellow).Sprintf("⚠️  %s", message)
}

// FormatError formats an error message with the error icon
func FormatError(message string) string {
	// Capitalize first letter
	if len(message) > 0 {
		message = strings.ToUpper(message[:1]) + message[1:]
	}

	return color.New(color.FgRed).Sprintf("❌ %s", message)
}

// ErrorHint suggests where to look for errors raised before anything was
// deployed. It returns "" for every other error.
func ErrorHint(err error) string {
	var hint string
	switch {
	case domain.IsConfigError(err):
		hint = "Check the networks section of capydeploy.yaml; `capydeploy networks` shows what loads"
	case domain.IsPlanError(err):
		hint = "Nothing was deployed. Fix the manifest and preview the order with `capydeploy plan`"
	default:
		return ""
	}
	return color.New(color.FgHiBlack).Sprintf("💡 %s", hint)
}

// FormatSuccess formats a success message with the success icon
func FormatSuccess(message string) string {
	return color.New(color.FgGreen).Sprintf("✅ %s", message)
}

// newTable returns a borderless table writing to out
func newTable(out io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.Style().Options.SeparateRows = false
	t.Style().Box = table.BoxStyle{
		PaddingLeft:      "  ",
		PaddingRight:     " ",
		MiddleHorizontal: "─",
	}
	t.Style().Format.Header = text.FormatDefault
	if len(header) > 0 {
		t.AppendHeader(table.Row(header))
	}
	return t
}

// shortID trims run ids for listings
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
