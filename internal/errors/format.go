package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// colorEnabled controls whether ANSI colors are used.
var colorEnabled = true

// DisableColors disables ANSI color output.
func DisableColors() {
	colorEnabled = false
}

// EnableColors enables ANSI color output.
func EnableColors() {
	colorEnabled = true
}

// color wraps text in ANSI color codes if colors are enabled.
func color(code, text string) string {
	if !colorEnabled {
		return text
	}
	return code + text + colorReset
}

func red(text string) string    { return color(colorRed, text) }
func yellow(text string) string { return color(colorYellow, text) }
func cyan(text string) string   { return color(colorCyan, text) }
func white(text string) string  { return color(colorWhite, text) }
func gray(text string) string   { return color(colorGray, text) }
func bold(text string) string   { return color(colorBold, text) }

// Format returns a formatted error message for terminal display.
func (e *Error) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	label := "ERROR"
	paint := red
	switch e.Severity {
	case SeverityWarning:
		label, paint = "WARNING", yellow
	case SeverityFatal:
		label = "FATAL"
	}
	if e.Code != "" {
		b.WriteString(paint(bold(label + " ")))
		b.WriteString(white(bold(e.Code + ": ")))
	} else {
		b.WriteString(paint(bold(label + ": ")))
	}
	b.WriteString(white(e.Message))
	b.WriteString("\n\n")

	if e.Atom != "" {
		b.WriteString("  ")
		b.WriteString(gray("atom: "))
		b.WriteString(cyan(e.Atom))
		b.WriteString("\n")
	}
	if len(e.Path) > 0 {
		b.WriteString("  ")
		b.WriteString(gray("path: "))
		b.WriteString(cyan(strings.Join(e.Path, ".")))
		b.WriteString("\n")
	}
	if len(e.Cycle) > 0 {
		b.WriteString("  ")
		b.WriteString(gray("cycle: "))
		b.WriteString(cyan(FormatCycle(e.Cycle)))
		b.WriteString("\n")
	}
	if e.Atom != "" || len(e.Path) > 0 || len(e.Cycle) > 0 {
		b.WriteString("\n")
	}

	if e.Detail != "" {
		for _, line := range wrapText(e.Detail, 70) {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if e.Wrapped != nil {
		b.WriteString("  ")
		b.WriteString(gray("cause: "))
		b.WriteString(e.Wrapped.Error())
		b.WriteString("\n\n")
	}

	if e.Suggestion != "" {
		b.WriteString("  ")
		b.WriteString(cyan("Hint: "))
		b.WriteString(e.Suggestion)
		b.WriteString("\n\n")
	}

	return b.String()
}

// FormatCompact returns a compact single-line error format.
func (e *Error) FormatCompact() string {
	return fmt.Sprintf("[%s] %s", e.Severity, e.Error())
}

// FormatJSON returns the error as a JSON object.
func (e *Error) FormatJSON() string {
	payload := struct {
		Code        string   `json:"code,omitempty"`
		Category    Category `json:"category"`
		Severity    Severity `json:"severity"`
		Recoverable bool     `json:"recoverable"`
		Message     string   `json:"message"`
		Detail      string   `json:"detail,omitempty"`
		Atom        string   `json:"atom,omitempty"`
		Path        []string `json:"path,omitempty"`
		Cycle       []uint64 `json:"cycle,omitempty"`
		Cause       string   `json:"cause,omitempty"`
	}{
		Code:        e.Code,
		Category:    e.Category,
		Severity:    e.Severity,
		Recoverable: e.Recoverable,
		Message:     e.Message,
		Detail:      e.Detail,
		Atom:        e.Atom,
		Path:        e.Path,
		Cycle:       e.Cycle,
	}
	if e.Wrapped != nil {
		payload.Cause = e.Wrapped.Error()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Message)
	}
	return string(data)
}

// wrapText wraps text to the specified width.
func wrapText(text string, width int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= width {
		return []string{text}
	}

	var lines []string
	words := strings.Fields(text)
	var current strings.Builder

	for _, word := range words {
		if current.Len()+len(word)+1 > width {
			if current.Len() > 0 {
				lines = append(lines, current.String())
				current.Reset()
			}
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}

	if current.Len() > 0 {
		lines = append(lines, current.String())
	}

	return lines
}

// PrintError prints a formatted error to w.
func PrintError(w io.Writer, err error) {
	if re, ok := err.(*Error); ok {
		fmt.Fprint(w, re.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", red(bold("ERROR:")), err.Error())
}
