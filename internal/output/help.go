package output

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Semantic color roles for help output.
const (
	colorTitle       = bold + cyan
	colorSection     = bold + yellow
	colorCommand     = bold + cyan
	colorPlaceholder = green
	colorFlag        = yellow
	colorDescription = dim
	colorExample     = cyan
	colorEnvVar      = yellow
)

// HelpTitle formats the main help title line.
func (w *Writer) HelpTitle(title string) {
	if w.color {
		w.Println("%s%s%s", colorTitle, title, reset)
	} else {
		w.Println("%s", title)
	}
}

// HelpSection formats a section header. The title is title-cased ("global flags:" -> "Global Flags:").
func (w *Writer) HelpSection(title string) {
	title = cases.Title(language.English).String(title)
	w.Println("")
	if w.color {
		w.Println("%s%s%s", colorSection, title, reset)
	} else {
		w.Println("%s", title)
	}
}

// HelpCommand formats a command with its description.
func (w *Writer) HelpCommand(name, description string, width int) {
	w.helpEntry(colorCommand, name, description, width)
}

// HelpFlag formats a flag with its description.
func (w *Writer) HelpFlag(name, description string, width int) {
	w.helpEntry(colorFlag, name, description, width)
}

// HelpEnvVar formats an environment variable.
func (w *Writer) HelpEnvVar(name, description string, width int) {
	if w.color {
		w.Println("  %s%-*s%s  %s%s%s", colorEnvVar, width, name, reset, colorDescription, description, reset)
	} else {
		w.Println("  %-*s  %s", width, name, description)
	}
}

func (w *Writer) helpEntry(c, name, description string, width int) {
	if !w.color {
		w.Println("  %-*s  %s", width, name, description)
		return
	}
	padding := width - len(name)
	if padding < 0 {
		padding = 0
	}
	w.Println("  %s%s%s%s  %s%s%s", c, w.colorPlaceholders(name, c), reset, strings.Repeat(" ", padding), colorDescription, description, reset)
}

// HelpExample formats an example command with description.
func (w *Writer) HelpExample(command, description string) {
	if w.color {
		w.Println("  %s%s%s", colorExample, command, reset)
		if description != "" {
			w.Println("      %s%s%s", colorDescription, description, reset)
		}
		return
	}
	w.Println("  %s", command)
	if description != "" {
		w.Println("      %s", description)
	}
}

// HelpUsage formats usage lines.
func (w *Writer) HelpUsage(usage string) {
	if w.color {
		w.Println("  %s", w.colorPlaceholders(usage, ""))
	} else {
		w.Println("  %s", usage)
	}
}

// colorPlaceholders highlights <placeholder> patterns in text, restoring base afterwards.
func (w *Writer) colorPlaceholders(text, base string) string {
	var result strings.Builder
	i := 0
	for i < len(text) {
		if text[i] == '<' {
			end := strings.Index(text[i:], ">")
			if end != -1 {
				result.WriteString(reset)
				result.WriteString(colorPlaceholder)
				result.WriteString(text[i : i+end+1])
				result.WriteString(reset)
				result.WriteString(base)
				i += end + 1
				continue
			}
		}
		result.WriteByte(text[i])
		i++
	}
	return result.String()
}
