package output

// SummaryHeader prints a summary section header.
func (w *Writer) SummaryHeader(title string) {
	w.Println("")
	if w.color {
		w.Println("%s=== %s ===%s", bold+cyan, title, reset)
	} else {
		w.Println("=== %s ===", title)
	}
	w.Println("")
}

// SummaryItem prints a labeled summary item with value.
func (w *Writer) SummaryItem(label, value string) {
	if w.color {
		w.Println("  %s%s:%s %s", dim, label, reset, value)
	} else {
		w.Println("  %s: %s", label, value)
	}
}

// SummaryPassed prints a passed count.
func (w *Writer) SummaryPassed(label, value string) {
	w.summaryColored(green, label, value)
}

// SummaryFailed prints a failed count.
func (w *Writer) SummaryFailed(label, value string) {
	w.summaryColored(red, label, value)
}

// SummaryCrashed prints a crashed count.
func (w *Writer) SummaryCrashed(label, value string) {
	w.summaryColored(yellow, label, value)
}

func (w *Writer) summaryColored(c, label, value string) {
	if w.color {
		w.Println("  %s%s:%s %s%s%s", dim, label, reset, c, value, reset)
	} else {
		w.Println("  %s: %s", label, value)
	}
}

// FinalSuccess prints a final success message.
func (w *Writer) FinalSuccess(format string, args ...interface{}) {
	w.Println("")
	w.paint(w.out, green, format, args...)
}

// FinalFailure prints a final failure message.
func (w *Writer) FinalFailure(format string, args ...interface{}) {
	w.Println("")
	w.paint(w.out, red, format, args...)
}

// ValidationSuccess prints a validation success message.
func (w *Writer) ValidationSuccess(format string, args ...interface{}) {
	if w.color {
		w.Print("%s✓%s ", green, reset)
	}
	w.Println(format, args...)
}
