// Package model provides shared data types used across multiple internal packages.
// This package exists to break import cycles between backend, render, and corpus,
// which all need the backend identity and verdict types.
package model

import (
	"fmt"
	"strings"
)

// Backend identifies a renderer whose output is validated, or the Reference
// renderer used as ground truth.
type Backend int

const (
	Reference Backend = iota
	Chrome
	Firefox
	Safari
	Resvg
	Batik
	Inkscape
	Librsvg
	SvgNet
	QtSvg
	Ladybird
)

// BackendsCount is the number of known backends, Reference included.
const BackendsCount = int(Ladybird) + 1

// AllBackends lists every backend in the fixed order, Reference first.
var AllBackends = []Backend{
	Reference, Chrome, Firefox, Safari, Resvg, Batik, Inkscape, Librsvg, SvgNet, QtSvg, Ladybird,
}

// VerdictBackends lists the backends that carry a verdict, in verdict-file column order.
// Load, save, and every table renderer must iterate this slice instead of hardcoding columns.
var VerdictBackends = AllBackends[1:]

var backendNames = [...]string{
	Reference: "Reference",
	Chrome:    "Chrome",
	Firefox:   "Firefox",
	Safari:    "Safari",
	Resvg:     "resvg",
	Batik:     "Batik",
	Inkscape:  "Inkscape",
	Librsvg:   "librsvg",
	SvgNet:    "SVG.NET",
	QtSvg:     "QtSvg",
	Ladybird:  "Ladybird",
}

var backendKeys = [...]string{
	Reference: "reference",
	Chrome:    "chrome",
	Firefox:   "firefox",
	Safari:    "safari",
	Resvg:     "resvg",
	Batik:     "batik",
	Inkscape:  "inkscape",
	Librsvg:   "librsvg",
	SvgNet:    "svgnet",
	QtSvg:     "qtsvg",
	Ladybird:  "ladybird",
}

// Valid reports whether b is a known backend.
func (b Backend) Valid() bool {
	return b >= Reference && b <= Ladybird
}

// String returns the display name (e.g., "SVG.NET").
func (b Backend) String() string {
	if !b.Valid() {
		return fmt.Sprintf("Backend(%d)", int(b))
	}
	return backendNames[b]
}

// Key returns the lowercase identifier used in the verdict header and config files.
func (b Backend) Key() string {
	if !b.Valid() {
		return ""
	}
	return backendKeys[b]
}

// ParseBackend resolves a backend from its key or display name, case-insensitively.
func ParseBackend(s string) (Backend, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, b := range AllBackends {
		if s == backendKeys[b] || s == strings.ToLower(backendNames[b]) {
			return b, true
		}
	}
	return 0, false
}

// BackendKeys returns the keys of all backends in fixed order.
func BackendKeys() []string {
	keys := make([]string, len(AllBackends))
	for i, b := range AllBackends {
		keys[i] = b.Key()
	}
	return keys
}

// TestState is the recorded verdict for one (test, backend) pair.
// The numeric values are persisted in the verdict file.
type TestState int

const (
	Unknown TestState = 0
	Passed  TestState = 1
	Failed  TestState = 2
	Crashed TestState = 3
)

// AllStates lists the verdicts in code order.
var AllStates = []TestState{Unknown, Passed, Failed, Crashed}

// Valid reports whether s is a known verdict code.
func (s TestState) Valid() bool {
	return s >= Unknown && s <= Crashed
}

func (s TestState) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	case Crashed:
		return "crashed"
	default:
		return fmt.Sprintf("TestState(%d)", int(s))
	}
}

// Letter returns a one-character marker for compact tables.
func (s TestState) Letter() string {
	switch s {
	case Passed:
		return "P"
	case Failed:
		return "F"
	case Crashed:
		return "C"
	default:
		return "."
	}
}

// ParseTestState accepts a verdict name ("passed") or its letter ("p").
func ParseTestState(s string) (TestState, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unknown", "u", ".":
		return Unknown, true
	case "passed", "pass", "p":
		return Passed, true
	case "failed", "fail", "f":
		return Failed, true
	case "crashed", "crash", "c":
		return Crashed, true
	}
	return Unknown, false
}

// Suite selects the corpus semantics.
type Suite int

const (
	// SuiteOwn is the curated, verdict-file-backed suite with titles and reference PNGs.
	SuiteOwn Suite = iota
	// SuiteCustom is an ad-hoc directory scan with no stored verdicts.
	SuiteCustom
)

func (s Suite) String() string {
	switch s {
	case SuiteOwn:
		return "own"
	case SuiteCustom:
		return "custom"
	default:
		return fmt.Sprintf("Suite(%d)", int(s))
	}
}

// ParseSuite parses "own" or "custom".
func ParseSuite(s string) (Suite, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "own":
		return SuiteOwn, true
	case "custom":
		return SuiteCustom, true
	}
	return SuiteOwn, false
}

// ValidSuites returns the accepted suite names.
func ValidSuites() []string {
	return []string{"own", "custom"}
}
