package cli

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/AndreyAkinshin/vdiff/internal/corpus"
	"github.com/AndreyAkinshin/vdiff/internal/errors"
	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// Report is the machine-readable form of the verdict matrix.
type Report struct {
	Suite string                   `json:"suite" yaml:"suite"`
	Tests []ReportTest             `json:"tests" yaml:"tests"`
	Stats map[string]corpus.Counts `json:"stats" yaml:"stats"`
}

// ReportTest is one row of the verdict matrix, keyed by backend.
type ReportTest struct {
	Name   string            `json:"name" yaml:"name"`
	Title  string            `json:"title,omitempty" yaml:"title,omitempty"`
	States map[string]string `json:"states" yaml:"states"`
}

func buildReport(suite model.Suite, tests *corpus.Tests) *Report {
	r := &Report{
		Suite: suite.String(),
		Tests: make([]ReportTest, 0, tests.Len()),
		Stats: make(map[string]corpus.Counts, len(model.VerdictBackends)),
	}
	for _, item := range tests.Items() {
		rt := ReportTest{
			Name:   item.BaseName,
			Title:  item.Title,
			States: make(map[string]string, len(model.VerdictBackends)),
		}
		for _, b := range model.VerdictBackends {
			rt.States[b.Key()] = item.StateOf(b).String()
		}
		r.Tests = append(r.Tests, rt)
	}
	for b, c := range tests.Stats() {
		r.Stats[b.Key()] = c
	}
	return r
}

func writeReport(w io.Writer, r *Report, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
}

// cmdReport prints the verdict matrix and per-backend counts.
func cmdReport(args []string, opts *GlobalOptions) int {
	ca, err := parseCommandArgs("report", args, []string{"--format"}, nil)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitConfigError
	}
	format := ca.values["--format"]
	switch format {
	case "":
		format = "json"
	case "json", "yaml":
	default:
		out.ErrorPrefix("report: unsupported format %q (use json or yaml)", format)
		return errors.ExitConfigError
	}

	s, code := openSession(opts)
	if s == nil {
		return code
	}
	if err := writeReport(out.Out(), buildReport(s.suite, s.tests), format); err != nil {
		out.ErrorPrefix("report: %v", err)
		return errors.ExitRuntimeError
	}
	return 0
}
