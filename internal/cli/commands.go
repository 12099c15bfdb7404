package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/AndreyAkinshin/vdiff/internal/backend"
	"github.com/AndreyAkinshin/vdiff/internal/corpus"
	"github.com/AndreyAkinshin/vdiff/internal/errors"
	"github.com/AndreyAkinshin/vdiff/internal/logging"
	"github.com/AndreyAkinshin/vdiff/internal/model"
	"github.com/AndreyAkinshin/vdiff/internal/output"
	"github.com/AndreyAkinshin/vdiff/internal/project"
)

// out is the shared output writer for CLI commands.
var out = output.New()

// applyVerbosityToOutput configures the output writer and diagnostic logger.
func applyVerbosityToOutput(opts *GlobalOptions) {
	out.SetQuiet(opts.Quiet)
	out.SetVerbose(opts.Verbose)
	if opts.Verbose {
		logging.EnableDebug(os.Stderr)
	}
}

// loadProject loads the project configuration and handles errors uniformly.
// Returns the project and exit code 0 on success, or nil and the exit code on failure.
func loadProject() (*project.Project, int) {
	proj, err := project.LoadProject()
	if err != nil {
		out.ErrorPrefix("%v", err)
		if stderrors.Is(err, project.ErrNoProjectRoot) {
			return nil, errors.ExitEnvironmentError
		}
		return nil, errors.GetExitCode(err)
	}
	for _, w := range proj.Warnings {
		out.WarningSimple("%s", w)
	}
	return proj, 0
}

// session is a loaded project together with the corpus of the selected suite.
type session struct {
	proj  *project.Project
	suite model.Suite
	tests *corpus.Tests
}

func openSession(opts *GlobalOptions) (*session, int) {
	proj, code := loadProject()
	if proj == nil {
		return nil, code
	}
	suite, err := proj.Suite(opts.Suite)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return nil, errors.GetExitCode(err)
	}
	tests, err := proj.LoadTests(suite)
	if err != nil {
		out.ErrorPrefix("%v", err)
		if errors.IsKind(err, errors.KindCorpusLoad) && suite == model.SuiteOwn {
			out.Hint("run 'vdiff resync' to create the verdict file from the corpus")
		}
		return nil, errors.GetExitCode(err)
	}
	return &session{proj: proj, suite: suite, tests: tests}, 0
}

// requireVerdicts rejects commands that write verdicts when the suite has no verdict file.
func (s *session) requireVerdicts(cmd string) int {
	if s.suite != model.SuiteOwn {
		out.ErrorPrefix("%s: the custom suite has no verdict file", cmd)
		return errors.ExitConfigError
	}
	return 0
}

func (s *session) save() int {
	if err := s.tests.Save(s.proj.ResultsPath()); err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}
	return 0
}

// resolveTest accepts a 1-based index as printed by 'vdiff list', or a test name.
func (s *session) resolveTest(arg string) (int, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > s.tests.Len() {
			return 0, errors.Newf("test index %d out of range (1-%d)", n, s.tests.Len())
		}
		return n - 1, nil
	}
	if i, ok := s.tests.Lookup(arg); ok {
		return i, nil
	}
	return 0, errors.NotFound("test", arg)
}

// commandArgs holds a command's positional arguments and --flags.
type commandArgs struct {
	positional []string
	values     map[string]string
	switches   map[string]bool
}

func (a *commandArgs) has(name string) bool {
	return a.switches[name]
}

// parseCommandArgs splits args into positionals, valued flags (--name=v or --name v),
// and boolean switches. Anything after -- is positional.
func parseCommandArgs(cmd string, args []string, valued, switches []string) (*commandArgs, error) {
	isValued := make(map[string]bool, len(valued))
	for _, v := range valued {
		isValued[v] = true
	}
	isSwitch := make(map[string]bool, len(switches))
	for _, s := range switches {
		isSwitch[s] = true
	}

	a := &commandArgs{values: map[string]string{}, switches: map[string]bool{}}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			a.positional = append(a.positional, args[i+1:]...)
			return a, nil
		case strings.HasPrefix(arg, "--"):
			name, value, hasValue := strings.Cut(arg, "=")
			switch {
			case isSwitch[name] && !hasValue:
				a.switches[name] = true
			case isValued[name] && hasValue:
				a.values[name] = value
			case isValued[name]:
				if i+1 >= len(args) {
					return nil, fmt.Errorf("%s: %s requires a value", cmd, name)
				}
				a.values[name] = args[i+1]
				i++
			default:
				return nil, fmt.Errorf("%s: unknown option %q", cmd, arg)
			}
		default:
			a.positional = append(a.positional, arg)
		}
	}
	return a, nil
}

// parseBackendList parses a comma-separated backend list. Empty means all.
func parseBackendList(s string) ([]model.Backend, error) {
	if s == "" {
		return nil, nil
	}
	var list []model.Backend
	for _, part := range strings.Split(s, ",") {
		b, ok := model.ParseBackend(part)
		if !ok || b == model.Reference {
			return nil, fmt.Errorf("unknown backend %q (valid: %s)", part, strings.Join(model.BackendKeys()[1:], ", "))
		}
		list = append(list, b)
	}
	return list, nil
}

// cmdList prints the corpus as a table with one verdict letter per backend.
func cmdList(args []string, opts *GlobalOptions) int {
	ca, err := parseCommandArgs("list", args, []string{"--state", "--backend"}, nil)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitConfigError
	}

	backends := model.VerdictBackends
	if v := ca.values["--backend"]; v != "" {
		if backends, err = parseBackendList(v); err != nil {
			out.ErrorPrefix("list: %v", err)
			return errors.ExitConfigError
		}
	}
	var state *model.TestState
	if v := ca.values["--state"]; v != "" {
		st, ok := model.ParseTestState(v)
		if !ok {
			out.ErrorPrefix("list: invalid state %q (valid: unknown, passed, failed, crashed)", v)
			return errors.ExitConfigError
		}
		state = &st
	}

	s, code := openSession(opts)
	if s == nil {
		return code
	}

	headers := []string{"#", "Test"}
	for _, b := range backends {
		headers = append(headers, b.Key())
	}
	withTitles := s.suite == model.SuiteOwn
	if withTitles {
		headers = append(headers, "Title")
	}

	var rows [][]string
	for i := 0; i < s.tests.Len(); i++ {
		item := s.tests.At(i)
		if state != nil && !matchesState(item, backends, *state) {
			continue
		}
		row := []string{strconv.Itoa(i + 1), item.BaseName}
		for _, b := range backends {
			row = append(row, item.StateOf(b).Letter())
		}
		if withTitles {
			row = append(row, item.Title)
		}
		rows = append(rows, row)
	}

	out.Table(headers, rows)
	return 0
}

func matchesState(item *corpus.TestItem, backends []model.Backend, state model.TestState) bool {
	for _, b := range backends {
		if item.StateOf(b) == state {
			return true
		}
	}
	return false
}

// cmdMark records a manual verdict and saves the verdict file.
func cmdMark(args []string, opts *GlobalOptions) int {
	ca, err := parseCommandArgs("mark", args, nil, nil)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitConfigError
	}
	if len(ca.positional) != 3 {
		out.ErrorPrefix("mark: usage: vdiff mark <test> <backend> <state>")
		return errors.ExitConfigError
	}
	b, ok := model.ParseBackend(ca.positional[1])
	if !ok || b == model.Reference {
		out.ErrorPrefix("mark: invalid backend %q (valid: %s)", ca.positional[1], strings.Join(model.BackendKeys()[1:], ", "))
		return errors.ExitConfigError
	}
	state, ok := model.ParseTestState(ca.positional[2])
	if !ok {
		out.ErrorPrefix("mark: invalid state %q (valid: unknown, passed, failed, crashed)", ca.positional[2])
		return errors.ExitConfigError
	}

	s, code := openSession(opts)
	if s == nil {
		return code
	}
	if code := s.requireVerdicts("mark"); code != 0 {
		return code
	}
	i, err := s.resolveTest(ca.positional[0])
	if err != nil {
		out.ErrorPrefix("mark: %v", err)
		return errors.GetExitCode(err)
	}
	if err := s.tests.SetState(i, b, state); err != nil {
		out.ErrorPrefix("mark: %v", err)
		return errors.ExitRuntimeError
	}
	if code := s.save(); code != 0 {
		return code
	}
	out.Success("%s: %s %s", s.tests.At(i).BaseName, b, state)
	return 0
}

// cmdResync reconciles the verdict file with the corpus on disk.
func cmdResync(args []string, opts *GlobalOptions) int {
	if len(args) > 0 {
		out.ErrorPrefix("resync: unexpected argument %q", args[0])
		return errors.ExitConfigError
	}
	proj, code := loadProject()
	if proj == nil {
		return code
	}
	return resync(proj, opts)
}

func resync(proj *project.Project, opts *GlobalOptions) int {
	suite, err := proj.Suite(opts.Suite)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}
	if suite != model.SuiteOwn {
		out.ErrorPrefix("resync: the custom suite has no verdict file")
		return errors.ExitConfigError
	}

	before := map[string]bool{}
	if old, err := proj.LoadTests(model.SuiteOwn); err == nil {
		for _, item := range old.Items() {
			before[item.BaseName] = true
		}
	}

	tests, err := corpus.Resync(proj.Settings(model.SuiteOwn))
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}

	for _, rel := range tests.Skipped() {
		out.WarningSimple("skipped %s: tests must be laid out as <dir>/<file>.svg under the corpus root", rel)
	}

	added := 0
	for _, item := range tests.Items() {
		if before[item.BaseName] {
			delete(before, item.BaseName)
		} else {
			added++
		}
	}
	out.Success("resynced %d tests (%d added, %d removed)", tests.Len(), added, len(before))
	if len(before) > 0 {
		removed := make([]string, 0, len(before))
		for name := range before {
			removed = append(removed, name)
		}
		sort.Strings(removed)
		out.Debug("removed: %s", strings.Join(removed, ", "))
	}
	return 0
}

// cmdStats prints verdict counts per backend.
func cmdStats(args []string, opts *GlobalOptions) int {
	if len(args) > 0 {
		out.ErrorPrefix("stats: unexpected argument %q", args[0])
		return errors.ExitConfigError
	}
	s, code := openSession(opts)
	if s == nil {
		return code
	}

	stats := s.tests.Stats()
	rows := make([][]string, 0, len(model.VerdictBackends))
	for _, b := range model.VerdictBackends {
		c := stats[b]
		rows = append(rows, []string{
			b.String(),
			strconv.Itoa(c.Passed),
			strconv.Itoa(c.Failed),
			strconv.Itoa(c.Crashed),
			strconv.Itoa(c.Unknown),
		})
	}
	out.Table([]string{"Backend", "Passed", "Failed", "Crashed", "Unknown"}, rows)
	out.Info("\n%d tests", s.tests.Len())
	return 0
}

// cmdBackends lists every backend with its configuration and tool status.
func cmdBackends(args []string, opts *GlobalOptions) int {
	if len(args) > 0 {
		out.ErrorPrefix("backends: unexpected argument %q", args[0])
		return errors.ExitConfigError
	}
	proj, code := loadProject()
	if proj == nil {
		return code
	}
	cfg := proj.Config
	registry := backend.FromConfig(cfg, proj.Root)

	suite, err := proj.Suite(opts.Suite)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}
	if suite == model.SuiteOwn {
		dir := cfg.Tests.ReferenceDir
		if dir == "" {
			dir = "next to each test"
		}
		out.BackendInfo(model.Reference.Key(), "png", dir)
	} else {
		out.BackendInfo(model.Reference.Key(), "fallback", cfg.Tests.ReferenceFallback)
	}

	for _, b := range model.VerdictBackends {
		bc, configured := cfg.Backends[b.Key()]
		switch {
		case !configured:
			out.BackendInfo(b.Key(), "not configured", "")
			continue
		case !bc.IsEnabled():
			out.BackendInfo(b.Key(), "disabled", bc.Tool)
			continue
		}

		status, tool := "enabled", bc.Tool
		if r, ok := registry.Get(b); ok {
			if tl, ok := r.(backend.ToolLocator); ok {
				tool = tl.Tool()
				if !tl.Available() {
					status = "enabled, tool not found"
				}
			}
		}
		out.BackendInfo(b.Key(), status, tool)
		if opts.Verbose {
			out.BackendDetail("command", bc.Command)
			out.BackendDetail("timeout", cfg.BackendTimeout(b.Key()).String())
		}
	}
	return 0
}

// cmdConfig dispatches config subcommands.
func cmdConfig(args []string) int {
	if len(args) == 0 {
		out.ErrorPrefix("config: subcommand required (validate)")
		return errors.ExitConfigError
	}

	switch args[0] {
	case "validate":
		return cmdConfigValidate()
	default:
		out.ErrorPrefix("config: unknown subcommand %q", args[0])
		return errors.ExitConfigError
	}
}

func cmdConfigValidate() int {
	proj, code := loadProject()
	if proj == nil {
		return code
	}

	enabled := proj.Config.EnabledBackends()
	keys := make([]string, len(enabled))
	for i, b := range enabled {
		keys[i] = b.Key()
	}

	out.ValidationSuccess("Configuration is valid.")
	out.SummaryItem("Suite", proj.Config.Tests.Suite)
	out.SummaryItem("Tests", proj.TestsPath())
	out.SummaryItem("Results", proj.ResultsPath())
	out.SummaryItem("Backends", fmt.Sprintf("%d enabled (%s)", len(enabled), strings.Join(keys, ", ")))
	if len(proj.Warnings) > 0 {
		out.SummaryItem("Warnings", strconv.Itoa(len(proj.Warnings)))
	}
	return 0
}
