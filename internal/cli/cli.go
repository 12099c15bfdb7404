// Package cli provides command-line interface functionality for vdiff.
package cli

import (
	"fmt"
	"strings"

	"github.com/AndreyAkinshin/vdiff/internal/errors"
	"github.com/AndreyAkinshin/vdiff/internal/model"
	"github.com/AndreyAkinshin/vdiff/internal/output"
	"github.com/AndreyAkinshin/vdiff/internal/render"
)

// Version is set at build time.
var Version = "dev"

// commandInfo describes one top-level command for help and completion.
type commandInfo struct {
	name        string
	usage       string
	description string
}

var commandList = []commandInfo{
	{"list", "list [--state=<state>] [--backend=<backend>]", "List tests with their verdicts"},
	{"render", "render <test> [--record] [--save] [--backend=<b>,...]", "Render one test with every backend and diff"},
	{"render-all", "render-all [--record] [--backend=<b>,...]", "Render every test, one at a time"},
	{"mark", "mark <test> <backend> <state>", "Record a verdict by hand"},
	{"resync", "resync", "Reconcile the verdict file with the corpus"},
	{"watch", "watch [--debounce=<duration>]", "Resync whenever SVG files appear or disappear"},
	{"stats", "stats", "Show verdict counts per backend"},
	{"report", "report [--format=json|yaml]", "Print the verdict matrix and counts"},
	{"backends", "backends", "List backends and whether their tools are installed"},
	{"init", "init", "Create .vdiff/config.json in the current directory"},
	{"config", "config validate", "Validate project configuration"},
	{"completion", "completion <shell>", "Generate shell completion (bash, zsh, fish)"},
	{"version", "version", "Show version information"},
}

func findCommand(name string) (commandInfo, bool) {
	for _, c := range commandList {
		if c.name == name {
			return c, true
		}
	}
	return commandInfo{}, false
}

// wantsHelp returns true if args contain -h or --help before any -- separator.
func wantsHelp(args []string) bool {
	for _, arg := range args {
		if arg == "-h" || arg == "--help" {
			return true
		}
		if arg == "--" {
			return false
		}
	}
	return false
}

// Run executes the CLI with the given arguments and returns an exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 0
	}

	switch args[0] {
	case "-h", "--help", "help":
		if len(args) > 1 {
			return printCommandUsage(args[1])
		}
		printUsage()
		return 0
	case "--version", "version":
		out.Println("vdiff %s", Version)
		return 0
	}

	opts, remaining, err := parseGlobalFlags(args)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitConfigError
	}
	if len(remaining) == 0 {
		printUsage()
		return 0
	}
	cmd, cmdArgs := remaining[0], remaining[1:]

	if _, ok := findCommand(cmd); ok && wantsHelp(cmdArgs) {
		return printCommandUsage(cmd)
	}

	switch cmd {
	case "list":
		return cmdList(cmdArgs, opts)
	case "render":
		return cmdRender(cmdArgs, opts)
	case "render-all":
		return cmdRenderAll(cmdArgs, opts)
	case "mark":
		return cmdMark(cmdArgs, opts)
	case "resync":
		return cmdResync(cmdArgs, opts)
	case "watch":
		return cmdWatch(cmdArgs, opts)
	case "stats":
		return cmdStats(cmdArgs, opts)
	case "report":
		return cmdReport(cmdArgs, opts)
	case "backends":
		return cmdBackends(cmdArgs, opts)
	case "init":
		return cmdInit(cmdArgs)
	case "config":
		return cmdConfig(cmdArgs)
	case "completion":
		return cmdCompletion(cmdArgs)
	case "version":
		out.Println("vdiff %s", Version)
		return 0
	default:
		out.ErrorPrefix("unknown command %q (run 'vdiff help')", cmd)
		return errors.ExitConfigError
	}
}

// GlobalOptions holds parsed global flags.
type GlobalOptions struct {
	Quiet   bool
	Verbose bool
	Suite   string // Overrides tests.suite when set
}

// parseGlobalFlags extracts global flags from anywhere in args.
// Arguments after -- are kept verbatim.
func parseGlobalFlags(args []string) (*GlobalOptions, []string, error) {
	opts := &GlobalOptions{}
	var remaining []string

	i := 0
	for i < len(args) {
		arg := args[i]

		switch {
		case arg == "-q" || arg == "--quiet":
			opts.Quiet = true
			i++
		case arg == "-v" || arg == "--verbose":
			opts.Verbose = true
			i++
		case arg == "--suite":
			if i+1 >= len(args) {
				return nil, nil, fmt.Errorf("--suite requires a value")
			}
			opts.Suite = args[i+1]
			i += 2
		case strings.HasPrefix(arg, "--suite="):
			opts.Suite = strings.TrimPrefix(arg, "--suite=")
			i++
		case arg == "--":
			remaining = append(remaining, args[i:]...)
			i = len(args)
		default:
			remaining = append(remaining, arg)
			i++
		}
	}

	if err := validateGlobalOptions(opts); err != nil {
		return nil, nil, err
	}

	applyVerbosityToOutput(opts)

	return opts, remaining, nil
}

// validateGlobalOptions checks that global options are valid.
func validateGlobalOptions(opts *GlobalOptions) error {
	if opts.Suite != "" {
		if _, ok := model.ParseSuite(opts.Suite); !ok {
			return fmt.Errorf("invalid --suite value %q\n  valid values: %s",
				opts.Suite, strings.Join(model.ValidSuites(), ", "))
		}
	}
	if opts.Quiet && opts.Verbose {
		return fmt.Errorf("--quiet and --verbose are mutually exclusive")
	}
	return nil
}

// Help text alignment widths.
const (
	widthCommand = 12
	widthFlag    = 16
)

func printUsage() {
	w := out

	w.HelpTitle("vdiff - render SVG tests with many backends and track verdicts")

	w.HelpSection("usage:")
	w.HelpUsage("vdiff [flags] <command> [args]")

	w.HelpSection("commands:")
	for _, c := range commandList {
		w.HelpCommand(c.name, c.description, widthCommand)
	}

	printGlobalFlags(w)

	w.HelpSection("examples:")
	w.HelpExample("vdiff resync", "Pick up new SVG files and drop deleted ones")
	w.HelpExample("vdiff render shapes/rect.svg --save", "Render one test and save every image")
	w.HelpExample("vdiff render-all --record", "Render the corpus and record automatic verdicts")
	w.HelpExample("vdiff mark 12 resvg failed", "Mark test #12 as failed for resvg")
	w.HelpExample("vdiff --suite=custom list", "List files of an ad-hoc corpus")
	w.Println("")
}

func printGlobalFlags(w *output.Writer) {
	w.HelpSection("global flags:")
	w.HelpFlag("-q, --quiet", "Minimal output (errors only)", widthFlag)
	w.HelpFlag("-v, --verbose", "Debug diagnostics on stderr", widthFlag)
	w.HelpFlag("--suite=<suite>", "Corpus mode: own or custom", widthFlag)
	w.HelpFlag("-h, --help", "Show this help", widthFlag)
	w.HelpFlag("--version", "Show version", widthFlag)

	w.HelpSection("environment:")
	w.HelpEnvVar(render.ParallelEnv+"=<n>", "Render worker count (1-256)", 18)
	w.HelpEnvVar("NO_COLOR", "Disable colored output", 18)
}

// printCommandUsage prints help for one command.
func printCommandUsage(name string) int {
	c, ok := findCommand(name)
	if !ok {
		out.ErrorPrefix("unknown command %q (run 'vdiff help')", name)
		return errors.ExitConfigError
	}
	w := out
	w.HelpTitle(fmt.Sprintf("vdiff %s - %s", c.name, strings.ToLower(c.description[:1])+c.description[1:]))
	w.HelpSection("usage:")
	w.HelpUsage("vdiff " + c.usage)
	if details, ok := commandDetails[c.name]; ok {
		w.HelpSection("details:")
		for _, line := range details {
			w.Println("  %s", line)
		}
	}
	w.Println("")
	return 0
}

var commandDetails = map[string][]string{
	"render": {
		"<test> is a 1-based index from 'vdiff list' or a test name such as shapes/rect.svg.",
		"--record stores automatic verdicts: a render failure is crashed, a mismatch",
		"at or below diff.pass_threshold percent is passed, anything else failed.",
		"--save writes <backend>.png and <backend>.diff.png under render.output_dir.",
	},
	"render-all": {
		"Tests are rendered sequentially; backends within a test run in parallel.",
		"--record saves verdicts after each test, so an interrupted run keeps its progress.",
	},
	"mark": {
		"<state> is one of unknown, passed, failed, crashed (or u, p, f, c).",
		"<backend> is a backend key such as chrome or svgnet.",
	},
	"report": {
		"The report lists every test with its verdicts plus per-backend counts.",
	},
	"watch": {
		"Runs until interrupted. Only the own suite has a verdict file to resync.",
	},
}
