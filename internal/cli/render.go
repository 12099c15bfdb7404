package cli

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"

	"github.com/AndreyAkinshin/vdiff/internal/backend"
	"github.com/AndreyAkinshin/vdiff/internal/config"
	"github.com/AndreyAkinshin/vdiff/internal/corpus"
	"github.com/AndreyAkinshin/vdiff/internal/errors"
	"github.com/AndreyAkinshin/vdiff/internal/imgdiff"
	"github.com/AndreyAkinshin/vdiff/internal/imgio"
	"github.com/AndreyAkinshin/vdiff/internal/model"
	"github.com/AndreyAkinshin/vdiff/internal/render"
)

// runner owns an orchestrator whose loop runs for the lifetime of one command.
type runner struct {
	orch   *render.Orchestrator
	cfg    *config.Config
	suite  model.Suite
	cancel context.CancelFunc
	done   chan error
}

func (s *session) startRunner(ctx context.Context) (*runner, error) {
	cfg := s.proj.Config
	diffOpts, err := diffOptions(cfg)
	if err != nil {
		return nil, err
	}
	orch := render.New(backend.FromConfig(cfg, s.proj.Root), render.Options{
		Workers: cfg.Render.Workers,
		Diff:    diffOpts,
	})

	ctx, cancel := context.WithCancel(ctx)
	r := &runner{orch: orch, cfg: cfg, suite: s.suite, cancel: cancel, done: make(chan error, 1)}
	go func() { r.done <- orch.Run(ctx) }()
	return r, nil
}

func (r *runner) stop() {
	r.cancel()
	<-r.done
}

func (r *runner) run(ctx context.Context, item *corpus.TestItem, backends []model.Backend, onEvent func(render.Event)) (*render.CycleResult, error) {
	req := render.Request{
		ImgPath:  item.Path,
		BaseName: item.BaseName,
		ViewSize: r.cfg.Render.ViewSize,
		Scale:    r.cfg.Render.Scale,
		Suite:    r.suite,
		Backends: backends,
	}
	return r.orch.RunCycleWithEvents(ctx, req, onEvent)
}

func diffOptions(cfg *config.Config) (imgdiff.Options, error) {
	opts := imgdiff.DefaultOptions()
	opts.Tolerance = cfg.Diff.Tolerance
	rr, g, b, a, err := config.ParseHighlight(cfg.Diff.Highlight)
	if err != nil {
		return opts, err
	}
	opts.Highlight = color.NRGBA{R: rr, G: g, B: b, A: a}
	return opts, nil
}

// printEvent reports one cycle event as it arrives.
func printEvent(passThreshold float64) func(render.Event) {
	return func(e render.Event) {
		switch e.Kind {
		case render.EventImageReady:
			b := e.Image.Bounds()
			out.BackendImage(e.Backend.String(), b.Dx(), b.Dy(), "")
		case render.EventDiffReady:
			out.BackendDiff(e.Backend.String(), e.Diff.Percent, e.Diff.Percent <= passThreshold, "")
		case render.EventWarning, render.EventError:
			out.BackendFailed(e.Err)
		}
	}
}

// cmdRender runs one render cycle for a single test.
func cmdRender(args []string, opts *GlobalOptions) int {
	ca, err := parseCommandArgs("render", args, []string{"--backend"}, []string{"--record", "--save"})
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitConfigError
	}
	if len(ca.positional) != 1 {
		out.ErrorPrefix("render: usage: vdiff render <test> [--record] [--save] [--backend=<b>,...]")
		return errors.ExitConfigError
	}
	backends, err := parseBackendList(ca.values["--backend"])
	if err != nil {
		out.ErrorPrefix("render: %v", err)
		return errors.ExitConfigError
	}

	s, code := openSession(opts)
	if s == nil {
		return code
	}
	if ca.has("--record") {
		if code := s.requireVerdicts("render --record"); code != 0 {
			return code
		}
	}
	i, err := s.resolveTest(ca.positional[0])
	if err != nil {
		out.ErrorPrefix("render: %v", err)
		return errors.GetExitCode(err)
	}
	item := s.tests.At(i)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r, err := s.startRunner(ctx)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitConfigError
	}
	defer r.stop()

	threshold := s.proj.Config.Diff.PassThreshold
	s.warnSelfReference()
	if item.Title != "" {
		out.Info("%s: %s", item.BaseName, item.Title)
	} else {
		out.Info("%s", item.BaseName)
	}

	res, err := r.run(ctx, item, backends, printEvent(threshold))
	if err != nil {
		out.ErrorPrefix("render: %v", err)
		return errors.ExitRuntimeError
	}

	if ca.has("--save") {
		dir := outputDirFor(s.proj.OutputDir(), item)
		n, err := saveImages(res, dir)
		if err != nil {
			out.ErrorPrefix("%v", err)
			return errors.GetExitCode(err)
		}
		out.Info("saved %d images to %s", n, dir)
	}

	if ca.has("--record") {
		verdicts := s.verdicts(res)
		if code := s.record(i, verdicts); code != 0 {
			return code
		}
		out.Info("recorded %s", formatVerdicts(verdicts))
	}

	if res.ReferenceFailed() {
		return errors.ExitRuntimeError
	}
	return 0
}

// cmdRenderAll renders the corpus sequentially, one cycle per test.
func cmdRenderAll(args []string, opts *GlobalOptions) int {
	ca, err := parseCommandArgs("render-all", args, []string{"--backend"}, []string{"--record"})
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitConfigError
	}
	if len(ca.positional) > 0 {
		out.ErrorPrefix("render-all: unexpected argument %q", ca.positional[0])
		return errors.ExitConfigError
	}
	backends, err := parseBackendList(ca.values["--backend"])
	if err != nil {
		out.ErrorPrefix("render-all: %v", err)
		return errors.ExitConfigError
	}

	s, code := openSession(opts)
	if s == nil {
		return code
	}
	record := ca.has("--record")
	if record {
		if code := s.requireVerdicts("render-all --record"); code != 0 {
			return code
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r, err := s.startRunner(ctx)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitConfigError
	}
	defer r.stop()

	s.warnSelfReference()
	totals := make(map[model.TestState]int)
	noReference := 0
	n := s.tests.Len()
	for i := 0; i < n; i++ {
		item := s.tests.At(i)
		res, err := r.run(ctx, item, backends, nil)
		if err != nil {
			out.ErrorPrefix("render-all: %s: %v", item.BaseName, err)
			return errors.ExitRuntimeError
		}

		verdicts := s.verdicts(res)
		for _, st := range verdicts {
			totals[st]++
		}
		if res.ReferenceFailed() {
			noReference++
			out.BackendFailed(res.Failures[model.Reference])
		}
		out.Info("[%*d/%d] %s  %s", len(fmt.Sprint(n)), i+1, n, item.BaseName, formatVerdicts(verdicts))

		if record {
			if code := s.record(i, verdicts); code != 0 {
				return code
			}
		}
	}

	out.SummaryHeader("Summary")
	out.SummaryItem("Tests", fmt.Sprint(n))
	out.SummaryPassed("Passed", fmt.Sprint(totals[model.Passed]))
	out.SummaryFailed("Failed", fmt.Sprint(totals[model.Failed]))
	out.SummaryCrashed("Crashed", fmt.Sprint(totals[model.Crashed]))
	if noReference > 0 {
		out.SummaryItem("Without reference", fmt.Sprint(noReference))
	}
	return 0
}

// selfReference returns the backend whose render serves as Reference, if the
// suite has one. Its diff is against itself and says nothing about it.
func (s *session) selfReference() (model.Backend, bool) {
	if s.suite != model.SuiteCustom {
		return 0, false
	}
	return model.ParseBackend(s.proj.Config.Tests.ReferenceFallback)
}

func (s *session) warnSelfReference() {
	if fb, ok := s.selfReference(); ok && slices.Contains(s.proj.Config.EnabledBackends(), fb) {
		out.WarningSimple("%s is the reference for the custom suite; it gets no verdict", fb)
	}
}

// verdicts derives automatic verdicts for res, leaving out the self-referenced backend.
func (s *session) verdicts(res *render.CycleResult) map[model.Backend]model.TestState {
	v := res.Verdicts(s.proj.Config.Diff.PassThreshold)
	if fb, ok := s.selfReference(); ok {
		delete(v, fb)
	}
	return v
}

// record stores verdicts for the i-th test and saves the verdict file.
func (s *session) record(i int, verdicts map[model.Backend]model.TestState) int {
	for b, st := range verdicts {
		if err := s.tests.SetState(i, b, st); err != nil {
			out.ErrorPrefix("%v", err)
			return errors.ExitRuntimeError
		}
	}
	return s.save()
}

// formatVerdicts renders verdicts in column order, e.g. "chrome=P resvg=F".
func formatVerdicts(v map[model.Backend]model.TestState) string {
	if len(v) == 0 {
		return "-"
	}
	var parts []string
	for _, b := range model.VerdictBackends {
		if st, ok := v[b]; ok {
			parts = append(parts, b.Key()+"="+st.Letter())
		}
	}
	return strings.Join(parts, " ")
}

// outputDirFor returns the directory for a test's saved images: the base name without extension.
func outputDirFor(root string, item *corpus.TestItem) string {
	name := strings.TrimSuffix(item.BaseName, filepath.Ext(item.BaseName))
	return filepath.Join(root, filepath.FromSlash(name))
}

// saveImages writes <backend>.png and <backend>.diff.png for every image in res.
func saveImages(res *render.CycleResult, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, errors.Persistence(dir, err)
	}
	n := 0
	for _, b := range model.AllBackends {
		if img, ok := res.Images[b]; ok {
			path := filepath.Join(dir, b.Key()+".png")
			if err := imgio.Save(img, path); err != nil {
				return n, errors.Persistence(path, err)
			}
			n++
		}
		if d, ok := res.Diffs[b]; ok && d != nil {
			path := filepath.Join(dir, b.Key()+".diff.png")
			if err := imgio.Save(d.Image, path); err != nil {
				return n, errors.Persistence(path, err)
			}
			n++
		}
	}
	return n, nil
}
