package cli

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/AndreyAkinshin/vdiff/internal/errors"
	"github.com/AndreyAkinshin/vdiff/internal/model"
	"github.com/AndreyAkinshin/vdiff/internal/watch"
)

// cmdWatch resyncs the verdict file whenever the corpus changes, until interrupted.
func cmdWatch(args []string, opts *GlobalOptions) int {
	ca, err := parseCommandArgs("watch", args, []string{"--debounce"}, nil)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitConfigError
	}
	debounce := watch.DefaultDebounce
	if v := ca.values["--debounce"]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			out.ErrorPrefix("watch: invalid --debounce %q (e.g. 500ms, 2s)", v)
			return errors.ExitConfigError
		}
		debounce = d
	}

	proj, code := loadProject()
	if proj == nil {
		return code
	}
	if suite, err := proj.Suite(opts.Suite); err == nil && suite != model.SuiteOwn {
		out.ErrorPrefix("watch: the custom suite has no verdict file")
		return errors.ExitConfigError
	}

	if code := resync(proj, opts); code != 0 {
		return code
	}

	w, err := watch.New(proj.TestsPath(), debounce)
	if err != nil {
		out.ErrorPrefix("watch: %v", err)
		return errors.ExitEnvironmentError
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out.Info("watching %s (Ctrl+C to stop)", proj.TestsPath())
	err = w.Run(ctx, func() error {
		// Errors are reported and watching continues; the next change retries.
		resync(proj, opts)
		return nil
	})
	if err != nil {
		out.ErrorPrefix("watch: %v", err)
		return errors.ExitRuntimeError
	}
	return 0
}
