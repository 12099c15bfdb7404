package render

import (
	"os"
	"runtime"
	"strconv"

	"github.com/AndreyAkinshin/vdiff/internal/output"
)

var out = output.New()

const (
	// minParallelWorkers keeps the semaphore usable even if runtime.NumCPU() reports 0.
	minParallelWorkers = 1

	// maxParallelWorkers caps VDIFF_PARALLEL and render.workers. Renders are
	// subprocess-bound; beyond this point extra workers only add contention.
	maxParallelWorkers = 256

	// ParallelEnv overrides the worker count.
	ParallelEnv = "VDIFF_PARALLEL"
)

// defaultWorkerCount returns the default number of parallel workers based on CPU count.
func defaultWorkerCount() int {
	return max(minParallelWorkers, runtime.NumCPU())
}

// ParallelWorkers resolves the worker pool size.
// VDIFF_PARALLEL wins over configured; invalid values log a warning and fall back.
// configured <= 0 means the CPU count.
func ParallelWorkers(configured int) int {
	env := os.Getenv(ParallelEnv)
	if env != "" {
		n, err := strconv.Atoi(env)
		switch {
		case err != nil:
			out.WarningSimple("invalid %s value %q (not a number), using default", ParallelEnv, env)
		case n < minParallelWorkers || n > maxParallelWorkers:
			out.WarningSimple("%s=%d out of range [%d-%d], using default", ParallelEnv, n, minParallelWorkers, maxParallelWorkers)
		default:
			return n
		}
	}

	if configured >= minParallelWorkers && configured <= maxParallelWorkers {
		return configured
	}
	return defaultWorkerCount()
}
