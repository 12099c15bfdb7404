package render

import (
	"github.com/AndreyAkinshin/vdiff/internal/backend"
	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// Verdicts derives automatic verdicts from a finished cycle.
//
// A backend that failed to render is Crashed. A backend whose mismatch is at most
// passThreshold percent is Passed, otherwise Failed. Backends with nothing to judge
// are left out: not enabled, canceled, rendered without a reference, or whose
// diff could not be computed.
func (r *CycleResult) Verdicts(passThreshold float64) map[model.Backend]model.TestState {
	verdicts := make(map[model.Backend]model.TestState)
	for _, b := range model.VerdictBackends {
		if err, ok := r.Failures[b]; ok {
			if re, ok := backend.AsRenderError(err); ok &&
				(re.Reason == backend.ReasonNotRegistered || re.Reason == backend.ReasonCanceled) {
				continue
			}
			verdicts[b] = model.Crashed
			continue
		}
		if d, ok := r.Diffs[b]; ok && d != nil {
			if d.Percent <= passThreshold {
				verdicts[b] = model.Passed
			} else {
				verdicts[b] = model.Failed
			}
		}
	}
	return verdicts
}
