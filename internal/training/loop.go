package training

import (
	"time"

	"github.com/example/harmonics-go/internal/cycle"
	"github.com/example/harmonics-go/internal/tensor"
)

// Loop owns the parameter, optimiser-moment and accumulator vectors for
// one runtime's training run. A single Loop can drive multiple Fit calls;
// state persists across them.
type Loop struct {
	runtime *cycle.Runtime
	opts    Options

	params  []tensor.Tensor
	moments []moments
	accum   []tensor.Tensor

	accumCount int
	step       int
	stall      int
	lastNorm   float64

	appliedAnyUpdate bool
}

// NewLoop allocates params/opt1/opt2/accum parallel to the runtime's
// weights vector, all zeroed.
func NewLoop(r *cycle.Runtime, opts Options) *Loop {
	n := len(r.State().Weights)
	return &Loop{
		runtime: r,
		opts:    opts,
		params:  make([]tensor.Tensor, n),
		moments: make([]moments, n),
		accum:   make([]tensor.Tensor, n),
	}
}

// Fit runs up to epochs optimiser steps (not forward passes), stopping
// early if early-stop patience is exhausted.
func (l *Loop) Fit(epochs int) error {
	return l.fitUntil(epochPredicate(epochs))
}

// FitDuration runs for at most d of wall-clock time.
func (l *Loop) FitDuration(d time.Duration) error {
	return l.fitUntil(durationPredicate(d, time.Now()))
}

// FitUntil runs until predicate(step) returns true, where step counts
// completed optimiser steps (not forward passes).
func (l *Loop) FitUntil(predicate func(step int) bool) error {
	return l.fitUntil(predicate)
}

func (l *Loop) fitUntil(stop until) error {
	hasTaps := l.runtime.Graph().HasTrainingTaps()

	for !stop(l.step) {
		if err := l.runtime.Forward(); err != nil {
			return err
		}

		if hasTaps {
			l.accumulate()

			if l.accumCount == l.opts.accumulateSteps() {
				if err := l.applyAccumulatedStep(); err != nil {
					return err
				}

				if l.opts.EarlyStopPatience > 0 && l.stall >= l.opts.EarlyStopPatience {
					break
				}
			}
		} else {
			// No backward arrows: advance the loop on forward passes
			// alone so epoch-counted Fit still terminates.
			l.step++
		}
	}

	if l.appliedAnyUpdate {
		l.swapWeights()
	}

	return nil
}

func (l *Loop) accumulate() {
	weights := l.runtime.State().Weights
	for i, w := range weights {
		if w.IsEmpty() {
			continue
		}
		if l.accum[i].IsEmpty() {
			l.accum[i] = w.Clone()
			continue
		}
		_ = tensor.AddInPlace(l.accum[i], w)
	}
	l.accumCount++
}

func (l *Loop) applyAccumulatedStep() error {
	loss := tensor.ListL2Norm(l.accum)

	steps := l.opts.accumulateSteps()
	for i := range l.accum {
		if l.accum[i].IsEmpty() {
			continue
		}
		tensor.ScaleInPlace(l.accum[i], 1/float64(steps))
	}

	if l.opts.GradClip > 0 {
		for i := range l.accum {
			tensor.ClipInPlace(l.accum[i], l.opts.GradClip)
		}
	}

	gradNorm := tensor.ListL2Norm(l.accum)

	if l.step > 0 && (l.lastNorm-gradNorm) < l.opts.EarlyStopDelta {
		l.stall++
	} else {
		l.stall = 0
	}
	l.lastNorm = gradNorm

	l.step++
	t := l.step
	lr := l.opts.learningRate(t)
	lrShift := l.opts.intShift(t)
	reportedLR := lr
	if lrShift > 0 {
		reportedLR = 1 / float64(int(1)<<uint(lrShift))
	}

	for i := range l.accum {
		if l.accum[i].IsEmpty() {
			continue
		}

		if l.params[i].IsEmpty() {
			z, err := tensor.Zeros(l.runtime.State().Weights[i].DType(), l.runtime.State().Weights[i].Shape())
			if err == nil {
				l.params[i] = z
			}
		}

		if err := applyUpdate(l.opts.Optimizer, l.params[i], l.accum[i], &l.moments[i], t, lr, lrShift, l.opts.WeightDecay); err != nil {
			return err
		}
		l.appliedAnyUpdate = true
	}

	if l.opts.Progress != nil {
		l.opts.Progress(l.step, gradNorm, loss, reportedLR)
	}

	for i := range l.accum {
		if !l.accum[i].IsEmpty() {
			tensor.ZeroInPlace(l.accum[i])
		}
	}
	l.accumCount = 0

	return nil
}

// swapWeights replaces every state.weights entry whose params entry is
// non-empty with that params tensor, the "final swap" semantics the spec
// requires when any update applied.
func (l *Loop) swapWeights() {
	weights := l.runtime.State().Weights
	for i := range weights {
		if !l.params[i].IsEmpty() {
			weights[i] = l.params[i]
		}
	}
}

// Params returns the current parameter vector, parallel to the runtime's
// layer/weight vectors.
func (l *Loop) Params() []tensor.Tensor { return l.params }

// Step returns the number of completed optimiser steps.
func (l *Loop) Step() int { return l.step }
