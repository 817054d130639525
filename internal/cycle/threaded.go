package cycle

import (
	"github.com/sourcegraph/conc/pool"

	"github.com/example/harmonics-go/internal/graph"
)

// forwardThreaded mirrors forwardSingleThreaded's op ordering but schedules
// every arrow within one flow line on a worker-pool task, joining the pool
// before advancing to the next line. The source tensor is fetched once per
// line and captured by value into each task, matching the CPU reference
// pass's visible behaviour as long as a line never writes the same target
// slot from two arrows — checkAliasedWrites rejects a line that would
// violate that constraint before any task is scheduled.
func (r *Runtime) forwardThreaded() error {
	fetched := make([]bool, len(r.graph.Producers))

	for _, line := range r.graph.Cycle {
		if err := checkAliasedWrites(line); err != nil {
			return err
		}

		source, err := r.fetchSource(line.Source, fetched)
		if err != nil {
			return err
		}

		p := pool.New().WithErrors()
		for _, a := range line.Arrows {
			a := a
			p.Go(func() error {
				return r.applyArrow(line.Source, source, a, fetched)
			})
		}
		if err := p.Wait(); err != nil {
			return err
		}
	}

	return nil
}

// checkAliasedWrites rejects a flow line in which two arrows write the same
// state slot: two arrows with the same target, or two backward arrows with a
// loss from a layer source (both write that layer's weights slot). The
// threaded path schedules every arrow of a line concurrently with no
// per-slot synchronisation beyond the line-end join.
func checkAliasedWrites(line graph.FlowLine) error {
	seen := make(map[graph.NodeId]bool, len(line.Arrows))
	lossArrows := 0
	for _, a := range line.Arrows {
		if seen[a.Target] {
			return errAliasedWrite(line.Source, a.Target)
		}
		seen[a.Target] = true
		if a.Backward && a.Func != "" && line.Source.Kind == graph.Layer {
			lossArrows++
			if lossArrows > 1 {
				return errAliasedWrite(line.Source, line.Source)
			}
		}
	}
	return nil
}
