package posmap

import (
	"github.com/matzehuels/sceneguard/pkg/observability"
)

// OptimizeResult summarizes an OptimizeLayout pass.
type OptimizeResult struct {
	Iterations          int          `json:"iterations"`
	PenaltyResolved     float64      `json:"penalty_resolved"`
	RemainingCollisions int          `json:"remaining_collisions"`
	RemainingPairs      int          `json:"remaining_pairs"`
	Converged           bool         `json:"converged"`
	Moves               []Resolution `json:"moves,omitempty"`
}

// OptimizeLayout repeatedly relocates the lower-priority member of the worst
// conflicting pair until no conflicts remain or MaxIterations relocations
// have been made. Priority ties move the pair's larger key. Time shifts that
// would leave the scene budget are skipped.
func (m *PositionMap) OptimizeLayout() OptimizeResult {
	var res OptimizeResult
	pairs := m.conflictPairs()
	for res.Iterations < m.opts.MaxIterations && len(pairs) > 0 {
		worst := pairs[0]
		a, b := m.elements[worst.A], m.elements[worst.B]
		victim := b
		if a.Priority < b.Priority {
			victim = a
		}

		before := m.penalty(victim)
		mv := m.resolve(victim, true)
		after := m.penalty(victim)
		m.dirty = true

		res.Iterations++
		res.PenaltyResolved += worst.Penalty
		res.Moves = append(res.Moves, mv)
		m.logger.Debug("optimizer move",
			"iteration", res.Iterations,
			"pair", worst.A+"/"+worst.B,
			"moved", victim.Key,
			"strategy", mv.Strategy,
			"penalty_before", before,
			"penalty_after", after)

		pairs = m.conflictPairs()
	}

	res.RemainingPairs = len(pairs)
	res.RemainingCollisions = len(m.DetectAllCollisions())
	res.Converged = len(pairs) == 0

	observability.Layout().OnOptimize(res.Iterations, res.RemainingCollisions, res.Converged)
	m.logger.Debug("optimized layout",
		"iterations", res.Iterations,
		"penalty_resolved", res.PenaltyResolved,
		"remaining", res.RemainingCollisions)
	return res
}
