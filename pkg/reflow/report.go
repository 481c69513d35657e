package reflow

import (
	"cmp"
	"fmt"
	"slices"
)

// StrategyStats aggregates the attempts made with one strategy.
type StrategyStats struct {
	Count       int     `json:"count"`
	Success     int     `json:"success"`
	SuccessRate float64 `json:"success_rate"`
}

// Report summarizes the manager's history.
type Report struct {
	TotalOperations       int                      `json:"total_reflow_operations"`
	SuccessfulOperations  int                      `json:"successful_operations"`
	SuccessRate           float64                  `json:"success_rate"`
	StrategyStatistics    map[string]StrategyStats `json:"strategy_statistics"`
	ElementContinuities   int                      `json:"element_continuities"`
	SceneTransitions      int                      `json:"scene_transitions"` // set by the caller that plans them
	MostEffectiveStrategy string                   `json:"most_effective_strategy"`
	Recommendations       []string                 `json:"recommendations"`
}

const (
	highFailureRate     = 0.3
	frequentPagination  = 3
	repeatedRemediation = 2
)

// GenerateReflowReport aggregates success rates per strategy over every
// attempt in the history and flags elements that keep needing remediation.
func (m *Manager) GenerateReflowReport() Report {
	m.mu.Lock()
	history := slices.Clone(m.history)
	r := Report{
		TotalOperations:     len(history),
		StrategyStatistics:  make(map[string]StrategyStats),
		ElementContinuities: len(m.continuities),
	}
	m.mu.Unlock()

	var paginations int
	touched := make(map[string]int)
	for _, op := range history {
		if op.Success {
			r.SuccessfulOperations++
		}
		for _, a := range op.Attempts {
			st := r.StrategyStatistics[a.Strategy.String()]
			st.Count++
			if a.Success {
				st.Success++
			}
			r.StrategyStatistics[a.Strategy.String()] = st
			if a.Strategy == Paginate && a.Accepted {
				paginations++
			}
		}
		for _, k := range op.Affected {
			touched[k]++
		}
	}
	if r.TotalOperations > 0 {
		r.SuccessRate = float64(r.SuccessfulOperations) / float64(r.TotalOperations)
	}

	r.MostEffectiveStrategy = "none"
	best := -1.0
	for _, s := range AllStrategies() {
		st, ok := r.StrategyStatistics[s.String()]
		if !ok {
			continue
		}
		st.SuccessRate = float64(st.Success) / float64(st.Count)
		r.StrategyStatistics[s.String()] = st
		if st.SuccessRate > best {
			best, r.MostEffectiveStrategy = st.SuccessRate, s.String()
		}
	}

	r.Recommendations = reflowRecommendations(r, paginations, touched)
	return r
}

func reflowRecommendations(r Report, paginations int, touched map[string]int) []string {
	if r.TotalOperations == 0 {
		return []string{"No reflow operations performed yet"}
	}
	var out []string
	failed := r.TotalOperations - r.SuccessfulOperations
	if float64(failed) > float64(r.TotalOperations)*highFailureRate {
		out = append(out, "High failure rate; consider reducing content density")
	}
	if paginations > frequentPagination {
		out = append(out, fmt.Sprintf("Pagination used %d times; plan less content per scene", paginations))
	}

	type hit struct {
		key string
		n   int
	}
	var hits []hit
	for k, n := range touched {
		if n >= repeatedRemediation {
			hits = append(hits, hit{k, n})
		}
	}
	slices.SortFunc(hits, func(a, b hit) int {
		if c := cmp.Compare(b.n, a.n); c != 0 {
			return c
		}
		return cmp.Compare(a.key, b.key)
	})
	for _, h := range hits {
		out = append(out, fmt.Sprintf("Element %q needed remediation in %d operations", h.key, h.n))
	}
	return out
}
