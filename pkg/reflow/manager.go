package reflow

import (
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/frame"
	"github.com/matzehuels/sceneguard/pkg/observability"
)

// operationNamespace seeds name-based operation IDs so that replaying the
// same job yields the same IDs.
var operationNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/matzehuels/sceneguard/reflow"))

// Attempt is one step of the fallback chain.
type Attempt struct {
	Strategy    Strategy `json:"strategy"`
	Applied     bool     `json:"applied"`
	Accepted    bool     `json:"accepted"`
	Success     bool     `json:"success"`
	ScoreBefore int      `json:"score_before"`
	ScoreAfter  int      `json:"score_after"`
}

// Operation is the audit record of one ApplyReflowStrategy call. It is never
// modified after it is appended to the history.
type Operation struct {
	ID       string    `json:"operation_id"`
	Scene    string    `json:"scene_id"`
	Strategy Strategy  `json:"strategy"`
	Fallback *Strategy `json:"fallback_strategy,omitempty"`
	Success  bool      `json:"success"`
	Reason   string    `json:"reason"`
	Affected []string  `json:"affected_elements,omitempty"`
	Deferred []string  `json:"deferred_elements,omitempty"`
	Dropped  []string  `json:"dropped_elements,omitempty"`
	Attempts []Attempt `json:"attempts"`

	// Parameters are those of the last attempt.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Resolved returns the strategy that succeeded, if any.
func (op Operation) Resolved() (Strategy, bool) {
	for _, a := range op.Attempts {
		if a.Success {
			return a.Strategy, true
		}
	}
	return 0, false
}

// Result is the scene after remediation.
type Result struct {
	// Operation is nil when the input had no overflow.
	Operation *Operation

	Elements []*element.PositionedElement
	Deferred []*element.PositionedElement
	Dropped  []*element.PositionedElement

	// Overflow is the grade of Elements.
	Overflow Overflow
}

// Manager applies reflow strategies and tracks continuity across scenes.
// It is safe for concurrent use by scenes processed in parallel.
type Manager struct {
	frame  *frame.SafeFrame
	opts   Options
	logger *log.Logger

	mu           sync.Mutex
	continuities map[string]Continuity
	history      []Operation
	perScene     map[string]int
}

// NewManager creates a manager for f. A nil frame uses [frame.Default].
func NewManager(f *frame.SafeFrame, opts Options) *Manager {
	if f == nil {
		f = frame.Default()
	}
	opts.SetDefaults()
	return &Manager{
		frame:        f,
		opts:         opts,
		logger:       opts.Logger,
		continuities: make(map[string]Continuity),
		perScene:     make(map[string]int),
	}
}

// Frame returns the safe frame strategies refit into.
func (m *Manager) Frame() *frame.SafeFrame { return m.frame }

// Options returns the manager's tuning.
func (m *Manager) Options() Options { return m.opts }

// ApplyReflowStrategy remediates a scene. It starts with the strategy that
// matches info.Severity and walks the fallback chain until a strategy leaves
// no overflow (Paginate succeeds whenever it can split). A strategy result is
// kept only if it does not raise the overflow score, so the returned scene is
// never worse than els. When the chain is exhausted the best-effort result is
// returned and the operation is recorded as failed.
//
// els is not modified.
func (m *Manager) ApplyReflowStrategy(scene string, els []*element.PositionedElement, info Overflow) Result {
	initial, ok := info.Severity.Initial()
	if !ok {
		return Result{Elements: cloneAll(els), Overflow: info}
	}

	work := cloneAll(els)
	current := m.CheckOverflow(work)
	op := Operation{
		Scene:    scene,
		Strategy: initial,
		Reason: fmt.Sprintf("overflow severity %s: %d collisions, %d out of bounds, %d crowded regions",
			info.Severity, len(info.Collisions), len(info.OutOfBounds), len(info.CrowdedRegions)),
	}

	var res Result
	affected := make(map[string]bool)
	for s := initial; ; {
		out := m.Execute(s, work)
		after := m.CheckOverflow(out.Elements)

		att := Attempt{Strategy: s, Applied: out.Applied, ScoreBefore: current.Score(), ScoreAfter: after.Score()}
		att.Accepted = out.Applied && after.Score() <= current.Score()
		if att.Accepted {
			work, current = out.Elements, after
			res.Deferred = append(res.Deferred, out.Deferred...)
			res.Dropped = append(res.Dropped, out.Dropped...)
			for _, k := range out.Affected {
				affected[k] = true
			}
		}
		att.Success = att.Accepted && (s == Paginate || !after.HasOverflow())
		op.Attempts = append(op.Attempts, att)
		op.Parameters = out.Params

		observability.Layout().OnReflow(scene, s.String(), att.Success)
		m.logger.Debug("reflow attempt",
			"scene", scene,
			"strategy", s,
			"applied", att.Applied,
			"accepted", att.Accepted,
			"score", att.ScoreAfter)

		if att.Success {
			op.Success = true
			if s != initial {
				f := s
				op.Fallback = &f
			}
			break
		}
		next, ok := s.Fallback()
		if !ok {
			m.logger.Warn("reflow exhausted",
				"scene", scene,
				"severity", current.Severity,
				"remaining", current.Score())
			break
		}
		s = next
	}

	for k := range affected {
		op.Affected = append(op.Affected, k)
	}
	slices.Sort(op.Affected)
	op.Deferred = element.Keys(res.Deferred)
	op.Dropped = element.Keys(res.Dropped)

	m.mu.Lock()
	op.ID = uuid.NewSHA1(operationNamespace, fmt.Appendf(nil, "%s/%d", scene, m.perScene[scene])).String()
	m.perScene[scene]++
	m.history = append(m.history, op)
	m.mu.Unlock()

	res.Operation = &op
	res.Elements = work
	res.Overflow = current
	return res
}

// History returns the recorded operations in call order.
func (m *Manager) History() []Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history)
}
