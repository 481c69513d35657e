package cli

import (
	"fmt"
	"math"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/pipeline"
	"github.com/matzehuels/sceneguard/pkg/posmap"
)

// Scrubber styles
var (
	inspectOverlapStyle = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	inspectSafeStyle    = lipgloss.NewStyle().Foreground(colorDim)
	inspectBoxStyle     = lipgloss.NewStyle().Foreground(colorCyan)
	inspectHelpStyle    = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	gridCols = 70
	gridRows = 20

	cellEmpty   = ' '
	cellSafe    = '·'
	cellOverlap = '#'
)

var stepSizes = []float64{0.1, 0.25, 0.5, 1, 2}

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		runID string
		flags runnerFlags
	)

	cmd := &cobra.Command{
		Use:   "inspect [plan.yaml]",
		Short: "Scrub through a laid-out plan in the terminal",
		Long: `Open an interactive view of a laid-out plan.

  ←/→ h/l    step backward or forward in time
  +/-        change the step size
  home/end   jump to the start or end of the scene
  tab        next scene, shift+tab previous scene
  q          quit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) > 0 {
				input = args[0]
			}
			flags.noStore = true
			res, err := c.loadResult(cmd.Context(), input, runID, flags)
			if err != nil {
				return err
			}
			m, err := newInspectModel(res)
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "inspect a recorded run instead of a plan")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable the result cache")
	return cmd
}

// =============================================================================
// inspectModel - Interactive timeline scrubber
// =============================================================================

type inspectScene struct {
	result *pipeline.SceneResult
	pm     *posmap.PositionMap
}

func (s inspectScene) duration() float64 { return s.result.End - s.result.Start }

type inspectModel struct {
	scenes []inspectScene
	scene  int
	at     float64 // seconds from the start of the current scene
	step   int     // index into stepSizes
	width  int
}

func newInspectModel(res *pipeline.Result) (inspectModel, error) {
	m := inspectModel{step: 2, width: gridCols}
	for i := range res.Scenes {
		sr := &res.Scenes[i]
		pm, err := sr.Map(posmap.Options{})
		if err != nil {
			return m, fmt.Errorf("scene %s: %w", sr.ID, err)
		}
		m.scenes = append(m.scenes, inspectScene{result: sr, pm: pm})
	}
	if len(m.scenes) == 0 {
		return m, fmt.Errorf("plan has no scenes")
	}
	return m, nil
}

func (m inspectModel) Init() tea.Cmd { return nil }

func (m inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		cur := m.scenes[m.scene]
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "right", "l":
			m.at = math.Min(m.at+stepSizes[m.step], cur.duration())
		case "left", "h":
			m.at = math.Max(m.at-stepSizes[m.step], 0)
		case "home", "g":
			m.at = 0
		case "end", "G":
			m.at = cur.duration()
		case "+", "=":
			m.step = min(m.step+1, len(stepSizes)-1)
		case "-":
			m.step = max(m.step-1, 0)
		case "tab", "n":
			m.scene = (m.scene + 1) % len(m.scenes)
			m.at = math.Min(m.at, m.scenes[m.scene].duration())
		case "shift+tab", "p":
			m.scene = (m.scene + len(m.scenes) - 1) % len(m.scenes)
			m.at = math.Min(m.at, m.scenes[m.scene].duration())
		}
	case tea.WindowSizeMsg:
		m.width = max(min(msg.Width-4, gridCols), 20)
	}
	return m, nil
}

func (m inspectModel) View() string {
	cur := m.scenes[m.scene]
	t := cur.result.Start + m.at

	var b strings.Builder
	b.WriteString(StyleTitle.Render(fmt.Sprintf("Scene %s", cur.result.ID)))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %d/%d", m.scene+1, len(m.scenes))))
	b.WriteString("  ")
	b.WriteString(StyleValue.Render(fmt.Sprintf("t = %.2fs / %.2fs", m.at, cur.duration())))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  step %.2fs", stepSizes[m.step])))
	b.WriteString("\n\n")

	active := sortedActive(cur.pm, t)
	rows := max(m.width*gridRows/gridCols, 6)
	grid := rasterize(cur.pm, active, m.width, rows)
	b.WriteString(renderGrid(grid))
	b.WriteString("\n")

	b.WriteString(legend(active))
	b.WriteString("\n")

	if cs := cur.pm.CollisionsAt(t); len(cs) > 0 {
		b.WriteString(collisionTable(cs))
		b.WriteString("\n")
	} else {
		b.WriteString(StyleSuccess.Render(iconSuccess + " no overlaps at this instant"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(inspectHelpStyle.Render("←/→ step  +/- step size  home/end jump  tab scene  q quit"))
	return b.String()
}

// =============================================================================
// Rendering helpers
// =============================================================================

// sortedActive returns the elements visible at t, back to front.
func sortedActive(pm *posmap.PositionMap, t float64) []*element.PositionedElement {
	active := pm.ActiveAt(t)
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Bounds.Z != active[j].Bounds.Z {
			return active[i].Bounds.Z < active[j].Bounds.Z
		}
		return active[i].Key < active[j].Key
	})
	return active
}

// label returns the glyph drawn for the i-th active element.
func label(i int) rune {
	const glyphs = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	return rune(glyphs[i%len(glyphs)])
}

// rasterize maps the canvas onto a cols×rows character grid. Row 0 is the
// top of the canvas. Cells covered by more than one element are marked with
// cellOverlap; the safe area outline shows where no element is drawn.
func rasterize(pm *posmap.PositionMap, active []*element.PositionedElement, cols, rows int) [][]rune {
	canvas := pm.Frame().Canvas()
	safe := pm.Frame().SafeBounds()
	sx := float64(cols) / canvas.Width()
	sy := float64(rows) / canvas.Height()

	col := func(x float64) int { return clampInt(int(math.Floor((x-canvas.XMin)*sx)), 0, cols-1) }
	row := func(y float64) int { return clampInt(int(math.Floor((canvas.YMax-y)*sy)), 0, rows-1) }

	grid := make([][]rune, rows)
	hits := make([][]int, rows)
	for r := range grid {
		grid[r] = make([]rune, cols)
		hits[r] = make([]int, cols)
		for c := range grid[r] {
			grid[r][c] = cellEmpty
		}
	}

	x0, x1, y0, y1 := col(safe.XMin), col(safe.XMax), row(safe.YMax), row(safe.YMin)
	for c := x0; c <= x1; c++ {
		grid[y0][c], grid[y1][c] = cellSafe, cellSafe
	}
	for r := y0; r <= y1; r++ {
		grid[r][x0], grid[r][x1] = cellSafe, cellSafe
	}

	for i, e := range active {
		b := e.Bounds
		if b.Degenerate() {
			continue
		}
		c0, c1 := col(b.XMin), col(b.XMax-1e-9)
		r0, r1 := row(b.YMax-1e-9), row(b.YMin)
		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				hits[r][c]++
				if hits[r][c] > 1 {
					grid[r][c] = cellOverlap
				} else {
					grid[r][c] = label(i)
				}
			}
		}
	}
	return grid
}

func renderGrid(grid [][]rune) string {
	var b strings.Builder
	for _, row := range grid {
		for _, ch := range row {
			s := string(ch)
			switch ch {
			case cellEmpty:
				b.WriteString(s)
			case cellSafe:
				b.WriteString(inspectSafeStyle.Render(s))
			case cellOverlap:
				b.WriteString(inspectOverlapStyle.Render(s))
			default:
				b.WriteString(inspectBoxStyle.Render(s))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func legend(active []*element.PositionedElement) string {
	if len(active) == 0 {
		return StyleDim.Render("nothing on screen")
	}
	parts := make([]string, len(active))
	for i, e := range active {
		name := e.Key
		if e.Unresolved {
			name = StyleError.Render(name)
		}
		parts[i] = inspectBoxStyle.Render(string(label(i))) + " " + name
	}
	return strings.Join(parts, StyleDim.Render("  "))
}

func collisionTable(cs []posmap.Collision) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("A", "B", "Overlap", "Severity")
	for _, c := range cs {
		t.Row(c.A, c.B, fmt.Sprintf("%.3f", c.OverlapArea), string(c.Severity))
	}
	return t.Render()
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
