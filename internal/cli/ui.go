package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/matzehuels/sceneguard/pkg/pipeline"
	"github.com/matzehuels/sceneguard/pkg/reflow"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // primary
	colorGreen  = lipgloss.Color("35")  // clean
	colorYellow = lipgloss.Color("220") // degraded, minor
	colorOrange = lipgloss.Color("208") // moderate
	colorRed    = lipgloss.Color("167") // severe, errors
	colorBlue   = lipgloss.Color("75")  // commands
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

// =============================================================================
// Styles
// =============================================================================

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleSuccess   = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorYellow)
	StyleError     = lipgloss.NewStyle().Foreground(colorRed)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
	styleCommand  = lipgloss.NewStyle().Foreground(colorBlue)
	styleKey      = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

var severityStyles = map[reflow.Severity]lipgloss.Style{
	reflow.SeverityNone:     lipgloss.NewStyle().Foreground(colorGreen),
	reflow.SeverityMinor:    lipgloss.NewStyle().Foreground(colorYellow),
	reflow.SeverityModerate: lipgloss.NewStyle().Foreground(colorOrange),
	reflow.SeveritySevere:   lipgloss.NewStyle().Foreground(colorRed),
}

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Println(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Println(styleKey.Render(key) + " " + StyleValue.Render(value))
}

func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

func printNewline() { fmt.Println() }

// =============================================================================
// Result Summaries
// =============================================================================

// printStats prints result statistics on a single line.
func printStats(s pipeline.Stats, cached bool) {
	parts := []string{
		fmt.Sprintf("%d scenes", s.Scenes),
		fmt.Sprintf("%d elements", s.Elements),
	}
	if s.Reflows > 0 {
		parts = append(parts, fmt.Sprintf("%d reflows", s.Reflows))
	}
	if s.Collisions > 0 {
		parts = append(parts, StyleWarning.Render(fmt.Sprintf("%d collisions", s.Collisions)))
	}
	if s.Unresolved > 0 {
		parts = append(parts, StyleWarning.Render(fmt.Sprintf("%d unresolved", s.Unresolved)))
	}

	status, statusStyle := iconFresh, styleComputed
	if cached {
		status, statusStyle = iconCached, styleCached
	}
	parts = append(parts, statusStyle.Render(status))
	fmt.Println("  " + strings.Join(parts, StyleDim.Render(" · ")))
}

func severityLabel(s reflow.Severity) string {
	return severityStyles[s].Render(s.String())
}

func statusLabel(status string) string {
	if status == pipeline.StatusDegraded {
		return StyleWarning.Render(status)
	}
	return StyleSuccess.Render(status)
}

// printScenes prints one row per output scene.
func printScenes(res *pipeline.Result) {
	rows := make([][]string, 0, len(res.Scenes))
	for _, s := range res.Scenes {
		var strategies []string
		for _, op := range s.Operations {
			if st, ok := op.Resolved(); ok {
				strategies = append(strategies, st.String())
			}
		}
		rows = append(rows, []string{
			s.ID,
			fmt.Sprintf("%.2f–%.2f", s.Start, s.End),
			fmt.Sprint(len(s.Elements())),
			severityLabel(s.Overflow.Severity),
			strings.Join(strategies, ","),
			fmt.Sprint(s.Report.TotalCollisions),
			statusLabel(s.Status),
		})
	}
	fmt.Println(renderTable(
		[]string{"Scene", "Time", "Elements", "Overflow", "Reflow", "Collisions", "Status"},
		rows,
		[]text.Align{text.AlignLeft, text.AlignRight, text.AlignRight, text.AlignLeft, text.AlignLeft, text.AlignRight, text.AlignLeft},
	))
}

// =============================================================================
// Tables
// =============================================================================

// renderTable lays out rows with go-pretty's rounded style. Missing cells
// render empty; aligns apply per column and default to left.
func renderTable(headers []string, rows [][]string, aligns []text.Align) string {
	if len(headers) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if !isTerminal() {
		tw.Style().Options.DrawBorder = false
	}

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, len(headers))
	for i := range configs {
		align := text.AlignLeft
		if i < len(aligns) {
			align = aligns[i]
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
