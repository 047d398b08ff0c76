package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/camml/pkg/search"
	"github.com/matzehuels/camml/pkg/tom"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// Icons
// =============================================================================

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
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

func printNewline() {
	fmt.Println()
}

// =============================================================================
// Search Results
// =============================================================================

// printStats prints the search summary on a single line.
func printStats(res *search.Result, cached bool) {
	var parts []string
	parts = append(parts, fmt.Sprintf("%d variables", res.Nodes))
	if res.Chains > 0 {
		parts = append(parts, fmt.Sprintf("%d×%d epochs", res.Chains, res.Epochs))
		parts = append(parts, fmt.Sprintf("%.0f%% accepted", 100*acceptance(res)))
	} else {
		parts = append(parts, "exhaustive")
	}
	parts = append(parts, fmt.Sprintf("%d SECs", res.SECs))
	if res.Duration > 0 {
		parts = append(parts, res.Duration.Round(time.Millisecond).String())
	}

	status := iconFresh
	statusStyle := styleComputed
	if cached {
		status = iconCached
		statusStyle = styleCached
	}

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	fmt.Println(line + StyleDim.Render(" · ") + statusStyle.Render(status))
}

func acceptance(res *search.Result) float64 {
	total := res.Accepted + res.Rejected
	if total == 0 {
		return 0
	}
	return float64(res.Accepted) / float64(total)
}

// mmlecTable lays out the MMLECs of res, best first.
func mmlecTable(res *search.Result) string {
	rows := make([][]string, len(res.MMLECs))
	for i, m := range res.MMLECs {
		rows[i] = []string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("%.4f", m.Posterior),
			fmt.Sprintf("%.2f", m.BestMML),
			fmt.Sprintf("%.3f", m.RelativePrior),
			fmt.Sprintf("%d", m.SECs),
			arcList(m.Representative, res.Names),
		}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Posterior", "MML (nats)", "Rel. prior", "SECs", "Arcs").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styleHeader
			case row == 0:
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			case col == 5:
				return lipgloss.NewStyle().Foreground(colorGray)
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// printResult prints the summary line and the MMLEC table.
func printResult(res *search.Result, cached bool) {
	printStats(res, cached)
	if res.Interrupted {
		printWarning("Search was interrupted; posteriors cover the samples drawn so far")
	}
	if len(res.MMLECs) == 0 {
		printWarning("No structure could be scored")
		return
	}
	fmt.Println(mmlecTable(res))
}

// arcList formats the arcs of a structure as "A→B, A→C", or "none".
func arcList(p *tom.Params, names []string) string {
	if p == nil {
		return ""
	}
	var arcs []string
	for _, child := range p.Order {
		for _, parent := range p.Nodes[child].Parents {
			arcs = append(arcs, varName(names, parent)+iconArrow+varName(names, child))
		}
	}
	if len(arcs) == 0 {
		return "none"
	}
	return strings.Join(arcs, ", ")
}

func varName(names []string, v int) string {
	if v < len(names) && names[v] != "" {
		return names[v]
	}
	return fmt.Sprintf("X%d", v)
}

// StyleError formats an error message for main, which prints it once.
func StyleError(msg string) string {
	return styleIconError.Render(iconError) + " " + msg
}
