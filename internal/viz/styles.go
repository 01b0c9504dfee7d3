package viz

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/boxclim/internal/metrics"
)

var (
	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))

	MetricValue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	MetricLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899"))

	KeyHint = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688")).
		Italic(true)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#444466"))

	SparkHigh = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	SparkMid  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00"))
	SparkLow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

// ProgressBar renders percent (0 to 1) as a bar of width cells.
func ProgressBar(percent float64, width int) string {
	filled := int(percent * float64(width))
	filled = max(0, min(filled, width))

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	if percent > 0.8 {
		return SparkHigh.Render(bar)
	} else if percent > 0.4 {
		return SparkMid.Render(bar)
	}
	return SparkLow.Render(bar)
}

// SparklineChart renders a mini sparkline from values
func SparklineChart(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	// Sample to fit width
	step := max(len(values)/width, 1)

	var result strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - lo) / rng
		idx := max(0, min(int(norm*float64(len(chars)-1)), len(chars)-1))
		c := string(chars[idx])
		switch {
		case norm > 0.7:
			result.WriteString(SparkHigh.Render(c))
		case norm > 0.3:
			result.WriteString(SparkMid.Render(c))
		default:
			result.WriteString(SparkLow.Render(c))
		}
	}
	return result.String()
}

// BoxWithTitle renders a titled box
func BoxWithTitle(title, content string, width int) string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(CurrentTheme.Secondary)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Width(width).
		Padding(0, 1)

	header := "╭─ " + titleStyle.Render(title) + " " + strings.Repeat("─", max(width-len(title)-6, 0)) + "╮"
	return header + "\n" + box.Render(content)
}

func Separator(width int) string {
	mid := width / 2
	left := strings.Repeat("─", max(mid-3, 0))
	right := strings.Repeat("─", max(width-mid-3, 0))
	return Subtle.Render(left + " ◆ " + right)
}

// Summary renders the first and last value, the change and a sparkline of
// each named series.
func Summary(title string, res *metrics.Result, names []string) string {
	if len(names) == 0 {
		names = res.Names()
	}
	var sb strings.Builder
	if n := len(res.Years); n > 0 {
		fmt.Fprintf(&sb, "%s %g-%g (%d years)\n\n", MetricLabel.Render("period"), res.Years[0], res.Years[n-1], n)
	}
	for _, name := range names {
		s, ok := res.Series[name]
		if !ok || len(s) == 0 {
			continue
		}
		first, last := s[0], s[len(s)-1]
		fmt.Fprintf(&sb, "%s %s %s %s\n",
			MetricLabel.Render(fmt.Sprintf("%-16s", name)),
			MetricValue.Render(fmt.Sprintf("%12.4g", last)),
			Subtle.Render(fmt.Sprintf("%+10.3g %-9s", last-first, res.Units[name])),
			SparklineChart(s, 24))
	}
	if len(res.Metrics) > 0 {
		sb.WriteString("\n" + Separator(60) + "\n")
		for _, k := range slices.Sorted(maps.Keys(res.Metrics)) {
			fmt.Fprintf(&sb, "%s %s\n", MetricLabel.Render(fmt.Sprintf("%-16s", k)), MetricValue.Render(fmt.Sprintf("%.4g", res.Metrics[k])))
		}
	}
	return BoxWithTitle(title, strings.TrimRight(sb.String(), "\n"), 72)
}
