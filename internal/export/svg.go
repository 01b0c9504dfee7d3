package export

import (
	"fmt"
	"strings"
)

// SeriesToSVG draws one yearly series as a line chart with its title and
// axis range.
func SeriesToSVG(years, values []float64, width, height int, title, strokeColor string) (string, error) {
	if len(years) != len(values) {
		return "", fmt.Errorf("%d years for %d values", len(years), len(values))
	}
	if len(values) < 2 {
		return "", fmt.Errorf("need at least two points, got %d", len(values))
	}

	minX, maxX := years[0], years[0]
	minY, maxY := values[0], values[0]
	for i := range years {
		minX, maxX = min(minX, years[i]), max(maxX, years[i])
		minY, maxY = min(minY, values[i]), max(maxY, values[i])
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	lo, hi := minY, maxY
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	const margin = 40.0
	plotW := float64(width) - 2*margin
	plotH := float64(height) - 2*margin

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<text x="%.0f" y="24" fill="#e0f0ff" font-family="monospace" font-size="14">%s</text>
<text x="4" y="%.0f" fill="#4488aa" font-family="monospace" font-size="10">%.4g</text>
<text x="4" y="%.0f" fill="#4488aa" font-family="monospace" font-size="10">%.4g</text>
<text x="%.0f" y="%d" fill="#4488aa" font-family="monospace" font-size="10">%g</text>
<text x="%.0f" y="%d" fill="#4488aa" font-family="monospace" font-size="10" text-anchor="end">%g</text>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height,
		margin, escape(title),
		margin+plotH*0.1, hi,
		margin+plotH*0.9, lo,
		margin, height-8, years[0],
		margin+plotW, height-8, years[len(years)-1],
		strokeColor)

	for i := range years {
		x := margin + (years[i]-minX)/rangeX*plotW
		y := margin + plotH - (values[i]-minY)/rangeY*plotH
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String(), nil
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
