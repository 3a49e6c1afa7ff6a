// Package render flattens the timeline store into a renderable frame
// (rows of label + sparkline + latency + a filtered problems block)
// and then paints that frame to a terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/hydraping/hydraping/internal/endpoint"
	"github.com/hydraping/hydraping/internal/probeadapter"
	"github.com/hydraping/hydraping/internal/timeline"
)

// Color is a display-agnostic color bin; the terminal writer maps
// these onto real ANSI colors (or drops them entirely on NO_COLOR /
// non-TTY output).
type Color int

const (
	ColorNone Color = iota
	ColorDim
	ColorDimYellow
	ColorGreen
	ColorYellow
	ColorOrange
	ColorRed
)

// Latency-to-color thresholds, fixed rather than configurable.
const (
	latencyGreenMaxMS  = 50.0
	latencyYellowMaxMS = 100.0
	latencyOrangeMaxMS = 200.0
	binSizeMS          = 25.0
	numBins            = 8
)

// Cell is one sparkline position.
type Cell struct {
	Glyph rune
	Color Color
}

var blockGlyphs = [numBins]rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

func cellForPick(pick timeline.PrimaryPick) Cell {
	if pick.Empty {
		return Cell{Glyph: '.', Color: ColorDim}
	}

	r := pick.Result
	if r.Status == probeadapter.StatusCanceled {
		return Cell{Glyph: '.', Color: ColorDim}
	}
	if r.Status != probeadapter.StatusOk {
		return Cell{Glyph: '!', Color: ColorRed}
	}
	if r.Unverified {
		return Cell{Glyph: '.', Color: ColorDimYellow}
	}

	bin := int(r.LatencyMS / binSizeMS)
	if bin >= numBins {
		bin = numBins - 1
	}
	if bin < 0 {
		bin = 0
	}

	color := ColorRed
	switch {
	case r.LatencyMS < latencyGreenMaxMS:
		color = ColorGreen
	case r.LatencyMS < latencyYellowMaxMS:
		color = ColorYellow
	case r.LatencyMS < latencyOrangeMaxMS:
		color = ColorOrange
	}
	return Cell{Glyph: blockGlyphs[bin], Color: color}
}

// Row is one endpoint's rendered line.
type Row struct {
	Label       string
	Cells       []Cell
	LatencyText string
}

// Frame is a full renderable snapshot: rows plus the suppression-
// filtered problems block.
type Frame struct {
	Rows         []Row
	ProblemLines []string
	ShowGraph    bool
	LabelWidth   int
	GraphWidth   int
}

// BuildFrame computes column widths from terminal width T once, then
// renders each endpoint's row and the global problems block.
func BuildFrame(endpoints []endpoint.Endpoint, store *timeline.Store, termWidth int, globalNotices []string) Frame {
	const latencyWidth = 14

	maxLabel := 0
	for _, ep := range endpoints {
		if l := len(ep.Label); l > maxLabel {
			maxLabel = l
		}
	}
	labelWidth := maxLabel
	if capped := int(float64(termWidth) * 0.4); capped < labelWidth {
		labelWidth = capped
	}
	if labelWidth < 0 {
		labelWidth = 0
	}

	graphWidth := termWidth - labelWidth - latencyWidth - 2
	showGraph := graphWidth >= 8
	if !showGraph {
		graphWidth = 0
	}

	frame := Frame{
		ShowGraph:  showGraph,
		LabelWidth: labelWidth,
		GraphWidth: graphWidth,
	}

	problems := append([]string{}, globalNotices...)

	for _, ep := range endpoints {
		buckets := store.Snapshot(ep.ID)
		row := Row{Label: padLabel(ep.Label, labelWidth)}

		if showGraph {
			row.Cells = buildCells(ep, buckets, graphWidth)
		}

		row.LatencyText = latencyText(ep, buckets)

		if latest, ok := timeline.MostRecentNonEmpty(buckets); ok {
			for _, p := range timeline.Problems(latest) {
				problems = append(problems, fmt.Sprintf("  • %s: %s", ep.Label, p.Message))
			}
		}

		frame.Rows = append(frame.Rows, row)
	}

	frame.ProblemLines = problems
	return frame
}

func padLabel(label string, width int) string {
	if len(label) > width {
		if width <= 1 {
			return label[:width]
		}
		return label[:width-1] + "…"
	}
	return strings.Repeat(" ", width-len(label)) + label
}

// buildCells renders the window oldest->newest, left-padding with dim
// placeholders while the ring hasn't filled yet, producing a
// right-to-left scroll effect as the window fills.
func buildCells(ep endpoint.Endpoint, buckets []timeline.SampleBucket, width int) []Cell {
	cells := make([]Cell, width)
	for i := range cells {
		cells[i] = Cell{Glyph: '.', Color: ColorDim}
	}

	visible := buckets
	if len(visible) > width {
		visible = visible[len(visible)-width:]
	}
	offset := width - len(visible)
	for i, b := range visible {
		pick := timeline.SelectPrimary(ep, b)
		cells[offset+i] = cellForPick(pick)
	}
	return cells
}

func latencyText(ep endpoint.Endpoint, buckets []timeline.SampleBucket) string {
	agg := timeline.Aggregate(ep, buckets)
	checkName := primaryCheckName(ep, buckets)

	if !agg.HasLatencyLast {
		return fmt.Sprintf("%6s (%s)", "--", checkName)
	}
	return fmt.Sprintf("%6.1fms (%s)", agg.LatencyLast, checkName)
}

func primaryCheckName(ep endpoint.Endpoint, buckets []timeline.SampleBucket) string {
	if latest, ok := timeline.MostRecentNonEmpty(buckets); ok {
		pick := timeline.SelectPrimary(ep, latest)
		if !pick.Empty {
			return strings.ToUpper(pick.Result.CheckKind.String())
		}
	}
	if ep.PrimaryCheckOverride != nil {
		return strings.ToUpper(ep.PrimaryCheckOverride.String())
	}
	return "--"
}
