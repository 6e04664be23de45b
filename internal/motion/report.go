package motion

import (
	"fmt"
	"strings"
	"time"
)

const reportTimeLayout = "2006-01-02 15:04:05"

// ReportInput gathers what the motion analysis report describes.
type ReportInput struct {
	WorkID      string
	GeneratedAt time.Time
	Plan        Plan
	// Timeline is nil when the plan is disabled.
	Timeline *Timeline
}

// Report renders the human-readable motion analysis shown next to a finished video.
func Report(in ReportInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Motion analysis report - task %s\n", in.WorkID)
	fmt.Fprintf(&b, "Generated at: %s\n\n", in.GeneratedAt.Format(reportTimeLayout))
	fmt.Fprintf(&b, "Mode: %s\n", in.Plan.Mode)
	fmt.Fprintf(&b, "Intensity: %.1f\n\n", in.Plan.Intensity)

	if !in.Plan.Enabled {
		b.WriteString("Random head motion: off\n")
		b.WriteString("Expected result: default facial control with natural lip sync\n")
	} else {
		writePlan(&b, in.Plan)

		if in.Timeline != nil {
			fmt.Fprintf(&b, "Segments generated: %d over %.1fs\n", in.Timeline.Len(), in.Timeline.Duration())
			b.WriteString(Summary(in.Timeline))
		}
	}

	b.WriteString("\nTechnical parameters:\n")

	if in.Plan.Enabled {
		b.WriteString("- random motion generation: on\n")
	} else {
		b.WriteString("- default processing mode: on\n")
	}

	b.WriteString("- switching: weighted random per segment\n")
	fmt.Fprintf(&b, "- intensity multiplier: %gx\n", in.Plan.Intensity)
	b.WriteString("\nNote: every generation draws a new timeline unless a seed is fixed.\n")

	return b.String()
}

func writePlan(b *strings.Builder, plan Plan) {
	cfg := plan.Config
	weights := cfg.NormalizedWeights()

	fmt.Fprintf(b, "Weights: still(%.2f) nod(%.2f) tilt(%.2f)\n", weights[Still], weights[Nod], weights[Tilt])
	fmt.Fprintf(b, "Switch interval: %.1f-%.1fs\n", cfg.SwitchInterval.Min, cfg.SwitchInterval.Max)

	if weights[Nod] > 0 {
		fmt.Fprintf(b, "Nod amplitude: ±%.1f° ~ ±%.1f°\n", cfg.NodRange.Min, cfg.NodRange.Max)
	}

	if weights[Tilt] > 0 {
		fmt.Fprintf(b, "Tilt amplitude: ±%.1f° ~ ±%.1f°\n", cfg.TiltRange.Min, cfg.TiltRange.Max)
	}
}

// Summary lists every segment on its own line.
func Summary(tl *Timeline) string {
	var b strings.Builder

	for _, seg := range tl.segments {
		fmt.Fprintf(&b, "  #%d %-5s %.1fs - %.1fs (%.1fs)", seg.ID, seg.Kind, seg.Start, seg.End, seg.Duration())

		switch seg.Kind {
		case Nod:
			fmt.Fprintf(&b, " amplitude ±%.1f° frequency %.1fHz starts %s",
				seg.Params.Amplitude, seg.Params.Frequency, nodStart(seg.Params.Direction))
		case Tilt:
			fmt.Fprintf(&b, " roll %.1f°", seg.Params.Amplitude*float64(seg.Params.Direction))
		}

		b.WriteString("\n")
	}

	return b.String()
}

func nodStart(direction int) string {
	if direction < 0 {
		return "down"
	}

	return "up"
}
