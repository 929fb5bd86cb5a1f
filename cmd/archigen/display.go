package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	t "archigen/internal/types"
)

var (
	colorSuccess = lipgloss.Color("#22c55e")
	colorWarning = lipgloss.Color("#f59e0b")
	colorError   = lipgloss.Color("#ef4444")
	colorInfo    = lipgloss.Color("#38bdf8")
	colorMuted   = lipgloss.Color("#6b7280")

	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	styleInfo    = lipgloss.NewStyle().Foreground(colorInfo)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	styleHeading = lipgloss.NewStyle().Bold(true).Underline(true)
	styleBox     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1)
)

func statusStyle(s t.ComplianceStatus) lipgloss.Style {
	switch s {
	case t.StatusCompliant:
		return styleSuccess
	case t.StatusWarning:
		return styleWarning
	default:
		return styleError
	}
}

func renderPlan(plan t.GeneratedPlan) string {
	a := plan.Analysis
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", styleHeading.Render("Room schedule"))
	for _, r := range a.RoomDimensions {
		fmt.Fprintf(&b, "  %-18s %s x %s  %s\n", r.Name, r.Width, r.Length, styleMuted.Render(r.Area))
		if r.Notes != "" {
			fmt.Fprintf(&b, "  %-18s %s\n", "", styleMuted.Render(r.Notes))
		}
	}

	fmt.Fprintf(&b, "\n%s\n", styleHeading.Render("Bylaw compliance"))
	for _, f := range a.BylawCompliance {
		fmt.Fprintf(&b, "  %s %s\n", statusStyle(f.Status).Render(fmt.Sprintf("[%s]", f.Status)), f.Rule)
		if f.Details != "" {
			fmt.Fprintf(&b, "    %s\n", styleMuted.Render(f.Details))
		}
	}

	summary := fmt.Sprintf("Utilized area: %.0f sq ft\nEfficiency:    %d%%", a.TotalUtilizedArea, a.EfficiencyScore)
	if a.DistributionLogic != "" {
		summary += "\n\n" + a.DistributionLogic
	}
	fmt.Fprintf(&b, "\n%s\n", styleBox.Render(summary))
	return b.String()
}
