package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abdidvp/luaguard/internal/domain"
)

var sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)

// RenderBatch renders a summary table for a batch, followed by a section
// for every item that did not pass cleanly.
func RenderBatch(batch *domain.BatchResult) string {
	var b strings.Builder

	stats := batch.Stats
	summary := titleStyle.Render(fmt.Sprintf("%d scripts", stats.Total)) + "  " +
		passStyle.Render(fmt.Sprintf("%d passed", stats.Passed)) + "  " +
		failStyle.Render(fmt.Sprintf("%d failed", stats.Failed)) + "  " +
		warnStyle.Render(fmt.Sprintf("%d errored", stats.Errored))
	avg := dimStyle.Render(fmt.Sprintf("average score %.1f", stats.AverageScore))

	b.WriteString(boxStyle.Render(headerStyle.Render("luaguard") + "\n\n" + summary + "\n" + avg))
	b.WriteString("\n\n")

	for _, item := range batch.Items {
		icon := lipgloss.NewStyle().Foreground(statusColor(item.Status)).Render("●")
		score := "    -"
		if item.Report != nil {
			score = fmt.Sprintf("%5.1f", item.Report.OverallScore)
		}
		fmt.Fprintf(&b, "    %s %s  %s  %s\n",
			icon,
			lipgloss.NewStyle().Foreground(statusColor(item.Status)).Render(padRight(string(item.Status), 20)),
			dimStyle.Render(score),
			fileStyle.Render(shortenPath(item.ScriptName)),
		)
	}

	for _, item := range batch.Items {
		renderItemDetail(&b, item)
	}

	b.WriteString("\n")
	return b.String()
}

func renderItemDetail(b *strings.Builder, item domain.BatchItem) {
	switch {
	case item.Error != nil:
		b.WriteString("\n")
		fmt.Fprintf(b, "  %s\n", sectionHeaderStyle.Render(shortenPath(item.ScriptName)))
		fmt.Fprintf(b, "    %s %s\n", failStyle.Render("●"), item.Error.Message)
	case item.Report != nil && (len(item.Report.CriticalIssues) > 0 || len(item.Report.Warnings) > 0):
		b.WriteString("\n")
		fmt.Fprintf(b, "  %s %s\n",
			sectionHeaderStyle.Render(shortenPath(item.ScriptName)),
			dimStyle.Render(fmt.Sprintf("(%d)", len(item.Report.CriticalIssues)+len(item.Report.Warnings))),
		)
		for _, line := range item.Report.CriticalIssues {
			fmt.Fprintf(b, "    %s %s\n", failStyle.Render("●"), line)
		}
		for _, line := range item.Report.Warnings {
			fmt.Fprintf(b, "    %s %s\n", warnStyle.Render("●"), line)
		}
	}
}
