package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abdidvp/luaguard/internal/domain"
)

// ── warm palette ──
var (
	accent  = lipgloss.Color("#D97706") // amber
	fg      = lipgloss.Color("#E8E6E3") // warm light gray
	dim     = lipgloss.Color("#6B7280") // muted gray
	faint   = lipgloss.Color("#3F3F46") // very dim
	success = lipgloss.Color("#22C55E") // green
	lime    = lipgloss.Color("#A3E635")
	danger  = lipgloss.Color("#EF4444") // red
	warning = lipgloss.Color("#F59E0B") // amber-yellow
	orange  = lipgloss.Color("#FB923C")
	info    = lipgloss.Color("#8B949E") // soft blue-gray
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center).
			Width(68)

	statusColors = map[domain.OverallStatus]lipgloss.Color{
		domain.StatusPassed:             success,
		domain.StatusPassedWithWarnings: warning,
		domain.StatusFailed:             danger,
		domain.StatusError:              orange,
	}

	dimStyle       = lipgloss.NewStyle().Foreground(dim)
	faintStyle     = lipgloss.NewStyle().Foreground(faint)
	passStyle      = lipgloss.NewStyle().Foreground(success)
	failStyle      = lipgloss.NewStyle().Foreground(danger)
	warnStyle      = lipgloss.NewStyle().Foreground(warning)
	critTagStyle   = lipgloss.NewStyle().Foreground(danger).Bold(true)
	highTagStyle   = lipgloss.NewStyle().Foreground(orange).Bold(true)
	mediumTagStyle = lipgloss.NewStyle().Foreground(warning).Bold(true)
	lowTagStyle    = lipgloss.NewStyle().Foreground(info)
	fileStyle      = lipgloss.NewStyle().Foreground(dim)
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(fg)
	catNameStyle   = lipgloss.NewStyle().Bold(true).Foreground(fg)
	hintStyle      = lipgloss.NewStyle().Foreground(dim).Italic(true)
	separatorLine  = faintStyle.Render(strings.Repeat("─", 64))
)

// RenderReport formats one validation report for terminal output.
func RenderReport(report *domain.Report) string {
	var b strings.Builder

	// ── Header ──
	title := headerStyle.Render("luaguard")
	subtitle := dimStyle.Render(shortenPath(report.ScriptName))
	color := statusColor(report.OverallStatus)
	scoreStyled := lipgloss.NewStyle().Bold(true).Foreground(color).
		Render(fmt.Sprintf("%.1f / 100", report.OverallScore))
	statusStyled := lipgloss.NewStyle().Bold(true).Foreground(color).
		Render(string(report.OverallStatus))

	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + scoreStyled + "  " + statusStyled))
	b.WriteString("\n\n")

	// ── Readiness ──
	fmt.Fprintf(&b, "  %s  %s  %s\n\n",
		readiness("deployment", report.DeploymentReady),
		readiness("educational", report.EducationalReady),
		readiness("platform", report.PlatformCompliant),
	)

	// ── Checkers ──
	for i, res := range report.Results {
		renderResult(&b, res)
		if i < len(report.Results)-1 {
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString("  " + separatorLine)
	b.WriteString("\n\n")

	// ── Findings ──
	findings := sortBySeverity(report.Findings())
	if len(findings) > 0 {
		b.WriteString("  ")
		b.WriteString(titleStyle.Render("Findings"))
		b.WriteString("  ")
		counts := countSeverities(findings)
		for _, sev := range []domain.Severity{domain.SeverityCritical, domain.SeverityHigh, domain.SeverityMedium, domain.SeverityLow} {
			if n := counts[sev]; n > 0 {
				b.WriteString(severityStyle(sev).Render(fmt.Sprintf("%d %s", n, sev)))
				b.WriteString("  ")
			}
		}
		b.WriteString("\n\n")

		for _, f := range findings {
			renderFinding(&b, f)
		}
	} else {
		b.WriteString("  " + passStyle.Render("No findings.") + "\n")
	}

	if len(report.Recommendations) > 0 {
		b.WriteString("\n  " + titleStyle.Render("Recommendations") + "\n")
		for _, r := range report.Recommendations {
			fmt.Fprintf(&b, "    %s %s\n", dimStyle.Render("›"), r)
		}
	}

	b.WriteString("\n")
	return b.String()
}

func readiness(label string, ok bool) string {
	if ok {
		return passStyle.Render("✓ " + label)
	}
	return failStyle.Render("✗ " + label)
}

func renderResult(b *strings.Builder, res domain.CheckerResult) {
	name := catNameStyle.Render(padRight(string(res.Checker), 14))
	if res.Status == domain.CheckError {
		fmt.Fprintf(b, "  %s %s  %s\n", name, failStyle.Render("error"), faintStyle.Render(res.Error))
		return
	}

	score := int(res.Score)
	scoreText := lipgloss.NewStyle().Bold(true).Foreground(scoreColor(score)).Render(fmt.Sprintf("%5.1f", res.Score))
	line := fmt.Sprintf("  %s %s  %s", name, coloredBar(score, 20), scoreText)
	if res.Label != "" {
		line += "  " + dimStyle.Render(res.Label)
	}
	b.WriteString(line + "\n")

	for _, sm := range res.SubMetrics {
		renderSubMetric(b, sm)
	}
}

func renderSubMetric(b *strings.Builder, sm domain.SubMetric) {
	name := padRight(sm.Name, 34)

	pct := 0
	if sm.Points > 0 {
		pct = sm.Score * 100 / sm.Points
	}

	var icon string
	switch {
	case pct >= 80:
		icon = passStyle.Render("●")
	case pct >= 40:
		icon = warnStyle.Render("●")
	default:
		icon = failStyle.Render("●")
	}

	score := dimStyle.Render(fmt.Sprintf("%d/%d", sm.Score, sm.Points))

	if sm.Detail != "" {
		fmt.Fprintf(b, "    %s %s %s  %s\n", icon, name, score, faintStyle.Render(sm.Detail))
	} else {
		fmt.Fprintf(b, "    %s %s %s\n", icon, name, score)
	}
}

func renderFinding(b *strings.Builder, f domain.Finding) {
	tag := severityStyle(f.Severity).Render(padRight(string(f.Severity), 8))
	loc := string(f.Checker) + " " + f.RuleID
	if f.Line > 0 {
		loc += fmt.Sprintf(" line %d", f.Line)
	}
	fmt.Fprintf(b, "    %s %s\n", tag, fileStyle.Render(loc))
	fmt.Fprintf(b, "             %s\n", dimStyle.Render(f.Message))
	if f.Remediation != "" {
		fmt.Fprintf(b, "             %s\n", hintStyle.Render(f.Remediation))
	}
}

func severityStyle(sev domain.Severity) lipgloss.Style {
	switch sev {
	case domain.SeverityCritical:
		return critTagStyle
	case domain.SeverityHigh:
		return highTagStyle
	case domain.SeverityMedium:
		return mediumTagStyle
	default:
		return lowTagStyle
	}
}

func countSeverities(findings []domain.Finding) map[domain.Severity]int {
	counts := make(map[domain.Severity]int)
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}

// sortBySeverity returns a copy ordered worst first, stable within a level.
func sortBySeverity(findings []domain.Finding) []domain.Finding {
	out := append([]domain.Finding(nil), findings...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Severity.Rank() > out[j-1].Severity.Rank(); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func coloredBar(score, width int) string {
	filled := max(0, min(score*width/100, width))
	empty := width - filled

	color := scoreColor(score)
	filledStr := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
	emptyStr := lipgloss.NewStyle().Foreground(faint).Render(strings.Repeat("░", empty))
	return filledStr + emptyStr
}

func scoreColor(score int) lipgloss.Color {
	switch {
	case score >= 80:
		return success
	case score >= 60:
		return lime
	case score >= 40:
		return warning
	default:
		return danger
	}
}

func statusColor(s domain.OverallStatus) lipgloss.Color {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return fg
}

func shortenPath(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) > 3 {
		return strings.Join(parts[len(parts)-3:], "/")
	}
	return path
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// RenderHistory formats run history for terminal output.
func RenderHistory(entries []domain.HistoryEntry) string {
	if len(entries) == 0 {
		return "  " + dimStyle.Render("No validation history found.") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render("Validation History") + "\n")
	b.WriteString("  " + faintStyle.Render(strings.Repeat("─", 50)) + "\n\n")

	last := make(map[string]float64)
	for _, e := range entries {
		rev := e.Revision
		if len(rev) > 7 {
			rev = rev[:7]
		}
		if rev == "" {
			rev = "·······"
		}
		date := e.Timestamp
		if len(date) > 10 {
			date = date[:10]
		}

		scoreStyled := lipgloss.NewStyle().
			Foreground(scoreColor(int(e.Score))).
			Render(fmt.Sprintf("%5.1f", e.Score))

		line := fmt.Sprintf("  %s  %s  %s  %s  %s",
			dimStyle.Render(date),
			faintStyle.Render(rev),
			scoreStyled,
			lipgloss.NewStyle().Foreground(statusColor(e.Status)).Render(padRight(string(e.Status), 20)),
			shortenPath(e.ScriptName),
		)

		if prev, ok := last[e.ScriptName]; ok {
			diff := e.Score - prev
			if diff > 0 {
				line += "  " + passStyle.Render(fmt.Sprintf("↑%.1f", diff))
			} else if diff < 0 {
				line += "  " + failStyle.Render(fmt.Sprintf("↓%.1f", -diff))
			}
		}
		last[e.ScriptName] = e.Score

		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}
