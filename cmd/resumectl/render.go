package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"resume-insights/internal/scoring"
	"resume-insights/internal/skillgap"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle = lipgloss.NewStyle().Width(22).Foreground(lipgloss.Color("245"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	goodStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	fairStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	poorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// scoreStyle colours a score the way the dashboard does: 80+ good, 60+ fair.
func scoreStyle(v int) lipgloss.Style {
	switch {
	case v >= 80:
		return goodStyle
	case v >= 60:
		return fairStyle
	default:
		return poorStyle
	}
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func scoreRow(label string, v int) string {
	return row(label, scoreStyle(v).Render(fmt.Sprintf("%3d / %d", v, scoring.MaxScore)))
}

func renderScores(s scoring.Scores, b *scoring.Breakdown) string {
	lines := []string{
		titleStyle.Render("Résumé score"),
		scoreRow("ATS", s.ATS),
		scoreRow("Clarity", s.Clarity),
		scoreRow("Overall", s.Overall),
	}
	if b != nil {
		lines = append(lines, "",
			titleStyle.Render("Breakdown"),
			row("Skills", fmt.Sprint(b.SkillCount)),
			row("Known tools", fmt.Sprint(b.FoundTools)),
			row("Industry keywords", fmt.Sprint(b.FoundKeywords)),
			row("Action verbs", fmt.Sprint(b.FoundActions)),
			row("Passive phrases", fmt.Sprint(b.PassiveMatches)),
			row("Quantified results", fmt.Sprint(b.NumberMentions)),
			row("Experience length", fmt.Sprint(b.ExperienceLength)),
			row("Avg sentence words", fmt.Sprintf("%.1f", b.AvgSentenceLength)),
			row("Bullets", yesNo(b.HasBullets)),
			row("Degree", yesNo(b.HasDegree)),
			row("Complete structure", yesNo(b.StructureComplete)),
			row("Clear language", yesNo(b.ClearLanguage)),
			row("Raw ATS / clarity", fmt.Sprintf("%d / %d", b.ATSRaw, b.ClarityRaw)),
		)
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func renderCatalogue(skills []skillgap.Skill) string {
	lines := []string{titleStyle.Render("Skill catalogue")}
	for _, s := range skills {
		lines = append(lines, row(s.Name, fmt.Sprintf("%-6s demand %3d  level %d→%d  %d courses",
			s.Importance, s.DemandScore, s.CurrentLevel, s.RequiredLevel, len(s.Courses))))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
