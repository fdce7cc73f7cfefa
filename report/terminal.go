package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"content_governance_client/generator"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	starStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	badgeBase    = lipgloss.NewStyle().Bold(true).Padding(0, 1)

	categoryColors = map[Category]lipgloss.Color{
		CategoryPositive: lipgloss.Color("35"),
		CategoryCaution:  lipgloss.Color("214"),
		CategoryNegative: lipgloss.Color("203"),
		CategoryNeutral:  lipgloss.Color("250"),
	}
)

// Badge styles a decision label by its category.
func Badge(decision string) string {
	if decision == "" {
		decision = "Unknown"
	}
	return badgeBase.Foreground(categoryColors[CategoryOf(decision)]).Render(decision)
}

// Render writes a terminal view of res: decision badge, generated text,
// numbered findings, and the quality score.
func Render(w io.Writer, res *generator.GeneratedResult) error {
	var b strings.Builder
	if res == nil {
		b.WriteString(mutedStyle.Render("No content generated yet."))
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	fd := res.FinalDecision
	if fd != nil {
		fmt.Fprintf(&b, "%s %s\n\n", headingStyle.Render("Content Review Status"), Badge(fd.Decision))
	}

	if res.Body != "" {
		b.WriteString(headingStyle.Render("Generated Content"))
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(res.Body))
		b.WriteString("\n\n")
	}

	if fd != nil && len(fd.Summary) > 0 {
		b.WriteString(headingStyle.Render("Review Analysis"))
		b.WriteString("\n")
		for i, point := range fd.Summary {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, point)
		}
		b.WriteString("\n")
	}

	if fd != nil && fd.Score != nil {
		score := *fd.Score
		pct := lipgloss.NewStyle().Bold(true).Foreground(categoryColors[ScoreCategory(score)]).Render(Percent(score))
		fmt.Fprintf(&b, "%s %s %s\n", headingStyle.Render("Overall Quality Score"), pct, starStyle.Render(StarBar(score)))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
