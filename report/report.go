// Package report formats a governance verdict for people: score and star
// helpers, decision categories, and Markdown/HTML/terminal renderings.
package report

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/yuin/goldmark"

	"content_governance_client/generator"
)

// MaxStars is the size of the star rating.
const MaxStars = 5

// Category groups decisions for styling.
type Category int

const (
	CategoryNeutral Category = iota
	CategoryPositive
	CategoryCaution
	CategoryNegative
)

func (c Category) String() string {
	switch c {
	case CategoryPositive:
		return "positive"
	case CategoryCaution:
		return "caution"
	case CategoryNegative:
		return "negative"
	default:
		return "neutral"
	}
}

// CategoryOf maps a decision onto a styling category. Unknown or empty
// decisions are neutral.
func CategoryOf(decision string) Category {
	switch decision {
	case generator.DecisionApproved:
		return CategoryPositive
	case generator.DecisionNeedsRevision:
		return CategoryCaution
	case generator.DecisionRejected:
		return CategoryNegative
	default:
		return CategoryNeutral
	}
}

// ScoreCategory bands a [0,1] score the same way the decision badge is
// styled: >= 0.8 positive, >= 0.6 caution, otherwise negative.
func ScoreCategory(score float64) Category {
	switch {
	case math.IsNaN(score):
		return CategoryNeutral
	case score >= 0.8:
		return CategoryPositive
	case score >= 0.6:
		return CategoryCaution
	default:
		return CategoryNegative
	}
}

// Percent renders a [0,1] score as a percentage with one decimal, e.g. 82.0%.
func Percent(score float64) string {
	return fmt.Sprintf("%.1f%%", score*100)
}

// Stars is floor(score*5), clamped to [0, MaxStars].
func Stars(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	n := int(math.Floor(score * MaxStars))
	return min(max(n, 0), MaxStars)
}

// StarBar draws the rating as filled and empty stars.
func StarBar(score float64) string {
	n := Stars(score)
	return strings.Repeat("★", n) + strings.Repeat("☆", MaxStars-n)
}

// Markdown builds the human-readable report for res. Sections whose data is
// missing are left out.
func Markdown(res *generator.GeneratedResult) string {
	var b strings.Builder
	b.WriteString("# Content Generation Report\n\n")
	if res == nil {
		return b.String()
	}

	fd := res.FinalDecision
	if fd != nil && fd.Decision != "" {
		b.WriteString("## Review Status\n\n")
		fmt.Fprintf(&b, "**Decision:** %s\n\n", escapeInline(fd.Decision))
	}

	if res.Body != "" {
		b.WriteString("## Generated Content\n\n")
		b.WriteString(strings.TrimSpace(res.Body))
		b.WriteString("\n\n")
	}

	if fd != nil && len(fd.Summary) > 0 {
		b.WriteString("## Review Analysis\n\n")
		for i, point := range fd.Summary {
			fmt.Fprintf(&b, "%d. %s\n", i+1, escapeInline(point))
		}
		b.WriteString("\n")
	}

	if fd != nil && fd.Score != nil {
		b.WriteString("## Quality Assessment\n\n")
		fmt.Fprintf(&b, "Overall quality score: **%s** %s\n\n", Percent(*fd.Score), StarBar(*fd.Score))
	}

	if fd != nil && !fd.Timestamp.IsZero() {
		fmt.Fprintf(&b, "_Reviewed at %s_\n", fd.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

// HTML renders the Markdown report into a standalone page. Raw HTML in the
// generated text is dropped by the converter.
func HTML(res *generator.GeneratedResult) ([]byte, error) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(res)), &body); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString("Content Generation Report"))
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// escapeInline keeps a single-line value from starting new Markdown blocks.
func escapeInline(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
