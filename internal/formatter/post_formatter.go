package formatter

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const headerPrefix = "📈 Rating update"

// FormatRatingUpdate generates the post content for a rating update. Lines
// that would push the post past maxLength runes are replaced by a count of
// the users left out. A contest name too long to leave room for that count
// is shortened, so the result never exceeds maxLength.
func FormatRatingUpdate(contestName string, changes []Change, maxLength int) string {
	lines := make([]string, 0, len(changes))
	for _, c := range changes {
		lines = append(lines, formatChangeLine(c))
	}

	if maxLength > 0 {
		reserve := 0
		if len(lines) > 0 {
			reserve = utf8.RuneCountInString(fmt.Sprintf("…and %d more", len(lines)))
		}
		budget := maxLength - utf8.RuneCountInString(headerPrefix+": \n\n") - reserve
		contestName = shorten(contestName, budget)
	}

	header := headerPrefix
	if contestName != "" {
		header += ": " + contestName
	}
	header += "\n\n"

	content := header + strings.Join(lines, "\n")
	if maxLength <= 0 || utf8.RuneCountInString(content) <= maxLength {
		return content
	}

	// Drop lines from the bottom until the remainder fits with a footer.
	for kept := len(lines) - 1; kept >= 0; kept-- {
		footer := fmt.Sprintf("…and %d more", len(lines)-kept)
		body := strings.Join(append(append([]string(nil), lines[:kept]...), footer), "\n")
		if utf8.RuneCountInString(header+body) <= maxLength {
			return header + body
		}
	}
	return header
}

// PostedContestName returns the contest name as it appears in the header
// of a post built by FormatRatingUpdate, which may be shortened
func PostedContestName(post string) string {
	line, _, _ := strings.Cut(post, "\n")
	name, _ := strings.CutPrefix(line, headerPrefix+": ")
	if name == line {
		return ""
	}
	return name
}

// shorten cuts s to at most n runes, marking the cut with an ellipsis
func shorten(s string, n int) string {
	runes := []rune(s)
	switch {
	case len(runes) <= n:
		return s
	case n <= 1:
		return ""
	default:
		return string(runes[:n-1]) + "…"
	}
}

func formatChangeLine(c Change) string {
	line := fmt.Sprintf("%d. %s %d", c.Rank, c.User, c.Rating)
	if c.IsNew {
		return line + " (new)"
	}
	line += " (" + FormatDiff(c.RatingDiff) + ")"
	if arrow := rankArrow(c.RankDiff); arrow != "" {
		line += " " + arrow
	}
	return line
}

// FormatDiff always shows a sign, with ±0 for no change
func FormatDiff(diff int) string {
	switch {
	case diff > 0:
		return fmt.Sprintf("+%d", diff)
	case diff < 0:
		return fmt.Sprintf("%d", diff)
	default:
		return "±0"
	}
}

func rankArrow(diff int) string {
	switch {
	case diff > 0:
		return fmt.Sprintf("↑%d", diff)
	case diff < 0:
		return fmt.Sprintf("↓%d", -diff)
	default:
		return ""
	}
}

// AltText describes the stacked chart image for screen readers
func AltText(views []string, changes []Change) string {
	var b strings.Builder
	b.WriteString("Rating history chart")
	if len(views) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(views, ", "))
	}

	switch len(changes) {
	case 0:
		b.WriteString(" with no rated users.")
		return b.String()
	case 1:
		b.WriteString(" for 1 user: ")
	default:
		fmt.Fprintf(&b, " for %d users: ", len(changes))
	}

	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		parts = append(parts, fmt.Sprintf("%s %d", c.User, c.Rating))
	}
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString(".")
	return b.String()
}
