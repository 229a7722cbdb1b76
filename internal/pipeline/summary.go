package pipeline

import (
	"fmt"
	"strings"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/model"
)

// DefaultIssueLimit caps how many individual findings a console summary
// prints per list before collapsing the remainder.
const DefaultIssueLimit = 5

// IssueLines renders up to max issues as console lines, appending an
// "…and K more" line when the list is longer.
func IssueLines(issues []model.Issue, max int) []string {
	if max <= 0 {
		max = DefaultIssueLimit
	}
	var out []string
	for i, issue := range issues {
		if i == max {
			out = append(out, fmt.Sprintf("  …and %d more", len(issues)-max))
			break
		}
		out = append(out, "  "+issueLine(issue))
	}
	return out
}

func issueLine(issue model.Issue) string {
	msgs := issue.Messages
	if len(msgs) == 0 {
		msgs = issue.Warnings
	}
	return fmt.Sprintf("%s: %s", issue.Label, strings.Join(msgs, "; "))
}

// SkipLines renders up to max skipped or failed outcome items, with the
// same "…and K more" collapse.
func SkipLines(items []model.OutcomeItem, max int) []string {
	if max <= 0 {
		max = DefaultIssueLimit
	}
	var out []string
	for i, item := range items {
		if i == max {
			out = append(out, fmt.Sprintf("  …and %d more", len(items)-max))
			break
		}
		out = append(out, fmt.Sprintf("  %s %s: %s", item.Kind, item.Key, item.Reason))
	}
	return out
}
