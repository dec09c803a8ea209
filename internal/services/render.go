package services

import (
	"fmt"
	"strings"

	"github.com/tbourn/cptrainer/internal/catalog"
	"github.com/tbourn/cptrainer/internal/domain"
)

// renderAssignment builds the message sent with a new assignment. A missing
// problem is reported with the rating it was looked up at.
func renderAssignment(urlBase string, easy, hard *domain.Problem, easyTarget, hardTarget int) string {
	var b strings.Builder
	b.WriteString("Here are your problems for today:")
	for _, slot := range []struct {
		p      *domain.Problem
		target int
	}{{easy, easyTarget}, {hard, hardTarget}} {
		b.WriteString("\n\n")
		if slot.p == nil {
			fmt.Fprintf(&b, "No unsolved problem rated %d is available right now.", slot.target)
			continue
		}
		b.WriteString(catalog.ProblemURL(urlBase, *slot.p))
	}
	return b.String()
}

// ReminderText is the nudge sent to users who have not solved today's pair.
func ReminderText(handle string) string {
	return fmt.Sprintf("Reminder: %s, you haven't completed your assigned problems for today yet. "+
		"Please do so to not lose your streak!", handle)
}
