// Package notification builds the user-facing messages emitted by the
// assignment workflow.
package notification

import (
	"fmt"
	"strings"
	"time"
)

// dateLayout is fixed so a regenerated message always matches the one stored
// on the assignment.
const dateLayout = "Monday, January 2, 2006"

// NotSelected returns the message sent to a resource whose pending assignment
// was closed because the event team reached its quota. The output depends
// only on its inputs.
func NotSelected(firstName, eventTitle string, eventDate time.Time) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		name = "there"
	}

	title := strings.TrimSpace(eventTitle)
	if title == "" {
		title = "the event"
	} else {
		title = fmt.Sprintf("%q", title)
	}

	return fmt.Sprintf(
		"Hi %s, the team for %s on %s is now complete, so we won't need you for this one. Thank you for your availability!",
		name, title, eventDate.Format(dateLayout),
	)
}

// FirstName extracts the leading name token from a full display name.
func FirstName(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
