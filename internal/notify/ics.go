package notify

import (
	"fmt"
	"strings"
	"time"

	"antigravity/internal/model"
)

// BuildICS renders a single-event iCalendar attachment for an approved
// booking. Lines are CRLF-terminated per RFC 5545.
func BuildICS(b *model.Booking, now time.Time) []byte {
	var sb strings.Builder
	writeLine := func(s string) {
		sb.WriteString(s)
		sb.WriteString("\r\n")
	}

	writeLine("BEGIN:VCALENDAR")
	writeLine("VERSION:2.0")
	writeLine("PRODID:-//Antigravity Booking//EN")
	writeLine("BEGIN:VEVENT")
	writeLine(fmt.Sprintf("UID:booking-%s@antigravity", b.Reference))
	writeLine("DTSTAMP:" + now.UTC().Format("20060102T150405Z"))
	writeLine("DTSTART:" + b.StartTime.Format("20060102T150405"))
	writeLine("DTEND:" + b.EndTime.Format("20060102T150405"))
	writeLine("SUMMARY:Booking - " + escapeICS(b.CustomerName))
	writeLine("DESCRIPTION:Confirmed booking")
	writeLine("END:VEVENT")
	writeLine("END:VCALENDAR")

	return []byte(sb.String())
}

// escapeICS escapes text per RFC 5545 section 3.3.11.
func escapeICS(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		";", `\;`,
		",", `\,`,
		"\n", `\n`,
	)
	return r.Replace(s)
}
