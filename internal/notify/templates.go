package notify

import (
	"strconv"
	"strings"

	"antigravity/internal/model"
	"antigravity/internal/pricing"
)

// Templates holds the email subjects and bodies. Placeholders of the form
// {customer_name} are resolved from the booking at send time.
type Templates struct {
	SubmissionSubject string
	SubmissionBody    string
	AdminSubject      string
	AdminBody         string
	ApprovalSubject   string
	ApprovalBody      string
	CancelSubject     string
	CancelBody        string
}

// DefaultTemplates returns the stock email texts.
func DefaultTemplates() Templates {
	return Templates{
		SubmissionSubject: "Booking Request Received - {booking_date}",
		SubmissionBody: "Hi {customer_name},\n\n" +
			"We received your booking request for {booking_date} from {start_time} to {end_time}.\n" +
			"Estimated cost: ${cost}.\n\n" +
			"We will review it shortly and confirm by email.\n\n" +
			"Reference: {reference}\n",
		AdminSubject: "New Booking Request - {customer_name} on {booking_date}",
		AdminBody: "New booking request:\n\n" +
			"Customer: {customer_name} <{customer_email}>\n" +
			"Phone: {customer_phone}\n" +
			"Date: {booking_date}\n" +
			"Time: {start_time} - {end_time}\n" +
			"Guests: {guest_count}\n" +
			"Estimated cost: ${cost}\n" +
			"Reference: {reference}\n",
		ApprovalSubject: "Booking Confirmed - {booking_date}",
		ApprovalBody: "Hi {customer_name},\n\n" +
			"Your booking for {booking_date} from {start_time} to {end_time} is confirmed.\n" +
			"Estimated cost: ${cost}.\n\n" +
			"A calendar invite is attached.\n\n" +
			"Reference: {reference}\n",
		CancelSubject: "Booking Cancelled - {booking_date}",
		CancelBody: "Hi {customer_name},\n\n" +
			"Your booking for {booking_date} from {start_time} to {end_time} has been cancelled.\n\n" +
			"Reference: {reference}\n",
	}
}

// Render substitutes booking fields into a template string.
func Render(tpl string, b *model.Booking) string {
	endLabel := b.EndTime.Format("3:04 PM")
	if b.IsOvernight {
		endLabel = b.EndTime.Format("3:04 PM (Jan 2)")
	}
	r := strings.NewReplacer(
		"{customer_name}", b.CustomerName,
		"{customer_email}", b.CustomerEmail,
		"{customer_phone}", b.CustomerPhone,
		"{booking_date}", b.StartTime.Format("Monday, January 2, 2006"),
		"{start_time}", b.StartTime.Format("3:04 PM"),
		"{end_time}", endLabel,
		"{guest_count}", strconv.Itoa(b.GuestCount),
		"{cost}", pricing.FormatCents(b.CostCents),
		"{reference}", b.Reference,
		"{status}", b.Status,
	)
	return r.Replace(tpl)
}
