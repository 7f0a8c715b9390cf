// Package pricing computes booking cost estimates. Costs are carried as
// integer cents; the estimate is duration times hourly rate with no
// awareness of overnight status, since an overnight interval's end already
// reflects the extended time.
package pricing

import (
	"fmt"
	"math"
	"time"
)

// EstimateCents returns the estimated cost in cents for the interval at the
// given hourly rate: fractional hours times rate, rounded half-up to a cent.
// Zero or inverted intervals cost zero; the result never goes negative.
func EstimateCents(start, end time.Time, hourlyRateCents int64) int64 {
	if hourlyRateCents <= 0 || !start.Before(end) {
		return 0
	}
	hours := end.Sub(start).Minutes() / 60.0
	cents := int64(math.Floor(hours*float64(hourlyRateCents) + 0.5))
	if cents < 0 {
		return 0
	}
	return cents
}

// FormatCents renders cents as a dollar amount, e.g. 120000 -> "1200.00".
func FormatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
