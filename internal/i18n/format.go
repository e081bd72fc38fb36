package i18n

import (
	"fmt"
	"strings"
	"time"
)

var wib = time.FixedZone("WIB", 7*60*60)

// Fill substitutes the {min} placeholder used by validation messages.
func Fill(template, min string) string {
	return strings.ReplaceAll(template, "{min}", min)
}

// FormatDate renders a timestamp the way each locale reads dates: English in
// UTC ("March 5, 2026 14:30 UTC"), Indonesian in Western Indonesia Time
// ("5 Maret 2026 21:30 WIB").
func (c *Catalog) FormatDate(lang Lang, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	months := c.PublicCopySafe(lang).Months
	if lang == ID {
		local := t.In(wib)
		return fmt.Sprintf("%d %s %d %02d:%02d WIB", local.Day(), monthName(months, local.Month()), local.Year(), local.Hour(), local.Minute())
	}
	utc := t.UTC()
	return fmt.Sprintf("%s %d, %d %02d:%02d UTC", monthName(months, utc.Month()), utc.Day(), utc.Year(), utc.Hour(), utc.Minute())
}

func monthName(m MonthsCopy, month time.Month) string {
	names := [...]string{m.Jan, m.Feb, m.Mar, m.Apr, m.May, m.Jun, m.Jul, m.Aug, m.Sep, m.Oct, m.Nov, m.Dec}
	return names[month-1]
}
