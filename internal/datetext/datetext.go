package datetext

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	// The collector always interprets wall-clock values in Europe/Berlin,
	// including on hosts without a system tzdata directory.
	_ "time/tzdata"
)

// Berlin is the fixed civil timezone for all wall-clock values that carry no
// explicit zone information.
var Berlin = loadBerlin()

func loadBerlin() *time.Location {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		// CET without DST; only reachable if the embedded tzdata is broken.
		return time.FixedZone("CET", 60*60)
	}
	return loc
}

// Date is a calendar date without a time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Clock is a time of day without a date.
type Clock struct {
	Hour   int
	Minute int
}

// germanMonths maps lowercase German month names to month numbers. ASCII
// transliterations (ä→ae etc.) are listed alongside the umlaut forms because
// the source sites are inconsistent about encoding.
var germanMonths = map[string]time.Month{
	"januar":    time.January,
	"februar":   time.February,
	"märz":      time.March,
	"maerz":     time.March,
	"april":     time.April,
	"mai":       time.May,
	"juni":      time.June,
	"juli":      time.July,
	"august":    time.August,
	"september": time.September,
	"oktober":   time.October,
	"november":  time.November,
	"dezember":  time.December,
}

var umlautReplacer = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss")

var (
	longDatePattern    = regexp.MustCompile(`\b(\d{1,2})\.?\s+([A-Za-zÄÖÜäöüß]+)\s+(\d{4})\b`)
	numericDatePattern = regexp.MustCompile(`\b(\d{2})\.(\d{2})\.(\d{4})\b`)
	dateRangePattern   = regexp.MustCompile(`(\d{2}\.\d{2}\.\d{4})\s*(?i:bis)\s*(\d{2}\.\d{2}\.\d{4})`)
	clockPattern       = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	clockRangeBis      = regexp.MustCompile(`\b(\d{1,2}:\d{2})\s*(?i:bis)\s*(\d{1,2}:\d{2})\b`)
	clockRangeDash     = regexp.MustCompile(`(\d{1,2}:\d{2})\s*-\s*(\d{1,2}:\d{2})`)
)

// newDate validates the parsed components against the real calendar.
// time.Date normalizes out-of-range values (32 Jan becomes 1 Feb), so a
// round-trip comparison catches impossible dates like 31.02.2024.
func newDate(year int, month, day int) *Date {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return nil
	}
	return &Date{Year: year, Month: time.Month(month), Day: day}
}

func newClock(hour, minute int) *Clock {
	if hour > 23 || minute > 59 {
		return nil
	}
	return &Clock{Hour: hour, Minute: minute}
}

// ParseLongGermanDate finds the first "<Tag>. <Monatsname> <Jahr>" fragment in
// text, e.g. "Samstag, 3. März 2024" or "3 Maerz 2024". Month names are
// matched case-insensitively in both umlaut and ASCII form. Returns nil when
// no fragment matches.
func ParseLongGermanDate(text string) *Date {
	m := longDatePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return nil
	}
	day, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[3])

	name := strings.ToLower(m[2])
	month, ok := germanMonths[name]
	if !ok {
		month, ok = germanMonths[umlautReplacer.Replace(name)]
	}
	if !ok {
		return nil
	}
	return newDate(year, int(month), day)
}

// ParseNumericDate finds the first DD.MM.YYYY fragment anywhere in text.
func ParseNumericDate(text string) *Date {
	m := numericDatePattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	return newDate(year, month, day)
}

// ParseNumericDateRange finds "DD.MM.YYYY bis DD.MM.YYYY" in text. When no
// range is present it falls back to a single-date parse for the start; the
// end is nil in that case.
func ParseNumericDateRange(text string) (start, end *Date) {
	m := dateRangePattern.FindStringSubmatch(text)
	if m == nil {
		return ParseNumericDate(text), nil
	}
	return ParseNumericDate(m[1]), ParseNumericDate(m[2])
}

// stripClockNoise removes the literal "Uhr" and normalizes the German
// "10.00"-style separator to a colon so one clock pattern covers both forms.
func stripClockNoise(text string) string {
	text = strings.ReplaceAll(text, "Uhr", "")
	return strings.ReplaceAll(text, ".", ":")
}

// ParseClock finds the first H:MM or HH:MM time of day in text. "18.30 Uhr"
// and "18:30" both parse to 18:30.
func ParseClock(text string) *Clock {
	m := clockPattern.FindStringSubmatch(stripClockNoise(text))
	if m == nil {
		return nil
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	return newClock(hour, minute)
}

// ParseClockRangeBis finds "HH:MM bis HH:MM" in text, e.g.
// "10.00 bis 18.00 Uhr". Both halves are parsed with the ParseClock rule.
func ParseClockRangeBis(text string) (start, end *Clock) {
	m := clockRangeBis.FindStringSubmatch(stripClockNoise(text))
	if m == nil {
		return nil, nil
	}
	return ParseClock(m[1]), ParseClock(m[2])
}

// ParseClockRangeDash finds "HH:MM - HH:MM" in text. En-dashes are
// normalized to plain hyphens first, spacing around the dash is flexible.
func ParseClockRangeDash(text string) (start, end *Clock) {
	t := stripClockNoise(text)
	t = strings.ReplaceAll(t, "–", "-")
	m := clockRangeDash.FindStringSubmatch(t)
	if m == nil {
		return nil, nil
	}
	return ParseClock(m[1]), ParseClock(m[2])
}

// CombineLocal fuses a date and an optional time of day into an ISO-8601
// string with the Berlin UTC offset embedded. A nil date yields "". A nil
// clock yields exact midnight, which the display layer renders as a bare
// date; callers must only pass a nil clock when the time of day is genuinely
// unknown.
func CombineLocal(d *Date, c *Clock) string {
	if d == nil {
		return ""
	}
	var hour, minute int
	if c != nil {
		hour, minute = c.Hour, c.Minute
	}
	t := time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, Berlin)
	return t.Format("2006-01-02T15:04:05-07:00")
}

// looseLayouts is the ordered fallback chain for machine-generated ISO-ish
// strings, zone-carrying layouts first.
var looseLayouts = []struct {
	layout  string
	hasZone bool
}{
	{time.RFC3339, true},
	{"2006-01-02T15:04Z07:00", true},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02T15:04", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02 15:04", false},
	{"2006-01-02", false},
}

func looseTime(text string) (time.Time, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range looseLayouts {
		if l.hasZone {
			if t, err := time.Parse(l.layout, s); err == nil {
				return t, true
			}
			continue
		}
		if t, err := time.ParseInLocation(l.layout, s, Berlin); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// LooseParse is the best-effort fallback for text that likely already
// contains a machine-generated ISO-ish datetime (e.g. from a <time datetime>
// attribute or JSON-LD), not free German prose. Berlin is assumed when the
// text embeds no zone. Returns "" when nothing parses.
func LooseParse(text string) string {
	t, ok := looseTime(text)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02T15:04:05-07:00")
}

// LooseParseDate parses like LooseParse but keeps only the calendar date.
func LooseParseDate(text string) *Date {
	t, ok := looseTime(text)
	if !ok {
		return nil
	}
	return &Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}
