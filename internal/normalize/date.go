package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xhit/go-str2duration/v2"

	"github.com/roach88/searchstring/internal/term"
)

// DefaultDateFormat is the layout dates are rendered in after parsing.
const DefaultDateFormat = "2006-01-02 15:04:05"

// ErrInvalidDate is returned when a string is not a recognizable date.
var ErrInvalidDate = errors.New("invalid date")

// Precision is the finest unit a date string spells out.
type Precision int

const (
	PrecisionYear Precision = iota
	PrecisionMonth
	PrecisionDay
	PrecisionHour
	PrecisionMinute
	PrecisionSecond
	PrecisionMicro
)

var precisionNames = [...]string{
	PrecisionYear:   "year",
	PrecisionMonth:  "month",
	PrecisionDay:    "day",
	PrecisionHour:   "hour",
	PrecisionMinute: "minute",
	PrecisionSecond: "second",
	PrecisionMicro:  "micro",
}

func (p Precision) String() string {
	if p >= 0 && int(p) < len(precisionNames) {
		return precisionNames[p]
	}
	return fmt.Sprintf("Precision(%d)", int(p))
}

// Exact reports whether dates at this precision are compared as is.
func (p Precision) Exact() bool {
	return p >= PrecisionSecond
}

// Clock supplies the current time for relative dates.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// DateParser turns user-typed dates into bounds of the period they name.
type DateParser struct {
	clock    Clock
	format   string
	location *time.Location
}

// DateOption configures a DateParser.
type DateOption func(*DateParser)

// WithClock sets the clock used for `now`, `yesterday` and offsets.
func WithClock(c Clock) DateOption {
	return func(p *DateParser) { p.clock = c }
}

// WithDateFormat sets the output layout (Go reference time syntax).
func WithDateFormat(layout string) DateOption {
	return func(p *DateParser) {
		if layout != "" {
			p.format = layout
		}
	}
}

// WithLocation sets the time zone naive dates are read in.
func WithLocation(loc *time.Location) DateOption {
	return func(p *DateParser) {
		if loc != nil {
			p.location = loc
		}
	}
}

// NewDateParser creates a DateParser reading the system clock in local time.
func NewDateParser(opts ...DateOption) *DateParser {
	p := &DateParser{
		clock:    SystemClock{},
		format:   DefaultDateFormat,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Format renders t in the configured layout.
func (p *DateParser) Format(t time.Time) string {
	return t.In(p.location).Format(p.format)
}

const monthPattern = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*`

// datePattern matches year, month and day in flexible order followed by
// an optional time of day.
var datePattern = regexp.MustCompile(`(?i)^` +
	`(` + monthPattern + `|[0-9]{1,5})` +
	`(?:[-/ ](` + monthPattern + `|[0-9]{1,5}))?` +
	`(?:[-/ ]([0-9]{1,5}))?` +
	`(?: ([01]?[0-9]|2[0-3]))?` +
	`(?::([0-5][0-9]))?` +
	`(?::([0-5][0-9]))?` +
	`(?:\.([0-9]{1,6}))?` +
	`(am|pm)?$`)

var (
	dayPattern  = regexp.MustCompile(`^(3[01]|[12][0-9]|0?[1-9])$`)
	yearPattern = regexp.MustCompile(`^([1-9]?[0-9]{4}|[0-9]{2})$`)
)

// Submatch indexes of datePattern.
const (
	groupFirst = iota + 1
	groupSecond
	groupThird
	groupHour
	groupMinute
	groupSecondOfMinute
	groupMicro
	groupMeridiem
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// dateLayout records which submatch holds which date component.
type dateLayout struct {
	year, month, day int
	shortYear        bool
}

// Parse reads a date and reports the finest unit it specifies.
func (p *DateParser) Parse(s string) (time.Time, Precision, error) {
	s = strings.TrimSpace(s)
	m := datePattern.FindStringSubmatch(s)
	if m == nil {
		t, err := p.parseGeneral(s)
		if err != nil {
			return time.Time{}, 0, err
		}
		return t, precisionOf(t), nil
	}

	layout, err := inferLayout(m)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("%w %q: %v", ErrInvalidDate, s, err)
	}
	t, prec, err := p.build(m, layout)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("%w %q: %v", ErrInvalidDate, s, err)
	}
	return t, prec, nil
}

func inferLayout(m []string) (dateLayout, error) {
	first, second, third := m[groupFirst], m[groupSecond], m[groupThird]

	switch {
	case !isDigits(first):
		switch {
		case second == "":
			return dateLayout{}, errors.New("month name without year")
		case third != "":
			if !dayPattern.MatchString(second) {
				return dateLayout{}, fmt.Errorf("day %q out of range", second)
			}
			return dateLayout{month: groupFirst, day: groupSecond, year: groupThird, shortYear: len(third) <= 2}, nil
		default:
			if !yearPattern.MatchString(second) {
				return dateLayout{}, fmt.Errorf("year %q not recognized", second)
			}
			return dateLayout{month: groupFirst, year: groupSecond, shortYear: len(second) <= 2}, nil
		}
	case third != "":
		switch {
		case len(third) > 2:
			return dateLayout{day: groupFirst, month: groupSecond, year: groupThird}, nil
		case !isDigits(second):
			return dateLayout{year: groupFirst, month: groupSecond, day: groupThird, shortYear: len(first) <= 2}, nil
		case !dayPattern.MatchString(third):
			return dateLayout{}, fmt.Errorf("day %q out of range", third)
		default:
			return dateLayout{year: groupFirst, month: groupSecond, day: groupThird, shortYear: len(first) <= 2}, nil
		}
	case second != "":
		switch {
		case !isDigits(second):
			return dateLayout{year: groupFirst, month: groupSecond, shortYear: len(first) <= 2}, nil
		case len(second) > 2:
			return dateLayout{month: groupFirst, year: groupSecond}, nil
		case len(first) > 2:
			return dateLayout{year: groupFirst, month: groupSecond}, nil
		case hasTime(m):
			return dateLayout{year: groupFirst, month: groupSecond, shortYear: true}, nil
		default:
			return dateLayout{month: groupFirst, year: groupSecond, shortYear: true}, nil
		}
	default:
		return dateLayout{year: groupFirst, shortYear: len(first) <= 2}, nil
	}
}

func hasTime(m []string) bool {
	for _, g := range m[groupHour:] {
		if g != "" {
			return true
		}
	}
	return false
}

func (p *DateParser) build(m []string, layout dateLayout) (time.Time, Precision, error) {
	year, err := strconv.Atoi(m[layout.year])
	if err != nil {
		return time.Time{}, 0, err
	}
	if layout.shortYear {
		if year < 70 {
			year += 2000
		} else {
			year += 1900
		}
	}

	prec := PrecisionYear
	month := time.January
	if layout.month != 0 {
		if month, err = parseMonth(m[layout.month]); err != nil {
			return time.Time{}, 0, err
		}
		prec = PrecisionMonth
	}

	day := 1
	if layout.day != 0 {
		day, _ = strconv.Atoi(m[layout.day])
		if day < 1 || day > daysIn(year, month) {
			return time.Time{}, 0, fmt.Errorf("day %d out of range for %s %d", day, month, year)
		}
		prec = PrecisionDay
	}

	var hour, minute, second, micro int
	if h := m[groupHour]; h != "" {
		hour, _ = strconv.Atoi(h)
		prec = PrecisionHour
	}
	if meridiem := strings.ToLower(m[groupMeridiem]); meridiem != "" {
		if m[groupHour] == "" || hour < 1 || hour > 12 {
			return time.Time{}, 0, fmt.Errorf("%s needs an hour between 1 and 12", meridiem)
		}
		hour %= 12
		if meridiem == "pm" {
			hour += 12
		}
	}
	if v := m[groupMinute]; v != "" {
		minute, _ = strconv.Atoi(v)
		prec = PrecisionMinute
	}
	if v := m[groupSecondOfMinute]; v != "" {
		second, _ = strconv.Atoi(v)
		prec = PrecisionSecond
	}
	if v := m[groupMicro]; v != "" {
		micro, _ = strconv.Atoi(v + strings.Repeat("0", 6-len(v)))
		prec = PrecisionMicro
	}

	t := time.Date(year, month, day, hour, minute, second, micro*int(time.Microsecond), p.location)
	return t, prec, nil
}

func parseMonth(s string) (time.Month, error) {
	if isDigits(s) {
		n, _ := strconv.Atoi(s)
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("month %d out of range", n)
		}
		return time.Month(n), nil
	}
	if len(s) >= 3 {
		if month, ok := months[strings.ToLower(s[:3])]; ok {
			return month, nil
		}
	}
	return 0, fmt.Errorf("month %q not recognized", s)
}

var generalLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// parseGeneral handles what the flexible pattern does not: full layouts,
// the words now/today/yesterday/tomorrow and offsets such as `-36h`,
// `+2w` or `3d ago`.
func (p *DateParser) parseGeneral(s string) (time.Time, error) {
	now := p.clock.Now().In(p.location)
	lower := strings.ToLower(s)

	switch lower {
	case "now":
		return now, nil
	case "today", "midnight":
		return StartOf(now, PrecisionDay), nil
	case "yesterday":
		return StartOf(now.AddDate(0, 0, -1), PrecisionDay), nil
	case "tomorrow":
		return StartOf(now.AddDate(0, 0, 1), PrecisionDay), nil
	}

	for _, layout := range generalLayouts {
		if t, err := time.ParseInLocation(layout, s, p.location); err == nil {
			return t, nil
		}
	}

	if span, ok := strings.CutSuffix(lower, " ago"); ok {
		d, err := str2duration.ParseDuration(strings.TrimSpace(span))
		if err == nil {
			return now.Add(-d), nil
		}
	}
	if d, err := str2duration.ParseDuration(lower); err == nil {
		return now.Add(d), nil
	}

	return time.Time{}, fmt.Errorf("%w %q", ErrInvalidDate, s)
}

// precisionOf infers precision from the finest non-zero component of t.
// A date always has a day, so the result is never coarser than a day.
func precisionOf(t time.Time) Precision {
	switch {
	case t.Nanosecond()/int(time.Microsecond) != 0:
		return PrecisionMicro
	case t.Second() != 0:
		return PrecisionSecond
	case t.Minute() != 0:
		return PrecisionMinute
	case t.Hour() != 0:
		return PrecisionHour
	default:
		return PrecisionDay
	}
}

// StartOf returns the first instant of the period containing t.
func StartOf(t time.Time, prec Precision) time.Time {
	y, mo, d := t.Date()
	switch prec {
	case PrecisionYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, t.Location())
	case PrecisionMonth:
		return time.Date(y, mo, 1, 0, 0, 0, 0, t.Location())
	case PrecisionDay:
		return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
	case PrecisionHour:
		return time.Date(y, mo, d, t.Hour(), 0, 0, 0, t.Location())
	case PrecisionMinute:
		return time.Date(y, mo, d, t.Hour(), t.Minute(), 0, 0, t.Location())
	default:
		return t
	}
}

// EndOf returns the last microsecond of the period containing t.
func EndOf(t time.Time, prec Precision) time.Time {
	const last = 999999 * int(time.Microsecond)
	y, mo, d := t.Date()
	switch prec {
	case PrecisionYear:
		return time.Date(y, time.December, 31, 23, 59, 59, last, t.Location())
	case PrecisionMonth:
		return time.Date(y, mo, daysIn(y, mo), 23, 59, 59, last, t.Location())
	case PrecisionDay:
		return time.Date(y, mo, d, 23, 59, 59, last, t.Location())
	case PrecisionHour:
		return time.Date(y, mo, d, t.Hour(), 59, 59, last, t.Location())
	case PrecisionMinute:
		return time.Date(y, mo, d, t.Hour(), t.Minute(), 59, last, t.Location())
	default:
		return t
	}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Compare rewrites a single-value date comparison against the period the
// value names. Equality becomes a between range; `<` and `>=` anchor at
// the start of the period, `>` and `<=` at its end. Values precise to the
// second are compared exactly.
//
// On error the comparison is returned unchanged alongside the error, so
// callers can fall back to the raw value.
func (p *DateParser) Compare(op term.Operator, v term.Scalar) (term.Value, error) {
	raw := term.Compare{Op: op, Value: v}
	t, prec, err := p.Parse(term.Text(v))
	if err != nil {
		return raw, err
	}
	if prec.Exact() {
		return term.Compare{Op: op, Value: term.String(p.Format(t))}, nil
	}

	start := term.String(p.Format(StartOf(t, prec)))
	end := term.String(p.Format(EndOf(t, prec)))
	switch op {
	case term.OpLt, term.OpGte:
		return term.Compare{Op: op, Value: start}, nil
	case term.OpGt, term.OpLte:
		return term.Compare{Op: op, Value: end}, nil
	case term.OpEq:
		return term.List{Op: term.OpBetween, Values: []term.Scalar{start, end}}, nil
	case term.OpNe:
		return term.List{Op: term.OpNotBetween, Values: []term.Scalar{start, end}}, nil
	default:
		return raw, nil
	}
}

// Range parses every element of an in/between list without widening.
// Any element that fails leaves the whole list unchanged.
func (p *DateParser) Range(op term.Operator, values []term.Scalar) (term.List, error) {
	out := make([]term.Scalar, len(values))
	for i, v := range values {
		t, _, err := p.Parse(term.Text(v))
		if err != nil {
			return term.List{Op: op, Values: values}, err
		}
		out[i] = term.String(p.Format(t))
	}
	return term.List{Op: op, Values: out}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
