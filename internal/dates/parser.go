// Package dates parses loosely formatted date tokens emitted by upstream
// spreadsheets and exports. The precedence is fixed: a US month-first reading
// of the digit run wins, then an ordered list of separated layouts.
package dates

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	nonDigitRe     = regexp.MustCompile(`[^0-9]`)
	nonDateCharsRe = regexp.MustCompile(`[^0-9/\-]`)
)

// Month and day accept one or two digits, years exactly four.
var layoutTokens = strings.NewReplacer(
	"MM", `(?P<month>1[0-2]|0[1-9]|[1-9])`,
	"DD", `(?P<day>3[01]|[12][0-9]|0[1-9]|[1-9])`,
	"YYYY", `(?P<year>[0-9]{4})`,
)

// strptimeTokens spells a layout the way parse failures report it.
var strptimeTokens = strings.NewReplacer("MM", "%m", "DD", "%d", "YYYY", "%Y")

type layout struct {
	format  string
	pattern *regexp.Regexp
}

func newLayout(name string) layout {
	return layout{
		format:  strptimeTokens.Replace(name),
		pattern: regexp.MustCompile("^" + layoutTokens.Replace(name) + "$"),
	}
}

var fallbackLayouts = []layout{
	newLayout("MM/DD/YYYY"),
	newLayout("YYYY/MM/DD"),
	newLayout("DD/MM/YYYY"),
	newLayout("YYYY-MM-DD"),
	newLayout("MM-DD-YYYY"),
	newLayout("DD-MM-YYYY"),
	newLayout("YYYYMMDD"),
	newLayout("MMDDYYYY"),
	newLayout("DDMMYYYY"),
}

// Parse reads token as a calendar date. On failure the error is a *ParseError
// whose Reason names the offending component.
func Parse(token string) (Date, error) {
	if strings.TrimSpace(token) == "" {
		return Date{}, errEmpty(token)
	}

	value := truncateNumeric(strings.TrimSpace(token))

	if digits := nonDigitRe.ReplaceAllString(value, ""); len(digits) >= 6 {
		// Range failures here are final and never fall through to the layouts.
		return parseDigitRun(token, digits)
	}

	return parseLayouts(token, nonDateCharsRe.ReplaceAllString(value, ""))
}

// IsValid reports whether Parse accepts token.
func IsValid(token string) bool {
	_, err := Parse(token)
	return err == nil
}

// truncateNumeric turns spreadsheet-style numerics ("1152024.0") into their
// integer string so a dropped leading zero leaves a 7 digit run.
func truncateNumeric(value string) string {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return value
	}
	t := math.Trunc(f)
	if t == 0 {
		t = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(t, 'f', 0, 64)
}

// parseDigitRun reads MMDD<year>, or MDDYYYY for exactly seven digits.
func parseDigitRun(token, digits string) (Date, error) {
	var m, d, y string
	if len(digits) == 7 {
		m, d, y = digits[:1], digits[1:3], digits[3:]
	} else {
		m, d, y = digits[:2], digits[2:4], digits[4:]
	}

	month, monthText := number(m)
	day, dayText := number(d)
	year, yearText := number(y)
	if year < 100 {
		year += 2000
		yearText = strconv.Itoa(year)
	}

	if month < 1 || month > 12 {
		return Date{}, errMonth(token, monthText)
	}
	if day < 1 {
		return Date{}, errDayNotPositive(token, dayText)
	}
	if year < MinYear || year > MaxYear {
		return Date{}, errYear(token, yearText)
	}
	if maxDays := daysInMonth(month, year); day > maxDays {
		return Date{}, errDayOverflow(token, dayText, maxDays, month)
	}

	return Date{Year: year, Month: time.Month(month), Day: day}, nil
}

func parseLayouts(token, value string) (Date, error) {
	var lastErr error
	for _, l := range fallbackLayouts {
		date, err := l.parse(token, value)
		if err != nil {
			lastErr = err
			continue
		}
		return date, nil
	}

	reason := fmt.Sprintf("Unable to parse date '%s': format not recognized", value)
	if lastErr != nil {
		reason = fmt.Sprintf("Unable to parse date '%s': %v", value, lastErr)
	}
	return Date{}, &ParseError{Token: token, Kind: KindUnparseable, Reason: reason}
}

func (l layout) parse(token, value string) (Date, error) {
	match := l.pattern.FindStringSubmatch(value)
	if match == nil {
		return Date{}, fmt.Errorf("time data '%s' does not match format '%s'", value, l.format)
	}

	year, yearText := number(match[l.pattern.SubexpIndex("year")])
	month, _ := number(match[l.pattern.SubexpIndex("month")])
	day, dayText := number(match[l.pattern.SubexpIndex("day")])

	if year < 1 {
		return Date{}, fmt.Errorf("year %s is out of range", yearText)
	}
	if day > gregorianDays(month, year) {
		return Date{}, errors.New("day is out of range for month")
	}

	if year < MinYear || year > MaxYear {
		return Date{}, errYear(token, yearText)
	}
	if month < 1 || month > 12 {
		return Date{}, errMonth(token, strconv.Itoa(month))
	}
	if maxDays := daysInMonth(month, year); day < 1 || day > maxDays {
		return Date{}, errDayOverflow(token, dayText, maxDays, month)
	}

	return Date{Year: year, Month: time.Month(month), Day: day}, nil
}

func gregorianDays(month, year int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// number converts a digit string, returning its value and its text without
// leading zeros. Values too large for an int saturate at math.MaxInt.
func number(digits string) (int, string) {
	text := strings.TrimLeft(digits, "0")
	if text == "" {
		text = "0"
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return math.MaxInt, text
	}
	return n, text
}
