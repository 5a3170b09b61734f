package dates

import "fmt"

// FailureKind classifies why a token could not be parsed.
type FailureKind int

const (
	KindEmpty FailureKind = iota
	KindUnparseable
	KindInvalidMonth
	KindInvalidDay
	KindInvalidYear
)

func (k FailureKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindUnparseable:
		return "unparseable"
	case KindInvalidMonth:
		return "invalid_month"
	case KindInvalidDay:
		return "invalid_day"
	case KindInvalidYear:
		return "invalid_year"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// ParseError is the failure variant of Parse. Reason is the human-readable
// explanation attached to invalid-record reports.
type ParseError struct {
	Token  string
	Kind   FailureKind
	Reason string
}

func (e *ParseError) Error() string {
	return e.Reason
}

func errEmpty(token string) *ParseError {
	return &ParseError{Token: token, Kind: KindEmpty, Reason: "Empty date string"}
}

func errMonth(token string, month string) *ParseError {
	return &ParseError{
		Token:  token,
		Kind:   KindInvalidMonth,
		Reason: fmt.Sprintf("Invalid month: %s (must be between 1 and 12)", month),
	}
}

func errDayNotPositive(token string, day string) *ParseError {
	return &ParseError{
		Token:  token,
		Kind:   KindInvalidDay,
		Reason: fmt.Sprintf("Invalid day: %s (must be greater than 0)", day),
	}
}

func errDayOverflow(token string, day string, maxDays, month int) *ParseError {
	return &ParseError{
		Token:  token,
		Kind:   KindInvalidDay,
		Reason: fmt.Sprintf("Invalid day: %s (maximum %d days in month %d)", day, maxDays, month),
	}
}

func errYear(token string, year string) *ParseError {
	return &ParseError{
		Token:  token,
		Kind:   KindInvalidYear,
		Reason: fmt.Sprintf("Invalid year: %s (must be between %d and %d)", year, MinYear, MaxYear),
	}
}
