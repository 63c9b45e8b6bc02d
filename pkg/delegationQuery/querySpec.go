package delegationQuery

import (
	"fmt"
	"strings"
	"time"

	"github.com/Layr-Labs/delegate-tracker/pkg/utils"
)

type QueryKind string

const (
	QueryKind_Single QueryKind = "single"
	QueryKind_Range  QueryKind = "range"
)

// FutureDatePolicy decides what happens to a query reaching past today.
type FutureDatePolicy string

const (
	FutureDatePolicy_Abort FutureDatePolicy = "abort"
	FutureDatePolicy_Clamp FutureDatePolicy = "clamp"
)

// InvalidQueryInputError is returned for input that is neither a date nor a
// date range.
type InvalidQueryInputError struct {
	Input  string
	Reason string
}

func (e *InvalidQueryInputError) Error() string {
	return fmt.Sprintf("invalid query '%s': %s. Use YYYY-MM-DD or YYYY-MM-DD to YYYY-MM-DD", e.Input, e.Reason)
}

// FutureDateError is returned when a query reaches past today and the policy
// is abort. Retrying with the clamp policy executes the query through Today.
type FutureDateError struct {
	Date  time.Time
	Today time.Time
}

func (e *FutureDateError) Error() string {
	return fmt.Sprintf("date %s is in the future (today is %s)", utils.FormatDate(e.Date), utils.FormatDate(e.Today))
}

type QuerySpec struct {
	Kind  QueryKind
	Start time.Time
	// End equals Start for a single date query
	End time.Time
}

func (q *QuerySpec) String() string {
	if q.Kind == QueryKind_Single {
		return utils.FormatDate(q.Start)
	}
	return fmt.Sprintf("%s to %s", utils.FormatDate(q.Start), utils.FormatDate(q.End))
}

// NewSingleDateQuery queries a single calendar day.
func NewSingleDateQuery(day time.Time) *QuerySpec {
	day = utils.StartOfDay(day)
	return &QuerySpec{Kind: QueryKind_Single, Start: day, End: day}
}

// ParseQueryInput accepts "YYYY-MM-DD" or "YYYY-MM-DD to YYYY-MM-DD".
func ParseQueryInput(input string) (*QuerySpec, error) {
	fields := strings.Fields(input)

	switch {
	case len(fields) == 1:
		day, err := utils.ParseDate(fields[0])
		if err != nil {
			return nil, &InvalidQueryInputError{Input: input, Reason: "malformed date"}
		}
		return NewSingleDateQuery(day), nil

	case len(fields) == 3 && strings.EqualFold(fields[1], "to"):
		start, err := utils.ParseDate(fields[0])
		if err != nil {
			return nil, &InvalidQueryInputError{Input: input, Reason: "malformed start date"}
		}
		end, err := utils.ParseDate(fields[2])
		if err != nil {
			return nil, &InvalidQueryInputError{Input: input, Reason: "malformed end date"}
		}
		if start.After(end) {
			return nil, &InvalidQueryInputError{Input: input, Reason: "start date is after end date"}
		}
		return &QuerySpec{Kind: QueryKind_Range, Start: start, End: end}, nil
	}

	if len(fields) == 0 {
		return nil, &InvalidQueryInputError{Input: input, Reason: "empty input"}
	}
	return nil, &InvalidQueryInputError{Input: input, Reason: "unrecognized format"}
}

// ResolveDates returns the days the query covers, ascending. With the clamp
// policy a single future date becomes today and a range is cut at today; a
// range starting after today covers no days. The second return value reports
// whether clamping changed the query.
func (q *QuerySpec) ResolveDates(today time.Time, policy FutureDatePolicy) ([]time.Time, bool, error) {
	today = utils.StartOfDay(today)

	if !q.End.After(today) {
		return utils.DaysBetween(q.Start, q.End), false, nil
	}

	if policy != FutureDatePolicy_Clamp {
		future := q.End
		if q.Kind == QueryKind_Range && q.Start.After(today) {
			future = q.Start
		}
		return nil, false, &FutureDateError{Date: future, Today: today}
	}

	if q.Kind == QueryKind_Single {
		return []time.Time{today}, true, nil
	}
	return utils.DaysBetween(q.Start, today), true, nil
}
