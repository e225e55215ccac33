package service

import "time"

const boliviaOffset = -4 * 60 * 60

// Clock yields the business-local time used for document numbers and timestamps.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type zonedClock struct {
	loc *time.Location
}

// NewClock returns a Clock in the named zone. Without tzdata it falls back to the fixed
// Bolivia offset, which has no daylight saving.
func NewClock(zone string) Clock {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc = time.FixedZone("BOT", boliviaOffset)
	}
	return zonedClock{loc: loc}
}

func (c zonedClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c zonedClock) Location() *time.Location {
	return c.loc
}

const dateLayout = "2006-01-02"

// startOfDay truncates t to local midnight in its own location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// parseDate reads YYYY-MM-DD as local midnight in loc.
func parseDate(raw string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, newError(ErrValidation, "invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

func parseOptionalDate(raw *string, loc *time.Location) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := parseDate(*raw, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DateRangeFromStrings builds an inclusive-by-day range: to covers the whole of its day.
func DateRangeFromStrings(from, to string, loc *time.Location) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if from != "" {
		t, err := parseDate(from, loc)
		if err != nil {
			return nil, nil, err
		}
		start = &t
	}
	if to != "" {
		t, err := parseDate(to, loc)
		if err != nil {
			return nil, nil, err
		}
		next := t.AddDate(0, 0, 1)
		end = &next
	}
	return start, end, nil
}
