package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var (
	ratingNumber = regexp.MustCompile(`(\d+\.?\d*)`)
	dayMonthYear = regexp.MustCompile(`(\d{1,2})\s+(\w+)\s+(\d{4})`)
)

// dayMonthYearLayouts interpret the captured "day month year" triple.
var dayMonthYearLayouts = []string{"2 January 2006", "2 Jan 2006"}

// genericDateLayouts are tried against the raw string when no triple matched.
var genericDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"02 Jan 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseRating turns a numeric or descriptive rating ("4.0 out of 5 stars") into
// an integer in [1,5]. Anything else yields nil.
func ParseRating(r gjson.Result) *int {
	var value float64
	switch r.Type {
	case gjson.Number:
		value = r.Num
	case gjson.String:
		m := ratingNumber.FindStringSubmatch(r.Str)
		if m == nil {
			return nil
		}
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		value = f
	default:
		return nil
	}

	rounded := int(math.Round(value))
	if rounded < 1 || rounded > 5 {
		return nil
	}
	return &rounded
}

// ParseReviewDate extracts a "day month year" date, falling back to common
// layouts for the whole string. Numbers are unix timestamps. Failure yields nil.
func ParseReviewDate(r gjson.Result) *time.Time {
	switch r.Type {
	case gjson.Number:
		return unixTime(r.Num)
	case gjson.String:
	default:
		return nil
	}

	raw := strings.TrimSpace(r.Str)
	if m := dayMonthYear.FindStringSubmatch(raw); m != nil {
		candidate := m[1] + " " + m[2] + " " + m[3]
		if t, ok := parseLayouts(candidate, dayMonthYearLayouts); ok {
			return &t
		}
	}
	if t, ok := parseLayouts(raw, genericDateLayouts); ok {
		return &t
	}
	return nil
}

// ParseTimestamp reads a unix timestamp (seconds or milliseconds) or an ISO string.
func ParseTimestamp(r gjson.Result) *time.Time {
	switch r.Type {
	case gjson.Number:
		return unixTime(r.Num)
	case gjson.String:
		if n, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64); err == nil {
			return unixTime(n)
		}
		if t, ok := parseLayouts(strings.TrimSpace(r.Str), genericDateLayouts); ok {
			return &t
		}
	}
	return nil
}

func parseLayouts(value string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Values above this are treated as milliseconds.
const millisThreshold = 1e11

// Epoch seconds of 2100-01-01T00:00:00Z. Later instants are not real
// post or review times.
const maxUnixSeconds = 4102444800

func unixTime(n float64) *time.Time {
	if !(n > 0) {
		return nil
	}
	var t time.Time
	if n > millisThreshold {
		if n/1000 > maxUnixSeconds {
			return nil
		}
		t = time.UnixMilli(int64(n)).UTC()
	} else {
		if n > maxUnixSeconds {
			return nil
		}
		t = time.Unix(int64(n), 0).UTC()
	}
	return &t
}
