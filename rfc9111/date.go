package rfc9111

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// §  1.2.1.  Imported Rules
// §
// §       HTTP-date     = <HTTP-date, see [HTTP], Section 5.6.7>

const imfDateLayout = "Mon, 02 Jan 2006 15:04:05 MST"

// HttpDate parses an HTTP-date. The preferred IMF-fixdate format is tried
// first, then the two obsolete formats (RFC 850 and asctime).
func HttpDate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("empty HTTP-date")
	}
	date, err := imfDate(dateStr)
	if err == nil {
		return date, nil
	}
	if date, obsErr := obsDate(dateStr); obsErr == nil {
		return date, nil
	}
	return time.Time{}, err
}

// ToHttpDate formats t as an IMF-fixdate.
func ToHttpDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

func imfDate(dateStr string) (time.Time, error) {
	date, err := time.Parse(imfDateLayout, dateStr)
	if err != nil {
		return date, err
	}
	if date.Location().String() != "GMT" && date.Location() != time.UTC {
		return date, fmt.Errorf("date %s is not in GMT time, but %s", dateStr, date.Location())
	}
	return date.UTC(), nil
}

func obsDate(dateStr string) (time.Time, error) {
	if date, err := time.Parse(time.RFC850, dateStr); err == nil {
		return date.UTC(), nil
	}
	date, err := time.Parse(time.ANSIC, dateStr)
	return date.UTC(), err
}

// §  1.2.2. Delta Seconds
// §
// §      delta-seconds  = 1*DIGIT
// §
// §  If a cache receives a delta-seconds value greater than the greatest
// §  integer it can represent, or if any of its subsequent calculations overflows,
// §  the cache MUST consider the value to be 2147483648 (2^31) or the greatest
// §  positive integer it can conveniently represent.
const maxDeltaSeconds = 2147483648

func parseDeltaSeconds(secondsStr string) (time.Duration, bool) {
	if secondsStr == "" {
		return 0, false
	}
	for _, c := range secondsStr {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	seconds, err := strconv.ParseUint(secondsStr, 10, 64)
	if err != nil || seconds > maxDeltaSeconds {
		seconds = maxDeltaSeconds
	}
	return time.Duration(seconds) * time.Second, true
}

// ToDeltaSeconds renders a duration as delta-seconds, truncating and
// clamping negatives to zero.
func ToDeltaSeconds(duration time.Duration) string {
	if duration < 0 {
		duration = 0
	}
	return strconv.FormatInt(int64(duration/time.Second), 10)
}
