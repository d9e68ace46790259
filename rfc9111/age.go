package rfc9111

import (
	"net/http"
	"strings"
	"time"
)

// GetAge returns the Age field value and whether a valid one was present.
//
// §     Although it is defined as a singleton header field, a cache
// §     encountering a message with a list-based Age field value SHOULD use
// §     the first member of the field value, discarding subsequent ones.
// §
// §     If the field value (after discarding additional members, as per
// §     above) is invalid (e.g., it contains something other than a non-
// §     negative integer), a cache SHOULD ignore the field.
func GetAge(header http.Header) (time.Duration, bool) {
	members := GetListHeader(header, "Age")
	if len(members) == 0 {
		return 0, false
	}
	return parseDeltaSeconds(strings.TrimSpace(members[0]))
}

// DateValue returns the parsed Date field, if present and valid.
func DateValue(header http.Header) (time.Time, bool) {
	date, err := HttpDate(header.Get("Date"))
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

// CurrentAge implements the age calculation of section 4.2.3 for a stored
// response. requestTime and responseTime are the local clock values around
// the request that produced it, now is the local clock at reuse.
//
// §       apparent_age = max(0, response_time - date_value);
// §
// §       response_delay = response_time - request_time;
// §       corrected_age_value = age_value + response_delay;
// §
// §       corrected_initial_age = max(apparent_age, corrected_age_value);
// §
// §       resident_time = now - response_time;
// §       current_age = corrected_initial_age + resident_time;
func CurrentAge(header http.Header, requestTime, responseTime, now time.Time) time.Duration {
	ageValue, _ := GetAge(header)
	apparentAge := time.Duration(0)
	if date, ok := DateValue(header); ok {
		apparentAge = durationMax(0, responseTime.Sub(date))
	}
	responseDelay := durationMax(0, responseTime.Sub(requestTime))
	correctedAgeValue := ageValue + responseDelay
	correctedInitialAge := durationMax(apparentAge, correctedAgeValue)
	residentTime := durationMax(0, now.Sub(responseTime))
	return correctedInitialAge + residentTime
}

func durationMax(d1, d2 time.Duration) time.Duration {
	if d1 > d2 {
		return d1
	}
	return d2
}
