package timezone

import (
	"time"
	_ "time/tzdata"
)

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Prague")
	if err != nil {
		panic(err)
	}
}

// dates published by the regulator (licence validity, decisions) are in
// Prague local time, the machine running the scraper may not be.
func Now() time.Time {
	return time.Now().In(Location)
}

// ParseDate parses an ISO "YYYY-MM-DD" date at midnight Prague time.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, Location)
}
