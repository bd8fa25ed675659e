package leave

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateFormat = "2006-01-02"

// Date is a calendar date pinned to midnight UTC. Leave spans are counted in
// whole days, and normalizing the time-of-day keeps the arithmetic immune to
// daylight-saving offsets in whatever zone the client happens to be in.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateFormat, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{t.UTC()}, nil
}

func (d Date) String() string {
	return d.Time.Format(dateFormat)
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	d.Time = parsed.Time
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return json.Marshal(nil)
	}
	return json.Marshal(d.String())
}

// Value / Scan let pgx and database/sql treat Date as a plain timestamp column.

func (d Date) Value() (driver.Value, error) {
	if d.Time.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}

func (d *Date) Scan(value interface{}) error {
	if value == nil {
		d.Time = time.Time{}
		return nil
	}
	t, ok := value.(time.Time)
	if !ok {
		return fmt.Errorf("cannot scan %T into Date", value)
	}
	// renormalize in case the column carried a time-of-day
	d.Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return nil
}

// DaysInclusive counts calendar days between two dates including both
// endpoints: same day = 1, adjacent days = 2.
func DaysInclusive(from, to Date) int {
	return int(to.Time.Sub(from.Time).Hours()/24) + 1
}
