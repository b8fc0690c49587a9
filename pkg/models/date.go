package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// Date is a calendar date in YYYY-MM-DD form. It scans from DATE columns
// without dragging a time zone along.
type Date string

func NewDate(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = ""
	case time.Time:
		*d = NewDate(v)
	case []byte:
		*d = Date(truncateDate(string(v)))
	case string:
		*d = Date(truncateDate(v))
	default:
		return fmt.Errorf("Date.Scan: unsupported type %T", src)
	}
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if d == "" {
		return nil, nil
	}
	return string(d), nil
}

func (d Date) String() string {
	return string(d)
}

func (d Date) Time() (time.Time, error) {
	return time.Parse(DateLayout, string(d))
}

func truncateDate(s string) string {
	if len(s) > len(DateLayout) {
		return s[:len(DateLayout)]
	}
	return s
}
