package db

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Time is stored in sqlite as fractional unix seconds.
type Time time.Time

// Scan implements the sql.Scanner interface.
func (t *Time) Scan(src any) error {
	if src == nil {
		*t = Time{}
		return nil
	}

	f, ok := src.(float64)
	if !ok {
		return fmt.Errorf("can't scan into db.Time: %T", src)
	}

	*t = Time(time.UnixMilli(int64(f * 1000)))
	return nil
}

// Value implements the driver.Valuer interface.
func (t Time) Value() (driver.Value, error) {
	return float64(time.Time(t).UnixNano()) / float64(time.Second), nil
}
