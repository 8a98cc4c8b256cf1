package schedule

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const dateLayout = "2006-01-02"

// HolidaySet is the set of calendar dates on which nothing runs.
type HolidaySet map[string]struct{}

// NewHolidaySet builds a set from ISO YYYY-MM-DD strings.
func NewHolidaySet(dates ...string) HolidaySet {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	return set
}

// Contains reports whether the calendar date of t is a holiday.
func (h HolidaySet) Contains(t time.Time) bool {
	_, ok := h[t.Format(dateLayout)]
	return ok
}

// LoadHolidays reads a JSON array of YYYY-MM-DD strings. A missing file is
// logged and yields an empty set.
func LoadHolidays(fsys afero.Fs, path string, log *zap.Logger) (HolidaySet, error) {
	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("Holiday file not found; no holidays loaded.", zap.String("path", path))
		return HolidaySet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read holidays %s: %w", path, err)
	}

	var dates []string
	if err := json.Unmarshal(data, &dates); err != nil {
		return nil, fmt.Errorf("parse holidays %s: %w", path, err)
	}
	for _, d := range dates {
		if _, err := time.Parse(dateLayout, d); err != nil {
			return nil, fmt.Errorf("holiday %q in %s is not YYYY-MM-DD", d, path)
		}
	}
	log.Debug("Holidays loaded.", zap.String("path", path), zap.Int("count", len(dates)))
	return NewHolidaySet(dates...), nil
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
