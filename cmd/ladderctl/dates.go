package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/atttc/ladder/internal/domain"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseDay accepts YYYY-MM-DD or an English phrase such as "next monday"
// relative to now, and returns the calendar day in UTC.
func parseDay(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := domain.ParseDate(s); err == nil {
		return d, nil
	}
	r, err := dateParser.Parse(strings.ToLower(s), now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	}
	return domain.Day(r.Time), nil
}

// optionalDay is parseDay for flags that may be left empty.
func optionalDay(s string, now time.Time) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := parseDay(s, now)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
