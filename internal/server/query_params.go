package server

import (
	"errors"
	"strconv"
	"strings"
)

var errInvalidWeekday = errors.New("invalid_weekday")

// parseWeekday accepts 0 (Sunday) through 6 (Saturday), matching time.Weekday.
func parseWeekday(value string) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if parsed < 0 || parsed > 6 {
		return 0, errInvalidWeekday
	}
	return parsed, nil
}
