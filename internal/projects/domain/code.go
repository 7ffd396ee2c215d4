package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

var codePattern = regexp.MustCompile(`^P(\d{2})-(\d{3,})$`)

// CodePrefix is the code prefix for projects registered in the given year,
// e.g. "P25-".
func CodePrefix(year int) string {
	return fmt.Sprintf("P%02d-", year%100)
}

// ValidCode reports whether code looks like P25-013.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// NextCode returns the code following last within the year's prefix. An
// empty or foreign last starts the sequence at 001.
func NextCode(year int, last string) string {
	prefix := CodePrefix(year)
	seq := 0
	if m := codePattern.FindStringSubmatch(last); m != nil && "P"+m[1]+"-" == prefix {
		seq, _ = strconv.Atoi(m[2])
	}
	return fmt.Sprintf("%s%03d", prefix, seq+1)
}
