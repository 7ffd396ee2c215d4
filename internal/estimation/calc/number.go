package calc

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ToNumber parses the leading decimal prefix of s the way a spreadsheet cell
// would. Anything that does not start with a finite number yields 0. Only
// plain decimal notation counts: underscores and hex stop the prefix.
func ToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	prefix := numericPrefix(s)
	if prefix == "" {
		return 0
	}
	v, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return 0
	}
	return Finite(v)
}

// Finite maps NaN and ±Inf to 0.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func numericPrefix(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			digits++
		}
	}
	if digits == 0 {
		return ""
	}
	// optional exponent, only when followed by at least one digit
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && s[k] >= '0' && s[k] <= '9' {
			k++
		}
		if k > j {
			i = k
		}
	}
	return strings.TrimSuffix(s[:i], ".")
}

// Number is a float that tolerates loosely typed JSON input: numbers, numeric
// strings, empty strings and null all decode, invalid text decodes to 0.
type Number float64

func (n Number) Float() float64 { return Finite(float64(n)) }

func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Float())
}

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number(ToNumber(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*n = Number(ToNumber(string(data)))
		return nil
	}
	*n = Number(Finite(f))
	return nil
}
