package entityid

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Prefix is the public form of an entity id, e.g. "grv123".
const Prefix = "grv"

var (
	ErrIDInvalid = errors.New("entity_id_invalid")
)

var idPattern = regexp.MustCompile(`^[0-9]{1,18}$`)

// Parse accepts "grv123", "GRV123" or a bare "123" and returns the numeric key.
func Parse(input string) (int64, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" || trimmed != input {
		return 0, ErrIDInvalid
	}
	lowered := strings.ToLower(trimmed)
	digits := strings.TrimPrefix(lowered, Prefix)
	if !idPattern.MatchString(digits) {
		return 0, ErrIDInvalid
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, ErrIDInvalid
	}
	return id, nil
}

// Format renders the canonical public form of a numeric entity key.
func Format(id int64) string {
	return Prefix + strconv.FormatInt(id, 10)
}

// Equals reports whether two public ids refer to the same entity,
// tolerating prefix and case differences.
func Equals(a string, b string) bool {
	ka, errA := Parse(a)
	kb, errB := Parse(b)
	if errA != nil || errB != nil {
		return false
	}
	return ka == kb
}
