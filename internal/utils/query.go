// Package utils holds tiny helpers with no domain knowledge, shared by the
// HTTP layer.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 integer, falling back to def when s is
// empty or not a valid int. Handy for optional query parameters such as
// ?limit= where a missing or garbled value should mean "use the default"
// rather than an error.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
