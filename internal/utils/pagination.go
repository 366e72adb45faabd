// Package utils provides small helpers shared across the HTTP handlers,
// independent of any domain logic.
package utils

import "strconv"

// AtoiDefault parses s as an int, returning def when s is empty or not a
// plain integer. Handlers use it for paging query parameters, where a bad
// "page" or "limit" should mean "use the default", not an error:
//
//	page := utils.AtoiDefault(c.Query("page"), 1)
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
