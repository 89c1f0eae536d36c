// Package utils provides small helpers shared across layers. Currently it
// only carries the lenient integer parsing used for page and page_size
// query parameters on the chat list endpoint.
package utils

import "strconv"

// AtoiDefault converts a string to an int, returning def when the string is
// empty or not a valid integer. Query parameters are user input, so parse
// failures fall back instead of erroring.
//
//	utils.AtoiDefault("42", 0) // 42
//	utils.AtoiDefault("", 10)  // 10
//	utils.AtoiDefault("x", 5)  // 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
