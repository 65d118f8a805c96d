package utils

import "strings"

// NormalizeSymbol trims a ticker symbol and upper-cases it.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
