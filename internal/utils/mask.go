package utils

import "fmt"

// MaskAPIKey hides the middle of an API key, keeping just enough of the
// prefix to identify which key is in use.
func MaskAPIKey(key string) string {
	if key == "" {
		return "--- EMPTY ---"
	}
	if len(key) <= 8 {
		return fmt.Sprintf("*** MASKED (short: %d chars) ***", len(key))
	}
	return key[:4] + "..." + "*** MASKED ***"
}
