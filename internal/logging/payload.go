package logging

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultPreviewLength bounds input/result previews embedded in log messages.
const DefaultPreviewLength = 500

// RedactedPlaceholder replaces sensitive values in logged payloads.
const RedactedPlaceholder = "[REDACTED]"

// Preview truncates s to at most n characters, appending "..." when cut.
// n <= 0 falls back to DefaultPreviewLength.
func Preview(s string, n int) string {
	if n <= 0 {
		n = DefaultPreviewLength
	}
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

// JSONPayload serializes v as indented JSON for embedding in a log message.
// Serialization problems are never allowed to surface to the wrapped
// operation: unserializable map values are stringified, and if even that
// fails a placeholder string is returned instead.
func JSONPayload(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err == nil {
		return string(b)
	}
	if m, ok := v.(map[string]interface{}); ok {
		stringified := make(map[string]string, len(m))
		for k, val := range m {
			stringified[k] = fmt.Sprintf("%v", val)
		}
		if b2, err2 := json.MarshalIndent(stringified, "", "  "); err2 == nil {
			return string(b2)
		}
	}
	return fmt.Sprintf("(payload could not be serialized: %v)", err)
}

// sensitive key fragments checked case-insensitively by Redact.
var sensitiveKeyFragments = []string{"api_key", "apikey", "authorization", "password", "secret", "token"}

// Redact returns a copy of m with sensitive values replaced by a placeholder.
// The input map is not modified.
func Redact(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if isSensitiveKey(k) {
			out[k] = RedactedPlaceholder
			continue
		}
		out[k] = v
	}
	return out
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, frag := range sensitiveKeyFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// FilterInputs drops keys that should not be echoed into log payloads:
// collaborator handles ("llm", "agent") and underscore-prefixed internals.
func FilterInputs(inputs map[string]interface{}) map[string]interface{} {
	if inputs == nil {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(inputs))
	for k, v := range inputs {
		if k == "llm" || k == "agent" || strings.HasPrefix(k, "_") {
			continue
		}
		out[k] = v
	}
	return out
}
