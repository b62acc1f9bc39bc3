package dispatcher

import "strings"

const redacted = "[REDACTED]"

var sensitiveKeyParts = []string{"key", "secret", "token", "password", "passwd", "auth", "signature", "credential"}

func isSensitiveKey(k string) bool {
	k = strings.ToLower(k)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(k, part) {
			return true
		}
	}
	return false
}

// RedactArgs returns a copy of args that is safe to log.
func RedactArgs(args Args) map[string]any {
	if args == nil {
		return nil
	}
	return redactMap(args)
}

func redactMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if isSensitiveKey(k) {
			out[k] = redacted
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return redactMap(t)
	case Args:
		return redactMap(t)
	case []any:
		cp := make([]any, len(t))
		for i, item := range t {
			cp[i] = redactValue(item)
		}
		return cp
	default:
		return v
	}
}
