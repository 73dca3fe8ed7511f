package logx

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const Redacted = "***REDACTED***"

// sensitiveKeys are redacted wholesale; matching is case-insensitive on the
// key with dashes normalized to underscores.
var sensitiveKeys = map[string]struct{}{
	"api_key":         {},
	"apikey":          {},
	"authorization":   {},
	"password":        {},
	"secret":          {},
	"client_secret":   {},
	"token":           {},
	"access_token":    {},
	"bearer":          {},
	"x_agent_key":     {},
	"customer_email":  {},
	"email":           {},
	"customer_name":   {},
	"company_name":    {},
	"address":         {},
	"project_address": {},
	"phone":           {},
	"nit":             {},
}

var (
	emailPattern  = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	bearerPattern = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-._~+/]+=*`)
	keyValPattern = regexp.MustCompile(`(?i)((?:api[_-]?key|token|password|secret)["']?\s*[:=]\s*["']?)[^"'\s&,}]+`)
)

// IsSensitiveKey reports whether values under key must never be logged.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "-", "_"))
	if _, ok := sensitiveKeys[k]; ok {
		return true
	}
	return strings.HasSuffix(k, "_token") || strings.HasSuffix(k, "_secret") || strings.HasSuffix(k, "_password")
}

// Mask returns a copy of fields with sensitive values redacted. Nested maps
// and slices are walked; free-text strings are passed through MaskString.
func Mask(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if IsSensitiveKey(k) {
			if isEmpty(v) {
				out[k] = v
				continue
			}
			out[k] = Redacted
			continue
		}
		out[k] = maskValue(v)
	}
	return out
}

// MaskString redacts e-mail addresses, bearer tokens and key=value secrets in s.
func MaskString(s string) string {
	s = bearerPattern.ReplaceAllString(s, "Bearer "+Redacted)
	s = keyValPattern.ReplaceAllString(s, "${1}"+Redacted)
	return emailPattern.ReplaceAllString(s, Redacted)
}

// Truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func maskValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Mask(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = maskValue(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, item := range t {
			out[i] = Mask(item)
		}
		return out
	case string:
		return MaskString(t)
	case error:
		return MaskString(t.Error())
	default:
		return v
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}
