package logger

import (
	nethttp "net/http"
	"net/url"
	"strings"
)

// DefaultMaskValue replaces sensitive values in log output.
const DefaultMaskValue = "***"

// FilterConfig configures sensitive data redaction.
type FilterConfig struct {
	// SensitiveFields holds the field names to mask. Matching is
	// case-insensitive and substring-based, so "auth" also covers
	// "authorization" and "proxy-authorization".
	SensitiveFields []string
	// MaskValue replaces matched values. Empty selects DefaultMaskValue.
	MaskValue string
}

// DefaultFilterConfig returns the field and header names that commonly carry
// credentials in HTTP traffic.
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		SensitiveFields: []string{
			"authorization", "auth",
			"apikey", "api_key", "api-key",
			"cookie", "set-cookie", "session",
			"credentials", "credential",
			"password", "passwd",
			"pwd", "secret",
			"token", "access_token",
			"refresh_token",
		},
		MaskValue: DefaultMaskValue,
	}
}

// SensitiveDataFilter masks sensitive values before they reach the log sink.
// Construct with NewSensitiveDataFilter; the zero value matches nothing and
// masks with the empty string.
type SensitiveDataFilter struct {
	mask    string
	needles []string
}

// NewSensitiveDataFilter builds a filter for the given configuration. A nil
// config selects DefaultFilterConfig. The config is copied, not retained.
func NewSensitiveDataFilter(cfg *FilterConfig) *SensitiveDataFilter {
	if cfg == nil {
		cfg = DefaultFilterConfig()
	}

	f := &SensitiveDataFilter{mask: cfg.MaskValue}
	if f.mask == "" {
		f.mask = DefaultMaskValue
	}
	f.needles = make([]string, len(cfg.SensitiveFields))
	for i, name := range cfg.SensitiveFields {
		f.needles[i] = strings.ToLower(name)
	}
	return f
}

// FilterString returns the value, masked when the key names something
// sensitive. Sensitive URL values keep scheme, host and path readable.
// A nil filter passes everything through.
func (f *SensitiveDataFilter) FilterString(key, value string) string {
	if f == nil || !f.sensitive(key) {
		return value
	}
	return f.maskString(value)
}

// FilterValue redacts values of the shapes log call sites actually pass:
// strings, string maps, header maps and string slices. Header maps flatten
// to joined strings. Other types pass through unchanged. A sensitive key
// masks the whole value regardless of shape.
func (f *SensitiveDataFilter) FilterValue(key string, value any) any {
	if f == nil {
		return value
	}
	if f.sensitive(key) {
		return f.mask
	}

	switch v := value.(type) {
	case string:
		return v
	case nethttp.Header:
		return f.FilterHeaders(v)
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, s := range v {
			out[k] = f.FilterString(k, s)
		}
		return out
	case map[string][]string:
		out := make(map[string][]string, len(v))
		for k, vals := range v {
			out[k] = f.maskAll(k, vals)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = f.FilterValue(k, item)
		}
		return out
	case []string:
		return f.maskAll(key, v)
	default:
		return value
	}
}

// FilterFields redacts every entry of a field map by key. A nil filter
// returns the map untouched.
func (f *SensitiveDataFilter) FilterFields(fields map[string]any) map[string]any {
	if f == nil {
		return fields
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = f.FilterValue(k, v)
	}
	return out
}

// FilterHeaders flattens an HTTP header map into loggable form. Values of
// sensitive header names are masked; repeated values are joined with ", ".
func (f *SensitiveDataFilter) FilterHeaders(headers nethttp.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if f.sensitive(name) {
			out[name] = f.mask
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// FilterQuery rewrites a query string with the values of sensitive
// parameters masked. Pair order is preserved so masked queries stay
// comparable across log lines.
func (f *SensitiveDataFilter) FilterQuery(rawQuery string) string {
	if rawQuery == "" {
		return rawQuery
	}

	pairs := strings.Split(rawQuery, "&")
	masked := false
	for i, pair := range pairs {
		rawName, _, hasValue := strings.Cut(pair, "=")
		if !hasValue {
			continue
		}
		name := rawName
		if decoded, err := url.QueryUnescape(rawName); err == nil {
			name = decoded
		}
		if !f.sensitive(name) {
			continue
		}
		pairs[i] = rawName + "=" + f.mask
		masked = true
	}

	if !masked {
		return rawQuery
	}
	return strings.Join(pairs, "&")
}

// sensitive reports whether a field or header name matches the configured
// sensitive set.
func (f *SensitiveDataFilter) sensitive(name string) bool {
	name = strings.ToLower(name)
	for _, needle := range f.needles {
		if strings.Contains(name, needle) {
			return true
		}
	}
	return false
}

// maskAll masks every element when the key is sensitive, otherwise returns
// the slice untouched.
func (f *SensitiveDataFilter) maskAll(key string, values []string) []string {
	if !f.sensitive(key) {
		return values
	}
	masked := make([]string, len(values))
	for i := range masked {
		masked[i] = f.mask
	}
	return masked
}

// maskString replaces a sensitive value outright, except URLs, which keep
// their structure so operators can still tell endpoints apart.
func (f *SensitiveDataFilter) maskString(value string) string {
	switch {
	case value == "":
		return value
	case isURL(value):
		return f.maskURL(value)
	default:
		return f.mask
	}
}

func isURL(value string) bool {
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}

// maskURL hides userinfo credentials and sensitive query parameters while
// keeping scheme, host and path intact. Unparseable values are masked whole.
// The mask is spliced in raw because url.URL.String percent-encodes it.
func (f *SensitiveDataFilter) maskURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return f.mask
	}

	query := f.FilterQuery(parsed.RawQuery)
	_, hasPassword := parsed.User.Password()
	if !hasPassword && query == parsed.RawQuery {
		return raw
	}

	rebuilt := *parsed
	rebuilt.User = nil
	rebuilt.RawQuery = query
	out := rebuilt.String()
	if parsed.User != nil {
		userinfo := parsed.User.Username()
		if hasPassword {
			userinfo += ":" + f.mask
		}
		out = strings.Replace(out, "://", "://"+userinfo+"@", 1)
	}
	return out
}
