package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces the value of a sensitive field.
const RedactedValue = "[REDACTED]"

// defaultRedactFields are masked regardless of configuration. Matching is
// case-insensitive on the field name.
var defaultRedactFields = []string{
	"token",
	"password",
	"passphrase",
	"secret",
	"authorization",
	"api_key",
}

// Redactor masks sensitive field values in log output. It operates on field
// names, not values, so redaction cost stays flat regardless of payload
// size.
type Redactor struct {
	fields map[string]struct{}
}

// NewRedactor creates a Redactor that masks the built-in sensitive field
// names plus any extra names.
func NewRedactor(extra []string) *Redactor {
	r := &Redactor{fields: make(map[string]struct{}, len(defaultRedactFields)+len(extra))}
	for _, name := range defaultRedactFields {
		r.fields[name] = struct{}{}
	}
	for _, name := range extra {
		r.fields[strings.ToLower(name)] = struct{}{}
	}
	return r
}

// ShouldRedact reports whether a field name is sensitive.
func (r *Redactor) ShouldRedact(name string) bool {
	_, ok := r.fields[strings.ToLower(name)]
	return ok
}

// RedactArgs masks values of sensitive keys in a slog-style argument list.
// Arguments alternate key, value; slog.Attr entries are handled too. The
// input slice is not modified.
func (r *Redactor) RedactArgs(args ...any) []any {
	out := make([]any, len(args))
	for i := 0; i < len(args); i++ {
		switch arg := args[i].(type) {
		case slog.Attr:
			out[i] = r.redactAttr(arg)
		case string:
			out[i] = arg
			if i+1 < len(args) && r.ShouldRedact(arg) {
				out[i+1] = RedactedValue
				i++
			}
		default:
			out[i] = arg
		}
	}
	return out
}

func (r *Redactor) redactAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindGroup {
		members := attr.Value.Group()
		redacted := make([]any, 0, len(members))
		for _, m := range members {
			redacted = append(redacted, r.redactAttr(m))
		}
		return slog.Group(attr.Key, redacted...)
	}
	if r.ShouldRedact(attr.Key) {
		return slog.String(attr.Key, RedactedValue)
	}
	return attr
}
